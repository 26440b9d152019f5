package twap

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/mathx"
)

// Accumulator holds the time integrals of both marginal prices.
type Accumulator struct {
	Price0Cumulative *uint256.Int
	Price1Cumulative *uint256.Int
	LastUpdate       uint64
}

// Prices are the marginal prices used for one roll-forward.
// Price0 is asset 0 in smallest units of asset 1, Price1 the reverse.
type Prices struct {
	Price0 *uint256.Int
	Price1 *uint256.Int
}

// PriceFunc computes marginal prices from the pre-operation pool.
type PriceFunc func() (Prices, error)

// New returns an accumulator starting at now.
func New(now uint64) Accumulator {
	return Accumulator{Price0Cumulative: mathx.Zero(), Price1Cumulative: mathx.Zero(), LastUpdate: now}
}

// Clone returns a deep copy.
func (a Accumulator) Clone() Accumulator {
	return Accumulator{
		Price0Cumulative: mathx.OrZero(a.Price0Cumulative).Clone(),
		Price1Cumulative: mathx.OrZero(a.Price1Cumulative).Clone(),
		LastUpdate:       a.LastUpdate,
	}
}

// Project returns the accumulator rolled forward to now without changing a.
// Prices are only evaluated when time has passed and liquidity exists.
func (a Accumulator) Project(now uint64, shareSupply *uint256.Int, prices PriceFunc) (Accumulator, error) {
	next := a.Clone()
	if now > a.LastUpdate && !mathx.OrZero(shareSupply).IsZero() {
		p, err := prices()
		if err != nil {
			return Accumulator{}, errors.Wrap(err, "marginal prices")
		}
		elapsed := uint256.NewInt(now - a.LastUpdate)
		if next.Price0Cumulative, err = advance(next.Price0Cumulative, p.Price0, elapsed); err != nil {
			return Accumulator{}, errors.Wrap(err, "price0 cumulative")
		}
		if next.Price1Cumulative, err = advance(next.Price1Cumulative, p.Price1, elapsed); err != nil {
			return Accumulator{}, errors.Wrap(err, "price1 cumulative")
		}
	}
	if now > next.LastUpdate {
		next.LastUpdate = now
	}
	return next, nil
}

// Accumulate rolls a forward to now in place.
func (a *Accumulator) Accumulate(now uint64, shareSupply *uint256.Int, prices PriceFunc) error {
	next, err := a.Project(now, shareSupply, prices)
	if err != nil {
		return err
	}
	*a = next
	return nil
}

func advance(cumulative, price, elapsed *uint256.Int) (*uint256.Int, error) {
	delta, err := mathx.Mul256(price, elapsed)
	if err != nil {
		return nil, err
	}
	return mathx.Add256(cumulative, delta)
}
