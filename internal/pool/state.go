package pool

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/amp"
	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/stableswap"
	"stablePool/internal/twap"
)

// DefaultMinimumLiquidity is locked in the pool on the first provide.
const DefaultMinimumLiquidity = 1_000

// Config creates a pool.
type Config struct {
	Assets           [2]asset.Info
	Decimals         [2]uint8
	Amp              uint64
	Address          string
	ShareToken       string
	PairType         string
	MinimumLiquidity *uint256.Int
}

// State is the pool record. Ramp and accumulator are sub-fields mutated in
// the same step as balances.
type State struct {
	Assets           [2]asset.Info
	Decimals         [2]uint8
	Balances         [2]*uint256.Int
	ShareSupply      *uint256.Int
	Ramp             amp.Ramp
	Accumulator      twap.Accumulator
	Address          string
	ShareToken       string
	PairType         string
	MinimumLiquidity *uint256.Int
}

// Clone returns a deep copy.
func (s State) Clone() State {
	next := s
	next.Balances = [2]*uint256.Int{mathx.OrZero(s.Balances[0]).Clone(), mathx.OrZero(s.Balances[1]).Clone()}
	next.ShareSupply = mathx.OrZero(s.ShareSupply).Clone()
	next.Accumulator = s.Accumulator.Clone()
	next.MinimumLiquidity = mathx.OrZero(s.MinimumLiquidity).Clone()
	return next
}

func newState(cfg Config, now uint64) (State, error) {
	for _, a := range cfg.Assets {
		if err := a.Validate(); err != nil {
			return State{}, err
		}
	}
	if cfg.Assets[0].Equal(cfg.Assets[1]) {
		return State{}, apperr.ErrDoublingAssets
	}
	for _, d := range cfg.Decimals {
		if d > mathx.MaxDecimals {
			return State{}, errors.Wrapf(apperr.ErrInvalidDecimals, "decimals %d", d)
		}
	}
	ramp, err := amp.New(cfg.Amp, now)
	if err != nil {
		return State{}, err
	}
	minLiquidity := cfg.MinimumLiquidity
	if minLiquidity == nil {
		minLiquidity = uint256.NewInt(DefaultMinimumLiquidity)
	}
	return State{
		Assets:           cfg.Assets,
		Decimals:         cfg.Decimals,
		Balances:         [2]*uint256.Int{mathx.Zero(), mathx.Zero()},
		ShareSupply:      mathx.Zero(),
		Ramp:             ramp,
		Accumulator:      twap.New(now),
		Address:          cfg.Address,
		ShareToken:       cfg.ShareToken,
		PairType:         cfg.PairType,
		MinimumLiquidity: minLiquidity.Clone(),
	}, nil
}

// Precision is the common precision balances are normalized to.
func (s State) Precision() uint8 {
	return mathx.CommonPrecision(s.Decimals[0], s.Decimals[1])
}

func (s State) normalize(i int, amount *uint256.Int) (*uint256.Int, error) {
	return mathx.Scale(amount, s.Decimals[i], s.Precision())
}

func (s State) denormalize(i int, amount *uint256.Int) (*uint256.Int, error) {
	return mathx.Scale(amount, s.Precision(), s.Decimals[i])
}

func (s State) normalizedBalances() ([2]*uint256.Int, error) {
	var out [2]*uint256.Int
	for i := range s.Balances {
		v, err := s.normalize(i, s.Balances[i])
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

// invariant returns D for the current balances at time now.
func (s State) invariant(now uint64) (*uint256.Int, error) {
	xp, err := s.normalizedBalances()
	if err != nil {
		return nil, err
	}
	return stableswap.ComputeD(s.Ramp.Effective(now), xp[0], xp[1])
}

// indexOf returns the position of info in the pool.
func (s State) indexOf(info asset.Info) (int, error) {
	for i, a := range s.Assets {
		if a.Equal(info) {
			return i, nil
		}
	}
	return 0, errors.Wrapf(apperr.ErrAssetMismatch, "asset %s", info)
}

// prices returns the marginal prices at the current balances. Each price is
// expressed in smallest units of the other asset per whole unit.
func (s State) prices(now uint64) twap.PriceFunc {
	return func() (twap.Prices, error) {
		xp, err := s.normalizedBalances()
		if err != nil {
			return twap.Prices{}, err
		}
		a := s.Ramp.Effective(now)
		p0, err := stableswap.MarginalPrice(a, xp[0], xp[1], mathx.Pow10(s.Decimals[1]))
		if err != nil {
			return twap.Prices{}, err
		}
		p1, err := stableswap.MarginalPrice(a, xp[1], xp[0], mathx.Pow10(s.Decimals[0]))
		if err != nil {
			return twap.Prices{}, err
		}
		return twap.Prices{Price0: p0, Price1: p1}, nil
	}
}

// accumulate rolls the price accumulator forward with the balances as they
// stand before the current operation.
func (s *State) accumulate(now uint64) error {
	return s.Accumulator.Accumulate(now, s.ShareSupply, s.prices(now))
}

func (s State) poolAssets() [2]asset.Asset {
	return [2]asset.Asset{
		asset.New(s.Assets[0], s.Balances[0]),
		asset.New(s.Assets[1], s.Balances[1]),
	}
}
