package mathx

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
)

// MaxDecimals bounds asset precision so 10^decimals stays far inside 256 bits.
const MaxDecimals = 18

var pow10Table = func() [2*MaxDecimals + 1]*uint256.Int {
	var table [2*MaxDecimals + 1]*uint256.Int
	table[0] = uint256.NewInt(1)
	for i := 1; i < len(table); i++ {
		table[i] = new(uint256.Int).Mul(table[i-1], uint256.NewInt(10))
	}
	return table
}()

// Pow10 returns 10^n for n ≤ 36.
func Pow10(n uint8) *uint256.Int {
	if int(n) >= len(pow10Table) {
		return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
	}
	return pow10Table[n].Clone()
}

// Scale converts amount from one precision to another. Scaling up is exact
// and checked; scaling down floors.
func Scale(amount *uint256.Int, from, to uint8) (*uint256.Int, error) {
	if from > MaxDecimals || to > MaxDecimals {
		return nil, errors.Wrapf(apperr.ErrInvalidDecimals, "scale %d -> %d", from, to)
	}
	switch {
	case from == to:
		return OrZero(amount).Clone(), nil
	case from < to:
		return Mul256(amount, Pow10(to-from))
	default:
		return new(uint256.Int).Div(OrZero(amount), Pow10(from-to)), nil
	}
}

// CommonPrecision returns max(a, b).
func CommonPrecision(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}
