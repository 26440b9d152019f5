package mathx

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
)

// MaxUint128 is the ceiling for balances, shares and transfer amounts.
var MaxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// Zero returns a fresh zero value.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// NewInt returns v as a uint256.
func NewInt(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// OrZero treats nil as zero.
func OrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return Zero()
	}
	return v
}

// Add returns x+y in the Uint128 domain.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, err := Add256(x, y)
	if err != nil {
		return nil, err
	}
	return capped(z)
}

// Sub returns x-y, failing with ErrUnderflow when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(OrZero(x), OrZero(y))
	if underflow {
		return nil, errors.Wrapf(apperr.ErrUnderflow, "%s - %s", OrZero(x).Dec(), OrZero(y).Dec())
	}
	return z, nil
}

// SaturatingSub returns max(x-y, 0).
func SaturatingSub(x, y *uint256.Int) *uint256.Int {
	if OrZero(x).Lt(OrZero(y)) {
		return Zero()
	}
	return new(uint256.Int).Sub(OrZero(x), OrZero(y))
}

// Mul returns x*y in the Uint128 domain.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, err := Mul256(x, y)
	if err != nil {
		return nil, err
	}
	return capped(z)
}

// Add256 returns x+y, failing only when the 256-bit word overflows.
func Add256(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(OrZero(x), OrZero(y))
	if overflow {
		return nil, errors.Wrapf(apperr.ErrOverflow, "%s + %s", OrZero(x).Dec(), OrZero(y).Dec())
	}
	return z, nil
}

// Mul256 returns x*y, failing only when the 256-bit word overflows.
func Mul256(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(OrZero(x), OrZero(y))
	if overflow {
		return nil, errors.Wrapf(apperr.ErrOverflow, "%s * %s", OrZero(x).Dec(), OrZero(y).Dec())
	}
	return z, nil
}

// Div returns floor(x/y).
func Div(x, y *uint256.Int) (*uint256.Int, error) {
	if OrZero(y).IsZero() {
		return nil, apperr.ErrDivideByZero
	}
	return new(uint256.Int).Div(OrZero(x), y), nil
}

// MulDiv returns floor(a*b/c). The product is kept at full 512-bit width before dividing.
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	if OrZero(c).IsZero() {
		return nil, apperr.ErrDivideByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(OrZero(a), OrZero(b), c)
	if overflow {
		return nil, errors.Wrapf(apperr.ErrOverflow, "%s * %s / %s", OrZero(a).Dec(), OrZero(b).Dec(), c.Dec())
	}
	return z, nil
}

// MulRatio is MulDiv restricted to the Uint128 domain.
func MulRatio(a, b, c *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(a, b, c)
	if err != nil {
		return nil, err
	}
	return capped(z)
}

// Min returns the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if OrZero(x).Lt(OrZero(y)) {
		return OrZero(x)
	}
	return OrZero(y)
}

// AbsDiff returns |x-y|.
func AbsDiff(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return new(uint256.Int).Sub(y, x)
	}
	return new(uint256.Int).Sub(x, y)
}

// ParseAmount parses a base-10 amount in the Uint128 domain.
func ParseAmount(input string) (*uint256.Int, error) {
	if input == "" {
		return Zero(), nil
	}
	v, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, errors.Wrapf(err, "parse amount %q", input)
	}
	return capped(v)
}

func capped(z *uint256.Int) (*uint256.Int, error) {
	if z.Gt(MaxUint128) {
		return nil, errors.Wrapf(apperr.ErrOverflow, "%s exceeds uint128", z.Dec())
	}
	return z, nil
}
