package mathx

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"stablePool/internal/apperr"
)

// DecimalPlaces is the fractional precision of Decimal.
const DecimalPlaces = 18

var decimalFraction = Pow10(DecimalPlaces)

// Decimal is an unsigned fixed-point number with 18 fractional digits.
// The zero value is 0.
type Decimal struct {
	atomics *uint256.Int
}

// DecimalZero returns 0.
func DecimalZero() Decimal {
	return Decimal{atomics: Zero()}
}

// DecimalOne returns 1.
func DecimalOne() Decimal {
	return Decimal{atomics: decimalFraction.Clone()}
}

// DecimalFromAtomics builds a Decimal from its raw 10^-18 units.
func DecimalFromAtomics(atomics *uint256.Int) Decimal {
	return Decimal{atomics: OrZero(atomics).Clone()}
}

// DecimalPermille returns v/1000.
func DecimalPermille(v uint64) Decimal {
	return Decimal{atomics: new(uint256.Int).Mul(uint256.NewInt(v), Pow10(DecimalPlaces-3))}
}

// DecimalPercent returns v/100.
func DecimalPercent(v uint64) Decimal {
	return Decimal{atomics: new(uint256.Int).Mul(uint256.NewInt(v), Pow10(DecimalPlaces-2))}
}

// DecimalFromRatio returns floor(num/den) at 18-digit precision.
func DecimalFromRatio(num, den *uint256.Int) (Decimal, error) {
	v, err := MulDiv(num, decimalFraction, den)
	if err != nil {
		return Decimal{}, errors.Wrap(err, "decimal ratio")
	}
	return Decimal{atomics: v}, nil
}

// ParseDecimal parses a non-negative decimal string such as "0.005".
// Digits beyond 18 decimal places are truncated.
func ParseDecimal(input string) (Decimal, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return DecimalZero(), nil
	}
	d, err := decimal.NewFromString(input)
	if err != nil {
		return Decimal{}, errors.Wrapf(err, "parse decimal %q", input)
	}
	if d.IsNegative() {
		return Decimal{}, errors.Wrapf(apperr.ErrUnderflow, "negative decimal %q", input)
	}
	atomics, overflow := uint256.FromBig(d.Shift(DecimalPlaces).Truncate(0).BigInt())
	if overflow {
		return Decimal{}, errors.Wrapf(apperr.ErrOverflow, "decimal %q", input)
	}
	return Decimal{atomics: atomics}, nil
}

// MustDecimal is ParseDecimal for constants.
func MustDecimal(input string) Decimal {
	d, err := ParseDecimal(input)
	if err != nil {
		panic(err)
	}
	return d
}

// Atomics returns the raw 10^-18 units.
func (d Decimal) Atomics() *uint256.Int {
	return OrZero(d.atomics).Clone()
}

func (d Decimal) IsZero() bool {
	return OrZero(d.atomics).IsZero()
}

func (d Decimal) Cmp(o Decimal) int {
	return OrZero(d.atomics).Cmp(OrZero(o.atomics))
}

// Add returns d+o.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	v, err := Add256(d.atomics, o.atomics)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{atomics: v}, nil
}

// Sub returns d-o, failing with ErrUnderflow when o > d.
func (d Decimal) Sub(o Decimal) (Decimal, error) {
	v, err := Sub(d.atomics, o.atomics)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{atomics: v}, nil
}

// Mul returns d*o, floored.
func (d Decimal) Mul(o Decimal) (Decimal, error) {
	v, err := MulDiv(d.atomics, o.atomics, decimalFraction)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{atomics: v}, nil
}

// Inv returns 1/d, floored.
func (d Decimal) Inv() (Decimal, error) {
	v, err := MulDiv(decimalFraction, decimalFraction, d.atomics)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{atomics: v}, nil
}

// MulInt returns floor(x*d).
func (d Decimal) MulInt(x *uint256.Int) (*uint256.Int, error) {
	return MulDiv(x, d.atomics, decimalFraction)
}

// DivInt returns floor(x/d).
func (d Decimal) DivInt(x *uint256.Int) (*uint256.Int, error) {
	return MulDiv(x, decimalFraction, d.atomics)
}

func (d Decimal) String() string {
	return decimal.NewFromBigInt(OrZero(d.atomics).ToBig(), -DecimalPlaces).String()
}

func (d Decimal) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decimal) UnmarshalText(text []byte) error {
	parsed, err := ParseDecimal(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
