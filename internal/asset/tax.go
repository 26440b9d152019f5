package asset

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/mathx"
)

// TaxQuerier reports the native transfer tax.
type TaxQuerier interface {
	TaxRate() mathx.Decimal
	TaxCap(denom string) *uint256.Int
}

// FixedTax is a static tax table. A zero cap disables tax for the denom.
type FixedTax struct {
	Rate mathx.Decimal
	Caps map[string]*uint256.Int
}

func (f FixedTax) TaxRate() mathx.Decimal {
	return f.Rate
}

func (f FixedTax) TaxCap(denom string) *uint256.Int {
	if c, ok := f.Caps[denom]; ok && c != nil {
		return c.Clone()
	}
	return mathx.Zero()
}

// NoTax never taxes.
var NoTax TaxQuerier = FixedTax{}

// ComputeTax returns min(amount - amount/(1+rate), cap) for native assets.
func (a Asset) ComputeTax(q TaxQuerier) (*uint256.Int, error) {
	if !a.Info.IsNative() || q == nil {
		return mathx.Zero(), nil
	}
	amount := mathx.OrZero(a.Amount)
	one := mathx.DecimalOne()
	rate := q.TaxRate()
	if rate.IsZero() {
		return mathx.Zero(), nil
	}
	denominator, err := one.Add(rate)
	if err != nil {
		return nil, err
	}
	net, err := mathx.MulDiv(amount, one.Atomics(), denominator.Atomics())
	if err != nil {
		return nil, errors.Wrap(err, "compute tax")
	}
	tax, err := mathx.Sub(amount, net)
	if err != nil {
		return nil, errors.Wrap(err, "compute tax")
	}
	return mathx.Min(tax, q.TaxCap(a.Info.Denom)), nil
}

// DeductTax returns the amount that reaches the recipient of a transfer.
func (a Asset) DeductTax(q TaxQuerier) (*uint256.Int, error) {
	tax, err := a.ComputeTax(q)
	if err != nil {
		return nil, err
	}
	return mathx.Sub(a.Amount, tax)
}
