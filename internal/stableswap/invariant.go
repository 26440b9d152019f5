package stableswap

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/mathx"
)

const (
	// NCoins is the number of assets in a pool.
	NCoins = 2
	// MaxIterations bounds every Newton loop in this package.
	MaxIterations = 64
)

var (
	one   = uint256.NewInt(1)
	two   = uint256.NewInt(2)
	three = uint256.NewInt(3)
)

// iterationLimit is MaxIterations; tests lower it to reach the convergence failure.
var iterationLimit = MaxIterations

// ann returns A·n^n.
func ann(amp uint64) (*uint256.Int, error) {
	if amp == 0 {
		return nil, apperr.ErrIncorrectAmp
	}
	return mathx.Mul256(uint256.NewInt(amp), uint256.NewInt(NCoins*NCoins))
}

// productTerm returns D^3 / (n^n·x0·x1), dividing by the smaller balance first.
func productTerm(d, x0, x1 *uint256.Int) (*uint256.Int, error) {
	if x0.Gt(x1) {
		x0, x1 = x1, x0
	}
	dp, err := mathx.MulDiv(d, d, new(uint256.Int).Mul(x0, two))
	if err != nil {
		return nil, err
	}
	twoX1, err := mathx.Mul256(x1, two)
	if err != nil {
		return nil, err
	}
	return mathx.MulDiv(dp, d, twoX1)
}

// ComputeD solves the invariant for the normalized balances x0 and x1.
func ComputeD(amp uint64, x0, x1 *uint256.Int) (*uint256.Int, error) {
	x0, x1 = mathx.OrZero(x0), mathx.OrZero(x1)
	if x0.IsZero() && x1.IsZero() {
		return mathx.Zero(), nil
	}
	if x0.IsZero() || x1.IsZero() {
		return nil, apperr.ErrZeroBalance
	}
	leverage, err := ann(amp)
	if err != nil {
		return nil, err
	}
	sum, err := mathx.Add256(x0, x1)
	if err != nil {
		return nil, err
	}
	annSum, err := mathx.Mul256(leverage, sum)
	if err != nil {
		return nil, err
	}
	annMinusOne := new(uint256.Int).Sub(leverage, one)

	d := sum.Clone()
	for i := 0; i < iterationLimit; i++ {
		dp, err := productTerm(d, x0, x1)
		if err != nil {
			return nil, errors.Wrap(err, "compute d")
		}
		numerator, err := mathx.Add256(annSum, new(uint256.Int).Mul(dp, two))
		if err != nil {
			return nil, err
		}
		left, err := mathx.Mul256(annMinusOne, d)
		if err != nil {
			return nil, err
		}
		right, err := mathx.Mul256(dp, three)
		if err != nil {
			return nil, err
		}
		denominator, err := mathx.Add256(left, right)
		if err != nil {
			return nil, err
		}
		next, err := mathx.MulDiv(numerator, d, denominator)
		if err != nil {
			return nil, errors.Wrap(err, "compute d")
		}
		if mathx.AbsDiff(next, d).Cmp(one) <= 0 {
			return next, nil
		}
		d = next
	}
	return nil, errors.Wrapf(apperr.ErrConvergence, "compute d after %d iterations", iterationLimit)
}

// ComputeY returns the balance of the other asset that keeps the invariant
// at d when one normalized balance is x.
func ComputeY(amp uint64, x, d *uint256.Int) (*uint256.Int, error) {
	x, d = mathx.OrZero(x), mathx.OrZero(d)
	if x.IsZero() || d.IsZero() {
		return nil, apperr.ErrZeroBalance
	}
	leverage, err := ann(amp)
	if err != nil {
		return nil, err
	}
	c, err := mathx.MulDiv(d, d, new(uint256.Int).Mul(x, two))
	if err != nil {
		return nil, errors.Wrap(err, "compute y")
	}
	c, err = mathx.MulDiv(c, d, new(uint256.Int).Mul(leverage, two))
	if err != nil {
		return nil, errors.Wrap(err, "compute y")
	}
	b, err := mathx.Add256(x, new(uint256.Int).Div(d, leverage))
	if err != nil {
		return nil, err
	}

	// Start above the root so Newton descends without overshooting. The root
	// exceeds d exactly when b·d < c.
	y := d.Clone()
	if bd, err := mathx.Mul256(b, d); err == nil && bd.Lt(c) {
		if y, err = mathx.Add256(new(uint256.Int).Sqrt(c), d); err != nil {
			return nil, errors.Wrap(err, "compute y")
		}
	}
	for i := 0; i < iterationLimit; i++ {
		ySquared, err := mathx.Mul256(y, y)
		if err != nil {
			return nil, errors.Wrap(err, "compute y")
		}
		numerator, err := mathx.Add256(ySquared, c)
		if err != nil {
			return nil, err
		}
		twoYB, err := mathx.Add256(new(uint256.Int).Mul(y, two), b)
		if err != nil {
			return nil, err
		}
		denominator, err := mathx.Sub(twoYB, d)
		if err != nil {
			return nil, errors.Wrap(err, "compute y")
		}
		if denominator.IsZero() {
			return nil, errors.Wrap(apperr.ErrDivideByZero, "compute y")
		}
		next := new(uint256.Int).Div(numerator, denominator)
		if mathx.AbsDiff(next, y).Cmp(one) <= 0 {
			return next, nil
		}
		y = next
	}
	return nil, errors.Wrapf(apperr.ErrConvergence, "compute y after %d iterations", iterationLimit)
}

// MarginalPrice returns the instantaneous price of asset x in units of
// asset y, multiplied by scale.
func MarginalPrice(amp uint64, x, y, scale *uint256.Int) (*uint256.Int, error) {
	d, err := ComputeD(amp, x, y)
	if err != nil {
		return nil, err
	}
	if d.IsZero() {
		return mathx.Zero(), nil
	}
	leverage, err := ann(amp)
	if err != nil {
		return nil, err
	}
	dp, err := productTerm(d, x, y)
	if err != nil {
		return nil, err
	}

	annX, err := mathx.Mul256(leverage, x)
	if err != nil {
		return nil, err
	}
	dx, err := mathx.Add256(annX, dp)
	if err != nil {
		return nil, err
	}
	annY, err := mathx.Mul256(leverage, y)
	if err != nil {
		return nil, err
	}
	dy, err := mathx.Add256(annY, dp)
	if err != nil {
		return nil, err
	}
	num, err := mathx.MulDiv(dx, y, x)
	if err != nil {
		return nil, err
	}
	return mathx.MulDiv(num, scale, dy)
}
