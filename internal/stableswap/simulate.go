package stableswap

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/mathx"
)

// AskAmount returns how much of the ask asset leaves the pool, before fees,
// when offer is added to offerPool at constant invariant. All values are
// normalized to a common precision.
func AskAmount(amp uint64, offerPool, askPool, offer *uint256.Int) (*uint256.Int, error) {
	d, err := ComputeD(amp, offerPool, askPool)
	if err != nil {
		return nil, err
	}
	newOffer, err := mathx.Add256(offerPool, offer)
	if err != nil {
		return nil, err
	}
	newAsk, err := ComputeY(amp, newOffer, d)
	if err != nil {
		return nil, err
	}
	return mathx.SaturatingSub(askPool, newAsk), nil
}

// OfferAmount is the inverse of AskAmount: the offer needed for ask to leave
// the pool, before fees.
func OfferAmount(amp uint64, offerPool, askPool, ask *uint256.Int) (*uint256.Int, error) {
	if !mathx.OrZero(ask).Lt(mathx.OrZero(askPool)) {
		return nil, errors.Wrapf(apperr.ErrInsufficientFunds, "ask %s exceeds pool %s", mathx.OrZero(ask).Dec(), mathx.OrZero(askPool).Dec())
	}
	d, err := ComputeD(amp, offerPool, askPool)
	if err != nil {
		return nil, err
	}
	newOffer, err := ComputeY(amp, new(uint256.Int).Sub(askPool, ask), d)
	if err != nil {
		return nil, err
	}
	return mathx.SaturatingSub(newOffer, offerPool), nil
}
