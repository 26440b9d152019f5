package pool

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/stableswap"
)

const bpsDenominator = 10_000

// DefaultMaxSpread applies when a belief price is given without a max spread.
var DefaultMaxSpread = mathx.DecimalPermille(5)

// SwapMsg offers one pool asset for the other.
type SwapMsg struct {
	OfferAsset  asset.Asset
	BeliefPrice *mathx.Decimal
	MaxSpread   *mathx.Decimal
	To          string
}

type swapResult struct {
	offerIndex int
	askIndex   int
	returnRaw  *uint256.Int
	spread     *uint256.Int
	commission *uint256.Int
	payout     *uint256.Int
}

// simulateSwap prices offer against the state at time now.
func (s State) simulateSwap(now uint64, offer asset.Asset, totalFeeBps uint64) (swapResult, error) {
	offerIndex, err := s.indexOf(offer.Info)
	if err != nil {
		return swapResult{}, err
	}
	askIndex := 1 - offerIndex
	amount := mathx.OrZero(offer.Amount)
	if amount.IsZero() {
		return swapResult{}, errors.Wrap(apperr.ErrInvalidZeroAmount, "swap")
	}

	xp, err := s.normalizedBalances()
	if err != nil {
		return swapResult{}, err
	}
	offerN, err := s.normalize(offerIndex, amount)
	if err != nil {
		return swapResult{}, err
	}
	returnN, err := stableswap.AskAmount(s.Ramp.Effective(now), xp[offerIndex], xp[askIndex], offerN)
	if err != nil {
		return swapResult{}, errors.Wrap(err, "swap: ask amount")
	}
	returnRaw, err := s.denormalize(askIndex, returnN)
	if err != nil {
		return swapResult{}, err
	}
	offerInAsk, err := mathx.Scale(amount, s.Decimals[offerIndex], s.Decimals[askIndex])
	if err != nil {
		return swapResult{}, err
	}
	commission, err := mathx.MulRatio(returnRaw, uint256.NewInt(totalFeeBps), uint256.NewInt(bpsDenominator))
	if err != nil {
		return swapResult{}, err
	}
	return swapResult{
		offerIndex: offerIndex,
		askIndex:   askIndex,
		returnRaw:  returnRaw,
		spread:     mathx.SaturatingSub(offerInAsk, returnRaw),
		commission: commission,
		payout:     new(uint256.Int).Sub(returnRaw, commission),
	}, nil
}

// Swap exchanges the offer asset for the other pool asset.
func (p *Pool) Swap(env Env, info MessageInfo, msg SwapMsg) (Response, error) {
	if err := p.checkEnabled(); err != nil {
		return Response{}, err
	}
	if err := msg.OfferAsset.AssertSentNativeFunds(info.Funds); err != nil {
		return Response{}, err
	}
	totalFeeBps, makerFeeBps, err := p.registry.FeeBpsFor(p.state.PairType)
	if err != nil {
		return Response{}, err
	}

	next := p.state.Clone()
	if err := next.accumulate(env.Time); err != nil {
		return Response{}, errors.Wrap(err, "swap: roll forward")
	}
	result, err := next.simulateSwap(env.Time, msg.OfferAsset, totalFeeBps)
	if err != nil {
		return Response{}, err
	}
	if result.payout.IsZero() {
		return Response{}, errors.Wrap(apperr.ErrInvalidZeroAmount, "swap returns nothing")
	}
	if err := assertMaxSpread(msg.BeliefPrice, msg.MaxSpread, msg.OfferAsset.Amount, result.payout, result.spread); err != nil {
		return Response{}, err
	}

	makerFee := mathx.Zero()
	feeAddress := p.registry.FeeAddress()
	if feeAddress != "" && makerFeeBps > 0 {
		if makerFee, err = mathx.MulRatio(result.commission, uint256.NewInt(makerFeeBps), uint256.NewInt(bpsDenominator)); err != nil {
			return Response{}, err
		}
	}

	offerIndex, askIndex := result.offerIndex, result.askIndex
	if next.Balances[offerIndex], err = mathx.Add(next.Balances[offerIndex], msg.OfferAsset.Amount); err != nil {
		return Response{}, errors.Wrap(err, "swap: offer balance")
	}
	outflow, err := mathx.Add(result.payout, makerFee)
	if err != nil {
		return Response{}, err
	}
	if next.Balances[askIndex], err = mathx.Sub(next.Balances[askIndex], outflow); err != nil {
		return Response{}, errors.Wrap(err, "swap: ask balance")
	}

	receiver := msg.To
	if receiver == "" {
		receiver = info.Sender
	}
	askInfo := next.Assets[askIndex]

	var resp Response
	if !msg.OfferAsset.Info.IsNative() {
		resp.Messages = append(resp.Messages, p.pullAsset(msg.OfferAsset, info.Sender))
	}
	payoutMsg, err := p.sendAsset(asset.New(askInfo, result.payout), receiver)
	if err != nil {
		return Response{}, err
	}
	resp.Messages = append(resp.Messages, payoutMsg)
	if !makerFee.IsZero() {
		feeMsg, err := p.sendAsset(asset.New(askInfo, makerFee), feeAddress)
		if err != nil {
			return Response{}, err
		}
		resp.Messages = append(resp.Messages, feeMsg)
	}
	p.commit(next)

	resp.addAttribute("action", "swap")
	resp.addAttribute("sender", info.Sender)
	resp.addAttribute("receiver", receiver)
	resp.addAttribute("offer_asset", msg.OfferAsset.Info.String())
	resp.addAttribute("ask_asset", askInfo.String())
	resp.addAttribute("offer_amount", mathx.OrZero(msg.OfferAsset.Amount).Dec())
	resp.addAttribute("return_amount", result.payout.Dec())
	resp.addAttribute("spread_amount", result.spread.Dec())
	resp.addAttribute("commission_amount", result.commission.Dec())
	resp.addAttribute("maker_fee_amount", makerFee.Dec())
	return resp, nil
}

// assertMaxSpread checks the realized price against the caller's limits.
// With a belief price the expected return is offer/belief_price; otherwise
// the spread is compared to the return before spread.
func assertMaxSpread(beliefPrice, maxSpread *mathx.Decimal, offer, payout, spread *uint256.Int) error {
	if beliefPrice == nil && maxSpread == nil {
		return nil
	}
	limit := DefaultMaxSpread
	if maxSpread != nil {
		limit = *maxSpread
	}
	if limit.Cmp(mathx.DecimalOne()) > 0 {
		return errors.Wrapf(apperr.ErrInvalidMaxSpread, "max spread %s", limit)
	}

	if beliefPrice != nil {
		if beliefPrice.IsZero() {
			return errors.Wrap(apperr.ErrDivideByZero, "belief price")
		}
		expected, err := beliefPrice.DivInt(offer)
		if err != nil {
			return err
		}
		if !payout.Lt(expected) {
			return nil
		}
		ratio, err := mathx.DecimalFromRatio(new(uint256.Int).Sub(expected, payout), expected)
		if err != nil {
			return err
		}
		if ratio.Cmp(limit) > 0 {
			return errors.Wrapf(apperr.ErrMaxSpread, "expected %s returned %s", expected.Dec(), payout.Dec())
		}
		return nil
	}

	total, err := mathx.Add256(payout, spread)
	if err != nil {
		return err
	}
	ratio, err := mathx.DecimalFromRatio(spread, total)
	if err != nil {
		return err
	}
	if ratio.Cmp(limit) > 0 {
		return errors.Wrapf(apperr.ErrMaxSpread, "spread %s of %s", spread.Dec(), total.Dec())
	}
	return nil
}
