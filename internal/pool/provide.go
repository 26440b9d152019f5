package pool

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/stableswap"
)

// ProvideMsg deposits both pool assets.
type ProvideMsg struct {
	Assets            [2]asset.Asset
	SlippageTolerance *mathx.Decimal
	MinShare          *uint256.Int
	Receiver          string
}

// Provide deposits liquidity and mints shares to the receiver.
func (p *Pool) Provide(env Env, info MessageInfo, msg ProvideMsg) (Response, error) {
	if err := p.checkEnabled(); err != nil {
		return Response{}, err
	}
	next := p.state.Clone()

	deposits, err := next.depositAmounts(msg.Assets)
	if err != nil {
		return Response{}, err
	}
	for _, a := range msg.Assets {
		if err := a.AssertSentNativeFunds(info.Funds); err != nil {
			return Response{}, err
		}
	}
	if msg.SlippageTolerance != nil {
		if err := assertSlippageTolerance(*msg.SlippageTolerance, deposits, next.Balances); err != nil {
			return Response{}, err
		}
	}

	if err := next.accumulate(env.Time); err != nil {
		return Response{}, errors.Wrap(err, "provide: roll forward")
	}

	d0, err := next.invariant(env.Time)
	if err != nil {
		return Response{}, errors.Wrap(err, "provide: initial invariant")
	}
	for i := range next.Balances {
		if next.Balances[i], err = mathx.Add(next.Balances[i], deposits[i]); err != nil {
			return Response{}, errors.Wrap(err, "provide: balance")
		}
	}
	d1, err := next.invariant(env.Time)
	if err != nil {
		return Response{}, errors.Wrap(err, "provide: deposit invariant")
	}

	receiver := msg.Receiver
	if receiver == "" {
		receiver = info.Sender
	}

	var resp Response
	for i, a := range next.Assets {
		if !a.IsNative() {
			resp.Messages = append(resp.Messages, p.pullAsset(asset.New(a, deposits[i]), info.Sender))
		}
	}

	var share, minted *uint256.Int
	if next.ShareSupply.IsZero() {
		share, err = mathx.Div(d1, uint256.NewInt(stableswap.NCoins))
		if err != nil {
			return Response{}, err
		}
		if !share.Gt(next.MinimumLiquidity) {
			return Response{}, errors.Wrapf(apperr.ErrMinimumLiquidity, "share %s minimum %s", share.Dec(), next.MinimumLiquidity.Dec())
		}
		minted = new(uint256.Int).Sub(share, next.MinimumLiquidity)
		resp.Messages = append(resp.Messages, p.mintShares(next.Address, next.MinimumLiquidity))
	} else {
		growth, err := mathx.Sub(d1, d0)
		if err != nil {
			return Response{}, errors.Wrap(err, "provide: invariant growth")
		}
		share, err = mathx.MulRatio(next.ShareSupply, growth, d0)
		if err != nil {
			return Response{}, errors.Wrap(err, "provide: share")
		}
		minted = share
	}
	if minted.IsZero() {
		return Response{}, errors.Wrap(apperr.ErrInvalidZeroAmount, "provide: zero shares")
	}
	if msg.MinShare != nil && minted.Lt(msg.MinShare) {
		return Response{}, errors.Wrapf(apperr.ErrMinShare, "share %s minimum %s", minted.Dec(), msg.MinShare.Dec())
	}
	resp.Messages = append(resp.Messages, p.mintShares(receiver, minted))

	if next.ShareSupply, err = mathx.Add(next.ShareSupply, share); err != nil {
		return Response{}, errors.Wrap(err, "provide: share supply")
	}
	p.commit(next)

	resp.addAttribute("action", "provide_liquidity")
	resp.addAttribute("sender", info.Sender)
	resp.addAttribute("receiver", receiver)
	resp.addAttribute("assets", msg.Assets[0].String()+", "+msg.Assets[1].String())
	resp.addAttribute("share", minted.Dec())
	return resp, nil
}

// depositAmounts orders the offered assets like the pool's assets.
func (s State) depositAmounts(assets [2]asset.Asset) ([2]*uint256.Int, error) {
	var out [2]*uint256.Int
	for _, a := range assets {
		i, err := s.indexOf(a.Info)
		if err != nil {
			return out, err
		}
		if out[i] != nil {
			return out, errors.Wrapf(apperr.ErrAssetMismatch, "asset %s given twice", a.Info)
		}
		out[i] = mathx.OrZero(a.Amount).Clone()
	}
	for i := range out {
		if out[i].IsZero() {
			return out, errors.Wrapf(apperr.ErrInvalidZeroAmount, "deposit of %s", s.Assets[i])
		}
	}
	return out, nil
}

// assertSlippageTolerance fails when either deposit ratio, discounted by the
// tolerance, is above the pool ratio.
func assertSlippageTolerance(tolerance mathx.Decimal, deposits, pools [2]*uint256.Int) error {
	one := mathx.DecimalOne()
	if tolerance.Cmp(one) > 0 {
		return errors.Wrapf(apperr.ErrAllowedSpread, "slippage tolerance %s", tolerance)
	}
	if pools[0].IsZero() || pools[1].IsZero() {
		return nil
	}
	discount, err := one.Sub(tolerance)
	if err != nil {
		return err
	}
	for _, pair := range [][2]int{{0, 1}, {1, 0}} {
		depositRatio, err := mathx.DecimalFromRatio(deposits[pair[0]], deposits[pair[1]])
		if err != nil {
			return err
		}
		discounted, err := depositRatio.Mul(discount)
		if err != nil {
			return err
		}
		poolRatio, err := mathx.DecimalFromRatio(pools[pair[0]], pools[pair[1]])
		if err != nil {
			return err
		}
		if discounted.Cmp(poolRatio) > 0 {
			return errors.Wrapf(apperr.ErrMaxSlippage, "deposit ratio %s pool ratio %s", depositRatio, poolRatio)
		}
	}
	return nil
}
