package pool

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
)

// Withdraw burns amount shares of the caller and returns the proportional
// slice of both balances.
func (p *Pool) Withdraw(env Env, info MessageInfo, amount *uint256.Int) (Response, error) {
	amount = mathx.OrZero(amount)
	if amount.IsZero() {
		return Response{}, errors.Wrap(apperr.ErrInvalidZeroAmount, "withdraw")
	}
	if held := p.shares.BalanceOf(info.Sender); amount.Gt(held) {
		return Response{}, errors.Wrapf(apperr.ErrInsufficientFunds, "%s holds %s shares, withdraws %s", info.Sender, held.Dec(), amount.Dec())
	}
	next := p.state.Clone()
	if amount.Gt(next.ShareSupply) {
		return Response{}, errors.Wrapf(apperr.ErrInsufficientFunds, "share supply %s, withdraws %s", next.ShareSupply.Dec(), amount.Dec())
	}

	if err := next.accumulate(env.Time); err != nil {
		return Response{}, errors.Wrap(err, "withdraw: roll forward")
	}

	refunds, err := next.shareOf(amount)
	if err != nil {
		return Response{}, err
	}
	for i := range next.Balances {
		if next.Balances[i], err = mathx.Sub(next.Balances[i], refunds[i].Amount); err != nil {
			return Response{}, errors.Wrap(err, "withdraw: balance")
		}
	}
	if next.ShareSupply, err = mathx.Sub(next.ShareSupply, amount); err != nil {
		return Response{}, errors.Wrap(err, "withdraw: share supply")
	}

	resp := Response{Messages: []Message{{
		Kind:     MsgBurn,
		Sender:   next.Address,
		Contract: next.ShareToken,
		From:     info.Sender,
		Amount:   amount.Clone(),
	}}}
	for _, refund := range refunds {
		if refund.Amount.IsZero() {
			continue
		}
		msg, err := p.sendAsset(refund, info.Sender)
		if err != nil {
			return Response{}, err
		}
		resp.Messages = append(resp.Messages, msg)
	}
	p.commit(next)

	resp.addAttribute("action", "withdraw_liquidity")
	resp.addAttribute("sender", info.Sender)
	resp.addAttribute("withdrawn_share", amount.Dec())
	resp.addAttribute("refund_assets", refunds[0].String()+", "+refunds[1].String())
	return resp, nil
}

// shareOf returns balances[i] * amount / share_supply for both assets.
func (s State) shareOf(amount *uint256.Int) ([2]asset.Asset, error) {
	var out [2]asset.Asset
	for i := range s.Balances {
		v := mathx.Zero()
		if !s.ShareSupply.IsZero() {
			var err error
			if v, err = mathx.MulRatio(s.Balances[i], amount, s.ShareSupply); err != nil {
				return out, errors.Wrap(err, "share of pool")
			}
		}
		out[i] = asset.New(s.Assets[i], v)
	}
	return out, nil
}
