package host

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
	"stablePool/internal/pool"
	"stablePool/internal/token"
)

func (c *Chain) ledger(contract string) (*token.Ledger, error) {
	l, ok := c.tokens[contract]
	if !ok {
		return nil, errors.Wrapf(apperr.ErrUnknownToken, "token %s", contract)
	}
	return l, nil
}

func (c *Chain) pair(addr string) (*pool.Pool, error) {
	p, ok := c.pools[addr]
	if !ok {
		return nil, errors.Wrapf(apperr.ErrUnknownPair, "pair %s", addr)
	}
	return p, nil
}

// dispatch applies messages in order. The caller rolls back on error.
func (c *Chain) dispatch(msgs []pool.Message) error {
	for i, m := range msgs {
		if err := c.apply(m); err != nil {
			return errors.Wrapf(err, "message %d (%s)", i, m.Kind)
		}
	}
	return nil
}

func (c *Chain) apply(m pool.Message) error {
	amount := mathx.OrZero(m.Amount)
	switch m.Kind {
	case pool.MsgBankSend:
		if err := c.bank.Send(m.From, m.To, []asset.Coin{{Denom: m.Denom, Amount: amount}}); err != nil {
			return err
		}
		if tax := mathx.OrZero(m.Tax); !tax.IsZero() {
			return c.bank.Send(m.From, c.taxCollector, []asset.Coin{{Denom: m.Denom, Amount: tax}})
		}
		return nil
	case pool.MsgTransfer:
		l, err := c.ledger(m.Contract)
		if err != nil {
			return err
		}
		return l.Transfer(m.From, m.To, amount)
	case pool.MsgTransferFrom:
		l, err := c.ledger(m.Contract)
		if err != nil {
			return err
		}
		return l.TransferFrom(m.Sender, m.From, m.To, amount)
	case pool.MsgMint:
		l, err := c.ledger(m.Contract)
		if err != nil {
			return err
		}
		return l.Mint(m.Sender, m.To, amount)
	case pool.MsgBurn:
		l, err := c.ledger(m.Contract)
		if err != nil {
			return err
		}
		return l.Burn(m.From, amount)
	default:
		return errors.Wrapf(apperr.ErrInvalidMessage, "message kind %q", m.Kind)
	}
}

// transferMessage builds a plain transfer of a from sender, taxed when native.
func (c *Chain) transferMessage(sender string, a asset.Asset, to string) (pool.Message, error) {
	if !a.Info.IsNative() {
		return pool.Message{
			Kind:     pool.MsgTransfer,
			Sender:   sender,
			Contract: a.Info.ContractAddr,
			From:     sender,
			To:       to,
			Amount:   mathx.OrZero(a.Amount).Clone(),
		}, nil
	}
	net, err := a.DeductTax(c.tax)
	if err != nil {
		return pool.Message{}, err
	}
	return pool.Message{
		Kind:   pool.MsgBankSend,
		Sender: sender,
		Denom:  a.Info.Denom,
		From:   sender,
		To:     to,
		Amount: net,
		Tax:    new(uint256.Int).Sub(mathx.OrZero(a.Amount), net),
	}, nil
}

// balanceOf reads the native or token balance of owner.
func (c *Chain) balanceOf(owner string, info asset.Info) *uint256.Int {
	if info.IsNative() {
		return c.bank.Balance(owner, info.Denom)
	}
	l, ok := c.tokens[info.ContractAddr]
	if !ok {
		return mathx.Zero()
	}
	return l.BalanceOf(owner)
}
