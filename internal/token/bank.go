package token

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
)

// Bank holds native balances per account and denom.
type Bank struct {
	balances map[string]map[string]*uint256.Int
}

// BankSnapshot is a deep copy of bank balances.
type BankSnapshot map[string]map[string]*uint256.Int

func NewBank() *Bank {
	return &Bank{balances: make(map[string]map[string]*uint256.Int)}
}

func (b *Bank) Balance(account, denom string) *uint256.Int {
	return mathx.OrZero(b.balances[account][denom]).Clone()
}

// Fund credits account out of thin air. Used for genesis balances.
func (b *Bank) Fund(account string, coins ...asset.Coin) error {
	for _, c := range coins {
		if err := b.credit(account, c.Denom, c.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Send moves coins from one account to another. Either all coins move or none do.
func (b *Bank) Send(from, to string, coins []asset.Coin) error {
	snapshot := b.Snapshot()
	for _, c := range coins {
		if err := b.move(from, to, c); err != nil {
			b.Restore(snapshot)
			return err
		}
	}
	return nil
}

func (b *Bank) move(from, to string, c asset.Coin) error {
	balance := b.Balance(from, c.Denom)
	next, err := mathx.Sub(balance, c.Amount)
	if err != nil {
		return errors.Wrapf(apperr.ErrInsufficientFunds, "%s holds %s%s, needs %s", from, balance.Dec(), c.Denom, mathx.OrZero(c.Amount).Dec())
	}
	b.set(from, c.Denom, next)
	return b.credit(to, c.Denom, c.Amount)
}

func (b *Bank) credit(account, denom string, amount *uint256.Int) error {
	next, err := mathx.Add(b.Balance(account, denom), amount)
	if err != nil {
		return errors.Wrap(err, "bank credit")
	}
	b.set(account, denom, next)
	return nil
}

func (b *Bank) set(account, denom string, amount *uint256.Int) {
	if b.balances[account] == nil {
		b.balances[account] = make(map[string]*uint256.Int)
	}
	b.balances[account][denom] = amount
}

func (b *Bank) Snapshot() BankSnapshot {
	out := make(BankSnapshot, len(b.balances))
	for account, coins := range b.balances {
		out[account] = cloneBalances(coins)
	}
	return out
}

func (b *Bank) Restore(s BankSnapshot) {
	b.balances = make(map[string]map[string]*uint256.Int, len(s))
	for account, coins := range s {
		b.balances[account] = cloneBalances(coins)
	}
}
