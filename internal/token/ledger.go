package token

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/mathx"
)

// Info describes a fungible token contract.
type Info struct {
	Address  string       `json:"address"`
	Name     string       `json:"name"`
	Symbol   string       `json:"symbol"`
	Decimals uint8        `json:"decimals"`
	Minter   string       `json:"minter,omitempty"`
	Cap      *uint256.Int `json:"cap,omitempty"`
}

// Ledger is an in-memory fungible token. It is not safe for concurrent
// use; the host serializes access.
type Ledger struct {
	info       Info
	supply     *uint256.Int
	balances   map[string]*uint256.Int
	allowances map[string]map[string]*uint256.Int
}

// Snapshot is a deep copy of a ledger's mutable state.
type Snapshot struct {
	Supply     *uint256.Int
	Balances   map[string]*uint256.Int
	Allowances map[string]map[string]*uint256.Int
}

func NewLedger(info Info) *Ledger {
	return &Ledger{
		info:       info,
		supply:     mathx.Zero(),
		balances:   make(map[string]*uint256.Int),
		allowances: make(map[string]map[string]*uint256.Int),
	}
}

func (l *Ledger) Info() Info {
	return l.info
}

func (l *Ledger) TotalSupply() *uint256.Int {
	return l.supply.Clone()
}

func (l *Ledger) BalanceOf(account string) *uint256.Int {
	return mathx.OrZero(l.balances[account]).Clone()
}

func (l *Ledger) Allowance(owner, spender string) *uint256.Int {
	return mathx.OrZero(l.allowances[owner][spender]).Clone()
}

// Mint creates amount for to. Only the minter may mint, and the supply
// never exceeds the cap.
func (l *Ledger) Mint(sender, to string, amount *uint256.Int) error {
	if l.info.Minter == "" || sender != l.info.Minter {
		return errors.Wrapf(apperr.ErrUnauthorized, "mint %s by %s", l.info.Symbol, sender)
	}
	return l.Issue(to, amount)
}

// Issue credits an initial balance at instantiation. The cap still applies.
func (l *Ledger) Issue(to string, amount *uint256.Int) error {
	if mathx.OrZero(amount).IsZero() {
		return apperr.ErrInvalidZeroAmount
	}
	supply, err := mathx.Add(l.supply, amount)
	if err != nil {
		return errors.Wrap(err, "mint")
	}
	if l.info.Cap != nil && supply.Gt(l.info.Cap) {
		return errors.Wrapf(apperr.ErrMintCapExceeded, "supply %s cap %s", supply.Dec(), l.info.Cap.Dec())
	}
	if err := l.credit(to, amount); err != nil {
		return err
	}
	l.supply = supply
	return nil
}

// Burn destroys amount held by from.
func (l *Ledger) Burn(from string, amount *uint256.Int) error {
	if mathx.OrZero(amount).IsZero() {
		return apperr.ErrInvalidZeroAmount
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	supply, err := mathx.Sub(l.supply, amount)
	if err != nil {
		return errors.Wrap(err, "burn")
	}
	l.supply = supply
	return nil
}

func (l *Ledger) Transfer(from, to string, amount *uint256.Int) error {
	if mathx.OrZero(amount).IsZero() {
		return apperr.ErrInvalidZeroAmount
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	return l.credit(to, amount)
}

// TransferFrom moves amount from owner to to using spender's allowance.
func (l *Ledger) TransferFrom(spender, owner, to string, amount *uint256.Int) error {
	if mathx.OrZero(amount).IsZero() {
		return apperr.ErrInvalidZeroAmount
	}
	allowance := l.Allowance(owner, spender)
	remaining, err := mathx.Sub(allowance, amount)
	if err != nil {
		return errors.Wrapf(apperr.ErrInsufficientAllowance, "%s allows %s %s, wants %s", owner, spender, allowance.Dec(), amount.Dec())
	}
	if err := l.debit(owner, amount); err != nil {
		return err
	}
	if err := l.credit(to, amount); err != nil {
		return err
	}
	l.setAllowance(owner, spender, remaining)
	return nil
}

func (l *Ledger) IncreaseAllowance(owner, spender string, amount *uint256.Int) error {
	next, err := mathx.Add(l.Allowance(owner, spender), amount)
	if err != nil {
		return errors.Wrap(err, "increase allowance")
	}
	l.setAllowance(owner, spender, next)
	return nil
}

func (l *Ledger) debit(account string, amount *uint256.Int) error {
	balance := l.BalanceOf(account)
	next, err := mathx.Sub(balance, amount)
	if err != nil {
		return errors.Wrapf(apperr.ErrInsufficientFunds, "%s holds %s %s, needs %s", account, balance.Dec(), l.info.Symbol, amount.Dec())
	}
	if next.IsZero() {
		delete(l.balances, account)
		return nil
	}
	l.balances[account] = next
	return nil
}

func (l *Ledger) credit(account string, amount *uint256.Int) error {
	next, err := mathx.Add(l.BalanceOf(account), amount)
	if err != nil {
		return errors.Wrap(err, "credit")
	}
	l.balances[account] = next
	return nil
}

func (l *Ledger) setAllowance(owner, spender string, amount *uint256.Int) {
	if amount.IsZero() {
		delete(l.allowances[owner], spender)
		return
	}
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]*uint256.Int)
	}
	l.allowances[owner][spender] = amount
}

// Snapshot captures the ledger for a later Restore.
func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{
		Supply:     l.supply.Clone(),
		Balances:   cloneBalances(l.balances),
		Allowances: make(map[string]map[string]*uint256.Int, len(l.allowances)),
	}
	for owner, spenders := range l.allowances {
		s.Allowances[owner] = cloneBalances(spenders)
	}
	return s
}

func (l *Ledger) Restore(s Snapshot) {
	l.supply = s.Supply.Clone()
	l.balances = cloneBalances(s.Balances)
	l.allowances = make(map[string]map[string]*uint256.Int, len(s.Allowances))
	for owner, spenders := range s.Allowances {
		l.allowances[owner] = cloneBalances(spenders)
	}
}

func cloneBalances(in map[string]*uint256.Int) map[string]*uint256.Int {
	out := make(map[string]*uint256.Int, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}
