package pool

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
)

// Deps are the collaborators a pool reads from.
type Deps struct {
	Registry Registry
	Shares   ShareBalances
	Tax      asset.TaxQuerier
}

// Pool is a two-asset stable pool. Operations work on a copy of the state
// and commit it only when every check passed. A Pool is not safe for
// concurrent use; callers serialize operations.
type Pool struct {
	state    State
	registry Registry
	shares   ShareBalances
	tax      asset.TaxQuerier
}

// New creates an empty pool at env.Time.
func New(env Env, cfg Config, deps Deps) (*Pool, error) {
	if deps.Registry == nil || deps.Shares == nil {
		return nil, errors.New("pool: registry and share balances are required")
	}
	state, err := newState(cfg, env.Time)
	if err != nil {
		return nil, err
	}
	tax := deps.Tax
	if tax == nil {
		tax = asset.NoTax
	}
	return &Pool{state: state, registry: deps.Registry, shares: deps.Shares, tax: tax}, nil
}

// State returns a copy of the pool record.
func (p *Pool) State() State {
	return p.state.Clone()
}

// Restore replaces the pool record, e.g. when a transaction is rolled back.
func (p *Pool) Restore(s State) {
	p.state = s.Clone()
}

func (p *Pool) Address() string {
	return p.state.Address
}

func (p *Pool) ShareToken() string {
	return p.state.ShareToken
}

func (p *Pool) commit(next State) {
	p.state = next
}

// sendAsset builds the outbound transfer of a from the pool to recipient.
// Native transfers carry the tax deducted from the wire amount.
func (p *Pool) sendAsset(a asset.Asset, recipient string) (Message, error) {
	if !a.Info.IsNative() {
		return Message{
			Kind:     MsgTransfer,
			Sender:   p.state.Address,
			Contract: a.Info.ContractAddr,
			From:     p.state.Address,
			To:       recipient,
			Amount:   mathx.OrZero(a.Amount).Clone(),
		}, nil
	}
	net, err := a.DeductTax(p.tax)
	if err != nil {
		return Message{}, errors.Wrap(err, "deduct tax")
	}
	return Message{
		Kind:   MsgBankSend,
		Sender: p.state.Address,
		Denom:  a.Info.Denom,
		From:   p.state.Address,
		To:     recipient,
		Amount: net,
		Tax:    new(uint256.Int).Sub(mathx.OrZero(a.Amount), net),
	}, nil
}

// pullAsset builds the TransferFrom that moves a contract-backed asset from
// owner into the pool. Native assets arrive with the call instead.
func (p *Pool) pullAsset(a asset.Asset, owner string) Message {
	return Message{
		Kind:     MsgTransferFrom,
		Sender:   p.state.Address,
		Contract: a.Info.ContractAddr,
		From:     owner,
		To:       p.state.Address,
		Amount:   mathx.OrZero(a.Amount).Clone(),
	}
}

func (p *Pool) mintShares(to string, amount *uint256.Int) Message {
	return Message{
		Kind:     MsgMint,
		Sender:   p.state.Address,
		Contract: p.state.ShareToken,
		To:       to,
		Amount:   amount.Clone(),
	}
}

func (p *Pool) checkEnabled() error {
	if p.registry.IsPairDisabled(p.state.PairType) {
		return errors.Wrapf(apperr.ErrPairDisabled, "pair type %s", p.state.PairType)
	}
	return nil
}
