// Package maker sweeps collected pool fees into a reference asset and splits
// the proceeds between governance and staking.
package maker

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/mathx"
)

// DefaultMaxSpread is applied to every sweep swap unless configured.
const DefaultMaxSpread = 5

// Ledger is the view of balances and pairs the maker reads.
type Ledger interface {
	BalanceOf(owner string, info asset.Info) *uint256.Int
	PairAssets(pairAddr string) ([2]asset.Info, error)
	PairAddress(assets [2]asset.Info) (string, error)
}

type Config struct {
	Owner             string
	Address           string
	ReferenceAsset    asset.Info
	StakingAddr       string
	GovernanceAddr    string
	GovernancePercent uint64
	MaxSpread         mathx.Decimal
}

// Dispatch is a swap the host executes on behalf of the maker. The host
// answers each one with Reply on a later step.
type Dispatch struct {
	ID        uint64        `json:"id"`
	Pair      string        `json:"pair"`
	Offer     asset.Asset   `json:"offer"`
	MaxSpread mathx.Decimal `json:"max_spread"`
	Final     bool          `json:"final"`
	CreatedAt uint64        `json:"created_at"`
}

// Transfer moves part of the reference balance out of the maker.
type Transfer struct {
	Asset asset.Asset `json:"asset"`
	To    string      `json:"to"`
}

// CollectResult holds either swaps to dispatch or, when nothing needed
// swapping, the immediate distribution.
type CollectResult struct {
	Swaps     []Dispatch
	Transfers []Transfer
}

type Maker struct {
	cfg     Config
	tax     asset.TaxQuerier
	pending map[uint64]Dispatch
	expired map[uint64]struct{}
	nextID  uint64
}

func New(cfg Config, tax asset.TaxQuerier) (*Maker, error) {
	if cfg.Address == "" || cfg.StakingAddr == "" {
		return nil, errors.Wrap(apperr.ErrInvalidMessage, "maker and staking addresses are required")
	}
	if err := cfg.ReferenceAsset.Validate(); err != nil {
		return nil, errors.Wrap(err, "reference asset")
	}
	if cfg.GovernancePercent > 100 {
		return nil, apperr.ErrInvalidGovernance
	}
	if cfg.MaxSpread.IsZero() {
		cfg.MaxSpread = mathx.DecimalPercent(DefaultMaxSpread)
	}
	if cfg.MaxSpread.Cmp(mathx.DecimalOne()) > 0 {
		return nil, apperr.ErrInvalidMaxSpread
	}
	if tax == nil {
		tax = asset.NoTax
	}
	return &Maker{
		cfg:     cfg,
		tax:     tax,
		pending: make(map[uint64]Dispatch),
		expired: make(map[uint64]struct{}),
		nextID:  1,
	}, nil
}

func (m *Maker) Config() Config {
	return m.cfg
}

func (m *Maker) Address() string {
	return m.cfg.Address
}

type UpdateConfigMsg struct {
	StakingAddr       *string
	GovernanceAddr    *string
	GovernancePercent *uint64
	MaxSpread         *mathx.Decimal
}

// UpdateConfig changes the distribution settings. Only the owner may call it.
func (m *Maker) UpdateConfig(sender string, msg UpdateConfigMsg) error {
	if sender != m.cfg.Owner {
		return apperr.ErrUnauthorized
	}
	next := m.cfg
	if msg.StakingAddr != nil {
		if *msg.StakingAddr == "" {
			return errors.Wrap(apperr.ErrInvalidMessage, "staking address is required")
		}
		next.StakingAddr = *msg.StakingAddr
	}
	if msg.GovernanceAddr != nil {
		next.GovernanceAddr = *msg.GovernanceAddr
	}
	if msg.GovernancePercent != nil {
		if *msg.GovernancePercent > 100 {
			return apperr.ErrInvalidGovernance
		}
		next.GovernancePercent = *msg.GovernancePercent
	}
	if msg.MaxSpread != nil {
		if msg.MaxSpread.Cmp(mathx.DecimalOne()) > 0 {
			return apperr.ErrInvalidMaxSpread
		}
		next.MaxSpread = *msg.MaxSpread
	}
	m.cfg = next
	return nil
}

// Collect plans the sweep of every non-reference asset held by the maker
// across the given pairs. Each swap is recorded as pending until replied.
func (m *Maker) Collect(now uint64, pairs []string, l Ledger) (CollectResult, error) {
	seen := make(map[string]asset.Info)
	for _, p := range pairs {
		infos, err := l.PairAssets(p)
		if err != nil {
			return CollectResult{}, errors.Wrapf(err, "pair %s", p)
		}
		for _, info := range infos {
			seen[info.Key()] = info
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var swaps []Dispatch
	for _, k := range keys {
		info := seen[k]
		if info.Equal(m.cfg.ReferenceAsset) {
			continue
		}
		balance := l.BalanceOf(m.cfg.Address, info)
		if balance.IsZero() {
			continue
		}
		pair, err := l.PairAddress([2]asset.Info{info, m.cfg.ReferenceAsset})
		if err != nil {
			return CollectResult{}, errors.Wrapf(err, "no pair for %s to %s", info, m.cfg.ReferenceAsset)
		}
		offer := asset.New(info, balance)
		amount, err := offer.DeductTax(m.tax)
		if err != nil {
			return CollectResult{}, err
		}
		if amount.IsZero() {
			continue
		}
		offer.Amount = amount
		swaps = append(swaps, Dispatch{
			Pair:      pair,
			Offer:     offer,
			MaxSpread: m.cfg.MaxSpread,
			CreatedAt: now,
		})
	}

	if len(swaps) == 0 {
		return CollectResult{Transfers: m.Distribute(l.BalanceOf(m.cfg.Address, m.cfg.ReferenceAsset))}, nil
	}
	swaps[len(swaps)-1].Final = true
	for i := range swaps {
		swaps[i].ID = m.nextID
		m.nextID++
		m.pending[swaps[i].ID] = swaps[i]
	}
	return CollectResult{Swaps: swaps}, nil
}

// Reply completes a pending dispatch. A successful reply to the final swap
// of a sweep distributes the reference balance.
func (m *Maker) Reply(id uint64, dispatchErr error, l Ledger) ([]Transfer, error) {
	if _, ok := m.expired[id]; ok {
		delete(m.expired, id)
		return nil, errors.Wrapf(apperr.ErrDispatchExpired, "reply %d", id)
	}
	d, ok := m.pending[id]
	if !ok {
		return nil, errors.Wrapf(apperr.ErrUnknownDispatch, "reply %d", id)
	}
	delete(m.pending, id)
	if dispatchErr != nil {
		return nil, errors.Wrapf(dispatchErr, "dispatch %d", id)
	}
	if !d.Final {
		return nil, nil
	}
	return m.Distribute(l.BalanceOf(m.cfg.Address, m.cfg.ReferenceAsset)), nil
}

// Distribute splits amount: governance gets its percent when configured,
// staking the remainder.
func (m *Maker) Distribute(amount *uint256.Int) []Transfer {
	amount = mathx.OrZero(amount)
	if amount.IsZero() {
		return nil
	}
	var out []Transfer
	governance := mathx.Zero()
	if m.cfg.GovernanceAddr != "" {
		governance = new(uint256.Int).Div(
			new(uint256.Int).Mul(amount, uint256.NewInt(m.cfg.GovernancePercent)),
			uint256.NewInt(100),
		)
		if !governance.IsZero() {
			out = append(out, Transfer{Asset: asset.New(m.cfg.ReferenceAsset, governance), To: m.cfg.GovernanceAddr})
		}
	}
	staking := new(uint256.Int).Sub(amount, governance)
	if !staking.IsZero() {
		out = append(out, Transfer{Asset: asset.New(m.cfg.ReferenceAsset, staking), To: m.cfg.StakingAddr})
	}
	return out
}

// Pending returns the outstanding dispatches ordered by id.
func (m *Maker) Pending() []Dispatch {
	out := make([]Dispatch, 0, len(m.pending))
	for _, d := range m.pending {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Expire removes and returns dispatches older than ttl seconds. A late
// reply to one of them fails with ErrDispatchExpired.
func (m *Maker) Expire(now, ttl uint64) []Dispatch {
	var out []Dispatch
	for _, d := range m.Pending() {
		if now > d.CreatedAt && now-d.CreatedAt > ttl {
			out = append(out, d)
			delete(m.pending, d.ID)
			m.expired[d.ID] = struct{}{}
		}
	}
	return out
}

type Snapshot struct {
	cfg     Config
	pending map[uint64]Dispatch
	expired map[uint64]struct{}
	nextID  uint64
}

func (m *Maker) Snapshot() Snapshot {
	s := Snapshot{
		cfg:     m.cfg,
		pending: make(map[uint64]Dispatch, len(m.pending)),
		expired: make(map[uint64]struct{}, len(m.expired)),
		nextID:  m.nextID,
	}
	for k, v := range m.pending {
		s.pending[k] = v
	}
	for k := range m.expired {
		s.expired[k] = struct{}{}
	}
	return s
}

func (m *Maker) Restore(s Snapshot) {
	m.cfg = s.cfg
	m.nextID = s.nextID
	m.pending = make(map[uint64]Dispatch, len(s.pending))
	for k, v := range s.pending {
		m.pending[k] = v
	}
	m.expired = make(map[uint64]struct{}, len(s.expired))
	for k := range s.expired {
		m.expired[k] = struct{}{}
	}
}
