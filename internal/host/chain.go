// Package host executes pool operations as serialized, atomic transactions
// over in-memory bank, token, registry and maker state.
package host

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/maker"
	"stablePool/internal/metrics"
	"stablePool/internal/model"
	"stablePool/internal/pool"
	"stablePool/internal/registry"
	"stablePool/internal/token"
)

const (
	// DefaultTaxCollector receives native transfer tax.
	DefaultTaxCollector = "tax_collector"
	// DefaultNativeDecimals applies to native denoms without a configured precision.
	DefaultNativeDecimals = 6
)

type Config struct {
	Owner            string
	FeeAddress       string
	PairConfigs      []registry.PairConfig
	Tax              asset.TaxQuerier
	TaxCollector     string
	NativeDecimals   map[string]uint8
	MinimumLiquidity *uint256.Int
	Maker            *maker.Config
	Start            pool.Env
}

type Option func(*Chain)

func WithLogger(log *zap.Logger) Option {
	return func(c *Chain) {
		if log != nil {
			c.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) {
		c.metrics = m
	}
}

// Chain runs one transaction at a time. Every transaction either applies
// in full or leaves all ledgers untouched.
type Chain struct {
	mu      sync.Mutex
	log     *zap.Logger
	metrics *metrics.Metrics

	env            pool.Env
	bank           *token.Bank
	tokens         map[string]*token.Ledger
	pools          map[string]*pool.Pool
	registry       *registry.Registry
	maker          *maker.Maker
	tax            asset.TaxQuerier
	taxCollector   string
	nativeDecimals map[string]uint8
	minLiquidity   *uint256.Int

	replies []reply
	events  []model.PoolEvent
	seq     uint64
}

// reply is a queued answer to a maker dispatch.
type reply struct {
	id  uint64
	err error
}

func New(cfg Config, opts ...Option) (*Chain, error) {
	reg, err := registry.New(cfg.Owner, cfg.FeeAddress, cfg.PairConfigs)
	if err != nil {
		return nil, err
	}
	tax := cfg.Tax
	if tax == nil {
		tax = asset.NoTax
	}
	collector := cfg.TaxCollector
	if collector == "" {
		collector = DefaultTaxCollector
	}
	c := &Chain{
		log:            zap.NewNop(),
		env:            cfg.Start,
		bank:           token.NewBank(),
		tokens:         make(map[string]*token.Ledger),
		pools:          make(map[string]*pool.Pool),
		registry:       reg,
		tax:            tax,
		taxCollector:   collector,
		nativeDecimals: cfg.NativeDecimals,
		minLiquidity:   cfg.MinimumLiquidity,
	}
	if cfg.Maker != nil {
		if c.maker, err = maker.New(*cfg.Maker, tax); err != nil {
			return nil, errors.Wrap(err, "maker")
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Env returns the current block context.
func (c *Chain) Env() pool.Env {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env
}

// Advance moves the clock forward by seconds and blocks.
func (c *Chain) Advance(seconds, blocks uint64) pool.Env {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.env.Time += seconds
	c.env.Height += blocks
	return c.env
}

// SetEnv moves the clock to env. The clock never runs backwards.
func (c *Chain) SetEnv(env pool.Env) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if env.Time < c.env.Time || env.Height < c.env.Height {
		return errors.Wrapf(apperr.ErrInvalidMessage, "clock moves backwards: %d < %d", env.Time, c.env.Time)
	}
	c.env = env
	return nil
}

// DrainEvents returns and clears the recorded transaction events.
func (c *Chain) DrainEvents() []model.PoolEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

type snapshot struct {
	bank     token.BankSnapshot
	tokens   map[string]*token.Ledger
	ledgers  map[string]token.Snapshot
	pools    map[string]*pool.Pool
	states   map[string]pool.State
	registry registry.Snapshot
	maker    *maker.Snapshot
	replies  []reply
}

func (c *Chain) snapshot() snapshot {
	s := snapshot{
		bank:     c.bank.Snapshot(),
		tokens:   make(map[string]*token.Ledger, len(c.tokens)),
		ledgers:  make(map[string]token.Snapshot, len(c.tokens)),
		pools:    make(map[string]*pool.Pool, len(c.pools)),
		states:   make(map[string]pool.State, len(c.pools)),
		registry: c.registry.Snapshot(),
		replies:  append([]reply(nil), c.replies...),
	}
	for addr, l := range c.tokens {
		s.tokens[addr] = l
		s.ledgers[addr] = l.Snapshot()
	}
	for addr, p := range c.pools {
		s.pools[addr] = p
		s.states[addr] = p.State()
	}
	if c.maker != nil {
		ms := c.maker.Snapshot()
		s.maker = &ms
	}
	return s
}

func (c *Chain) restore(s snapshot) {
	c.bank.Restore(s.bank)
	c.tokens = s.tokens
	for addr, l := range c.tokens {
		l.Restore(s.ledgers[addr])
	}
	c.pools = s.pools
	for addr, p := range c.pools {
		p.Restore(s.states[addr])
	}
	c.registry.Restore(s.registry)
	if s.maker != nil {
		c.maker.Restore(*s.maker)
	}
	c.replies = s.replies
}

// tx describes a transaction for logging and event recording.
type tx struct {
	op     string
	pool   string
	sender string
}

// exec runs fn under the chain lock and rolls every ledger back when it fails.
func (c *Chain) exec(ctx context.Context, t tx, fn func() (pool.Response, error)) (pool.Response, error) {
	if err := ctx.Err(); err != nil {
		return pool.Response{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.execLocked(t, fn)
}

func (c *Chain) execLocked(t tx, fn func() (pool.Response, error)) (pool.Response, error) {
	start := time.Now()
	snap := c.snapshot()
	resp, err := fn()
	if err != nil {
		c.restore(snap)
	}
	c.record(t, resp, err)

	result := "ok"
	if err != nil {
		result = apperr.KindOf(err).String()
		c.log.Warn("transaction failed",
			zap.String("op", t.op),
			zap.String("pool", t.pool),
			zap.String("sender", t.sender),
			zap.Uint64("time", c.env.Time),
			zap.Error(err),
		)
	} else {
		c.log.Debug("transaction applied",
			zap.String("op", t.op),
			zap.String("pool", t.pool),
			zap.String("sender", t.sender),
			zap.Uint64("time", c.env.Time),
			zap.Int("messages", len(resp.Messages)),
		)
	}
	c.metrics.ObserveTx(t.op, result, time.Since(start))
	if c.maker != nil {
		c.metrics.SetPendingReplies(len(c.maker.Pending()))
	}
	return resp, err
}

func (c *Chain) record(t tx, resp pool.Response, err error) {
	c.seq++
	ev := model.PoolEvent{
		Seq:       c.seq,
		Height:    c.env.Height,
		Timestamp: c.env.Time,
		Pool:      t.pool,
		Action:    t.op,
		Sender:    t.sender,
		Success:   err == nil,
	}
	if err != nil {
		ev.ErrorKind = apperr.KindOf(err).String()
		ev.Error = err.Error()
	} else {
		if len(resp.Attributes) > 0 {
			ev.Attributes = make(map[string]string, len(resp.Attributes))
			for _, a := range resp.Attributes {
				ev.Attributes[a.Key] = a.Value
			}
		}
		for _, m := range resp.Messages {
			ev.Messages = append(ev.Messages, messageRecord(m))
		}
	}
	c.events = append(c.events, ev)
}

func messageRecord(m pool.Message) model.MessageRecord {
	rec := model.MessageRecord{
		Kind:     string(m.Kind),
		Contract: m.Contract,
		Denom:    m.Denom,
		From:     m.From,
		To:       m.To,
	}
	if m.Amount != nil {
		rec.Amount = m.Amount.Dec()
	}
	if m.Tax != nil && !m.Tax.IsZero() {
		rec.Tax = m.Tax.Dec()
	}
	return rec
}

func deriveAddress(parts ...string) string {
	hash := crypto.Keccak256([]byte(strings.Join(parts, "/")))
	return strings.ToLower(common.BytesToAddress(hash).Hex())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
