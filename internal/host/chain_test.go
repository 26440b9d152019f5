package host

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"stablePool/internal/apperr"
	"stablePool/internal/asset"
	"stablePool/internal/maker"
	"stablePool/internal/mathx"
	"stablePool/internal/metrics"
	"stablePool/internal/pool"
	"stablePool/internal/registry"
)

const startTime = uint64(1_700_000_000)

var (
	uusd  = asset.Native("uusd")
	uluna = asset.Native("uluna")
)

func n(v uint64) *uint256.Int { return uint256.NewInt(v) }

func newTestChain(t *testing.T, makerCfg *maker.Config) *Chain {
	t.Helper()
	c, err := New(Config{
		Owner:      "owner",
		FeeAddress: "maker",
		PairConfigs: []registry.PairConfig{
			{PairType: registry.PairTypeStable, TotalFeeBps: 5, MakerFeeBps: 5000},
		},
		Maker: makerCfg,
		Start: pool.Env{Height: 1, Time: startTime},
	}, WithLogger(zaptest.NewLogger(t)), WithMetrics(metrics.New(prometheus.NewRegistry())))
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	return c
}

func fund(t *testing.T, c *Chain, account string, coins ...asset.Coin) {
	t.Helper()
	if err := c.Fund(context.Background(), account, coins...); err != nil {
		t.Fatalf("fund %s: %v", account, err)
	}
}

func createPair(t *testing.T, c *Chain, a, b asset.Info) string {
	t.Helper()
	info, err := c.CreatePair(context.Background(), "owner", CreatePairMsg{Assets: [2]asset.Info{a, b}, PairType: registry.PairTypeStable, Amp: 100})
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	return info.ContractAddr
}

func provideNative(t *testing.T, c *Chain, pair, sender string, amount uint64) {
	t.Helper()
	_, err := c.Provide(context.Background(), pair, pool.MessageInfo{
		Sender: sender,
		Funds:  []asset.Coin{{Denom: "uusd", Amount: n(amount)}, {Denom: "uluna", Amount: n(amount)}},
	}, pool.ProvideMsg{Assets: [2]asset.Asset{asset.New(uusd, n(amount)), asset.New(uluna, n(amount))}})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestNativePoolLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t, nil)
	fund(t, c, "alice", asset.Coin{Denom: "uusd", Amount: n(1_000_000_000_000)}, asset.Coin{Denom: "uluna", Amount: n(1_000_000_000_000)})
	fund(t, c, "bob", asset.Coin{Denom: "uusd", Amount: n(1_000_000_000)})
	pair := createPair(t, c, uusd, uluna)

	provideNative(t, c, pair, "alice", 1_000_000_000_000)
	info, _ := c.Pair([2]asset.Info{uluna, uusd})
	if got := c.Balance("alice", asset.Token(info.LiquidityToken)).Uint64(); got != 1_000_000_000_000-1_000 {
		t.Fatalf("unexpected alice shares %d", got)
	}
	if got := c.Balance(pair, asset.Token(info.LiquidityToken)).Uint64(); got != 1_000 {
		t.Fatalf("unexpected locked shares %d", got)
	}

	c.Advance(600, 100)
	resp, err := c.Swap(ctx, pair, pool.MessageInfo{
		Sender: "bob",
		Funds:  []asset.Coin{{Denom: "uusd", Amount: n(1_000_000_000)}},
	}, pool.SwapMsg{OfferAsset: asset.New(uusd, n(1_000_000_000))})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if v, _ := resp.Attribute("return_amount"); v != "999495028" {
		t.Fatalf("unexpected return %s", v)
	}
	if got := c.Balance("bob", uluna).Uint64(); got != 999_495_028 {
		t.Fatalf("unexpected bob uluna %d", got)
	}
	if got := c.Balance("maker", uluna).Uint64(); got != 249_998 {
		t.Fatalf("unexpected maker fee %d", got)
	}
	if got := c.Balance(pair, uluna).Uint64(); got != 999_000_254_974 {
		t.Fatalf("unexpected pool uluna %d", got)
	}
	if got := c.Balance(pair, uusd).Uint64(); got != 1_001_000_000_000 {
		t.Fatalf("unexpected pool uusd %d", got)
	}

	if _, err := c.Withdraw(ctx, pair, pool.MessageInfo{Sender: "alice"}, n(1_000_000_000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := c.Balance("alice", asset.Token(info.LiquidityToken)).Uint64(); got != 1_000_000_000_000-1_000-1_000_000_000 {
		t.Fatalf("shares not burned: %d", got)
	}
	if c.Balance("alice", uusd).IsZero() || c.Balance("alice", uluna).IsZero() {
		t.Fatalf("withdraw must refund both assets")
	}

	events := c.DrainEvents()
	last := events[len(events)-1]
	if last.Action != "withdraw_liquidity" || !last.Success || last.Pool != pair || len(last.Messages) != 3 {
		t.Fatalf("unexpected last event: %+v", last)
	}
	if len(c.DrainEvents()) != 0 {
		t.Fatalf("drain must clear events")
	}
}

func TestFailedSwapRollsBackAttachedFunds(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t, nil)
	fund(t, c, "alice", asset.Coin{Denom: "uusd", Amount: n(1_000_000_000_000)}, asset.Coin{Denom: "uluna", Amount: n(1_000_000_000_000)})
	fund(t, c, "bob", asset.Coin{Denom: "uusd", Amount: n(1_000_000_000)})
	pair := createPair(t, c, uusd, uluna)
	provideNative(t, c, pair, "alice", 1_000_000_000_000)

	belief := mathx.DecimalOne()
	limit := mathx.MustDecimal("0.0001")
	_, err := c.Swap(ctx, pair, pool.MessageInfo{
		Sender: "bob",
		Funds:  []asset.Coin{{Denom: "uusd", Amount: n(1_000_000_000)}},
	}, pool.SwapMsg{OfferAsset: asset.New(uusd, n(1_000_000_000)), BeliefPrice: &belief, MaxSpread: &limit})
	if !errors.Is(err, apperr.ErrMaxSpread) {
		t.Fatalf("expected max spread error, got %v", err)
	}
	if got := c.Balance("bob", uusd).Uint64(); got != 1_000_000_000 {
		t.Fatalf("attached funds not restored: %d", got)
	}
	if got := c.Balance(pair, uusd).Uint64(); got != 1_000_000_000_000 {
		t.Fatalf("pool bank balance changed: %d", got)
	}
	err = c.QueryPool(pair, func(p *pool.Pool) error {
		if got := p.PoolInfo().Assets[0].Amount.Uint64(); got != 1_000_000_000_000 {
			t.Fatalf("pool record changed: %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	events := c.DrainEvents()
	last := events[len(events)-1]
	if last.Success || last.ErrorKind != "max_spread_assertion" || last.Action != "swap" {
		t.Fatalf("unexpected failure event: %+v", last)
	}
}

func TestTokenPairDispatchFailureRollsBackPool(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t, nil)
	fund(t, c, "alice", asset.Coin{Denom: "uusd", Amount: n(1_000_000)})
	tokenAddr, err := c.CreateToken(ctx, "owner", CreateTokenMsg{
		Name: "bridged usd", Symbol: "BUSD", Decimals: 8,
		Initial: map[string]*uint256.Int{"alice": n(500_000_000)},
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	busd := asset.Token(tokenAddr)
	pair := createPair(t, c, uusd, busd)

	provide := pool.ProvideMsg{Assets: [2]asset.Asset{asset.New(uusd, n(1_000_000)), asset.New(busd, n(100_000_000))}}
	info := pool.MessageInfo{Sender: "alice", Funds: []asset.Coin{{Denom: "uusd", Amount: n(1_000_000)}}}

	// No allowance: the pool accepts the deposit but the TransferFrom fails.
	if _, err := c.Provide(ctx, pair, info, provide); !errors.Is(err, apperr.ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}
	if got := c.Balance("alice", uusd).Uint64(); got != 1_000_000 {
		t.Fatalf("native funds not restored: %d", got)
	}
	err = c.QueryPool(pair, func(p *pool.Pool) error {
		if !p.PoolInfo().TotalShare.IsZero() {
			t.Fatalf("pool must stay empty after rollback")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if err := c.IncreaseAllowance(ctx, "alice", tokenAddr, pair, n(100_000_000)); err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if _, err := c.Provide(ctx, pair, info, provide); err != nil {
		t.Fatalf("provide: %v", err)
	}
	if got := c.Balance(pair, busd).Uint64(); got != 100_000_000 {
		t.Fatalf("unexpected pool token balance %d", got)
	}
	if _, supply, err := c.TokenInfo(tokenAddr); err != nil || supply.Uint64() != 500_000_000 {
		t.Fatalf("unexpected supply %v %v", supply, err)
	}
}

func TestCreatePairRejects(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t, nil)
	createPair(t, c, uusd, uluna)

	if _, err := c.CreatePair(ctx, "owner", CreatePairMsg{Assets: [2]asset.Info{uluna, uusd}, PairType: registry.PairTypeStable, Amp: 100}); !errors.Is(err, apperr.ErrPairWasCreated) {
		t.Fatalf("expected duplicate pair error, got %v", err)
	}
	if _, err := c.CreatePair(ctx, "owner", CreatePairMsg{Assets: [2]asset.Info{uusd, asset.Native("ukrw")}, PairType: registry.PairTypeStable, Amp: 0}); !errors.Is(err, apperr.ErrIncorrectAmp) {
		t.Fatalf("expected amp error, got %v", err)
	}
	// The failed pool creation must not leave the pair registered.
	if _, ok := c.Pair([2]asset.Info{uusd, asset.Native("ukrw")}); ok {
		t.Fatalf("pair registered despite failure")
	}
	if _, err := c.CreatePair(ctx, "owner", CreatePairMsg{Assets: [2]asset.Info{uusd, asset.Token("0x00000000000000000000000000000000000000aa")}, PairType: registry.PairTypeStable, Amp: 100}); !errors.Is(err, apperr.ErrUnknownToken) {
		t.Fatalf("expected unknown token error, got %v", err)
	}
}

func TestMakerCollectAndDistribute(t *testing.T) {
	ctx := context.Background()
	c, ref := newMakerChain(t, 1_000_000_000_000)
	refAddr := ref.ContractAddr

	fund(t, c, "alice", asset.Coin{Denom: "uusd", Amount: n(1_000_000_000_000)}, asset.Coin{Denom: "uluna", Amount: n(1_000_000_000_000)})
	fund(t, c, "lp", asset.Coin{Denom: "uluna", Amount: n(1_000_000_000_000)})
	fund(t, c, "bob", asset.Coin{Denom: "uusd", Amount: n(1_000_000_000)})
	usdLuna := createPair(t, c, uusd, uluna)
	lunaRef := createPair(t, c, uluna, ref)
	provideNative(t, c, usdLuna, "alice", 1_000_000_000_000)
	if err := c.IncreaseAllowance(ctx, "lp", refAddr, lunaRef, n(1_000_000_000_000)); err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if _, err := c.Provide(ctx, lunaRef, pool.MessageInfo{
		Sender: "lp",
		Funds:  []asset.Coin{{Denom: "uluna", Amount: n(1_000_000_000_000)}},
	}, pool.ProvideMsg{Assets: [2]asset.Asset{asset.New(uluna, n(1_000_000_000_000)), asset.New(ref, n(1_000_000_000_000))}}); err != nil {
		t.Fatalf("provide ref pair: %v", err)
	}

	if _, err := c.Swap(ctx, usdLuna, pool.MessageInfo{
		Sender: "bob",
		Funds:  []asset.Coin{{Denom: "uusd", Amount: n(1_000_000_000)}},
	}, pool.SwapMsg{OfferAsset: asset.New(uusd, n(1_000_000_000))}); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if got := c.Balance("maker", uluna).Uint64(); got != 249_998 {
		t.Fatalf("unexpected maker fee %d", got)
	}

	if _, err := c.Collect(ctx, "keeper", []string{usdLuna}); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !c.Balance("maker", uluna).IsZero() {
		t.Fatalf("maker must have swapped its uluna")
	}
	if len(c.PendingDispatches()) != 1 {
		t.Fatalf("expected one pending dispatch")
	}
	total := c.Balance("maker", ref).Uint64()
	if total == 0 {
		t.Fatalf("maker holds no reference asset after swap")
	}

	delivered, err := c.ProcessReplies(ctx)
	if err != nil || delivered != 1 {
		t.Fatalf("process replies: %d %v", delivered, err)
	}
	gov, staking := c.Balance("gov", ref).Uint64(), c.Balance("staking", ref).Uint64()
	if gov != total*40/100 || staking != total-gov {
		t.Fatalf("unexpected split of %d: gov %d staking %d", total, gov, staking)
	}
	if !c.Balance("maker", ref).IsZero() || len(c.PendingDispatches()) != 0 {
		t.Fatalf("maker must be drained")
	}
}

// newMakerChain creates a chain whose maker sweeps into a REF token held by "lp".
func newMakerChain(t *testing.T, lpBalance uint64) (*Chain, asset.Info) {
	t.Helper()
	ref := asset.Token(deriveAddress("token", "owner", "REF", "0"))
	c, err := New(Config{
		Owner:      "owner",
		FeeAddress: "maker",
		PairConfigs: []registry.PairConfig{
			{PairType: registry.PairTypeStable, TotalFeeBps: 5, MakerFeeBps: 5000},
		},
		Maker: &maker.Config{
			Owner:             "owner",
			Address:           "maker",
			ReferenceAsset:    ref,
			StakingAddr:       "staking",
			GovernanceAddr:    "gov",
			GovernancePercent: 40,
		},
		Start: pool.Env{Height: 1, Time: startTime},
	}, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	addr, err := c.CreateToken(context.Background(), "owner", CreateTokenMsg{
		Name: "reference", Symbol: "REF", Decimals: 6,
		Initial: map[string]*uint256.Int{"lp": n(lpBalance)},
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if addr != ref.ContractAddr {
		t.Fatalf("token address must be deterministic: %s vs %s", addr, ref.ContractAddr)
	}
	return c, ref
}

func TestExpiredDispatchIsReported(t *testing.T) {
	ctx := context.Background()
	c, ref := newMakerChain(t, 1_000_000)
	refAddr := ref.ContractAddr
	fund(t, c, "lp", asset.Coin{Denom: "uluna", Amount: n(1_000_000)})
	fund(t, c, "maker", asset.Coin{Denom: "uluna", Amount: n(1_000)})
	lunaRef := createPair(t, c, uluna, ref)
	if err := c.IncreaseAllowance(ctx, "lp", refAddr, lunaRef, n(1_000_000)); err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if _, err := c.Provide(ctx, lunaRef, pool.MessageInfo{
		Sender: "lp",
		Funds:  []asset.Coin{{Denom: "uluna", Amount: n(1_000_000)}},
	}, pool.ProvideMsg{Assets: [2]asset.Asset{asset.New(uluna, n(1_000_000)), asset.New(ref, n(1_000_000))}}); err != nil {
		t.Fatalf("provide: %v", err)
	}

	if _, err := c.Collect(ctx, "keeper", []string{lunaRef}); err != nil {
		t.Fatalf("collect: %v", err)
	}
	c.Advance(3_600, 600)
	expired, err := c.Expire(ctx, 60)
	if err != nil || len(expired) != 1 {
		t.Fatalf("expire: %v %v", expired, err)
	}
	if _, err := c.ProcessReplies(ctx); !errors.Is(err, apperr.ErrDispatchExpired) {
		t.Fatalf("late reply must report expiry, got %v", err)
	}
	if !c.Balance("staking", ref).IsZero() {
		t.Fatalf("expired dispatch must not distribute")
	}
}

func TestCanceledContextSkipsTransaction(t *testing.T) {
	c := newTestChain(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Fund(ctx, "alice", asset.Coin{Denom: "uusd", Amount: n(1)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if len(c.DrainEvents()) != 0 {
		t.Fatalf("canceled transaction must not be recorded")
	}
}

func TestSnapshotsReload(t *testing.T) {
	c := newTestChain(t, nil)
	fund(t, c, "alice", asset.Coin{Denom: "uusd", Amount: n(1_000_000)}, asset.Coin{Denom: "uluna", Amount: n(1_000_000)})
	pair := createPair(t, c, uusd, uluna)
	provideNative(t, c, pair, "alice", 1_000_000)

	snaps := c.Snapshots()
	if len(snaps) != 1 || snaps[0].Address != pair {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}

	fresh := newTestChain(t, nil)
	if err := fresh.LoadSnapshot(snaps[0]); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := fresh.LoadSnapshot(snaps[0]); err == nil {
		t.Fatalf("expected duplicate load error")
	}
	if got := fresh.Balance(pair, uusd).Uint64(); got != 1_000_000 {
		t.Fatalf("pool bank balance not restored: %d", got)
	}
	offer := asset.New(uusd, n(10_000))
	var a, b pool.SimulationResponse
	if err := c.QueryPool(pair, func(p *pool.Pool) (err error) {
		a, err = p.Simulation(startTime, offer)
		return err
	}); err != nil {
		t.Fatalf("query first chain: %v", err)
	}
	if err := fresh.QueryPool(pair, func(p *pool.Pool) (err error) {
		b, err = p.Simulation(startTime, offer)
		return err
	}); err != nil {
		t.Fatalf("query reloaded: %v", err)
	}
	if a.ReturnAmount.Cmp(b.ReturnAmount) != 0 {
		t.Fatalf("quotes differ: %s vs %s", a.ReturnAmount, b.ReturnAmount)
	}
}
