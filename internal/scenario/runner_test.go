package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"stablePool/internal/asset"
	"stablePool/internal/host"
	"stablePool/internal/model"
	"stablePool/internal/pool"
	"stablePool/internal/registry"
)

const startTime = uint64(1_700_000_000)

type memSink struct {
	batches [][]model.PoolEvent
}

func (m *memSink) PutEvents(_ context.Context, events []model.PoolEvent) error {
	m.batches = append(m.batches, events)
	return nil
}

func (m *memSink) events() []model.PoolEvent {
	var out []model.PoolEvent
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

type memSnapshots struct {
	snaps []model.PoolSnapshot
}

func (m *memSnapshots) LoadSnapshots(context.Context) ([]model.PoolSnapshot, error) {
	return m.snaps, nil
}

func (m *memSnapshots) SaveSnapshots(_ context.Context, snaps []model.PoolSnapshot) error {
	m.snaps = snaps
	return nil
}

type memState struct {
	st  model.RunnerState
	set bool
}

func (m *memState) Load(context.Context) (model.RunnerState, bool, error) {
	return m.st, m.set, nil
}

func (m *memState) Save(_ context.Context, st model.RunnerState) error {
	m.st, m.set = st, true
	return nil
}

func newChain(t *testing.T) *host.Chain {
	t.Helper()
	c, err := host.New(host.Config{
		Owner:      "owner",
		FeeAddress: "maker",
		PairConfigs: []registry.PairConfig{
			{PairType: registry.PairTypeStable, TotalFeeBps: 5, MakerFeeBps: 5000},
		},
		Start: pool.Env{Height: 1, Time: startTime},
	}, host.WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	return c
}

const lifecycleScript = `
# genesis
{"op":"fund","account":"alice","coins":[{"denom":"uusd","amount":"1000000000000"},{"denom":"uluna","amount":"1000000000000"}]}
{"op":"fund","account":"bob","coins":[{"denom":"uusd","amount":"1000000000"}]}
{"op":"create_pair","as":"p","sender":"owner","assets":["native:uusd","native:uluna"],"amp":100}
{"op":"provide","pool":"$p","sender":"alice","funds":[{"denom":"uusd","amount":"1000000000000"},{"denom":"uluna","amount":"1000000000000"}],"deposit":[{"info":"native:uusd","amount":"1000000000000"},{"info":"native:uluna","amount":"1000000000000"}]}
{"op":"advance","seconds":600,"blocks":100}
{"op":"swap","pool":"$p","sender":"bob","funds":[{"denom":"uusd","amount":"1000000000"}],"offer":{"info":"native:uusd","amount":"1000000000"}}
{"op":"swap","pool":"$p","sender":"bob","offer":{"info":"native:uusd","amount":"5"},"expect_error":"invalid_input"}
{"op":"update_config","pool":"$p","sender":"bob","stop_changing_amp":true,"expect_error":"unauthorized"}
{"op":"withdraw","pool":"$p","sender":"alice","amount":"1000000000"}
`

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newChain(t)
	sink := &memSink{}
	snaps := &memSnapshots{}
	state := &memState{}
	var errs bytes.Buffer
	r := NewRunner(Config{BatchSize: 3, Sink: sink, Snapshots: snaps, State: state, Errors: &errs}, c, zaptest.NewLogger(t))

	sum, err := r.Run(ctx, strings.NewReader(lifecycleScript))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Total != 9 || sum.Applied != 7 || sum.Expected != 2 || sum.Failed != 0 {
		t.Fatalf("unexpected summary %+v, errors: %s", sum, errs.String())
	}
	if errs.Len() != 0 {
		t.Fatalf("unexpected script errors: %s", errs.String())
	}

	if got := c.Balance("bob", asset.Native("uluna")).Uint64(); got != 999_495_028 {
		t.Fatalf("unexpected bob uluna %d", got)
	}
	if got := c.Balance("maker", asset.Native("uluna")).Uint64(); got != 249_998 {
		t.Fatalf("unexpected maker fee %d", got)
	}

	addr, ok := r.Alias("p")
	if !ok {
		t.Fatalf("pair alias not recorded")
	}
	lp, _ := r.Alias("p.lp")
	if got := c.Balance("alice", asset.Token(lp)).Uint64(); got != 1_000_000_000_000-1_000-1_000_000_000 {
		t.Fatalf("unexpected alice shares %d", got)
	}

	// advance is not a transaction; the two expected failures are recorded.
	events := sink.events()
	if len(events) != 8 {
		t.Fatalf("expected 8 events, got %d", len(events))
	}
	if len(sink.batches) < 2 {
		t.Fatalf("expected batched flushes, got %d", len(sink.batches))
	}
	failed := 0
	for _, ev := range events {
		if !ev.Success {
			failed++
		}
	}
	if failed != 2 {
		t.Fatalf("expected 2 failed events, got %d", failed)
	}

	if len(snaps.snaps) != 1 || snaps.snaps[0].Address != addr || snaps.snaps[0].Balances[1] != "998001254720" {
		t.Fatalf("unexpected snapshots %+v", snaps.snaps)
	}
	if !state.set || state.st.Timestamp != startTime+600 || state.st.Height != 101 || state.st.Ops != 9 {
		t.Fatalf("unexpected state %+v", state.st)
	}
}

func TestRunReportsScriptErrors(t *testing.T) {
	c := newChain(t)
	var errs bytes.Buffer
	r := NewRunner(Config{Errors: &errs}, c, zaptest.NewLogger(t))

	script := strings.Join([]string{
		`not json`,
		`{"op":"teleport"}`,
		`{"op":"swap","pool":"$missing","sender":"bob","offer":{"info":"native:uusd","amount":"1"}}`,
		`{"op":"fund","account":"bob","coins":[{"denom":"uusd","amount":"10"}],"expect_error":"unauthorized"}`,
		`{"op":"fund","account":"bob","coins":[{"denom":"uusd","amount":"-1"}]}`,
	}, "\n")
	sum, err := r.Run(context.Background(), strings.NewReader(script))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Total != 5 || sum.Failed != 5 || sum.Applied != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	var got []model.ScriptError
	dec := json.NewDecoder(&errs)
	for dec.More() {
		var e model.ScriptError
		if err := dec.Decode(&e); err != nil {
			t.Fatalf("decode script error: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 script errors, got %d", len(got))
	}
	if got[0].Line != 1 || got[1].Op != "teleport" {
		t.Fatalf("unexpected errors %+v", got[:2])
	}
	if !strings.HasPrefix(got[3].Error, "expected unauthorized, got none") {
		t.Fatalf("unexpected mismatch message %q", got[3].Error)
	}
}

func TestRunTokenPairWithAliases(t *testing.T) {
	c := newChain(t)
	var errs bytes.Buffer
	r := NewRunner(Config{Errors: &errs}, c, zaptest.NewLogger(t))

	script := strings.Join([]string{
		`{"op":"create_token","as":"usdc","sender":"owner","name":"USD Coin","symbol":"USDC","decimals":6,"initial":{"alice":"2000000","bob":"1000"}}`,
		`{"op":"fund","account":"alice","coins":[{"denom":"uusd","amount":"2000000"}]}`,
		`{"op":"create_pair","as":"p","sender":"owner","assets":["native:uusd","token:$usdc"],"amp":100}`,
		`{"op":"increase_allowance","sender":"alice","token":"$usdc","spender":"$p","amount":"1000000"}`,
		`{"op":"provide","pool":"$p","sender":"alice","funds":[{"denom":"uusd","amount":"1000000"}],"deposit":[{"info":"native:uusd","amount":"1000000"},{"info":"token:$usdc","amount":"1000000"}]}`,
		`{"op":"transfer","sender":"bob","asset":{"info":"token:$usdc","amount":"400"},"to":"carol"}`,
	}, "\n")
	sum, err := r.Run(context.Background(), strings.NewReader(script))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Applied != 6 {
		t.Fatalf("unexpected summary %+v, errors: %s", sum, errs.String())
	}
	usdc, _ := r.Alias("usdc")
	p, _ := r.Alias("p")
	if got := c.Balance(p, asset.Token(usdc)).Uint64(); got != 1_000_000 {
		t.Fatalf("unexpected pool usdc %d", got)
	}
	if got := c.Balance("carol", asset.Token(usdc)).Uint64(); got != 400 {
		t.Fatalf("unexpected carol usdc %d", got)
	}
}

func TestRestoreResumesClockAndPools(t *testing.T) {
	ctx := context.Background()
	snaps := &memSnapshots{}
	state := &memState{}
	first := NewRunner(Config{Snapshots: snaps, State: state}, newChain(t), zaptest.NewLogger(t))
	if _, err := first.Run(ctx, strings.NewReader(lifecycleScript)); err != nil {
		t.Fatalf("first run: %v", err)
	}

	c := newChain(t)
	second := NewRunner(Config{Snapshots: snaps, State: state}, c, zaptest.NewLogger(t))
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if env := c.Env(); env.Time != startTime+600 || env.Height != 101 {
		t.Fatalf("clock not resumed: %+v", env)
	}
	got := c.Snapshots()
	if len(got) != 1 || got[0].Balances != snaps.snaps[0].Balances {
		t.Fatalf("pools not restored: %+v", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner(Config{}, newChain(t), zaptest.NewLogger(t))
	if _, err := r.Run(ctx, strings.NewReader(lifecycleScript)); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
