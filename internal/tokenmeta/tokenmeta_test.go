package tokenmeta

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/go-faster/errors"

	"stablePool/internal/apperr"
)

const tokenAddr = "0x00000000000000000000000000000000000000aa"

// fakeCaller answers ERC20 calls from the parsed abi. failures makes the
// first n calls fail with a transport error.
type fakeCaller struct {
	t        *testing.T
	parsed   abi.ABI
	outputs  map[string][]interface{}
	failures int
	calls    int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	method, err := f.parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, errors.New("execution reverted")
	}
	out, ok := f.outputs[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return method.Outputs.Pack(out...)
}

func newFakeCaller(t *testing.T, outputs map[string][]interface{}) *fakeCaller {
	t.Helper()
	abis, err := loadABIs()
	if err != nil {
		t.Fatalf("load abi: %v", err)
	}
	return &fakeCaller{t: t, parsed: abis.standard, outputs: outputs}
}

func TestFetchCachesMetadata(t *testing.T) {
	caller := newFakeCaller(t, map[string][]interface{}{
		"decimals": {uint8(8)},
		"symbol":   {"BUSD"},
		"name":     {"Bridged USD"},
	})
	f := &Fetcher{Caller: caller, ChainID: 1}

	meta, err := f.Fetch(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Decimals != 8 || meta.Symbol != "BUSD" || meta.Name != "Bridged USD" || meta.ChainID != 1 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	calls := caller.calls
	if d, err := f.Decimals(context.Background(), tokenAddr); err != nil || d != 8 {
		t.Fatalf("decimals: %d %v", d, err)
	}
	if caller.calls != calls {
		t.Fatalf("cached lookup must not call the chain")
	}
}

func TestFetchRetriesTransportErrors(t *testing.T) {
	caller := newFakeCaller(t, map[string][]interface{}{"decimals": {uint8(6)}})
	caller.failures = 2
	f := &Fetcher{Caller: caller, MaxRetries: 2, RetryDelay: time.Millisecond}

	meta, err := f.Fetch(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Decimals != 6 || meta.Symbol != "" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	caller := newFakeCaller(t, map[string][]interface{}{"decimals": {uint8(6)}})
	caller.failures = 5
	f := &Fetcher{Caller: caller, MaxRetries: 1, RetryDelay: time.Millisecond}

	if _, err := f.Fetch(context.Background(), tokenAddr); err == nil {
		t.Fatalf("expected failure")
	}
	if caller.calls != 2 {
		t.Fatalf("expected two attempts, got %d", caller.calls)
	}
}

func TestFetchRejects(t *testing.T) {
	f := &Fetcher{Caller: newFakeCaller(t, map[string][]interface{}{"decimals": {uint8(24)}})}
	if _, err := f.Fetch(context.Background(), tokenAddr); !errors.Is(err, apperr.ErrInvalidDecimals) {
		t.Fatalf("expected decimals error, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), "0x00000000000000000000000000000000000000AA"); !errors.Is(err, apperr.ErrInvalidAsset) {
		t.Fatalf("expected lowercase address error, got %v", err)
	}
}

func TestRetryStopsOnPermanentAndCancel(t *testing.T) {
	calls := 0
	bad := errors.New("bad data")
	err := retry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return permanent{bad}
	})
	if !errors.Is(err, bad) || calls != 1 {
		t.Fatalf("permanent error must stop retries: %v after %d calls", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retry(ctx, 5, time.Hour, func(context.Context) error { return errors.New("down") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
