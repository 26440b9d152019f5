package metrics

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTx(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveTx("swap", "ok", time.Millisecond)
	m.ObserveTx("swap", "ok", time.Millisecond)
	m.ObserveTx("swap", "max_spread_assertion", time.Millisecond)

	if got := testutil.ToFloat64(m.txTotal.WithLabelValues("swap", "ok")); got != 2 {
		t.Fatalf("expected 2 ok swaps, got %v", got)
	}
	if got := testutil.ToFloat64(m.txTotal.WithLabelValues("swap", "max_spread_assertion")); got != 1 {
		t.Fatalf("expected 1 failed swap, got %v", got)
	}
}

func TestCommissionAndPending(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.AddCommission("pool", "uluna", uint256.NewInt(499_997))
	m.AddCommission("pool", "uluna", uint256.NewInt(3))
	if got := testutil.ToFloat64(m.commission.WithLabelValues("pool", "uluna")); got != 500_000 {
		t.Fatalf("unexpected commission %v", got)
	}
	m.SetPendingReplies(3)
	if got := testutil.ToFloat64(m.pendingReplies); got != 3 {
		t.Fatalf("unexpected pending gauge %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveTx("swap", "ok", 0)
	nilMetrics.AddCommission("pool", "uluna", uint256.NewInt(1))
}
