package metrics

import (
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for host transactions.
type Metrics struct {
	txTotal        *prometheus.CounterVec
	txDuration     *prometheus.HistogramVec
	commission     *prometheus.CounterVec
	pendingReplies prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		txTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stablepool_transactions_total",
		}, []string{"op", "result"}),
		txDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stablepool_transaction_duration_seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"op"}),
		commission: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stablepool_swap_commission_total",
		}, []string{"pool", "asset"}),
		pendingReplies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stablepool_maker_pending_replies",
		}),
	}
}

// ObserveTx records one finished transaction. result is "ok" or an error kind.
func (m *Metrics) ObserveTx(op, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.txTotal.With(prometheus.Labels{"op": op, "result": result}).Inc()
	m.txDuration.With(prometheus.Labels{"op": op}).Observe(took.Seconds())
}

func (m *Metrics) AddCommission(pool, asset string, amount *uint256.Int) {
	if m == nil || amount == nil {
		return
	}
	v, _ := new(big.Float).SetInt(amount.ToBig()).Float64()
	m.commission.With(prometheus.Labels{"pool": pool, "asset": asset}).Add(v)
}

func (m *Metrics) SetPendingReplies(n int) {
	if m == nil {
		return
	}
	m.pendingReplies.Set(float64(n))
}
