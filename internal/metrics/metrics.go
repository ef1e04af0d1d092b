// Package metrics defines the Prometheus collectors for the engine and the
// ops HTTP server that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets are tuned for a WebSocket-to-cache hot path: sub-millisecond
// in the common case, tens of milliseconds under reconnect storms.
var adapterLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 50, 100}

// Execution buckets are in microseconds; paper fills land in the low hundreds,
// live fills in the hundreds of thousands.
var executionLatencyBuckets = []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000, 250000, 500000, 1e6}

// ── Adapter ──

var AdapterEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "adapter_events_total",
		Help: "Normalized events emitted by venue adapters",
	},
	[]string{"venue", "event_type"},
)

var AdapterEventLatencyMs = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "adapter_event_latency_ms",
		Help:    "Frame receipt to cache merge latency in milliseconds",
		Buckets: adapterLatencyBuckets,
	},
	[]string{"venue", "event_type"},
)

var AdapterReconnectsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "adapter_reconnects_total",
		Help: "Stream reconnect attempts per venue",
	},
	[]string{"venue"},
)

// ── Pipeline drops ──

var RouterOverflowTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "router_overflow_total",
		Help: "Events dropped because a worker lane stayed full past the bounded wait",
	},
	[]string{"venue"},
)

var WorkerNotificationDropsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worker_notification_drops_total",
		Help: "Strategy notifications dropped on a full channel; cache writes are never dropped",
	},
	[]string{"venue"},
)

var StrategySignalDropsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "strategy_signal_drops_total",
		Help: "Signals or notifications dropped in the strategy layer",
	},
	[]string{"strategy"},
)

// ── Strategy ──

var StrategySignalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "strategy_signals_total",
		Help: "Trade signals emitted per strategy and venue",
	},
	[]string{"strategy", "venue"},
)

var StrategySignalEdge = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "strategy_signal_edge",
		Help:    "Edge of emitted signals in price units",
		Buckets: []float64{0.005, 0.01, 0.02, 0.03, 0.05, 0.08, 0.12, 0.2},
	},
	[]string{"strategy"},
)

// ── Execution ──

var ExecutionFillsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "execution_fills_total",
		Help: "Filled legs per strategy and executor",
	},
	[]string{"strategy", "executor"},
)

var ExecutionRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "execution_rejections_total",
		Help: "Rejected legs per strategy and executor",
	},
	[]string{"strategy", "executor"},
)

var ExecutionSignalToFillUs = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "execution_signal_to_fill_us",
		Help:    "Intent creation to fill completion in microseconds",
		Buckets: executionLatencyBuckets,
	},
	[]string{"strategy"},
)

var ExecutionE2ELatencyUs = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "execution_e2e_latency_us",
		Help:    "Wire frame receipt to fill completion in microseconds",
		Buckets: executionLatencyBuckets,
	},
	[]string{"strategy"},
)
