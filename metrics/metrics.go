package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// ===============================
// WORKBENCH
// ===============================
var (
	FnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txbench",
			Subsystem: "fn",
			Name:      "duration_ms",
			Help:      "Workbench operation duration",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 15),
		},
		[]string{"name"},
	)

	TxStagedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "txbench",
		Subsystem: "tx",
		Name:      "staged_total",
		Help:      "Transactions written to the staging store",
	})

	TxVerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txbench",
			Subsystem: "tx",
			Name:      "verify_total",
			Help:      "Verification outcomes",
		},
		[]string{"result"},
	)

	TxVerifyCycles = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "txbench",
		Subsystem: "tx",
		Name:      "verify_cycles",
		Help:      "Execution cycles reported by the remote verifier",
		Buckets:   prometheus.ExponentialBuckets(1000, 4, 12),
	})

	WitnessesSigned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "txbench",
		Subsystem: "crypto",
		Name:      "witnesses_signed_total",
		Help:      "Input witnesses produced from stored keys",
	})
)

// ===============================
// STORE / RPC
// ===============================
var (
	StoreOpenDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "txbench",
		Subsystem: "store",
		Name:      "open_duration_ms",
		Help:      "Time spent opening the badger store",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 15),
	})

	RPCDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txbench",
			Subsystem: "rpc",
			Name:      "duration_ms",
			Help:      "Remote verifier round-trip latency",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 15),
		},
		[]string{"method"},
	)

	LiveCellCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txbench",
			Subsystem: "redis",
			Name:      "live_cell_lookups_total",
			Help:      "Live cell cache lookups",
		},
		[]string{"result"},
	)
)

// Registry holds every collector above. A dedicated registry keeps the
// push payload free of process collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		FnDuration,
		TxStagedTotal,
		TxVerifyTotal,
		TxVerifyCycles,
		WitnessesSigned,

		StoreOpenDuration,
		RPCDuration,
		LiveCellCacheTotal,
	)
}

// Push sends the registry to a Prometheus Pushgateway. Short-lived CLI
// invocations never live long enough to be scraped.
func Push(url, job string) error {
	return push.New(url, job).Gatherer(Registry).Push()
}

// ===============================
// HELPER
// ===============================
func ObserveDuration(h prometheus.Observer, start time.Time) {
	h.Observe(float64(time.Since(start).Microseconds()) / 1000)
}
