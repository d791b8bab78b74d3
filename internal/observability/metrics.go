package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger engine.
// Every consumer takes a *Metrics and nil-checks it, so tests and
// library callers can opt out of instrumentation entirely.
type Metrics struct {
	// --- Record processing ---
	RecordsApplied  *prometheus.CounterVec
	RecordsRejected *prometheus.CounterVec
	ProcessDuration *prometheus.HistogramVec

	// --- Accounts ---
	ActiveAccounts prometheus.Gauge
	LockedAccounts prometheus.Counter

	// --- Transaction store ---
	CacheSpills    prometheus.Counter
	CacheLineLoads prometheus.Counter
	CacheResident  prometheus.Gauge
}

// NewMetrics registers the engine metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	durationBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.025, 0.1,
	}

	factory := promauto.With(reg)

	return &Metrics{
		RecordsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "txledger_records_applied_total",
			Help: "Records successfully applied to a ledger",
		}, []string{"kind"}),

		RecordsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "txledger_records_rejected_total",
			Help: "Records rejected (duplicate, insufficient funds, locked, ...)",
		}, []string{"kind", "reason"}),

		ProcessDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "txledger_record_apply_duration_seconds",
			Help:    "Time to apply a single record",
			Buckets: durationBuckets,
		}, []string{"kind"}),

		ActiveAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_accounts_active",
			Help: "Accounts known to the registry",
		}),

		LockedAccounts: factory.NewCounter(prometheus.CounterOpts{
			Name: "txledger_accounts_locked_total",
			Help: "Accounts frozen by a chargeback",
		}),

		CacheSpills: factory.NewCounter(prometheus.CounterOpts{
			Name: "txledger_cache_spills_total",
			Help: "Full store flushes to disk",
		}),

		CacheLineLoads: factory.NewCounter(prometheus.CounterOpts{
			Name: "txledger_cache_line_loads_total",
			Help: "Partition files read back from disk",
		}),

		CacheResident: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_cache_resident_records",
			Help: "Transaction records currently held in memory across all stores",
		}),
	}
}
