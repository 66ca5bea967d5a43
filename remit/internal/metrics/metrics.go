package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesCreated counts opened remittance cycles
	CyclesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearledger_remit_cycles_created_total",
		Help: "Total number of remittance cycles opened",
	})

	// CycleTransitions counts status transitions by target status
	CycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_remit_cycle_transitions_total",
		Help: "Total number of cycle status transitions",
	}, []string{"to_status"})

	// CollectionsAdded counts loan-level collections by bucket
	CollectionsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_remit_collections_total",
		Help: "Total number of loan collections recorded",
	}, []string{"bucket"})

	// WaterfallDuration observes full-cycle waterfall calculation latency
	WaterfallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clearledger_remit_waterfall_duration_seconds",
		Help:    "Duration of cycle waterfall calculations",
		Buckets: prometheus.DefBuckets,
	})

	// ExportsGenerated counts remittance exports by format
	ExportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_remit_exports_total",
		Help: "Total number of remittance files generated",
	}, []string{"format"})

	// ExportsBlocked counts exports refused by the reconciliation gate
	ExportsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearledger_remit_exports_blocked_total",
		Help: "Total number of exports blocked by an unbalanced reconciliation",
	})

	// CutoffLocks counts cycles locked by the cutoff scheduler
	CutoffLocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearledger_remit_cutoff_locks_total",
		Help: "Total number of cycles locked automatically at cutoff",
	})
)
