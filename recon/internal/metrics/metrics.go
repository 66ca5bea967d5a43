package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsGenerated counts reconciliation runs by outcome
	SnapshotsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_recon_snapshots_generated_total",
		Help: "Total number of reconciliation snapshots generated",
	}, []string{"balanced"})

	// VarianceDetected counts runs that found a nonzero variance
	VarianceDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearledger_recon_variance_detected_total",
		Help: "Total number of reconciliation runs with variance above threshold",
	})

	// GenerateDuration tracks reconciliation computation time
	GenerateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clearledger_recon_generate_duration_seconds",
		Help:    "Time taken to generate a reconciliation snapshot",
		Buckets: prometheus.DefBuckets,
	})

	// ConsumedEvents counts broker messages handled by the consumer
	ConsumedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_recon_consumed_events_total",
		Help: "Total number of broker events consumed",
	}, []string{"subject", "status"})
)
