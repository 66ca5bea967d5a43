package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment admission metrics
	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearledger_ingest_payments_total",
			Help: "Total number of payment submissions received",
		},
		[]string{"channel", "status"},
	)

	DuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearledger_ingest_duplicates_total",
			Help: "Total number of deduplicated payment replays",
		},
		[]string{"channel"},
	)

	ConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearledger_ingest_key_conflicts_total",
			Help: "Total number of idempotency key replays with differing payloads",
		},
	)

	AmountMinorTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearledger_ingest_amount_minor_total",
			Help: "Total admitted payment amount in minor units",
		},
		[]string{"channel"},
	)

	// Admission latency
	AdmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clearledger_ingest_admission_duration_seconds",
			Help:    "Duration of payment admission in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Envelope validation metrics
	ValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearledger_ingest_validation_errors_total",
			Help: "Total number of envelope validation failures",
		},
		[]string{"schema"},
	)

	// Pipeline metrics
	PipelineRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearledger_ingest_pipeline_retries_total",
			Help: "Total number of pipeline processing retries",
		},
	)

	DLQWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearledger_ingest_dlq_writes_total",
			Help: "Total number of payments written to the dead letter queue",
		},
		[]string{"reason"},
	)
)
