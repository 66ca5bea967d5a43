package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArtifactsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearledger_artifacts_stored_total",
			Help: "Total number of artifacts stored",
		},
		[]string{"type", "hash_source"},
	)

	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearledger_artifacts_verifications_total",
			Help: "Total number of hash verifications by outcome",
		},
		[]string{"outcome"},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clearledger_artifacts_fetch_duration_seconds",
			Help:    "Duration of locator fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CascadeDeletes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearledger_artifacts_cascade_deletes_total",
			Help: "Total number of artifacts removed by ingestion cascade",
		},
	)
)
