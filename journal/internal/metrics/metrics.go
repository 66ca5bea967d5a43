package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsAppended counts payment events appended by event type
	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_journal_events_appended_total",
		Help: "Total number of payment events appended to correlation chains",
	}, []string{"event_type"})

	// AuditAppended counts audit entries appended by action
	AuditAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_journal_audit_appended_total",
		Help: "Total number of entries appended to the audit chain",
	}, []string{"action"})

	// Discontinuities counts broken chain links found during verification
	Discontinuities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_journal_discontinuities_total",
		Help: "Total number of hash chain discontinuities detected",
	}, []string{"scope"})

	// RebuildMismatches counts rebuilds whose terminal hash disagreed with
	// the stored chain
	RebuildMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearledger_journal_rebuild_mismatches_total",
		Help: "Total number of chain rebuilds that disagreed with the stored terminal hash",
	})

	// VerifyDuration observes chain verification latency
	VerifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clearledger_journal_verify_duration_seconds",
		Help:    "Duration of hash chain verification walks",
		Buckets: prometheus.DefBuckets,
	})

	// ConsumedEvents counts broker messages consumed by outcome
	ConsumedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearledger_journal_consumed_total",
		Help: "Total number of broker messages consumed by the journal",
	}, []string{"subject", "status"})
)
