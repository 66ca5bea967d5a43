// Package messaging defines standard subject names for the ClearLedger
// message bus.
package messaging

// Subject constants for the payment domain. Payment lifecycle subjects
// follow the pattern payments.{channel}.{phase} so consumers can key off
// the payment source (ach, wire, check, card, lockbox).
const (
	// SubjectPaymentsAll matches every payment lifecycle message.
	SubjectPaymentsAll = "payments.>"

	// Journal subjects - integrity events published by services for the
	// journal to chain.
	SubjectJournalEvents = "journal.events"
	SubjectJournalAudit  = "journal.audit"

	// Remittance lifecycle subjects - published by the remit service.
	SubjectRemitCycleLocked    = "remit.cycles.locked"
	SubjectRemitCycleExported  = "remit.cycles.exported"
	SubjectRemitCycleRemitted  = "remit.cycles.remitted"

	// Reconciliation outcome subjects - published by the recon service.
	SubjectReconBalanced   = "recon.snapshots.balanced"
	SubjectReconUnbalanced = "recon.snapshots.unbalanced"
)

// Payment lifecycle phases carried in the subject's last token.
const (
	PhaseInitiated = "initiated"
	PhaseValidated = "validated"
	PhaseProcessed = "processed"
)

// Queue group names for load-balanced consumers. Workers in the same queue
// group share messages (each message processed once).
const (
	QueueIngestWorkers  = "ingest-workers"  // Pool of payment pipeline workers
	QueueJournalWorkers = "journal-workers" // Pool of chain appenders
	QueueReconWorkers   = "recon-workers"   // Pool of reconciliation runners
)

// PaymentSubject returns the subject for a payment channel and phase.
// Example: payments.ach.initiated
func PaymentSubject(channel, phase string) string {
	return "payments." + channel + "." + phase
}

// PaymentChannelSubject returns the wildcard subject matching all phases of
// one channel. Example: payments.wire.>
func PaymentChannelSubject(channel string) string {
	return "payments." + channel + ".>"
}

// PaymentPhaseSubject returns the wildcard subject matching one phase across
// all channels. Example: payments.*.initiated
func PaymentPhaseSubject(phase string) string {
	return "payments.*." + phase
}
