package logging

import "log/slog"

// Common field names for consistent logging across services.
const (
	FieldService        = "service"
	FieldLoanID         = "loan_id"
	FieldCycleID        = "cycle_id"
	FieldIngestionID    = "ingestion_id"
	FieldCorrelationID  = "correlation_id"
	FieldIdempotencyKey = "idempotency_key"
	FieldChannel        = "channel"
	FieldAmountMinor    = "amount_minor"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatus         = "status"
	FieldDuration       = "duration_ms"
	FieldError          = "error"
	FieldScope          = "scope"
	FieldActor          = "actor"
	FieldArtifactID     = "artifact_id"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// LoanID returns a slog attribute for the loan identifier.
func LoanID(id string) slog.Attr {
	return slog.String(FieldLoanID, id)
}

// CycleID returns a slog attribute for the remittance cycle identifier.
func CycleID(id string) slog.Attr {
	return slog.String(FieldCycleID, id)
}

// IngestionID returns a slog attribute for the payment ingestion identifier.
func IngestionID(id string) slog.Attr {
	return slog.String(FieldIngestionID, id)
}

// CorrelationID returns a slog attribute for the event correlation identifier.
func CorrelationID(id string) slog.Attr {
	return slog.String(FieldCorrelationID, id)
}

// IdempotencyKey returns a slog attribute for a payment idempotency key.
func IdempotencyKey(key string) slog.Attr {
	return slog.String(FieldIdempotencyKey, key)
}

// Channel returns a slog attribute for the payment channel (ach, wire, ...).
func Channel(channel string) slog.Attr {
	return slog.String(FieldChannel, channel)
}

// AmountMinor returns a slog attribute for an amount in integer minor units.
func AmountMinor(amount int64) slog.Attr {
	return slog.Int64(FieldAmountMinor, amount)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Scope returns a slog attribute for a hash-chain scope.
func Scope(scope string) slog.Attr {
	return slog.String(FieldScope, scope)
}

// Actor returns a slog attribute for an event actor.
func Actor(actor string) slog.Attr {
	return slog.String(FieldActor, actor)
}

// ArtifactID returns a slog attribute for a payment artifact identifier.
func ArtifactID(id string) slog.Attr {
	return slog.String(FieldArtifactID, id)
}
