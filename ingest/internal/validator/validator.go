package validator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
)

// Schema identifiers for the closed set of payment envelope variants.
// Unknown schemas are rejected at the door rather than best-effort parsed.
const (
	SchemaACH     = "payment.ach.v1"
	SchemaWire    = "payment.wire.v1"
	SchemaCheck   = "payment.check.v1"
	SchemaCard    = "payment.card.v1"
	SchemaLockbox = "payment.lockbox.v1"
)

// schemaChannels maps each registered schema to the channel its data
// variant describes. The envelope's data.method must agree.
var schemaChannels = map[string]string{
	SchemaACH:     "ach",
	SchemaWire:    "wire",
	SchemaCheck:   "check",
	SchemaCard:    "card",
	SchemaLockbox: "lockbox",
}

// Error carries a field path so rejected envelopes can be diagnosed from
// the dead letter queue without replaying them.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("envelope validation failed on %s: %s", e.Field, e.Reason)
}

// KnownSchema reports whether schema is in the registry.
func KnownSchema(schema string) bool {
	_, ok := schemaChannels[schema]
	return ok
}

// ChannelFor returns the payment channel a registered schema describes.
func ChannelFor(schema string) (string, bool) {
	ch, ok := schemaChannels[schema]
	return ch, ok
}

// ValidateEnvelope checks a broker envelope against its declared schema and
// decodes the normalized payment data. It never mutates the raw payload.
func ValidateEnvelope(env *models.PaymentEnvelope) (*models.PaymentData, error) {
	if env == nil {
		return nil, &Error{Field: "envelope", Reason: "missing"}
	}

	channel, ok := schemaChannels[env.Schema]
	if !ok {
		return nil, &Error{Field: "schema", Reason: fmt.Sprintf("unknown schema %q", env.Schema)}
	}
	if env.MessageID == "" {
		return nil, &Error{Field: "message_id", Reason: "required"}
	}
	if env.CorrelationID == "" {
		return nil, &Error{Field: "correlation_id", Reason: "required"}
	}
	if env.Producer == "" {
		return nil, &Error{Field: "producer", Reason: "required"}
	}
	if env.OccurredAt.IsZero() {
		return nil, &Error{Field: "occurred_at", Reason: "required"}
	}
	if len(env.Data) == 0 {
		return nil, &Error{Field: "data", Reason: "required"}
	}

	// Channel-specific extensions ride in data untouched, so decoding is
	// deliberately not strict about unknown fields.
	var data models.PaymentData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &Error{Field: "data", Reason: err.Error()}
	}

	if data.Method != channel {
		return nil, &Error{Field: "data.method", Reason: fmt.Sprintf("method %q does not match schema channel %q", data.Method, channel)}
	}
	if data.Reference == "" {
		return nil, &Error{Field: "data.reference", Reason: "required"}
	}
	if _, err := time.Parse("2006-01-02", data.ValueDate); err != nil {
		return nil, &Error{Field: "data.value_date", Reason: "must be YYYY-MM-DD"}
	}
	if data.AmountMinor <= 0 {
		return nil, &Error{Field: "data.amount_minor", Reason: "must be positive"}
	}
	if data.LoanID == "" {
		return nil, &Error{Field: "data.loan_id", Reason: "required"}
	}

	for i, a := range data.Artifacts {
		if a.Type == "" {
			return nil, &Error{Field: fmt.Sprintf("data.artifacts[%d].type", i), Reason: "required"}
		}
		if a.LocatorURI == "" {
			return nil, &Error{Field: fmt.Sprintf("data.artifacts[%d].locator_uri", i), Reason: "required"}
		}
	}

	seen := make(map[string]bool, len(data.Obligations))
	for i, o := range data.Obligations {
		if o.Bucket == "" {
			return nil, &Error{Field: fmt.Sprintf("data.obligations[%d].bucket", i), Reason: "required"}
		}
		if seen[o.Bucket] {
			return nil, &Error{Field: fmt.Sprintf("data.obligations[%d].bucket", i), Reason: fmt.Sprintf("bucket %q declared twice", o.Bucket)}
		}
		seen[o.Bucket] = true
		if o.RequiredMinor < 0 {
			return nil, &Error{Field: fmt.Sprintf("data.obligations[%d].required_minor", i), Reason: "must not be negative"}
		}
	}

	return &data, nil
}
