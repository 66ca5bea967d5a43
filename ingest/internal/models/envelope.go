package models

import (
	"encoding/json"
	"time"
)

// PaymentEnvelope is the broker message wrapper carried on payments.* subjects.
// Producers across all payment channels publish this shape; the schema field
// names the closed data variant carried in Data.
type PaymentEnvelope struct {
	Schema         string          `json:"schema"`
	MessageID      string          `json:"message_id"`
	CorrelationID  string          `json:"correlation_id"`
	CausationID    string          `json:"causation_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Producer       string          `json:"producer"`
	Version        string          `json:"version"`
	Data           json.RawMessage `json:"data"`
}

// PaymentData is the normalized payment variant common to all channel
// schemas. Channel-specific fields ride in the envelope's raw data and are
// preserved verbatim on the ingestion record.
type PaymentData struct {
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	ValueDate   string          `json:"value_date"`
	AmountMinor int64           `json:"amount_minor"`
	LoanID      string          `json:"loan_id"`
	Artifacts   []ArtifactInput `json:"artifacts,omitempty"`
	Obligations []Obligation    `json:"obligations,omitempty"`
}

// ArtifactInput describes a source document accompanying a payment
// (check image, wire receipt) to be recorded by the artifact store.
type ArtifactInput struct {
	Type       string            `json:"type"`
	LocatorURI string            `json:"locator_uri"`
	MIMEType   string            `json:"mime_type,omitempty"`
	SourceMeta map[string]string `json:"source_meta,omitempty"`
}

// Obligation is one bucket competing for the payment in the loan's waterfall.
type Obligation struct {
	Bucket        string `json:"bucket"`
	Rank          int    `json:"rank"`
	RequiredMinor int64  `json:"required_minor"`
}
