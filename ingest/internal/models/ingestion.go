package models

import (
	"encoding/json"
	"time"
)

// PaymentIngestion is the canonical record of one inbound payment attempt.
// It is created on first receipt and immutable thereafter; duplicate
// submissions collapse onto it via the idempotency key.
type PaymentIngestion struct {
	ID                 string          `json:"id"`
	Channel            string          `json:"channel"`
	SourceReference    string          `json:"source_reference"`
	RawPayload         json.RawMessage `json:"raw_payload"`
	NormalizedEnvelope json.RawMessage `json:"normalized_envelope"`
	IdempotencyKey     string          `json:"idempotency_key"`
	PayloadHash        string          `json:"payload_hash"`
	Method             string          `json:"method"`
	ValueDate          time.Time       `json:"value_date"`
	AmountMinor        int64           `json:"amount_minor"`
	LoanID             string          `json:"loan_id"`
	ReceivedAt         time.Time       `json:"received_at"`
}

// IngestRequest is the payload accepted by POST /api/v1/payments and by the
// message pipeline after envelope validation.
type IngestRequest struct {
	Channel            string          `json:"channel"`
	SourceReference    string          `json:"source_reference"`
	RawPayload         json.RawMessage `json:"raw_payload"`
	NormalizedEnvelope json.RawMessage `json:"normalized_envelope"`
	Method             string          `json:"method"`
	ValueDate          string          `json:"value_date"` // YYYY-MM-DD
	AmountMinor        int64           `json:"amount_minor"`
	LoanID             string          `json:"loan_id"`
}

// IngestResponse acknowledges an accepted (or deduplicated) payment.
type IngestResponse struct {
	Ingestion        *PaymentIngestion `json:"ingestion"`
	Duplicate        bool              `json:"duplicate"`
	ReceiptSignature string            `json:"receipt_signature,omitempty"`
}
