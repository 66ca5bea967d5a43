package client

import (
	"encoding/json"
	"net/http"
	"time"
)

type IngestClient struct {
	baseURL string
	client  *http.Client
}

func NewIngestClient(baseURL string) *IngestClient {
	return &IngestClient{baseURL: baseURL, client: newHTTPClient()}
}

// IngestRequest is the payment admission payload.
type IngestRequest struct {
	Channel            string          `json:"channel"`
	SourceReference    string          `json:"source_reference"`
	RawPayload         json.RawMessage `json:"raw_payload"`
	NormalizedEnvelope json.RawMessage `json:"normalized_envelope"`
	Method             string          `json:"method"`
	ValueDate          string          `json:"value_date"`
	AmountMinor        int64           `json:"amount_minor"`
	LoanID             string          `json:"loan_id"`
}

// PaymentIngestion is the admitted payment record.
type PaymentIngestion struct {
	ID              string    `json:"id"`
	Channel         string    `json:"channel"`
	SourceReference string    `json:"source_reference"`
	IdempotencyKey  string    `json:"idempotency_key"`
	PayloadHash     string    `json:"payload_hash"`
	Method          string    `json:"method"`
	ValueDate       time.Time `json:"value_date"`
	AmountMinor     int64     `json:"amount_minor"`
	LoanID          string    `json:"loan_id"`
	ReceivedAt      time.Time `json:"received_at"`
}

// IngestResponse reports admission outcome; Duplicate means the original
// record was returned.
type IngestResponse struct {
	Ingestion        *PaymentIngestion `json:"ingestion"`
	Duplicate        bool              `json:"duplicate"`
	ReceiptSignature string            `json:"receipt_signature,omitempty"`
}

func (c *IngestClient) IngestPayment(req *IngestRequest) (*IngestResponse, error) {
	var resp IngestResponse
	if err := postJSON(c.client, c.baseURL+"/api/v1/payments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *IngestClient) GetPayment(id string) (*PaymentIngestion, error) {
	var ingestion PaymentIngestion
	if err := getJSON(c.client, c.baseURL+"/api/v1/payments/"+id, &ingestion); err != nil {
		return nil, err
	}
	return &ingestion, nil
}
