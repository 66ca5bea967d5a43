package dlq

import (
	"context"
	"time"

	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
)

// FailedPayment is a payment envelope that exhausted its processing retries,
// parked for operator replay.
type FailedPayment struct {
	Timestamp   time.Time               `json:"timestamp"`
	Envelope    *models.PaymentEnvelope `json:"envelope"`
	Error       string                  `json:"error"`
	Reason      string                  `json:"reason"`
	Attempts    int                     `json:"attempts"`
	LastAttempt time.Time               `json:"last_attempt"`
}

// Queue parks payments that could not be admitted.
type Queue interface {
	Write(ctx context.Context, envelope *models.PaymentEnvelope, err error, reason string, attempts int) error
	Stats(ctx context.Context) map[string]interface{}
	List(ctx context.Context, limit int) ([]FailedPayment, error)
}

// NopQueue discards failed payments. Used when the DLQ is disabled.
type NopQueue struct{}

func (NopQueue) Write(context.Context, *models.PaymentEnvelope, error, string, int) error {
	return nil
}

func (NopQueue) Stats(context.Context) map[string]interface{} {
	return map[string]interface{}{"enabled": false}
}

func (NopQueue) List(context.Context, int) ([]FailedPayment, error) {
	return nil, nil
}
