package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/dlq"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/idempotency"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/service"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/validator"
)

// Config tunes the pipeline's retry behavior.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns pipeline defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Ingester is the slice of the service the pipeline needs.
type Ingester interface {
	Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error)
}

// Pipeline consumes payment envelopes from the broker and admits them.
// Delivery is at-least-once; admission stays exactly-once because the
// service collapses replays onto the idempotency key.
type Pipeline struct {
	subscriber messaging.Subscriber
	svc        Ingester
	queue      dlq.Queue
	cfg        Config
	subs       []messaging.Subscription
}

// NewPipeline creates a new pipeline consumer.
func NewPipeline(subscriber messaging.Subscriber, svc Ingester, queue dlq.Queue, cfg Config) *Pipeline {
	if queue == nil {
		queue = dlq.NopQueue{}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	return &Pipeline{
		subscriber: subscriber,
		svc:        svc,
		queue:      queue,
		cfg:        cfg,
	}
}

// Start subscribes the worker queue group to inbound payment envelopes.
func (p *Pipeline) Start(ctx context.Context) error {
	subject := messaging.PaymentPhaseSubject(messaging.PhaseInitiated)
	sub, err := p.subscriber.QueueSubscribe(subject, messaging.QueueIngestWorkers, p.HandleEnvelope)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	p.subs = append(p.subs, sub)

	log.Printf("Pipeline started, subscribed to %s", subject)
	return nil
}

// Stop unsubscribes from all subjects.
func (p *Pipeline) Stop() error {
	for _, sub := range p.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("Warning: failed to unsubscribe from %s: %v", sub.Subject(), err)
		}
	}
	p.subs = nil
	log.Println("Pipeline stopped")
	return nil
}

// HandleEnvelope processes one inbound payment envelope. Terminal failures
// (malformed envelopes, payload conflicts) go straight to the DLQ; transient
// failures are retried with backoff before being parked.
func (p *Pipeline) HandleEnvelope(ctx context.Context, msg *messaging.Message) error {
	var env models.PaymentEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Printf("Failed to unmarshal payment envelope on %s: %v", msg.Subject, err)
		return p.queue.Write(ctx, nil, err, "malformed_envelope", 1)
	}

	data, err := validator.ValidateEnvelope(&env)
	if err != nil {
		metrics.ValidationErrors.WithLabelValues(env.Schema).Inc()
		log.Printf("Envelope %s failed validation: %v", env.MessageID, err)
		return p.queue.Write(ctx, &env, err, "validation_failed", 1)
	}

	req := &models.IngestRequest{
		Channel:            data.Method,
		SourceReference:    data.Reference,
		RawPayload:         env.Data,
		NormalizedEnvelope: msg.Data,
		Method:             data.Method,
		ValueDate:          data.ValueDate,
		AmountMinor:        data.AmountMinor,
		LoanID:             data.LoanID,
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		resp, err := p.svc.Ingest(ctx, req)
		if err == nil {
			status := "admitted"
			if resp.Duplicate {
				status = "duplicate"
				metrics.DuplicatesTotal.WithLabelValues(req.Channel).Inc()
			} else {
				metrics.AmountMinorTotal.WithLabelValues(req.Channel).Add(float64(req.AmountMinor))
			}
			metrics.PaymentsTotal.WithLabelValues(req.Channel, status).Inc()
			return nil
		}

		if isTerminal(err) {
			metrics.PaymentsTotal.WithLabelValues(req.Channel, "rejected").Inc()
			var conflict *service.ConflictError
			if errors.As(err, &conflict) {
				metrics.ConflictsTotal.Inc()
				return p.queue.Write(ctx, &env, err, "key_conflict", attempt)
			}
			return p.queue.Write(ctx, &env, err, "invalid_payment", attempt)
		}

		lastErr = err
		if attempt < p.cfg.MaxRetries {
			metrics.PipelineRetries.Inc()
			log.Printf("Envelope %s attempt %d failed, retrying: %v", env.MessageID, attempt, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.RetryDelay * time.Duration(attempt)):
			}
		}
	}

	metrics.PaymentsTotal.WithLabelValues(req.Channel, "failed").Inc()
	log.Printf("Envelope %s exhausted %d attempts: %v", env.MessageID, p.cfg.MaxRetries, lastErr)
	return p.queue.Write(ctx, &env, lastErr, "retries_exhausted", p.cfg.MaxRetries)
}

// isTerminal reports whether retrying cannot change the outcome.
func isTerminal(err error) bool {
	var verr *idempotency.ValidationError
	if errors.As(err, &verr) {
		return true
	}
	var conflict *service.ConflictError
	return errors.As(err, &conflict)
}
