package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/models"
)

// Appender is the slice of the service the consumer needs.
type Appender interface {
	Append(ctx context.Context, req *models.AppendEventRequest) (*models.PaymentEvent, error)
	AppendAudit(ctx context.Context, req *models.AppendAuditRequest) (*models.AuditEntry, error)
}

// Consumer journals payment lifecycle messages and audit events from the
// broker. Appends are idempotent only at the chain level, not per message,
// so the queue group keeps each message on a single worker.
type Consumer struct {
	subscriber messaging.Subscriber
	svc        Appender
	subs       []messaging.Subscription
}

// NewConsumer creates a new broker consumer.
func NewConsumer(subscriber messaging.Subscriber, svc Appender) *Consumer {
	return &Consumer{subscriber: subscriber, svc: svc}
}

// Start subscribes the journal-workers queue group to processed payments
// and to the audit subject.
func (c *Consumer) Start(ctx context.Context) error {
	subjects := map[string]messaging.MessageHandler{
		messaging.PaymentPhaseSubject(messaging.PhaseProcessed): c.HandlePayment,
		messaging.SubjectJournalAudit:                           c.HandleAudit,
	}

	for subject, handler := range subjects {
		sub, err := c.subscriber.QueueSubscribe(subject, messaging.QueueJournalWorkers, handler)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
		log.Printf("Journal consumer subscribed to %s", subject)
	}

	return nil
}

// Stop unsubscribes from all subjects.
func (c *Consumer) Stop() error {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("Warning: failed to unsubscribe from %s: %v", sub.Subject(), err)
		}
	}
	c.subs = nil
	return nil
}

// acceptedPayment is the subset of the ingest service's accepted event the
// journal needs to key the chain.
type acceptedPayment struct {
	IngestionID string          `json:"ingestion_id"`
	Envelope    json.RawMessage `json:"envelope"`
}

// HandlePayment appends one payment lifecycle message to its correlation
// chain. The chain is keyed on the envelope's correlation id; the ingestion
// id serves when no envelope traveled with the event.
func (c *Consumer) HandlePayment(ctx context.Context, msg *messaging.Message) error {
	var accepted acceptedPayment
	if err := json.Unmarshal(msg.Data, &accepted); err != nil {
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "malformed").Inc()
		log.Printf("Failed to unmarshal payment message on %s: %v", msg.Subject, err)
		return nil
	}

	correlationID := correlationFromEnvelope(accepted.Envelope)
	if correlationID == "" {
		correlationID = accepted.IngestionID
	}
	if correlationID == "" {
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "malformed").Inc()
		log.Printf("Payment message on %s carries no correlation id", msg.Subject)
		return nil
	}

	_, err := c.svc.Append(ctx, &models.AppendEventRequest{
		CorrelationID: correlationID,
		EventType:     eventTypeFromSubject(msg.Subject),
		Data:          msg.Data,
		ActorType:     models.ActorSystem,
		ActorID:       "ingest",
	})
	if err != nil {
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "failed").Inc()
		return fmt.Errorf("failed to journal payment message: %w", err)
	}

	metrics.ConsumedEvents.WithLabelValues(msg.Subject, "appended").Inc()
	return nil
}

// HandleAudit appends one audit event from another service to the audit
// chain. The event's kind becomes the audit action.
func (c *Consumer) HandleAudit(ctx context.Context, msg *messaging.Message) error {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(msg.Data, &probe); err != nil {
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "malformed").Inc()
		log.Printf("Failed to unmarshal audit message on %s: %v", msg.Subject, err)
		return nil
	}

	action := probe.Kind
	if action == "" {
		action = "audit.event"
	}

	_, err := c.svc.AppendAudit(ctx, &models.AppendAuditRequest{
		Action:    action,
		Data:      msg.Data,
		ActorType: models.ActorSystem,
		ActorID:   "broker",
	})
	if err != nil {
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "failed").Inc()
		return fmt.Errorf("failed to journal audit message: %w", err)
	}

	metrics.ConsumedEvents.WithLabelValues(msg.Subject, "appended").Inc()
	return nil
}

// eventTypeFromSubject maps payments.<channel>.<phase> to payment.<phase>.
func eventTypeFromSubject(subject string) string {
	parts := strings.Split(subject, ".")
	if len(parts) == 3 && parts[0] == "payments" {
		return "payment." + parts[2]
	}
	return subject
}

func correlationFromEnvelope(envelope json.RawMessage) string {
	if len(envelope) == 0 {
		return ""
	}
	var probe struct {
		CorrelationID string `json:"correlation_id"`
	}
	if err := json.Unmarshal(envelope, &probe); err != nil {
		return ""
	}
	return probe.CorrelationID
}
