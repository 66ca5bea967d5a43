package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/models"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/service"
)

// SystemReviewer marks snapshots generated by the broker-triggered run.
const SystemReviewer = "system"

// Generator is the slice of the service the consumer needs.
type Generator interface {
	Generate(ctx context.Context, req *models.GenerateRequest) (*models.ReconciliationSnapshot, error)
}

// Consumer runs a reconciliation whenever a remittance cycle locks. A
// variance is an answer, not a failure: the snapshot is persisted, so the
// message is not redelivered.
type Consumer struct {
	subscriber messaging.Subscriber
	svc        Generator
	subs       []messaging.Subscription
}

// NewConsumer creates a new broker consumer.
func NewConsumer(subscriber messaging.Subscriber, svc Generator) *Consumer {
	return &Consumer{subscriber: subscriber, svc: svc}
}

// Start subscribes the recon-workers queue group to cycle lock events.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.subscriber.QueueSubscribe(messaging.SubjectRemitCycleLocked, messaging.QueueReconWorkers, c.HandleCycleLocked)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", messaging.SubjectRemitCycleLocked, err)
	}
	c.subs = append(c.subs, sub)
	log.Printf("Recon consumer subscribed to %s", messaging.SubjectRemitCycleLocked)

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

// HandleCycleLocked reconciles the locked cycle. Malformed messages are
// dropped; transient failures return an error for redelivery.
func (c *Consumer) HandleCycleLocked(ctx context.Context, msg *messaging.Message) error {
	var event struct {
		CycleID string `json:"cycle_id"`
	}
	if err := json.Unmarshal(msg.Data, &event); err != nil || event.CycleID == "" {
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "malformed").Inc()
		return nil
	}

	_, err := c.svc.Generate(ctx, &models.GenerateRequest{
		CycleID:  event.CycleID,
		Reviewer: SystemReviewer,
	})

	var varErr *service.VarianceError
	switch {
	case err == nil:
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "balanced").Inc()
	case errors.As(err, &varErr):
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "unbalanced").Inc()
	default:
		metrics.ConsumedEvents.WithLabelValues(msg.Subject, "failed").Inc()
		return fmt.Errorf("failed to reconcile cycle %s: %w", event.CycleID, err)
	}

	return nil
}
