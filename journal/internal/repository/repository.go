package repository

import (
	"context"
	"errors"

	"github.com/clearledger-systems/clearledger-stack/journal/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// Repository defines the interface for journal persistence. Appends assign
// the next per-scope sequence number; callers serialize appends per scope
// with a chain lock so tail reads stay consistent.
type Repository interface {
	// Payment event chains (scoped per correlation id)
	AppendEvent(ctx context.Context, event *models.PaymentEvent) error
	EventTail(ctx context.Context, correlationID string) (*string, error)
	ListEvents(ctx context.Context, correlationID string) ([]*models.PaymentEvent, error)
	ListCorrelations(ctx context.Context, limit, offset int) ([]string, int, error)

	// Compliance audit chain (single system-wide scope)
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	AuditTail(ctx context.Context) (*string, error)
	ListAudit(ctx context.Context, limit, offset int) ([]*models.AuditEntry, int, error)
	ListAuditAll(ctx context.Context) ([]*models.AuditEntry, error)

	// Utility
	Close() error
}
