package repository

import (
	"context"
	"errors"
	"time"

	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
)

var (
	ErrIngestionNotFound = errors.New("ingestion not found")
	ErrKeyConflict       = errors.New("idempotency key already bound to a different payload")
)

// ListFilter narrows ingestion listings. Zero values mean no constraint.
type ListFilter struct {
	LoanID  string
	Channel string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

// Repository defines the interface for payment ingestion persistence
type Repository interface {
	// InsertOrGet admits an ingestion exactly once. If the idempotency key
	// is unclaimed the record is inserted and created is true; otherwise
	// the previously admitted record is returned unchanged.
	InsertOrGet(ctx context.Context, ing *models.PaymentIngestion) (stored *models.PaymentIngestion, created bool, err error)

	GetByID(ctx context.Context, id string) (*models.PaymentIngestion, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIngestion, error)
	List(ctx context.Context, filter ListFilter) ([]*models.PaymentIngestion, int, error)

	// Utility
	Close() error
}
