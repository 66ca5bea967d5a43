package repository

import (
	"context"
	"errors"

	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/models"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Repository defines the interface for artifact persistence
type Repository interface {
	Create(ctx context.Context, artifact *models.PaymentArtifact) error
	CreateBatch(ctx context.Context, artifacts []*models.PaymentArtifact) error
	GetByID(ctx context.Context, id string) (*models.PaymentArtifact, error)
	GetByIngestion(ctx context.Context, ingestionID string) ([]*models.PaymentArtifact, error)
	GetByIngestionAndType(ctx context.Context, ingestionID, artifactType string) ([]*models.PaymentArtifact, error)
	DeleteByIngestion(ctx context.Context, ingestionID string) (int64, error)

	// Utility
	Close() error
}
