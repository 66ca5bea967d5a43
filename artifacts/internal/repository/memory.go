package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/models"
)

// MemoryRepository implements Repository in memory for tests and local runs
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*models.PaymentArtifact
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*models.PaymentArtifact)}
}

func (r *MemoryRepository) Create(_ context.Context, a *models.PaymentArtifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[cp.ID] = &cp
	return nil
}

func (r *MemoryRepository) CreateBatch(ctx context.Context, artifacts []*models.PaymentArtifact) error {
	for _, a := range artifacts {
		if err := r.Create(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.PaymentArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) GetByIngestion(_ context.Context, ingestionID string) ([]*models.PaymentArtifact, error) {
	return r.filter(func(a *models.PaymentArtifact) bool {
		return a.IngestionID == ingestionID
	}), nil
}

func (r *MemoryRepository) GetByIngestionAndType(_ context.Context, ingestionID, artifactType string) ([]*models.PaymentArtifact, error) {
	return r.filter(func(a *models.PaymentArtifact) bool {
		return a.IngestionID == ingestionID && a.Type == artifactType
	}), nil
}

func (r *MemoryRepository) filter(match func(*models.PaymentArtifact) bool) []*models.PaymentArtifact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.PaymentArtifact
	for _, a := range r.byID {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryRepository) DeleteByIngestion(_ context.Context, ingestionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, a := range r.byID {
		if a.IngestionID == ingestionID {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
