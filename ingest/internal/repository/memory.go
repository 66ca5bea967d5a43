package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
)

// MemoryRepository implements Repository in memory for tests and local runs
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.PaymentIngestion
	byKey map[string]*models.PaymentIngestion
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]*models.PaymentIngestion),
		byKey: make(map[string]*models.PaymentIngestion),
	}
}

func (r *MemoryRepository) InsertOrGet(_ context.Context, ing *models.PaymentIngestion) (*models.PaymentIngestion, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[ing.IdempotencyKey]; ok {
		cp := *existing
		return &cp, false, nil
	}

	cp := *ing
	r.byID[cp.ID] = &cp
	r.byKey[cp.IdempotencyKey] = &cp
	out := cp
	return &out, true, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.PaymentIngestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ing, ok := r.byID[id]
	if !ok {
		return nil, ErrIngestionNotFound
	}
	cp := *ing
	return &cp, nil
}

func (r *MemoryRepository) GetByIdempotencyKey(_ context.Context, key string) (*models.PaymentIngestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ing, ok := r.byKey[key]
	if !ok {
		return nil, ErrIngestionNotFound
	}
	cp := *ing
	return &cp, nil
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]*models.PaymentIngestion, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.PaymentIngestion
	for _, ing := range r.byID {
		if filter.LoanID != "" && ing.LoanID != filter.LoanID {
			continue
		}
		if filter.Channel != "" && ing.Channel != filter.Channel {
			continue
		}
		if !filter.From.IsZero() && ing.ReceivedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !ing.ReceivedAt.Before(filter.To) {
			continue
		}
		cp := *ing
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if filter.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
