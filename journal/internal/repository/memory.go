package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/clearledger-systems/clearledger-stack/journal/internal/models"
)

// MemoryRepository implements Repository in memory for tests and local runs
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[string][]*models.PaymentEvent
	audit  []*models.AuditEntry
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[string][]*models.PaymentEvent)}
}

func (r *MemoryRepository) AppendEvent(_ context.Context, e *models.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain := r.events[e.CorrelationID]
	e.SequenceNum = int64(len(chain)) + 1
	cp := *e
	r.events[e.CorrelationID] = append(chain, &cp)
	return nil
}

func (r *MemoryRepository) EventTail(_ context.Context, correlationID string) (*string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := r.events[correlationID]
	if len(chain) == 0 {
		return nil, nil
	}
	hash := chain[len(chain)-1].Hash
	return &hash, nil
}

func (r *MemoryRepository) ListEvents(_ context.Context, correlationID string) ([]*models.PaymentEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := r.events[correlationID]
	out := make([]*models.PaymentEvent, 0, len(chain))
	for _, e := range chain {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) ListCorrelations(_ context.Context, limit, offset int) ([]string, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.events))
	for id := range r.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := len(ids)
	if limit <= 0 {
		limit = 50
	}
	if offset >= len(ids) {
		return nil, total, nil
	}
	ids = ids[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, total, nil
}

func (r *MemoryRepository) AppendAudit(_ context.Context, entry *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.SequenceNum = int64(len(r.audit)) + 1
	cp := *entry
	r.audit = append(r.audit, &cp)
	return nil
}

func (r *MemoryRepository) AuditTail(_ context.Context) (*string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.audit) == 0 {
		return nil, nil
	}
	hash := r.audit[len(r.audit)-1].Hash
	return &hash, nil
}

func (r *MemoryRepository) ListAudit(_ context.Context, limit, offset int) ([]*models.AuditEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.audit)
	if limit <= 0 {
		limit = 50
	}
	if offset >= total {
		return nil, total, nil
	}
	slice := r.audit[offset:]
	if len(slice) > limit {
		slice = slice[:limit]
	}

	out := make([]*models.AuditEntry, 0, len(slice))
	for _, e := range slice {
		cp := *e
		out = append(out, &cp)
	}
	return out, total, nil
}

func (r *MemoryRepository) ListAuditAll(_ context.Context) ([]*models.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.AuditEntry, 0, len(r.audit))
	for _, e := range r.audit {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// Corrupt rewrites the stored hash of one event, for tamper tests.
func (r *MemoryRepository) Corrupt(correlationID string, index int, hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[correlationID][index].Hash = hash
}

// CorruptAudit rewrites the stored hash of one audit entry, for tamper tests.
func (r *MemoryRepository) CorruptAudit(index int, hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit[index].Hash = hash
}

func (r *MemoryRepository) Close() error {
	return nil
}
