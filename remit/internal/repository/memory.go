package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clearledger-systems/clearledger-stack/remit/internal/models"
)

// MemoryRepository implements Repository in memory for tests and local runs
type MemoryRepository struct {
	mu          sync.RWMutex
	contracts   map[string]*models.InvestorContract
	cycles      map[string]*models.RemittanceCycle
	collections map[string][]*models.Collection
	items       map[string][]*models.RemittanceItem
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		contracts:   make(map[string]*models.InvestorContract),
		cycles:      make(map[string]*models.RemittanceCycle),
		collections: make(map[string][]*models.Collection),
		items:       make(map[string][]*models.RemittanceItem),
	}
}

func (r *MemoryRepository) CreateContract(_ context.Context, c *models.InvestorContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.contracts[c.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetContract(_ context.Context, id string) (*models.InvestorContract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, ErrContractNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) ListContracts(_ context.Context, limit, offset int) ([]*models.InvestorContract, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.InvestorContract, 0, len(r.contracts))
	for _, c := range r.contracts {
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *MemoryRepository) CreateCycle(_ context.Context, c *models.RemittanceCycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cycles[c.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetCycle(_ context.Context, id string) (*models.RemittanceCycle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cycles[id]
	if !ok {
		return nil, ErrCycleNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) ListCycles(_ context.Context, contractID string, limit, offset int) ([]*models.RemittanceCycle, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*models.RemittanceCycle
	for _, c := range r.cycles {
		if contractID != "" && c.ContractID != contractID {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *MemoryRepository) TransitionCycle(_ context.Context, id, expected, next string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cycles[id]
	if !ok {
		return ErrCycleNotFound
	}
	if c.Status != expected {
		return ErrInvalidTransition
	}
	c.Status = next
	switch next {
	case models.StatusLocked:
		c.LockedAt = &at
	case models.StatusRemitted:
		c.RemittedAt = &at
	}
	return nil
}

func (r *MemoryRepository) ListOpenCyclesPastCutoff(_ context.Context, cutoff time.Time) ([]*models.RemittanceCycle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.RemittanceCycle
	for _, c := range r.cycles {
		if c.Status == models.StatusOpen && c.PeriodEnd.Before(cutoff) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) UpdateCycleTotals(_ context.Context, id string, totals CycleTotals) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cycles[id]
	if !ok {
		return ErrCycleNotFound
	}
	c.TotalPrincipalMinor = totals.PrincipalMinor
	c.TotalInterestMinor = totals.InterestMinor
	c.TotalFeesMinor = totals.FeesMinor
	c.SuspenseMinor = totals.SuspenseMinor
	c.ServicerFeeMinor = totals.ServicerFeeMinor
	c.InvestorDueMinor = totals.InvestorDueMinor
	return nil
}

func (r *MemoryRepository) AddCollection(_ context.Context, c *models.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.collections[c.CycleID] = append(r.collections[c.CycleID], &cp)
	return nil
}

func (r *MemoryRepository) ListCollections(_ context.Context, cycleID string) ([]*models.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.collections[cycleID]
	out := make([]*models.Collection, 0, len(src))
	for _, c := range src {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) ReplaceItems(_ context.Context, cycleID string, items []*models.RemittanceItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.RemittanceItem, 0, len(items))
	for _, item := range items {
		cp := *item
		out = append(out, &cp)
	}
	r.items[cycleID] = out
	return nil
}

func (r *MemoryRepository) ListItems(_ context.Context, cycleID string) ([]*models.RemittanceItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.items[cycleID]
	out := make([]*models.RemittanceItem, 0, len(src))
	for _, item := range src {
		cp := *item
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
