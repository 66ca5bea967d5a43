package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clearledger-systems/clearledger-stack/recon/internal/models"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	snapshots []*models.ReconciliationSnapshot
	entries   []*models.LedgerEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) CreateSnapshot(_ context.Context, s *models.ReconciliationSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *s
	r.snapshots = append(r.snapshots, &copied)
	return nil
}

func (r *MemoryRepository) ListSnapshots(_ context.Context, cycleID string) ([]*models.ReconciliationSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.ReconciliationSnapshot
	for _, s := range r.snapshots {
		if s.CycleID == cycleID {
			copied := *s
			result = append(result, &copied)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *MemoryRepository) LatestSnapshot(ctx context.Context, cycleID string) (*models.ReconciliationSnapshot, error) {
	snapshots, err := r.ListSnapshots(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, ErrSnapshotNotFound
	}
	return snapshots[0], nil
}

func (r *MemoryRepository) LedgerBalance(_ context.Context, accountCode string, from, to time.Time, cycleID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var balance int64
	for _, e := range r.entries {
		if e.AccountCode != accountCode || e.CycleID != cycleID {
			continue
		}
		if e.EffectiveDate.Before(from) || !e.EffectiveDate.Before(to) {
			continue
		}
		if e.EntryType == models.EntryCredit {
			balance += e.AmountMinor
		} else {
			balance -= e.AmountMinor
		}
	}

	return balance, nil
}

// SeedLedgerEntry adds an entry to the in-memory ledger. Test helper only;
// the ledger is read-only in production.
func (r *MemoryRepository) SeedLedgerEntry(e *models.LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *e
	r.entries = append(r.entries, &copied)
}

func (r *MemoryRepository) Close() error {
	return nil
}
