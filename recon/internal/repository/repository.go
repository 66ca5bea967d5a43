package repository

import (
	"context"
	"errors"
	"time"

	"github.com/clearledger-systems/clearledger-stack/recon/internal/models"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a cycle
var ErrSnapshotNotFound = errors.New("reconciliation snapshot not found")

// Repository stores snapshots and reads the external ledger.
type Repository interface {
	// CreateSnapshot persists one immutable snapshot.
	CreateSnapshot(ctx context.Context, s *models.ReconciliationSnapshot) error
	// ListSnapshots returns a cycle's snapshots, most recent first.
	ListSnapshots(ctx context.Context, cycleID string) ([]*models.ReconciliationSnapshot, error)
	// LatestSnapshot returns the authoritative snapshot for a cycle.
	LatestSnapshot(ctx context.Context, cycleID string) (*models.ReconciliationSnapshot, error)

	// LedgerBalance computes SUM(credit) - SUM(debit) for one account,
	// restricted to a period and a cycle tag. A point-in-time read; it
	// never blocks ledger writes.
	LedgerBalance(ctx context.Context, accountCode string, from, to time.Time, cycleID string) (int64, error)

	Close() error
}
