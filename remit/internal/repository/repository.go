package repository

import (
	"context"
	"errors"
	"time"

	"github.com/clearledger-systems/clearledger-stack/remit/internal/models"
)

var (
	// ErrContractNotFound is returned when a contract does not exist
	ErrContractNotFound = errors.New("contract not found")
	// ErrCycleNotFound is returned when a cycle does not exist
	ErrCycleNotFound = errors.New("cycle not found")
	// ErrInvalidTransition is returned when a status transition races or
	// the cycle is not in the expected state
	ErrInvalidTransition = errors.New("cycle is not in the expected status")
)

// CycleTotals carries the aggregate outcome of a waterfall run.
type CycleTotals struct {
	PrincipalMinor   int64
	InterestMinor    int64
	FeesMinor        int64
	SuspenseMinor    int64
	ServicerFeeMinor int64
	InvestorDueMinor int64
}

// Repository defines storage for contracts, cycles, collections, and items.
type Repository interface {
	// Contracts
	CreateContract(ctx context.Context, contract *models.InvestorContract) error
	GetContract(ctx context.Context, id string) (*models.InvestorContract, error)
	ListContracts(ctx context.Context, limit, offset int) ([]*models.InvestorContract, int, error)

	// Cycles
	CreateCycle(ctx context.Context, cycle *models.RemittanceCycle) error
	GetCycle(ctx context.Context, id string) (*models.RemittanceCycle, error)
	ListCycles(ctx context.Context, contractID string, limit, offset int) ([]*models.RemittanceCycle, int, error)
	// TransitionCycle moves a cycle from expected to next only if it is
	// still in expected, returning ErrInvalidTransition otherwise.
	TransitionCycle(ctx context.Context, id, expected, next string, at time.Time) error
	// ListOpenCyclesPastCutoff returns open cycles whose period ended
	// before the given time.
	ListOpenCyclesPastCutoff(ctx context.Context, cutoff time.Time) ([]*models.RemittanceCycle, error)
	UpdateCycleTotals(ctx context.Context, id string, totals CycleTotals) error

	// Collections
	AddCollection(ctx context.Context, c *models.Collection) error
	ListCollections(ctx context.Context, cycleID string) ([]*models.Collection, error)

	// Items
	ReplaceItems(ctx context.Context, cycleID string, items []*models.RemittanceItem) error
	ListItems(ctx context.Context, cycleID string) ([]*models.RemittanceItem, error)

	Close() error
}
