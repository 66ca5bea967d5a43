package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/models"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/service"
)

func setupCycles(t *testing.T) (*service.Service, *repository.MemoryRepository, string, string) {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewMemoryRepository()
	svc := service.NewService(repo, nil, nil, logging.New(slog.LevelError, "json"))

	contract, err := svc.CreateContract(ctx, &models.CreateContractRequest{
		InvestorID:     "INV-001",
		ProductCode:    "FIXED30",
		ServicerFeeBps: 100,
		Rules:          []models.WaterfallRule{{Rank: 1, Bucket: models.BucketPrincipal}},
	})
	require.NoError(t, err)

	past, err := svc.CreateCycle(ctx, &models.CreateCycleRequest{
		ContractID:  contract.ID,
		PeriodStart: time.Now().UTC().Add(-48 * time.Hour),
		PeriodEnd:   time.Now().UTC().Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	current, err := svc.CreateCycle(ctx, &models.CreateCycleRequest{
		ContractID:  contract.ID,
		PeriodStart: time.Now().UTC().Add(-24 * time.Hour),
		PeriodEnd:   time.Now().UTC().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	return svc, repo, past.ID, current.ID
}

func TestSweepLocksOnlyPastCutoff(t *testing.T) {
	svc, repo, pastID, currentID := setupCycles(t)
	ctx := context.Background()

	s := NewScheduler(svc, repo, Config{CheckInterval: time.Hour})
	s.Sweep(ctx)

	past, err := svc.GetCycle(ctx, pastID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, past.Status)

	current, err := svc.GetCycle(ctx, currentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, current.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	svc, repo, pastID, _ := setupCycles(t)
	ctx := context.Background()

	s := NewScheduler(svc, repo, Config{CheckInterval: time.Hour})
	s.Sweep(ctx)
	s.Sweep(ctx)

	past, err := svc.GetCycle(ctx, pastID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, past.Status)
}

func TestStartStop(t *testing.T) {
	svc, repo, _, _ := setupCycles(t)

	s := NewScheduler(svc, repo, Config{CheckInterval: 10 * time.Millisecond})
	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.Stop())
	assert.Error(t, s.Stop())
}
