package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/models"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/remitclient"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/repository"
)

type mockRemit struct {
	cycle *remitclient.Cycle
	items []remitclient.Item
	err   error
}

func (m *mockRemit) GetCycle(_ context.Context, cycleID string) (*remitclient.Cycle, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.cycle == nil || m.cycle.ID != cycleID {
		return nil, remitclient.ErrCycleNotFound
	}
	return m.cycle, nil
}

func (m *mockRemit) ListItems(_ context.Context, _ string) ([]remitclient.Item, error) {
	return m.items, nil
}

type mockPublisher struct {
	subjects []string
}

func (m *mockPublisher) Publish(_ context.Context, subject string, _ []byte) error {
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockPublisher) PublishMsg(_ context.Context, msg *messaging.Message) error {
	return m.Publish(context.Background(), msg.Subject, msg.Data)
}

func (m *mockPublisher) Request(context.Context, string, []byte, time.Duration) (*messaging.Message, error) {
	return nil, nil
}

func (m *mockPublisher) Close() error { return nil }

func testCycle(status string) *remitclient.Cycle {
	return &remitclient.Cycle{
		ID:          "cycle-1",
		ContractID:  "contract-1",
		PeriodStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Status:      status,
	}
}

func seedEntry(repo *repository.MemoryRepository, account, entryType string, amount int64) {
	repo.SeedLedgerEntry(&models.LedgerEntry{
		ID:            uuid.Must(uuid.NewV7()).String(),
		AccountCode:   account,
		EntryType:     entryType,
		AmountMinor:   amount,
		EffectiveDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		CycleID:       "cycle-1",
	})
}

func setupService(t *testing.T, threshold int64) (*Service, *repository.MemoryRepository, *mockRemit, *mockPublisher) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	remit := &mockRemit{
		cycle: testCycle("locked"),
		items: []remitclient.Item{
			{LoanID: "LN-1", InvestorShareMinor: 103950, ServicerFeeMinor: 1050},
			{LoanID: "LN-2", InvestorShareMinor: 59400, ServicerFeeMinor: 600},
		},
	}
	publisher := &mockPublisher{}
	logger := logging.New(slog.LevelError, "json")

	return NewService(repo, remit, publisher, threshold, logger), repo, remit, publisher
}

func TestGenerateBalanced(t *testing.T) {
	svc, repo, _, publisher := setupService(t, 0)
	seedEntry(repo, models.AccountInvestorPayable, models.EntryCredit, 163350)
	seedEntry(repo, models.AccountServicerFeeIncome, models.EntryCredit, 1650)

	snap, err := svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "cycle-1", Reviewer: "ops@example.com"})
	require.NoError(t, err)

	assert.True(t, snap.IsBalanced)
	assert.Equal(t, int64(163350), snap.RemitInvestorMinor)
	assert.Equal(t, int64(1650), snap.RemitServicerMinor)
	assert.Equal(t, int64(163350), snap.LedgerInvestorMinor)
	assert.Equal(t, int64(0), snap.DiffInvestorMinor)
	assert.Equal(t, int64(0), snap.DiffTotalMinor)
	assert.Equal(t, "ops@example.com", snap.Reviewer)

	assert.Equal(t, []string{messaging.SubjectReconBalanced}, publisher.subjects)

	latest, err := svc.LatestSnapshot(context.Background(), "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)
}

func TestGenerateOneMinorUnitVariance(t *testing.T) {
	svc, repo, _, publisher := setupService(t, 0)
	seedEntry(repo, models.AccountInvestorPayable, models.EntryCredit, 163351)
	seedEntry(repo, models.AccountServicerFeeIncome, models.EntryCredit, 1650)

	snap, err := svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "cycle-1", Reviewer: "ops@example.com"})

	var varErr *VarianceError
	require.ErrorAs(t, err, &varErr)
	require.NotNil(t, snap)

	assert.False(t, snap.IsBalanced)
	assert.Equal(t, int64(1), snap.DiffInvestorMinor)
	assert.Equal(t, int64(0), snap.DiffServicerMinor)
	assert.Equal(t, int64(1), snap.DiffTotalMinor)
	assert.Equal(t, snap.ID, varErr.Snapshot.ID)

	// The unbalanced snapshot is persisted before the error surfaces.
	latest, lerr := svc.LatestSnapshot(context.Background(), "cycle-1")
	require.NoError(t, lerr)
	assert.Equal(t, snap.ID, latest.ID)
	assert.False(t, latest.IsBalanced)

	assert.Equal(t, []string{messaging.SubjectReconUnbalanced}, publisher.subjects)
}

func TestGenerateDebitsReduceBalance(t *testing.T) {
	svc, repo, _, _ := setupService(t, 0)
	seedEntry(repo, models.AccountInvestorPayable, models.EntryCredit, 165000)
	seedEntry(repo, models.AccountInvestorPayable, models.EntryDebit, 1650)
	seedEntry(repo, models.AccountServicerFeeIncome, models.EntryCredit, 1650)

	snap, err := svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "cycle-1", Reviewer: "ops"})
	require.NoError(t, err)
	assert.Equal(t, int64(163350), snap.LedgerInvestorMinor)
	assert.True(t, snap.IsBalanced)
}

func TestGenerateThresholdTolerance(t *testing.T) {
	svc, repo, _, _ := setupService(t, 5)
	seedEntry(repo, models.AccountInvestorPayable, models.EntryCredit, 163353)
	seedEntry(repo, models.AccountServicerFeeIncome, models.EntryCredit, 1650)

	snap, err := svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "cycle-1", Reviewer: "ops"})
	require.NoError(t, err)
	assert.True(t, snap.IsBalanced)
	assert.Equal(t, int64(3), snap.DiffInvestorMinor)
	assert.Equal(t, int64(5), snap.VarianceThresholdMinor)
}

func TestGenerateRequiresLockedCycle(t *testing.T) {
	svc, _, remit, _ := setupService(t, 0)
	remit.cycle = testCycle("open")

	_, err := svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "cycle-1", Reviewer: "ops"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Reason, "requires a locked cycle")
}

func TestGenerateCycleNotFound(t *testing.T) {
	svc, _, _, _ := setupService(t, 0)

	_, err := svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "missing", Reviewer: "ops"})
	assert.True(t, errors.Is(err, remitclient.ErrCycleNotFound))
}

func TestGenerateValidation(t *testing.T) {
	svc, _, _, _ := setupService(t, 0)

	var valErr *ValidationError
	_, err := svc.Generate(context.Background(), &models.GenerateRequest{Reviewer: "ops"})
	require.ErrorAs(t, err, &valErr)

	_, err = svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "cycle-1"})
	require.ErrorAs(t, err, &valErr)
}

func TestRerunMostRecentAuthoritative(t *testing.T) {
	svc, repo, _, _ := setupService(t, 0)
	seedEntry(repo, models.AccountInvestorPayable, models.EntryCredit, 163349)
	seedEntry(repo, models.AccountServicerFeeIncome, models.EntryCredit, 1650)

	_, err := svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "cycle-1", Reviewer: "ops"})
	var varErr *VarianceError
	require.ErrorAs(t, err, &varErr)

	// Ledger correction lands, rerun supersedes the unbalanced snapshot.
	time.Sleep(2 * time.Millisecond)
	seedEntry(repo, models.AccountInvestorPayable, models.EntryCredit, 1)

	second, err := svc.Generate(context.Background(), &models.GenerateRequest{CycleID: "cycle-1", Reviewer: "ops"})
	require.NoError(t, err)
	assert.True(t, second.IsBalanced)

	latest, err := svc.LatestSnapshot(context.Background(), "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	history, err := svc.ListSnapshots(context.Background(), "cycle-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[1].IsBalanced)
}
