package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/models"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/remitclient"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/repository"
)

// Remit cycle statuses eligible for reconciliation. Open cycles still mutate,
// so both sides could move under the comparison.
var lockedOrLater = map[string]bool{
	"locked":         true,
	"file_generated": true,
	"remitted":       true,
}

// ValidationError indicates a request that failed boundary checks.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// VarianceError reports an unbalanced reconciliation. The snapshot is already
// persisted when this error surfaces.
type VarianceError struct {
	Snapshot *models.ReconciliationSnapshot
}

func (e *VarianceError) Error() string {
	return fmt.Sprintf("reconciliation variance for cycle %s: investor diff %d, servicer diff %d",
		e.Snapshot.CycleID, e.Snapshot.DiffInvestorMinor, e.Snapshot.DiffServicerMinor)
}

// Service runs cycle reconciliations against the external ledger.
type Service struct {
	repo      repository.Repository
	remit     remitclient.CycleReader
	publisher messaging.Publisher
	threshold int64
	logger    *logging.Logger
}

// NewService creates a reconciliation service. threshold is the per-account
// variance tolerance in minor units; zero means exact balance required.
// publisher may be nil when no broker is configured.
func NewService(repo repository.Repository, remit remitclient.CycleReader, publisher messaging.Publisher, threshold int64, logger *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		remit:     remit,
		publisher: publisher,
		threshold: threshold,
		logger:    logger,
	}
}

// Generate computes both sides of a cycle reconciliation independently and
// persists the result as a new snapshot. The snapshot is stored whether or
// not it balances; an unbalanced one additionally returns a *VarianceError
// so callers can react without losing the record.
func (s *Service) Generate(ctx context.Context, req *models.GenerateRequest) (*models.ReconciliationSnapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	start := time.Now()

	cycle, err := s.remit.GetCycle(ctx, req.CycleID)
	if err != nil {
		if errors.Is(err, remitclient.ErrCycleNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch cycle: %w", err)
	}

	if !lockedOrLater[cycle.Status] {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("cycle %s has status %s; reconciliation requires a locked cycle", cycle.ID, cycle.Status),
		}
	}

	items, err := s.remit.ListItems(ctx, req.CycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remittance items: %w", err)
	}

	var remitInvestor, remitServicer int64
	for _, item := range items {
		remitInvestor += item.InvestorShareMinor
		remitServicer += item.ServicerFeeMinor
	}

	ledgerInvestor, err := s.repo.LedgerBalance(ctx, models.AccountInvestorPayable, cycle.PeriodStart, cycle.PeriodEnd, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read investor ledger balance: %w", err)
	}

	ledgerServicer, err := s.repo.LedgerBalance(ctx, models.AccountServicerFeeIncome, cycle.PeriodStart, cycle.PeriodEnd, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read servicer ledger balance: %w", err)
	}

	diffInvestor := ledgerInvestor - remitInvestor
	diffServicer := ledgerServicer - remitServicer

	snapshot := &models.ReconciliationSnapshot{
		ID:                     uuid.Must(uuid.NewV7()).String(),
		CycleID:                cycle.ID,
		RemitInvestorMinor:     remitInvestor,
		RemitServicerMinor:     remitServicer,
		LedgerInvestorMinor:    ledgerInvestor,
		LedgerServicerMinor:    ledgerServicer,
		DiffInvestorMinor:      diffInvestor,
		DiffServicerMinor:      diffServicer,
		DiffTotalMinor:         diffInvestor + diffServicer,
		IsBalanced:             abs(diffInvestor) <= s.threshold && abs(diffServicer) <= s.threshold,
		VarianceThresholdMinor: s.threshold,
		Reviewer:               req.Reviewer,
		CreatedAt:              time.Now().UTC(),
	}

	if err := s.repo.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	metrics.GenerateDuration.Observe(time.Since(start).Seconds())
	metrics.SnapshotsGenerated.WithLabelValues(strconv.FormatBool(snapshot.IsBalanced)).Inc()

	if !snapshot.IsBalanced {
		metrics.VarianceDetected.Inc()
		s.logger.WithContext(ctx).Error("reconciliation variance detected",
			logging.CycleID(cycle.ID),
			slog.Int64("diff_investor_minor", diffInvestor),
			slog.Int64("diff_servicer_minor", diffServicer),
			slog.String("snapshot_id", snapshot.ID),
		)
		s.publishOutcome(ctx, messaging.SubjectReconUnbalanced, snapshot)
		return snapshot, &VarianceError{Snapshot: snapshot}
	}

	s.logger.WithContext(ctx).Info("reconciliation balanced",
		logging.CycleID(cycle.ID),
		slog.String("snapshot_id", snapshot.ID),
		slog.Int64("investor_minor", remitInvestor),
		slog.Int64("servicer_minor", remitServicer),
	)
	s.publishOutcome(ctx, messaging.SubjectReconBalanced, snapshot)

	return snapshot, nil
}

// ListSnapshots returns all snapshots for a cycle, most recent first.
func (s *Service) ListSnapshots(ctx context.Context, cycleID string) ([]*models.ReconciliationSnapshot, error) {
	return s.repo.ListSnapshots(ctx, cycleID)
}

// LatestSnapshot returns the authoritative snapshot for a cycle.
func (s *Service) LatestSnapshot(ctx context.Context, cycleID string) (*models.ReconciliationSnapshot, error) {
	return s.repo.LatestSnapshot(ctx, cycleID)
}

func (s *Service) publishOutcome(ctx context.Context, subject string, snapshot *models.ReconciliationSnapshot) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.logger.WithContext(ctx).Error("failed to publish reconciliation outcome",
			logging.CycleID(snapshot.CycleID),
			"subject", subject,
			logging.Error(err))
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
