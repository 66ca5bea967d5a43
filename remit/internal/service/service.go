package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	"github.com/clearledger-systems/clearledger-stack/common/money"
	"github.com/clearledger-systems/clearledger-stack/common/waterfall"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/export"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/models"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/repository"
)

// ValidationError marks a request rejected at the boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// ReleaseBlockedError is returned when an export is requested for a cycle
// whose latest reconciliation snapshot is unbalanced.
type ReleaseBlockedError struct {
	CycleID string
	Reason  string
}

func (e *ReleaseBlockedError) Error() string {
	return fmt.Sprintf("export release blocked for cycle %s: %s", e.CycleID, e.Reason)
}

// ReleaseGate decides whether a cycle's remittance file may be released.
// The reconciliation service implements it; a nil gate allows everything.
type ReleaseGate interface {
	ExportAllowed(ctx context.Context, cycleID string) error
}

// Service handles business logic for investor contracts and remittance
// cycles
type Service struct {
	repo      repository.Repository
	gate      ReleaseGate
	publisher messaging.Publisher
	logger    *logging.Logger
}

// NewService creates a new service instance
func NewService(repo repository.Repository, gate ReleaseGate, publisher messaging.Publisher, logger *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		gate:      gate,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateContract registers an investor contract with its waterfall rules.
func (s *Service) CreateContract(ctx context.Context, req *models.CreateContractRequest) (*models.InvestorContract, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	id, _ := uuid.NewV7()
	contract := &models.InvestorContract{
		ID:               id.String(),
		InvestorID:       req.InvestorID,
		ProductCode:      req.ProductCode,
		RemittanceMethod: req.RemittanceMethod,
		RemittanceDay:    req.RemittanceDay,
		CutoffDay:        req.CutoffDay,
		ServicerFeeBps:   req.ServicerFeeBps,
		LateFeeSplitBps:  req.LateFeeSplitBps,
		Rules:            req.Rules,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.repo.CreateContract(ctx, contract); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("created investor contract",
		"contract_id", contract.ID,
		"investor_id", contract.InvestorID)

	return contract, nil
}

// GetContract returns one contract
func (s *Service) GetContract(ctx context.Context, id string) (*models.InvestorContract, error) {
	return s.repo.GetContract(ctx, id)
}

// ListContracts returns a page of contracts
func (s *Service) ListContracts(ctx context.Context, limit, offset int) ([]*models.InvestorContract, int, error) {
	return s.repo.ListContracts(ctx, limit, offset)
}

// CreateCycle opens a new remittance cycle for a contract.
func (s *Service) CreateCycle(ctx context.Context, req *models.CreateCycleRequest) (*models.RemittanceCycle, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	if _, err := s.repo.GetContract(ctx, req.ContractID); err != nil {
		return nil, err
	}

	id, _ := uuid.NewV7()
	cycle := &models.RemittanceCycle{
		ID:          id.String(),
		ContractID:  req.ContractID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Status:      models.StatusOpen,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateCycle(ctx, cycle); err != nil {
		return nil, err
	}

	metrics.CyclesCreated.Inc()
	return cycle, nil
}

// GetCycle returns one cycle
func (s *Service) GetCycle(ctx context.Context, id string) (*models.RemittanceCycle, error) {
	return s.repo.GetCycle(ctx, id)
}

// ListCycles returns a page of cycles, optionally filtered by contract
func (s *Service) ListCycles(ctx context.Context, contractID string, limit, offset int) ([]*models.RemittanceCycle, int, error) {
	return s.repo.ListCycles(ctx, contractID, limit, offset)
}

// ListItems returns a cycle's per-loan decomposition
func (s *Service) ListItems(ctx context.Context, cycleID string) ([]*models.RemittanceItem, error) {
	return s.repo.ListItems(ctx, cycleID)
}

// AddCollection records a loan-level amount against a cycle. Only open
// cycles accept collections.
func (s *Service) AddCollection(ctx context.Context, cycleID string, req *models.AddCollectionRequest) (*models.Collection, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.StatusOpen {
		return nil, repository.ErrInvalidTransition
	}

	id, _ := uuid.NewV7()
	collection := &models.Collection{
		ID:          id.String(),
		CycleID:     cycleID,
		LoanID:      req.LoanID,
		Bucket:      req.Bucket,
		AmountMinor: req.AmountMinor,
		ReceivedAt:  time.Now().UTC(),
	}

	if err := s.repo.AddCollection(ctx, collection); err != nil {
		return nil, err
	}

	metrics.CollectionsAdded.WithLabelValues(req.Bucket).Inc()
	return collection, nil
}

// LockCycle transitions open -> locked. A concurrent second lock loses the
// optimistic check and gets ErrInvalidTransition.
func (s *Service) LockCycle(ctx context.Context, cycleID string) (*models.RemittanceCycle, error) {
	now := time.Now().UTC()
	if err := s.repo.TransitionCycle(ctx, cycleID, models.StatusOpen, models.StatusLocked, now); err != nil {
		return nil, err
	}

	metrics.CycleTransitions.WithLabelValues(models.StatusLocked).Inc()
	s.publishLifecycle(ctx, messaging.SubjectRemitCycleLocked, cycleID)

	return s.repo.GetCycle(ctx, cycleID)
}

// MarkRemitted transitions file_generated -> remitted, closing the cycle.
func (s *Service) MarkRemitted(ctx context.Context, cycleID string) (*models.RemittanceCycle, error) {
	now := time.Now().UTC()
	if err := s.repo.TransitionCycle(ctx, cycleID, models.StatusFileGenerated, models.StatusRemitted, now); err != nil {
		return nil, err
	}

	metrics.CycleTransitions.WithLabelValues(models.StatusRemitted).Inc()
	s.publishLifecycle(ctx, messaging.SubjectRemitCycleRemitted, cycleID)

	return s.repo.GetCycle(ctx, cycleID)
}

// CalculateWaterfall aggregates a locked cycle's collections per loan,
// applies the contract's ordered capped rules, and persists per-loan items
// plus cycle totals. Re-running replaces the item set atomically.
func (s *Service) CalculateWaterfall(ctx context.Context, cycleID string) (*models.RemittanceCycle, error) {
	start := time.Now()

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.StatusLocked {
		return nil, repository.ErrInvalidTransition
	}

	contract, err := s.repo.GetContract(ctx, cycle.ContractID)
	if err != nil {
		return nil, err
	}

	collections, err := s.repo.ListCollections(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	items, totals, err := computeItems(cycleID, contract, collections)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceItems(ctx, cycleID, items); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCycleTotals(ctx, cycleID, totals); err != nil {
		return nil, err
	}

	metrics.WaterfallDuration.Observe(time.Since(start).Seconds())
	s.logger.WithContext(ctx).Info("calculated waterfall",
		"cycle_id", cycleID,
		"loans", len(items),
		"investor_due_minor", totals.InvestorDueMinor,
		"servicer_fee_minor", totals.ServicerFeeMinor)

	return s.repo.GetCycle(ctx, cycleID)
}

// Export renders the remittance file for a locked cycle and transitions it
// to file_generated. An unbalanced latest reconciliation snapshot blocks
// the release.
func (s *Service) Export(ctx context.Context, cycleID, format string) ([]byte, string, error) {
	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, "", err
	}
	if cycle.Status != models.StatusLocked {
		return nil, "", repository.ErrInvalidTransition
	}

	if s.gate != nil {
		if err := s.gate.ExportAllowed(ctx, cycleID); err != nil {
			metrics.ExportsBlocked.Inc()
			return nil, "", err
		}
	}

	items, err := s.repo.ListItems(ctx, cycleID)
	if err != nil {
		return nil, "", err
	}

	var out []byte
	var contentType string
	switch format {
	case "csv":
		out, err = export.CSV(items)
		contentType = "text/csv"
	case "xml":
		out, err = export.XML(cycle, items)
		contentType = "application/xml"
	default:
		return nil, "", &ValidationError{Reason: fmt.Sprintf("unknown export format %q", format)}
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to render export: %w", err)
	}

	if err := s.repo.TransitionCycle(ctx, cycleID, models.StatusLocked, models.StatusFileGenerated, time.Now().UTC()); err != nil {
		return nil, "", err
	}

	metrics.CycleTransitions.WithLabelValues(models.StatusFileGenerated).Inc()
	metrics.ExportsGenerated.WithLabelValues(format).Inc()
	s.publishLifecycle(ctx, messaging.SubjectRemitCycleExported, cycleID)

	return out, contentType, nil
}

func (s *Service) publishLifecycle(ctx context.Context, subject, cycleID string) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(map[string]string{"cycle_id": cycleID})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.logger.WithContext(ctx).Error("failed to publish cycle lifecycle event",
			"cycle_id", cycleID,
			"subject", subject,
			logging.Error(err))
	}
}

// computeItems runs the per-loan waterfall. All arithmetic is exact decimal
// on minor units; the sum of every loan's allocations plus suspense equals
// that loan's collected total.
func computeItems(cycleID string, contract *models.InvestorContract, collections []*models.Collection) ([]*models.RemittanceItem, repository.CycleTotals, error) {
	type loanSums struct {
		total   money.Minor
		buckets map[string]money.Minor
	}

	loans := make(map[string]*loanSums)
	for _, c := range collections {
		ls, ok := loans[c.LoanID]
		if !ok {
			ls = &loanSums{buckets: make(map[string]money.Minor)}
			loans[c.LoanID] = ls
		}
		ls.total += money.Minor(c.AmountMinor)
		ls.buckets[c.Bucket] += money.Minor(c.AmountMinor)
	}

	loanIDs := make([]string, 0, len(loans))
	for id := range loans {
		loanIDs = append(loanIDs, id)
	}
	sort.Strings(loanIDs)

	var items []*models.RemittanceItem
	var totals repository.CycleTotals
	for _, loanID := range loanIDs {
		ls := loans[loanID]

		buckets := make([]waterfall.Bucket, 0, len(contract.Rules))
		for _, rule := range contract.Rules {
			required := ls.buckets[rule.Bucket]
			if rule.CapMinor != nil && required > money.Minor(*rule.CapMinor) {
				required = money.Minor(*rule.CapMinor)
			}
			buckets = append(buckets, waterfall.Bucket{
				Name:     rule.Bucket,
				Rank:     rule.Rank,
				Required: required.Decimal(),
			})
		}

		result, err := waterfall.Allocate(ls.total.Decimal(), buckets)
		if err != nil {
			return nil, repository.CycleTotals{}, fmt.Errorf("waterfall for loan %s: %w", loanID, err)
		}

		servicerFee := money.BpsOf(ls.total, contract.ServicerFeeBps)
		investorShare := ls.total - servicerFee

		itemID, _ := uuid.NewV7()
		item := &models.RemittanceItem{
			ID:                 itemID.String(),
			CycleID:            cycleID,
			LoanID:             loanID,
			PrincipalMinor:     minorOf(result, models.BucketPrincipal),
			InterestMinor:      minorOf(result, models.BucketInterest),
			FeesMinor:          minorOf(result, models.BucketFees),
			SuspenseMinor:      result.Suspense.IntPart(),
			InvestorShareMinor: int64(investorShare),
			ServicerFeeMinor:   int64(servicerFee),
		}
		items = append(items, item)

		totals.PrincipalMinor += item.PrincipalMinor
		totals.InterestMinor += item.InterestMinor
		totals.FeesMinor += item.FeesMinor
		totals.SuspenseMinor += item.SuspenseMinor
		totals.ServicerFeeMinor += item.ServicerFeeMinor
		totals.InvestorDueMinor += item.InvestorShareMinor
	}

	return items, totals, nil
}

func minorOf(result waterfall.Result, bucket string) int64 {
	return result.Get(bucket).IntPart()
}
