package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger-systems/clearledger-stack/common/hashchain"
	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/chainlock"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/models"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/repository"
)

// ActionDiscontinuity is the audit action recorded when a chain walk finds
// a broken link. Writing it is mandatory; discontinuities are never
// silently swallowed.
const ActionDiscontinuity = "chain.discontinuity"

// ValidationError marks an append request rejected at the boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid append request: " + e.Reason
}

// Service handles business logic for the hash-chained journal
type Service struct {
	repo   repository.Repository
	locker chainlock.Locker
	logger *logging.Logger
}

// NewService creates a new service instance
func NewService(repo repository.Repository, locker chainlock.Locker, logger *logging.Logger) *Service {
	if locker == nil {
		locker = chainlock.NewLocalLocker()
	}
	return &Service{
		repo:   repo,
		locker: locker,
		logger: logger,
	}
}

// Append adds one event to its correlation chain: lock the scope, read the
// tail, compute the link hash, insert.
func (s *Service) Append(ctx context.Context, req *models.AppendEventRequest) (*models.PaymentEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	release, err := s.locker.Acquire(ctx, req.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock chain %s: %w", req.CorrelationID, err)
	}
	defer release()

	tail, err := s.repo.EventTail(ctx, req.CorrelationID)
	if err != nil {
		return nil, err
	}

	hash, err := hashchain.ComputeHash(tail, req.Data, req.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute link hash: %w", err)
	}

	id, _ := uuid.NewV7()
	event := &models.PaymentEvent{
		ID:            id.String(),
		CorrelationID: req.CorrelationID,
		EventType:     req.EventType,
		Data:          req.Data,
		ActorType:     req.ActorType,
		ActorID:       req.ActorID,
		Hash:          hash,
		PrevHash:      tail,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	metrics.EventsAppended.WithLabelValues(req.EventType).Inc()
	s.logger.WithContext(ctx).Info("appended payment event",
		logging.CorrelationID(req.CorrelationID),
		"event_type", req.EventType,
		"sequence_num", event.SequenceNum)

	return event, nil
}

// AppendAudit adds one entry to the system-wide compliance audit chain.
func (s *Service) AppendAudit(ctx context.Context, req *models.AppendAuditRequest) (*models.AuditEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	release, err := s.locker.Acquire(ctx, models.AuditScope)
	if err != nil {
		return nil, fmt.Errorf("failed to lock audit chain: %w", err)
	}
	defer release()

	tail, err := s.repo.AuditTail(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := hashchain.ComputeHash(tail, req.Data, models.AuditScope)
	if err != nil {
		return nil, fmt.Errorf("failed to compute link hash: %w", err)
	}

	id, _ := uuid.NewV7()
	entry := &models.AuditEntry{
		ID:        id.String(),
		Action:    req.Action,
		Data:      req.Data,
		ActorType: req.ActorType,
		ActorID:   req.ActorID,
		Hash:      hash,
		PrevHash:  tail,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	metrics.AuditAppended.WithLabelValues(req.Action).Inc()
	return entry, nil
}

// VerifyChain walks a correlation chain and reports the first broken link.
// A discontinuity is flagged to the audit log before the result returns.
func (s *Service) VerifyChain(ctx context.Context, correlationID string) (*models.VerifyChainResponse, error) {
	events, err := s.repo.ListEvents(ctx, correlationID)
	if err != nil {
		return nil, err
	}

	records := make([]hashchain.Record, len(events))
	for i, e := range events {
		records[i] = hashchain.Record{Hash: e.Hash, PrevHash: e.PrevHash, Data: e.Data}
	}

	result := hashchain.Verify(records)
	resp := &models.VerifyChainResponse{
		Scope:           correlationID,
		Valid:           result.Valid,
		Length:          len(events),
		DiscontinuityAt: discontinuityIndex(result),
		ExpectedHash:    result.ExpectedHash,
		ActualHash:      result.ActualHash,
		TerminalHash:    result.TerminalHash,
	}

	if !result.Valid {
		s.flagDiscontinuity(ctx, correlationID, resp)
	}

	return resp, nil
}

// VerifyAuditChain walks the compliance audit chain.
func (s *Service) VerifyAuditChain(ctx context.Context) (*models.VerifyChainResponse, error) {
	entries, err := s.repo.ListAuditAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]hashchain.Record, len(entries))
	for i, e := range entries {
		records[i] = hashchain.Record{Hash: e.Hash, PrevHash: e.PrevHash, Data: e.Data}
	}

	result := hashchain.Verify(records)
	resp := &models.VerifyChainResponse{
		Scope:           models.AuditScope,
		Valid:           result.Valid,
		Length:          len(entries),
		DiscontinuityAt: discontinuityIndex(result),
		ExpectedHash:    result.ExpectedHash,
		ActualHash:      result.ActualHash,
		TerminalHash:    result.TerminalHash,
	}

	if !result.Valid {
		s.flagDiscontinuity(ctx, models.AuditScope, resp)
	}

	return resp, nil
}

// RebuildChain recomputes a correlation chain purely from stored data,
// ignoring stored prev-hash values, and compares the terminal hashes. Used
// to produce the authoritative hash for audit packs and to detect tampering.
func (s *Service) RebuildChain(ctx context.Context, correlationID string) (*models.RebuildChainResponse, error) {
	events, err := s.repo.ListEvents(ctx, correlationID)
	if err != nil {
		return nil, err
	}

	records := make([]hashchain.Record, len(events))
	for i, e := range events {
		records[i] = hashchain.Record{Hash: e.Hash, PrevHash: e.PrevHash, Data: e.Data}
	}

	rebuilt, err := hashchain.Rebuild(records, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild chain: %w", err)
	}

	var stored *string
	if len(events) > 0 {
		stored = &events[len(events)-1].Hash
	}

	matches := (rebuilt == nil && stored == nil) ||
		(rebuilt != nil && stored != nil && *rebuilt == *stored)
	if !matches {
		metrics.RebuildMismatches.Inc()
		s.logger.WithContext(ctx).Error("rebuilt terminal hash disagrees with stored chain",
			logging.CorrelationID(correlationID))
	}

	return &models.RebuildChainResponse{
		Scope:              correlationID,
		Length:             len(events),
		RebuiltTerminal:    rebuilt,
		StoredTerminal:     stored,
		MatchesStoredChain: matches,
	}, nil
}

// RebuildAuditChain recomputes the compliance audit chain purely from stored
// data and compares terminal hashes, mirroring RebuildChain for the global
// scope. Audit packs cite the rebuilt terminal as the authoritative hash.
func (s *Service) RebuildAuditChain(ctx context.Context) (*models.RebuildChainResponse, error) {
	entries, err := s.repo.ListAuditAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]hashchain.Record, len(entries))
	for i, e := range entries {
		records[i] = hashchain.Record{Hash: e.Hash, PrevHash: e.PrevHash, Data: e.Data}
	}

	rebuilt, err := hashchain.Rebuild(records, models.AuditScope)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild audit chain: %w", err)
	}

	var stored *string
	if len(entries) > 0 {
		stored = &entries[len(entries)-1].Hash
	}

	matches := (rebuilt == nil && stored == nil) ||
		(rebuilt != nil && stored != nil && *rebuilt == *stored)
	if !matches {
		metrics.RebuildMismatches.Inc()
		s.logger.WithContext(ctx).Error("rebuilt audit terminal hash disagrees with stored chain")
	}

	return &models.RebuildChainResponse{
		Scope:              models.AuditScope,
		Length:             len(entries),
		RebuiltTerminal:    rebuilt,
		StoredTerminal:     stored,
		MatchesStoredChain: matches,
	}, nil
}

// ListEvents returns a correlation chain in order
func (s *Service) ListEvents(ctx context.Context, correlationID string) ([]*models.PaymentEvent, error) {
	return s.repo.ListEvents(ctx, correlationID)
}

// ListCorrelations returns known correlation ids
func (s *Service) ListCorrelations(ctx context.Context, limit, offset int) ([]string, int, error) {
	return s.repo.ListCorrelations(ctx, limit, offset)
}

// ListAudit returns a page of the compliance audit chain
func (s *Service) ListAudit(ctx context.Context, limit, offset int) ([]*models.AuditEntry, int, error) {
	return s.repo.ListAudit(ctx, limit, offset)
}

// discontinuityIndex maps a walk result onto the response convention:
// -1 when the chain is intact.
func discontinuityIndex(result hashchain.VerifyResult) int {
	if result.Valid {
		return -1
	}
	return result.DiscontinuityAt
}

// flagDiscontinuity writes the dedicated audit event for a broken chain.
// Failures to record it are escalated in the log; the finding itself is
// always returned to the caller regardless.
func (s *Service) flagDiscontinuity(ctx context.Context, scope string, resp *models.VerifyChainResponse) {
	metrics.Discontinuities.WithLabelValues(scope).Inc()
	s.logger.WithContext(ctx).Error("hash chain discontinuity detected",
		logging.Scope(scope),
		"discontinuity_at", resp.DiscontinuityAt,
		"expected_hash", resp.ExpectedHash,
		"actual_hash", resp.ActualHash)

	data, err := json.Marshal(map[string]interface{}{
		"scope":            scope,
		"discontinuity_at": resp.DiscontinuityAt,
		"expected_hash":    resp.ExpectedHash,
		"actual_hash":      resp.ActualHash,
	})
	if err != nil {
		return
	}

	if _, err := s.AppendAudit(ctx, &models.AppendAuditRequest{
		Action:    ActionDiscontinuity,
		Data:      data,
		ActorType: models.ActorSystem,
		ActorID:   "journal",
	}); err != nil {
		s.logger.WithContext(ctx).Error("failed to record discontinuity audit event",
			logging.Scope(scope),
			logging.Error(err))
	}
}
