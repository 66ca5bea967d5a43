package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger-systems/clearledger-stack/common/hashchain"
	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/idempotency"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/repository"
)

// ConflictError is returned when an idempotency key is replayed with a
// payload that differs from the one already admitted under that key.
type ConflictError struct {
	IdempotencyKey string
	ExistingID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("idempotency key %s already admitted with a different payload (ingestion %s)", e.IdempotencyKey, e.ExistingID)
}

// AcceptedEvent is published after an ingestion is admitted so the journal
// can append the acceptance to the loan's hash chain.
type AcceptedEvent struct {
	IngestionID    string          `json:"ingestion_id"`
	LoanID         string          `json:"loan_id"`
	Channel        string          `json:"channel"`
	Method         string          `json:"method"`
	AmountMinor    int64           `json:"amount_minor"`
	ValueDate      string          `json:"value_date"`
	IdempotencyKey string          `json:"idempotency_key"`
	PayloadHash    string          `json:"payload_hash"`
	Envelope       json.RawMessage `json:"envelope,omitempty"`
	AcceptedAt     time.Time       `json:"accepted_at"`
}

// Service handles business logic for payment admission
type Service struct {
	repo      repository.Repository
	signer    *hashchain.ReceiptSigner
	publisher messaging.Publisher
	logger    *logging.Logger
}

// NewService creates a new service instance
func NewService(repo repository.Repository, signer *hashchain.ReceiptSigner, publisher messaging.Publisher, logger *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		signer:    signer,
		publisher: publisher,
		logger:    logger,
	}
}

// Ingest admits a payment exactly once. Replays of the same logical payment
// return the original record with Duplicate set; replays of the same key
// with a different payload are rejected with ConflictError.
func (s *Service) Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error) {
	valueDate, err := time.Parse("2006-01-02", req.ValueDate)
	if err != nil {
		return nil, &idempotency.ValidationError{Field: "value_date", Reason: "must be YYYY-MM-DD"}
	}
	if req.Channel == "" {
		return nil, &idempotency.ValidationError{Field: "channel", Reason: "must not be empty"}
	}
	if len(req.RawPayload) == 0 {
		return nil, &idempotency.ValidationError{Field: "raw_payload", Reason: "must not be empty"}
	}
	if !isJSONObject(req.NormalizedEnvelope) {
		return nil, &idempotency.ValidationError{Field: "normalized_envelope", Reason: "must be a JSON object"}
	}

	key, err := idempotency.Derive(req.Method, req.SourceReference, valueDate, req.AmountMinor, req.LoanID)
	if err != nil {
		return nil, err
	}

	payloadSum := sha256.Sum256(req.RawPayload)
	payloadHash := hex.EncodeToString(payloadSum[:])

	id, _ := uuid.NewV7()
	ing := &models.PaymentIngestion{
		ID:                 id.String(),
		Channel:            req.Channel,
		SourceReference:    req.SourceReference,
		RawPayload:         req.RawPayload,
		NormalizedEnvelope: req.NormalizedEnvelope,
		IdempotencyKey:     key,
		PayloadHash:        payloadHash,
		Method:             req.Method,
		ValueDate:          valueDate,
		AmountMinor:        req.AmountMinor,
		LoanID:             req.LoanID,
		ReceivedAt:         time.Now().UTC(),
	}

	stored, created, err := s.repo.InsertOrGet(ctx, ing)
	if err != nil {
		return nil, fmt.Errorf("failed to admit ingestion: %w", err)
	}

	if !created {
		if stored.PayloadHash != payloadHash {
			s.logger.WithContext(ctx).Warn("rejected idempotency key replay with different payload",
				logging.IdempotencyKey(key),
				logging.IngestionID(stored.ID),
				logging.LoanID(req.LoanID))
			return nil, &ConflictError{IdempotencyKey: key, ExistingID: stored.ID}
		}
		s.logger.WithContext(ctx).Info("deduplicated payment replay",
			logging.IdempotencyKey(key),
			logging.IngestionID(stored.ID))
		return &models.IngestResponse{
			Ingestion:        stored,
			Duplicate:        true,
			ReceiptSignature: s.sign(stored),
		}, nil
	}

	s.logger.WithContext(ctx).Info("admitted payment",
		logging.IngestionID(stored.ID),
		logging.LoanID(stored.LoanID),
		logging.Channel(stored.Channel),
		logging.AmountMinor(stored.AmountMinor))

	if err := s.publishAccepted(ctx, stored); err != nil {
		// The ingestion is durable; journaling catches up from the broker
		// redelivery, so admission still succeeds.
		s.logger.WithContext(ctx).Error("failed to publish acceptance event",
			logging.IngestionID(stored.ID),
			logging.Error(err))
	}

	return &models.IngestResponse{
		Ingestion:        stored,
		Duplicate:        false,
		ReceiptSignature: s.sign(stored),
	}, nil
}

// GetIngestion retrieves an ingestion by ID
func (s *Service) GetIngestion(ctx context.Context, id string) (*models.PaymentIngestion, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByIdempotencyKey retrieves an ingestion by its idempotency key
func (s *Service) GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIngestion, error) {
	return s.repo.GetByIdempotencyKey(ctx, key)
}

// ListIngestions retrieves a filtered page of ingestions
func (s *Service) ListIngestions(ctx context.Context, filter repository.ListFilter) ([]*models.PaymentIngestion, int, error) {
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// isJSONObject reports whether raw holds a JSON object. The envelope is
// persisted immutably, so shape is enforced at admission on every path.
func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

func (s *Service) sign(ing *models.PaymentIngestion) string {
	if s.signer == nil {
		return ""
	}
	return s.signer.Sign(ing.ID, ing.ReceivedAt, ing.IdempotencyKey, ing.PayloadHash)
}

func (s *Service) publishAccepted(ctx context.Context, ing *models.PaymentIngestion) error {
	if s.publisher == nil {
		return nil
	}

	event := AcceptedEvent{
		IngestionID:    ing.ID,
		LoanID:         ing.LoanID,
		Channel:        ing.Channel,
		Method:         ing.Method,
		AmountMinor:    ing.AmountMinor,
		ValueDate:      ing.ValueDate.Format("2006-01-02"),
		IdempotencyKey: ing.IdempotencyKey,
		PayloadHash:    ing.PayloadHash,
		Envelope:       ing.NormalizedEnvelope,
		AcceptedAt:     ing.ReceivedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal acceptance event: %w", err)
	}

	subject := messaging.PaymentSubject(ing.Channel, messaging.PhaseProcessed)
	return s.publisher.Publish(ctx, subject, data)
}
