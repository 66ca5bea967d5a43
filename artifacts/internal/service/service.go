package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/fetcher"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/models"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/common/messaging"
)

// ValidationError reports a malformed store request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IntegrityEvent is published on the audit subject when a verification
// finds a stored hash that no longer matches the locator content.
type IntegrityEvent struct {
	Kind         string    `json:"kind"`
	ArtifactID   string    `json:"artifact_id"`
	IngestionID  string    `json:"ingestion_id"`
	LocatorURI   string    `json:"locator_uri"`
	StoredHash   string    `json:"stored_hash"`
	ComputedHash string    `json:"computed_hash"`
	DetectedAt   time.Time `json:"detected_at"`
}

// Service handles business logic for payment artifacts
type Service struct {
	repo      repository.Repository
	fetch     fetcher.Fetcher
	publisher messaging.Publisher
	logger    *logging.Logger
}

// NewService creates a new service instance
func NewService(repo repository.Repository, fetch fetcher.Fetcher, publisher messaging.Publisher, logger *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		fetch:     fetch,
		publisher: publisher,
		logger:    logger,
	}
}

// Store records one artifact. When the request carries no hash the content
// hash is computed from the locator; unreachable or non-fetchable locators
// fall back to a locator-derived hash so evidence is never blocked on
// availability of the underlying object.
func (s *Service) Store(ctx context.Context, req *models.StoreRequest) (*models.PaymentArtifact, error) {
	if err := validateStore(req); err != nil {
		return nil, err
	}

	id, _ := uuid.NewV7()
	artifact := &models.PaymentArtifact{
		ID:          id.String(),
		IngestionID: req.IngestionID,
		Type:        req.Type,
		LocatorURI:  req.LocatorURI,
		ContentHash: req.ContentHash,
		HashSource:  models.HashSourceContent,
		MIMEType:    req.MIMEType,
		SourceMeta:  req.SourceMeta,
		CreatedAt:   time.Now().UTC(),
	}

	if artifact.ContentHash == "" {
		hash, source, size := s.computeHash(ctx, req.LocatorURI)
		artifact.ContentHash = hash
		artifact.HashSource = source
		artifact.SizeBytes = size
	}

	if err := s.repo.Create(ctx, artifact); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("stored artifact",
		logging.ArtifactID(artifact.ID),
		logging.IngestionID(artifact.IngestionID),
		"type", artifact.Type,
		"hash_source", artifact.HashSource)

	return artifact, nil
}

// StoreBatch records several artifacts for one ingestion atomically.
func (s *Service) StoreBatch(ctx context.Context, req *models.StoreBatchRequest) ([]*models.PaymentArtifact, error) {
	if len(req.Artifacts) == 0 {
		return nil, &ValidationError{Field: "artifacts", Reason: "must not be empty"}
	}

	artifacts := make([]*models.PaymentArtifact, 0, len(req.Artifacts))
	for i := range req.Artifacts {
		sr := &req.Artifacts[i]
		if err := validateStore(sr); err != nil {
			return nil, err
		}

		id, _ := uuid.NewV7()
		a := &models.PaymentArtifact{
			ID:          id.String(),
			IngestionID: sr.IngestionID,
			Type:        sr.Type,
			LocatorURI:  sr.LocatorURI,
			ContentHash: sr.ContentHash,
			HashSource:  models.HashSourceContent,
			MIMEType:    sr.MIMEType,
			SourceMeta:  sr.SourceMeta,
			CreatedAt:   time.Now().UTC(),
		}
		if a.ContentHash == "" {
			hash, source, size := s.computeHash(ctx, sr.LocatorURI)
			a.ContentHash = hash
			a.HashSource = source
			a.SizeBytes = size
		}
		artifacts = append(artifacts, a)
	}

	if err := s.repo.CreateBatch(ctx, artifacts); err != nil {
		return nil, err
	}

	return artifacts, nil
}

// GetByIngestion returns all artifacts belonging to an ingestion
func (s *Service) GetByIngestion(ctx context.Context, ingestionID string) ([]*models.PaymentArtifact, error) {
	return s.repo.GetByIngestion(ctx, ingestionID)
}

// GetByIngestionAndType returns an ingestion's artifacts of one type
func (s *Service) GetByIngestionAndType(ctx context.Context, ingestionID, artifactType string) ([]*models.PaymentArtifact, error) {
	return s.repo.GetByIngestionAndType(ctx, ingestionID, artifactType)
}

// VerifyHash recomputes an artifact's hash from its locator and compares it
// to the stored value. A mismatch is reported as a finding and appended to
// the audit log; the artifact remains queryable either way.
func (s *Service) VerifyHash(ctx context.Context, artifactID string) (*models.VerifyResult, error) {
	artifact, err := s.repo.GetByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	result := &models.VerifyResult{
		ArtifactID: artifact.ID,
		StoredHash: artifact.ContentHash,
		HashSource: artifact.HashSource,
	}

	content, err := s.fetch.Fetch(ctx, artifact.LocatorURI)
	switch {
	case err == nil:
		result.ComputedHash = hashBytes(content)
	case errors.Is(err, fetcher.ErrNotFetchable):
		// Locator-hashed artifacts verify against the locator string.
		result.ComputedHash = hashBytes([]byte(artifact.LocatorURI))
	default:
		result.Unreachable = true
		result.Valid = artifact.HashSource == models.HashSourceLocator &&
			artifact.ContentHash == hashBytes([]byte(artifact.LocatorURI))
		if !result.Valid {
			s.logger.WithContext(ctx).Warn("artifact unreachable during verification",
				logging.ArtifactID(artifact.ID),
				logging.Error(err))
		}
		return result, nil
	}

	result.Valid = result.ComputedHash == artifact.ContentHash
	if !result.Valid {
		s.flagMismatch(ctx, artifact, result.ComputedHash)
	}

	return result, nil
}

// DeleteByIngestion cascades artifact deletion with the owning ingestion
func (s *Service) DeleteByIngestion(ctx context.Context, ingestionID string) (int64, error) {
	deleted, err := s.repo.DeleteByIngestion(ctx, ingestionID)
	if err != nil {
		return 0, err
	}

	s.logger.WithContext(ctx).Info("cascade-deleted artifacts",
		logging.IngestionID(ingestionID),
		"deleted", deleted)

	return deleted, nil
}

func (s *Service) computeHash(ctx context.Context, locatorURI string) (hash, source string, size int64) {
	content, err := s.fetch.Fetch(ctx, locatorURI)
	if err != nil {
		// Best-effort fingerprint of the locator itself. Recorded
		// distinctly so it is never mistaken for a content hash.
		s.logger.WithContext(ctx).Warn("falling back to locator hash",
			"locator_uri", locatorURI,
			logging.Error(err))
		return hashBytes([]byte(locatorURI)), models.HashSourceLocator, 0
	}
	return hashBytes(content), models.HashSourceContent, int64(len(content))
}

func (s *Service) flagMismatch(ctx context.Context, artifact *models.PaymentArtifact, computed string) {
	s.logger.WithContext(ctx).Error("artifact hash mismatch",
		logging.ArtifactID(artifact.ID),
		logging.IngestionID(artifact.IngestionID),
		"stored_hash", artifact.ContentHash,
		"computed_hash", computed)

	if s.publisher == nil {
		return
	}

	event := IntegrityEvent{
		Kind:         "artifact.hash_mismatch",
		ArtifactID:   artifact.ID,
		IngestionID:  artifact.IngestionID,
		LocatorURI:   artifact.LocatorURI,
		StoredHash:   artifact.ContentHash,
		ComputedHash: computed,
		DetectedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, messaging.SubjectJournalAudit, data); err != nil {
		s.logger.WithContext(ctx).Error("failed to publish integrity event",
			logging.ArtifactID(artifact.ID),
			logging.Error(err))
	}
}

func validateStore(req *models.StoreRequest) error {
	if req.IngestionID == "" {
		return &ValidationError{Field: "ingestion_id", Reason: "must not be empty"}
	}
	if req.Type == "" {
		return &ValidationError{Field: "type", Reason: "must not be empty"}
	}
	if req.LocatorURI == "" {
		return &ValidationError{Field: "locator_uri", Reason: "must not be empty"}
	}
	return nil
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
