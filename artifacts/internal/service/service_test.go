package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/fetcher"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/models"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/common/messaging"
)

// mockFetcher serves scripted content per locator
type mockFetcher struct {
	content map[string][]byte
	err     error
}

func (m *mockFetcher) Fetch(_ context.Context, locatorURI string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	if body, ok := m.content[locatorURI]; ok {
		return body, nil
	}
	return nil, fetcher.ErrUnreachable
}

// mockPublisher records audit events
type mockPublisher struct {
	published []publishedMsg
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (m *mockPublisher) Publish(_ context.Context, subject string, data []byte) error {
	m.published = append(m.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (m *mockPublisher) PublishMsg(_ context.Context, msg *messaging.Message) error {
	return m.Publish(context.Background(), msg.Subject, msg.Data)
}

func (m *mockPublisher) Request(context.Context, string, []byte, time.Duration) (*messaging.Message, error) {
	return nil, nil
}

func (m *mockPublisher) Close() error { return nil }

func sha(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func newTestService(f fetcher.Fetcher, pub messaging.Publisher) *Service {
	return NewService(repository.NewMemoryRepository(), f, pub, logging.New(slog.LevelError, "json"))
}

func TestStore_ComputesContentHash(t *testing.T) {
	body := []byte("check image bytes")
	f := &mockFetcher{content: map[string][]byte{"https://evidence/check-1.png": body}}
	svc := newTestService(f, nil)

	artifact, err := svc.Store(context.Background(), &models.StoreRequest{
		IngestionID: "ing-1",
		Type:        "check-front",
		LocatorURI:  "https://evidence/check-1.png",
	})
	require.NoError(t, err)

	assert.Equal(t, sha(body), artifact.ContentHash)
	assert.Equal(t, models.HashSourceContent, artifact.HashSource)
	assert.Equal(t, int64(len(body)), artifact.SizeBytes)
}

func TestStore_LocatorFallbackHash(t *testing.T) {
	f := &mockFetcher{err: fetcher.ErrNotFetchable}
	svc := newTestService(f, nil)

	locator := "s3://evidence-bucket/wire-receipt.pdf"
	artifact, err := svc.Store(context.Background(), &models.StoreRequest{
		IngestionID: "ing-1",
		Type:        "wire-receipt",
		LocatorURI:  locator,
	})
	require.NoError(t, err)

	assert.Equal(t, sha([]byte(locator)), artifact.ContentHash)
	assert.Equal(t, models.HashSourceLocator, artifact.HashSource, "fallback must be recorded distinctly")
}

func TestStore_UnreachableStillStored(t *testing.T) {
	f := &mockFetcher{err: fetcher.ErrUnreachable}
	svc := newTestService(f, nil)

	artifact, err := svc.Store(context.Background(), &models.StoreRequest{
		IngestionID: "ing-1",
		Type:        "check-front",
		LocatorURI:  "https://evidence/missing.png",
	})
	require.NoError(t, err, "absence of content must never block recording evidence")
	assert.Equal(t, models.HashSourceLocator, artifact.HashSource)
}

func TestStore_Validation(t *testing.T) {
	svc := newTestService(&mockFetcher{}, nil)

	tests := []struct {
		name string
		req  models.StoreRequest
	}{
		{name: "missing ingestion", req: models.StoreRequest{Type: "check-front", LocatorURI: "https://x"}},
		{name: "missing type", req: models.StoreRequest{IngestionID: "ing-1", LocatorURI: "https://x"}},
		{name: "missing locator", req: models.StoreRequest{IngestionID: "ing-1", Type: "check-front"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Store(context.Background(), &tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestStoreBatch(t *testing.T) {
	body := []byte("front")
	f := &mockFetcher{content: map[string][]byte{"https://evidence/front.png": body}}
	svc := newTestService(f, nil)

	artifacts, err := svc.StoreBatch(context.Background(), &models.StoreBatchRequest{
		Artifacts: []models.StoreRequest{
			{IngestionID: "ing-1", Type: "check-front", LocatorURI: "https://evidence/front.png"},
			{IngestionID: "ing-1", Type: "check-back", LocatorURI: "s3://evidence/back.png"},
		},
	})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, models.HashSourceContent, artifacts[0].HashSource)
	assert.NotEqual(t, artifacts[0].ID, artifacts[1].ID)

	got, err := svc.GetByIngestion(context.Background(), "ing-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	fronts, err := svc.GetByIngestionAndType(context.Background(), "ing-1", "check-front")
	require.NoError(t, err)
	require.Len(t, fronts, 1)
	assert.Equal(t, "check-front", fronts[0].Type)
}

func TestVerifyHash_Valid(t *testing.T) {
	body := []byte("stable bytes")
	f := &mockFetcher{content: map[string][]byte{"https://evidence/doc.pdf": body}}
	svc := newTestService(f, nil)

	artifact, err := svc.Store(context.Background(), &models.StoreRequest{
		IngestionID: "ing-1",
		Type:        "wire-receipt",
		LocatorURI:  "https://evidence/doc.pdf",
	})
	require.NoError(t, err)

	result, err := svc.VerifyHash(context.Background(), artifact.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, artifact.ContentHash, result.ComputedHash)
}

func TestVerifyHash_MismatchFlagged(t *testing.T) {
	f := &mockFetcher{content: map[string][]byte{"https://evidence/doc.pdf": []byte("original")}}
	pub := &mockPublisher{}
	svc := newTestService(f, pub)

	artifact, err := svc.Store(context.Background(), &models.StoreRequest{
		IngestionID: "ing-1",
		Type:        "wire-receipt",
		LocatorURI:  "https://evidence/doc.pdf",
	})
	require.NoError(t, err)

	// Content changes under the same locator
	f.content["https://evidence/doc.pdf"] = []byte("tampered")

	result, err := svc.VerifyHash(context.Background(), artifact.ID)
	require.NoError(t, err, "mismatch is a finding, not a hard failure")
	assert.False(t, result.Valid)
	assert.NotEqual(t, result.StoredHash, result.ComputedHash)

	require.Len(t, pub.published, 1)
	assert.Equal(t, messaging.SubjectJournalAudit, pub.published[0].subject)

	var event IntegrityEvent
	require.NoError(t, json.Unmarshal(pub.published[0].data, &event))
	assert.Equal(t, "artifact.hash_mismatch", event.Kind)
	assert.Equal(t, artifact.ID, event.ArtifactID)

	// Artifact must remain queryable after a mismatch
	got, err := svc.GetByIngestion(context.Background(), "ing-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestVerifyHash_LocatorHashedArtifact(t *testing.T) {
	f := &mockFetcher{err: fetcher.ErrNotFetchable}
	svc := newTestService(f, nil)

	locator := "s3://evidence-bucket/check.png"
	artifact, err := svc.Store(context.Background(), &models.StoreRequest{
		IngestionID: "ing-1",
		Type:        "check-front",
		LocatorURI:  locator,
	})
	require.NoError(t, err)

	result, err := svc.VerifyHash(context.Background(), artifact.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid, "locator-hashed artifacts verify against the locator string")
	assert.Equal(t, models.HashSourceLocator, result.HashSource)
}

func TestVerifyHash_Unreachable(t *testing.T) {
	f := &mockFetcher{content: map[string][]byte{"https://evidence/doc.pdf": []byte("original")}}
	svc := newTestService(f, nil)

	artifact, err := svc.Store(context.Background(), &models.StoreRequest{
		IngestionID: "ing-1",
		Type:        "wire-receipt",
		LocatorURI:  "https://evidence/doc.pdf",
	})
	require.NoError(t, err)

	f.err = fetcher.ErrUnreachable

	result, err := svc.VerifyHash(context.Background(), artifact.ID)
	require.NoError(t, err)
	assert.True(t, result.Unreachable)
	assert.False(t, result.Valid)
}

func TestDeleteByIngestion_Cascade(t *testing.T) {
	f := &mockFetcher{err: fetcher.ErrNotFetchable}
	svc := newTestService(f, nil)

	for _, typ := range []string{"check-front", "check-back"} {
		_, err := svc.Store(context.Background(), &models.StoreRequest{
			IngestionID: "ing-1",
			Type:        typ,
			LocatorURI:  "s3://evidence/" + typ,
		})
		require.NoError(t, err)
	}

	deleted, err := svc.DeleteByIngestion(context.Background(), "ing-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := svc.GetByIngestion(context.Background(), "ing-1")
	require.NoError(t, err)
	assert.Empty(t, remaining, "no orphan artifacts may persist")
}
