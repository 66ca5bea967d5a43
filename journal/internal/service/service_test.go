package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger-systems/clearledger-stack/common/hashchain"
	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/chainlock"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/models"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/repository"
)

func newTestService() (*Service, *repository.MemoryRepository) {
	repo := repository.NewMemoryRepository()
	logger := logging.New(slog.LevelError, "json")
	return NewService(repo, chainlock.NewLocalLocker(), logger), repo
}

func eventRequest(correlationID, eventType string, data string) *models.AppendEventRequest {
	return &models.AppendEventRequest{
		CorrelationID: correlationID,
		EventType:     eventType,
		Data:          json.RawMessage(data),
		ActorType:     models.ActorSystem,
		ActorID:       "ingest",
	}
}

func TestAppendFirstEvent(t *testing.T) {
	svc, _ := newTestService()

	event, err := svc.Append(context.Background(), eventRequest("corr-1", "payment.accepted", `{"amount":100}`))
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, int64(1), event.SequenceNum)
	assert.Nil(t, event.PrevHash)
	assert.NotEmpty(t, event.Hash)

	// the hash must be reproducible from the inputs alone
	expected, err := hashchain.ComputeHash(nil, json.RawMessage(`{"amount":100}`), "corr-1")
	require.NoError(t, err)
	assert.Equal(t, expected, event.Hash)
}

func TestAppendLinksToTail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Append(ctx, eventRequest("corr-1", "payment.accepted", `{"step":1}`))
	require.NoError(t, err)

	second, err := svc.Append(ctx, eventRequest("corr-1", "payment.allocated", `{"step":2}`))
	require.NoError(t, err)

	assert.Equal(t, int64(2), second.SequenceNum)
	require.NotNil(t, second.PrevHash)
	assert.Equal(t, first.Hash, *second.PrevHash)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestAppendChainsAreIndependent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Append(ctx, eventRequest("corr-a", "payment.accepted", `{"n":1}`))
	require.NoError(t, err)

	other, err := svc.Append(ctx, eventRequest("corr-b", "payment.accepted", `{"n":1}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1), other.SequenceNum)
	assert.Nil(t, other.PrevHash)
}

func TestAppendRejectsUnknownActor(t *testing.T) {
	svc, _ := newTestService()

	req := eventRequest("corr-1", "payment.accepted", `{}`)
	req.ActorType = "robot"

	_, err := svc.Append(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAppendRejectsMissingCorrelation(t *testing.T) {
	svc, _ := newTestService()

	req := eventRequest("", "payment.accepted", `{}`)
	_, err := svc.Append(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestVerifyChainValid(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Append(ctx, eventRequest("corr-1", "payment.accepted", `{"seq":true}`))
		require.NoError(t, err)
	}

	resp, err := svc.VerifyChain(ctx, "corr-1")
	require.NoError(t, err)

	assert.True(t, resp.Valid)
	assert.Equal(t, 4, resp.Length)
	assert.Equal(t, -1, resp.DiscontinuityAt)
	assert.NotNil(t, resp.TerminalHash)
}

func TestVerifyChainEmptyIsValid(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.VerifyChain(context.Background(), "nobody-home")
	require.NoError(t, err)

	assert.True(t, resp.Valid)
	assert.Equal(t, 0, resp.Length)
	assert.Nil(t, resp.TerminalHash)
}

func TestVerifyChainDetectsTamper(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Append(ctx, eventRequest("corr-1", "payment.accepted", `{"legit":true}`))
		require.NoError(t, err)
	}

	repo.Corrupt("corr-1", 1, "deadbeef")

	resp, err := svc.VerifyChain(ctx, "corr-1")
	require.NoError(t, err)

	assert.False(t, resp.Valid)
	assert.Equal(t, 2, resp.DiscontinuityAt)
	assert.Equal(t, "deadbeef", resp.ExpectedHash)
	assert.NotEqual(t, resp.ExpectedHash, resp.ActualHash)

	// a discontinuity must leave a trace in the audit chain
	entries, _, err := repo.ListAudit(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionDiscontinuity, entries[0].Action)
	assert.Equal(t, models.ActorSystem, entries[0].ActorType)

	var flagged map[string]interface{}
	require.NoError(t, json.Unmarshal(entries[0].Data, &flagged))
	assert.Equal(t, "corr-1", flagged["scope"])
	assert.Equal(t, float64(2), flagged["discontinuity_at"])
}

func TestAppendAuditChains(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.AppendAudit(ctx, &models.AppendAuditRequest{
		Action:    "cycle.locked",
		Data:      json.RawMessage(`{"cycle_id":"c-1"}`),
		ActorType: models.ActorHuman,
		ActorID:   "ops@example.com",
	})
	require.NoError(t, err)
	assert.Nil(t, first.PrevHash)
	assert.Equal(t, int64(1), first.SequenceNum)

	second, err := svc.AppendAudit(ctx, &models.AppendAuditRequest{
		Action:    "cycle.remitted",
		Data:      json.RawMessage(`{"cycle_id":"c-1"}`),
		ActorType: models.ActorSystem,
		ActorID:   "remit",
	})
	require.NoError(t, err)
	require.NotNil(t, second.PrevHash)
	assert.Equal(t, first.Hash, *second.PrevHash)
}

func TestVerifyAuditChain(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AppendAudit(ctx, &models.AppendAuditRequest{
			Action:    "config.changed",
			Data:      json.RawMessage(`{}`),
			ActorType: models.ActorAI,
			ActorID:   "advisor",
		})
		require.NoError(t, err)
	}

	resp, err := svc.VerifyAuditChain(ctx)
	require.NoError(t, err)

	assert.True(t, resp.Valid)
	assert.Equal(t, models.AuditScope, resp.Scope)
	assert.Equal(t, 3, resp.Length)
	assert.Equal(t, -1, resp.DiscontinuityAt)
}

func TestRebuildAuditChainMatchesStored(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AppendAudit(ctx, &models.AppendAuditRequest{
			Action:    "config.changed",
			Data:      json.RawMessage(`{}`),
			ActorType: models.ActorHuman,
			ActorID:   "ops-1",
		})
		require.NoError(t, err)
	}

	resp, err := svc.RebuildAuditChain(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.AuditScope, resp.Scope)
	assert.True(t, resp.MatchesStoredChain)
	assert.Equal(t, 3, resp.Length)
	require.NotNil(t, resp.RebuiltTerminal)
	require.NotNil(t, resp.StoredTerminal)
	assert.Equal(t, *resp.StoredTerminal, *resp.RebuiltTerminal)
}

func TestRebuildAuditChainDetectsRewrittenTerminal(t *testing.T) {
	// rewriting the last entry's hash leaves every prev link intact, so
	// verify passes and only the rebuild from data catches it
	svc, repo := newTestService()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.AppendAudit(ctx, &models.AppendAuditRequest{
			Action:    "config.changed",
			Data:      json.RawMessage(`{}`),
			ActorType: models.ActorSystem,
			ActorID:   "journal",
		})
		require.NoError(t, err)
	}

	repo.CorruptAudit(1, "deadbeef")

	verify, err := svc.VerifyAuditChain(ctx)
	require.NoError(t, err)
	assert.True(t, verify.Valid)

	rebuild, err := svc.RebuildAuditChain(ctx)
	require.NoError(t, err)
	assert.False(t, rebuild.MatchesStoredChain)
	require.NotNil(t, rebuild.StoredTerminal)
	assert.Equal(t, "deadbeef", *rebuild.StoredTerminal)
}

func TestRebuildChainMatchesStored(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Append(ctx, eventRequest("corr-1", "payment.accepted", `{"ok":true}`))
		require.NoError(t, err)
	}

	resp, err := svc.RebuildChain(ctx, "corr-1")
	require.NoError(t, err)

	assert.True(t, resp.MatchesStoredChain)
	assert.Equal(t, 3, resp.Length)
	require.NotNil(t, resp.RebuiltTerminal)
	require.NotNil(t, resp.StoredTerminal)
	assert.Equal(t, *resp.StoredTerminal, *resp.RebuiltTerminal)
}

func TestRebuildChainDetectsRewrittenTerminal(t *testing.T) {
	// rewriting the last record's hash leaves every prev link intact, so
	// only a rebuild from data catches it
	svc, repo := newTestService()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Append(ctx, eventRequest("corr-1", "payment.accepted", `{"ok":true}`))
		require.NoError(t, err)
	}

	repo.Corrupt("corr-1", 1, "deadbeef")

	verify, err := svc.VerifyChain(ctx, "corr-1")
	require.NoError(t, err)
	assert.True(t, verify.Valid)

	rebuild, err := svc.RebuildChain(ctx, "corr-1")
	require.NoError(t, err)
	assert.False(t, rebuild.MatchesStoredChain)
	require.NotNil(t, rebuild.StoredTerminal)
	assert.Equal(t, "deadbeef", *rebuild.StoredTerminal)
}

func TestRebuildEmptyChain(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.RebuildChain(context.Background(), "missing")
	require.NoError(t, err)

	assert.True(t, resp.MatchesStoredChain)
	assert.Nil(t, resp.RebuiltTerminal)
	assert.Nil(t, resp.StoredTerminal)
}
