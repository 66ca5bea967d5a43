package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/payments", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ingestion":{"id":"ing-1","loan_id":"LN-1","amount_minor":150000,"idempotency_key":"abc"},"duplicate":false,"receipt_signature":"sig"}`))
	}))
	defer server.Close()

	c := NewIngestClient(server.URL)
	resp, err := c.IngestPayment(&IngestRequest{Channel: "ach", LoanID: "LN-1", AmountMinor: 150000})
	require.NoError(t, err)

	assert.False(t, resp.Duplicate)
	assert.Equal(t, "ing-1", resp.Ingestion.ID)
	assert.Equal(t, int64(150000), resp.Ingestion.AmountMinor)
	assert.Equal(t, "sig", resp.ReceiptSignature)
}

func TestIngestPaymentDuplicateStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ingestion":{"id":"ing-1"},"duplicate":true}`))
	}))
	defer server.Close()

	c := NewIngestClient(server.URL)
	resp, err := c.IngestPayment(&IngestRequest{Channel: "ach"})
	require.NoError(t, err)
	assert.True(t, resp.Duplicate)
}

func TestErrorBodyDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"payload differs for idempotency key"}`))
	}))
	defer server.Close()

	c := NewIngestClient(server.URL)
	_, err := c.IngestPayment(&IngestRequest{Channel: "ach"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload differs for idempotency key")
	assert.Contains(t, err.Error(), "409")
}

func TestVerifyChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/chains/corr-1/verify", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scope":"corr-1","valid":false,"length":3,"discontinuity_at":2,"expected_hash":"aa","actual_hash":"bb"}`))
	}))
	defer server.Close()

	c := NewJournalClient(server.URL)
	result, err := c.VerifyChain("corr-1")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, 2, result.DiscontinuityAt)
	assert.Equal(t, "aa", result.ExpectedHash)
}

func TestRebuildChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/chains/corr-1/rebuild", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scope":"corr-1","length":3,"rebuilt_terminal_hash":"aa","stored_terminal_hash":"bb","matches_stored_chain":false}`))
	}))
	defer server.Close()

	c := NewJournalClient(server.URL)
	result, err := c.RebuildChain("corr-1")
	require.NoError(t, err)

	assert.False(t, result.MatchesStoredChain)
	require.NotNil(t, result.RebuiltTerminal)
	assert.Equal(t, "aa", *result.RebuiltTerminal)
}

func TestReconGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/reconciliations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"snap-1","cycle_id":"cycle-1","is_balanced":false,"diff_investor_minor":1}`))
	}))
	defer server.Close()

	c := NewReconClient(server.URL)
	snapshot, err := c.Generate("cycle-1", "ops")
	require.NoError(t, err)

	assert.False(t, snapshot.IsBalanced)
	assert.Equal(t, int64(1), snapshot.DiffInvestorMinor)
}

func TestRemitExportBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"latest reconciliation snapshot snap-1 is unbalanced"}`))
	}))
	defer server.Close()

	c := NewRemitClient(server.URL)
	_, err := c.Export("cycle-1", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbalanced")
}

func TestRemitExportContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/cycles/cycle-1/export", r.URL.Path)
		require.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("loan_id,principal_minor\nLN-1,100000\n"))
	}))
	defer server.Close()

	c := NewRemitClient(server.URL)
	content, err := c.Export("cycle-1", "csv")
	require.NoError(t, err)
	assert.Contains(t, string(content), "LN-1,100000")
}
