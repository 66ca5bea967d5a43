package hashchain

import (
	"encoding/json"
	"testing"
)

func TestComputeHash_Deterministic(t *testing.T) {
	data := json.RawMessage(`{"type":"payment.ingested","amount_minor":150000}`)

	h1, err := ComputeHash(nil, data, "corr-1")
	if err != nil {
		t.Fatalf("ComputeHash returned error: %v", err)
	}
	h2, err := ComputeHash(nil, data, "corr-1")
	if err != nil {
		t.Fatalf("ComputeHash returned error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected deterministic hash, got %q and %q", h1, h2)
	}

	// Hex-encoded SHA-256: 64 characters
	if len(h1) != 64 {
		t.Errorf("expected 64-character hash, got %d", len(h1))
	}
}

func TestComputeHash_InputsChangeHash(t *testing.T) {
	data := json.RawMessage(`{"type":"payment.ingested"}`)
	base, err := ComputeHash(nil, data, "corr-1")
	if err != nil {
		t.Fatalf("ComputeHash returned error: %v", err)
	}

	changedData, err := ComputeHash(nil, json.RawMessage(`{"type":"payment.validated"}`), "corr-1")
	if err != nil {
		t.Fatalf("ComputeHash returned error: %v", err)
	}
	if changedData == base {
		t.Error("expected different hash for different data")
	}

	changedCorr, err := ComputeHash(nil, data, "corr-2")
	if err != nil {
		t.Fatalf("ComputeHash returned error: %v", err)
	}
	if changedCorr == base {
		t.Error("expected different hash for different correlation id")
	}

	changedPrev, err := ComputeHash(&base, data, "corr-1")
	if err != nil {
		t.Fatalf("ComputeHash returned error: %v", err)
	}
	if changedPrev == base {
		t.Error("expected different hash when prev hash is set")
	}
}

func TestComputeHash_InvalidJSON(t *testing.T) {
	if _, err := ComputeHash(nil, json.RawMessage(`{broken`), "corr-1"); err == nil {
		t.Error("expected error for invalid JSON data")
	}
}

func TestComputeHash_EmptyData(t *testing.T) {
	h, err := ComputeHash(nil, nil, "corr-1")
	if err != nil {
		t.Fatalf("ComputeHash returned error: %v", err)
	}
	if h == "" {
		t.Error("expected hash for empty data")
	}
}

func buildChain(t *testing.T, correlationID string, payloads ...string) []Record {
	t.Helper()
	records := make([]Record, 0, len(payloads))
	var prev *string
	for _, p := range payloads {
		data := json.RawMessage(p)
		h, err := ComputeHash(prev, data, correlationID)
		if err != nil {
			t.Fatalf("ComputeHash returned error: %v", err)
		}
		records = append(records, Record{Hash: h, PrevHash: prev, Data: data})
		prev = &h
	}
	return records
}

func TestVerify_ValidChain(t *testing.T) {
	records := buildChain(t, "corr-1",
		`{"type":"payment.initiated"}`,
		`{"type":"payment.validated"}`,
		`{"type":"payment.processed"}`,
	)

	res := Verify(records)
	if !res.Valid {
		t.Fatalf("expected valid chain, got discontinuity at %d", res.DiscontinuityAt)
	}
	if res.TerminalHash == nil || *res.TerminalHash != records[2].Hash {
		t.Error("expected terminal hash to match last record")
	}
}

func TestVerify_EmptyChain(t *testing.T) {
	res := Verify(nil)
	if !res.Valid {
		t.Error("expected empty chain to be valid")
	}
	if res.TerminalHash != nil {
		t.Error("expected nil terminal hash for empty chain")
	}
}

func TestVerify_DetectsTamperedRecord(t *testing.T) {
	records := buildChain(t, "corr-1",
		`{"type":"payment.initiated"}`,
		`{"type":"payment.validated"}`,
		`{"type":"payment.processed"}`,
	)

	// Rewrite the middle record's hash as a tamperer would.
	tampered := "deadbeef"
	originalHash := records[1].Hash
	records[1].Hash = tampered

	res := Verify(records)
	if res.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if res.DiscontinuityAt != 2 {
		t.Errorf("expected discontinuity at index 2, got %d", res.DiscontinuityAt)
	}
	if res.ExpectedHash != tampered {
		t.Errorf("expected hash %q, got %q", tampered, res.ExpectedHash)
	}
	if res.ActualHash != originalHash {
		t.Errorf("actual hash %q, want original %q", res.ActualHash, originalHash)
	}
}

func TestRebuild_MatchesStoredChain(t *testing.T) {
	records := buildChain(t, "corr-9",
		`{"type":"payment.initiated"}`,
		`{"type":"payment.allocated","suspense_minor":45000}`,
	)

	terminal, err := Rebuild(records, "corr-9")
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if terminal == nil {
		t.Fatal("expected terminal hash")
	}
	if *terminal != records[1].Hash {
		t.Errorf("rebuilt terminal %q does not match stored %q", *terminal, records[1].Hash)
	}
}

func TestRebuild_DetectsDataTampering(t *testing.T) {
	records := buildChain(t, "corr-9",
		`{"type":"payment.initiated"}`,
		`{"type":"payment.allocated","suspense_minor":45000}`,
	)

	// Alter stored data; rebuilt terminal hash must diverge even though the
	// stored prev_hash links still line up.
	records[1].Data = json.RawMessage(`{"type":"payment.allocated","suspense_minor":0}`)

	terminal, err := Rebuild(records, "corr-9")
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if *terminal == records[1].Hash {
		t.Error("expected rebuilt terminal hash to differ after data tampering")
	}
}

func TestRebuild_EmptyChain(t *testing.T) {
	terminal, err := Rebuild(nil, "corr-1")
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if terminal != nil {
		t.Error("expected nil terminal hash for empty chain")
	}
}
