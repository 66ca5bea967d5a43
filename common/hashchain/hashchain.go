// Package hashchain implements the tamper-evident record hashing used by the
// journal service. Each record's hash covers its own data plus the previous
// record's hash, so silent insertion or alteration is detectable by walking
// the chain.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// link is the canonical form hashed for every chain record. Field order is
// fixed by the struct declaration, not by caller input, so the hash is
// deterministic across producers.
type link struct {
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
	PrevHash      *string         `json:"prev_hash"`
}

// ComputeHash returns the hex-encoded SHA-256 hash for a chain record.
// prevHash is nil for the first record of a scope. data must be valid JSON;
// it is embedded verbatim so that rehashing stored records reproduces the
// original digest byte for byte.
func ComputeHash(prevHash *string, data json.RawMessage, correlationID string) (string, error) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("hashchain: data is not valid JSON")
	}

	payload, err := json.Marshal(link{
		CorrelationID: correlationID,
		Data:          data,
		PrevHash:      prevHash,
	})
	if err != nil {
		return "", fmt.Errorf("hashchain: marshal link: %w", err)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Record is the minimal view of a stored chain record needed for verification.
type Record struct {
	Hash     string
	PrevHash *string
	Data     json.RawMessage
}

// VerifyResult reports the outcome of a chain walk. When Valid is false,
// DiscontinuityAt holds the zero-based index of the first broken record and
// ExpectedHash/ActualHash hold the divergent values.
type VerifyResult struct {
	Valid           bool    `json:"valid"`
	DiscontinuityAt int     `json:"discontinuity_at,omitempty"`
	ExpectedHash    string  `json:"expected_hash,omitempty"`
	ActualHash      string  `json:"actual_hash,omitempty"`
	TerminalHash    *string `json:"terminal_hash,omitempty"`
}

// Verify walks records in insertion order and asserts that every non-initial
// record's PrevHash equals its predecessor's Hash. It stops at the first
// break. An empty chain is valid.
func Verify(records []Record) VerifyResult {
	for i, rec := range records {
		if i == 0 {
			continue
		}
		expected := records[i-1].Hash
		actual := ""
		if rec.PrevHash != nil {
			actual = *rec.PrevHash
		}
		if actual != expected {
			return VerifyResult{
				Valid:           false,
				DiscontinuityAt: i,
				ExpectedHash:    expected,
				ActualHash:      actual,
			}
		}
	}

	res := VerifyResult{Valid: true}
	if n := len(records); n > 0 {
		terminal := records[n-1].Hash
		res.TerminalHash = &terminal
	}
	return res
}

// Rebuild recomputes the full chain from stored data fields alone, ignoring
// whatever PrevHash values are persisted. It returns the authoritative
// terminal hash, or nil for an empty chain. Comparing the rebuilt terminal
// hash against the stored one detects tampering that rewrote both a record
// and its onward links.
func Rebuild(records []Record, correlationID string) (*string, error) {
	var prev *string
	for i, rec := range records {
		h, err := ComputeHash(prev, rec.Data, correlationID)
		if err != nil {
			return nil, fmt.Errorf("hashchain: rebuild record %d: %w", i, err)
		}
		prev = &h
	}
	return prev, nil
}
