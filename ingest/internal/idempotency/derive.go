// Package idempotency derives the deterministic fingerprint that collapses
// duplicate payment submissions to a single ledger effect.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed derivation input. Derivation has no
// other failure mode: it is pure, total, and does no I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Derive computes the idempotency key for a payment from its defining
// attributes. Method and reference are case and whitespace normalized before
// hashing so a re-submission with different casing yields the same key;
// changing any attribute yields a different key. Amount is integer minor
// units, never floating point.
func Derive(method, reference string, valueDate time.Time, amountMinor int64, loanID string) (string, error) {
	method = normalize(method)
	reference = normalize(reference)
	loanID = strings.TrimSpace(loanID)

	if method == "" {
		return "", &ValidationError{Field: "method", Reason: "must not be empty"}
	}
	if reference == "" {
		return "", &ValidationError{Field: "reference", Reason: "must not be empty"}
	}
	if valueDate.IsZero() {
		return "", &ValidationError{Field: "value_date", Reason: "must be set"}
	}
	if amountMinor <= 0 {
		return "", &ValidationError{Field: "amount_minor", Reason: "must be positive"}
	}
	if loanID == "" {
		return "", &ValidationError{Field: "loan_id", Reason: "must not be empty"}
	}

	// Pipe-delimited canonical form; the date collapses to its calendar day
	// so timezone-shifted resubmissions of the same value date match.
	canonical := strings.Join([]string{
		method,
		reference,
		valueDate.UTC().Format("2006-01-02"),
		fmt.Sprintf("%d", amountMinor),
		loanID,
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// normalize lowercases and collapses all interior whitespace runs to a
// single space, trimming the ends.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
