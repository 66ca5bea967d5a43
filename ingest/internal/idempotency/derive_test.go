package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var valueDate = time.Date(2025, 8, 24, 0, 0, 0, 0, time.UTC)

func TestDerive_Deterministic(t *testing.T) {
	k1, err := Derive("ach", "ACH-12345", valueDate, 100000, "1")
	require.NoError(t, err)
	k2, err := Derive("ach", "ACH-12345", valueDate, 100000, "1")
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64, "hex-encoded SHA-256")
}

func TestDerive_NormalizesCaseAndWhitespace(t *testing.T) {
	base, err := Derive("ach", "ACH-12345", valueDate, 100000, "1")
	require.NoError(t, err)

	variants := []struct {
		name      string
		method    string
		reference string
	}{
		{name: "upper case method", method: "ACH", reference: "ACH-12345"},
		{name: "mixed case reference", method: "ach", reference: "ach-12345"},
		{name: "padded fields", method: "  ach ", reference: " ACH-12345  "},
		{name: "collapsed interior whitespace", method: "ach", reference: "ACH-12345"},
	}

	for _, tt := range variants {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Derive(tt.method, tt.reference, valueDate, 100000, "1")
			require.NoError(t, err)
			assert.Equal(t, base, k, "logical payment must yield the same key")
		})
	}
}

func TestDerive_InteriorWhitespaceCollapses(t *testing.T) {
	k1, err := Derive("ach", "WIRE  REF  9", valueDate, 100000, "1")
	require.NoError(t, err)
	k2, err := Derive("ach", "wire ref 9", valueDate, 100000, "1")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestDerive_AttributeChangesKey(t *testing.T) {
	base, err := Derive("ach", "ACH-12345", valueDate, 100000, "1")
	require.NoError(t, err)

	changed := []struct {
		name   string
		derive func() (string, error)
	}{
		{name: "method", derive: func() (string, error) {
			return Derive("wire", "ACH-12345", valueDate, 100000, "1")
		}},
		{name: "reference", derive: func() (string, error) {
			return Derive("ach", "ACH-12346", valueDate, 100000, "1")
		}},
		{name: "value date", derive: func() (string, error) {
			return Derive("ach", "ACH-12345", valueDate.AddDate(0, 0, 1), 100000, "1")
		}},
		{name: "amount", derive: func() (string, error) {
			return Derive("ach", "ACH-12345", valueDate, 100001, "1")
		}},
		{name: "loan", derive: func() (string, error) {
			return Derive("ach", "ACH-12345", valueDate, 100000, "2")
		}},
	}

	for _, tt := range changed {
		t.Run(tt.name, func(t *testing.T) {
			k, err := tt.derive()
			require.NoError(t, err)
			assert.NotEqual(t, base, k)
		})
	}
}

func TestDerive_SameCalendarDayAcrossTimezones(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	k1, err := Derive("ach", "ACH-12345", time.Date(2025, 8, 24, 3, 0, 0, 0, time.UTC), 100000, "1")
	require.NoError(t, err)
	k2, err := Derive("ach", "ACH-12345", time.Date(2025, 8, 23, 22, 0, 0, 0, est), 100000, "1")
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "same UTC calendar day must match")
}

func TestDerive_RejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name   string
		derive func() (string, error)
	}{
		{name: "empty method", derive: func() (string, error) {
			return Derive("", "ACH-12345", valueDate, 100000, "1")
		}},
		{name: "whitespace-only reference", derive: func() (string, error) {
			return Derive("ach", "   ", valueDate, 100000, "1")
		}},
		{name: "zero value date", derive: func() (string, error) {
			return Derive("ach", "ACH-12345", time.Time{}, 100000, "1")
		}},
		{name: "zero amount", derive: func() (string, error) {
			return Derive("ach", "ACH-12345", valueDate, 0, "1")
		}},
		{name: "negative amount", derive: func() (string, error) {
			return Derive("ach", "ACH-12345", valueDate, -5, "1")
		}},
		{name: "empty loan", derive: func() (string, error) {
			return Derive("ach", "ACH-12345", valueDate, 100000, "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.derive()
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}
