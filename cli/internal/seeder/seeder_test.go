package seeder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFixedChannel(t *testing.T) {
	p, err := Generate("check")
	require.NoError(t, err)

	assert.Equal(t, "check", p.Channel)
	assert.Equal(t, "payments.check.initiated", p.Subject)
	assert.Equal(t, "check", p.Request.Channel)
	assert.NotEmpty(t, p.Request.LoanID)
	assert.NotEmpty(t, p.Request.SourceReference)
	assert.GreaterOrEqual(t, p.Request.AmountMinor, int64(20000))
	assert.LessOrEqual(t, p.Request.AmountMinor, int64(400000))
}

func TestGenerateEnvelopeShape(t *testing.T) {
	p, err := Generate("ach")
	require.NoError(t, err)

	var envelope struct {
		Schema        string          `json:"schema"`
		MessageID     string          `json:"message_id"`
		CorrelationID string          `json:"correlation_id"`
		Producer      string          `json:"producer"`
		Data          json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(p.Envelope, &envelope))

	assert.Equal(t, "payment.ach.v1", envelope.Schema)
	assert.NotEmpty(t, envelope.MessageID)
	assert.NotEmpty(t, envelope.CorrelationID)
	assert.Equal(t, "ach-gateway", envelope.Producer)

	var data struct {
		LoanID      string `json:"loan_id"`
		AmountMinor int64  `json:"amount_minor"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, p.Request.LoanID, data.LoanID)
	assert.Equal(t, p.Request.AmountMinor, data.AmountMinor)
}

func TestGenerateUnknownChannel(t *testing.T) {
	_, err := Generate("crypto")
	assert.Error(t, err)
}

func TestGenerateRandomChannelIsKnown(t *testing.T) {
	known := make(map[string]bool)
	for _, ch := range Channels() {
		known[ch] = true
	}

	for i := 0; i < 50; i++ {
		p, err := Generate("")
		require.NoError(t, err)
		assert.True(t, known[p.Channel], "unknown channel %q", p.Channel)
	}
}
