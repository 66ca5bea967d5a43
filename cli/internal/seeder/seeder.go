// Package seeder generates realistic fake payment traffic for demo and load
// environments.
package seeder

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/clearledger-systems/clearledger-stack/cli/internal/client"
)

var channelSchemas = map[string]string{
	"ach":     "payment.ach.v1",
	"wire":    "payment.wire.v1",
	"check":   "payment.check.v1",
	"card":    "payment.card.v1",
	"lockbox": "payment.lockbox.v1",
}

// Channels returns the payment channels the seeder can generate.
func Channels() []string {
	return []string{"ach", "wire", "check", "card", "lockbox"}
}

// Payment is one generated payment in both its HTTP and envelope forms.
type Payment struct {
	Channel  string
	Request  *client.IngestRequest
	Envelope json.RawMessage
	Subject  string
}

// Generate produces one fake payment. An empty channel picks one at random,
// weighted toward ACH the way real servicing traffic skews.
func Generate(channel string) (*Payment, error) {
	if channel == "" {
		channel = pickChannel()
	}
	schema, ok := channelSchemas[channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel %q", channel)
	}

	loanID := fmt.Sprintf("LN-%08d", rand.Intn(100000000))
	reference := fmt.Sprintf("%s-%s", gofakeit.LetterN(4), gofakeit.DigitN(10))
	// Monthly installments cluster between $200 and $4,000.
	amountMinor := int64(gofakeit.Number(20000, 400000))
	valueDate := time.Now().AddDate(0, 0, -gofakeit.Number(0, 5)).Format("2006-01-02")
	correlationID := uuid.Must(uuid.NewV7()).String()

	data, err := json.Marshal(map[string]interface{}{
		"method":       channel,
		"reference":    reference,
		"value_date":   valueDate,
		"amount_minor": amountMinor,
		"loan_id":      loanID,
	})
	if err != nil {
		return nil, err
	}

	envelope, err := json.Marshal(map[string]interface{}{
		"schema":         schema,
		"message_id":     uuid.Must(uuid.NewV7()).String(),
		"correlation_id": correlationID,
		"occurred_at":    time.Now().UTC().Format(time.RFC3339),
		"producer":       fmt.Sprintf("%s-gateway", channel),
		"version":        "1.0",
		"data":           json.RawMessage(data),
	})
	if err != nil {
		return nil, err
	}

	return &Payment{
		Channel: channel,
		Request: &client.IngestRequest{
			Channel:            channel,
			SourceReference:    reference,
			RawPayload:         data,
			NormalizedEnvelope: envelope,
			Method:             channel,
			ValueDate:          valueDate,
			AmountMinor:        amountMinor,
			LoanID:             loanID,
		},
		Envelope: envelope,
		Subject:  fmt.Sprintf("payments.%s.initiated", channel),
	}, nil
}

func pickChannel() string {
	// ACH dominates loan servicing; the rest split the remainder.
	n := rand.Intn(100)
	switch {
	case n < 55:
		return "ach"
	case n < 70:
		return "check"
	case n < 82:
		return "card"
	case n < 92:
		return "lockbox"
	default:
		return "wire"
	}
}
