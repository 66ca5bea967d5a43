package validator

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
)

func validEnvelope(t *testing.T, schema, method string) *models.PaymentEnvelope {
	t.Helper()
	data, err := json.Marshal(models.PaymentData{
		Method:      method,
		Reference:   "REF-001",
		ValueDate:   "2025-08-24",
		AmountMinor: 150000,
		LoanID:      "loan-7",
	})
	require.NoError(t, err)

	return &models.PaymentEnvelope{
		Schema:        schema,
		MessageID:     "msg-1",
		CorrelationID: "corr-1",
		OccurredAt:    time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC),
		Producer:      "lockbox-gateway",
		Version:       "1.0",
		Data:          data,
	}
}

func TestValidateEnvelope_AllSchemas(t *testing.T) {
	schemas := map[string]string{
		SchemaACH:     "ach",
		SchemaWire:    "wire",
		SchemaCheck:   "check",
		SchemaCard:    "card",
		SchemaLockbox: "lockbox",
	}

	for schema, channel := range schemas {
		t.Run(schema, func(t *testing.T) {
			data, err := ValidateEnvelope(validEnvelope(t, schema, channel))
			require.NoError(t, err)
			assert.Equal(t, channel, data.Method)
			assert.Equal(t, int64(150000), data.AmountMinor)
		})
	}
}

func TestValidateEnvelope_UnknownSchema(t *testing.T) {
	env := validEnvelope(t, "payment.venmo.v1", "ach")
	_, err := ValidateEnvelope(env)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schema", verr.Field)
}

func TestValidateEnvelope_MethodSchemaMismatch(t *testing.T) {
	env := validEnvelope(t, SchemaWire, "ach")
	_, err := ValidateEnvelope(env)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "data.method", verr.Field)
}

func TestValidateEnvelope_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.PaymentEnvelope)
		field  string
	}{
		{name: "message id", mutate: func(e *models.PaymentEnvelope) { e.MessageID = "" }, field: "message_id"},
		{name: "correlation id", mutate: func(e *models.PaymentEnvelope) { e.CorrelationID = "" }, field: "correlation_id"},
		{name: "producer", mutate: func(e *models.PaymentEnvelope) { e.Producer = "" }, field: "producer"},
		{name: "occurred at", mutate: func(e *models.PaymentEnvelope) { e.OccurredAt = time.Time{} }, field: "occurred_at"},
		{name: "data", mutate: func(e *models.PaymentEnvelope) { e.Data = nil }, field: "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvelope(t, SchemaACH, "ach")
			tt.mutate(env)
			_, err := ValidateEnvelope(env)
			require.Error(t, err)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateEnvelope_DataRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.PaymentData)
		field  string
	}{
		{name: "empty reference", mutate: func(d *models.PaymentData) { d.Reference = "" }, field: "data.reference"},
		{name: "bad value date", mutate: func(d *models.PaymentData) { d.ValueDate = "08/24/2025" }, field: "data.value_date"},
		{name: "zero amount", mutate: func(d *models.PaymentData) { d.AmountMinor = 0 }, field: "data.amount_minor"},
		{name: "negative amount", mutate: func(d *models.PaymentData) { d.AmountMinor = -1 }, field: "data.amount_minor"},
		{name: "empty loan", mutate: func(d *models.PaymentData) { d.LoanID = "" }, field: "data.loan_id"},
		{name: "artifact without locator", mutate: func(d *models.PaymentData) {
			d.Artifacts = []models.ArtifactInput{{Type: "check_image"}}
		}, field: "data.artifacts[0].locator_uri"},
		{name: "duplicate obligation bucket", mutate: func(d *models.PaymentData) {
			d.Obligations = []models.Obligation{
				{Bucket: "interest", Rank: 1, RequiredMinor: 100},
				{Bucket: "interest", Rank: 2, RequiredMinor: 200},
			}
		}, field: "data.obligations[1].bucket"},
		{name: "negative required", mutate: func(d *models.PaymentData) {
			d.Obligations = []models.Obligation{{Bucket: "fees", Rank: 1, RequiredMinor: -5}}
		}, field: "data.obligations[0].required_minor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvelope(t, SchemaACH, "ach")
			var data models.PaymentData
			require.NoError(t, json.Unmarshal(env.Data, &data))
			tt.mutate(&data)
			raw, err := json.Marshal(data)
			require.NoError(t, err)
			env.Data = raw

			_, err = ValidateEnvelope(env)
			require.Error(t, err)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateEnvelope_ChannelExtensionsTolerated(t *testing.T) {
	env := validEnvelope(t, SchemaACH, "ach")
	env.Data = json.RawMessage(fmt.Sprintf(`{
		"method": "ach", "reference": "REF-001", "value_date": "2025-08-24",
		"amount_minor": 150000, "loan_id": "loan-7",
		"trace_number": "021000021234567", "sec_code": "PPD"
	}`))
	data, err := ValidateEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, "REF-001", data.Reference)
}
