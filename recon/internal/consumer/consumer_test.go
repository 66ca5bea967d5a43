package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/models"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/service"
)

type mockGenerator struct {
	requests []*models.GenerateRequest
	err      error
}

func (m *mockGenerator) Generate(_ context.Context, req *models.GenerateRequest) (*models.ReconciliationSnapshot, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &models.ReconciliationSnapshot{CycleID: req.CycleID, IsBalanced: true}, nil
}

func TestHandleCycleLockedRunsReconciliation(t *testing.T) {
	gen := &mockGenerator{}
	c := NewConsumer(nil, gen)

	msg := &messaging.Message{
		Subject: messaging.SubjectRemitCycleLocked,
		Data:    []byte(`{"cycle_id":"cycle-1"}`),
	}
	require.NoError(t, c.HandleCycleLocked(context.Background(), msg))

	require.Len(t, gen.requests, 1)
	assert.Equal(t, "cycle-1", gen.requests[0].CycleID)
	assert.Equal(t, SystemReviewer, gen.requests[0].Reviewer)
}

func TestHandleCycleLockedDropsMalformed(t *testing.T) {
	gen := &mockGenerator{}
	c := NewConsumer(nil, gen)

	msg := &messaging.Message{Subject: messaging.SubjectRemitCycleLocked, Data: []byte(`not json`)}
	require.NoError(t, c.HandleCycleLocked(context.Background(), msg))

	msg.Data = []byte(`{}`)
	require.NoError(t, c.HandleCycleLocked(context.Background(), msg))

	assert.Empty(t, gen.requests)
}

func TestHandleCycleLockedVarianceIsNotRedelivered(t *testing.T) {
	gen := &mockGenerator{err: &service.VarianceError{
		Snapshot: &models.ReconciliationSnapshot{CycleID: "cycle-1", DiffInvestorMinor: 1},
	}}
	c := NewConsumer(nil, gen)

	msg := &messaging.Message{
		Subject: messaging.SubjectRemitCycleLocked,
		Data:    []byte(`{"cycle_id":"cycle-1"}`),
	}
	assert.NoError(t, c.HandleCycleLocked(context.Background(), msg))
}

func TestHandleCycleLockedTransientFailureRedelivers(t *testing.T) {
	gen := &mockGenerator{err: errors.New("remit unreachable")}
	c := NewConsumer(nil, gen)

	msg := &messaging.Message{
		Subject: messaging.SubjectRemitCycleLocked,
		Data:    []byte(`{"cycle_id":"cycle-1"}`),
	}
	err := c.HandleCycleLocked(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle-1")
}
