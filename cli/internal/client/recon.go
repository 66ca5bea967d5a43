package client

import (
	"net/http"
	"time"
)

type ReconClient struct {
	baseURL string
	client  *http.Client
}

func NewReconClient(baseURL string) *ReconClient {
	return &ReconClient{baseURL: baseURL, client: newHTTPClient()}
}

// Snapshot is one reconciliation result.
type Snapshot struct {
	ID                     string    `json:"id"`
	CycleID                string    `json:"cycle_id"`
	RemitInvestorMinor     int64     `json:"remit_investor_minor"`
	RemitServicerMinor     int64     `json:"remit_servicer_minor"`
	LedgerInvestorMinor    int64     `json:"ledger_investor_minor"`
	LedgerServicerMinor    int64     `json:"ledger_servicer_minor"`
	DiffInvestorMinor      int64     `json:"diff_investor_minor"`
	DiffServicerMinor      int64     `json:"diff_servicer_minor"`
	DiffTotalMinor         int64     `json:"diff_total_minor"`
	IsBalanced             bool      `json:"is_balanced"`
	VarianceThresholdMinor int64     `json:"variance_threshold_minor"`
	Reviewer               string    `json:"reviewer"`
	CreatedAt              time.Time `json:"created_at"`
}

type generateRequest struct {
	CycleID  string `json:"cycle_id"`
	Reviewer string `json:"reviewer"`
}

func (c *ReconClient) Generate(cycleID, reviewer string) (*Snapshot, error) {
	var snapshot Snapshot
	req := &generateRequest{CycleID: cycleID, Reviewer: reviewer}
	if err := postJSON(c.client, c.baseURL+"/api/v1/reconciliations", req, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *ReconClient) ListSnapshots(cycleID string) ([]Snapshot, error) {
	var resp struct {
		Snapshots []Snapshot `json:"snapshots"`
	}
	if err := getJSON(c.client, c.baseURL+"/api/v1/cycles/"+cycleID+"/reconciliations", &resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

func (c *ReconClient) LatestSnapshot(cycleID string) (*Snapshot, error) {
	var snapshot Snapshot
	if err := getJSON(c.client, c.baseURL+"/api/v1/cycles/"+cycleID+"/reconciliations/latest", &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
