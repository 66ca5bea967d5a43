package client

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

type RemitClient struct {
	baseURL string
	client  *http.Client
}

func NewRemitClient(baseURL string) *RemitClient {
	return &RemitClient{baseURL: baseURL, client: newHTTPClient()}
}

// Cycle is a remittance cycle as the remit service reports it.
type Cycle struct {
	ID                  string     `json:"id"`
	ContractID          string     `json:"contract_id"`
	PeriodStart         time.Time  `json:"period_start"`
	PeriodEnd           time.Time  `json:"period_end"`
	Status              string     `json:"status"`
	TotalPrincipalMinor int64      `json:"total_principal_minor"`
	TotalInterestMinor  int64      `json:"total_interest_minor"`
	TotalFeesMinor      int64      `json:"total_fees_minor"`
	SuspenseMinor       int64      `json:"suspense_minor"`
	ServicerFeeMinor    int64      `json:"servicer_fee_minor"`
	InvestorDueMinor    int64      `json:"investor_due_minor"`
	LockedAt            *time.Time `json:"locked_at,omitempty"`
	RemittedAt          *time.Time `json:"remitted_at,omitempty"`
}

// CreateCycleRequest opens a new cycle for a contract period.
type CreateCycleRequest struct {
	ContractID  string    `json:"contract_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

func (c *RemitClient) CreateCycle(req *CreateCycleRequest) (*Cycle, error) {
	var cycle Cycle
	if err := postJSON(c.client, c.baseURL+"/api/v1/cycles", req, &cycle); err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (c *RemitClient) GetCycle(id string) (*Cycle, error) {
	var cycle Cycle
	if err := getJSON(c.client, c.baseURL+"/api/v1/cycles/"+id, &cycle); err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (c *RemitClient) LockCycle(id string) (*Cycle, error) {
	var cycle Cycle
	if err := postJSON(c.client, c.baseURL+"/api/v1/cycles/"+id+"/lock", nil, &cycle); err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (c *RemitClient) CalculateWaterfall(id string) (*Cycle, error) {
	var cycle Cycle
	if err := postJSON(c.client, c.baseURL+"/api/v1/cycles/"+id+"/waterfall", nil, &cycle); err != nil {
		return nil, err
	}
	return &cycle, nil
}

// Export generates the remittance file and returns its raw content.
func (c *RemitClient) Export(id, format string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/cycles/%s/export?format=%s", c.baseURL, id, format)
	resp, err := c.client.Post(url, "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
