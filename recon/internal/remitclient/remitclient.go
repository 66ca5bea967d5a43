// Package remitclient reads cycle state and calculated remittance items from
// the remittance service REST API.
package remitclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrCycleNotFound is returned when the remit service has no such cycle.
var ErrCycleNotFound = errors.New("cycle not found")

// Cycle is the subset of the remit cycle the reconciliation needs.
type Cycle struct {
	ID          string    `json:"id"`
	ContractID  string    `json:"contract_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Status      string    `json:"status"`
}

// Item is one loan's calculated remittance split.
type Item struct {
	LoanID             string `json:"loan_id"`
	InvestorShareMinor int64  `json:"investor_share_minor"`
	ServicerFeeMinor   int64  `json:"servicer_fee_minor"`
}

// CycleReader is the remit-side surface the reconciliation service depends on.
type CycleReader interface {
	GetCycle(ctx context.Context, cycleID string) (*Cycle, error)
	ListItems(ctx context.Context, cycleID string) ([]Item, error)
}

// Client implements CycleReader against the remit REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a remit client. A zero timeout defaults to 5s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetCycle(ctx context.Context, cycleID string) (*Cycle, error) {
	var cycle Cycle
	url := fmt.Sprintf("%s/api/v1/cycles/%s", c.baseURL, cycleID)
	if err := c.getJSON(ctx, url, &cycle); err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (c *Client) ListItems(ctx context.Context, cycleID string) ([]Item, error) {
	var payload struct {
		Items []Item `json:"items"`
	}
	url := fmt.Sprintf("%s/api/v1/cycles/%s/items", c.baseURL, cycleID)
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build remit request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach remit service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrCycleNotFound
	default:
		return fmt.Errorf("remit service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode remit response: %w", err)
	}

	return nil
}
