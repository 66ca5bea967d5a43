// Package recongate asks the reconciliation service whether a cycle's
// remittance file may be released. An unbalanced latest snapshot blocks the
// export.
package recongate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clearledger-systems/clearledger-stack/remit/internal/service"
)

// Client implements service.ReleaseGate against the reconciliation REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a gate client. A zero timeout defaults to 5s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type snapshot struct {
	ID         string `json:"id"`
	IsBalanced bool   `json:"is_balanced"`
}

// ExportAllowed fetches the latest snapshot for the cycle. No snapshot means
// reconciliation has not run, which does not block; an unbalanced one does.
func (c *Client) ExportAllowed(ctx context.Context, cycleID string) error {
	url := fmt.Sprintf("%s/api/v1/cycles/%s/reconciliations/latest", c.baseURL, cycleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build reconciliation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach reconciliation service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil
	case http.StatusOK:
	default:
		return fmt.Errorf("reconciliation service returned status %d", resp.StatusCode)
	}

	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode reconciliation snapshot: %w", err)
	}

	if !snap.IsBalanced {
		return &service.ReleaseBlockedError{
			CycleID: cycleID,
			Reason:  fmt.Sprintf("latest reconciliation snapshot %s is unbalanced", snap.ID),
		}
	}

	return nil
}
