package client

import (
	"net/http"
)

type JournalClient struct {
	baseURL string
	client  *http.Client
}

func NewJournalClient(baseURL string) *JournalClient {
	return &JournalClient{baseURL: baseURL, client: newHTTPClient()}
}

// VerifyResult reports whether a chain's hash links are intact.
type VerifyResult struct {
	Scope           string  `json:"scope"`
	Valid           bool    `json:"valid"`
	Length          int     `json:"length"`
	DiscontinuityAt int     `json:"discontinuity_at"`
	ExpectedHash    string  `json:"expected_hash,omitempty"`
	ActualHash      string  `json:"actual_hash,omitempty"`
	TerminalHash    *string `json:"terminal_hash,omitempty"`
}

// RebuildResult compares a recomputed chain against the stored one.
type RebuildResult struct {
	Scope              string  `json:"scope"`
	Length             int     `json:"length"`
	RebuiltTerminal    *string `json:"rebuilt_terminal_hash"`
	StoredTerminal     *string `json:"stored_terminal_hash"`
	MatchesStoredChain bool    `json:"matches_stored_chain"`
}

func (c *JournalClient) VerifyChain(correlationID string) (*VerifyResult, error) {
	var result VerifyResult
	if err := getJSON(c.client, c.baseURL+"/api/v1/chains/"+correlationID+"/verify", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *JournalClient) RebuildChain(correlationID string) (*RebuildResult, error) {
	var result RebuildResult
	if err := postJSON(c.client, c.baseURL+"/api/v1/chains/"+correlationID+"/rebuild", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *JournalClient) RebuildAudit() (*RebuildResult, error) {
	var result RebuildResult
	if err := postJSON(c.client, c.baseURL+"/api/v1/audit/rebuild", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *JournalClient) VerifyAudit() (*VerifyResult, error) {
	var result VerifyResult
	if err := getJSON(c.client, c.baseURL+"/api/v1/audit/verify", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
