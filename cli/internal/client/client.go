// Package client holds thin HTTP clients for the platform services. Each
// client mirrors only the fields the CLI presents, not the full service
// models.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// apiError is the JSON error body every service writes.
type apiError struct {
	Error string `json:"error"`
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(c *http.Client, url string, out interface{}) error {
	resp, err := c.Get(url)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func postJSON(c *http.Client, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.Post(url, "application/json", reader)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}
