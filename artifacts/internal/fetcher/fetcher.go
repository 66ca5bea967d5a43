package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrNotFetchable marks locators whose scheme cannot be dereferenced
	// directly (s3://, gs://, opaque references). Callers fall back to a
	// locator-derived hash.
	ErrNotFetchable = errors.New("locator is not directly fetchable")

	// ErrUnreachable marks locators that should be fetchable but were not,
	// within the bounded timeout.
	ErrUnreachable = errors.New("locator unreachable")
)

// Fetcher retrieves artifact content from a locator URI.
type Fetcher interface {
	Fetch(ctx context.Context, locatorURI string) ([]byte, error)
}

// HTTPFetcher dereferences http(s) locators with a bounded timeout so
// verification can never hang on a slow object store.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration, maxSize int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxSize <= 0 {
		maxSize = 32 << 20 // 32 MiB
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, locatorURI string) ([]byte, error) {
	u, err := url.Parse(locatorURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFetchable, locatorURI)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrNotFetchable, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locatorURI, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return body, nil
}
