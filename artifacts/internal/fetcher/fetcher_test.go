package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("check image bytes"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, 0)
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("check image bytes"), body)
}

func TestHTTPFetcher_NonFetchableSchemes(t *testing.T) {
	f := NewHTTPFetcher(time.Second, 0)

	for _, locator := range []string{
		"s3://evidence-bucket/check-123.png",
		"gs://evidence/wire-receipt.pdf",
		"lockbox://batch/42",
	} {
		_, err := f.Fetch(context.Background(), locator)
		assert.ErrorIs(t, err, ErrNotFetchable, locator)
	}
}

func TestHTTPFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, 0)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestHTTPFetcher_TimeoutDegradesToUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(20*time.Millisecond, 0)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreachable), "timeouts must degrade to unreachable, got %v", err)
}
