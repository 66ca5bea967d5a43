package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clearledger-systems/clearledger-stack/common/middleware"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/handlers"
)

// NewRouter constructs a ServeMux with reconciliation API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/reconciliations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Generate(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/cycles/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/reconciliations/latest") && r.Method == http.MethodGet:
			h.LatestSnapshot(w, r)
		case strings.HasSuffix(r.URL.Path, "/reconciliations") && r.Method == http.MethodGet:
			h.ListSnapshots(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return middleware.RequestID(mux)
}
