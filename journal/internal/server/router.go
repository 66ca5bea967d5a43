package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clearledger-systems/clearledger-stack/common/middleware"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/handlers"
)

// NewRouter constructs a ServeMux with journal API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	// Event append
	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.AppendEvent(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Chain routes
	mux.HandleFunc("/api/v1/chains", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.ListChains(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/chains/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/verify"):
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.VerifyChain(w, r)
		case strings.HasSuffix(r.URL.Path, "/rebuild"):
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.RebuildChain(w, r)
		default:
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.ListEvents(w, r)
		}
	})

	// Audit chain routes
	mux.HandleFunc("/api/v1/audit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.AppendAudit(w, r)
		} else if r.Method == http.MethodGet {
			h.ListAudit(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/audit/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.VerifyAudit(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/audit/rebuild", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.RebuildAudit(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return middleware.RequestID(mux)
}
