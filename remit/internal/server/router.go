package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clearledger-systems/clearledger-stack/common/middleware"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/handlers"
)

// NewRouter constructs a ServeMux with remit API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	// Contract routes
	mux.HandleFunc("/api/v1/contracts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.CreateContract(w, r)
		} else if r.Method == http.MethodGet {
			h.ListContracts(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/contracts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetContract(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Cycle lifecycle routes
	mux.HandleFunc("/api/v1/cycles", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.CreateCycle(w, r)
		} else if r.Method == http.MethodGet {
			h.ListCycles(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/cycles/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/collections") && r.Method == http.MethodPost:
			h.AddCollection(w, r)
		case strings.HasSuffix(r.URL.Path, "/lock") && r.Method == http.MethodPost:
			h.LockCycle(w, r)
		case strings.HasSuffix(r.URL.Path, "/waterfall") && r.Method == http.MethodPost:
			h.CalculateWaterfall(w, r)
		case strings.HasSuffix(r.URL.Path, "/items") && r.Method == http.MethodGet:
			h.ListItems(w, r)
		case strings.HasSuffix(r.URL.Path, "/export") && r.Method == http.MethodPost:
			h.Export(w, r)
		case strings.HasSuffix(r.URL.Path, "/remitted") && r.Method == http.MethodPost:
			h.MarkRemitted(w, r)
		case r.Method == http.MethodGet:
			h.GetCycle(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return middleware.RequestID(mux)
}
