package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/handlers"
	authmw "github.com/clearledger-systems/clearledger-stack/artifacts/internal/middleware"
	"github.com/clearledger-systems/clearledger-stack/common/middleware"
)

// NewRouter constructs a ServeMux with artifact API routes registered.
// When jwtSecret is non-empty the API routes require a Bearer token;
// health and metrics stay open for probes and scrapers.
func NewRouter(h *handlers.Handler, jwtSecret string) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("/api/v1/artifacts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.StoreArtifact(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	api.HandleFunc("/api/v1/artifacts/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.StoreBatch(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// POST /api/v1/artifacts/:id/verify
	api.HandleFunc("/api/v1/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/verify") {
			h.VerifyHash(w, r)
		} else {
			http.Error(w, "Not found", http.StatusNotFound)
		}
	})

	// GET|DELETE /api/v1/ingestions/:id/artifacts
	api.HandleFunc("/api/v1/ingestions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetByIngestion(w, r)
		} else if r.Method == http.MethodDelete {
			h.DeleteByIngestion(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	var apiHandler http.Handler = api
	if jwtSecret != "" {
		apiHandler = authmw.Auth(jwtSecret, api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", apiHandler)

	return middleware.RequestID(mux)
}
