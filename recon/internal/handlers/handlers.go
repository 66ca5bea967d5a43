package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/clearledger-systems/clearledger-stack/common/httputil"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/models"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/remitclient"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Generate handles POST /api/v1/reconciliations. An unbalanced result is
// still a created snapshot: the variance is reported in the body, not as a
// request failure.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		var varErr *service.VarianceError
		if errors.As(err, &varErr) {
			httputil.WriteJSON(w, http.StatusCreated, snapshot)
			return
		}
		var valErr *service.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteError(w, http.StatusBadRequest, valErr.Error())
			return
		}
		if errors.Is(err, remitclient.ErrCycleNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Cycle not found")
			return
		}
		log.Printf("Error generating reconciliation: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to generate reconciliation")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, snapshot)
}

// ListSnapshots handles GET /api/v1/cycles/:id/reconciliations
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	cycleID := cycleIDFromPath(r.URL.Path, "/reconciliations")
	if cycleID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	snapshots, err := h.service.ListSnapshots(r.Context(), cycleID)
	if err != nil {
		log.Printf("Error listing snapshots: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cycle_id":  cycleID,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// LatestSnapshot handles GET /api/v1/cycles/:id/reconciliations/latest.
// The remit export gate consumes this endpoint; 404 means no reconciliation
// has run yet.
func (h *Handler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	cycleID := cycleIDFromPath(r.URL.Path, "/reconciliations/latest")
	if cycleID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	snapshot, err := h.service.LatestSnapshot(r.Context(), cycleID)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "No reconciliation snapshot for cycle")
			return
		}
		log.Printf("Error fetching latest snapshot: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to fetch snapshot")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

func cycleIDFromPath(path, suffix string) string {
	if !strings.HasSuffix(path, suffix) {
		return ""
	}
	trimmed := strings.TrimSuffix(path, suffix)
	return strings.TrimPrefix(trimmed, "/api/v1/cycles/")
}
