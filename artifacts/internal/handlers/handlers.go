package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/models"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/service"
	"github.com/clearledger-systems/clearledger-stack/common/httputil"
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

// StoreArtifact handles POST /api/v1/artifacts
func (h *Handler) StoreArtifact(w http.ResponseWriter, r *http.Request) {
	var req models.StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	artifact, err := h.service.Store(r.Context(), &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Printf("Error storing artifact: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to store artifact")
		return
	}

	metrics.ArtifactsStored.WithLabelValues(artifact.Type, artifact.HashSource).Inc()
	httputil.WriteJSON(w, http.StatusCreated, artifact)
}

// StoreBatch handles POST /api/v1/artifacts/batch
func (h *Handler) StoreBatch(w http.ResponseWriter, r *http.Request) {
	var req models.StoreBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	artifacts, err := h.service.StoreBatch(r.Context(), &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Printf("Error storing artifact batch: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to store artifacts")
		return
	}

	for _, a := range artifacts {
		metrics.ArtifactsStored.WithLabelValues(a.Type, a.HashSource).Inc()
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"artifacts": artifacts,
		"count":     len(artifacts),
	})
}

// GetByIngestion handles GET /api/v1/ingestions/:id/artifacts
func (h *Handler) GetByIngestion(w http.ResponseWriter, r *http.Request) {
	ingestionID, ok := ingestionIDFromPath(r.URL.Path)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "Ingestion ID required")
		return
	}

	artifactType := r.URL.Query().Get("type")

	var (
		artifacts []*models.PaymentArtifact
		err       error
	)
	if artifactType != "" {
		artifacts, err = h.service.GetByIngestionAndType(r.Context(), ingestionID, artifactType)
	} else {
		artifacts, err = h.service.GetByIngestion(r.Context(), ingestionID)
	}
	if err != nil {
		log.Printf("Error getting artifacts: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to get artifacts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"artifacts": artifacts,
		"count":     len(artifacts),
	})
}

// VerifyHash handles POST /api/v1/artifacts/:id/verify
func (h *Handler) VerifyHash(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/artifacts/")
	id = strings.TrimSuffix(id, "/verify")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Artifact ID required")
		return
	}

	result, err := h.service.VerifyHash(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrArtifactNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Artifact not found")
			return
		}
		log.Printf("Error verifying artifact: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to verify artifact")
		return
	}

	outcome := "valid"
	if result.Unreachable {
		outcome = "unreachable"
	} else if !result.Valid {
		outcome = "mismatch"
	}
	metrics.Verifications.WithLabelValues(outcome).Inc()

	httputil.WriteJSON(w, http.StatusOK, result)
}

// DeleteByIngestion handles DELETE /api/v1/ingestions/:id/artifacts
func (h *Handler) DeleteByIngestion(w http.ResponseWriter, r *http.Request) {
	ingestionID, ok := ingestionIDFromPath(r.URL.Path)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "Ingestion ID required")
		return
	}

	deleted, err := h.service.DeleteByIngestion(r.Context(), ingestionID)
	if err != nil {
		log.Printf("Error deleting artifacts: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to delete artifacts")
		return
	}

	metrics.CascadeDeletes.Add(float64(deleted))
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
	})
}

// ingestionIDFromPath extracts :id from /api/v1/ingestions/:id/artifacts
func ingestionIDFromPath(path string) (string, bool) {
	rest := strings.TrimPrefix(path, "/api/v1/ingestions/")
	if rest == path || !strings.HasSuffix(rest, "/artifacts") {
		return "", false
	}
	id := strings.TrimSuffix(rest, "/artifacts")
	return id, id != ""
}
