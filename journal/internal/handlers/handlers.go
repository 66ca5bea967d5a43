package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/clearledger-systems/clearledger-stack/common/httputil"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/models"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/service"
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

// AppendEvent handles POST /api/v1/events
func (h *Handler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var req models.AppendEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.service.Append(r.Context(), &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Printf("Error appending event: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to append event")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /api/v1/chains/:correlationID
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	correlationID := chainFromPath(r.URL.Path, "")
	if correlationID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Correlation ID required")
		return
	}

	events, err := h.service.ListEvents(r.Context(), correlationID)
	if err != nil {
		log.Printf("Error listing events: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"correlation_id": correlationID,
		"events":         events,
		"length":         len(events),
	})
}

// VerifyChain handles GET /api/v1/chains/:correlationID/verify
func (h *Handler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	correlationID := chainFromPath(r.URL.Path, "/verify")
	if correlationID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Correlation ID required")
		return
	}

	start := time.Now()
	resp, err := h.service.VerifyChain(r.Context(), correlationID)
	if err != nil {
		log.Printf("Error verifying chain: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to verify chain")
		return
	}
	metrics.VerifyDuration.Observe(time.Since(start).Seconds())

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// RebuildChain handles POST /api/v1/chains/:correlationID/rebuild
func (h *Handler) RebuildChain(w http.ResponseWriter, r *http.Request) {
	correlationID := chainFromPath(r.URL.Path, "/rebuild")
	if correlationID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Correlation ID required")
		return
	}

	resp, err := h.service.RebuildChain(r.Context(), correlationID)
	if err != nil {
		log.Printf("Error rebuilding chain: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to rebuild chain")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// ListChains handles GET /api/v1/chains
func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r, 50, 200)

	ids, total, err := h.service.ListCorrelations(r.Context(), p.Limit, p.Offset())
	if err != nil {
		log.Printf("Error listing chains: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list chains")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"correlation_ids": ids,
		"total":           total,
		"page":            p.Page,
		"limit":           p.Limit,
	})
}

// AppendAudit handles POST /api/v1/audit
func (h *Handler) AppendAudit(w http.ResponseWriter, r *http.Request) {
	var req models.AppendAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.service.AppendAudit(r.Context(), &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Printf("Error appending audit entry: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to append audit entry")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// ListAudit handles GET /api/v1/audit
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r, 50, 200)

	entries, total, err := h.service.ListAudit(r.Context(), p.Limit, p.Offset())
	if err != nil {
		log.Printf("Error listing audit entries: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list audit entries")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"page":    p.Page,
		"limit":   p.Limit,
	})
}

// VerifyAudit handles GET /api/v1/audit/verify
func (h *Handler) VerifyAudit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp, err := h.service.VerifyAuditChain(r.Context())
	if err != nil {
		log.Printf("Error verifying audit chain: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to verify audit chain")
		return
	}
	metrics.VerifyDuration.Observe(time.Since(start).Seconds())

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// RebuildAudit handles POST /api/v1/audit/rebuild
func (h *Handler) RebuildAudit(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.RebuildAuditChain(r.Context())
	if err != nil {
		log.Printf("Error rebuilding audit chain: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to rebuild audit chain")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// chainFromPath extracts the correlation id from /api/v1/chains/:id<suffix>.
func chainFromPath(path, suffix string) string {
	rest := strings.TrimPrefix(path, "/api/v1/chains/")
	if rest == path {
		return ""
	}
	if suffix == "" {
		return rest
	}
	return strings.TrimSuffix(rest, suffix)
}
