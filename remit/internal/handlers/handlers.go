package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/clearledger-systems/clearledger-stack/common/httputil"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/models"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/remit/internal/service"
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

// CreateContract handles POST /api/v1/contracts
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contract, err := h.service.CreateContract(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create contract")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, contract)
}

// GetContract handles GET /api/v1/contracts/:id
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/contracts/")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Contract ID required")
		return
	}

	contract, err := h.service.GetContract(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get contract")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, contract)
}

// ListContracts handles GET /api/v1/contracts
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r, 50, 200)

	contracts, total, err := h.service.ListContracts(r.Context(), p.Limit, p.Offset())
	if err != nil {
		h.writeServiceError(w, err, "Failed to list contracts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": contracts,
		"total":     total,
		"page":      p.Page,
		"limit":     p.Limit,
	})
}

// CreateCycle handles POST /api/v1/cycles
func (h *Handler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cycle, err := h.service.CreateCycle(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create cycle")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, cycle)
}

// GetCycle handles GET /api/v1/cycles/:id
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	id := cycleIDFromPath(r.URL.Path, "")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	cycle, err := h.service.GetCycle(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get cycle")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cycle)
}

// ListCycles handles GET /api/v1/cycles
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r, 50, 200)
	contractID := r.URL.Query().Get("contract_id")

	cycles, total, err := h.service.ListCycles(r.Context(), contractID, p.Limit, p.Offset())
	if err != nil {
		h.writeServiceError(w, err, "Failed to list cycles")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cycles": cycles,
		"total":  total,
		"page":   p.Page,
		"limit":  p.Limit,
	})
}

// AddCollection handles POST /api/v1/cycles/:id/collections
func (h *Handler) AddCollection(w http.ResponseWriter, r *http.Request) {
	id := cycleIDFromPath(r.URL.Path, "/collections")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	var req models.AddCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	collection, err := h.service.AddCollection(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to add collection")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, collection)
}

// LockCycle handles POST /api/v1/cycles/:id/lock
func (h *Handler) LockCycle(w http.ResponseWriter, r *http.Request) {
	id := cycleIDFromPath(r.URL.Path, "/lock")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	cycle, err := h.service.LockCycle(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to lock cycle")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cycle)
}

// CalculateWaterfall handles POST /api/v1/cycles/:id/waterfall
func (h *Handler) CalculateWaterfall(w http.ResponseWriter, r *http.Request) {
	id := cycleIDFromPath(r.URL.Path, "/waterfall")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	cycle, err := h.service.CalculateWaterfall(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to calculate waterfall")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cycle)
}

// ListItems handles GET /api/v1/cycles/:id/items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	id := cycleIDFromPath(r.URL.Path, "/items")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	items, err := h.service.ListItems(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list items")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cycle_id": id,
		"items":    items,
	})
}

// Export handles POST /api/v1/cycles/:id/export?format=csv|xml
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id := cycleIDFromPath(r.URL.Path, "/export")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	out, contentType, err := h.service.Export(r.Context(), id, format)
	if err != nil {
		h.writeServiceError(w, err, "Failed to export cycle")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="remittance_`+id+"."+format+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// MarkRemitted handles POST /api/v1/cycles/:id/remitted
func (h *Handler) MarkRemitted(w http.ResponseWriter, r *http.Request) {
	id := cycleIDFromPath(r.URL.Path, "/remitted")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Cycle ID required")
		return
	}

	cycle, err := h.service.MarkRemitted(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to mark cycle remitted")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cycle)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		httputil.WriteError(w, http.StatusBadRequest, verr.Error())
		return
	}
	var blocked *service.ReleaseBlockedError
	if errors.As(err, &blocked) {
		httputil.WriteError(w, http.StatusConflict, blocked.Error())
		return
	}
	switch {
	case errors.Is(err, repository.ErrContractNotFound), errors.Is(err, repository.ErrCycleNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrInvalidTransition):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("%s: %v", fallback, err)
		httputil.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

// cycleIDFromPath extracts the cycle id from /api/v1/cycles/:id<suffix>.
func cycleIDFromPath(path, suffix string) string {
	rest := strings.TrimPrefix(path, "/api/v1/cycles/")
	if rest == path {
		return ""
	}
	if suffix == "" {
		return rest
	}
	if !strings.HasSuffix(rest, suffix) {
		return ""
	}
	return strings.TrimSuffix(rest, suffix)
}
