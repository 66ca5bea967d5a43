package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/clearledger-systems/clearledger-stack/common/httputil"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/dlq"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/idempotency"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/metrics"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/models"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/service"
)

type Handler struct {
	service *service.Service
	queue   dlq.Queue
}

func NewHandler(service *service.Service, queue dlq.Queue) *Handler {
	if queue == nil {
		queue = dlq.NopQueue{}
	}
	return &Handler{
		service: service,
		queue:   queue,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// IngestPayment handles POST /api/v1/payments
func (h *Handler) IngestPayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Ingest(r.Context(), &req)
	if err != nil {
		var verr *idempotency.ValidationError
		if errors.As(err, &verr) {
			metrics.PaymentsTotal.WithLabelValues(req.Channel, "rejected").Inc()
			httputil.WriteError(w, http.StatusBadRequest, verr.Error())
			return
		}
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			metrics.ConflictsTotal.Inc()
			metrics.PaymentsTotal.WithLabelValues(req.Channel, "rejected").Inc()
			httputil.WriteError(w, http.StatusConflict, conflict.Error())
			return
		}
		log.Printf("Error ingesting payment: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to ingest payment")
		return
	}

	metrics.AdmissionDuration.Observe(time.Since(start).Seconds())
	if resp.Duplicate {
		metrics.DuplicatesTotal.WithLabelValues(resp.Ingestion.Channel).Inc()
		metrics.PaymentsTotal.WithLabelValues(resp.Ingestion.Channel, "duplicate").Inc()
		httputil.WriteJSON(w, http.StatusOK, resp)
		return
	}

	metrics.PaymentsTotal.WithLabelValues(resp.Ingestion.Channel, "admitted").Inc()
	metrics.AmountMinorTotal.WithLabelValues(resp.Ingestion.Channel).Add(float64(resp.Ingestion.AmountMinor))
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// GetPayment handles GET /api/v1/payments/:id
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/payments/")
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Payment ID required")
		return
	}

	ing, err := h.service.GetIngestion(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrIngestionNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Payment not found")
			return
		}
		log.Printf("Error getting payment: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to get payment")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ing)
}

// GetPaymentByKey handles GET /api/v1/payments/keys/:key
func (h *Handler) GetPaymentByKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/v1/payments/keys/")
	if key == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Idempotency key required")
		return
	}

	ing, err := h.service.GetByIdempotencyKey(r.Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrIngestionNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Payment not found")
			return
		}
		log.Printf("Error getting payment by key: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to get payment")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ing)
}

// ListPayments handles GET /api/v1/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	page := httputil.ParsePagination(r, 50, 100)
	filter := repository.ListFilter{
		LoanID:  r.URL.Query().Get("loan_id"),
		Channel: r.URL.Query().Get("channel"),
		Limit:   page.Limit,
		Offset:  page.Offset(),
	}

	ingestions, total, err := h.service.ListIngestions(r.Context(), filter)
	if err != nil {
		log.Printf("Error listing payments: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list payments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payments": ingestions,
		"total":    total,
		"page":     page.Page,
		"limit":    page.Limit,
	})
}

// DLQStats handles GET /api/v1/dlq/stats
func (h *Handler) DLQStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.queue.Stats(r.Context()))
}

// DLQList handles GET /api/v1/dlq
func (h *Handler) DLQList(w http.ResponseWriter, r *http.Request) {
	limit := httputil.ParseIntParam(r.URL.Query().Get("limit"), 100)

	failed, err := h.queue.List(r.Context(), limit)
	if err != nil {
		log.Printf("Error listing DLQ: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list dead letter queue")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"failed": failed,
		"count":  len(failed),
	})
}
