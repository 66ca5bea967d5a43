package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "ing-1"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content type application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["id"] != "ing-1" {
		t.Errorf("expected id ing-1, got %q", body["id"])
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusConflict, "idempotency key conflict")

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "idempotency key conflict" {
		t.Errorf("unexpected error message: %q", body["error"])
	}
}

func TestWriteJSONAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONAPIError(rec, http.StatusUnprocessableEntity, "validation_error", "Invalid envelope", "normalized_envelope must be an object")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.api+json" {
		t.Errorf("expected JSON:API content type, got %q", ct)
	}

	var body struct {
		Errors []map[string]interface{} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(body.Errors))
	}
	if body.Errors[0]["code"] != "validation_error" {
		t.Errorf("unexpected error code: %v", body.Errors[0]["code"])
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingestions?page=3&limit=5000", nil)
	p := ParsePagination(req, 50, 1000)

	if p.Page != 3 {
		t.Errorf("expected page 3, got %d", p.Page)
	}
	if p.Limit != 1000 {
		t.Errorf("expected limit clamped to 1000, got %d", p.Limit)
	}
	if p.Offset() != 2000 {
		t.Errorf("expected offset 2000, got %d", p.Offset())
	}
}
