package models

import "time"

// HashSource records how an artifact's content hash was derived. A locator
// hash is a best-effort fingerprint of the URI, not a guarantee over the
// object's bytes, so the two must never be conflated.
const (
	HashSourceContent = "content"
	HashSourceLocator = "locator"
)

// PaymentArtifact is the evidentiary record for a source document backing a
// payment (check image, wire receipt). Artifacts live and die with their
// owning ingestion.
type PaymentArtifact struct {
	ID          string            `json:"id"`
	IngestionID string            `json:"ingestion_id"`
	Type        string            `json:"type"`
	LocatorURI  string            `json:"locator_uri"`
	ContentHash string            `json:"content_hash"`
	HashSource  string            `json:"hash_source"`
	SizeBytes   int64             `json:"size_bytes"`
	MIMEType    string            `json:"mime_type,omitempty"`
	SourceMeta  map[string]string `json:"source_meta,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// StoreRequest is the payload for creating one artifact.
type StoreRequest struct {
	IngestionID string            `json:"ingestion_id"`
	Type        string            `json:"type"`
	LocatorURI  string            `json:"locator_uri"`
	ContentHash string            `json:"content_hash,omitempty"`
	MIMEType    string            `json:"mime_type,omitempty"`
	SourceMeta  map[string]string `json:"source_meta,omitempty"`
}

// StoreBatchRequest creates several artifacts for one ingestion at once.
type StoreBatchRequest struct {
	Artifacts []StoreRequest `json:"artifacts"`
}

// VerifyResult reports a hash verification outcome. Mismatches keep the
// artifact queryable; Valid=false is a finding, not a failure.
type VerifyResult struct {
	ArtifactID   string `json:"artifact_id"`
	Valid        bool   `json:"valid"`
	StoredHash   string `json:"stored_hash"`
	ComputedHash string `json:"computed_hash,omitempty"`
	HashSource   string `json:"hash_source"`
	Unreachable  bool   `json:"unreachable,omitempty"`
}
