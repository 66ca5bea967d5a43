package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Actor classes allowed on journal entries. Unknown classes are rejected at
// the boundary, never coerced.
const (
	ActorSystem = "system"
	ActorHuman  = "human"
	ActorAI     = "ai"
)

// AuditScope is the chain scope of the system-wide compliance audit log.
// Payment event chains are scoped per correlation id.
const AuditScope = "audit"

// ValidActorType reports whether actorType is in the closed enumeration.
func ValidActorType(actorType string) bool {
	switch actorType {
	case ActorSystem, ActorHuman, ActorAI:
		return true
	}
	return false
}

// PaymentEvent is one link in a correlation-scoped hash chain recording a
// payment state transition.
type PaymentEvent struct {
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlation_id"`
	SequenceNum   int64           `json:"sequence_num"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	ActorType     string          `json:"actor_type"`
	ActorID       string          `json:"actor_id"`
	Hash          string          `json:"hash"`
	PrevHash      *string         `json:"prev_hash"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AuditEntry is one link in the system-wide compliance audit chain.
type AuditEntry struct {
	ID          string          `json:"id"`
	SequenceNum int64           `json:"sequence_num"`
	Action      string          `json:"action"`
	Data        json.RawMessage `json:"data"`
	ActorType   string          `json:"actor_type"`
	ActorID     string          `json:"actor_id"`
	Hash        string          `json:"hash"`
	PrevHash    *string         `json:"prev_hash"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AppendEventRequest appends one payment event to a correlation chain.
type AppendEventRequest struct {
	CorrelationID string          `json:"correlation_id"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	ActorType     string          `json:"actor_type"`
	ActorID       string          `json:"actor_id"`
}

// Validate checks boundary rules before any persistence happens.
func (r *AppendEventRequest) Validate() error {
	if r.CorrelationID == "" {
		return fmt.Errorf("correlation_id is required")
	}
	if r.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if !ValidActorType(r.ActorType) {
		return fmt.Errorf("unknown actor type %q", r.ActorType)
	}
	return nil
}

// AppendAuditRequest appends one entry to the compliance audit chain.
type AppendAuditRequest struct {
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
	ActorType string          `json:"actor_type"`
	ActorID   string          `json:"actor_id"`
}

func (r *AppendAuditRequest) Validate() error {
	if r.Action == "" {
		return fmt.Errorf("action is required")
	}
	if !ValidActorType(r.ActorType) {
		return fmt.Errorf("unknown actor type %q", r.ActorType)
	}
	return nil
}

// VerifyChainResponse reports a chain walk outcome. DiscontinuityAt is the
// zero-based index of the first broken link, -1 when the chain is intact.
type VerifyChainResponse struct {
	Scope           string  `json:"scope"`
	Valid           bool    `json:"valid"`
	Length          int     `json:"length"`
	DiscontinuityAt int     `json:"discontinuity_at"`
	ExpectedHash    string  `json:"expected_hash,omitempty"`
	ActualHash      string  `json:"actual_hash,omitempty"`
	TerminalHash    *string `json:"terminal_hash,omitempty"`
}

// RebuildChainResponse carries the authoritative terminal hash recomputed
// purely from stored data, plus whether it agrees with the stored chain.
type RebuildChainResponse struct {
	Scope              string  `json:"scope"`
	Length             int     `json:"length"`
	RebuiltTerminal    *string `json:"rebuilt_terminal_hash"`
	StoredTerminal     *string `json:"stored_terminal_hash"`
	MatchesStoredChain bool    `json:"matches_stored_chain"`
}
