package models

import (
	"fmt"
	"time"
)

// Ledger account codes this core reconciles against. The ledger itself is
// owned by an external system; entries are read, never written.
const (
	AccountInvestorPayable   = "investor_payable"
	AccountServicerFeeIncome = "servicer_fee_income"
)

// Ledger entry types.
const (
	EntryDebit  = "debit"
	EntryCredit = "credit"
)

// LedgerEntry is one movement in the external general ledger, tagged with
// the remittance cycle it belongs to.
type LedgerEntry struct {
	ID            string    `json:"id"`
	AccountCode   string    `json:"account_code"`
	EntryType     string    `json:"entry_type"`
	AmountMinor   int64     `json:"amount_minor"`
	EffectiveDate time.Time `json:"effective_date"`
	CycleID       string    `json:"cycle_id"`
}

// ReconciliationSnapshot captures both sides of a cycle reconciliation at a
// point in time. Immutable once created; re-runs create new snapshots and
// the most recent one is authoritative.
type ReconciliationSnapshot struct {
	ID      string `json:"id"`
	CycleID string `json:"cycle_id"`

	RemitInvestorMinor  int64 `json:"remit_investor_minor"`
	RemitServicerMinor  int64 `json:"remit_servicer_minor"`
	LedgerInvestorMinor int64 `json:"ledger_investor_minor"`
	LedgerServicerMinor int64 `json:"ledger_servicer_minor"`

	// Signed differences, ledger minus remittance.
	DiffInvestorMinor int64 `json:"diff_investor_minor"`
	DiffServicerMinor int64 `json:"diff_servicer_minor"`
	DiffTotalMinor    int64 `json:"diff_total_minor"`

	IsBalanced             bool      `json:"is_balanced"`
	VarianceThresholdMinor int64     `json:"variance_threshold_minor"`
	Reviewer               string    `json:"reviewer"`
	CreatedAt              time.Time `json:"created_at"`
}

// GenerateRequest asks for a reconciliation run.
type GenerateRequest struct {
	CycleID  string `json:"cycle_id"`
	Reviewer string `json:"reviewer"`
}

// Validate checks boundary rules before any computation happens.
func (r *GenerateRequest) Validate() error {
	if r.CycleID == "" {
		return fmt.Errorf("cycle_id is required")
	}
	if r.Reviewer == "" {
		return fmt.Errorf("reviewer is required")
	}
	return nil
}
