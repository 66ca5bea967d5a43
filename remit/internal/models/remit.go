package models

import (
	"fmt"
	"time"
)

// Cycle statuses. Transitions move strictly forward:
// open -> locked -> file_generated -> remitted.
const (
	StatusOpen          = "open"
	StatusLocked        = "locked"
	StatusFileGenerated = "file_generated"
	StatusRemitted      = "remitted"
)

// Collection buckets recognized by the waterfall.
const (
	BucketPrincipal = "principal"
	BucketInterest  = "interest"
	BucketFees      = "fees"
)

var validBuckets = map[string]bool{
	BucketPrincipal: true,
	BucketInterest:  true,
	BucketFees:      true,
}

// ValidBucket reports whether bucket is in the closed enumeration.
func ValidBucket(bucket string) bool {
	return validBuckets[bucket]
}

// WaterfallRule orders one bucket within a contract's waterfall. CapMinor,
// when set, limits how much the bucket may absorb per loan.
type WaterfallRule struct {
	Rank     int    `json:"rank"`
	Bucket   string `json:"bucket"`
	CapMinor *int64 `json:"cap_minor,omitempty"`
}

// InvestorContract defines how collections for one investor are split and
// when cycles cut off.
type InvestorContract struct {
	ID               string          `json:"id"`
	InvestorID       string          `json:"investor_id"`
	ProductCode      string          `json:"product_code"`
	RemittanceMethod string          `json:"remittance_method"`
	RemittanceDay    int             `json:"remittance_day"`
	CutoffDay        int             `json:"cutoff_day"`
	ServicerFeeBps   int64           `json:"servicer_fee_bps"`
	LateFeeSplitBps  int64           `json:"late_fee_split_bps"`
	Rules            []WaterfallRule `json:"rules"`
	CreatedAt        time.Time       `json:"created_at"`
}

// RemittanceCycle is a time-boxed aggregation of loan collections for one
// contract.
type RemittanceCycle struct {
	ID                  string     `json:"id"`
	ContractID          string     `json:"contract_id"`
	PeriodStart         time.Time  `json:"period_start"`
	PeriodEnd           time.Time  `json:"period_end"`
	Status              string     `json:"status"`
	TotalPrincipalMinor int64      `json:"total_principal_minor"`
	TotalInterestMinor  int64      `json:"total_interest_minor"`
	TotalFeesMinor      int64      `json:"total_fees_minor"`
	SuspenseMinor       int64      `json:"suspense_minor"`
	ServicerFeeMinor    int64      `json:"servicer_fee_minor"`
	InvestorDueMinor    int64      `json:"investor_due_minor"`
	CreatedAt           time.Time  `json:"created_at"`
	LockedAt            *time.Time `json:"locked_at,omitempty"`
	RemittedAt          *time.Time `json:"remitted_at,omitempty"`
}

// Collection is one loan-level amount received within a cycle's period,
// attributed to an obligation bucket.
type Collection struct {
	ID          string    `json:"id"`
	CycleID     string    `json:"cycle_id"`
	LoanID      string    `json:"loan_id"`
	Bucket      string    `json:"bucket"`
	AmountMinor int64     `json:"amount_minor"`
	ReceivedAt  time.Time `json:"received_at"`
}

// RemittanceItem is the per-loan decomposition of a cycle's totals. The sum
// of all items reconstructs the cycle exactly.
type RemittanceItem struct {
	ID                 string `json:"id"`
	CycleID            string `json:"cycle_id"`
	LoanID             string `json:"loan_id"`
	PrincipalMinor     int64  `json:"principal_minor"`
	InterestMinor      int64  `json:"interest_minor"`
	FeesMinor          int64  `json:"fees_minor"`
	SuspenseMinor      int64  `json:"suspense_minor"`
	InvestorShareMinor int64  `json:"investor_share_minor"`
	ServicerFeeMinor   int64  `json:"servicer_fee_minor"`
}

// CreateContractRequest carries a new contract definition.
type CreateContractRequest struct {
	InvestorID       string          `json:"investor_id"`
	ProductCode      string          `json:"product_code"`
	RemittanceMethod string          `json:"remittance_method"`
	RemittanceDay    int             `json:"remittance_day"`
	CutoffDay        int             `json:"cutoff_day"`
	ServicerFeeBps   int64           `json:"servicer_fee_bps"`
	LateFeeSplitBps  int64           `json:"late_fee_split_bps"`
	Rules            []WaterfallRule `json:"rules"`
}

// Validate checks boundary rules before any persistence happens.
func (r *CreateContractRequest) Validate() error {
	if r.InvestorID == "" {
		return fmt.Errorf("investor_id is required")
	}
	if r.ProductCode == "" {
		return fmt.Errorf("product_code is required")
	}
	if r.ServicerFeeBps < 0 || r.ServicerFeeBps > 10000 {
		return fmt.Errorf("servicer_fee_bps must be between 0 and 10000")
	}
	if len(r.Rules) == 0 {
		return fmt.Errorf("at least one waterfall rule is required")
	}
	seen := make(map[string]bool, len(r.Rules))
	for _, rule := range r.Rules {
		if !ValidBucket(rule.Bucket) {
			return fmt.Errorf("unknown waterfall bucket %q", rule.Bucket)
		}
		if seen[rule.Bucket] {
			return fmt.Errorf("duplicate waterfall bucket %q", rule.Bucket)
		}
		seen[rule.Bucket] = true
		if rule.CapMinor != nil && *rule.CapMinor < 0 {
			return fmt.Errorf("cap_minor must not be negative")
		}
	}
	return nil
}

// CreateCycleRequest opens a new cycle for a contract.
type CreateCycleRequest struct {
	ContractID  string    `json:"contract_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Validate checks boundary rules before any persistence happens.
func (r *CreateCycleRequest) Validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("contract_id is required")
	}
	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		return fmt.Errorf("period_start and period_end are required")
	}
	if !r.PeriodEnd.After(r.PeriodStart) {
		return fmt.Errorf("period_end must be after period_start")
	}
	return nil
}

// AddCollectionRequest records one loan-level amount against a cycle.
type AddCollectionRequest struct {
	LoanID      string `json:"loan_id"`
	Bucket      string `json:"bucket"`
	AmountMinor int64  `json:"amount_minor"`
}

// Validate checks boundary rules before any persistence happens.
func (r *AddCollectionRequest) Validate() error {
	if r.LoanID == "" {
		return fmt.Errorf("loan_id is required")
	}
	if !ValidBucket(r.Bucket) {
		return fmt.Errorf("unknown bucket %q", r.Bucket)
	}
	if r.AmountMinor <= 0 {
		return fmt.Errorf("amount_minor must be positive")
	}
	return nil
}
