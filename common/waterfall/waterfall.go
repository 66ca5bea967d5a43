// Package waterfall implements priority-ordered allocation of a payment
// amount across obligation buckets. Allocation is a pure computation on
// arbitrary-precision decimals: no I/O, no shared state, safe to run in
// parallel across payments.
package waterfall

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// SuspenseBucket receives any amount left after all obligations are
// satisfied, pending manual resolution.
const SuspenseBucket = "suspense"

// Bucket is one obligation competing for the payment amount. Required is the
// outstanding amount in minor units; a negative Required is a credit balance
// and is skipped, not treated as extra capacity.
type Bucket struct {
	Name     string
	Rank     int
	Required decimal.Decimal
}

// Allocation records how much of the payment one bucket received.
type Allocation struct {
	Bucket    string
	Rank      int
	Allocated decimal.Decimal
}

// Result is the full outcome of an allocation run. The sum of all bucket
// allocations plus Suspense always equals the input amount exactly.
type Result struct {
	Allocations []Allocation
	Suspense    decimal.Decimal
}

// Total returns the sum of all allocations including suspense.
func (r Result) Total() decimal.Decimal {
	total := r.Suspense
	for _, a := range r.Allocations {
		total = total.Add(a.Allocated)
	}
	return total
}

// Get returns the allocation for the named bucket, or zero if absent.
func (r Result) Get(name string) decimal.Decimal {
	for _, a := range r.Allocations {
		if a.Bucket == name {
			return a.Allocated
		}
	}
	return decimal.Zero
}

// Allocate distributes amount across buckets in strict priority order. Lower
// Rank fills first; ties break by declaration order (stable sort). Buckets
// with negative requirements receive zero. The remainder, if any, lands in
// suspense. A negative payment amount is rejected.
func Allocate(amount decimal.Decimal, buckets []Bucket) (Result, error) {
	if amount.IsNegative() {
		return Result{}, fmt.Errorf("waterfall: negative payment amount %s", amount.String())
	}

	ordered := make([]Bucket, len(buckets))
	copy(ordered, buckets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank < ordered[j].Rank
	})

	remaining := amount
	allocations := make([]Allocation, 0, len(ordered))
	for _, b := range ordered {
		alloc := Allocation{Bucket: b.Name, Rank: b.Rank, Allocated: decimal.Zero}
		if b.Required.IsPositive() && remaining.IsPositive() {
			alloc.Allocated = decimal.Min(b.Required, remaining)
			remaining = remaining.Sub(alloc.Allocated)
		}
		allocations = append(allocations, alloc)
	}

	return Result{
		Allocations: allocations,
		Suspense:    remaining,
	}, nil
}
