// Package money defines the amount representation used throughout the
// payment-ledger core. Amounts are integer minor units from the moment they
// enter the system; conversion to and from decimal strings happens only at
// the boundary, and floating point is never involved.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Minor is an amount in integer minor units (cents for USD).
type Minor int64

// FromDecimalString parses a decimal amount string (e.g. "1500.00") into
// minor units, rejecting values with sub-minor-unit precision.
func FromDecimalString(s string) (Minor, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money: parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal amount of major units into minor units.
// Fractional minor units are rejected rather than rounded: rounding at the
// ingestion boundary is exactly the drift this core exists to prevent.
func FromDecimal(d decimal.Decimal) (Minor, error) {
	scaled := d.Mul(decimal.NewFromInt(100))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("money: amount %s has sub-minor-unit precision", d.String())
	}
	return Minor(scaled.IntPart()), nil
}

// ToDecimal returns the amount as a decimal of major units.
func (m Minor) ToDecimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Decimal returns the amount as a decimal of minor units, for exact
// arithmetic in the waterfall allocator.
func (m Minor) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

// String formats the amount as a major-unit decimal string ("1500.00").
func (m Minor) String() string {
	return m.ToDecimal().StringFixed(2)
}

// BpsOf computes basis points of a total in pure integer arithmetic,
// truncating toward zero. Used for servicer fee calculation.
func BpsOf(total Minor, bps int64) Minor {
	return Minor(int64(total) * bps / 10000)
}
