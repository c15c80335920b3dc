/*
Package generic provides the calendar and numeric primitives of the bond engine.

PURPOSE:
  Domain-agnostic building blocks shared by the rate store, the accrual
  engine and the profit aggregator. Nothing in here knows what a bond is.

KEY CONCEPTS:
  - Date: A calendar day with month/year boundary queries (time.go)
  - Offset: A signed years/months/days distance with clamping arithmetic (offset.go)
  - Period / PeriodType: Closed day spans and reset frequencies (period.go)
  - Rounding: Half-to-even rounding at the precisions the engine uses (this file)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Banker's rounding: capital rounds to 2 places, daily interest to 8,
     both half-to-even. Published bond tables depend on it.
  3. Calendar correctness: month arithmetic clamps to month end instead of
     overflowing into the next month.

USAGE:
  buy := generic.NewDate(2024, time.January, 1)
  maturity, _ := generic.NewMaturity(generic.Years(1))
  end := buy.Add(maturity) // 2025-01-01

SEE ALSO:
  - errors.go: Error taxonomy
  - bond/bond.go: Main consumer
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING
// =============================================================================

const (
	// CapitalPlaces is the precision of capital and capitalized interest.
	CapitalPlaces int32 = 2

	// InterestPlaces is the precision of a single day's interest.
	InterestPlaces int32 = 8
)

var (
	Hundred = decimal.NewFromInt(100)
	Twelve  = decimal.NewFromInt(12)
)

// RoundCapital rounds half-to-even to 2 places.
func RoundCapital(d decimal.Decimal) decimal.Decimal { return d.RoundBank(CapitalPlaces) }

// RoundInterest rounds half-to-even to 8 places.
func RoundInterest(d decimal.Decimal) decimal.Decimal { return d.RoundBank(InterestPlaces) }

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// MustParseDecimal parses s and panics when it is not a decimal.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("generic: invalid decimal %q: %v", s, err))
	}
	return d
}

// Decimals converts float literals (rate tables, fixtures) to decimals.
func Decimals(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

// MinDecimal returns the smaller value.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
