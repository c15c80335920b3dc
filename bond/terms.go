package bond

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/generic"
	"github.com/warp/bond-engine/rates"
)

// =============================================================================
// TERMS - What the issuer promises
// =============================================================================

// Terms are the contractual parameters of one bond series.
type Terms struct {
	// Maturity is the length of one instance (years and/or months).
	Maturity generic.Offset

	// InitialRate applies to the first reset period (whole first instance for
	// constant-rate bonds), in percent per year.
	InitialRate decimal.Decimal

	// Source is the reference series later periods read, plus Premium.
	Source  rates.SeriesName
	Premium decimal.Decimal

	// Period is the reset frequency: monthly or yearly.
	Period generic.PeriodType

	BuyDate generic.Date

	// Capitalization adds each period's rounded interest to the capital of
	// the next period of the same instance.
	Capitalization bool

	// ContinuationPremium is paid on the first day of every rolled-over instance.
	ContinuationPremium decimal.Decimal

	InitialCapital decimal.Decimal

	// EarlyBuyoutCost caps what is lost when redeeming before maturity.
	EarlyBuyoutCost decimal.Decimal

	// MarkEarlyBuyoutNotApplicable blanks the cost in the first 7 and last 20
	// days of every instance, when early redemption is not offered.
	MarkEarlyBuyoutNotApplicable bool

	// ConstantRate reads the reference once per instance instead of once per period.
	ConstantRate bool
}

var (
	defaultContinuationPremium = decimal.RequireFromString("0.1")
	defaultInitialCapital      = decimal.NewFromInt(100)
)

// DefaultTerms returns yearly resets bought today, 100 of capital and a 0.1
// continuation premium. Callers fill in maturity, rates and source.
func DefaultTerms() Terms {
	return Terms{
		Period:              generic.PeriodYearly,
		BuyDate:             generic.Today(),
		ContinuationPremium: defaultContinuationPremium,
		InitialCapital:      defaultInitialCapital,
	}
}

// MaturityDate is the end of the first instance.
func (t Terms) MaturityDate() generic.Date {
	return t.BuyDate.Add(t.Maturity)
}

// Validate reports what New would reject.
func (t Terms) Validate() error {
	_, err := t.normalize()
	return err
}

// normalize fills zero Period, BuyDate and InitialCapital with their defaults
// and checks the rest.
func (t Terms) normalize() (Terms, error) {
	if t.Maturity.IsZero() {
		return t, fmt.Errorf("%w: maturity is required", generic.ErrConstruction)
	}
	if t.Maturity.Days != 0 || t.Maturity.Years < 0 || t.Maturity.Months < 0 {
		return t, fmt.Errorf("%w: maturity accepts positive years | months only, got %s", generic.ErrConstruction, t.Maturity)
	}

	if t.Period == "" {
		t.Period = generic.PeriodYearly
	}
	if t.Period != generic.PeriodMonthly && t.Period != generic.PeriodYearly {
		return t, fmt.Errorf("%w: %w: %q", generic.ErrValidation, generic.ErrUnsupportedPeriod, t.Period)
	}
	if t.BuyDate.IsZero() {
		t.BuyDate = generic.Today()
	}
	if t.InitialCapital.IsZero() {
		t.InitialCapital = defaultInitialCapital
	}
	if t.InitialCapital.IsNegative() {
		return t, generic.Invalid("initial_capital", "must be positive, got %s", t.InitialCapital)
	}
	if t.Source == "" {
		return t, generic.Invalid("source", "reference rate series is required")
	}
	return t, nil
}
