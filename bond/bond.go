/*
Package bond computes day-by-day interest ledgers for retail treasury bonds.

PURPOSE:
  Given the bond's terms and a reference rate source, build the ledger of
  rate, capital, interest, cumulative interest, early buyout cost and
  continuation premium for every day up to a horizon, across rollovers.

KEY CONCEPTS:
  - Instance: one maturity-length run of the bond. Rolling the money over at
    maturity starts the next instance, with a continuation premium.
  - Period: one reset period (month or year) inside an instance. The rate is
    fixed within a period.
  - Overlap day: a period's last day is also the next period's first day.
    Interest accrues from the second day of a period, so the shared day is
    counted once.

LEDGER PIPELINE:
  The index (all keys up to the horizon) is built first, then an ordered
  list of stages fills one column each:

    rates -> capital & interest -> sum_interest -> early_buyout_cost -> continuation_premium

  Capital and interest are one sequential fold: with capitalization, period
  N's capital depends on period N-1's interest.

  The pipeline runs on a working copy. A failed build (e.g. a rate missing
  from the source) leaves the previous ledger untouched.

ROUNDING:
  Capital to 2 places, daily interest to 8, both half-to-even.

USAGE:
  terms := bond.DefaultTerms()
  terms.Maturity = generic.MustOffset(generic.Years(1))
  terms.Period = generic.PeriodMonthly
  terms.InitialRate = decimal.RequireFromString("6.15")
  terms.Source = rates.NBPREF
  b, err := bond.New(terms, store)
  ledger, err := b.BuildUntil(generic.NewDate(2025, 1, 1))

SEE ALSO:
  - pipeline.go: Fill stages
  - ledger.go: Ledger read API
  - profit/: Collapses a ledger into a profit curve
*/
package bond

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/generic"
	"github.com/warp/bond-engine/rates"
)

// RateSource supplies reference rates, already lagged and clamped.
// *rates.Store implements it.
type RateSource interface {
	Rate(name rates.SeriesName, date generic.Date) (decimal.Decimal, error)
}

// =============================================================================
// HORIZON - How far to build
// =============================================================================

// Horizon is an absolute end date or an offset from the buy date.
type Horizon struct {
	Date   generic.Date
	Offset generic.Offset
}

// MaxHorizon bounds how far past the buy date a ledger may reach.
var MaxHorizon = generic.MustOffset(generic.Years(100))

func Until(date generic.Date) Horizon   { return Horizon{Date: date} }
func For(offset generic.Offset) Horizon { return Horizon{Offset: offset} }
func (h Horizon) IsZero() bool          { return h.Date.IsZero() && h.Offset.IsZero() }

// resolve returns the absolute end date. It must fall after buy and no
// later than buy + MaxHorizon.
func (h Horizon) resolve(buy generic.Date) (generic.Date, error) {
	var till generic.Date
	switch {
	case !h.Date.IsZero():
		till = h.Date
	case !h.Offset.IsZero():
		till = buy.Add(h.Offset)
	default:
		return generic.Date{}, generic.Invalid("till", "a date or an offset is required")
	}
	if !buy.Before(till) {
		return generic.Date{}, generic.Invalid("till", "horizon (%s) should be later than buy date (%s)", till, buy)
	}
	if limit := buy.Add(MaxHorizon); till.After(limit) {
		return generic.Date{}, generic.Invalid("till", "horizon (%s) is more than %s past buy date (%s)", till, MaxHorizon, buy)
	}
	return till, nil
}

// =============================================================================
// BOND
// =============================================================================

type Bond struct {
	Logger *slog.Logger

	terms  Terms
	source RateSource
	ledger *Ledger
}

// New validates terms. Zero Period, BuyDate and InitialCapital take their
// defaults (yearly, today, 100).
func New(terms Terms, source RateSource) (*Bond, error) {
	if source == nil {
		return nil, generic.Invalid("source", "rate source is required")
	}
	terms, err := terms.normalize()
	if err != nil {
		return nil, err
	}
	return &Bond{Logger: slog.Default(), terms: terms, source: source}, nil
}

func (b *Bond) Terms() Terms { return b.terms }

func (b *Bond) MaturityDate() generic.Date { return b.terms.MaturityDate() }

// Ledger returns the last successfully built ledger, nil before any build.
func (b *Bond) Ledger() *Ledger { return b.ledger }

func (b *Bond) BuildUntil(date generic.Date) (*Ledger, error) { return b.Build(Until(date)) }

func (b *Bond) BuildFor(offset generic.Offset) (*Ledger, error) { return b.Build(For(offset)) }

// Build extends the index to the horizon when needed and recomputes every
// column. A horizon already covered keeps the index as is.
func (b *Bond) Build(h Horizon) (*Ledger, error) {
	till, err := h.resolve(b.terms.BuyDate)
	if err != nil {
		return nil, err
	}
	b.logger().Debug("building interest ledger", "buy_date", b.terms.BuyDate, "till", till)

	work := b.indexFor(till)
	for _, stage := range pipeline {
		if err := stage.run(b, work); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", stage.name, err)
		}
	}

	b.ledger = work
	return work, nil
}

// =============================================================================
// INDEX
// =============================================================================

// indexFor returns a working copy of the ledger covering till. Rows already
// present keep their values.
func (b *Bond) indexFor(till generic.Date) *Ledger {
	if b.ledger != nil && !b.ledger.LastDate().Before(till) {
		return b.ledger.clone()
	}

	next := b.buildIndex(till)
	if b.ledger != nil {
		for i := range next.rows {
			if old, ok := b.ledger.Get(next.rows[i].Key); ok {
				next.rows[i] = old
			}
		}
	}
	return next
}

func (b *Bond) buildIndex(till generic.Date) *Ledger {
	buy, maturity, step := b.terms.BuyDate, b.terms.Maturity, b.terms.Period.Step()

	periods := countSteps(buy, buy.Add(maturity), step)
	instances := countSteps(buy, till, maturity)
	b.logger().Debug("ledger index", "instances", instances, "periods_per_maturity", periods)

	l := newLedger()
	for instance := 1; instance <= instances; instance++ {
		instanceStart := buy.Add(maturity.Times(instance - 1))
		instanceEnd := instanceStart.Add(maturity)
		for period := 1; period <= periods; period++ {
			start := instanceStart.Add(step.Times(period - 1))
			end := generic.Min(start.Add(step), instanceEnd)
			if end.Before(start) {
				continue
			}
			l.appendGroup(instance, period, generic.Period{Start: start, End: end})
		}
	}
	return l
}

// countSteps counts how many times step is added to from while still short
// of to. Steps accumulate, so month-end clamping carries forward.
func countSteps(from, to generic.Date, step generic.Offset) int {
	n := 0
	for cur := from; cur.Before(to); cur = cur.Add(step) {
		n++
	}
	return n
}

func (b *Bond) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}
