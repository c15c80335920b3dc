package bond

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/generic"
)

// =============================================================================
// FILL PIPELINE - Ordered stages, one column each
// =============================================================================

type stage struct {
	name string
	run  func(b *Bond, l *Ledger) error
}

// pipeline order matters: each stage reads columns filled by the ones before.
var pipeline = []stage{
	{name: "rate", run: (*Bond).setRates},
	{name: "capital and interest", run: (*Bond).setCapitalAndInterest},
	{name: "sum_interest", run: (*Bond).setSumInterest},
	{name: "early_buyout_cost", run: (*Bond).setEarlyBuyoutCost},
	{name: "continuation_premium", run: (*Bond).setContinuationPremium},
}

// setRates reads the reference once per reset period (once per instance for
// constant-rate bonds) at its first day, plus the premium. The first period,
// or the whole first instance for constant-rate bonds, carries InitialRate
// and is never looked up.
func (b *Bond) setRates(l *Ledger) error {
	if b.terms.ConstantRate {
		for _, instance := range l.Instances() {
			lo, hi := l.instanceBounds(instance)
			rate := b.terms.InitialRate
			if instance != 1 {
				var err error
				if rate, err = b.lookup(l.rows[lo].Date); err != nil {
					return fmt.Errorf("instance %d: %w", instance, err)
				}
			}
			for i := lo; i < hi; i++ {
				l.rows[i].Rate = rate
			}
		}
		return nil
	}

	for _, g := range l.groups {
		rate := b.terms.InitialRate
		if g.Instance != 1 || g.Period != 1 {
			var err error
			if rate, err = b.lookup(l.rows[g.lo].Date); err != nil {
				return fmt.Errorf("instance %d period %d: %w", g.Instance, g.Period, err)
			}
		}
		for i := g.lo; i < g.hi; i++ {
			l.rows[i].Rate = rate
		}
	}
	return nil
}

func (b *Bond) lookup(date generic.Date) (decimal.Decimal, error) {
	rate, err := b.source.Rate(b.terms.Source, date)
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Add(b.terms.Premium), nil
}

// setCapitalAndInterest folds over reset periods in order. The first period
// of an instance starts from InitialCapital. With capitalization, later
// periods add the previous period's interest rounded to 2 places.
//
// Daily interest is rate% x capital / divisor, zero on the first day of the
// period (interest is credited the next day):
//   - yearly: days in the year of the day before the period's last day
//   - monthly: 12 x (days in period - 1)
func (b *Bond) setCapitalAndInterest(l *Ledger) error {
	capital := b.terms.InitialCapital
	for _, g := range l.groups {
		if g.Period == 1 {
			capital = b.terms.InitialCapital
		} else if b.terms.Capitalization {
			if prev, ok := l.group(g.Instance, g.Period-1); ok {
				capital = capital.Add(generic.RoundCapital(l.groupInterest(prev)))
			}
		}
		periodCapital := generic.RoundCapital(capital)

		rows := l.rows[g.lo:g.hi]
		for i := range rows {
			rows[i].Capital = periodCapital
			rows[i].Interest = decimal.Zero
		}
		if len(rows) < 2 {
			continue
		}

		divisor, err := b.divisor(g, len(rows))
		if err != nil {
			return err
		}
		for i := 1; i < len(rows); i++ {
			rows[i].Interest = generic.RoundInterest(rows[i].Rate.Mul(periodCapital).Div(divisor))
		}
	}
	return nil
}

// divisor returns 100 x the per-day denominator, so interest is a single
// division of rate x capital.
func (b *Bond) divisor(g Group, days int) (decimal.Decimal, error) {
	switch b.terms.Period {
	case generic.PeriodYearly:
		yearDays := g.Span.End.AddDays(-1).DaysInYear()
		return generic.Hundred.Mul(decimal.NewFromInt(int64(yearDays))), nil
	case generic.PeriodMonthly:
		return generic.Hundred.Mul(generic.Twelve).Mul(decimal.NewFromInt(int64(days - 1))), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", generic.ErrUnsupportedPeriod, b.terms.Period)
	}
}

// setSumInterest is the running interest total, restarting every instance.
func (b *Bond) setSumInterest(l *Ledger) error {
	sum := decimal.Zero
	for i := range l.rows {
		if i == 0 || l.rows[i].Instance != l.rows[i-1].Instance {
			sum = decimal.Zero
		}
		sum = sum.Add(l.rows[i].Interest)
		l.rows[i].SumInterest = sum
	}
	return nil
}

const (
	buyoutBlockedFirstDays = 7
	buyoutBlockedLastDays  = 20
)

// setEarlyBuyoutCost caps the cost at the interest earned so far. When
// marking is on, the first 7 and last 20 calendar days of each instance are
// null.
func (b *Bond) setEarlyBuyoutCost(l *Ledger) error {
	for i := range l.rows {
		cost := generic.MinDecimal(l.rows[i].SumInterest, b.terms.EarlyBuyoutCost)
		l.rows[i].EarlyBuyoutCost = decimal.NewNullDecimal(cost)
	}
	if !b.terms.MarkEarlyBuyoutNotApplicable {
		return nil
	}

	for _, instance := range l.Instances() {
		lo, hi := l.instanceBounds(instance)
		days := distinctDates(l.rows[lo:hi])
		lastEarly := days[min(buyoutBlockedFirstDays, len(days))-1]
		firstLate := days[max(len(days)-buyoutBlockedLastDays, 0)]
		for i := lo; i < hi; i++ {
			if d := l.rows[i].Date; d.BeforeOrEqual(lastEarly) || d.AfterOrEqual(firstLate) {
				l.rows[i].EarlyBuyoutCost = decimal.NullDecimal{}
			}
		}
	}
	return nil
}

func distinctDates(rows []Row) []generic.Date {
	var days []generic.Date
	for _, row := range rows {
		if len(days) == 0 || !days[len(days)-1].Equal(row.Date) {
			days = append(days, row.Date)
		}
	}
	return days
}

// setContinuationPremium credits the premium on the first day of every
// instance after the first.
func (b *Bond) setContinuationPremium(l *Ledger) error {
	for i := range l.rows {
		l.rows[i].ContinuationPremium = decimal.Zero
	}
	for _, instance := range l.Instances() {
		if instance == 1 {
			continue
		}
		lo, _ := l.instanceBounds(instance)
		l.rows[lo].ContinuationPremium = b.terms.ContinuationPremium
	}
	return nil
}
