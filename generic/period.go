package generic

import "fmt"

// =============================================================================
// PERIOD - Closed calendar span
// =============================================================================

// Period is the closed day span [Start, End].
//
// Bond periods overlap on their boundary day: the last day of one reset
// period is also the first day of the next one.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.Len())
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len is the number of days in the period, both ends included.
func (p Period) Len() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD TYPE - Reset / assignment frequency
// =============================================================================

// PeriodType is the granularity of rate assignment and rate resets.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
)

// Step returns one period as an offset.
func (pt PeriodType) Step() Offset {
	switch pt {
	case PeriodMonthly:
		return Offset{Months: 1}
	case PeriodYearly:
		return Offset{Years: 1}
	default:
		return Offset{Days: 1}
	}
}

// ParsePeriodType accepts daily, monthly and yearly.
func ParsePeriodType(s string) (PeriodType, error) {
	switch pt := PeriodType(s); pt {
	case PeriodDaily, PeriodMonthly, PeriodYearly:
		return pt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPeriod, s)
	}
}

// PeriodFor returns the calendar month or year containing the date. Daily
// periods are the day itself.
func (pt PeriodType) PeriodFor(d Date) Period {
	switch pt {
	case PeriodMonthly:
		return Period{Start: d.StartOfMonth(), End: d.EndOfMonth()}
	case PeriodYearly:
		return Period{Start: d.StartOfYear(), End: d.EndOfYear()}
	default:
		return Period{Start: d, End: d}
	}
}

// CalendarPeriods splits [from, to] into whole calendar periods. from and to
// are expected to be aligned to period boundaries already.
func (pt PeriodType) CalendarPeriods(from, to Date) []Period {
	var periods []Period
	for current := pt.PeriodFor(from); current.Start.BeforeOrEqual(to); current = pt.PeriodFor(current.End.AddDays(1)) {
		periods = append(periods, current)
	}
	return periods
}
