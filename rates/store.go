/*
Package rates holds the reference rate table that variable-rate bonds read.

PURPOSE:
  One growing table of contiguous calendar days by named rate series.
  Bonds never see the table: they ask Rate(series, date) and the store
  applies the series' publication lag through the lookup registry.

KEY CONCEPTS:
  - Store: the day x series table. Grows, never shrinks, no gaps in days.
  - Series: sparse columns. A day may be populated for one series only.
  - Registry: per-series source-day convention (CPI two months back,
    reference rate one day back).

ASSIGNMENT MODES:
  - SetPeriodic: one value per calendar month / year, or one value for a
    daily span.
  - SetContinuous: step function over change dates, the way central bank
    decisions are published.
  - ExtendToPast / ExtendToFuture: flat extrapolation of a series' edge value.

  Every assignment validates all of its arguments before the table is touched.

USAGE:
  store := rates.NewStore()
  err := store.SetContinuous(rates.NBPREF,
      generic.Decimals(6.75, 6.0, 5.75),
      []generic.Date{
          generic.NewDate(2022, 9, 8),
          generic.NewDate(2023, 9, 7),
          generic.NewDate(2023, 10, 5),
      },
      generic.Date{}, generic.NewDate(2024, 12, 31),
  )
  rate, err := store.Rate(rates.NBPREF, generic.NewDate(2023, 9, 8)) // 6.0

SEE ALSO:
  - series.go: Series names and lookup registry
  - snapshot.go: Persistence form of the table
*/
package rates

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/generic"
)

// =============================================================================
// STORE - Contiguous day table x sparse series
// =============================================================================

// Store is not safe for concurrent mutation. Callers sharing a store across
// goroutines guard it themselves (see api.Handler).
type Store struct {
	// Registry resolves the source day of a lookup. Defaults to DefaultRegistry().
	Registry Registry

	// Default lends its lookup convention to series missing from Registry.
	Default SeriesName

	Logger *slog.Logger

	start  generic.Date
	days   int
	series map[SeriesName][]decimal.NullDecimal
}

func NewStore() *Store {
	return &Store{
		Registry: DefaultRegistry(),
		Default:  DefaultSeries,
		Logger:   slog.Default(),
		series:   make(map[SeriesName][]decimal.NullDecimal),
	}
}

// Range returns the first and last day of the table. ok is false while the
// store is empty.
func (s *Store) Range() (period generic.Period, ok bool) {
	if s.days == 0 {
		return generic.Period{}, false
	}
	return generic.Period{Start: s.start, End: s.end()}, true
}

// Series lists the populated series, sorted by name.
func (s *Store) Series() []SeriesName {
	names := make([]SeriesName, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Value is the raw stored value, without lookup lag or clamping.
func (s *Store) Value(name SeriesName, date generic.Date) (decimal.Decimal, bool) {
	col, ok := s.series[name]
	if !ok {
		return decimal.Zero, false
	}
	i, ok := s.index(date)
	if !ok || !col[i].Valid {
		return decimal.Zero, false
	}
	return col[i].Decimal, true
}

// ValidRange returns the first and last populated day of a series.
func (s *Store) ValidRange(name SeriesName) (generic.Period, bool) {
	col, ok := s.series[name]
	if !ok {
		return generic.Period{}, false
	}
	first := slices.IndexFunc(col, func(v decimal.NullDecimal) bool { return v.Valid })
	if first < 0 {
		return generic.Period{}, false
	}
	last := len(col) - 1
	for !col[last].Valid {
		last--
	}
	return generic.Period{Start: s.start.AddDays(first), End: s.start.AddDays(last)}, true
}

// =============================================================================
// LOOKUP
// =============================================================================

// Rate returns the value a bond uses on date. The source day comes from the
// series' lookup convention; unregistered series borrow the Default one and
// still read their own column. Negative values clamp to zero.
func (s *Store) Rate(name SeriesName, date generic.Date) (decimal.Decimal, error) {
	lookup, ok := s.Registry[name]
	if !ok {
		s.logger().Warn("no lookup convention for rate series, using default",
			"series", name, "default", s.Default)
		lookup = s.Registry[s.Default]
	}
	if lookup == nil {
		return decimal.Zero, generic.Invalid("series", "no lookup convention for %s or default %s", name, s.Default)
	}

	source := lookup(date)
	value, ok := s.Value(name, source)
	if !ok {
		lookupErr := &LookupError{Series: name, Source: source, Requested: date}
		lookupErr.Available, _ = s.ValidRange(name)
		return decimal.Zero, lookupErr
	}
	if value.IsNegative() {
		return decimal.Zero, nil
	}
	return value, nil
}

// LookupError reports a source day the series has no value for.
type LookupError struct {
	Series    SeriesName
	Source    generic.Date
	Requested generic.Date
	Available generic.Period // zero when the series holds no values
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("rate %s not available for date %s (given date: %s) (available dates: %s - %s)",
		e.Series, e.Source, e.Requested, e.Available.Start, e.Available.End)
}

func (e *LookupError) Unwrap() error {
	return generic.ErrRateNotAvailable
}

// =============================================================================
// ASSIGNMENT
// =============================================================================

// SetPeriodic assigns values per calendar period.
//
// A zero start or end means "the store's current first / last day"; on an
// empty store both are required. Daily assignment takes exactly one value
// for the whole [start, end] span. Monthly and yearly assignment widens the
// span to whole calendar periods and takes one value per period.
func (s *Store) SetPeriodic(name SeriesName, values []decimal.Decimal, period generic.PeriodType, start, end generic.Date) error {
	start, end, err := s.resolveBounds(start, end)
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return generic.Invalid("end", "end date should be later than start date: %s < %s", start, end)
	}

	switch period {
	case generic.PeriodDaily, "":
		if len(values) != 1 {
			return generic.Invalid("values", "daily rates take a single value, got %d", len(values))
		}
		s.grow(start, end)
		s.fill(name, start, end, values[0])

	case generic.PeriodMonthly, generic.PeriodYearly:
		periods := period.CalendarPeriods(start, end)
		if len(values) != len(periods) {
			return generic.Invalid("values", "number of values and periods differ: %d != %d", len(values), len(periods))
		}
		s.grow(periods[0].Start, periods[len(periods)-1].End)
		for i, p := range periods {
			s.fill(name, p.Start, p.End, values[i])
		}

	default:
		return fmt.Errorf("%w: %q", generic.ErrUnsupportedPeriod, period)
	}
	return nil
}

// SetContinuous assigns a step function: values[i] holds from dates[i] up to
// the day before dates[i+1], the last value up to the end of the table.
//
// extendedRange optionally carries (past) or (past, future). A non-zero past
// date flat-extends values[0] back to it, a non-zero future date extends the
// last value forward to it.
func (s *Store) SetContinuous(name SeriesName, values []decimal.Decimal, dates []generic.Date, extendedRange ...generic.Date) error {
	if len(extendedRange) > 2 {
		return generic.Invalid("extendedRange", "takes at most 2 dates, got %d", len(extendedRange))
	}
	if len(values) == 0 {
		return generic.Invalid("values", "at least one value is required")
	}
	if len(values) != len(dates) {
		return generic.Invalid("dates", "number of values and dates differ: %d != %d", len(values), len(dates))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			return generic.Invalid("dates", "must be strictly increasing: %s >= %s", dates[i-1], dates[i])
		}
	}

	first, last := dates[0], dates[len(dates)-1]
	var past, future generic.Date
	if len(extendedRange) > 0 {
		past = extendedRange[0]
	}
	if len(extendedRange) > 1 {
		future = extendedRange[1]
	}
	if !past.IsZero() && past.After(first) {
		return generic.Invalid("extendedRange", "past edge %s is after first date %s", past, first)
	}
	if !future.IsZero() && future.Before(last) {
		return generic.Invalid("extendedRange", "future edge %s is before last date %s", future, last)
	}

	s.grow(first, last)
	tableEnd := s.end()
	for i, from := range dates {
		to := tableEnd
		if i+1 < len(dates) {
			to = dates[i+1].AddDays(-1)
		}
		s.fill(name, from, to, values[i])
	}

	if !past.IsZero() {
		s.grow(past, first)
		s.fill(name, past, first, values[0])
	}
	if !future.IsZero() {
		s.grow(last, future)
		s.fill(name, last, future, values[len(values)-1])
	}
	return nil
}

// ExtendToPast copies the series' first known value back to date.
func (s *Store) ExtendToPast(date generic.Date, name SeriesName) error {
	valid, ok := s.ValidRange(name)
	if !ok {
		return generic.Invalid("name", "series %s has no values to extend", name)
	}
	if !date.Before(valid.Start) {
		return nil
	}
	value, _ := s.Value(name, valid.Start)
	s.grow(date, valid.Start)
	s.fill(name, date, valid.Start, value)
	return nil
}

// ExtendToFuture copies the series' last known value forward to date.
func (s *Store) ExtendToFuture(date generic.Date, name SeriesName) error {
	valid, ok := s.ValidRange(name)
	if !ok {
		return generic.Invalid("name", "series %s has no values to extend", name)
	}
	if !date.After(valid.End) {
		return nil
	}
	value, _ := s.Value(name, valid.End)
	s.grow(valid.End, date)
	s.fill(name, valid.End, date, value)
	return nil
}

// =============================================================================
// TABLE INTERNALS
// =============================================================================

func (s *Store) end() generic.Date {
	return s.start.AddDays(s.days - 1)
}

func (s *Store) index(date generic.Date) (int, bool) {
	if s.days == 0 {
		return 0, false
	}
	i := generic.DaysBetween(s.start, date)
	return i, i >= 0 && i < s.days
}

func (s *Store) resolveBounds(start, end generic.Date) (generic.Date, generic.Date, error) {
	if !start.IsZero() && !end.IsZero() {
		return start, end, nil
	}
	current, ok := s.Range()
	if !ok {
		field := "start"
		if !start.IsZero() {
			field = "end"
		}
		return start, end, generic.Invalid(field, "should be passed when it is the first rate set")
	}
	if start.IsZero() {
		start = current.Start
	}
	if end.IsZero() {
		end = current.End
	}
	return start, end, nil
}

// grow widens the table to cover [from, to], shifting existing columns when
// the table grows into the past.
func (s *Store) grow(from, to generic.Date) {
	if s.series == nil {
		s.series = make(map[SeriesName][]decimal.NullDecimal)
	}
	if s.days == 0 {
		s.start, s.days = from, generic.DaysBetween(from, to)+1
		for name := range s.series {
			s.series[name] = make([]decimal.NullDecimal, s.days)
		}
		return
	}

	newStart := generic.Min(s.start, from)
	newEnd := generic.Max(s.end(), to)
	shift := generic.DaysBetween(newStart, s.start)
	size := generic.DaysBetween(newStart, newEnd) + 1
	if shift == 0 && size == s.days {
		return
	}

	for name, col := range s.series {
		grown := make([]decimal.NullDecimal, size)
		copy(grown[shift:], col)
		s.series[name] = grown
	}
	s.start, s.days = newStart, size
}

// fill assigns value to [from, to]. The span must already be in the table.
func (s *Store) fill(name SeriesName, from, to generic.Date, value decimal.Decimal) {
	col, ok := s.series[name]
	if !ok {
		col = make([]decimal.NullDecimal, s.days)
		s.series[name] = col
	}
	lo, _ := s.index(from)
	hi, _ := s.index(to)
	for i := lo; i <= hi; i++ {
		col[i] = decimal.NullDecimal{Decimal: value, Valid: true}
	}
}

func (s *Store) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
