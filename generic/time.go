package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day (the only time granularity this system uses)
// =============================================================================

// DateLayout is the wire and display format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day at UTC midnight.
type Date struct {
	Time time.Time
}

// NewDate builds a date. A zero month defaults to January and a zero day to
// the first of the month, so NewDate(2025, 0, 0) is 2025-01-01.
func NewDate(year int, month time.Month, day int) Date {
	if month == 0 {
		month = time.January
	}
	if day == 0 {
		day = 1
	}
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string. Impossible dates (2025-02-30) fail.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Before(other):
		return -1
	case d.After(other):
		return 1
	default:
		return 0
	}
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.normalize().AddDate(0, 0, n)) }

// Add applies a relative offset. Years and months move first and the day is
// clamped to the length of the target month, then days are added:
//
//	2025-01-31 + 1 month         = 2025-02-28
//	2025-01-31 + 1 month, 2 days = 2025-03-02
func (d Date) Add(o Offset) Date {
	year, month, day := d.Time.Date()

	total := (year+o.Years)*12 + int(month) - 1 + o.Months
	newYear, newMonth := total/12, total%12
	if newMonth < 0 {
		newMonth += 12
		newYear--
	}

	if last := daysInMonth(newYear, time.Month(newMonth+1)); day > last {
		day = last
	}
	return NewDate(newYear, time.Month(newMonth+1), day).AddDays(o.Days)
}

// Sub applies the negated offset.
func (d Date) Sub(o Offset) Date { return d.Add(o.Neg()) }

// Min returns the earlier of two dates.
func Min(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

// Max returns the later of two dates.
func Max(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// =============================================================================
// MONTH / YEAR BOUNDARIES
// =============================================================================

func (d Date) StartOfMonth() Date { return NewDate(d.Year(), d.Month(), 1) }
func (d Date) EndOfMonth() Date   { return NewDate(d.Year(), d.Month(), daysInMonth(d.Year(), d.Month())) }
func (d Date) StartOfYear() Date  { return NewDate(d.Year(), time.January, 1) }
func (d Date) EndOfYear() Date    { return NewDate(d.Year(), time.December, 31) }

// DaysInYear returns 366 for Gregorian leap years and 365 otherwise.
func (d Date) DaysInYear() int {
	if IsLeapYear(d.Year()) {
		return 366
	}
	return 365
}

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// =============================================================================
// SERIALIZATION
// =============================================================================

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the signed number of days from `from` to `to`.
func DaysBetween(from, to Date) int { return int(to.normalize().Sub(from.normalize()).Hours() / 24) }

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
