package generic

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// OFFSET - Signed calendar offset (years / months / days)
// =============================================================================

// Offset is a relative calendar distance. It is used both as a maturity length
// and as an "n periods later" cursor. Apply it to a Date with Date.Add.
type Offset struct {
	Years  int
	Months int
	Days   int
}

// OffsetPart sets one component of an Offset.
type OffsetPart func(*Offset, *partSet)

type partSet struct {
	years, months, days bool
}

func Years(n int) OffsetPart {
	return func(o *Offset, s *partSet) { o.Years, s.years = n, true }
}

func Months(n int) OffsetPart {
	return func(o *Offset, s *partSet) { o.Months, s.months = n, true }
}

func Days(n int) OffsetPart {
	return func(o *Offset, s *partSet) { o.Days, s.days = n, true }
}

// NewOffset builds an offset from its parts. At least one part is required:
// NewOffset() fails with ErrConstruction.
func NewOffset(parts ...OffsetPart) (Offset, error) {
	o, set := build(parts)
	if !set.years && !set.months && !set.days {
		return Offset{}, fmt.Errorf("%w: one of years | months | days is required", ErrConstruction)
	}
	return o, nil
}

// MustOffset is NewOffset for package-level values and tests.
func MustOffset(parts ...OffsetPart) Offset {
	o, err := NewOffset(parts...)
	if err != nil {
		panic(err)
	}
	return o
}

// NewMaturity builds a bond maturity: years and/or months only.
func NewMaturity(parts ...OffsetPart) (Offset, error) {
	o, set := build(parts)
	if set.days {
		return Offset{}, fmt.Errorf("%w: maturity accepts years | months only", ErrConstruction)
	}
	if !set.years && !set.months {
		return Offset{}, fmt.Errorf("%w: one of years | months is required", ErrConstruction)
	}
	return o, nil
}

func build(parts []OffsetPart) (Offset, partSet) {
	var (
		o   Offset
		set partSet
	)
	for _, p := range parts {
		p(&o, &set)
	}
	return o, set
}

// Arithmetic
func (o Offset) Add(other Offset) Offset {
	return Offset{Years: o.Years + other.Years, Months: o.Months + other.Months, Days: o.Days + other.Days}
}
func (o Offset) Sub(other Offset) Offset { return o.Add(other.Neg()) }
func (o Offset) Neg() Offset             { return Offset{Years: -o.Years, Months: -o.Months, Days: -o.Days} }
func (o Offset) Times(n int) Offset      { return Offset{Years: o.Years * n, Months: o.Months * n, Days: o.Days * n} }
func (o Offset) IsZero() bool            { return o.Years == 0 && o.Months == 0 && o.Days == 0 }

func (o Offset) String() string {
	var parts []string
	if o.Years != 0 {
		parts = append(parts, fmt.Sprintf("%dy", o.Years))
	}
	if o.Months != 0 {
		parts = append(parts, fmt.Sprintf("%dm", o.Months))
	}
	if o.Days != 0 {
		parts = append(parts, fmt.Sprintf("%dd", o.Days))
	}
	if len(parts) == 0 {
		return "0d"
	}
	return strings.Join(parts, "")
}

// ParseOffset reads the String form back: "1y", "3m", "1y3m", "-10d".
func ParseOffset(s string) (Offset, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Offset{}, fmt.Errorf("%w: empty offset", ErrConstruction)
	}

	var parts []OffsetPart
	rest := s
	for rest != "" {
		i := strings.IndexAny(rest, "ymd")
		if i <= 0 {
			return Offset{}, Invalid("offset", "malformed offset %q", s)
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return Offset{}, Invalid("offset", "malformed offset %q", s)
		}
		switch rest[i] {
		case 'y':
			parts = append(parts, Years(n))
		case 'm':
			parts = append(parts, Months(n))
		case 'd':
			parts = append(parts, Days(n))
		}
		rest = rest[i+1:]
	}
	return NewOffset(parts...)
}
