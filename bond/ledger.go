package bond

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/generic"
)

// =============================================================================
// LEDGER - Day-by-day interest table keyed by (instance, period, date)
// =============================================================================

// Key identifies one ledger row. Boundary days appear twice: as the last day
// of one period and the first day of the next.
type Key struct {
	Instance int          `json:"instance"`
	Period   int          `json:"period"`
	Date     generic.Date `json:"date"`
}

func (k Key) less(other Key) bool {
	if k.Instance != other.Instance {
		return k.Instance < other.Instance
	}
	if k.Period != other.Period {
		return k.Period < other.Period
	}
	return k.Date.Before(other.Date)
}

// Row is one day of one reset period.
type Row struct {
	Key

	Rate        decimal.Decimal `json:"rate"`
	Capital     decimal.Decimal `json:"capital"`
	Interest    decimal.Decimal `json:"interest"`
	SumInterest decimal.Decimal `json:"sum_interest"`

	// EarlyBuyoutCost is null on days early redemption is not applicable.
	EarlyBuyoutCost decimal.NullDecimal `json:"early_buyout_cost"`

	ContinuationPremium decimal.Decimal `json:"continuation_premium"`
}

// Group is one reset period of one instance and its closed day span.
type Group struct {
	Instance int            `json:"instance"`
	Period   int            `json:"period"`
	Span     generic.Period `json:"span"`

	lo, hi int // rows[lo:hi]
}

type groupKey struct{ instance, period int }

// Ledger is read-only once returned by Bond.Build. Every accessor returns copies.
type Ledger struct {
	rows   []Row
	groups []Group
	index  map[groupKey]int
}

func newLedger() *Ledger {
	return &Ledger{index: make(map[groupKey]int)}
}

// appendGroup adds one row per day of span. Groups must be appended in key order.
func (l *Ledger) appendGroup(instance, period int, span generic.Period) {
	g := Group{Instance: instance, Period: period, Span: span, lo: len(l.rows)}
	for _, day := range span.Days() {
		l.rows = append(l.rows, Row{Key: Key{Instance: instance, Period: period, Date: day}})
	}
	g.hi = len(l.rows)
	l.index[groupKey{instance, period}] = len(l.groups)
	l.groups = append(l.groups, g)
}

func (l *Ledger) clone() *Ledger {
	c := &Ledger{
		rows:   append([]Row(nil), l.rows...),
		groups: append([]Group(nil), l.groups...),
		index:  make(map[groupKey]int, len(l.index)),
	}
	for k, v := range l.index {
		c.index[k] = v
	}
	return c
}

// =============================================================================
// READ API
// =============================================================================

func (l *Ledger) Len() int { return len(l.rows) }

// Rows returns all rows sorted by key.
func (l *Ledger) Rows() []Row {
	return append([]Row(nil), l.rows...)
}

// Get finds the row with the exact key.
func (l *Ledger) Get(key Key) (Row, bool) {
	i := sort.Search(len(l.rows), func(i int) bool { return !l.rows[i].Key.less(key) })
	if i < len(l.rows) && l.rows[i].Instance == key.Instance && l.rows[i].Period == key.Period && l.rows[i].Date.Equal(key.Date) {
		return l.rows[i], true
	}
	return Row{}, false
}

func (l *Ledger) At(instance, period int, date generic.Date) (Row, bool) {
	return l.Get(Key{Instance: instance, Period: period, Date: date})
}

// Group returns the rows of one reset period, nil when it doesn't exist.
func (l *Ledger) Group(instance, period int) []Row {
	g, ok := l.group(instance, period)
	if !ok {
		return nil
	}
	return append([]Row(nil), l.rows[g.lo:g.hi]...)
}

// Instance returns every row of one instance, overlap days included.
func (l *Ledger) Instance(instance int) []Row {
	lo, hi := l.instanceBounds(instance)
	if lo == hi {
		return nil
	}
	return append([]Row(nil), l.rows[lo:hi]...)
}

// Instances lists instance numbers in ascending order.
func (l *Ledger) Instances() []int {
	var out []int
	for _, g := range l.groups {
		if len(out) == 0 || out[len(out)-1] != g.Instance {
			out = append(out, g.Instance)
		}
	}
	return out
}

func (l *Ledger) Groups() []Group {
	return append([]Group(nil), l.groups...)
}

// LastDate is the date of the last row, zero for an empty ledger.
func (l *Ledger) LastDate() generic.Date {
	if len(l.rows) == 0 {
		return generic.Date{}
	}
	return l.rows[len(l.rows)-1].Date
}

// SumInterest totals the interest of one reset period.
func (l *Ledger) SumInterest(instance, period int) decimal.Decimal {
	g, ok := l.group(instance, period)
	if !ok {
		return decimal.Zero
	}
	return l.groupInterest(g)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (l *Ledger) group(instance, period int) (Group, bool) {
	i, ok := l.index[groupKey{instance, period}]
	if !ok {
		return Group{}, false
	}
	return l.groups[i], true
}

func (l *Ledger) groupInterest(g Group) decimal.Decimal {
	sum := decimal.Zero
	for _, row := range l.rows[g.lo:g.hi] {
		sum = sum.Add(row.Interest)
	}
	return sum
}

func (l *Ledger) instanceBounds(instance int) (lo, hi int) {
	lo = sort.Search(len(l.rows), func(i int) bool { return l.rows[i].Instance >= instance })
	hi = sort.Search(len(l.rows), func(i int) bool { return l.rows[i].Instance > instance })
	return lo, hi
}
