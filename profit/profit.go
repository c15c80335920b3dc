/*
Package profit collapses an interest ledger into a calendar-date profit curve.

PURPOSE:
  A ledger has one row per (instance, period, date), with boundary days
  repeated. The curve has one point per calendar day with what the holder
  would walk away with when redeeming that day.

PIPELINE:
  project -> null cost to 0 -> collapse by date (max) -> running sums -> total

  Collapsing with max is exact: on a shared boundary day only the early
  buyout cost differs between rows, interest and continuation premium are
  zero on all but one of them.

  total = sum_interest - early_buyout_cost + sum_continuation_premium
*/
package profit

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/bond"
	"github.com/warp/bond-engine/generic"
)

// Point is one calendar day of the curve.
type Point struct {
	Date                   generic.Date    `json:"date"`
	Interest               decimal.Decimal `json:"interest"`
	EarlyBuyoutCost        decimal.Decimal `json:"early_buyout_cost"`
	ContinuationPremium    decimal.Decimal `json:"continuation_premium"`
	SumInterest            decimal.Decimal `json:"sum_interest"`
	SumContinuationPremium decimal.Decimal `json:"sum_continuation_premium"`
	Total                  decimal.Decimal `json:"total"`
}

// Curve is sorted by date, one point per day.
type Curve struct {
	points []Point
}

func (c Curve) Len() int { return len(c.points) }

func (c Curve) Points() []Point {
	return append([]Point(nil), c.points...)
}

func (c Curve) At(date generic.Date) (Point, bool) {
	i := sort.Search(len(c.points), func(i int) bool { return !c.points[i].Date.Before(date) })
	if i < len(c.points) && c.points[i].Date.Equal(date) {
		return c.points[i], true
	}
	return Point{}, false
}

// Until returns the points up to and including date.
func (c Curve) Until(date generic.Date) []Point {
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].Date.After(date) })
	return append([]Point(nil), c.points[:i]...)
}

// Last is the final point, false for an empty curve.
func (c Curve) Last() (Point, bool) {
	if len(c.points) == 0 {
		return Point{}, false
	}
	return c.points[len(c.points)-1], true
}

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	rows []bond.Row
}

// New copies the ledger rows. The ledger itself is never touched.
func New(ledger *bond.Ledger) *Aggregator {
	if ledger == nil {
		return &Aggregator{}
	}
	return &Aggregator{rows: ledger.Rows()}
}

// CalcTotal runs the pipeline on a fresh projection every call.
func (a *Aggregator) CalcTotal() Curve {
	points := collapse(project(a.rows))
	accumulate(points)
	return Curve{points: points}
}

// project keeps the three additive columns, a null cost counts as 0.
func project(rows []bond.Row) []Point {
	out := make([]Point, len(rows))
	for i, row := range rows {
		cost := decimal.Zero
		if row.EarlyBuyoutCost.Valid {
			cost = row.EarlyBuyoutCost.Decimal
		}
		out[i] = Point{
			Date:                row.Date,
			Interest:            row.Interest,
			EarlyBuyoutCost:     cost,
			ContinuationPremium: row.ContinuationPremium,
		}
	}
	return out
}

func collapse(points []Point) []Point {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	var out []Point
	for _, p := range points {
		n := len(out)
		if n == 0 || !out[n-1].Date.Equal(p.Date) {
			out = append(out, p)
			continue
		}
		last := &out[n-1]
		last.Interest = decimal.Max(last.Interest, p.Interest)
		last.EarlyBuyoutCost = decimal.Max(last.EarlyBuyoutCost, p.EarlyBuyoutCost)
		last.ContinuationPremium = decimal.Max(last.ContinuationPremium, p.ContinuationPremium)
	}
	return out
}

func accumulate(points []Point) {
	sumInterest, sumPremium := decimal.Zero, decimal.Zero
	for i := range points {
		sumInterest = sumInterest.Add(points[i].Interest)
		sumPremium = sumPremium.Add(points[i].ContinuationPremium)
		points[i].SumInterest = sumInterest
		points[i].SumContinuationPremium = sumPremium
		points[i].Total = sumInterest.Sub(points[i].EarlyBuyoutCost).Add(sumPremium)
	}
}
