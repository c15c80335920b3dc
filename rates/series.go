package rates

import (
	"maps"

	"github.com/warp/bond-engine/generic"
)

// =============================================================================
// SERIES NAMES
// =============================================================================

// SeriesName identifies a reference rate series, e.g. "GUS:CPI".
type SeriesName string

const (
	// GUSCPI is the year-over-year consumer price index published by the
	// statistics office. Published with a lag, so bonds read it 2 months back.
	GUSCPI SeriesName = "GUS:CPI"

	// NBPREF is the central bank reference rate. Bonds read the previous day.
	NBPREF SeriesName = "NBP:REF"
)

// DefaultSeries supplies the lookup convention for unregistered series.
const DefaultSeries = NBPREF

// =============================================================================
// LOOKUP REGISTRY - Which source day a rate is read from
// =============================================================================

// LookupFunc maps a requested date to the day whose value is read.
type LookupFunc func(date generic.Date) generic.Date

// Registry maps a series to its lookup convention.
type Registry map[SeriesName]LookupFunc

var defaultRegistry = Registry{
	GUSCPI: func(d generic.Date) generic.Date { return d.Sub(generic.Offset{Months: 2}) },
	NBPREF: func(d generic.Date) generic.Date { return d.AddDays(-1) },
}

// DefaultRegistry returns the built-in conventions for GUS:CPI and NBP:REF.
// The returned map is a copy and can be extended by the caller.
func DefaultRegistry() Registry {
	return maps.Clone(defaultRegistry)
}
