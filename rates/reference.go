package rates

import (
	"time"

	"github.com/warp/bond-engine/generic"
)

// =============================================================================
// PUBLISHED REFERENCE DATA
// =============================================================================

// cpiMonthly is the year-over-year CPI, monthly from 2014-01 to 2024-12.
var cpiMonthly = []float64{
	0.5, 0.7, 0.7, 0.3, 0.2, 0.3, -0.2, -0.3, -0.3, -0.6,
	-0.6, -1.0, -1.4, -1.6, -1.5, -1.1, -0.9, -0.8, -0.7, -0.6, -0.8, -0.7,
	-0.6, -0.5, -0.9, -0.8, -0.9, -1.1, -0.9, -0.8, -0.9, -0.8, -0.5, -0.2,
	0, 0.8, 1.7, 2.2, 2.0, 2.0, 1.9, 1.5, 1.7, 1.8, 2.2, 2.1,
	2.5, 2.1, 1.9, 1.4, 1.3, 1.6, 1.7, 2.0, 2.0, 2.0, 1.9, 1.8,
	1.3, 1.1, 0.7, 1.2, 1.7, 2.2, 2.4, 2.6, 2.9, 2.9, 2.6, 2.5,
	2.6, 3.4, 4.3, 4.7, 4.6, 3.4, 2.9, 3.3, 3.0, 2.9, 3.2, 3.1,
	3.0, 2.4, 2.6, 2.4, 3.2, 4.3, 4.7, 4.4, 5.0, 5.5, 5.9, 6.8,
	7.8, 8.6, 9.4, 8.5, 11.0, 12.4, 13.9, 15.5, 15.6, 16.1, 17.2, 17.9,
	17.5, 16.6, 16.6, 18.4, 16.1, 14.7, 13.0, 11.5, 10.8, 10.1, 8.2, 6.6,
	6.6, 6.2, 3.7, 2.8, 2.0, 2.4, 2.5, 2.6, 4.2, 4.3, 4.9, 5.0,
	4.7,
	4.7,
}

// LoadCPIHistory sets monthly CPI for 2014-01 through 2024-12.
func LoadCPIHistory(s *Store) error {
	return s.SetPeriodic(GUSCPI, generic.Decimals(cpiMonthly...), generic.PeriodMonthly,
		generic.NewDate(2014, time.January, 0), generic.NewDate(2024, time.December, 0))
}

// LoadCPIProjection sets the central bank CPI projection for 2025 and holds
// its last value through 2026-01-31.
func LoadCPIProjection(s *Store) error {
	return s.SetContinuous(GUSCPI,
		generic.Decimals(6.0, 5.5, 4.5, 3.5, 2.5),
		[]generic.Date{
			generic.NewDate(2025, time.January, 1),
			generic.NewDate(2025, time.April, 1),
			generic.NewDate(2025, time.July, 1),
			generic.NewDate(2025, time.October, 1),
			generic.NewDate(2026, time.January, 1),
		},
		generic.Date{}, generic.NewDate(2026, time.January, 31),
	)
}

// LoadReferenceRateHistory sets the reference rate decisions from 2015-03-05
// and holds the last one through 2026-01-31.
func LoadReferenceRateHistory(s *Store) error {
	return s.SetContinuous(NBPREF,
		generic.Decimals(
			1.5, 1.0, 0.5, 0.1, 0.5, 1.25, 1.75,
			2.25, 2.75, 3.5, 4.5, 5.25, 6.0, 6.50,
			6.75, 6.0, 5.75,
		),
		[]generic.Date{
			generic.NewDate(2015, time.March, 5),
			generic.NewDate(2020, time.March, 18),
			generic.NewDate(2020, time.April, 9),
			generic.NewDate(2020, time.May, 29),
			generic.NewDate(2021, time.October, 7),
			generic.NewDate(2021, time.November, 4),
			generic.NewDate(2021, time.December, 9),
			generic.NewDate(2022, time.January, 5),
			generic.NewDate(2022, time.February, 9),
			generic.NewDate(2022, time.March, 9),
			generic.NewDate(2022, time.April, 7),
			generic.NewDate(2022, time.May, 6),
			generic.NewDate(2022, time.June, 9),
			generic.NewDate(2022, time.July, 8),
			generic.NewDate(2022, time.September, 8),
			generic.NewDate(2023, time.September, 7),
			generic.NewDate(2023, time.October, 5),
		},
		generic.Date{}, generic.NewDate(2026, time.January, 31),
	)
}

// LoadReferenceRateProjection sets the projected reference rate path from
// 2025-07-01, held through 2027-01-31.
func LoadReferenceRateProjection(s *Store) error {
	return s.SetContinuous(NBPREF,
		generic.Decimals(5.25, 4.75, 4.25, 3.75, 3.25, 2.75),
		[]generic.Date{
			generic.NewDate(2025, time.July, 1),
			generic.NewDate(2025, time.October, 1),
			generic.NewDate(2026, time.January, 1),
			generic.NewDate(2026, time.April, 1),
			generic.NewDate(2026, time.July, 1),
			generic.NewDate(2026, time.October, 1),
		},
		generic.Date{}, generic.NewDate(2027, time.January, 31),
	)
}

// LoadPublished applies all published history and projections in order.
func LoadPublished(s *Store) error {
	for _, load := range []func(*Store) error{
		LoadCPIHistory,
		LoadCPIProjection,
		LoadReferenceRateHistory,
		LoadReferenceRateProjection,
	} {
		if err := load(s); err != nil {
			return err
		}
	}
	return nil
}
