package rates

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/generic"
)

// =============================================================================
// SNAPSHOT - Frozen copy of the rate table
// =============================================================================

// Snapshot captures the whole table for persistence. Columns are aligned to
// Start and hold Days entries each; unpopulated days are null.
// Used for:
//   - Saving reference data between server restarts (store/sqlite)
//   - Loading published datasets (api scenarios)
type Snapshot struct {
	Start  generic.Date                          `json:"start"`
	Days   int                                   `json:"days"`
	Series map[SeriesName][]decimal.NullDecimal `json:"series"`

	// When the snapshot was taken
	TakenAt time.Time `json:"taken_at"`
}

// Snapshot returns a deep copy of the table.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Start:   s.start,
		Days:    s.days,
		Series:  make(map[SeriesName][]decimal.NullDecimal, len(s.series)),
		TakenAt: time.Now().UTC(),
	}
	for name, col := range s.series {
		snap.Series[name] = append([]decimal.NullDecimal(nil), col...)
	}
	return snap
}

// Restore replaces the table with the snapshot's. Registry, Default and
// Logger are kept. The store is untouched when the snapshot is malformed.
func (s *Store) Restore(snap Snapshot) error {
	if snap.Days < 0 {
		return generic.Invalid("days", "must not be negative, got %d", snap.Days)
	}
	if snap.Days > 0 && snap.Start.IsZero() {
		return generic.Invalid("start", "required for a non-empty snapshot")
	}
	for name, col := range snap.Series {
		if len(col) != snap.Days {
			return generic.Invalid("series", "%s holds %d days, want %d", name, len(col), snap.Days)
		}
	}

	series := make(map[SeriesName][]decimal.NullDecimal, len(snap.Series))
	for name, col := range snap.Series {
		series[name] = append([]decimal.NullDecimal(nil), col...)
	}
	s.start, s.days, s.series = snap.Start, snap.Days, series
	return nil
}

// FromSnapshot builds a store with default lookup conventions from a snapshot.
func FromSnapshot(snap Snapshot) (*Store, error) {
	s := NewStore()
	if err := s.Restore(snap); err != nil {
		return nil, err
	}
	return s, nil
}
