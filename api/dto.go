/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Rates:
    RatesDTO, RateSeriesDTO, RateDTO, SetPeriodicRequest,
    SetContinuousRequest, ExtendRequest, SnapshotDTO

  Bonds:
    BondDTO (wraps factory.BondJSON)

  Computation:
    CalcRequest, LedgerResponse, ProfitResponse, CompareRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers and in the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/bond.go: BondJSON type
*/
package api

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/bond"
	"github.com/warp/bond-engine/factory"
	"github.com/warp/bond-engine/generic"
	"github.com/warp/bond-engine/profit"
	"github.com/warp/bond-engine/rates"
	"github.com/warp/bond-engine/store/sqlite"
)

// =============================================================================
// RATES
// =============================================================================

// RatesDTO describes the rate table.
type RatesDTO struct {
	Start  string          `json:"start,omitempty"`
	End    string          `json:"end,omitempty"`
	Series []RateSeriesDTO `json:"series"`
}

// RateSeriesDTO is one populated series and its valid range.
type RateSeriesDTO struct {
	Name      string `json:"name"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
}

// RateDTO is the answer to a rate lookup.
type RateDTO struct {
	Series string          `json:"series"`
	Date   string          `json:"date"`
	Rate   decimal.Decimal `json:"rate"`
}

// SetPeriodicRequest assigns one value per month / year, or one value to a
// daily span. Start and End may be omitted on a populated table.
type SetPeriodicRequest struct {
	Values []decimal.Decimal `json:"values"`
	Period string            `json:"period"`
	Start  string            `json:"start,omitempty"`
	End    string            `json:"end,omitempty"`
}

// SetContinuousRequest assigns a step function over change dates.
type SetContinuousRequest struct {
	Values     []decimal.Decimal `json:"values"`
	Dates      []string          `json:"dates"`
	ExtendFrom string            `json:"extend_from,omitempty"`
	ExtendTo   string            `json:"extend_to,omitempty"`
}

// ExtendRequest flat-extends a series to a date.
type ExtendRequest struct {
	Direction string `json:"direction"` // past, future
	Date      string `json:"date"`
}

// SnapshotDTO is a saved rate table.
type SnapshotDTO struct {
	ID      string `json:"id"`
	Start   string `json:"start,omitempty"`
	Days    int    `json:"days"`
	TakenAt string `json:"taken_at"`
}

// LoadRatesRequest picks a snapshot. An empty ID loads the latest.
type LoadRatesRequest struct {
	ID string `json:"id,omitempty"`
}

// =============================================================================
// BONDS
// =============================================================================

// BondDTO represents a saved bond in API responses.
type BondDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Definition   factory.BondJSON `json:"definition"`
	MaturityDate string           `json:"maturity_date"`
	Version      int              `json:"version"`
	CreatedAt    string           `json:"created_at,omitempty"`
	UpdatedAt    string           `json:"updated_at,omitempty"`
}

// =============================================================================
// COMPUTATION
// =============================================================================

// CalcRequest names a bond and a horizon. Exactly one of Bond, BondID and
// Product is used, in that order. Till is an absolute date, For an offset
// from the buy date ("2y").
type CalcRequest struct {
	Bond    *factory.BondJSON `json:"bond,omitempty"`
	BondID  string            `json:"bond_id,omitempty"`
	Product string            `json:"product,omitempty"`
	BuyDate string            `json:"buy_date,omitempty"` // for Product

	Till string `json:"till,omitempty"`
	For  string `json:"for,omitempty"`
}

// LedgerResponse is the full ledger of one bond. Rows cover every instance
// touched by the horizon, to its end.
type LedgerResponse struct {
	BuyDate      string     `json:"buy_date"`
	MaturityDate string     `json:"maturity_date"`
	Till         string     `json:"till"`
	Instances    []int      `json:"instances"`
	Rows         []bond.Row `json:"rows"`
}

// ProfitResponse is the profit curve of one bond, up to the horizon.
type ProfitResponse struct {
	Label        string          `json:"label,omitempty"`
	BuyDate      string          `json:"buy_date"`
	MaturityDate string          `json:"maturity_date"`
	Till         string          `json:"till"`
	FinalTotal   decimal.Decimal `json:"final_total"`
	Points       []profit.Point  `json:"points"`
}

// CompareRequest computes several profit curves at once.
type CompareRequest struct {
	Bonds []CalcRequest `json:"bonds"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a loadable reference dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"` // "rates" or "bonds"
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// LookupErrorDTO details a missing reference rate.
type LookupErrorDTO struct {
	Series         string `json:"series"`
	SourceDate     string `json:"source_date"`
	RequestedDate  string `json:"requested_date"`
	AvailableStart string `json:"available_start,omitempty"`
	AvailableEnd   string `json:"available_end,omitempty"`
	Message        string `json:"message"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRatesDTO(s *rates.Store) RatesDTO {
	dto := RatesDTO{Series: []RateSeriesDTO{}}
	if span, ok := s.Range(); ok {
		dto.Start, dto.End = span.Start.String(), span.End.String()
	}
	for _, name := range s.Series() {
		valid, ok := s.ValidRange(name)
		if !ok {
			continue
		}
		dto.Series = append(dto.Series, RateSeriesDTO{
			Name:      string(name),
			ValidFrom: valid.Start.String(),
			ValidTo:   valid.End.String(),
		})
	}
	return dto
}

func toSnapshotDTO(info sqlite.SnapshotInfo) SnapshotDTO {
	return SnapshotDTO{
		ID:      info.ID,
		Start:   info.Start.String(),
		Days:    info.Days,
		TakenAt: info.TakenAt.Format(timeLayout),
	}
}

func toLookupErrorDTO(err error) (LookupErrorDTO, bool) {
	var lookupErr *rates.LookupError
	if !errors.As(err, &lookupErr) {
		return LookupErrorDTO{}, false
	}
	return LookupErrorDTO{
		Series:         string(lookupErr.Series),
		SourceDate:     lookupErr.Source.String(),
		RequestedDate:  lookupErr.Requested.String(),
		AvailableStart: lookupErr.Available.Start.String(),
		AvailableEnd:   lookupErr.Available.End.String(),
		Message:        lookupErr.Error(),
	}, true
}

// parseOptionalDate reads "" as the zero date.
func parseOptionalDate(field, s string) (generic.Date, error) {
	if s == "" {
		return generic.Date{}, nil
	}
	d, err := generic.ParseDate(s)
	if err != nil {
		return generic.Date{}, generic.Invalid(field, "%v", err)
	}
	return d, nil
}
