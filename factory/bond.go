/*
Package factory provides JSON to Go bond conversion.

PURPOSE:
  Converts JSON bond definitions into bond.Terms. Bond series can then be
  saved, listed and shared without code changes.

JSON SCHEMA:
  {
    "id": "ror-2024-01",
    "name": "ROR January 2024",
    "maturity": "1y",
    "period": "monthly",
    "initial_rate": 6.15,
    "source": "NBP:REF",
    "premium": 0,
    "buy_date": "2024-01-01",
    "capitalization": false,
    "continuation_premium": 0.1,
    "initial_capital": 100,
    "early_buyout_cost": 0.5,
    "mark_early_buyout_not_applicable": false,
    "constant_rate": false
  }

DEFAULTS:
  period yearly, buy_date today, source NBP:REF, continuation_premium 0.1,
  initial_capital 100.

USAGE:
  f := factory.NewBondFactory()

  // From JSON string
  def, err := f.ParseBond(jsonString)

  // From a catalog product (recommended)
  jsonStr := factory.RORJSON("2024-01-01")
  def, err := f.ParseBond(jsonStr)

  b, err := bond.New(def.Terms, store)

SEE ALSO:
  - catalog.go: Retail bond products
  - bond/terms.go: Terms type definition
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bond-engine/bond"
	"github.com/warp/bond-engine/generic"
	"github.com/warp/bond-engine/rates"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// BondJSON is the JSON representation of a bond series.
type BondJSON struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name,omitempty"`
	Maturity    string          `json:"maturity"`         // "3m", "1y", "1y6m"
	Period      string          `json:"period,omitempty"` // monthly, yearly
	InitialRate decimal.Decimal `json:"initial_rate"`
	Source      string          `json:"source,omitempty"` // GUS:CPI, NBP:REF
	Premium     decimal.Decimal `json:"premium"`
	BuyDate     string          `json:"buy_date,omitempty"` // YYYY-MM-DD

	Capitalization      bool             `json:"capitalization,omitempty"`
	ContinuationPremium *decimal.Decimal `json:"continuation_premium,omitempty"`
	InitialCapital      *decimal.Decimal `json:"initial_capital,omitempty"`

	EarlyBuyoutCost              decimal.Decimal `json:"early_buyout_cost"`
	MarkEarlyBuyoutNotApplicable bool            `json:"mark_early_buyout_not_applicable,omitempty"`
	ConstantRate                 bool            `json:"constant_rate,omitempty"`
}

// Definition is a named bond series.
type Definition struct {
	ID    string
	Name  string
	Terms bond.Terms
}

// =============================================================================
// BOND FACTORY
// =============================================================================

// BondFactory converts JSON bonds to Go structs.
type BondFactory struct{}

func NewBondFactory() *BondFactory {
	return &BondFactory{}
}

// ParseBond parses a JSON string into a Definition.
func (f *BondFactory) ParseBond(jsonStr string) (*Definition, error) {
	var bj BondJSON
	if err := json.Unmarshal([]byte(jsonStr), &bj); err != nil {
		return nil, fmt.Errorf("failed to parse bond JSON: %w", generic.Invalid("body", "%v", err))
	}
	return f.FromJSON(bj)
}

// FromJSON converts BondJSON to a validated Definition.
func (f *BondFactory) FromJSON(bj BondJSON) (*Definition, error) {
	terms := bond.DefaultTerms()

	maturity, err := generic.ParseOffset(bj.Maturity)
	if err != nil {
		return nil, fmt.Errorf("invalid maturity: %w", err)
	}
	terms.Maturity = maturity

	if bj.Period != "" {
		if terms.Period, err = generic.ParsePeriodType(bj.Period); err != nil {
			return nil, fmt.Errorf("invalid period: %w", err)
		}
	}
	if bj.BuyDate != "" {
		if terms.BuyDate, err = generic.ParseDate(bj.BuyDate); err != nil {
			return nil, generic.Invalid("buy_date", "%v", err)
		}
	}

	terms.Source = parseSource(bj.Source)
	terms.InitialRate = bj.InitialRate
	terms.Premium = bj.Premium
	terms.Capitalization = bj.Capitalization
	terms.EarlyBuyoutCost = bj.EarlyBuyoutCost
	terms.MarkEarlyBuyoutNotApplicable = bj.MarkEarlyBuyoutNotApplicable
	terms.ConstantRate = bj.ConstantRate
	if bj.ContinuationPremium != nil {
		terms.ContinuationPremium = *bj.ContinuationPremium
	}
	if bj.InitialCapital != nil {
		terms.InitialCapital = *bj.InitialCapital
	}

	if err := terms.Validate(); err != nil {
		return nil, err
	}
	return &Definition{ID: bj.ID, Name: bj.Name, Terms: terms}, nil
}

// ToJSON converts a Definition to BondJSON.
func (f *BondFactory) ToJSON(def *Definition) BondJSON {
	t := def.Terms
	cp, capital := t.ContinuationPremium, t.InitialCapital
	return BondJSON{
		ID:                           def.ID,
		Name:                         def.Name,
		Maturity:                     t.Maturity.String(),
		Period:                       string(t.Period),
		InitialRate:                  t.InitialRate,
		Source:                       string(t.Source),
		Premium:                      t.Premium,
		BuyDate:                      t.BuyDate.String(),
		Capitalization:               t.Capitalization,
		ContinuationPremium:          &cp,
		InitialCapital:               &capital,
		EarlyBuyoutCost:              t.EarlyBuyoutCost,
		MarkEarlyBuyoutNotApplicable: t.MarkEarlyBuyoutNotApplicable,
		ConstantRate:                 t.ConstantRate,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseSource(s string) rates.SeriesName {
	if s == "" {
		return rates.DefaultSeries
	}
	return rates.SeriesName(s)
}
