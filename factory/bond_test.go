package factory_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bond-engine/factory"
	"github.com/warp/bond-engine/generic"
	"github.com/warp/bond-engine/rates"
)

func TestParseBond(t *testing.T) {
	jsonStr := `{
		"id": "ror-2024-01",
		"name": "ROR January 2024",
		"maturity": "1y",
		"period": "monthly",
		"initial_rate": 6.15,
		"source": "NBP:REF",
		"premium": 0,
		"buy_date": "2024-01-01",
		"continuation_premium": "0.2",
		"early_buyout_cost": 0.5,
		"mark_early_buyout_not_applicable": true
	}`

	def, err := factory.NewBondFactory().ParseBond(jsonStr)
	require.NoError(t, err)

	assert.Equal(t, "ror-2024-01", def.ID)
	assert.Equal(t, "ROR January 2024", def.Name)
	assert.Equal(t, generic.Offset{Years: 1}, def.Terms.Maturity)
	assert.Equal(t, generic.PeriodMonthly, def.Terms.Period)
	assert.Equal(t, rates.NBPREF, def.Terms.Source)
	assert.Equal(t, generic.NewDate(2024, time.January, 1), def.Terms.BuyDate)
	assert.True(t, def.Terms.InitialRate.Equal(decimal.RequireFromString("6.15")))
	assert.True(t, def.Terms.ContinuationPremium.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, def.Terms.EarlyBuyoutCost.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, def.Terms.MarkEarlyBuyoutNotApplicable)
	assert.False(t, def.Terms.Capitalization)
}

func TestParseBond_Defaults(t *testing.T) {
	def, err := factory.NewBondFactory().ParseBond(`{"maturity": "2y", "initial_rate": 5}`)
	require.NoError(t, err)

	assert.Equal(t, generic.PeriodYearly, def.Terms.Period)
	assert.Equal(t, rates.DefaultSeries, def.Terms.Source)
	assert.Equal(t, generic.Today(), def.Terms.BuyDate)
	assert.True(t, def.Terms.ContinuationPremium.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, def.Terms.InitialCapital.Equal(decimal.NewFromInt(100)))
}

func TestParseBond_Errors(t *testing.T) {
	f := factory.NewBondFactory()

	tests := []struct {
		name   string
		json   string
		target error
	}{
		{"malformed json", `{"maturity": `, generic.ErrValidation},
		{"missing maturity", `{"initial_rate": 5}`, generic.ErrConstruction},
		{"malformed maturity", `{"maturity": "ten years"}`, generic.ErrValidation},
		{"maturity in days", `{"maturity": "90d"}`, generic.ErrConstruction},
		{"daily resets", `{"maturity": "1y", "period": "daily"}`, generic.ErrUnsupportedPeriod},
		{"unknown period", `{"maturity": "1y", "period": "weekly"}`, generic.ErrUnsupportedPeriod},
		{"bad buy date", `{"maturity": "1y", "buy_date": "2025-02-30"}`, generic.ErrValidation},
		{"negative capital", `{"maturity": "1y", "initial_capital": -5}`, generic.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseBond(tt.json)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewBondFactory()
	def, err := f.ParseBond(factory.TOSJSON("2022-08-01"))
	require.NoError(t, err)

	bj := f.ToJSON(def)
	assert.Equal(t, "tos-2022-08-01", bj.ID)
	assert.Equal(t, "3y", bj.Maturity)
	assert.Equal(t, "yearly", bj.Period)
	assert.Equal(t, "2022-08-01", bj.BuyDate)
	assert.True(t, bj.Capitalization)
	assert.True(t, bj.ConstantRate)

	encoded, err := json.Marshal(bj)
	require.NoError(t, err)
	again, err := f.ParseBond(string(encoded))
	require.NoError(t, err)
	assert.Equal(t, def.Terms.Maturity, again.Terms.Maturity)
	assert.Equal(t, def.Terms.BuyDate, again.Terms.BuyDate)
	assert.True(t, def.Terms.InitialRate.Equal(again.Terms.InitialRate))
	assert.True(t, def.Terms.Premium.Equal(again.Terms.Premium))
	assert.True(t, def.Terms.EarlyBuyoutCost.Equal(again.Terms.EarlyBuyoutCost))
}
