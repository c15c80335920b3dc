/*
catalog.go - Retail treasury bond products

PURPOSE:
  Ready-to-use JSON definitions of the retail bond series. Each function
  takes the buy date and returns JSON that ParseBond accepts.

AVAILABLE PRODUCTS:
  OTS: 3 months, fixed rate
  ROR: 1 year, monthly reset on the reference rate
  DOR: 2 years, monthly reset on the reference rate plus margin
  TOS: 3 years, fixed rate, yearly capitalization
  COI: 4 years, yearly reset on inflation plus margin, interest paid out
  EDO: 10 years, yearly reset on inflation plus margin, capitalized

  Rates and margins are those of one historical issue of each series. Real
  issues change them every month: treat these as templates.

EXAMPLE:
  def, err := factory.NewBondFactory().ParseBond(factory.EDOJSON("2015-01-01"))
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Product describes one catalog entry.
type Product struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`

	build func(buyDate string) string
}

var catalog = []Product{
	{Code: "OTS", Name: "3-month fixed", Description: "3 months, fixed rate paid at maturity", build: OTSJSON},
	{Code: "ROR", Name: "1-year floating", Description: "1 year, monthly coupon on the reference rate", build: RORJSON},
	{Code: "DOR", Name: "2-year floating", Description: "2 years, monthly coupon on the reference rate plus margin", build: DORJSON},
	{Code: "TOS", Name: "3-year fixed", Description: "3 years, fixed rate, capitalized yearly", build: TOSJSON},
	{Code: "COI", Name: "4-year indexed", Description: "4 years, inflation plus margin, yearly coupon", build: COIJSON},
	{Code: "EDO", Name: "10-year indexed", Description: "10 years, inflation plus margin, capitalized yearly", build: EDOJSON},
}

// Products lists the catalog in ascending maturity.
func Products() []Product {
	return append([]Product(nil), catalog...)
}

// ProductJSON returns the definition of the product code bought on buyDate.
func ProductJSON(code, buyDate string) (string, error) {
	for _, p := range catalog {
		if strings.EqualFold(p.Code, code) {
			return p.build(buyDate), nil
		}
	}
	return "", fmt.Errorf("unknown product %q", code)
}

// OTSJSON returns JSON for a 3-month fixed-rate bond.
func OTSJSON(buyDate string) string {
	return productJSON("OTS", buyDate, map[string]interface{}{
		"maturity":      "3m",
		"period":        "yearly",
		"initial_rate":  3.00,
		"source":        "GUS:CPI",
		"premium":       0,
		"constant_rate": true,
	})
}

// RORJSON returns JSON for a 1-year bond with monthly reference rate resets.
func RORJSON(buyDate string) string {
	return productJSON("ROR", buyDate, map[string]interface{}{
		"maturity":          "1y",
		"period":            "monthly",
		"initial_rate":      6.15,
		"source":            "NBP:REF",
		"premium":           0,
		"early_buyout_cost": 0.5,
	})
}

// DORJSON returns JSON for a 2-year bond with monthly resets plus margin.
func DORJSON(buyDate string) string {
	return productJSON("DOR", buyDate, map[string]interface{}{
		"maturity":          "2y",
		"period":            "monthly",
		"initial_rate":      6.85,
		"source":            "NBP:REF",
		"premium":           0.1,
		"early_buyout_cost": 0.7,
	})
}

// TOSJSON returns JSON for a 3-year fixed-rate capitalized bond.
func TOSJSON(buyDate string) string {
	return productJSON("TOS", buyDate, map[string]interface{}{
		"maturity":          "3y",
		"period":            "yearly",
		"initial_rate":      6.5,
		"source":            "GUS:CPI",
		"premium":           1.0,
		"capitalization":    true,
		"constant_rate":     true,
		"early_buyout_cost": 0.7,
	})
}

// COIJSON returns JSON for a 4-year inflation-indexed bond with yearly coupons.
func COIJSON(buyDate string) string {
	return productJSON("COI", buyDate, map[string]interface{}{
		"maturity":          "4y",
		"period":            "yearly",
		"initial_rate":      1.3,
		"source":            "GUS:CPI",
		"premium":           0.75,
		"early_buyout_cost": 0.7,
	})
}

// EDOJSON returns JSON for a 10-year inflation-indexed capitalized bond.
func EDOJSON(buyDate string) string {
	return productJSON("EDO", buyDate, map[string]interface{}{
		"maturity":          "10y",
		"period":            "yearly",
		"initial_rate":      3.0,
		"source":            "GUS:CPI",
		"premium":           1.5,
		"capitalization":    true,
		"early_buyout_cost": 2.0,
	})
}

func productJSON(code, buyDate string, fields map[string]interface{}) string {
	fields["id"] = strings.ToLower(code) + "-" + buyDate
	fields["name"] = code + " " + buyDate
	fields["buy_date"] = buyDate
	b, _ := json.MarshalIndent(fields, "", "  ")
	return string(b)
}
