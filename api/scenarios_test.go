/*
scenarios_test.go - Unit tests for reference datasets

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- The rate table holds the expected series and range
	- Bond scenarios save one definition per catalog product
	- Saved bonds compute against the loaded rates

These tests ensure scenarios work correctly and can be used as integration tests.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bond-engine/rates"
)

func TestScenarios_List(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, nil)

	rec := do(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ids []string
	for _, s := range decode[[]ScenarioDTO](t, rec) {
		ids = append(ids, s.ID)
		assert.NotEmpty(t, s.Description, s.ID)
	}
	assert.Equal(t, []string{"published", "history-only", "retail-catalog"}, ids)

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "null", rec.Body.String())
}

func TestScenario_Published(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, nil)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "published"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Both series are loaded with the projection
	want := rates.NewStore()
	require.NoError(t, rates.LoadPublished(want))
	wantRange, _ := want.Range()
	gotRange, ok := h.rates.Range()
	require.True(t, ok)
	assert.Equal(t, wantRange, gotRange)
	assert.Equal(t, []rates.SeriesName{rates.GUSCPI, rates.NBPREF}, h.rates.Series())

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "published", decode[ScenarioDTO](t, rec).ID)
}

func TestScenario_HistoryOnly(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, nil)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "history-only"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: The history ends before the projection would start
	cpi, ok := h.rates.ValidRange(rates.GUSCPI)
	require.True(t, ok)
	assert.Equal(t, "2024-12-31", cpi.End.String())

	// AND: A bond needing 2025 CPI fails with the missing day
	rec = do(t, router, http.MethodPost, "/api/ledger", CalcRequest{Product: "COI", BuyDate: "2024-01-01", Till: "2026-01-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestScenario_RetailCatalog(t *testing.T) {
	ctx := context.Background()
	h := setupTestHandler(t)
	router := NewRouter(h, nil)

	// WHEN: Loading the catalog
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "retail-catalog"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: One saved bond per product
	records, err := h.Store.ListBonds(ctx)
	require.NoError(t, err)
	require.Len(t, records, 6)

	rec = do(t, router, http.MethodGet, "/api/bonds/edo-2015-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01-01", decode[BondDTO](t, rec).MaturityDate)

	// AND: Every saved bond computes to its maturity
	for _, r := range records {
		rec := do(t, router, http.MethodPost, "/api/profit", CalcRequest{BondID: r.ID, For: mustMaturity(t, h, r.DefinitionJSON)})
		assert.Equal(t, http.StatusOK, rec.Code, "%s: %s", r.ID, rec.Body.String())
	}

	// WHEN: Loading it again
	rec = do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "retail-catalog"})
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: The database was reset first
	records, err = h.Store.ListBonds(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 6)
	for _, r := range records {
		assert.Equal(t, 1, r.Version, r.ID)
	}
}

func mustMaturity(t *testing.T, h *Handler, definition string) string {
	t.Helper()
	def, err := h.BondFactory.ParseBond(definition)
	require.NoError(t, err)
	return def.Terms.Maturity.String()
}

func TestScenario_Unknown(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, nil)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetDatabase(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, nil)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "retail-catalog"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, ok := h.rates.Range()
	assert.False(t, ok)
	rec = do(t, router, http.MethodGet, "/api/bonds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]BondDTO](t, rec))
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.JSONEq(t, "null", rec.Body.String())
}
