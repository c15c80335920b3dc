/*
scenarios.go - Reference dataset loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the rate table (and optionally
	the database) with realistic data. Each scenario replaces the current rate
	table; bond scenarios also save a set of bond definitions.

AVAILABLE SCENARIOS:

	published:       CPI and reference rate history plus the published projection
	history-only:    CPI and reference rate history, no projection
	retail-catalog:  published rates plus one saved bond per catalog product

HOW SCENARIOS WORK:
 1. Build a fresh rate table from the reference loaders
 2. Swap it in under the handler lock
 3. For bond scenarios: reset the database and save definitions via factory

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "retail-catalog"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description and loader

NOTE:

	Bond scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: rate and bond handlers
  - rates/reference.go: reference series
  - factory/catalog.go: product definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/bond-engine/factory"
	"github.com/warp/bond-engine/rates"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "published",
			Name:        "Published Rates",
			Description: "Monthly CPI and the reference rate, history and projection",
			Category:    "rates",
		},
		load: loadRatesScenario(rates.LoadPublished),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "history-only",
			Name:        "History Only",
			Description: "Monthly CPI and the reference rate up to the last published value",
			Category:    "rates",
		},
		load: loadRatesScenario(rates.LoadCPIHistory, rates.LoadReferenceRateHistory),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "retail-catalog",
			Name:        "Retail Catalog",
			Description: "Published rates and one saved bond per retail product",
			Category:    "bonds",
		},
		load: loadRetailCatalogScenario,
	},
}

// catalogBuyDates are the purchase dates saved by the retail-catalog scenario.
var catalogBuyDates = map[string]string{
	"OTS": "2025-02-01",
	"ROR": "2024-01-01",
	"DOR": "2023-01-01",
	"TOS": "2022-08-01",
	"COI": "2020-12-01",
	"EDO": "2015-01-01",
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          current,
		Name:        current,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	if err := s.load(r.Context(), h); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()
	h.Logger.Info("loaded scenario", "scenario", s.ID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": s.ID})
}

// ResetDatabase clears saved bonds and snapshots and empties the rate table.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	empty := rates.NewStore()
	empty.Logger = h.Logger

	h.mu.Lock()
	h.rates = empty
	h.version++
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadRatesScenario builds a fresh table with the given loaders and swaps it in.
func loadRatesScenario(loaders ...func(*rates.Store) error) func(context.Context, *Handler) error {
	return func(_ context.Context, h *Handler) error {
		next := rates.NewStore()
		for _, load := range loaders {
			if err := load(next); err != nil {
				return err
			}
		}
		_, err := h.replaceRates(next.Snapshot())
		return err
	}
}

func loadRetailCatalogScenario(ctx context.Context, h *Handler) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	if err := loadRatesScenario(rates.LoadPublished)(ctx, h); err != nil {
		return err
	}

	for _, p := range factory.Products() {
		jsonStr, err := factory.ProductJSON(p.Code, catalogBuyDates[p.Code])
		if err != nil {
			return err
		}
		def, err := h.BondFactory.ParseBond(jsonStr)
		if err != nil {
			return err
		}
		if _, err := h.saveDefinition(ctx, def); err != nil {
			return fmt.Errorf("failed to save %s: %w", p.Code, err)
		}
	}
	return nil
}
