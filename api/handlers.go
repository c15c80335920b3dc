/*
handlers.go - HTTP API handlers for the bond engine

PURPOSE:
  Exposes the rate store, the accrual engine and the profit aggregator via
  REST API. Handles HTTP request/response, JSON serialization, and delegates
  to domain logic.

ENDPOINTS:
  Rates:
    GET    /api/rates                        Series and ranges
    GET    /api/rates/{series}?date=         Rate a bond would use on date
    POST   /api/rates/{series}/periodic      Assign per month / year / span
    POST   /api/rates/{series}/continuous    Assign a step function
    POST   /api/rates/{series}/extend        Flat-extend to past or future
    GET    /api/rates/snapshots              Saved rate tables
    POST   /api/rates/save                   Save the table (sqlite)
    POST   /api/rates/load                   Restore a saved table

  Bonds:
    GET    /api/products                     Retail bond catalog
    GET    /api/bonds                        Saved bond definitions
    POST   /api/bonds                        Save a bond definition
    GET    /api/bonds/{id}                   One saved bond
    DELETE /api/bonds/{id}                   Delete a saved bond

  Computation:
    POST   /api/ledger                       Interest ledger
    POST   /api/profit                       Profit curve
    POST   /api/compare                      Several profit curves, concurrently

  Scenarios:
    GET    /api/scenarios                    List reference datasets
    POST   /api/scenarios/load               Load a reference dataset

ARCHITECTURE:
  Handler holds one rate store shared by every request. Mutations take the
  write lock; computations take the read lock and build their own Bond, so
  requests never share a ledger.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Construction / validation errors, unsupported period
  - 404: Bond or snapshot not found
  - 422: Reference rate not available for a day the bond needs
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Reference dataset loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/warp/bond-engine/bond"
	"github.com/warp/bond-engine/factory"
	"github.com/warp/bond-engine/generic"
	"github.com/warp/bond-engine/profit"
	"github.com/warp/bond-engine/rates"
	"github.com/warp/bond-engine/store/sqlite"
)

const timeLayout = time.RFC3339

// maxCompare caps concurrent curve computations per compare request.
const maxCompare = 4

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	BondFactory *factory.BondFactory
	Logger      *slog.Logger

	mu      sync.RWMutex
	rates   *rates.Store
	version uint64 // bumped on every rate mutation
	saved   uint64 // version of the last persisted table

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and an empty rate table.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:       store,
		BondFactory: factory.NewBondFactory(),
		Logger:      slog.Default(),
		rates:       rates.NewStore(),
	}
}

// LoadRates restores the latest saved rate table, if any.
func (h *Handler) LoadRates(ctx context.Context) error {
	snap, err := h.Store.LatestRateSnapshot(ctx)
	if errors.Is(err, generic.ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	version, err := h.replaceRates(*snap)
	if err != nil {
		return err
	}
	h.markSaved(version)
	return nil
}

// replaceRates swaps in a table built from snap and returns its version.
func (h *Handler) replaceRates(snap rates.Snapshot) (uint64, error) {
	next, err := rates.FromSnapshot(snap)
	if err != nil {
		return 0, err
	}
	next.Logger = h.Logger

	h.mu.Lock()
	defer h.mu.Unlock()
	h.rates = next
	h.version++
	return h.version, nil
}

// mutateRates runs fn under the write lock and bumps the version when fn succeeds.
func (h *Handler) mutateRates(fn func(s *rates.Store) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := fn(h.rates); err != nil {
		return err
	}
	h.version++
	return nil
}

// ratesSnapshot returns a copy of the table and the version it reflects.
func (h *Handler) ratesSnapshot() (rates.Snapshot, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rates.Snapshot(), h.version
}

// unsavedRates is ratesSnapshot when the table changed since the last save.
func (h *Handler) unsavedRates() (rates.Snapshot, uint64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.version == h.saved {
		return rates.Snapshot{}, h.version, false
	}
	return h.rates.Snapshot(), h.version, true
}

// markSaved records that the table at version is persisted.
func (h *Handler) markSaved(version uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if version > h.saved {
		h.saved = version
	}
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// GetRates returns the table's range and populated series.
// GET /api/rates
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	dto := toRatesDTO(h.rates)
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, dto)
}

// GetRate returns the rate a bond reading the series would use on date.
// GET /api/rates/{series}?date=YYYY-MM-DD
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	series := rates.SeriesName(chi.URLParam(r, "series"))
	date, err := generic.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	h.mu.RLock()
	rate, err := h.rates.Rate(series, date)
	h.mu.RUnlock()
	if err != nil {
		writeDomainError(w, "Failed to look up rate", err)
		return
	}

	writeJSON(w, http.StatusOK, RateDTO{Series: string(series), Date: date.String(), Rate: rate})
}

// SetPeriodic assigns values per calendar period.
// POST /api/rates/{series}/periodic
func (h *Handler) SetPeriodic(w http.ResponseWriter, r *http.Request) {
	series := rates.SeriesName(chi.URLParam(r, "series"))

	var req SetPeriodicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := parseOptionalDate("start", req.Start)
	if err != nil {
		writeDomainError(w, "Invalid start", err)
		return
	}
	end, err := parseOptionalDate("end", req.End)
	if err != nil {
		writeDomainError(w, "Invalid end", err)
		return
	}

	err = h.mutateRates(func(s *rates.Store) error {
		return s.SetPeriodic(series, req.Values, generic.PeriodType(req.Period), start, end)
	})
	if err != nil {
		writeDomainError(w, "Failed to set rates", err)
		return
	}
	h.GetRates(w, r)
}

// SetContinuous assigns a step function over change dates.
// POST /api/rates/{series}/continuous
func (h *Handler) SetContinuous(w http.ResponseWriter, r *http.Request) {
	series := rates.SeriesName(chi.URLParam(r, "series"))

	var req SetContinuousRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dates := make([]generic.Date, len(req.Dates))
	for i, s := range req.Dates {
		d, err := generic.ParseDate(s)
		if err != nil {
			writeDomainError(w, "Invalid dates", generic.Invalid("dates", "%v", err))
			return
		}
		dates[i] = d
	}
	from, err := parseOptionalDate("extend_from", req.ExtendFrom)
	if err != nil {
		writeDomainError(w, "Invalid extend_from", err)
		return
	}
	to, err := parseOptionalDate("extend_to", req.ExtendTo)
	if err != nil {
		writeDomainError(w, "Invalid extend_to", err)
		return
	}

	err = h.mutateRates(func(s *rates.Store) error {
		if from.IsZero() && to.IsZero() {
			return s.SetContinuous(series, req.Values, dates)
		}
		return s.SetContinuous(series, req.Values, dates, from, to)
	})
	if err != nil {
		writeDomainError(w, "Failed to set rates", err)
		return
	}
	h.GetRates(w, r)
}

// Extend flat-extends a series' edge value.
// POST /api/rates/{series}/extend
func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	series := rates.SeriesName(chi.URLParam(r, "series"))

	var req ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	err = h.mutateRates(func(s *rates.Store) error {
		switch req.Direction {
		case "past":
			return s.ExtendToPast(date, series)
		case "future":
			return s.ExtendToFuture(date, series)
		default:
			return generic.Invalid("direction", "must be past or future, got %q", req.Direction)
		}
	})
	if err != nil {
		writeDomainError(w, "Failed to extend rates", err)
		return
	}
	h.GetRates(w, r)
}

// ListSnapshots returns saved rate tables, newest first.
// GET /api/rates/snapshots
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Store.ListRateSnapshots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
		return
	}

	dtos := make([]SnapshotDTO, len(infos))
	for i, info := range infos {
		dtos[i] = toSnapshotDTO(info)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveRates persists the current table.
// POST /api/rates/save
func (h *Handler) SaveRates(w http.ResponseWriter, r *http.Request) {
	snap, version := h.ratesSnapshot()
	id, err := h.Store.SaveRateSnapshot(r.Context(), snap)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rates", err)
		return
	}
	h.markSaved(version)
	writeJSON(w, http.StatusCreated, SnapshotDTO{
		ID:      id,
		Start:   snap.Start.String(),
		Days:    snap.Days,
		TakenAt: snap.TakenAt.Format(timeLayout),
	})
}

// LoadRatesSnapshot replaces the table with a saved one, the latest when
// no id is given.
// POST /api/rates/load
func (h *Handler) LoadRatesSnapshot(w http.ResponseWriter, r *http.Request) {
	var req LoadRatesRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var (
		snap *rates.Snapshot
		err  error
	)
	if req.ID == "" {
		snap, err = h.Store.LatestRateSnapshot(r.Context())
	} else {
		snap, err = h.Store.GetRateSnapshot(r.Context(), req.ID)
	}
	if err != nil {
		writeDomainError(w, "Failed to load rates", err)
		return
	}
	if _, err := h.replaceRates(*snap); err != nil {
		writeDomainError(w, "Failed to restore rates", err)
		return
	}
	h.GetRates(w, r)
}

// =============================================================================
// BOND HANDLERS
// =============================================================================

// ListProducts returns the retail bond catalog.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.Products())
}

// ListBonds returns all saved bonds.
// GET /api/bonds
func (h *Handler) ListBonds(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListBonds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bonds", err)
		return
	}

	dtos := make([]BondDTO, 0, len(records))
	for _, rec := range records {
		dto, err := h.toBondDTO(rec)
		if err != nil {
			h.Logger.Warn("skipping invalid saved bond", "id", rec.ID, "error", err)
			continue
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBond returns one saved bond.
// GET /api/bonds/{id}
func (h *Handler) GetBond(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetBond(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get bond", err)
		return
	}
	dto, err := h.toBondDTO(*rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Saved bond is invalid", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateBond validates and saves a bond definition.
// POST /api/bonds
func (h *Handler) CreateBond(w http.ResponseWriter, r *http.Request) {
	var bj factory.BondJSON
	if err := json.NewDecoder(r.Body).Decode(&bj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	def, err := h.BondFactory.FromJSON(bj)
	if err != nil {
		writeDomainError(w, "Invalid bond", err)
		return
	}

	id, err := h.saveDefinition(r.Context(), def)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save bond", err)
		return
	}

	rec, err := h.Store.GetBond(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read saved bond", err)
		return
	}
	dto, err := h.toBondDTO(*rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Saved bond is invalid", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// DeleteBond removes a saved bond.
// DELETE /api/bonds/{id}
func (h *Handler) DeleteBond(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteBond(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete bond", err)
		return
	}
	h.Logger.Info("deleted bond", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// saveDefinition stores the normalized form: defaults filled in, dates explicit.
func (h *Handler) saveDefinition(ctx context.Context, def *factory.Definition) (string, error) {
	definition, err := json.Marshal(h.BondFactory.ToJSON(def))
	if err != nil {
		return "", err
	}
	return h.Store.SaveBond(ctx, sqlite.BondRecord{ID: def.ID, Name: def.Name, DefinitionJSON: string(definition)})
}

func (h *Handler) toBondDTO(rec sqlite.BondRecord) (BondDTO, error) {
	def, err := h.BondFactory.ParseBond(rec.DefinitionJSON)
	if err != nil {
		return BondDTO{}, err
	}
	def.ID = rec.ID
	return BondDTO{
		ID:           rec.ID,
		Name:         rec.Name,
		Definition:   h.BondFactory.ToJSON(def),
		MaturityDate: def.Terms.MaturityDate().String(),
		Version:      rec.Version,
		CreatedAt:    rec.CreatedAt.Format(timeLayout),
		UpdatedAt:    rec.UpdatedAt.Format(timeLayout),
	}, nil
}

// =============================================================================
// COMPUTATION HANDLERS
// =============================================================================

// computation is one built ledger and what was asked for.
type computation struct {
	label  string
	bond   *bond.Bond
	ledger *bond.Ledger
	till   generic.Date
}

// resolve turns a request into terms and an absolute horizon.
func (h *Handler) resolve(ctx context.Context, req CalcRequest) (string, bond.Terms, bond.Horizon, error) {
	var (
		def *factory.Definition
		err error
	)
	switch {
	case req.Bond != nil:
		def, err = h.BondFactory.FromJSON(*req.Bond)
	case req.BondID != "":
		var rec *sqlite.BondRecord
		if rec, err = h.Store.GetBond(ctx, req.BondID); err == nil {
			def, err = h.BondFactory.ParseBond(rec.DefinitionJSON)
		}
	case req.Product != "":
		var jsonStr string
		if jsonStr, err = factory.ProductJSON(req.Product, req.BuyDate); err != nil {
			err = generic.Invalid("product", "%v", err)
		} else {
			def, err = h.BondFactory.ParseBond(jsonStr)
		}
	default:
		err = generic.Invalid("bond", "one of bond | bond_id | product is required")
	}
	if err != nil {
		return "", bond.Terms{}, bond.Horizon{}, err
	}

	var horizon bond.Horizon
	switch {
	case req.Till != "":
		till, err := generic.ParseDate(req.Till)
		if err != nil {
			return "", bond.Terms{}, bond.Horizon{}, generic.Invalid("till", "%v", err)
		}
		horizon = bond.Until(till)
	case req.For != "":
		offset, err := generic.ParseOffset(req.For)
		if err != nil {
			return "", bond.Terms{}, bond.Horizon{}, err
		}
		horizon = bond.For(offset)
	}

	label := def.Name
	if label == "" {
		label = def.ID
	}
	return label, def.Terms, horizon, nil
}

// computeLocked builds one ledger. Callers hold the read lock.
func (h *Handler) computeLocked(label string, terms bond.Terms, horizon bond.Horizon) (*computation, error) {
	b, err := bond.New(terms, h.rates)
	if err != nil {
		return nil, err
	}
	b.Logger = h.Logger

	ledger, err := b.Build(horizon)
	if err != nil {
		return nil, err
	}

	till := horizon.Date
	if till.IsZero() {
		till = b.Terms().BuyDate.Add(horizon.Offset)
	}
	return &computation{label: label, bond: b, ledger: ledger, till: till}, nil
}

func (h *Handler) compute(ctx context.Context, req CalcRequest) (*computation, error) {
	label, terms, horizon, err := h.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.computeLocked(label, terms, horizon)
}

func (c *computation) profit() ProfitResponse {
	curve := profit.New(c.ledger).CalcTotal()
	points := curve.Until(c.till)

	resp := ProfitResponse{
		Label:        c.label,
		BuyDate:      c.bond.Terms().BuyDate.String(),
		MaturityDate: c.bond.MaturityDate().String(),
		Till:         c.till.String(),
		Points:       points,
	}
	if n := len(points); n > 0 {
		resp.FinalTotal = points[n-1].Total
	}
	return resp
}

// Ledger returns the interest ledger of one bond.
// POST /api/ledger
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.compute(r.Context(), req)
	if err != nil {
		writeDomainError(w, "Failed to build ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, LedgerResponse{
		BuyDate:      c.bond.Terms().BuyDate.String(),
		MaturityDate: c.bond.MaturityDate().String(),
		Till:         c.till.String(),
		Instances:    c.ledger.Instances(),
		Rows:         c.ledger.Rows(),
	})
}

// Profit returns the profit curve of one bond up to the horizon.
// POST /api/profit
func (h *Handler) Profit(w http.ResponseWriter, r *http.Request) {
	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.compute(r.Context(), req)
	if err != nil {
		writeDomainError(w, "Failed to compute profit", err)
		return
	}
	writeJSON(w, http.StatusOK, c.profit())
}

// Compare computes several profit curves concurrently. Each bond builds
// its own ledger against the same rate table; the first failure cancels
// the rest.
// POST /api/compare
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Bonds) == 0 {
		writeDomainError(w, "Nothing to compare", generic.Invalid("bonds", "at least one bond is required"))
		return
	}

	type resolved struct {
		label   string
		terms   bond.Terms
		horizon bond.Horizon
	}
	inputs := make([]resolved, len(req.Bonds))
	for i, calc := range req.Bonds {
		label, terms, horizon, err := h.resolve(r.Context(), calc)
		if err != nil {
			writeDomainError(w, fmt.Sprintf("Invalid bond #%d", i+1), err)
			return
		}
		inputs[i] = resolved{label: label, terms: terms, horizon: horizon}
	}

	results := make([]ProfitResponse, len(inputs))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(maxCompare)

	h.mu.RLock()
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := h.computeLocked(in.label, in.terms, in.horizon)
			if err != nil {
				return fmt.Errorf("bond #%d: %w", i+1, err)
			}
			results[i] = c.profit()
			return nil
		})
	}
	err := g.Wait()
	h.mu.RUnlock()

	if err != nil {
		writeDomainError(w, "Failed to compare bonds", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy to a status code.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, generic.ErrRateNotAvailable):
		resp := ErrorResponse{Error: message, Code: "RATE_NOT_AVAILABLE", Details: err.Error()}
		if details, ok := toLookupErrorDTO(err); ok {
			resp.Details = details
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case generic.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: "INVALID", Details: err.Error()})
	case generic.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: message, Code: "NOT_FOUND", Details: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
