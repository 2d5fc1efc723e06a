/*
handlers.go - HTTP API handlers for the commission engine

PURPOSE:
  Exposes the commission engine via REST API. Handles HTTP request/response,
  JSON serialization, input policies, and rate resolution, then delegates to
  the engine.

ENDPOINTS:
  Commissions:
    POST   /api/commissions/preview      Compute for an inline record
    POST   /api/commissions/batch        Compute many records
    GET    /api/investments/{id}/commission  Compute for a stored record

  Investments:
    GET    /api/investments              List stored records
    POST   /api/investments              Create or replace a record
    GET    /api/investments/{id}         Get one record
    DELETE /api/investments/{id}         Delete a record

  Rates:
    GET    /api/rates                    List the rate table
    PUT    /api/rates                    Upsert one rate

  Calendar:
    GET    /api/cutoffs/current?date=    Most recent cutoff on or before date
    GET    /api/cutoffs/resolve?date=    Cutoff governing a deposit on date

  Reports:
    GET    /api/reports/payouts?date=    Payouts due for the current cutoff

REQUEST FLOW:
  1. Decode the record (factory.InvestmentJSON)
  2. Build engine input; apply the date policy on a bad deposit date
  3. Resolve rates (rates.Resolver, zero or reject policy)
  4. Compute (commission.Engine)
  5. Serialize the result

ERROR HANDLING:
  - 400: Invalid record, invalid date (reject policy), invalid query
  - 404: Unknown investment
  - 422: Rate lookup failed under the reject policy
  - 500: Internal errors, calendar invariant violations (via Recoverer)

SEE ALSO:
  - dto.go: Request/response data structures
  - report.go: Payout report
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/rates"
	"github.com/warp/commission-engine/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler. Zero values fall back to defaults.
type Options struct {
	Engine       commission.Calculator
	Provider     rates.Provider // defaults to the store
	Cache        *rates.RedisCache
	RatePolicy   rates.Policy
	DatePolicy   factory.DatePolicy
	BatchWorkers int
	Logger       *zap.Logger
	Metrics      *Metrics
	Today        func() calendar.Date
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Factory    *factory.InvestmentFactory
	Engine     commission.Calculator
	Rates      *rates.Resolver
	Cache      *rates.RedisCache
	DatePolicy factory.DatePolicy
	Workers    int
	Log        *zap.Logger
	Metrics    *Metrics
	Today      func() calendar.Date

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, opts Options) *Handler {
	if opts.Engine == nil {
		opts.Engine = commission.NewEngine()
	}
	if opts.Provider == nil {
		opts.Provider = store
	}
	if opts.DatePolicy == "" {
		opts.DatePolicy = factory.DatePolicyReject
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = commission.DefaultBatchWorkers
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Today == nil {
		opts.Today = calendar.Today
	}
	return &Handler{
		Store:      store,
		Factory:    factory.NewInvestmentFactory(),
		Engine:     opts.Engine,
		Rates:      rates.NewResolver(opts.Provider, opts.RatePolicy, opts.Logger.Named("rates")),
		Cache:      opts.Cache,
		DatePolicy: opts.DatePolicy,
		Workers:    opts.BatchWorkers,
		Log:        opts.Logger,
		Metrics:    opts.Metrics,
		Today:      opts.Today,
	}
}

// =============================================================================
// ORCHESTRATION
// =============================================================================

// prepare turns a record into resolved engine input. The returned notices
// describe substitutions made under the date policy.
func (h *Handler) prepare(ctx context.Context, rec factory.InvestmentJSON) (commission.Investment, []string, error) {
	var notices []string

	inv, err := h.Factory.ToInvestment(&rec)
	var dateErr *factory.DateError
	if errors.As(err, &dateErr) && h.DatePolicy == factory.DatePolicyToday {
		today := h.Today()
		h.Log.Warn("invalid deposit date, substituting today",
			zap.String("investment_id", rec.ID),
			zap.String("value", dateErr.Value),
			zap.Stringer("today", today),
		)
		notices = append(notices, fmt.Sprintf("deposit_date %q could not be parsed; %s was used", dateErr.Value, today))
		rec.DepositDate = today.String()
		inv, err = h.Factory.ToInvestment(&rec)
	}
	if err != nil {
		return commission.Investment{}, nil, err
	}

	parts := rates.Participants{InvestorID: rec.InvestorID, AdvisorID: rec.AdvisorID, OfficeID: rec.OfficeID}
	if err := h.Rates.Resolve(ctx, &inv, parts); err != nil {
		return commission.Investment{}, nil, err
	}
	return inv, notices, nil
}

// compute runs one record through prepare and the engine.
func (h *Handler) compute(ctx context.Context, rec factory.InvestmentJSON) (*CommissionResultDTO, error) {
	inv, notices, err := h.prepare(ctx, rec)
	if err != nil {
		h.Metrics.ObserveResult(nil, err)
		return nil, err
	}
	res, err := h.Engine.Compute(inv)
	h.Metrics.ObserveResult(res, err)
	if err != nil {
		return nil, err
	}
	if len(res.RateIssues) > 0 {
		h.Log.Warn("commission computed with zero rates",
			zap.String("investment_id", res.InvestmentID),
			zap.Int("rate_issues", len(res.RateIssues)),
		)
	}
	dto := toResultDTO(res, notices)
	return &dto, nil
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// PreviewCommission computes commissions for an inline record.
func (h *Handler) PreviewCommission(w http.ResponseWriter, r *http.Request) {
	var rec factory.InvestmentJSON
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dto, err := h.compute(r.Context(), rec)
	if err != nil {
		h.fail(w, "Failed to compute commission", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetInvestmentCommission computes commissions for a stored record.
func (h *Handler) GetInvestmentCommission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetInvestment(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to load investment", err)
		return
	}

	dto, err := h.compute(r.Context(), rec)
	if err != nil {
		h.fail(w, "Failed to compute commission", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// BatchCommissions computes many records. Individual failures are
// reported per item.
func (h *Handler) BatchCommissions(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Investments)+len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "Batch is empty", nil)
		return
	}

	ctx := r.Context()
	recs := make([]factory.InvestmentJSON, 0, len(req.Investments)+len(req.IDs))
	recs = append(recs, req.Investments...)
	loadErrs := make(map[int]error)
	for _, id := range req.IDs {
		rec, err := h.Store.GetInvestment(ctx, id)
		if err != nil {
			loadErrs[len(recs)] = err
			rec = factory.InvestmentJSON{ID: id}
		}
		recs = append(recs, rec)
	}

	items, err := h.computeMany(ctx, recs, loadErrs)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Batch interrupted", err)
		return
	}

	resp := BatchResponse{Items: items}
	for _, it := range items {
		if it.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// computeMany prepares every record, then computes the prepared ones with
// commission.ComputeBatch. Items keep the order of recs. pre holds errors
// already known by index.
func (h *Handler) computeMany(ctx context.Context, recs []factory.InvestmentJSON, pre map[int]error) ([]BatchItemDTO, error) {
	items := make([]BatchItemDTO, len(recs))
	notices := make([][]string, len(recs))
	var invs []commission.Investment
	var slots []int

	for i, rec := range recs {
		items[i].InvestmentID = rec.ID
		if err := pre[i]; err != nil {
			items[i].Error = errorBody("Failed to load investment", err)
			continue
		}
		inv, n, err := h.prepare(ctx, rec)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			h.Metrics.ObserveResult(nil, err)
			items[i].Error = errorBody("Failed to prepare investment", err)
			continue
		}
		items[i].InvestmentID = inv.ID
		notices[i] = n
		invs = append(invs, inv)
		slots = append(slots, i)
	}

	h.Metrics.ObserveBatch(len(invs))
	results, err := commission.ComputeBatch(ctx, h.Engine, invs, h.Workers)
	if err != nil {
		return nil, err
	}
	for j, res := range results {
		i := slots[j]
		h.Metrics.ObserveResult(res.Result, res.Err)
		if res.Err != nil {
			items[i].Error = errorBody("Failed to compute commission", res.Err)
			continue
		}
		dto := toResultDTO(res.Result, notices[i])
		items[i].Result = &dto
	}

	failed := 0
	for _, it := range items {
		if it.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		h.Log.Warn("batch completed with failures", zap.Int("total", len(items)), zap.Int("failed", failed))
	}
	return items, nil
}

// =============================================================================
// INVESTMENT HANDLERS
// =============================================================================

// ListInvestments returns all stored records.
func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.ListInvestments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list investments", err)
		return
	}
	if recs == nil {
		recs = []factory.InvestmentJSON{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// CreateInvestment validates and stores a record. The deposit date must be
// valid regardless of the date policy: stored records are not rewritten.
func (h *Handler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var rec factory.InvestmentJSON
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	inv, err := h.Factory.ToInvestment(&rec)
	if err != nil {
		h.fail(w, "Invalid investment", err)
		return
	}
	rec.DepositDate = inv.DepositDate.String()
	if err := h.Store.SaveInvestment(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save investment", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetInvestment returns one stored record.
func (h *Handler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetInvestment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to load investment", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteInvestment removes one stored record.
func (h *Handler) DeleteInvestment(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteInvestment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete investment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// ListRates returns the rate table.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.ListRates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rates", err)
		return
	}
	if entries == nil {
		entries = []rates.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// UpsertRate stores one rate and drops its cached value.
func (h *Handler) UpsertRate(w http.ResponseWriter, r *http.Request) {
	var e rates.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	k, err := e.Key()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate entry", err)
		return
	}
	if e.Rate.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid rate entry", errors.New("rate must not be negative"))
		return
	}
	if err := h.Store.UpsertRate(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate", err)
		return
	}
	h.invalidate(r.Context(), k)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) invalidate(ctx context.Context, k rates.Key) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(ctx, k); err != nil {
		h.Log.Warn("rate cache invalidation failed", zap.Stringer("key", k), zap.Error(err))
	}
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// CurrentCutoff returns the most recent cutoff on or before ?date (default today).
func (h *Handler) CurrentCutoff(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCutoffDTO(calendar.CurrentCutoff(d)))
}

// ResolveCutoff returns the cutoff governing a deposit made on ?date.
func (h *Handler) ResolveCutoff(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCutoffDTO(calendar.ResolveCutoff(d)))
}

func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request) (calendar.Date, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.Today(), true
	}
	d, err := factory.ParseDate("date", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return calendar.Date{}, false
	}
	return d, true
}

// =============================================================================
// HELPERS
// =============================================================================

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

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

// fail writes err with the status its type calls for.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error(message, zap.Error(err))
	}
	writeJSON(w, status, *errorBody(message, err))
}

func errorBody(message string, err error) *ErrorResponse {
	resp := &ErrorResponse{Error: message, Code: errorCode(err)}
	var verr *factory.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Fields
	} else if err != nil {
		resp.Details = err.Error()
	}
	return resp
}

func statusFor(err error) int {
	var lookupErr *rates.LookupError
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case factory.IsInputError(err):
		return http.StatusBadRequest
	case errors.As(err, &lookupErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	var dateErr *factory.DateError
	var verr *factory.ValidationError
	var lookupErr *rates.LookupError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, sqlite.ErrNotFound):
		return "not_found"
	case errors.As(err, &dateErr):
		return "invalid_date"
	case errors.As(err, &verr):
		return "invalid_record"
	case commission.IsClientError(err):
		return "invalid_investment"
	case errors.As(err, &lookupErr):
		return "rate_unavailable"
	default:
		return "internal"
	}
}
