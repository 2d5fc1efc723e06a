/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a rate
	table and a portfolio of investments that demonstrate specific engine
	behaviour.

AVAILABLE SCENARIOS:

	reference:          100000 on 2024-01-10, 12 months, monthly, D+60
	semiannual:         investor compounding within 6-month cycles
	cutoff-edge:        deposits on the 19th, 20th and 21st
	never-eligible:     waiting period longer than the commitment
	missing-rates:      an investment shape with no rate configured
	mixed-portfolio:    every liquidity, for the payout report

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Upsert the scenario's rate table
 3. Save the scenario's investments

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "reference"}

ADDING NEW SCENARIOS:
 1. Add a scenario to the 'scenarios' slice with its ID, rates and investments
 2. That's it: LoadScenario drives every scenario the same way

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: compute endpoints
  - rates/static.go: rate entry format
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/rates"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	rates       []rates.Entry
	investments []factory.InvestmentJSON
}

func rate(role string, months int, liquidity, value string) rates.Entry {
	return rates.Entry{Role: role, CommitmentMonths: months, Liquidity: liquidity, Rate: decimal.RequireFromString(value)}
}

func investment(id, amount, deposit string, months int, liquidity string, payoutStart int, advisor, office string) factory.InvestmentJSON {
	p := payoutStart
	return factory.InvestmentJSON{
		ID:               id,
		Amount:           decimal.RequireFromString(amount),
		DepositDate:      deposit,
		CommitmentMonths: months,
		Liquidity:        liquidity,
		InvestorID:       "investor-" + id,
		AdvisorID:        advisor,
		OfficeID:         office,
		PayoutStartDays:  &p,
	}
}

// standardRates is the rate table most scenarios share.
func standardRates() []rates.Entry {
	var out []rates.Entry
	for _, months := range []int{6, 12, 24, 36} {
		out = append(out,
			rate("advisor", months, "monthly", "0.03"),
			rate("office", months, "monthly", "0.01"),
			rate("investor", months, "monthly", "0.021"),
		)
		for _, liq := range []string{"semiannual", "annual", "biennial", "triennial"} {
			out = append(out,
				rate("advisor", months, liq, "0.03"),
				rate("office", months, liq, "0.01"),
				rate("investor", months, liq, "0.01"),
			)
		}
	}
	return out
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "reference",
			Name:        "Reference Investment",
			Description: "100000 deposited 2024-01-10, 12 months, monthly liquidity, investor paid from D+60",
			Category:    "basics",
		},
		rates: standardRates(),
		investments: []factory.InvestmentJSON{
			investment("ref-001", "100000", "2024-01-10", 12, "monthly", 60, "adv-1", "office-1"),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "semiannual",
			Name:        "Semiannual Compounding",
			Description: "Investor growth reinvested within each 6-month cycle, paid at the cycle end",
			Category:    "liquidity",
		},
		rates: standardRates(),
		investments: []factory.InvestmentJSON{
			investment("semi-001", "100000", "2024-01-10", 12, "semiannual", 0, "adv-1", "office-1"),
			investment("semi-002", "250000", "2024-02-25", 24, "semiannual", 30, "adv-2", ""),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "cutoff-edge",
			Name:        "Cutoff Edge",
			Description: "Deposits on the 19th, 20th and 21st land on different cutoffs",
			Category:    "calendar",
		},
		rates: standardRates(),
		investments: []factory.InvestmentJSON{
			investment("edge-19", "50000", "2024-03-19", 12, "monthly", 0, "adv-1", "office-1"),
			investment("edge-20", "50000", "2024-03-20", 12, "monthly", 0, "adv-1", "office-1"),
			investment("edge-21", "50000", "2024-03-21", 12, "monthly", 0, "adv-1", "office-1"),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "never-eligible",
			Name:        "Never Eligible",
			Description: "Investor waiting period longer than the commitment: intermediaries only",
			Category:    "eligibility",
		},
		rates: standardRates(),
		investments: []factory.InvestmentJSON{
			investment("wait-001", "80000", "2024-01-10", 6, "monthly", 365, "adv-1", "office-1"),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "missing-rates",
			Name:        "Missing Rates",
			Description: "An 18-month commitment has no configured rate; amounts fall back to zero",
			Category:    "rates",
		},
		rates: standardRates(),
		investments: []factory.InvestmentJSON{
			investment("gap-001", "40000", "2024-05-05", 18, "monthly", 0, "adv-1", "office-1"),
			investment("ok-001", "40000", "2024-05-05", 12, "monthly", 0, "adv-1", "office-1"),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "mixed-portfolio",
			Name:        "Mixed Portfolio",
			Description: "One investment per liquidity for the monthly payout report",
			Category:    "reports",
		},
		rates: standardRates(),
		investments: []factory.InvestmentJSON{
			investment("mix-m", "100000", "2024-01-10", 12, "monthly", 60, "adv-1", "office-1"),
			investment("mix-s", "100000", "2024-01-15", 12, "semiannual", 0, "adv-1", "office-1"),
			investment("mix-a", "100000", "2024-02-01", 24, "annual", 30, "adv-2", "office-1"),
			investment("mix-b", "100000", "2024-02-22", 24, "biennial", 0, "", "office-2"),
			investment("mix-t", "100000", "2024-03-03", 36, "triennial", 90, "adv-3", ""),
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
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
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.loadScenario(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "loaded",
		"scenario":    s.ID,
		"investments": len(s.investments),
		"rates":       len(s.rates),
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) error {
	if err := h.reset(ctx); err != nil {
		return err
	}
	for _, e := range s.rates {
		if err := h.Store.UpsertRate(ctx, e); err != nil {
			return fmt.Errorf("rate %s/%d/%s: %w", e.Role, e.CommitmentMonths, e.Liquidity, err)
		}
		if k, err := e.Key(); err == nil {
			h.invalidate(ctx, k)
		}
	}
	for _, rec := range s.investments {
		if _, err := h.Factory.ToInvestment(&rec); err != nil {
			return fmt.Errorf("investment %s: %w", rec.ID, err)
		}
		if err := h.Store.SaveInvestment(ctx, rec); err != nil {
			return err
		}
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()
	return nil
}
