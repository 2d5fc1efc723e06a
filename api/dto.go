/*
dto.go - Request/response data transfer objects

PURPOSE:
  JSON shapes of the HTTP API. The engine types stay free of JSON concerns;
  everything the wire needs is converted here.

CONVENTIONS:
  - Amounts and rates are decimal strings ("1000", "0.021"), never floats
  - Dates are ISO "YYYY-MM-DD"
  - Investment records use factory.InvestmentJSON unchanged

KEY TYPES:
  Results:   CommissionResultDTO, RoleSummaryDTO, PeriodLineDTO
  Calendar:  CutoffDTO
  Batch:     BatchRequest, BatchResponse
  Reports:   PayoutReportDTO
  Demo:      ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/investment.go: InvestmentJSON
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
)

// =============================================================================
// COMMISSION RESULT
// =============================================================================

// CommissionResultDTO is the response of every compute endpoint.
type CommissionResultDTO struct {
	InvestmentID  string                    `json:"investment_id"`
	Amount        decimal.Decimal           `json:"amount"`
	DepositDate   calendar.Date             `json:"deposit_date"`
	CommitmentEnd calendar.Date             `json:"commitment_end"`
	Liquidity     string                    `json:"liquidity"`
	Cutoff        CutoffDTO                 `json:"cutoff"`
	PaymentDates  []calendar.Date           `json:"payment_dates"`
	Trailing      *TrailingDTO              `json:"trailing,omitempty"`
	Roles         map[string]RoleSummaryDTO `json:"roles"`
	Breakdown     []PeriodLineDTO           `json:"breakdown"`
	Total         decimal.Decimal           `json:"total"`
	RateIssues    []RateIssueDTO            `json:"rate_issues,omitempty"`
	Notices       []string                  `json:"notices,omitempty"`
}

// RoleSummaryDTO is one role's view of the result.
type RoleSummaryDTO struct {
	Role              string          `json:"role"`
	Rate              decimal.Decimal `json:"rate"`
	CycleMonths       int             `json:"cycle_months"`
	Eligible          bool            `json:"eligible"`
	EligibilityIndex  *int            `json:"eligibility_index,omitempty"`
	EligibilityCutoff *calendar.Date  `json:"eligibility_cutoff,omitempty"`
	CommissionStart   calendar.Date   `json:"commission_start"`
	FirstPeriod       ShareDTO        `json:"first_period"`
	MonthlyAmount     decimal.Decimal `json:"monthly_amount"`
	Trailing          ShareDTO        `json:"trailing"`
	Total             decimal.Decimal `json:"total"`
	PaymentDates      []calendar.Date `json:"payment_dates"`
}

// ShareDTO is a prorated share.
type ShareDTO struct {
	Days   int             `json:"days"`
	Amount decimal.Decimal `json:"amount"`
}

// PeriodLineDTO is one row of the breakdown table.
type PeriodLineDTO struct {
	Index         int             `json:"index"`
	PeriodEnd     calendar.Date   `json:"period_end"`
	DueDate       calendar.Date   `json:"due_date"`
	Advisor       decimal.Decimal `json:"advisor"`
	Office        decimal.Decimal `json:"office"`
	Investor      decimal.Decimal `json:"investor"`
	InvestorState string          `json:"investor_state"`
	Trailing      bool            `json:"trailing,omitempty"`
}

// TrailingDTO describes the trailing partial period.
type TrailingDTO struct {
	From    calendar.Date `json:"from"`
	To      calendar.Date `json:"to"`
	Days    int           `json:"days"`
	DueDate calendar.Date `json:"due_date"`
}

// RateIssueDTO reports a rate replaced by zero.
type RateIssueDTO struct {
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

// =============================================================================
// CALENDAR
// =============================================================================

// CutoffDTO describes a cutoff period.
type CutoffDTO struct {
	Year        int           `json:"year"`
	Month       int           `json:"month"`
	Date        calendar.Date `json:"date"`
	PeriodStart calendar.Date `json:"period_start"`
	PeriodEnd   calendar.Date `json:"period_end"`
	PaymentDate calendar.Date `json:"payment_date"`
}

// =============================================================================
// BATCH
// =============================================================================

// BatchRequest computes inline records, stored records by ID, or both.
type BatchRequest struct {
	Investments []factory.InvestmentJSON `json:"investments,omitempty"`
	IDs         []string                 `json:"ids,omitempty"`
}

// BatchItemDTO is one entry of a batch response, in request order.
type BatchItemDTO struct {
	InvestmentID string               `json:"investment_id"`
	Result       *CommissionResultDTO `json:"result,omitempty"`
	Error        *ErrorResponse       `json:"error,omitempty"`
}

// BatchResponse is the response of POST /api/commissions/batch.
type BatchResponse struct {
	Items     []BatchItemDTO `json:"items"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

// =============================================================================
// PAYOUT REPORT
// =============================================================================

// PayoutReportDTO lists what is due in the payment month of a cutoff.
type PayoutReportDTO struct {
	AsOf         calendar.Date              `json:"as_of"`
	Cutoff       CutoffDTO                  `json:"cutoff"`
	PaymentMonth string                     `json:"payment_month"`
	Lines        []PayoutLineDTO            `json:"lines"`
	Totals       map[string]decimal.Decimal `json:"totals"`
	Failures     []BatchItemDTO             `json:"failures,omitempty"`
}

// PayoutLineDTO is one role's payout for one investment period.
type PayoutLineDTO struct {
	InvestmentID string          `json:"investment_id"`
	Role         string          `json:"role"`
	PeriodIndex  int             `json:"period_index"`
	DueDate      calendar.Date   `json:"due_date"`
	Amount       decimal.Decimal `json:"amount"`
	Trailing     bool            `json:"trailing,omitempty"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCutoffDTO(c calendar.CutoffPeriod) CutoffDTO {
	p := c.Period()
	return CutoffDTO{
		Year:        c.Year,
		Month:       int(c.Month),
		Date:        c.Date,
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
		PaymentDate: c.PaymentDate(),
	}
}

func toResultDTO(res *commission.CommissionResult, notices []string) CommissionResultDTO {
	dto := CommissionResultDTO{
		InvestmentID:  res.InvestmentID,
		Amount:        res.Amount,
		DepositDate:   res.DepositDate,
		CommitmentEnd: res.CommitmentEnd,
		Liquidity:     string(res.Liquidity),
		Cutoff:        toCutoffDTO(res.Cutoff),
		PaymentDates:  res.PaymentDates,
		Roles:         make(map[string]RoleSummaryDTO, len(res.Roles)),
		Breakdown:     make([]PeriodLineDTO, len(res.Breakdown)),
		Total:         res.Total(),
		Notices:       notices,
	}
	if res.Trailing != nil {
		dto.Trailing = &TrailingDTO{
			From:    res.Trailing.From,
			To:      res.Trailing.To,
			Days:    res.Trailing.Days,
			DueDate: res.Trailing.DueDate,
		}
	}
	for role, s := range res.Roles {
		dto.Roles[string(role)] = toRoleSummaryDTO(s)
	}
	for i, line := range res.Breakdown {
		dto.Breakdown[i] = PeriodLineDTO{
			Index:         line.PeriodIndex,
			PeriodEnd:     line.PeriodEnd,
			DueDate:       line.DueDate,
			Advisor:       line.Advisor,
			Office:        line.Office,
			Investor:      line.Investor,
			InvestorState: string(line.InvestorState),
			Trailing:      line.Trailing,
		}
	}
	for _, ri := range res.RateIssues {
		dto.RateIssues = append(dto.RateIssues, RateIssueDTO{Role: string(ri.Role), Reason: ri.Reason})
	}
	return dto
}

func toRoleSummaryDTO(s commission.RoleSummary) RoleSummaryDTO {
	dto := RoleSummaryDTO{
		Role:            string(s.Role),
		Rate:            s.Rate,
		CycleMonths:     s.CycleMonths,
		Eligible:        s.Eligibility.Reached,
		CommissionStart: s.Eligibility.CommissionStart,
		FirstPeriod:     ShareDTO{Days: s.FirstPeriod.DaysCounted, Amount: s.FirstPeriod.Amount},
		MonthlyAmount:   s.MonthlyAmount,
		Trailing:        ShareDTO{Days: s.Trailing.DaysCounted, Amount: s.Trailing.Amount},
		Total:           s.Total,
		PaymentDates:    s.PaymentDates,
	}
	if s.Eligibility.Reached {
		idx := s.Eligibility.Index
		cutoff := s.Eligibility.Cutoff
		dto.EligibilityIndex = &idx
		dto.EligibilityCutoff = &cutoff
	}
	return dto
}
