package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// PAYOUT REPORT
// =============================================================================
//
// The report answers "what do we pay this month?". As of a date, the current
// cutoff is the last 20th reached; its payment month is the following month.
// Every stored investment is computed and every breakdown line due in that
// month is listed, per role. Trailing lines are paid the business day after
// the last regular date, so they can fall into the payment month of a later
// cutoff. They are listed by due date like any other line.

// PayoutReport serves GET /api/reports/payouts?date=.
func (h *Handler) PayoutReport(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	report, err := h.buildPayoutReport(r.Context(), d)
	if err != nil {
		h.fail(w, "Failed to build payout report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) buildPayoutReport(ctx context.Context, asOf calendar.Date) (PayoutReportDTO, error) {
	cutoff := calendar.CurrentCutoff(asOf)
	payMonth := cutoff.PaymentDate()
	window := calendar.Period{
		Start: calendar.StartOfMonth(payMonth.Year(), payMonth.Month()),
		End:   calendar.EndOfMonth(payMonth.Year(), payMonth.Month()),
	}

	report := PayoutReportDTO{
		AsOf:         asOf,
		Cutoff:       toCutoffDTO(cutoff),
		PaymentMonth: fmt.Sprintf("%04d-%02d", payMonth.Year(), int(payMonth.Month())),
		Lines:        []PayoutLineDTO{},
		Totals:       make(map[string]decimal.Decimal, 3),
	}
	for _, role := range commission.Roles() {
		report.Totals[string(role)] = decimal.Zero
	}

	recs, err := h.Store.ListInvestments(ctx)
	if err != nil {
		return report, err
	}
	items, err := h.computeMany(ctx, recs, nil)
	if err != nil {
		return report, err
	}

	for _, item := range items {
		if item.Error != nil {
			report.Failures = append(report.Failures, item)
			continue
		}
		for _, line := range item.Result.Breakdown {
			if !window.Contains(line.DueDate) {
				continue
			}
			for _, role := range commission.Roles() {
				amount := lineAmount(line, role)
				if amount.IsZero() {
					continue
				}
				report.Lines = append(report.Lines, PayoutLineDTO{
					InvestmentID: item.InvestmentID,
					Role:         string(role),
					PeriodIndex:  line.Index,
					DueDate:      line.DueDate,
					Amount:       amount,
					Trailing:     line.Trailing,
				})
				report.Totals[string(role)] = report.Totals[string(role)].Add(amount)
			}
		}
	}

	sort.SliceStable(report.Lines, func(i, j int) bool {
		a, b := report.Lines[i], report.Lines[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.InvestmentID < b.InvestmentID
	})
	return report, nil
}

func lineAmount(line PeriodLineDTO, role commission.Role) decimal.Decimal {
	switch role {
	case commission.RoleAdvisor:
		return line.Advisor
	case commission.RoleOffice:
		return line.Office
	default:
		return line.Investor
	}
}
