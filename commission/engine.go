package commission

import (
	"github.com/warp/commission-engine/calendar"
)

// =============================================================================
// ENGINE - Orchestrates one investment
// =============================================================================

// Calculator is implemented by Engine; batch and API code depend on it.
type Calculator interface {
	Compute(inv Investment) (*CommissionResult, error)
}

// Engine computes commission results. It holds no state and is safe for
// concurrent use.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Compute runs cutoff resolution, the eligibility gate, scheduling, and the
// breakdown for inv. Errors are returned only for structurally invalid
// input; missing rates become zero and are listed in RateIssues.
func (e *Engine) Compute(inv Investment) (*CommissionResult, error) {
	if err := Validate(inv); err != nil {
		return nil, err
	}

	cutoff := calendar.ResolveCutoff(inv.DepositDate)
	months := inv.CommitmentMonths
	monthly := BuildMonthlySchedule(cutoff, months)

	var trailing *TrailingPeriod
	if tp, ok := ResolveTrailingPeriod(inv.DepositDate, cutoff, months, monthly); ok {
		trailing = &tp
	}

	in := StreamInput{
		Principal:   inv.Amount,
		Deposit:     inv.DepositDate,
		FirstCutoff: cutoff,
		Months:      months,
		Trailing:    trailing,
	}

	result := &CommissionResult{
		InvestmentID:  inv.ID,
		Amount:        inv.Amount,
		DepositDate:   inv.DepositDate,
		CommitmentEnd: inv.CommitmentEnd(),
		Liquidity:     inv.Liquidity,
		Cutoff:        cutoff,
		PaymentDates:  withTrailing(monthly, trailing),
		Trailing:      trailing,
		Roles:         make(map[Role]RoleSummary, 3),
	}

	streams := make(map[Role]RoleStream, 3)
	for _, role := range Roles() {
		rate, issue := sanitizeRate(role, inv.RateFor(role))
		if issue != nil {
			result.RateIssues = append(result.RateIssues, *issue)
		}

		rules := RulesFor(inv, role, rate)
		stream := GenerateStream(rules, in)
		streams[role] = stream

		result.Roles[role] = RoleSummary{
			Role:          role,
			Rate:          rate,
			CycleMonths:   rules.CycleMonths,
			Eligibility:   stream.Eligibility,
			FirstPeriod:   stream.FirstPeriod,
			MonthlyAmount: inv.Amount.Mul(rate),
			Trailing:      stream.TrailShare,
			Total:         stream.Total(),
			PaymentDates:  withTrailing(BuildCyclicSchedule(monthly, rules.CycleMonths), trailing),
		}
	}

	result.Breakdown = BuildBreakdown(monthly, cutoff, trailing, streams)
	return result, nil
}

// Compute is a convenience for NewEngine().Compute(inv).
func Compute(inv Investment) (*CommissionResult, error) {
	return NewEngine().Compute(inv)
}

// Validate checks the structural fields of inv.
func Validate(inv Investment) error {
	switch {
	case !inv.Amount.IsPositive():
		return &InputError{InvestmentID: inv.ID, Field: "amount", Value: inv.Amount, Err: ErrInvalidAmount}
	case inv.DepositDate.IsZero():
		return &InputError{InvestmentID: inv.ID, Field: "deposit_date", Value: inv.DepositDate, Err: ErrMissingDepositDate}
	case inv.CommitmentMonths <= 0 || inv.CommitmentMonths > MaxCommitmentMonths:
		return &InputError{InvestmentID: inv.ID, Field: "commitment_months", Value: inv.CommitmentMonths, Err: ErrInvalidCommitment}
	case !inv.Liquidity.Valid():
		return &InputError{InvestmentID: inv.ID, Field: "liquidity", Value: inv.Liquidity, Err: ErrUnknownLiquidity}
	case inv.PayoutStartDays < 0 || inv.PayoutStartDays > MaxPayoutStartDays:
		return &InputError{InvestmentID: inv.ID, Field: "payout_start_days", Value: inv.PayoutStartDays, Err: ErrInvalidPayoutStart}
	}
	return nil
}

func withTrailing(dates []calendar.Date, trailing *TrailingPeriod) []calendar.Date {
	out := make([]calendar.Date, 0, len(dates)+1)
	out = append(out, dates...)
	if trailing != nil {
		out = append(out, trailing.DueDate)
	}
	return out
}
