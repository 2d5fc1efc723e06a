package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/calendar"
)

// =============================================================================
// ROLE STREAM - One role's amounts across the commitment
// =============================================================================
//
// Every role runs through the same state machine over the period index:
//
//   BeforeEligibility -> FirstEligible -> Steady -> TrailingPartial
//
// FirstEligible accrues the pro-rata growth from the deposit day to that
// period's cutoff. Steady accrues balance × rate each period. With a cycle
// longer than one month the growth is reinvested within the cycle and paid
// out as a sum at the cycle boundary, after which the balance restarts from
// the principal. A stream that never becomes eligible stays in
// BeforeEligibility to the end, trailing period included.

// StreamEntry is one role's position at one period.
type StreamEntry struct {
	State  PeriodState
	Growth decimal.Decimal
	Amount decimal.Decimal
}

// RoleStream is the computed stream of one role.
type RoleStream struct {
	Rules       RoleRules
	Eligibility Eligibility
	FirstPeriod ProratedShare
	Entries     []StreamEntry
	Trailing    *StreamEntry
	TrailShare  ProratedShare
}

// StreamInput is what GenerateStream needs besides the role rules.
type StreamInput struct {
	Principal   decimal.Decimal
	Deposit     calendar.Date
	FirstCutoff calendar.CutoffPeriod
	Months      int
	Trailing    *TrailingPeriod
}

// GenerateStream computes the per-period amounts of a role.
func GenerateStream(rules RoleRules, in StreamInput) RoleStream {
	cycle := rules.CycleMonths
	if cycle < 1 {
		cycle = 1
	}

	stream := RoleStream{
		Rules:       rules,
		Eligibility: evaluateEligibility(in.Deposit, in.FirstCutoff, rules, in.Months),
		FirstPeriod: ProratedShare{Role: rules.Role, Amount: decimal.Zero},
		Entries:     make([]StreamEntry, in.Months),
	}
	elig := stream.Eligibility

	balance := in.Principal
	accrued := decimal.Zero

	for i := 0; i < in.Months; i++ {
		entry := StreamEntry{State: StateBeforeEligibility, Growth: decimal.Zero, Amount: decimal.Zero}

		switch {
		case !elig.Reached || i < elig.Index:
			// waiting
		case i == elig.Index:
			share := ProrateSpan(rules.Role, balance, rules.Rate, in.Deposit, in.FirstCutoff.Advance(i).Date)
			stream.FirstPeriod = share
			entry.State = StateFirstEligible
			entry.Growth = share.Amount
		default:
			entry.State = StateSteady
			entry.Growth = balance.Mul(rules.Rate)
		}

		if cycle > 1 {
			balance = balance.Add(entry.Growth)
		}
		accrued = accrued.Add(entry.Growth)

		if isCycleBoundary(i, in.Months, cycle) {
			entry.Amount = accrued
			accrued = decimal.Zero
			balance = in.Principal
		}
		stream.Entries[i] = entry
	}

	if in.Trailing != nil {
		trail := StreamEntry{State: StateBeforeEligibility, Growth: decimal.Zero, Amount: decimal.Zero}
		stream.TrailShare = ProratedShare{Role: rules.Role, Amount: decimal.Zero}
		if elig.Reached {
			share := ProratedShare{
				Role:        rules.Role,
				DaysCounted: in.Trailing.Days,
				Amount:      Prorate(in.Principal, rules.Rate, in.Trailing.Days),
			}
			stream.TrailShare = share
			trail.State = StateTrailingPartial
			trail.Growth = share.Amount
			trail.Amount = share.Amount
		}
		stream.Trailing = &trail
	}

	return stream
}

// Total sums the amounts paid out by the stream.
func (rs RoleStream) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range rs.Entries {
		total = total.Add(e.Amount)
	}
	if rs.Trailing != nil {
		total = total.Add(rs.Trailing.Amount)
	}
	return total
}

// CyclePayout is the compounded growth of a full cycle on principal:
// principal × ((1 + rate)^cycle - 1).
func CyclePayout(principal, rate decimal.Decimal, cycleMonths int) decimal.Decimal {
	balance := principal
	for m := 0; m < cycleMonths; m++ {
		balance = balance.Add(balance.Mul(rate))
	}
	return balance.Sub(principal)
}

// =============================================================================
// BREAKDOWN - Per-period table across roles
// =============================================================================

// BuildBreakdown lays the role streams out against the monthly schedule,
// appending the trailing line when one exists.
func BuildBreakdown(monthly []calendar.Date, firstCutoff calendar.CutoffPeriod, trailing *TrailingPeriod, streams map[Role]RoleStream) []PeriodLine {
	size := len(monthly)
	if trailing != nil {
		size++
	}
	lines := make([]PeriodLine, 0, size)

	for i, due := range monthly {
		line := PeriodLine{
			PeriodIndex:   i,
			PeriodEnd:     firstCutoff.Advance(i).Date,
			DueDate:       due,
			Advisor:       amountAt(streams, RoleAdvisor, i),
			Office:        amountAt(streams, RoleOffice, i),
			Investor:      amountAt(streams, RoleInvestor, i),
			InvestorState: stateAt(streams, RoleInvestor, i),
		}
		lines = append(lines, line)
	}

	if trailing != nil {
		lines = append(lines, PeriodLine{
			PeriodIndex:   len(monthly),
			PeriodEnd:     trailing.To,
			DueDate:       trailing.DueDate,
			Advisor:       trailingAmount(streams, RoleAdvisor),
			Office:        trailingAmount(streams, RoleOffice),
			Investor:      trailingAmount(streams, RoleInvestor),
			InvestorState: trailingState(streams, RoleInvestor),
			Trailing:      true,
		})
	}
	return lines
}

func amountAt(streams map[Role]RoleStream, role Role, i int) decimal.Decimal {
	s, ok := streams[role]
	if !ok || i >= len(s.Entries) {
		return decimal.Zero
	}
	return s.Entries[i].Amount
}

func stateAt(streams map[Role]RoleStream, role Role, i int) PeriodState {
	s, ok := streams[role]
	if !ok || i >= len(s.Entries) {
		return StateBeforeEligibility
	}
	return s.Entries[i].State
}

func trailingAmount(streams map[Role]RoleStream, role Role) decimal.Decimal {
	s, ok := streams[role]
	if !ok || s.Trailing == nil {
		return decimal.Zero
	}
	return s.Trailing.Amount
}

func trailingState(streams map[Role]RoleStream, role Role) PeriodState {
	s, ok := streams[role]
	if !ok || s.Trailing == nil {
		return StateBeforeEligibility
	}
	return s.Trailing.State
}
