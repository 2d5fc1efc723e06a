/*
Package commission computes commission schedules for investments.

PURPOSE:
  Given one investment and the yield rates already resolved for each
  stakeholder role, the engine decides which cutoff the investment belongs
  to, when each role gets paid, how much accrues in partial periods, and
  how multi-month investor cycles compound.

KEY CONCEPTS IN THIS FILE (types.go):
  - Investment: the immutable input record
  - Liquidity:  the investor payout cadence, mapped to a cycle length
  - Role:       Advisor, Office, Investor
  - RoleRules:  what differs between roles (waiting period, cadence)
  - CommissionResult: the immutable output

DESIGN PRINCIPLES:
  1. Purity: no I/O, no clock, no shared state. Every call is independent.
  2. Precision: amounts and rates are decimal.Decimal, never rounded here.
  3. One pipeline: the three roles differ only in their RoleRules.

USAGE:
  inv := commission.Investment{
      ID:               "inv-1",
      Amount:           decimal.NewFromInt(100000),
      DepositDate:      calendar.NewDate(2024, time.January, 10),
      CommitmentMonths: 12,
      Liquidity:        commission.LiquidityMonthly,
      AdvisorRate:      commission.Rate(decimal.RequireFromString("0.03")),
      OfficeRate:       commission.Rate(decimal.RequireFromString("0.01")),
      InvestorRate:     commission.Rate(decimal.RequireFromString("0.021")),
      PayoutStartDays:  60,
  }
  result, err := commission.NewEngine().Compute(inv)

SEE ALSO:
  - engine.go: orchestration
  - breakdown.go: per-period table
  - rates package: resolving rates before calling the engine
*/
package commission

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/calendar"
)

// =============================================================================
// LIQUIDITY - Investor payout cadence
// =============================================================================

type Liquidity string

const (
	LiquidityMonthly    Liquidity = "monthly"
	LiquiditySemiannual Liquidity = "semiannual"
	LiquidityAnnual     Liquidity = "annual"
	LiquidityBiennial   Liquidity = "biennial"
	LiquidityTriennial  Liquidity = "triennial"
)

var liquidityCycles = map[Liquidity]int{
	LiquidityMonthly:    1,
	LiquiditySemiannual: 6,
	LiquidityAnnual:     12,
	LiquidityBiennial:   24,
	LiquidityTriennial:  36,
}

// Cycle returns the number of months between investor payouts, or 0 for an
// unknown liquidity.
func (l Liquidity) Cycle() int { return liquidityCycles[l] }

func (l Liquidity) Valid() bool { return l.Cycle() > 0 }

// ParseLiquidity accepts the canonical names in any case.
func ParseLiquidity(s string) (Liquidity, error) {
	l := Liquidity(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLiquidity, s)
	}
	return l, nil
}

// Liquidities lists every supported cadence, shortest first.
func Liquidities() []Liquidity {
	return []Liquidity{LiquidityMonthly, LiquiditySemiannual, LiquidityAnnual, LiquidityBiennial, LiquidityTriennial}
}

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleAdvisor  Role = "advisor"
	RoleOffice   Role = "office"
	RoleInvestor Role = "investor"
)

// Roles lists the roles in breakdown column order.
func Roles() []Role { return []Role{RoleAdvisor, RoleOffice, RoleInvestor} }

// IsIntermediary is true for roles paid monthly with no waiting period.
func (r Role) IsIntermediary() bool { return r == RoleAdvisor || r == RoleOffice }

// RoleRules is everything the shared pipeline needs to know about a role.
type RoleRules struct {
	Role            Role
	Rate            decimal.Decimal
	PayoutStartDays int
	CycleMonths     int
}

// RulesFor derives the rules of role for inv. Intermediaries ignore the
// investor's waiting period and liquidity.
func RulesFor(inv Investment, role Role, rate decimal.Decimal) RoleRules {
	if role.IsIntermediary() {
		return RoleRules{Role: role, Rate: rate, PayoutStartDays: 0, CycleMonths: 1}
	}
	return RoleRules{
		Role:            role,
		Rate:            rate,
		PayoutStartDays: inv.PayoutStartDays,
		CycleMonths:     inv.Liquidity.Cycle(),
	}
}

// =============================================================================
// RATES - Externally resolved monthly yield rates
// =============================================================================

// Rate wraps a known rate.
func Rate(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// RateFromFloat converts a float rate. NaN and ±Inf yield a missing rate.
func RateFromFloat(f float64) decimal.NullDecimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.NullDecimal{}
	}
	return Rate(decimal.NewFromFloat(f))
}

// NoRate is a missing rate.
var NoRate = decimal.NullDecimal{}

// RateIssue records a rate that was replaced by zero.
type RateIssue struct {
	Role   Role
	Reason string
}

func (ri RateIssue) String() string { return string(ri.Role) + ": " + ri.Reason }

// sanitizeRate substitutes zero for missing or negative rates.
func sanitizeRate(role Role, r decimal.NullDecimal) (decimal.Decimal, *RateIssue) {
	if !r.Valid {
		return decimal.Zero, &RateIssue{Role: role, Reason: "rate missing, using 0"}
	}
	if r.Decimal.IsNegative() {
		return decimal.Zero, &RateIssue{Role: role, Reason: fmt.Sprintf("negative rate %s, using 0", r.Decimal)}
	}
	return r.Decimal, nil
}

// =============================================================================
// INVESTMENT - Engine input
// =============================================================================

// Upper bounds checked by Validate.
const (
	MaxCommitmentMonths = 600
	MaxPayoutStartDays  = 18250
)

type Investment struct {
	ID               string
	Amount           decimal.Decimal
	DepositDate      calendar.Date
	CommitmentMonths int
	Liquidity        Liquidity
	AdvisorRate      decimal.NullDecimal
	OfficeRate       decimal.NullDecimal
	InvestorRate     decimal.NullDecimal
	PayoutStartDays  int
}

// RateFor returns the raw rate input of role.
func (inv Investment) RateFor(role Role) decimal.NullDecimal {
	switch role {
	case RoleAdvisor:
		return inv.AdvisorRate
	case RoleOffice:
		return inv.OfficeRate
	default:
		return inv.InvestorRate
	}
}

// CommitmentEnd is the deposit date moved forward by the commitment.
func (inv Investment) CommitmentEnd() calendar.Date {
	return inv.DepositDate.AddMonths(inv.CommitmentMonths)
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// PeriodState is the position of a stream in its lifecycle at one period.
type PeriodState string

const (
	StateBeforeEligibility PeriodState = "before_eligibility"
	StateFirstEligible     PeriodState = "first_eligible"
	StateSteady            PeriodState = "steady"
	StateTrailingPartial   PeriodState = "trailing_partial"
)

// ProratedShare is a day-counted partial-period amount.
type ProratedShare struct {
	Role        Role
	DaysCounted int
	Amount      decimal.Decimal
}

// Eligibility is the outcome of the waiting-period gate for one role.
// Reached == false is a valid outcome: the role never accrues.
type Eligibility struct {
	Reached         bool
	Index           int
	Cutoff          calendar.Date
	CommissionStart calendar.Date
}

// RoleSummary aggregates one role's stream.
type RoleSummary struct {
	Role          Role
	Rate          decimal.Decimal
	CycleMonths   int
	Eligibility   Eligibility
	FirstPeriod   ProratedShare
	MonthlyAmount decimal.Decimal
	Trailing      ProratedShare
	Total         decimal.Decimal
	PaymentDates  []calendar.Date
}

// PeriodLine is one payment event in the breakdown table.
type PeriodLine struct {
	PeriodIndex   int
	PeriodEnd     calendar.Date
	DueDate       calendar.Date
	Advisor       decimal.Decimal
	Office        decimal.Decimal
	Investor      decimal.Decimal
	InvestorState PeriodState
	Trailing      bool
}

// Amount returns the line's amount for role.
func (pl PeriodLine) Amount(role Role) decimal.Decimal {
	switch role {
	case RoleAdvisor:
		return pl.Advisor
	case RoleOffice:
		return pl.Office
	default:
		return pl.Investor
	}
}

// CommissionResult is the engine output. Slices and maps are owned by the
// result and must not be modified.
type CommissionResult struct {
	InvestmentID  string
	Amount        decimal.Decimal
	DepositDate   calendar.Date
	CommitmentEnd calendar.Date
	Liquidity     Liquidity
	Cutoff        calendar.CutoffPeriod
	PaymentDates  []calendar.Date
	Trailing      *TrailingPeriod
	Roles         map[Role]RoleSummary
	Breakdown     []PeriodLine
	RateIssues    []RateIssue
}

func (r *CommissionResult) Advisor() RoleSummary  { return r.Roles[RoleAdvisor] }
func (r *CommissionResult) Office() RoleSummary   { return r.Roles[RoleOffice] }
func (r *CommissionResult) Investor() RoleSummary { return r.Roles[RoleInvestor] }

// Total sums every role across the whole breakdown.
func (r *CommissionResult) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.Roles {
		total = total.Add(s.Total)
	}
	return total
}
