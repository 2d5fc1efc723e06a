package commission_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) calendar.Date {
	return calendar.NewDate(year, month, day)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rate(s string) decimal.NullDecimal {
	return commission.Rate(dec(s))
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// referenceInvestment is the worked example used across the engine tests.
func referenceInvestment() commission.Investment {
	return commission.Investment{
		ID:               "inv-ref",
		Amount:           dec("100000"),
		DepositDate:      date(2024, time.January, 10),
		CommitmentMonths: 12,
		Liquidity:        commission.LiquidityMonthly,
		AdvisorRate:      rate("0.03"),
		OfficeRate:       rate("0.01"),
		InvestorRate:     rate("0.021"),
		PayoutStartDays:  60,
	}
}

// =============================================================================
// ELIGIBILITY TESTS
// =============================================================================

func TestIsEligible_BoundaryInclusive(t *testing.T) {
	deposit := date(2024, time.January, 10)

	// 60 days after Jan 10 is Mar 10.
	assert.True(t, commission.IsEligible(deposit, date(2024, time.March, 10), 60), "d+p == c is eligible")
	assert.False(t, commission.IsEligible(deposit, date(2024, time.March, 9), 60))
	assert.True(t, commission.IsEligible(deposit, date(2024, time.March, 20), 60))
	assert.False(t, commission.IsEligible(deposit, date(2024, time.February, 20), 60))
}

func TestIsEligible_ZeroOffsetAlwaysEligibleAtFirstCutoff(t *testing.T) {
	for day := 1; day <= 31; day++ {
		deposit := date(2024, time.January, day)
		c := calendar.ResolveCutoff(deposit)
		assert.True(t, commission.IsEligible(deposit, c.Date, 0), "day %d", day)
	}
}

func TestFirstEligibleCutoffIndex(t *testing.T) {
	deposit := date(2024, time.January, 10)
	first := calendar.ResolveCutoff(deposit)

	idx, ok := commission.FirstEligibleCutoffIndex(deposit, first, 60, 12)
	require.True(t, ok)
	assert.Equal(t, 2, idx, "Mar 20 is the first cutoff on or after Mar 10")

	idx, ok = commission.FirstEligibleCutoffIndex(deposit, first, 0, 12)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = commission.FirstEligibleCutoffIndex(deposit, first, 400, 12)
	assert.False(t, ok, "waiting period longer than the commitment is never eligible")

	_, ok = commission.FirstEligibleCutoffIndex(deposit, first, 60, 2)
	assert.False(t, ok, "only the first two cutoffs are scanned")
}

// =============================================================================
// PRORATION TESTS
// =============================================================================

func TestCountedDays(t *testing.T) {
	assert.Equal(t, 10, commission.CountedDays(date(2024, time.January, 10), date(2024, time.January, 20)))
	assert.Equal(t, 70, commission.CountedDays(date(2024, time.January, 10), date(2024, time.March, 20)))
	assert.Equal(t, 0, commission.CountedDays(date(2024, time.January, 20), date(2024, time.January, 20)))
	assert.Equal(t, 0, commission.CountedDays(date(2024, time.January, 21), date(2024, time.January, 20)))
	assert.Equal(t, 1, commission.CountedDays(date(2024, time.February, 28), date(2024, time.February, 29)))
}

func TestProrate_ZeroDays(t *testing.T) {
	assertDecimal(t, "0", commission.Prorate(dec("100000"), dec("0.03"), 0))
	assertDecimal(t, "0", commission.Prorate(dec("100000"), dec("0.03"), -3))
}

func TestProrate_ThirtyDaysIsOneMonth(t *testing.T) {
	for _, r := range []string{"0.03", "0.021", "0.025", "0.0175", "0.0133"} {
		amount := dec("123456.78")
		got := commission.Prorate(amount, dec(r), 30)
		assert.True(t, amount.Mul(dec(r)).Equal(got), "rate %s: got %s", r, got)
	}
}

func TestProrate_ReferenceFigures(t *testing.T) {
	assertDecimal(t, "1000", commission.Prorate(dec("100000"), dec("0.03"), 10))
	assertDecimal(t, "4900", commission.Prorate(dec("100000"), dec("0.021"), 70))
	// 31 days in a 30-day convention exceeds one month.
	assertDecimal(t, "3100", commission.Prorate(dec("100000"), dec("0.03"), 31))
}

// =============================================================================
// SCHEDULE TESTS
// =============================================================================

func TestBuildMonthlySchedule_FifthBusinessDayOfFollowingMonth(t *testing.T) {
	first := calendar.ResolveCutoff(date(2024, time.January, 10))
	dates := commission.BuildMonthlySchedule(first, 12)
	require.Len(t, dates, 12)

	assert.Equal(t, "2024-02-07", dates[0].String())
	assert.Equal(t, "2024-03-07", dates[1].String())
	assert.Equal(t, "2024-04-05", dates[2].String())
	assert.Equal(t, "2025-01-07", dates[11].String())

	for i, d := range dates {
		assert.True(t, calendar.IsBusinessDay(d), "entry %d", i)
		want := first.Advance(i).Date.AddMonths(1)
		assert.Equal(t, want.Month(), d.Month(), "entry %d pays in the month after its cutoff", i)
	}
}

func TestBuildCyclicSchedule(t *testing.T) {
	first := calendar.ResolveCutoff(date(2024, time.January, 10))
	monthly := commission.BuildMonthlySchedule(first, 12)

	semi := commission.BuildCyclicSchedule(monthly, 6)
	require.Len(t, semi, 2)
	assert.Equal(t, monthly[5], semi[0])
	assert.Equal(t, monthly[11], semi[1])

	// 12 months on a 24-month cycle keeps only the final entry.
	biennial := commission.BuildCyclicSchedule(monthly, 24)
	require.Len(t, biennial, 1)
	assert.Equal(t, monthly[11], biennial[0])

	// 14 months on a semiannual cycle: entries 6, 12 and the final 14th.
	monthly14 := commission.BuildMonthlySchedule(first, 14)
	uneven := commission.BuildCyclicSchedule(monthly14, 6)
	require.Len(t, uneven, 3)
	assert.Equal(t, monthly14[13], uneven[2])

	same := commission.BuildCyclicSchedule(monthly, 1)
	assert.Equal(t, monthly, same)
}

func TestResolveTrailingPeriod(t *testing.T) {
	deposit := date(2024, time.January, 10)
	first := calendar.ResolveCutoff(deposit)
	monthly := commission.BuildMonthlySchedule(first, 12)

	tp, ok := commission.ResolveTrailingPeriod(deposit, first, 12, monthly)
	require.True(t, ok)
	assert.Equal(t, "2024-12-20", tp.From.String())
	assert.Equal(t, "2025-01-10", tp.To.String())
	assert.Equal(t, 21, tp.Days)
	// Last scheduled date is Tue 2025-01-07; trailing pays the next business day.
	assert.Equal(t, "2025-01-08", tp.DueDate.String())
}

func TestResolveTrailingPeriod_DepositOnCutoffAligns(t *testing.T) {
	deposit := date(2024, time.January, 20)
	first := calendar.ResolveCutoff(deposit)
	monthly := commission.BuildMonthlySchedule(first, 12)

	_, ok := commission.ResolveTrailingPeriod(deposit, first, 12, monthly)
	assert.False(t, ok, "Jan 20 + 12 months lands exactly on the last cutoff")
}

// =============================================================================
// ENGINE TESTS - Reference scenario
// =============================================================================

func TestEngine_ReferenceScenario(t *testing.T) {
	// GIVEN: 100000 deposited 2024-01-10, 12 months, monthly liquidity, D+60
	// WHEN: computing commissions
	// THEN: cutoff Jan 20, advisor pro-rata 10 days, investor gated until Mar 20

	result, err := commission.NewEngine().Compute(referenceInvestment())
	require.NoError(t, err)

	assert.Equal(t, "2024-01-20", result.Cutoff.Date.String())
	assert.Equal(t, "2025-01-10", result.CommitmentEnd.String())
	assert.Empty(t, result.RateIssues)

	advisor := result.Advisor()
	assert.Equal(t, 10, advisor.FirstPeriod.DaysCounted)
	assertDecimal(t, "1000", advisor.FirstPeriod.Amount)
	assertDecimal(t, "3000", advisor.MonthlyAmount)
	assert.Equal(t, 1, advisor.CycleMonths)
	assert.True(t, advisor.Eligibility.Reached)
	assert.Equal(t, 0, advisor.Eligibility.Index)

	investor := result.Investor()
	require.True(t, investor.Eligibility.Reached)
	assert.Equal(t, 2, investor.Eligibility.Index)
	assert.Equal(t, "2024-03-20", investor.Eligibility.Cutoff.String())
	assert.Equal(t, "2024-03-10", investor.Eligibility.CommissionStart.String())
	assert.Equal(t, 70, investor.FirstPeriod.DaysCounted, "counted from the deposit, not from the end of the wait")
	assertDecimal(t, "4900", investor.FirstPeriod.Amount)
	assertDecimal(t, "2100", investor.MonthlyAmount)

	// 12 regular periods plus the trailing Dec 21 - Jan 10 period.
	require.Len(t, result.Breakdown, 13)
	require.Len(t, result.PaymentDates, 13)
	require.NotNil(t, result.Trailing)
	assert.Equal(t, 21, result.Trailing.Days)

	b := result.Breakdown
	assertDecimal(t, "1000", b[0].Advisor)
	assertDecimal(t, "0", b[0].Investor)
	assertDecimal(t, "0", b[1].Investor)
	assert.Equal(t, commission.StateBeforeEligibility, b[1].InvestorState)
	assertDecimal(t, "4900", b[2].Investor)
	assert.Equal(t, commission.StateFirstEligible, b[2].InvestorState)
	for i := 3; i < 12; i++ {
		assertDecimal(t, "2100", b[i].Investor, "period %d", i)
		assertDecimal(t, "3000", b[i].Advisor, "period %d", i)
		assert.Equal(t, commission.StateSteady, b[i].InvestorState)
	}

	trail := b[12]
	assert.True(t, trail.Trailing)
	assert.Equal(t, "2025-01-08", trail.DueDate.String())
	assertDecimal(t, "2100", trail.Advisor)
	assertDecimal(t, "1470", trail.Investor)
	assert.Equal(t, commission.StateTrailingPartial, trail.InvestorState)

	assertDecimal(t, "36100", advisor.Total)
	assertDecimal(t, "25270", investor.Total)
}

func TestEngine_BreakdownDueDatesAreBusinessDays(t *testing.T) {
	result, err := commission.Compute(referenceInvestment())
	require.NoError(t, err)
	for _, line := range result.Breakdown {
		assert.True(t, calendar.IsBusinessDay(line.DueDate), "period %d due %s", line.PeriodIndex, line.DueDate)
	}
}

// =============================================================================
// ENGINE TESTS - Investor cadence
// =============================================================================

func TestEngine_MonthlyInvestorSumProperty(t *testing.T) {
	// GIVEN: no waiting period, so the investor is eligible at index 0
	// THEN: the first commitmentMonths entries sum to first pro-rata + rate × amount × (N-1)
	for _, months := range []int{3, 6, 12, 24, 36} {
		inv := referenceInvestment()
		inv.PayoutStartDays = 0
		inv.CommitmentMonths = months

		result, err := commission.Compute(inv)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, line := range result.Breakdown[:months] {
			sum = sum.Add(line.Investor)
		}
		investor := result.Investor()
		want := investor.FirstPeriod.Amount.Add(dec("0.021").Mul(dec("100000")).Mul(decimal.NewFromInt(int64(months - 1))))
		assert.True(t, want.Equal(sum), "months %d: want %s, got %s", months, want, sum)
	}
}

func TestEngine_SemiannualCompoundsWithinCycle(t *testing.T) {
	// GIVEN: semiannual liquidity, eligible immediately
	// THEN: investor amounts are zero for periods 1-5 and paid at period 6, repeating
	inv := referenceInvestment()
	inv.Liquidity = commission.LiquiditySemiannual
	inv.PayoutStartDays = 0
	inv.InvestorRate = rate("0.01")

	result, err := commission.Compute(inv)
	require.NoError(t, err)
	require.Len(t, result.Breakdown, 13)

	for i, line := range result.Breakdown[:12] {
		if (i+1)%6 == 0 {
			assert.True(t, line.Investor.IsPositive(), "period %d should pay", i+1)
		} else {
			assert.True(t, line.Investor.IsZero(), "period %d should not pay, got %s", i+1, line.Investor)
		}
	}

	// The second cycle is six full months compounded from the original principal.
	assertDecimal(t, "6152.0150601", result.Breakdown[11].Investor)
	assert.True(t, commission.CyclePayout(dec("100000"), dec("0.01"), 6).Equal(result.Breakdown[11].Investor))

	// The first cycle starts with a 10-day pro-rata month, so it pays less.
	assert.True(t, result.Breakdown[5].Investor.LessThan(result.Breakdown[11].Investor))

	// The principal is never carried across cycles: the payout is not
	// compounded on the first cycle's growth.
	grown := dec("100000").Add(result.Breakdown[5].Investor)
	assert.False(t, commission.CyclePayout(grown, dec("0.01"), 6).Equal(result.Breakdown[11].Investor))

	// Trailing pro-rata is simple interest on principal.
	assertDecimal(t, "700", result.Breakdown[12].Investor)

	investor := result.Investor()
	assert.Equal(t, 6, investor.CycleMonths)
	require.Len(t, investor.PaymentDates, 3)
	assert.Equal(t, result.Breakdown[5].DueDate, investor.PaymentDates[0])
	assert.Equal(t, result.Breakdown[11].DueDate, investor.PaymentDates[1])
	assert.Equal(t, result.Breakdown[12].DueDate, investor.PaymentDates[2])
}

func TestEngine_SemiannualFirstCyclePayoutIsSumOfGrowth(t *testing.T) {
	inv := referenceInvestment()
	inv.Liquidity = commission.LiquiditySemiannual
	inv.PayoutStartDays = 0
	inv.InvestorRate = rate("0.01")

	result, err := commission.Compute(inv)
	require.NoError(t, err)

	// Reproduce the first cycle month by month.
	principal := dec("100000")
	balance := principal
	growth := commission.Prorate(balance, dec("0.01"), 10)
	sum := growth
	balance = balance.Add(growth)
	for m := 1; m < 6; m++ {
		g := balance.Mul(dec("0.01"))
		sum = sum.Add(g)
		balance = balance.Add(g)
	}
	assert.True(t, sum.Equal(result.Breakdown[5].Investor), "want %s, got %s", sum, result.Breakdown[5].Investor)
}

func TestEngine_IntermediariesStayMonthlyUnderCyclicLiquidity(t *testing.T) {
	inv := referenceInvestment()
	inv.Liquidity = commission.LiquidityAnnual

	result, err := commission.Compute(inv)
	require.NoError(t, err)

	for i := 1; i < 12; i++ {
		assertDecimal(t, "3000", result.Breakdown[i].Advisor, "period %d", i)
		assertDecimal(t, "1000", result.Breakdown[i].Office, "period %d", i)
	}
	assert.Len(t, result.Advisor().PaymentDates, 13)
	assert.Len(t, result.Office().PaymentDates, 13)
	// Annual over 12 months: one boundary plus the trailing date.
	assert.Len(t, result.Investor().PaymentDates, 2)
}

func TestEngine_UnevenCycleStillPaysFinalPeriod(t *testing.T) {
	inv := referenceInvestment()
	inv.Liquidity = commission.LiquidityBiennial
	inv.PayoutStartDays = 0

	result, err := commission.Compute(inv)
	require.NoError(t, err)

	for i := 0; i < 11; i++ {
		assert.True(t, result.Breakdown[i].Investor.IsZero(), "period %d", i)
	}
	assert.True(t, result.Breakdown[11].Investor.IsPositive(), "final period closes the partial cycle")
}

// =============================================================================
// ENGINE TESTS - Edge cases
// =============================================================================

func TestEngine_NeverEligible(t *testing.T) {
	// GIVEN: a waiting period longer than the commitment
	// THEN: the investor receives nothing, and this is not an error
	inv := referenceInvestment()
	inv.PayoutStartDays = 400

	result, err := commission.Compute(inv)
	require.NoError(t, err)

	investor := result.Investor()
	assert.False(t, investor.Eligibility.Reached)
	assert.True(t, investor.Total.IsZero())
	assert.True(t, investor.FirstPeriod.Amount.IsZero())
	for _, line := range result.Breakdown {
		assert.True(t, line.Investor.IsZero())
		assert.Equal(t, commission.StateBeforeEligibility, line.InvestorState)
	}

	// Intermediaries are unaffected.
	assertDecimal(t, "36100", result.Advisor().Total)
}

func TestEngine_DepositOnCutoffDay(t *testing.T) {
	inv := referenceInvestment()
	inv.DepositDate = date(2024, time.January, 20)
	inv.PayoutStartDays = 0

	result, err := commission.Compute(inv)
	require.NoError(t, err)

	assert.Equal(t, "2024-02-20", result.Cutoff.Date.String())
	assert.Nil(t, result.Trailing)
	assert.Len(t, result.Breakdown, 12)
	assert.Equal(t, 31, result.Advisor().FirstPeriod.DaysCounted)
	assertDecimal(t, "3100", result.Advisor().FirstPeriod.Amount)
}

func TestEngine_MissingRatesBecomeZero(t *testing.T) {
	inv := referenceInvestment()
	inv.OfficeRate = commission.NoRate
	inv.InvestorRate = commission.RateFromFloat(math.NaN())

	result, err := commission.Compute(inv)
	require.NoError(t, err, "a missing rate never aborts the computation")

	require.Len(t, result.RateIssues, 2)
	assert.Equal(t, commission.RoleOffice, result.RateIssues[0].Role)
	assert.Equal(t, commission.RoleInvestor, result.RateIssues[1].Role)

	assert.True(t, result.Office().Total.IsZero())
	assert.True(t, result.Investor().Total.IsZero())
	assertDecimal(t, "36100", result.Advisor().Total)
	assert.Len(t, result.Breakdown, 13, "zero-rate roles keep the full shape")
}

func TestEngine_NegativeRateBecomesZero(t *testing.T) {
	inv := referenceInvestment()
	inv.AdvisorRate = rate("-0.01")

	result, err := commission.Compute(inv)
	require.NoError(t, err)
	require.Len(t, result.RateIssues, 1)
	assert.True(t, result.Advisor().Total.IsZero())
}

func TestEngine_InvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*commission.Investment)
		want   error
	}{
		{"zero amount", func(i *commission.Investment) { i.Amount = decimal.Zero }, commission.ErrInvalidAmount},
		{"negative amount", func(i *commission.Investment) { i.Amount = dec("-1") }, commission.ErrInvalidAmount},
		{"no commitment", func(i *commission.Investment) { i.CommitmentMonths = 0 }, commission.ErrInvalidCommitment},
		{"bad liquidity", func(i *commission.Investment) { i.Liquidity = "weekly" }, commission.ErrUnknownLiquidity},
		{"commitment too long", func(i *commission.Investment) { i.CommitmentMonths = commission.MaxCommitmentMonths + 1 }, commission.ErrInvalidCommitment},
		{"huge commitment", func(i *commission.Investment) { i.CommitmentMonths = 1 << 40 }, commission.ErrInvalidCommitment},
		{"negative wait", func(i *commission.Investment) { i.PayoutStartDays = -1 }, commission.ErrInvalidPayoutStart},
		{"wait too long", func(i *commission.Investment) { i.PayoutStartDays = commission.MaxPayoutStartDays + 1 }, commission.ErrInvalidPayoutStart},
		{"no deposit date", func(i *commission.Investment) { i.DepositDate = calendar.Date{} }, commission.ErrMissingDepositDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := referenceInvestment()
			tc.mutate(&inv)
			_, err := commission.Compute(inv)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, commission.IsClientError(err))
			var inErr *commission.InputError
			assert.True(t, errors.As(err, &inErr))
		})
	}
}

func TestEngine_LongestCommitmentAccepted(t *testing.T) {
	inv := referenceInvestment()
	inv.CommitmentMonths = commission.MaxCommitmentMonths
	inv.PayoutStartDays = commission.MaxPayoutStartDays

	result, err := commission.Compute(inv)
	require.NoError(t, err)
	assert.Len(t, result.Advisor().PaymentDates, commission.MaxCommitmentMonths+1, "monthly dates plus the trailing period")
}

func TestParseLiquidity(t *testing.T) {
	l, err := commission.ParseLiquidity(" Semiannual ")
	require.NoError(t, err)
	assert.Equal(t, commission.LiquiditySemiannual, l)
	assert.Equal(t, 36, commission.LiquidityTriennial.Cycle())

	_, err = commission.ParseLiquidity("quarterly")
	assert.ErrorIs(t, err, commission.ErrUnknownLiquidity)
}

// =============================================================================
// BATCH TESTS
// =============================================================================

func TestComputeBatch_PreservesOrderAndIsolatesFailures(t *testing.T) {
	good := referenceInvestment()
	bad := referenceInvestment()
	bad.ID = "inv-bad"
	bad.Amount = decimal.Zero
	other := referenceInvestment()
	other.ID = "inv-other"
	other.Liquidity = commission.LiquiditySemiannual

	items, err := commission.ComputeBatch(context.Background(), commission.NewEngine(),
		[]commission.Investment{good, bad, other}, 2)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "inv-ref", items[0].InvestmentID)
	require.NoError(t, items[0].Err)
	assertDecimal(t, "25270", items[0].Result.Investor().Total)

	assert.Equal(t, "inv-bad", items[1].InvestmentID)
	assert.ErrorIs(t, items[1].Err, commission.ErrInvalidAmount)
	assert.Nil(t, items[1].Result)

	assert.Equal(t, "inv-other", items[2].InvestmentID)
	require.NoError(t, items[2].Err)
	assert.Equal(t, commission.LiquiditySemiannual, items[2].Result.Liquidity)
}

func TestComputeBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := commission.ComputeBatch(ctx, commission.NewEngine(), []commission.Investment{referenceInvestment()}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

type panickingCalculator struct{}

func (panickingCalculator) Compute(commission.Investment) (*commission.CommissionResult, error) {
	panic(&calendar.InvariantError{Op: "test", Detail: "boom"})
}

func TestComputeBatch_ReraisesInvariantPanics(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(*calendar.InvariantError)
		assert.True(t, ok, "got %T", r)
	}()
	_, _ = commission.ComputeBatch(context.Background(), panickingCalculator{}, []commission.Investment{referenceInvestment()}, 1)
}
