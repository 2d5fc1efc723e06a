package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/calendar"
)

// DaysPerMonth is the commercial month used for daily rates. It is fixed at
// 30 regardless of the real month length.
const DaysPerMonth = 30

var daysPerMonth = decimal.NewFromInt(DaysPerMonth)

// =============================================================================
// PRORATION - Day-counted partial periods
// =============================================================================

// CountedDays counts from the day after fromExclusive through toInclusive.
// It is zero when toInclusive is not after fromExclusive.
func CountedDays(fromExclusive, toInclusive calendar.Date) int {
	days := calendar.DaysBetween(fromExclusive, toInclusive)
	if days < 0 {
		return 0
	}
	return days
}

// Prorate returns amount × (monthlyRate / 30) × days. The division is applied
// last so that 30 days is exactly amount × monthlyRate.
func Prorate(amount, monthlyRate decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return amount.Mul(monthlyRate).Mul(decimal.NewFromInt(int64(days))).Div(daysPerMonth)
}

// ProrateSpan prorates the span (fromExclusive, toInclusive] for role.
func ProrateSpan(role Role, amount, monthlyRate decimal.Decimal, fromExclusive, toInclusive calendar.Date) ProratedShare {
	days := CountedDays(fromExclusive, toInclusive)
	return ProratedShare{Role: role, DaysCounted: days, Amount: Prorate(amount, monthlyRate, days)}
}
