package calendar

import (
	"fmt"
	"time"
)

// CutoffDay is the day of month that closes a commission period.
const CutoffDay = 20

// =============================================================================
// CUTOFF PERIOD - The 20th-of-month boundary
// =============================================================================

// CutoffPeriod identifies a monthly commission period by its closing date.
// Date.Day() is always CutoffDay.
type CutoffPeriod struct {
	Year  int
	Month time.Month
	Date  Date
}

func newCutoff(year int, month time.Month) CutoffPeriod {
	d := NewDate(year, month, CutoffDay)
	return CutoffPeriod{Year: d.Year(), Month: d.Month(), Date: d}
}

// ResolveCutoff maps a deposit to its governing cutoff. A cutoff captures
// positions held continuously through the 20th, so a deposit before the 20th
// belongs to this month's cutoff and a deposit on or after it to next month's.
func ResolveCutoff(deposit Date) CutoffPeriod {
	if deposit.Day() < CutoffDay {
		return newCutoff(deposit.Year(), deposit.Month())
	}
	return newCutoff(deposit.Year(), deposit.Month()+1)
}

// KthSubsequentCutoff advances c by k whole months.
func KthSubsequentCutoff(c CutoffPeriod, k int) CutoffPeriod {
	return newCutoff(c.Year, c.Month+time.Month(k))
}

// Advance is KthSubsequentCutoff as a method.
func (c CutoffPeriod) Advance(k int) CutoffPeriod { return KthSubsequentCutoff(c, k) }

// PaymentDate is the 5th business day of the month after the cutoff.
func (c CutoffPeriod) PaymentDate() Date {
	next := StartOfMonth(c.Year, c.Month+1)
	return PaymentDateFor(next.Year(), next.Month())
}

// Period returns the days the cutoff closes: (previous cutoff, this cutoff].
func (c CutoffPeriod) Period() Period {
	return Period{Start: c.Advance(-1).Date.AddDays(1), End: c.Date}
}

func (c CutoffPeriod) String() string {
	return fmt.Sprintf("cutoff %s", c.Date)
}

// CurrentCutoff returns the most recent cutoff on or before today: this
// month's 20th once it has been reached, otherwise last month's.
func CurrentCutoff(today Date) CutoffPeriod {
	if today.Day() >= CutoffDay {
		return newCutoff(today.Year(), today.Month())
	}
	return newCutoff(today.Year(), today.Month()-1)
}
