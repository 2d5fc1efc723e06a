package calendar

import (
	"fmt"
	"time"
)

// PaymentBusinessDay is the ordinal business day on which monthly
// commissions are paid.
const PaymentBusinessDay = 5

// =============================================================================
// BUSINESS DAYS - Weekend exclusion only
// =============================================================================

// IsBusinessDay reports whether d falls Monday through Friday.
func IsBusinessDay(d Date) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NthBusinessDayOfMonth scans the month from day 1 and returns the day on
// which the business-day count reaches n. A month without n business days
// is a logic error and panics with *InvariantError.
func NthBusinessDayOfMonth(year int, month time.Month, n int) Date {
	if n < 1 {
		panic(&InvariantError{Op: "NthBusinessDayOfMonth", Detail: fmt.Sprintf("n must be >= 1, got %d", n)})
	}
	end := EndOfMonth(year, month)
	count := 0
	for d := StartOfMonth(year, month); d.BeforeOrEqual(end); d = d.AddDays(1) {
		if !IsBusinessDay(d) {
			continue
		}
		count++
		if count == n {
			return d
		}
	}
	panic(&InvariantError{
		Op:     "NthBusinessDayOfMonth",
		Detail: fmt.Sprintf("%04d-%02d has only %d business days, wanted %d", year, int(month), count, n),
	})
}

// PaymentDateFor returns the due date for the month: its 5th business day.
func PaymentDateFor(year int, month time.Month) Date {
	return NthBusinessDayOfMonth(year, month, PaymentBusinessDay)
}

// NextBusinessDay returns the first business day strictly after d.
func NextBusinessDay(d Date) Date {
	next := d.AddDays(1)
	for !IsBusinessDay(next) {
		next = next.AddDays(1)
	}
	return next
}

// =============================================================================
// INVARIANT ERRORS
// =============================================================================

// InvariantError is the panic value for calendar states that cannot occur in
// a correct program. It is never returned as an error.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("calendar invariant violated in %s: %s", e.Op, e.Detail)
}
