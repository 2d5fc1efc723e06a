package commission

import "github.com/warp/commission-engine/calendar"

// =============================================================================
// SCHEDULE BUILDER - Payment due dates
// =============================================================================

// BuildMonthlySchedule returns one due date per commitment month: for cutoff
// firstCutoff+i, the 5th business day of the following month.
func BuildMonthlySchedule(firstCutoff calendar.CutoffPeriod, months int) []calendar.Date {
	if months <= 0 {
		return nil
	}
	dates := make([]calendar.Date, months)
	for i := range dates {
		dates[i] = firstCutoff.Advance(i).PaymentDate()
	}
	return dates
}

// BuildCyclicSchedule keeps the entries that close a cycle (1-based index a
// multiple of cycleMonths) plus the final entry when the schedule does not
// divide evenly. A cycle of 1 or less returns a copy of monthly.
func BuildCyclicSchedule(monthly []calendar.Date, cycleMonths int) []calendar.Date {
	if cycleMonths <= 1 {
		return append([]calendar.Date(nil), monthly...)
	}
	var dates []calendar.Date
	for i, d := range monthly {
		if isCycleBoundary(i, len(monthly), cycleMonths) {
			dates = append(dates, d)
		}
	}
	return dates
}

// isCycleBoundary reports whether period i (0-based) of a months-long
// schedule pays out under the given cycle.
func isCycleBoundary(i, months, cycleMonths int) bool {
	if cycleMonths <= 1 {
		return true
	}
	return (i+1)%cycleMonths == 0 || i == months-1
}

// =============================================================================
// TRAILING PERIOD - Leftover days after the last cutoff
// =============================================================================

// TrailingPeriod is the span (From, To] between the last scheduled cutoff
// and the commitment end, paid once on DueDate.
type TrailingPeriod struct {
	From    calendar.Date
	To      calendar.Date
	Days    int
	DueDate calendar.Date
}

// ResolveTrailingPeriod reports the trailing period, if any. It exists when
// the commitment end falls after the last scheduled cutoff; its due date is
// the business day after the last scheduled due date.
func ResolveTrailingPeriod(deposit calendar.Date, firstCutoff calendar.CutoffPeriod, months int, monthly []calendar.Date) (TrailingPeriod, bool) {
	if months <= 0 || len(monthly) == 0 {
		return TrailingPeriod{}, false
	}
	lastCutoff := firstCutoff.Advance(months - 1).Date
	end := deposit.AddMonths(months)
	days := CountedDays(lastCutoff, end)
	if days == 0 {
		return TrailingPeriod{}, false
	}
	return TrailingPeriod{
		From:    lastCutoff,
		To:      end,
		Days:    days,
		DueDate: calendar.NextBusinessDay(monthly[len(monthly)-1]),
	}, true
}
