package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/calendar"
)

func date(year int, month time.Month, day int) calendar.Date {
	return calendar.NewDate(year, month, day)
}

// =============================================================================
// DATE NORMALIZATION TESTS
// =============================================================================

func TestParseDate_IgnoresTimeSuffix(t *testing.T) {
	// GIVEN: the same calendar day written with different time suffixes
	// THEN: every form resolves to that day, never the day before or after
	inputs := []string{
		"2024-01-10",
		"2024-01-10T00:00:00Z",
		"2024-01-10T23:59:59-03:00",
		"2024-01-10T00:30:00+09:00",
		"2024-01-10 08:15",
		"  2024-01-10  ",
	}
	for _, in := range inputs {
		got, err := calendar.ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2024-01-10", got.String(), in)
	}
}

func TestParseDate_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "2024-1-10", "10/01/2024", "2024-13-01", "2024-01-10X", "not a date"} {
		_, err := calendar.ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestFromTime_KeepsLocalCalendarDay(t *testing.T) {
	// 23:00 in São Paulo is already the next day in UTC; the local day wins.
	loc := time.FixedZone("BRT", -3*60*60)
	local := time.Date(2024, time.March, 31, 23, 0, 0, 0, loc)

	d := calendar.FromTime(local)
	assert.Equal(t, "2024-03-31", d.String())
	assert.Equal(t, time.UTC, d.Time().Location())
}

func TestAddMonths_ClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, "2024-02-29", date(2024, time.January, 31).AddMonths(1).String())
	assert.Equal(t, "2025-02-28", date(2024, time.January, 31).AddMonths(13).String())
	assert.Equal(t, "2025-01-10", date(2024, time.January, 10).AddMonths(12).String())
	assert.Equal(t, "2023-12-20", date(2024, time.January, 20).AddMonths(-1).String())
}

func TestDaysBetween_AcrossLeapDay(t *testing.T) {
	assert.Equal(t, 2, calendar.DaysBetween(date(2024, time.February, 28), date(2024, time.March, 1)))
	assert.Equal(t, 70, calendar.DaysBetween(date(2024, time.January, 10), date(2024, time.March, 20)))
	assert.Equal(t, -5, calendar.DaysBetween(date(2024, time.January, 10), date(2024, time.January, 5)))
}

// =============================================================================
// BUSINESS DAY TESTS
// =============================================================================

func TestIsBusinessDay(t *testing.T) {
	assert.True(t, calendar.IsBusinessDay(date(2024, time.January, 5)))  // Friday
	assert.False(t, calendar.IsBusinessDay(date(2024, time.January, 6))) // Saturday
	assert.False(t, calendar.IsBusinessDay(date(2024, time.January, 7))) // Sunday
	assert.True(t, calendar.IsBusinessDay(date(2024, time.January, 8)))  // Monday
}

func TestNthBusinessDayOfMonth_Examples(t *testing.T) {
	// February 2024 starts on a Thursday: Thu 1, Fri 2, Mon 5, Tue 6, Wed 7.
	assert.Equal(t, "2024-02-07", calendar.NthBusinessDayOfMonth(2024, time.February, 5).String())
	// June 2024 starts on a Saturday: Mon 3 .. Fri 7.
	assert.Equal(t, "2024-06-07", calendar.NthBusinessDayOfMonth(2024, time.June, 5).String())
	// April 2024 starts on a Monday.
	assert.Equal(t, "2024-04-05", calendar.NthBusinessDayOfMonth(2024, time.April, 5).String())
	assert.Equal(t, "2024-04-01", calendar.NthBusinessDayOfMonth(2024, time.April, 1).String())
}

func TestNthBusinessDayOfMonth_FifthAlwaysBetweenDay5And9(t *testing.T) {
	// Every month across several years, covering every weekday start.
	for year := 2020; year <= 2030; year++ {
		for month := time.January; month <= time.December; month++ {
			d := calendar.NthBusinessDayOfMonth(year, month, 5)
			if !calendar.IsBusinessDay(d) {
				t.Errorf("%04d-%02d: 5th business day %s falls on a weekend", year, month, d)
			}
			if d.Day() < 5 || d.Day() > 9 {
				t.Errorf("%04d-%02d: 5th business day %s outside [5, 9]", year, month, d)
			}
			if d.Month() != month {
				t.Errorf("%04d-%02d: 5th business day %s left the month", year, month, d)
			}
		}
	}
}

func TestNthBusinessDayOfMonth_PanicsWhenMonthTooShort(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		_, ok := r.(*calendar.InvariantError)
		assert.True(t, ok, "panic value should be *InvariantError, got %T", r)
	}()
	calendar.NthBusinessDayOfMonth(2024, time.February, 30)
}

func TestNextBusinessDay(t *testing.T) {
	assert.Equal(t, "2024-01-08", calendar.NextBusinessDay(date(2024, time.January, 5)).String()) // Fri -> Mon
	assert.Equal(t, "2024-01-08", calendar.NextBusinessDay(date(2024, time.January, 6)).String()) // Sat -> Mon
	assert.Equal(t, "2024-01-10", calendar.NextBusinessDay(date(2024, time.January, 9)).String()) // Tue -> Wed
}

// =============================================================================
// CUTOFF TESTS
// =============================================================================

func TestResolveCutoff_BeforeTwentieth_SameMonth(t *testing.T) {
	for day := 1; day < calendar.CutoffDay; day++ {
		c := calendar.ResolveCutoff(date(2024, time.January, day))
		assert.Equal(t, "2024-01-20", c.Date.String(), "day %d", day)
		assert.Equal(t, 2024, c.Year)
		assert.Equal(t, time.January, c.Month)
	}
}

func TestResolveCutoff_OnOrAfterTwentieth_NextMonth(t *testing.T) {
	for day := calendar.CutoffDay; day <= 31; day++ {
		c := calendar.ResolveCutoff(date(2024, time.January, day))
		assert.Equal(t, "2024-02-20", c.Date.String(), "day %d", day)
	}
	// Year rollover
	c := calendar.ResolveCutoff(date(2024, time.December, 25))
	assert.Equal(t, "2025-01-20", c.Date.String())
	assert.Equal(t, 2025, c.Year)
	assert.Equal(t, time.January, c.Month)
}

func TestKthSubsequentCutoff(t *testing.T) {
	first := calendar.ResolveCutoff(date(2024, time.January, 10))
	assert.Equal(t, "2024-01-20", calendar.KthSubsequentCutoff(first, 0).Date.String())
	assert.Equal(t, "2024-12-20", calendar.KthSubsequentCutoff(first, 11).Date.String())
	assert.Equal(t, "2027-01-20", first.Advance(36).Date.String())
	assert.Equal(t, calendar.CutoffDay, first.Advance(25).Date.Day())
}

func TestCurrentCutoff(t *testing.T) {
	assert.Equal(t, "2024-03-20", calendar.CurrentCutoff(date(2024, time.March, 20)).Date.String())
	assert.Equal(t, "2024-03-20", calendar.CurrentCutoff(date(2024, time.March, 31)).Date.String())
	assert.Equal(t, "2024-02-20", calendar.CurrentCutoff(date(2024, time.March, 19)).Date.String())
	assert.Equal(t, "2023-12-20", calendar.CurrentCutoff(date(2024, time.January, 1)).Date.String())
}

func TestCutoffPeriod_PaymentDateAndPeriod(t *testing.T) {
	c := calendar.ResolveCutoff(date(2024, time.January, 10))
	// Payment month is February 2024.
	assert.Equal(t, "2024-02-07", c.PaymentDate().String())

	p := c.Period()
	assert.Equal(t, "2023-12-21", p.Start.String())
	assert.Equal(t, "2024-01-20", p.End.String())
	assert.Equal(t, 31, p.Days())
	assert.True(t, p.Contains(date(2024, time.January, 20)))
	assert.False(t, p.Contains(date(2024, time.January, 21)))
}
