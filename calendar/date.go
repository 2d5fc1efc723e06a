/*
Package calendar provides the date arithmetic used by the commission engine.

PURPOSE:
  Every calculation in this system happens on calendar days. A Date is a
  time.Time pinned to UTC midnight, so adding days, comparing dates, and
  counting the distance between two dates never shifts across a timezone
  boundary.

KEY CONCEPTS:
  - Date:          UTC-midnight calendar day (no time component)
  - Business day:  Monday through Friday (no holiday table)
  - CutoffPeriod:  the 20th-of-month boundary an investment belongs to

NORMALIZATION RULE:
  All constructors go through NewDate. A time.Time coming from outside is
  reduced to its own year/month/day first, then rebuilt in UTC. The local
  clock is never consulted except by Today().

SEE ALSO:
  - business.go: business-day resolution
  - cutoff.go: cutoff resolution
*/
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// ISOLayout is the textual form of a Date.
const ISOLayout = "2006-01-02"

// =============================================================================
// DATE - A calendar day pinned to UTC midnight
// =============================================================================

type Date struct {
	t time.Time
}

// NewDate builds a Date. Out-of-range values normalize like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime keeps the calendar day of t as seen in t's own location.
func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day in UTC.
func Today() Date {
	return FromTime(time.Now().UTC())
}

// ParseDate accepts "YYYY-MM-DD" optionally followed by a time suffix
// ("2024-01-10T23:00:00-03:00", "2024-01-10 08:15"). The suffix is ignored,
// so the calendar day written in the string is the day used.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(ISOLayout) {
		return Date{}, fmt.Errorf("calendar: parse %q: too short for %s", s, ISOLayout)
	}
	if len(s) > len(ISOLayout) {
		sep := s[len(ISOLayout)]
		if sep != 'T' && sep != 't' && sep != ' ' {
			return Date{}, fmt.Errorf("calendar: parse %q: unexpected suffix", s)
		}
	}
	t, err := time.Parse(ISOLayout, s[:len(ISOLayout)])
	if err != nil {
		return Date{}, fmt.Errorf("calendar: parse %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParseDate is ParseDate for literals in tests and scenario tables.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// AddMonths moves n calendar months and clamps the day to the target month's
// length (Jan 31 + 1 month = Feb 28/29), unlike time.AddDate which overflows.
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) String() string        { return d.t.Format(ISOLayout) }

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

// DaysBetween returns to - from in whole days. Both are UTC midnight, so the
// difference is an exact multiple of 24h.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, daysIn(year, month))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
