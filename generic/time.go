package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - A calendar date (rent and notice law work in whole days)
// =============================================================================

// TimePoint is a calendar date. The wrapped time is always midnight UTC so
// that day arithmetic is free of DST and zone drift; local-time questions
// (5pm cutoffs, 23:59 expiry) are answered by converting instants with
// DateIn before they reach the engine.
type TimePoint struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateIn returns the calendar date of instant t as observed in loc.
func DateIn(t time.Time, loc *time.Location) TimePoint {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return NewTimePoint(local.Year(), local.Month(), local.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("parse date %q: %w", s, ErrInvalidInput)
	}
	return NewTimePoint(t.Year(), t.Month(), t.Day()), nil
}

// MustParseDate is for tables and tests.
func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// AddMonthsClamped moves n months and places the result on day, clamped to
// the target month's last day. The caller passes the configured day every
// time so a short month never shifts later results.
func (tp TimePoint) AddMonthsClamped(n int, day int) TimePoint {
	first := time.Date(tp.Year(), tp.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return ClampedDay(first.Year(), first.Month(), day)
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (tp TimePoint) IsZero() bool { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format(dateLayout)
}

// At returns the instant at hour:min:sec on this date in loc.
func (tp TimePoint) At(loc *time.Location, hour, min, sec int) time.Time {
	return time.Date(tp.Year(), tp.Month(), tp.Day(), hour, min, sec, 0, loc)
}

// MarshalText renders YYYY-MM-DD for JSON, YAML and SQL columns.
func (tp TimePoint) MarshalText() ([]byte, error) {
	return []byte(tp.String()), nil
}

// UnmarshalText accepts YYYY-MM-DD; empty input yields the zero date.
func (tp *TimePoint) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*tp = TimePoint{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holiday is a non-working date. Region "" means it applies nationally.
type Holiday struct {
	ID     string    `json:"id,omitempty" yaml:"id,omitempty"`
	Region string    `json:"region,omitempty" yaml:"region,omitempty"`
	Date   TimePoint `json:"date" yaml:"date"`
	Name   string    `json:"name" yaml:"name"`
}

// HolidayCalendar answers holiday lookups for a region.
type HolidayCalendar interface {
	// IsHoliday reports whether date is a national or regional holiday.
	IsHoliday(region string, date TimePoint) bool

	// Holidays returns national and regional holidays for a year, by date.
	Holidays(year int, region string) []Holiday
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the signed number of calendar days from -> to.
func DaysBetween(from, to TimePoint) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDay returns day in the given month, or the month's last day when the
// month is shorter.
func ClampedDay(year int, month time.Month, day int) TimePoint {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewTimePoint(year, month, day)
}
