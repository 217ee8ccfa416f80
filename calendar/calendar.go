/*
Package calendar implements working-day arithmetic for New Zealand tenancy law.

PURPOSE:
  Every statutory clock in the Residential Tenancies Act that is not a plain
  calendar count is measured in working days. This package answers "is this
  a working day here?" and the arithmetic built on it.

WORKING DAY:
  A day is NOT a working day when it is:
  1. A Saturday or Sunday
  2. A national public holiday (Mondayised where the law says so)
  3. The region's anniversary day
  4. An extra holiday loaded from a table (national or regional)
  5. Inside a blackout period (the 25 Dec - 15 Jan summer closure, when
     enabled, or any configured range)

REGIONS:
  Region codes are the two/three letter codes in regions.go. An unknown or
  empty region falls back to national holidays only. It never errors.

CONCURRENCY:
  A Calendar is immutable after New. Year tables are computed lazily and
  memoised under a RWMutex, so one Calendar serves all requests.

EXAMPLE:
  cal := calendar.New(calendar.WithSummerBlackout())
  osd := cal.AddWorkingDays(generic.NewTimePoint(2025, 3, 7), 2, "WGN")
  late := cal.WorkingDaysBetween(dueDate, today, "AUK")

SEE ALSO:
  - nz.go: National holiday rules
  - regions.go: Anniversary days
  - table.go: YAML holiday table loader
*/
package calendar

import (
	"sort"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/warp/tenancy-engine/generic"
)

// DefaultZone is the jurisdiction's civil time zone.
const DefaultZone = "Pacific/Auckland"

// =============================================================================
// CALENDAR
// =============================================================================

type Calendar struct {
	loc            *time.Location
	summerBlackout bool
	blackouts      []generic.Period
	extra          []generic.Holiday

	mu    sync.RWMutex
	years map[yearKey]map[string]string // date -> holiday name
}

type yearKey struct {
	year   int
	region string
}

// Option configures a Calendar.
type Option func(c *Calendar)

// WithLocation sets the zone used for local dates and cutoffs.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithSummerBlackout excludes 25 December - 15 January from working days.
func WithSummerBlackout() Option {
	return func(c *Calendar) {
		c.summerBlackout = true
	}
}

// WithBlackout adds a configured non-working range.
func WithBlackout(p generic.Period) Option {
	return func(c *Calendar) {
		if p.Valid() {
			c.blackouts = append(c.blackouts, p)
		}
	}
}

// WithHolidays adds extra holidays on top of the built-in rules.
func WithHolidays(hs ...generic.Holiday) Option {
	return func(c *Calendar) {
		for _, h := range hs {
			h.Region = NormalizeRegion(h.Region)
			c.extra = append(c.extra, h)
		}
	}
}

// New builds a Calendar for New Zealand.
func New(opts ...Option) *Calendar {
	c := &Calendar{
		loc:   defaultLocation(),
		years: make(map[yearKey]map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		return time.FixedZone("NZST", 12*60*60)
	}
	return loc
}

// Location returns the calendar's civil time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// =============================================================================
// HOLIDAY LOOKUP (generic.HolidayCalendar)
// =============================================================================

var _ generic.HolidayCalendar = (*Calendar)(nil)

// IsHoliday reports national, regional and extra holidays. Weekends and
// blackouts are not holidays; use IsWorkingDay for the full rule.
func (c *Calendar) IsHoliday(region string, date generic.TimePoint) bool {
	_, ok := c.table(date.Year(), NormalizeRegion(region))[date.String()]
	return ok
}

// Holidays returns the year's holidays for region, ordered by date.
func (c *Calendar) Holidays(year int, region string) []generic.Holiday {
	region = NormalizeRegion(region)
	table := c.table(year, region)

	out := make([]generic.Holiday, 0, len(table))
	for date, name := range table {
		out = append(out, generic.Holiday{
			Region: region,
			Date:   generic.MustParseDate(date),
			Name:   name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func (c *Calendar) table(year int, region string) map[string]string {
	key := yearKey{year: year, region: region}

	c.mu.RLock()
	t, ok := c.years[key]
	c.mu.RUnlock()
	if ok {
		return t
	}

	t = make(map[string]string)
	add := func(hs []generic.Holiday) {
		for _, h := range hs {
			if h.Date.Year() != year {
				continue
			}
			if existing, dup := t[h.Date.String()]; dup {
				t[h.Date.String()] = existing + "; " + h.Name
				continue
			}
			t[h.Date.String()] = h.Name
		}
	}
	add(nationalHolidays(year))
	add(anniversaryDays(year, region))
	for _, h := range c.extra {
		if h.Region == "" || h.Region == region {
			add([]generic.Holiday{h})
		}
	}

	c.mu.Lock()
	c.years[key] = t
	c.mu.Unlock()
	return t
}

// =============================================================================
// WORKING DAYS
// =============================================================================

// InBlackout reports whether date falls in a configured blackout period.
func (c *Calendar) InBlackout(date generic.TimePoint) bool {
	if c.summerBlackout {
		m, d := date.Month(), date.Day()
		if (m == time.December && d >= 25) || (m == time.January && d <= 15) {
			return true
		}
	}
	for _, p := range c.blackouts {
		if p.Contains(date) {
			return true
		}
	}
	return false
}

// IsWorkingDay applies the full working-day rule.
func (c *Calendar) IsWorkingDay(date generic.TimePoint, region string) bool {
	if date.IsWeekend() {
		return false
	}
	if c.InBlackout(date) {
		return false
	}
	return !c.IsHoliday(region, date)
}

// NextWorkingDay returns the first working day strictly after date.
func (c *Calendar) NextWorkingDay(date generic.TimePoint, region string) generic.TimePoint {
	next := date.AddDays(1)
	for !c.IsWorkingDay(next, region) {
		next = next.AddDays(1)
	}
	return next
}

// AddWorkingDays counts n working days forward from date. With n == 0 the
// result is date itself when it is a working day, else the next one, so the
// result is always a working day. Negative n is treated as zero.
func (c *Calendar) AddWorkingDays(date generic.TimePoint, n int, region string) generic.TimePoint {
	if n <= 0 {
		if c.IsWorkingDay(date, region) {
			return date
		}
		return c.NextWorkingDay(date, region)
	}
	current := date
	for counted := 0; counted < n; {
		current = current.AddDays(1)
		if c.IsWorkingDay(current, region) {
			counted++
		}
	}
	return current
}

// WorkingDaysBetween counts the working days in (a, b]. The sign is positive
// when b is after a and negative when b is before a.
func (c *Calendar) WorkingDaysBetween(a, b generic.TimePoint, region string) int {
	if a.Equal(b) {
		return 0
	}
	sign := 1
	from, to := a, b
	if b.Before(a) {
		sign = -1
		from, to = b, a
	}
	count := 0
	for d := from.AddDays(1); d.BeforeOrEqual(to); d = d.AddDays(1) {
		if c.IsWorkingDay(d, region) {
			count++
		}
	}
	return sign * count
}

// NormalizeRegion upper-cases and trims a region code.
func NormalizeRegion(region string) string {
	return strings.ToUpper(strings.TrimSpace(region))
}
