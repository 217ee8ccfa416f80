package calendar

import (
	"time"

	"github.com/warp/tenancy-engine/generic"
)

// =============================================================================
// NATIONAL PUBLIC HOLIDAYS (Holidays Act 2003, Mondayisation since 2014)
// =============================================================================

func nationalHolidays(year int) []generic.Holiday {
	var hs []generic.Holiday

	hs = append(hs, observedPair(
		generic.NewTimePoint(year, time.January, 1), "New Year's Day",
		generic.NewTimePoint(year, time.January, 2), "Day after New Year's Day",
	)...)
	hs = append(hs, mondayised(generic.NewTimePoint(year, time.February, 6), "Waitangi Day", year >= 2014)...)

	easter := EasterSunday(year)
	hs = append(hs,
		generic.Holiday{Date: easter.AddDays(-2), Name: "Good Friday"},
		generic.Holiday{Date: easter.AddDays(1), Name: "Easter Monday"},
	)

	hs = append(hs, mondayised(generic.NewTimePoint(year, time.April, 25), "ANZAC Day", year >= 2014)...)

	sovereign := "Queen's Birthday"
	if year >= 2023 {
		sovereign = "King's Birthday"
	}
	hs = append(hs, generic.Holiday{Date: nthWeekday(year, time.June, time.Monday, 1), Name: sovereign})

	if d, ok := matariki[year]; ok {
		hs = append(hs, generic.Holiday{Date: generic.NewTimePoint(year, d.month, d.day), Name: "Matariki"})
	}

	hs = append(hs, generic.Holiday{Date: LabourDay(year), Name: "Labour Day"})

	hs = append(hs, observedPair(
		generic.NewTimePoint(year, time.December, 25), "Christmas Day",
		generic.NewTimePoint(year, time.December, 26), "Boxing Day",
	)...)

	return hs
}

// observedPair handles the two consecutive-day holidays. A date that falls
// on a weekend is observed on the next weekday not already taken by the
// other holiday of the pair.
func observedPair(first generic.TimePoint, firstName string, second generic.TimePoint, secondName string) []generic.Holiday {
	hs := []generic.Holiday{
		{Date: first, Name: firstName},
		{Date: second, Name: secondName},
	}
	taken := map[string]bool{}
	for _, h := range hs {
		if !h.Date.IsWeekend() {
			taken[h.Date.String()] = true
		}
	}
	for _, h := range []generic.Holiday{hs[0], hs[1]} {
		if !h.Date.IsWeekend() {
			continue
		}
		d := h.Date.AddDays(1)
		for d.IsWeekend() || taken[d.String()] {
			d = d.AddDays(1)
		}
		taken[d.String()] = true
		hs = append(hs, generic.Holiday{Date: d, Name: h.Name + " (observed)"})
	}
	return hs
}

// mondayised returns the holiday and, when enabled and it falls on a
// weekend, the following Monday.
func mondayised(date generic.TimePoint, name string, enabled bool) []generic.Holiday {
	hs := []generic.Holiday{{Date: date, Name: name}}
	if !enabled || !date.IsWeekend() {
		return hs
	}
	d := date.AddDays(1)
	for d.Weekday() != time.Monday {
		d = d.AddDays(1)
	}
	return append(hs, generic.Holiday{Date: d, Name: name + " (observed)"})
}

// EasterSunday uses the anonymous Gregorian algorithm.
func EasterSunday(year int) generic.TimePoint {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return generic.NewTimePoint(year, time.Month(month), day)
}

// LabourDay is the fourth Monday in October.
func LabourDay(year int) generic.TimePoint {
	return nthWeekday(year, time.October, time.Monday, 4)
}

// nthWeekday returns the nth (1-based) given weekday of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) generic.TimePoint {
	first := generic.NewTimePoint(year, month, 1)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDays(offset + 7*(n-1))
}

// mondayNearest returns the Monday closest to the given date.
func mondayNearest(year int, month time.Month, day int) generic.TimePoint {
	d := generic.NewTimePoint(year, month, day)
	offset := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	if offset > 3 {
		offset -= 7
	}
	return d.AddDays(offset)
}

type monthDay struct {
	month time.Month
	day   int
}

// matariki holds the dates gazetted in the Te Kāhui o Matariki Public
// Holiday Act 2022 schedule.
var matariki = map[int]monthDay{
	2022: {time.June, 24},
	2023: {time.July, 14},
	2024: {time.June, 28},
	2025: {time.June, 20},
	2026: {time.July, 10},
	2027: {time.June, 25},
	2028: {time.July, 14},
	2029: {time.July, 6},
	2030: {time.June, 21},
	2031: {time.July, 11},
	2032: {time.July, 2},
	2033: {time.June, 24},
	2034: {time.July, 7},
	2035: {time.June, 29},
	2036: {time.July, 18},
	2037: {time.July, 10},
	2038: {time.June, 25},
	2039: {time.July, 15},
	2040: {time.July, 6},
	2041: {time.July, 19},
	2042: {time.July, 11},
	2043: {time.July, 3},
	2044: {time.June, 24},
	2045: {time.July, 7},
	2046: {time.June, 29},
	2047: {time.July, 19},
	2048: {time.July, 3},
	2049: {time.June, 25},
	2050: {time.July, 15},
	2051: {time.June, 30},
	2052: {time.June, 21},
}
