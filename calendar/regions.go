package calendar

import (
	"sort"
	"time"

	"github.com/warp/tenancy-engine/generic"
)

// =============================================================================
// REGIONAL ANNIVERSARY DAYS
// =============================================================================

// anniversaryRule computes a region's observed anniversary day for a year.
type anniversaryRule struct {
	name string
	date func(year int) generic.TimePoint
}

var (
	auckland = anniversaryRule{"Auckland Anniversary Day", func(y int) generic.TimePoint {
		return mondayNearest(y, time.January, 29)
	}}
	wellington = anniversaryRule{"Wellington Anniversary Day", func(y int) generic.TimePoint {
		return mondayNearest(y, time.January, 22)
	}}
)

// regionRules is keyed by region code. Several regions observe the
// Auckland or Wellington day.
var regionRules = map[string]anniversaryRule{
	"AUK": auckland,
	"NTL": auckland,
	"WKO": auckland,
	"BOP": auckland,
	"GIS": auckland,
	"WGN": wellington,
	"MWT": wellington,
	"NSN": {"Nelson Anniversary Day", func(y int) generic.TimePoint {
		return mondayNearest(y, time.February, 1)
	}},
	"TKI": {"Taranaki Anniversary Day", func(y int) generic.TimePoint {
		return nthWeekday(y, time.March, time.Monday, 2)
	}},
	"OTA": {"Otago Anniversary Day", func(y int) generic.TimePoint {
		d := mondayNearest(y, time.March, 23)
		if d.Equal(EasterSunday(y).AddDays(1)) {
			d = d.AddDays(1)
		}
		return d
	}},
	"STL": {"Southland Anniversary Day", func(y int) generic.TimePoint {
		return EasterSunday(y).AddDays(2)
	}},
	"HKB": {"Hawke's Bay Anniversary Day", func(y int) generic.TimePoint {
		return LabourDay(y).AddDays(-3)
	}},
	"MBH": {"Marlborough Anniversary Day", func(y int) generic.TimePoint {
		return LabourDay(y).AddDays(7)
	}},
	"CAN": {"Canterbury Anniversary Day", func(y int) generic.TimePoint {
		// second Friday after the first Tuesday in November
		return nthWeekday(y, time.November, time.Tuesday, 1).AddDays(10)
	}},
	"WTC": {"Westland Anniversary Day", func(y int) generic.TimePoint {
		return mondayNearest(y, time.December, 1)
	}},
	"CIT": {"Chatham Islands Anniversary Day", func(y int) generic.TimePoint {
		return mondayNearest(y, time.November, 30)
	}},
}

func anniversaryDays(year int, region string) []generic.Holiday {
	rule, ok := regionRules[region]
	if !ok {
		return nil
	}
	return []generic.Holiday{{Region: region, Date: rule.date(year), Name: rule.name}}
}

// KnownRegion reports whether the region has anniversary-day rules.
func KnownRegion(region string) bool {
	_, ok := regionRules[NormalizeRegion(region)]
	return ok
}

// Regions returns the supported region codes, sorted.
func Regions() []string {
	out := make([]string, 0, len(regionRules))
	for code := range regionRules {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
