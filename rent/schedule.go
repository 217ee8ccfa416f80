package rent

import (
	"time"

	"github.com/warp/tenancy-engine/generic"
)

// =============================================================================
// SCHEDULE - Nominal due dates for a rent configuration
// =============================================================================

// Schedule generates the nominal due dates for one rent configuration.
//
// Weekly and fortnightly schedules step a fixed number of days from the
// first due date. Monthly schedules step one calendar month at a time and
// place every date on the configured day, clamped to the month's length:
//
//	dueDay 31: 31 Jan -> 28 Feb -> 31 Mar -> 30 Apr -> 31 May
//
// The configured day is re-applied on every step so a clamped month never
// drags later months back.
type Schedule struct {
	frequency  Frequency
	weekday    time.Weekday
	dayOfMonth int
	start      generic.TimePoint
	first      generic.TimePoint
}

// NewSchedule validates the schedule fields of settings. Rent amount and
// arrears are not needed to generate dates and are not checked here.
func NewSchedule(settings Settings) (*Schedule, error) {
	var fields []string
	if settings.Frequency == "" {
		fields = append(fields, "frequency")
	}
	if settings.DueDay == "" {
		fields = append(fields, "due_day")
	}
	if settings.TrackingStart.IsZero() {
		fields = append(fields, "tracking_start")
	}
	if len(fields) > 0 {
		return nil, &generic.ConfigError{Fields: fields}
	}

	wd, dom, err := parseDueDay(settings.Frequency, settings.DueDay)
	if err != nil {
		return nil, &generic.ConfigError{Fields: []string{"due_day"}, Reason: err.Error()}
	}

	s := &Schedule{
		frequency:  settings.Frequency,
		weekday:    wd,
		dayOfMonth: dom,
		start:      settings.TrackingStart,
	}
	s.first = s.firstOnOrAfter(settings.TrackingStart)
	return s, nil
}

func (s *Schedule) firstOnOrAfter(start generic.TimePoint) generic.TimePoint {
	if s.frequency == Monthly {
		d := generic.ClampedDay(start.Year(), start.Month(), s.dayOfMonth)
		if d.Before(start) {
			d = start.AddMonthsClamped(1, s.dayOfMonth)
		}
		return d
	}
	offset := (int(s.weekday) - int(start.Weekday()) + 7) % 7
	return start.AddDays(offset)
}

func (s *Schedule) Frequency() Frequency { return s.frequency }

// FirstDueDate is the first due date on or after tracking start.
func (s *Schedule) FirstDueDate() generic.TimePoint { return s.first }

// NextDueDate advances exactly one cycle from current.
func (s *Schedule) NextDueDate(current generic.TimePoint) generic.TimePoint {
	switch s.frequency {
	case Weekly:
		return current.AddDays(7)
	case Fortnightly:
		return current.AddDays(14)
	default:
		return current.AddMonthsClamped(1, s.dayOfMonth)
	}
}

// CycleLengthDays is the number of calendar days from current to the next
// due date. Fixed for weekly and fortnightly, per step for monthly.
func (s *Schedule) CycleLengthDays(current generic.TimePoint) int {
	return generic.DaysBetween(current, s.NextDueDate(current))
}

// FindNextDueDateAfter rolls anchor forward until it is strictly after
// date. An anchor already after date is returned unchanged.
func (s *Schedule) FindNextDueDateAfter(date, anchor generic.TimePoint) generic.TimePoint {
	if anchor.After(date) {
		return anchor
	}
	if s.frequency != Monthly {
		step := s.CycleLengthDays(anchor)
		k := generic.DaysBetween(anchor, date)/step + 1
		return anchor.AddDays(k * step)
	}
	next := anchor
	for !next.After(date) {
		next = s.NextDueDate(next)
	}
	return next
}

// DueDatesThrough lists every due date from the first up to and including
// asOf.
func (s *Schedule) DueDatesThrough(asOf generic.TimePoint) []generic.TimePoint {
	var out []generic.TimePoint
	for d := s.first; d.BeforeOrEqual(asOf); d = s.NextDueDate(d) {
		out = append(out, d)
	}
	return out
}

// CyclesElapsed counts due dates in [FirstDueDate, asOf].
func (s *Schedule) CyclesElapsed(asOf generic.TimePoint) int {
	if asOf.Before(s.first) {
		return 0
	}
	if s.frequency != Monthly {
		return 1 + generic.DaysBetween(s.first, asOf)/s.CycleLengthDays(s.first)
	}
	return len(s.DueDatesThrough(asOf))
}

// IsDueDate reports whether date is on this schedule.
func (s *Schedule) IsDueDate(date generic.TimePoint) bool {
	if date.Before(s.first) {
		return false
	}
	return s.FindNextDueDateAfter(date.AddDays(-1), s.first).Equal(date)
}
