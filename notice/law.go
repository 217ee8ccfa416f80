package notice

import (
	"time"

	"github.com/warp/tenancy-engine/calendar"
	"github.com/warp/tenancy-engine/generic"
)

// Statutory periods.
const (
	ServiceCutoffHour  = 17
	LetterboxDays      = 2  // working days
	PostDays           = 4  // working days
	RemedyPeriodDays   = 14 // calendar days
	FilingPeriodDays   = 28 // calendar days
	StrikeWindowDays   = 90 // calendar days
	StrikesToTerminate = 3
)

// =============================================================================
// LAW
// =============================================================================

// Law computes service dates and deadlines against a calendar.
type Law struct {
	cal *calendar.Calendar
}

func NewLaw(cal *calendar.Calendar) *Law {
	if cal == nil {
		cal = calendar.New()
	}
	return &Law{cal: cal}
}

func (l *Law) Calendar() *calendar.Calendar { return l.cal }

// Location is the zone used for cutoffs and deadline expiry.
func (l *Law) Location() *time.Location { return l.cal.Location() }

// OfficialServiceDate is the date a notice sent at sentAt takes effect.
// The 5pm rule is the only step that looks at the time of day.
func (l *Law) OfficialServiceDate(sentAt time.Time, region string, method Method) generic.TimePoint {
	local := sentAt.In(l.Location())
	day := generic.DateIn(sentAt, l.Location())

	switch method {
	case Letterbox:
		return l.cal.AddWorkingDays(day, LetterboxDays, region)
	case Post:
		return l.cal.AddWorkingDays(day, PostDays, region)
	default:
		if local.Hour() < ServiceCutoffHour && l.cal.IsWorkingDay(day, region) {
			return day
		}
		return l.cal.NextWorkingDay(day, region)
	}
}

// RemedyExpiryDate is the last day a tenant has to remedy a breach.
func (l *Law) RemedyExpiryDate(osd generic.TimePoint) generic.TimePoint {
	return osd.AddDays(RemedyPeriodDays)
}

// TribunalFilingDeadline is the last day to apply on the three-strikes
// route, counted from the third strike's OSD.
func (l *Law) TribunalFilingDeadline(thirdStrikeOSD generic.TimePoint) generic.TimePoint {
	return thirdStrikeOSD.AddDays(FilingPeriodDays)
}

func (l *Law) RemedyDeadline(osd generic.TimePoint) Deadline {
	return Deadline{Date: l.RemedyExpiryDate(osd), Location: l.Location()}
}

func (l *Law) FilingDeadline(thirdStrikeOSD generic.TimePoint) Deadline {
	return Deadline{Date: l.TribunalFilingDeadline(thirdStrikeOSD), Location: l.Location()}
}

// StrikeWindow is the inclusive range of OSDs that count as active strikes
// at asOf.
func (l *Law) StrikeWindow(asOf generic.TimePoint) generic.Period {
	return generic.TrailingWindow(asOf, StrikeWindowDays)
}

// =============================================================================
// DEADLINE
// =============================================================================

// Deadline is a date that expires at the end of the local day.
type Deadline struct {
	Date     generic.TimePoint
	Location *time.Location
}

// ExpiresAt is 23:59:59 local on the deadline date.
func (d Deadline) ExpiresAt() time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return d.Date.At(loc, 23, 59, 59)
}

// PassedAt reports whether the deadline has expired at instant t, which is
// the case from local midnight after the deadline date.
func (d Deadline) PassedAt(t time.Time) bool {
	return generic.DateIn(t, d.Location).After(d.Date)
}

// DaysRemaining counts calendar days from asOf to the deadline; negative
// once it has passed.
func (d Deadline) DaysRemaining(asOf generic.TimePoint) int {
	return generic.DaysBetween(asOf, d.Date)
}
