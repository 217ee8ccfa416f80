package compliance

import (
	"fmt"
	"sort"
	"time"

	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/rent"
)

// StrikeOccasionWorkingDays is how far overdue a rent payment must be
// before a strike may name it.
const StrikeOccasionWorkingDays = 5

// =============================================================================
// STRIKE MEMORY
// =============================================================================

// sortNotices orders notices by OSD, then send instant, then ID.
func sortNotices(ns []notice.Record) {
	sort.SliceStable(ns, func(i, j int) bool {
		a, b := ns[i], ns[j]
		if !a.OfficialServiceDate.Equal(b.OfficialServiceDate) {
			return a.OfficialServiceDate.Before(b.OfficialServiceDate)
		}
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.Before(b.SentAt)
		}
		return a.ID < b.ID
	})
}

// ActiveStrikes returns strikes whose OSD is inside window, oldest first.
// The input must already be in notice order.
func ActiveStrikes(notices []notice.Record, window generic.Period) []notice.Record {
	var out []notice.Record
	for _, n := range notices {
		if n.Type.IsStrike() && window.Contains(n.OfficialServiceDate) {
			out = append(out, n)
		}
	}
	return out
}

func summarize(strikes []notice.Record) []StrikeSummary {
	out := make([]StrikeSummary, 0, len(strikes))
	for _, s := range strikes {
		out = append(out, StrikeSummary{
			NoticeID:            s.ID,
			Type:                s.Type,
			Number:              s.StrikeNumber,
			OfficialServiceDate: s.OfficialServiceDate,
			Occasion:            s.DueDateForOccasion,
			ActiveUntil:         s.OfficialServiceDate.AddDays(notice.StrikeWindowDays),
		})
	}
	return out
}

// =============================================================================
// OCCASIONS
// =============================================================================

// usedOccasions is every due date a strike has already named, at any time.
func usedOccasions(notices []notice.Record) map[string]bool {
	used := make(map[string]bool)
	for _, n := range notices {
		if n.Type == notice.Strike && !n.DueDateForOccasion.IsZero() {
			used[n.DueDateForOccasion.String()] = true
		}
	}
	return used
}

// nextOccasion picks the oldest unpaid rent due date that is at least
// StrikeOccasionWorkingDays working days overdue and not yet named by a
// strike.
func (e *Engine) nextOccasion(ledger rent.LedgerState, notices []notice.Record, region string) (generic.TimePoint, bool) {
	used := usedOccasions(notices)
	cal := e.law.Calendar()
	for _, l := range ledger.UnpaidLines() {
		if l.ID == rent.OpeningArrearsLineID {
			continue
		}
		if cal.WorkingDaysBetween(l.DueDate, ledger.AsOf, region) < StrikeOccasionWorkingDays {
			break
		}
		if !used[l.DueDate.String()] {
			return l.DueDate, true
		}
	}
	return generic.TimePoint{}, false
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateStrike checks a strike against the notices already issued. It
// returns a *generic.RuleViolation, or nil when the strike may be recorded.
// Eligibility in the current status is checked separately.
func ValidateStrike(candidate notice.Record, existing []notice.Record, loc *time.Location) error {
	if !candidate.Type.IsStrike() {
		return nil
	}
	if candidate.Type == notice.Strike && candidate.DueDateForOccasion.IsZero() {
		return &generic.RuleViolation{
			Rule:   generic.ErrMissingOccasion,
			Action: string(ActionIssueStrike),
		}
	}

	sentOn := candidate.SentOn(loc)
	for _, n := range existing {
		if !n.Type.IsStrike() {
			continue
		}
		if candidate.Type == notice.Strike && n.Type == notice.Strike &&
			n.DueDateForOccasion.Equal(candidate.DueDateForOccasion) {
			return &generic.RuleViolation{
				Rule:    generic.ErrDuplicateOccasion,
				Action:  string(ActionIssueStrike),
				Date:    candidate.DueDateForOccasion,
				Message: fmt.Sprintf("rent due %s was already addressed by strike %s", candidate.DueDateForOccasion, n.ID),
			}
		}
		if n.SentOn(loc).Equal(sentOn) {
			return &generic.RuleViolation{
				Rule:    generic.ErrSameDayStrike,
				Action:  string(ActionIssueStrike),
				Date:    sentOn,
				Message: fmt.Sprintf("strike %s was already sent on %s", n.ID, sentOn),
			}
		}
	}
	return nil
}

// strikeSentOn reports whether any strike was sent on the local day.
func strikeSentOn(notices []notice.Record, day generic.TimePoint, loc *time.Location) bool {
	for _, n := range notices {
		if n.Type.IsStrike() && n.SentOn(loc).Equal(day) {
			return true
		}
	}
	return false
}
