/*
Package notice computes when tenancy notices legally take effect and what
debt a remedy notice names.

PURPOSE:
  A notice is only as good as its dates. This package turns a send instant
  and delivery method into an Official Service Date (OSD), derives the
  statutory deadlines that run from it, and freezes the debt a remedy
  notice addresses so later payments are judged against that debt only.

KEY CONCEPTS:
  - Record: a sent notice (strike, social strike, remedy) with its dates
  - Law: OSD and deadline arithmetic over a calendar.Calendar
  - Deadline: a date that expires at the end of the local day
  - DebtSnapshot: the unpaid ledger lines named by a remedy notice

SERVICE RULES:
  email, hand   before 17:00 local on a working day -> same day,
                otherwise the next working day
  letterbox     local send date + 2 working days
  post          local send date + 4 working days

  remedy expiry       OSD + 14 calendar days
  tribunal filing     third strike OSD + 28 calendar days

SEE ALSO:
  - law.go: Service date and deadline arithmetic
  - snapshot.go: Debt snapshots
  - compliance/: Uses records to decide eligibility
*/
package notice

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/tenancy-engine/generic"
)

// =============================================================================
// NOTICE TYPES
// =============================================================================

type Type string

const (
	Strike       Type = "STRIKE"
	SocialStrike Type = "SOCIAL_STRIKE"
	Remedy       Type = "REMEDY"
)

// IsStrike is true for both rent and social strikes; both count toward
// strike memory.
func (t Type) IsStrike() bool {
	return t == Strike || t == SocialStrike
}

func ParseType(s string) (Type, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	switch t := Type(v); t {
	case Strike, SocialStrike, Remedy:
		return t, nil
	default:
		return "", fmt.Errorf("notice type %q: %w", s, generic.ErrInvalidInput)
	}
}

// =============================================================================
// DELIVERY METHODS
// =============================================================================

type Method string

const (
	Email     Method = "email"
	Hand      Method = "hand"
	Letterbox Method = "letterbox"
	Post      Method = "post"
)

// ParseMethod maps "" to Email, the default delivery method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Email, nil
	case Email, Hand, Letterbox, Post:
		return m, nil
	default:
		return "", fmt.Errorf("delivery method %q: %w", s, generic.ErrInvalidInput)
	}
}

// =============================================================================
// RECORD
// =============================================================================

// Record is a sent notice. Its dates were computed when it was sent and are
// treated as ground truth afterwards, even if settings change.
type Record struct {
	ID                  string
	Type                Type
	StrikeNumber        int // 1-3, strikes only
	SentAt              time.Time
	Method              Method
	OfficialServiceDate generic.TimePoint
	DueDateForOccasion  generic.TimePoint // strikes only
	Snapshot            *DebtSnapshot     // remedy only
}

// SentOn is the local calendar day the notice was sent.
func (r Record) SentOn(loc *time.Location) generic.TimePoint {
	return generic.DateIn(r.SentAt, loc)
}

func (r Record) String() string {
	switch {
	case r.Type.IsStrike():
		return fmt.Sprintf("%s #%d for %s (OSD %s)", r.Type, r.StrikeNumber, r.DueDateForOccasion, r.OfficialServiceDate)
	default:
		return fmt.Sprintf("%s (OSD %s)", r.Type, r.OfficialServiceDate)
	}
}
