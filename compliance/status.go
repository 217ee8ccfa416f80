/*
Package compliance combines the ledger, the working-day calendar and a
tenant's notice history into one status.

PURPOSE:
  Answers, for an explicit as-of instant: how serious is this tenancy's
  arrears position, which notices may lawfully be issued right now, and
  which termination routes are open. There is one entry point,
  Engine.Evaluate, and it is a pure function of its Input.

SEVERITY TIERS (first match wins):
  5  days overdue >= 21, or 3+ active strikes       termination eligible
  4  working days overdue >= 15                     strike 3 ready / catch up
  4  10-14 working days, strike on record           next strike ready
  3  10-14 working days, no strike                  strike 1 required
  3  5-9 working days, strike on record             next strike ready
  2  5-9 working days, no strike                    strike 1 ready
  1  1-4 working days                               remedy notice / monitoring
  0  paid up, or not yet overdue

STRIKE MEMORY:
  A strike is active while its OSD is within the trailing 90 days,
  inclusive, whatever the balance is now. Paying prevents new strikes but
  never erases old ones.

TERMINATION ROUTES (independent, any one is enough):
  21_days_arrears     rent 21+ calendar days overdue, no expiry
  three_strikes       3 active strikes; lapses at the end of the 28th day
                      after the third strike's OSD
  unremedied_breach   a remedy notice expired and the debt it named is
                      still unpaid

SEE ALSO:
  - evaluate.go: The state machine
  - strikes.go: Strike memory, occasions, validation
  - routes.go: Termination routes
*/
package compliance

import (
	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
)

// =============================================================================
// TIERS
// =============================================================================

type Tier int

const (
	TierClear Tier = iota
	TierRemedy
	TierStrikeReady
	TierStrikeRequired
	TierEscalation
	TierTermination
)

// =============================================================================
// ACTIONS
// =============================================================================

type ActionKind string

const (
	ActionIssueStrike   ActionKind = "issue_strike"
	ActionIssueRemedy   ActionKind = "issue_remedy_notice"
	ActionMonitorRemedy ActionKind = "monitor_remedy"
	ActionApplyTribunal ActionKind = "apply_tribunal"
)

// Action is a step the landlord may lawfully take at AsOf.
type Action struct {
	Kind         ActionKind
	StrikeNumber int                // issue_strike
	Occasion     *generic.TimePoint // issue_strike: the rent due date addressed
	CatchUp      bool               // issue_strike: an earlier strike was never issued
	NoticeID     string             // monitor_remedy
	Deadline     *generic.TimePoint // monitor_remedy, apply_tribunal
	Route        RouteKind          // apply_tribunal
}

// =============================================================================
// ROUTES
// =============================================================================

type RouteKind string

const (
	Route21Days           RouteKind = "21_days_arrears"
	RouteThreeStrikes     RouteKind = "three_strikes"
	RouteUnremediedBreach RouteKind = "unremedied_breach"
)

// Route is an open termination route.
type Route struct {
	Kind          RouteKind
	Deadline      *generic.TimePoint // three_strikes filing deadline
	DaysRemaining int                // until Deadline, when set
	NoticeIDs     []string           // the strike triad, or the remedy notice
	Outstanding   generic.Money      // unremedied_breach: named debt still unpaid
}

// =============================================================================
// STATUS
// =============================================================================

// StrikeSummary is an active strike.
type StrikeSummary struct {
	NoticeID            string
	Type                notice.Type
	Number              int
	OfficialServiceDate generic.TimePoint
	Occasion            generic.TimePoint
	ActiveUntil         generic.TimePoint
}

// TenantStatus is the single canonical status for a tenant at AsOf.
type TenantStatus struct {
	AsOf                generic.TimePoint
	SeverityTier        Tier
	Label               string
	WorkingDaysOverdue  int
	DaysOverdue         int
	Balance             generic.Money
	OldestUnpaidDueDate *generic.TimePoint
	NextDueDate         *generic.TimePoint
	ActiveStrikeCount   int
	ActiveStrikes       []StrikeSummary
	EligibleActions     []Action
	TerminationRoutes   []Route
	CatchUpRequired     bool

	// Estimated is set when settings were insufficient to compute a
	// ledger; money fields are then zero and only notice-derived facts
	// are reliable.
	Estimated   bool
	Diagnostics []generic.Diagnostic
}

// Action returns the first eligible action of kind.
func (s TenantStatus) Action(kind ActionKind) (Action, bool) {
	for _, a := range s.EligibleActions {
		if a.Kind == kind {
			return a, true
		}
	}
	return Action{}, false
}

func (s TenantStatus) HasAction(kind ActionKind) bool {
	_, ok := s.Action(kind)
	return ok
}

// Route returns the first open route of kind.
func (s TenantStatus) Route(kind RouteKind) (Route, bool) {
	for _, r := range s.TerminationRoutes {
		if r.Kind == kind {
			return r, true
		}
	}
	return Route{}, false
}

func (s TenantStatus) TerminationEligible() bool {
	return len(s.TerminationRoutes) > 0
}
