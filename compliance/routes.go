package compliance

import (
	"time"

	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/rent"
)

// twentyOneDayRoute is open whenever rent is 21 or more calendar days
// overdue.
func twentyOneDayRoute(ledger *rent.LedgerState) (Route, bool) {
	if ledger == nil || ledger.DaysOverdue < 21 {
		return Route{}, false
	}
	return Route{Kind: Route21Days}, true
}

// threeStrikesRoute looks for a triad of active strikes whose filing
// window is still open. Any active strike at position three or later
// completes a triad with the two before it; the latest open window wins.
// A lapsed triad stays lapsed even though its strikes remain active.
func (e *Engine) threeStrikesRoute(active []notice.Record, asOf time.Time, asOfDate generic.TimePoint) (Route, bool) {
	for i := len(active) - 1; i >= notice.StrikesToTerminate-1; i-- {
		third := active[i]
		deadline := e.law.FilingDeadline(third.OfficialServiceDate)
		if deadline.PassedAt(asOf) {
			continue
		}
		d := deadline.Date
		ids := make([]string, 0, notice.StrikesToTerminate)
		for _, n := range active[i-notice.StrikesToTerminate+1 : i+1] {
			ids = append(ids, n.ID)
		}
		return Route{
			Kind:          RouteThreeStrikes,
			Deadline:      &d,
			DaysRemaining: deadline.DaysRemaining(asOfDate),
			NoticeIDs:     ids,
		}, true
	}
	return Route{}, false
}

// remedyState classifies each remedy notice at asOf.
type remedyState struct {
	record      notice.Record
	expiry      notice.Deadline
	outstanding generic.Money
	expired     bool
}

func (r remedyState) live() bool {
	return !r.expired && r.outstanding.IsPositive()
}

func (r remedyState) breached() bool {
	return r.expired && r.outstanding.IsPositive()
}

func (e *Engine) remedies(notices []notice.Record, payments []rent.Payment, asOf time.Time, asOfDate generic.TimePoint) []remedyState {
	var out []remedyState
	for _, n := range notices {
		if n.Type != notice.Remedy || n.Snapshot == nil {
			continue
		}
		expiry := e.law.RemedyDeadline(n.OfficialServiceDate)
		out = append(out, remedyState{
			record:      n,
			expiry:      expiry,
			outstanding: n.Snapshot.Outstanding(payments, asOfDate),
			expired:     expiry.PassedAt(asOf),
		})
	}
	return out
}

// unremediedBreachRoutes returns one route per expired remedy notice whose
// named debt is still unpaid.
func unremediedBreachRoutes(remedies []remedyState) []Route {
	var out []Route
	for _, r := range remedies {
		if !r.breached() {
			continue
		}
		out = append(out, Route{
			Kind:        RouteUnremediedBreach,
			NoticeIDs:   []string{r.record.ID},
			Outstanding: r.outstanding,
		})
	}
	return out
}
