package compliance

import (
	"fmt"
	"time"

	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/rent"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is stateless apart from the read-only calendar behind its Law and
// is safe for concurrent use.
type Engine struct {
	law *notice.Law
}

func NewEngine(law *notice.Law) *Engine {
	if law == nil {
		law = notice.NewLaw(nil)
	}
	return &Engine{law: law}
}

func (e *Engine) Law() *notice.Law { return e.law }

// Input is everything one evaluation needs. Nothing outside it is read.
type Input struct {
	Settings rent.Settings
	Payments []rent.Payment
	Notices  []notice.Record
	Region   string
	AsOf     time.Time
}

// facts are the tiering inputs.
type facts struct {
	balance     generic.Money
	daysOverdue int
	wdo         int
	active      int
	remedyLive  bool
}

// =============================================================================
// EVALUATE
// =============================================================================

// Evaluate computes the tenant's status at in.AsOf. Notices sent after
// AsOf are ignored so that past dates can be simulated.
func (e *Engine) Evaluate(in Input) TenantStatus {
	loc := e.law.Location()
	asOfDate := generic.DateIn(in.AsOf, loc)

	notices := e.knownNotices(in)
	status := TenantStatus{AsOf: asOfDate}

	ledger, err := rent.Calculate(in.Settings, in.Payments, asOfDate)
	var lp *rent.LedgerState
	if err != nil {
		status.Estimated = true
		status.Diagnostics = append(status.Diagnostics, generic.Diagnostic{
			Code:    generic.DiagInsufficientConfiguration,
			Message: err.Error() + "; status estimated from notices only",
		})
	} else {
		lp = &ledger
		status.Diagnostics = append(status.Diagnostics, ledger.Diagnostics...)
		status.Diagnostics = append(status.Diagnostics, noticeDiagnostics(in.Settings, notices)...)
	}

	// Strike memory
	active := ActiveStrikes(notices, e.law.StrikeWindow(asOfDate))
	status.ActiveStrikeCount = len(active)
	status.ActiveStrikes = summarize(active)

	// Ledger facts
	f := facts{active: len(active)}
	if lp != nil {
		status.Balance = ledger.CurrentBalance
		status.DaysOverdue = ledger.DaysOverdue
		next := ledger.NextDueDate
		status.NextDueDate = &next
		if ledger.OldestUnpaidDueDate != nil && ledger.DaysOverdue > 0 {
			oldest := *ledger.OldestUnpaidDueDate
			status.OldestUnpaidDueDate = &oldest
			status.WorkingDaysOverdue = e.law.Calendar().WorkingDaysBetween(oldest, asOfDate, in.Region)
		}
		f.balance = status.Balance
		f.daysOverdue = status.DaysOverdue
		f.wdo = status.WorkingDaysOverdue
	}

	remedies := e.remedies(notices, in.Payments, in.AsOf, asOfDate)
	for _, r := range remedies {
		if r.live() {
			f.remedyLive = true
		}
	}

	// Routes
	if r, ok := twentyOneDayRoute(lp); ok {
		status.TerminationRoutes = append(status.TerminationRoutes, r)
	}
	if r, ok := e.threeStrikesRoute(active, in.AsOf, asOfDate); ok {
		status.TerminationRoutes = append(status.TerminationRoutes, r)
	}
	status.TerminationRoutes = append(status.TerminationRoutes, unremediedBreachRoutes(remedies)...)

	status.SeverityTier, status.Label = classify(f)
	if status.Estimated {
		if status.SeverityTier == TierClear {
			status.Label = "balance unknown"
		}
		status.Label = "Estimated: " + status.Label
	}
	status.CatchUpRequired = f.wdo >= 15 && f.active < 2

	status.EligibleActions = e.actions(in, lp, notices, f, remedies, status.TerminationRoutes, asOfDate)
	return status
}

// knownNotices drops notices sent after AsOf, fills in a missing OSD and
// returns the rest in notice order. The caller's slice is not modified.
func (e *Engine) knownNotices(in Input) []notice.Record {
	out := make([]notice.Record, 0, len(in.Notices))
	for _, n := range in.Notices {
		if n.SentAt.After(in.AsOf) {
			continue
		}
		if n.OfficialServiceDate.IsZero() {
			n.OfficialServiceDate = e.law.OfficialServiceDate(n.SentAt, in.Region, n.Method)
		}
		out = append(out, n)
	}
	sortNotices(out)
	return out
}

// classify applies the tier table. First match wins.
func classify(f facts) (Tier, string) {
	switch {
	case f.daysOverdue >= 21 || f.active >= notice.StrikesToTerminate:
		return TierTermination, "Termination eligible"
	case !f.balance.IsPositive():
		return TierClear, "Paid up"
	case f.wdo >= 15:
		if f.active < 2 {
			return TierEscalation, fmt.Sprintf("Catch up: strike %d not issued", f.active+1)
		}
		return TierEscalation, "Strike 3 ready"
	case f.wdo >= 10:
		if f.active >= 1 {
			return TierEscalation, fmt.Sprintf("Strike %d ready", f.active+1)
		}
		return TierStrikeRequired, "Strike 1 required"
	case f.wdo >= 5:
		if f.active == 0 {
			return TierStrikeReady, "Strike 1 ready"
		}
		return TierStrikeRequired, fmt.Sprintf("Strike %d ready", f.active+1)
	case f.wdo >= 1:
		if f.remedyLive {
			return TierRemedy, "Remedy sent, monitoring"
		}
		return TierRemedy, "Remedy notice ready"
	default:
		return TierClear, "Not yet overdue"
	}
}

// =============================================================================
// ELIGIBLE ACTIONS
// =============================================================================

func (e *Engine) actions(in Input, ledger *rent.LedgerState, notices []notice.Record, f facts,
	remedies []remedyState, routes []Route, asOfDate generic.TimePoint) []Action {

	var out []Action

	if ledger != nil && f.active < notice.StrikesToTerminate &&
		!strikeSentOn(notices, asOfDate, e.law.Location()) {
		if occasion, ok := e.nextOccasion(*ledger, notices, in.Region); ok {
			out = append(out, Action{
				Kind:         ActionIssueStrike,
				StrikeNumber: f.active + 1,
				Occasion:     &occasion,
				CatchUp:      f.wdo >= 15 && f.active < 2,
			})
		}
	}

	if ledger != nil && ledger.DaysOverdue > 0 && !f.remedyLive {
		out = append(out, Action{Kind: ActionIssueRemedy})
	}

	for _, r := range remedies {
		if !r.live() {
			continue
		}
		d := r.expiry.Date
		out = append(out, Action{Kind: ActionMonitorRemedy, NoticeID: r.record.ID, Deadline: &d})
	}

	for _, r := range routes {
		out = append(out, Action{Kind: ActionApplyTribunal, Route: r.Kind, Deadline: r.Deadline})
	}
	return out
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// noticeDiagnostics reports notices that predate tracking start and
// recorded due dates that are no longer on the schedule. Recorded dates
// are kept as they are.
func noticeDiagnostics(settings rent.Settings, notices []notice.Record) []generic.Diagnostic {
	var diags []generic.Diagnostic
	var recorded []generic.TimePoint
	var refs []string

	for _, n := range notices {
		if n.OfficialServiceDate.Before(settings.TrackingStart) {
			diags = append(diags, generic.Diagnostic{
				Code:    generic.DiagBeforeTrackingStart,
				Message: fmt.Sprintf("%s notice predates tracking start %s", n.Type, settings.TrackingStart),
				Date:    n.OfficialServiceDate,
				Ref:     n.ID,
			})
		}
		if n.Type == notice.Strike && !n.DueDateForOccasion.IsZero() {
			recorded = append(recorded, n.DueDateForOccasion)
			refs = append(refs, n.ID)
		}
		if n.Type == notice.Remedy && n.Snapshot != nil {
			for _, l := range n.Snapshot.Lines() {
				if l.LineID == rent.OpeningArrearsLineID {
					continue
				}
				recorded = append(recorded, l.DueDate)
				refs = append(refs, n.ID)
			}
		}
		if n.Type == notice.Remedy && n.Snapshot == nil {
			diags = append(diags, generic.Diagnostic{
				Code:    generic.DiagMissingSnapshot,
				Message: "remedy notice has no debt snapshot and cannot be assessed",
				Date:    n.OfficialServiceDate,
				Ref:     n.ID,
			})
		}
	}

	diags = append(diags, rent.SettingsDrift(settings, recorded, func(i int) string { return refs[i] })...)
	return diags
}
