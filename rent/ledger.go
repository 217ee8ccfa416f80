/*
ledger.go - Rent ledger calculation

PURPOSE:
  Turns rent settings and a sparse list of payments into the tenant's
  position at an explicit as-of date: what has fallen due, what has been
  paid, the balance, and how long the oldest unpaid rent has been owed.

KEY INSIGHT:
  The ledger is never stored or patched. It is replayed from the settings
  and the full payment list on every call, so the same inputs always give
  the same result and a "simulate as of" date is just a different asOf.

ALLOCATION (FIFO):
  Obligations are ordered: the opening-arrears line first, then one line
  per elapsed due date. Payments, sorted by date, fill the oldest line
  first. A due date is "covered" once cumulative payments reach its
  cumulative obligation.

  Weekly $500 from Wed 1 Jan 2025, $700 paid, as of 22 Jan:
    opening   0.00   paid   0.00
    01-01   500.00   paid 500.00
    01-08   500.00   paid 200.00   <- oldest unpaid
    01-15   500.00   paid   0.00
    01-22   500.00   paid   0.00   (due today, not yet overdue)

OVERDUE:
  OldestUnpaidDueDate is the first uncovered due date strictly before asOf.
  DaysOverdue counts calendar days from it to asOf, and is 0 whenever the
  balance is money-zero or in credit.

SEE ALSO:
  - schedule.go: Due date generation
  - notice/snapshot.go: Freezes unpaid lines for a remedy notice
*/
package rent

import (
	"fmt"
	"sort"

	"github.com/warp/tenancy-engine/generic"
)

// OpeningArrearsLineID identifies the opening-arrears obligation.
const OpeningArrearsLineID = "opening-arrears"

// Payment is a credited payment.
type Payment struct {
	ID     string
	Amount generic.Money
	Date   generic.TimePoint
}

// Line is one obligation and how much of it has been paid.
type Line struct {
	ID          string            `json:"id"`
	DueDate     generic.TimePoint `json:"due_date"`
	Amount      generic.Money     `json:"amount"`
	Paid        generic.Money     `json:"paid"`
	Outstanding generic.Money     `json:"outstanding"`
}

// LineID is the stable identifier of the rent line due on date.
func LineID(due generic.TimePoint) string {
	return "rent-" + due.String()
}

// LedgerState is the derived position at AsOf.
type LedgerState struct {
	AsOf                generic.TimePoint
	FirstDueDate        generic.TimePoint
	NextDueDate         generic.TimePoint
	CyclesElapsed       int
	TotalDue            generic.Money
	TotalPaid           generic.Money
	CurrentBalance      generic.Money // negative is credit
	OldestUnpaidDueDate *generic.TimePoint
	DaysOverdue         int
	Lines               []Line
	Diagnostics         []generic.Diagnostic
}

// IsOverdue is true when some rent due before AsOf is unpaid.
func (s LedgerState) IsOverdue() bool {
	return s.DaysOverdue > 0
}

// UnpaidLines returns lines with money outstanding that fell due before
// AsOf, oldest first. The opening-arrears line is included when unpaid.
func (s LedgerState) UnpaidLines() []Line {
	var out []Line
	for _, l := range s.Lines {
		if !l.Outstanding.IsPositive() {
			continue
		}
		if l.ID != OpeningArrearsLineID && !l.DueDate.Before(s.AsOf) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// =============================================================================
// CALCULATE
// =============================================================================

// Calculate computes the ledger at asOf. It returns a *generic.ConfigError
// when the settings are too incomplete to compute a balance; it never
// guesses a missing field.
func Calculate(settings Settings, payments []Payment, asOf generic.TimePoint) (LedgerState, error) {
	if err := settings.Validate(); err != nil {
		return LedgerState{}, err
	}
	schedule, err := NewSchedule(settings)
	if err != nil {
		return LedgerState{}, err
	}

	state := LedgerState{
		AsOf:         asOf,
		FirstDueDate: schedule.FirstDueDate(),
		NextDueDate:  schedule.FindNextDueDateAfter(asOf, schedule.FirstDueDate()),
	}

	// Obligations
	dueDates := schedule.DueDatesThrough(asOf)
	state.CyclesElapsed = schedule.CyclesElapsed(asOf)
	state.TotalDue = settings.RentAmount.Mul(state.CyclesElapsed).Add(settings.OpeningArrears)

	lines := make([]Line, 0, len(dueDates)+1)
	if settings.OpeningArrears.IsPositive() {
		lines = append(lines, Line{
			ID:      OpeningArrearsLineID,
			DueDate: settings.TrackingStart,
			Amount:  settings.OpeningArrears,
		})
	}
	for _, d := range dueDates {
		lines = append(lines, Line{ID: LineID(d), DueDate: d, Amount: settings.RentAmount})
	}

	// Payments
	credited, diags := creditedPayments(payments, settings.TrackingStart, asOf)
	state.Diagnostics = diags
	for _, p := range credited {
		state.TotalPaid = state.TotalPaid.Add(p.Amount)
	}
	state.CurrentBalance = state.TotalDue.Sub(state.TotalPaid)

	allocate(lines, state.TotalPaid)
	state.Lines = lines

	// Oldest unpaid due date strictly before asOf
	for _, l := range lines {
		if l.ID == OpeningArrearsLineID || !l.DueDate.Before(asOf) {
			continue
		}
		if l.Outstanding.IsPositive() {
			d := l.DueDate
			state.OldestUnpaidDueDate = &d
			break
		}
	}

	if state.OldestUnpaidDueDate != nil && state.CurrentBalance.IsPositive() {
		state.DaysOverdue = generic.DaysBetween(*state.OldestUnpaidDueDate, asOf)
	}

	return state, nil
}

// creditedPayments drops payments after asOf and non-positive amounts,
// then stably sorts by date.
func creditedPayments(payments []Payment, trackingStart, asOf generic.TimePoint) ([]Payment, []generic.Diagnostic) {
	var diags []generic.Diagnostic
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if p.Date.After(asOf) {
			continue
		}
		if !p.Amount.IsPositive() {
			diags = append(diags, generic.Diagnostic{
				Code:    generic.DiagInvalidPayment,
				Message: fmt.Sprintf("payment of %s ignored", p.Amount),
				Date:    p.Date,
				Ref:     p.ID,
			})
			continue
		}
		if p.Date.Before(trackingStart) {
			diags = append(diags, generic.Diagnostic{
				Code:    generic.DiagBeforeTrackingStart,
				Message: fmt.Sprintf("payment of %s predates tracking start %s", p.Amount, trackingStart),
				Date:    p.Date,
				Ref:     p.ID,
			})
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, diags
}

// allocate fills lines oldest first with paid. Any surplus is credit and
// stays on the balance, not on a line.
func allocate(lines []Line, paid generic.Money) {
	remaining := paid
	for i := range lines {
		applied := lines[i].Amount.Min(remaining)
		if applied.IsNegative() {
			applied = 0
		}
		lines[i].Paid = applied
		lines[i].Outstanding = lines[i].Amount.Sub(applied)
		remaining = remaining.Sub(applied)
	}
}

// SettingsDrift reports recorded due dates that are not on the schedule of
// the current settings. Recorded dates are kept as they are.
func SettingsDrift(settings Settings, recorded []generic.TimePoint, ref func(int) string) []generic.Diagnostic {
	schedule, err := NewSchedule(settings)
	if err != nil {
		return nil
	}
	var diags []generic.Diagnostic
	for i, d := range recorded {
		if d.IsZero() || schedule.IsDueDate(d) {
			continue
		}
		r := ""
		if ref != nil {
			r = ref(i)
		}
		diags = append(diags, generic.Diagnostic{
			Code:    generic.DiagSettingDrift,
			Message: fmt.Sprintf("recorded due date %s is not on the current %s schedule", d, settings.Frequency),
			Date:    d,
			Ref:     r,
		})
	}
	return diags
}
