package notice

import (
	"encoding/json"
	"fmt"

	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/rent"
)

// =============================================================================
// DEBT SNAPSHOT - The debt a remedy notice names
// =============================================================================

// SnapshotLine is one unpaid ledger line as it stood when the notice was
// issued.
type SnapshotLine struct {
	LineID  string            `json:"line_id"`
	DueDate generic.TimePoint `json:"due_date"`
	Amount  generic.Money     `json:"amount_cents"`
}

// DebtSnapshot is immutable after TakeSnapshot. Accessors return copies.
//
// Payments credited after the snapshot are applied oldest line first, so
// a tenant who clears the named debt remedies the notice even when newer
// rent has since fallen due.
type DebtSnapshot struct {
	takenAt   generic.TimePoint
	paidSoFar generic.Money
	lines     []SnapshotLine
	total     generic.Money
}

// TakeSnapshot freezes the unpaid lines of ledger. It returns
// generic.ErrNothingOwed when no rent due before the ledger date is unpaid.
func TakeSnapshot(ledger rent.LedgerState) (*DebtSnapshot, error) {
	unpaid := ledger.UnpaidLines()
	if len(unpaid) == 0 {
		return nil, fmt.Errorf("snapshot at %s: %w", ledger.AsOf, generic.ErrNothingOwed)
	}

	s := &DebtSnapshot{
		takenAt:   ledger.AsOf,
		paidSoFar: ledger.TotalPaid,
		lines:     make([]SnapshotLine, 0, len(unpaid)),
	}
	for _, l := range unpaid {
		s.lines = append(s.lines, SnapshotLine{LineID: l.ID, DueDate: l.DueDate, Amount: l.Outstanding})
		s.total = s.total.Add(l.Outstanding)
	}
	return s, nil
}

func (s *DebtSnapshot) TakenAt() generic.TimePoint { return s.takenAt }
func (s *DebtSnapshot) Total() generic.Money       { return s.total }

// PaidAtSnapshot is the ledger's total paid when the snapshot was taken.
func (s *DebtSnapshot) PaidAtSnapshot() generic.Money { return s.paidSoFar }

func (s *DebtSnapshot) Lines() []SnapshotLine {
	out := make([]SnapshotLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// DueDates lists the due dates the snapshot names.
func (s *DebtSnapshot) DueDates() []generic.TimePoint {
	out := make([]generic.TimePoint, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, l.DueDate)
	}
	return out
}

// creditedSince sums payments dated on or before asOf and subtracts what
// had already been paid at snapshot time.
func (s *DebtSnapshot) creditedSince(payments []rent.Payment, asOf generic.TimePoint) generic.Money {
	var paid generic.Money
	for _, p := range payments {
		if p.Date.After(asOf) || !p.Amount.IsPositive() {
			continue
		}
		paid = paid.Add(p.Amount)
	}
	credited := paid.Sub(s.paidSoFar)
	if credited.IsNegative() {
		return 0
	}
	return credited
}

// LineOutstanding applies payments made since the snapshot to its lines,
// oldest first, and returns what each line still owes at asOf.
func (s *DebtSnapshot) LineOutstanding(payments []rent.Payment, asOf generic.TimePoint) []SnapshotLine {
	remaining := s.creditedSince(payments, asOf)
	out := s.Lines()
	for i := range out {
		applied := out[i].Amount.Min(remaining)
		out[i].Amount = out[i].Amount.Sub(applied)
		remaining = remaining.Sub(applied)
	}
	return out
}

// Outstanding is the part of the named debt still unpaid at asOf.
func (s *DebtSnapshot) Outstanding(payments []rent.Payment, asOf generic.TimePoint) generic.Money {
	remaining := s.total.Sub(s.creditedSince(payments, asOf))
	if remaining.IsNegative() {
		return 0
	}
	return remaining
}

// Remedied is true once the named debt is money-zero.
func (s *DebtSnapshot) Remedied(payments []rent.Payment, asOf generic.TimePoint) bool {
	return !s.Outstanding(payments, asOf).IsPositive()
}

// =============================================================================
// SERIALIZATION
// =============================================================================

type snapshotJSON struct {
	TakenAt        generic.TimePoint `json:"taken_at"`
	PaidAtSnapshot generic.Money     `json:"paid_at_snapshot_cents"`
	Total          generic.Money     `json:"total_cents"`
	Lines          []SnapshotLine    `json:"lines"`
}

func (s *DebtSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		TakenAt:        s.takenAt,
		PaidAtSnapshot: s.paidSoFar,
		Total:          s.total,
		Lines:          s.lines,
	})
}

// UnmarshalJSON restores a persisted snapshot. The stored total must match
// its lines.
func (s *DebtSnapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode debt snapshot: %w", err)
	}
	var sum generic.Money
	for _, l := range raw.Lines {
		sum = sum.Add(l.Amount)
	}
	if sum != raw.Total {
		return fmt.Errorf("debt snapshot total %s does not match lines %s: %w", raw.Total, sum, generic.ErrInvalidInput)
	}
	*s = DebtSnapshot{
		takenAt:   raw.TakenAt,
		paidSoFar: raw.PaidAtSnapshot,
		lines:     raw.Lines,
		total:     raw.Total,
	}
	return nil
}
