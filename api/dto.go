/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's value types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

FORMATS:
  - Money is a decimal string with two places ("500.00"); negative is credit
  - Dates are YYYY-MM-DD in the jurisdiction's civil calendar
  - Instants (sent_at) are RFC 3339

VALIDATION:
  Validation is done in handlers and the service, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - compliance/status.go: TenantStatus
*/
package api

import (
	"time"

	"github.com/warp/tenancy-engine/compliance"
	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/rent"
	"github.com/warp/tenancy-engine/tenancy"
)

// =============================================================================
// TENANTS
// =============================================================================

type TenantDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Region         string `json:"region,omitempty"`
	Frequency      string `json:"frequency,omitempty"`
	RentAmount     string `json:"rent_amount"`
	DueDay         string `json:"due_day,omitempty"`
	TrackingStart  string `json:"tracking_start,omitempty"`
	OpeningArrears string `json:"opening_arrears"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// CreateTenantRequest is the request to create a tenant. Rent fields are
// optional; without them the status is estimated from notices.
type CreateTenantRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Region         string `json:"region"`
	Frequency      string `json:"frequency"`
	RentAmount     string `json:"rent_amount"`
	DueDay         string `json:"due_day"`
	TrackingStart  string `json:"tracking_start"`
	OpeningArrears string `json:"opening_arrears"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

type RecordPaymentRequest struct {
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Reference string `json:"reference,omitempty"`
}

type PaymentDTO struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Reference string `json:"reference,omitempty"`
}

// =============================================================================
// LEDGER
// =============================================================================

type LedgerLineDTO struct {
	ID          string `json:"id"`
	DueDate     string `json:"due_date,omitempty"`
	Amount      string `json:"amount"`
	Paid        string `json:"paid"`
	Outstanding string `json:"outstanding"`
}

type LedgerDTO struct {
	AsOf                string          `json:"as_of"`
	FirstDueDate        string          `json:"first_due_date"`
	NextDueDate         string          `json:"next_due_date"`
	CyclesElapsed       int             `json:"cycles_elapsed"`
	TotalDue            string          `json:"total_due"`
	TotalPaid           string          `json:"total_paid"`
	CurrentBalance      string          `json:"current_balance"`
	OldestUnpaidDueDate string          `json:"oldest_unpaid_due_date,omitempty"`
	DaysOverdue         int             `json:"days_overdue"`
	Lines               []LedgerLineDTO `json:"lines"`
	Diagnostics         []DiagnosticDTO `json:"diagnostics,omitempty"`
}

type DiagnosticDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Date    string `json:"date,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

// =============================================================================
// STATUS
// =============================================================================

type StrikeDTO struct {
	NoticeID            string `json:"notice_id"`
	Type                string `json:"type"`
	Number              int    `json:"number"`
	OfficialServiceDate string `json:"official_service_date"`
	Occasion            string `json:"occasion,omitempty"`
	ActiveUntil         string `json:"active_until"`
}

type ActionDTO struct {
	Kind         string `json:"kind"`
	StrikeNumber int    `json:"strike_number,omitempty"`
	Occasion     string `json:"occasion,omitempty"`
	CatchUp      bool   `json:"catch_up,omitempty"`
	NoticeID     string `json:"notice_id,omitempty"`
	Deadline     string `json:"deadline,omitempty"`
	Route        string `json:"route,omitempty"`
}

type RouteDTO struct {
	Kind          string   `json:"kind"`
	Deadline      string   `json:"deadline,omitempty"`
	DaysRemaining int      `json:"days_remaining,omitempty"`
	NoticeIDs     []string `json:"notice_ids,omitempty"`
	Outstanding   string   `json:"outstanding,omitempty"`
}

type StatusDTO struct {
	TenantID            string          `json:"tenant_id"`
	AsOf                string          `json:"as_of"`
	SeverityTier        int             `json:"severity_tier"`
	Label               string          `json:"label"`
	WorkingDaysOverdue  int             `json:"working_days_overdue"`
	DaysOverdue         int             `json:"days_overdue"`
	Balance             string          `json:"balance"`
	OldestUnpaidDueDate string          `json:"oldest_unpaid_due_date,omitempty"`
	NextDueDate         string          `json:"next_due_date,omitempty"`
	ActiveStrikeCount   int             `json:"active_strike_count"`
	ActiveStrikes       []StrikeDTO     `json:"active_strikes"`
	EligibleActions     []ActionDTO     `json:"eligible_actions"`
	TerminationRoutes   []RouteDTO      `json:"termination_routes"`
	TerminationEligible bool            `json:"termination_eligible"`
	CatchUpRequired     bool            `json:"catch_up_required"`
	Estimated           bool            `json:"estimated"`
	Diagnostics         []DiagnosticDTO `json:"diagnostics,omitempty"`
}

// =============================================================================
// NOTICES
// =============================================================================

type IssueNoticeRequest struct {
	Type     string `json:"type"`
	Method   string `json:"method"`
	SentAt   string `json:"sent_at,omitempty"`  // RFC 3339; now when empty
	Occasion string `json:"occasion,omitempty"` // strikes: rent due date addressed
}

type SnapshotLineDTO struct {
	LineID  string `json:"line_id"`
	DueDate string `json:"due_date,omitempty"`
	Amount  string `json:"amount"`
}

type SnapshotDTO struct {
	TakenAt string            `json:"taken_at"`
	Total   string            `json:"total"`
	Lines   []SnapshotLineDTO `json:"lines"`
}

type NoticeDTO struct {
	ID                  string       `json:"id"`
	TenantID            string       `json:"tenant_id"`
	Type                string       `json:"type"`
	StrikeNumber        int          `json:"strike_number,omitempty"`
	Method              string       `json:"method"`
	SentAt              string       `json:"sent_at"`
	OfficialServiceDate string       `json:"official_service_date"`
	Occasion            string       `json:"occasion,omitempty"`
	Snapshot            *SnapshotDTO `json:"snapshot,omitempty"`
	RemedyExpiry        string       `json:"remedy_expiry,omitempty"`
	FilingDeadline      string       `json:"filing_deadline,omitempty"`
}

// =============================================================================
// CALENDAR
// =============================================================================

type HolidayDTO struct {
	Date   string `json:"date"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

type WorkingDaysDTO struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Region      string `json:"region,omitempty"`
	WorkingDays int    `json:"working_days"`
}

type ServiceDateDTO struct {
	SentAt              string `json:"sent_at"`
	Method              string `json:"method"`
	Region              string `json:"region,omitempty"`
	OfficialServiceDate string `json:"official_service_date"`
	RemedyExpiry        string `json:"remedy_expiry"`
	FilingDeadline      string `json:"filing_deadline"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func dateString(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}

func datePtrString(tp *generic.TimePoint) string {
	if tp == nil {
		return ""
	}
	return dateString(*tp)
}

func toTenantDTO(t generic.TenantRecord) TenantDTO {
	dto := TenantDTO{
		ID:             string(t.ID),
		Name:           t.Name,
		Region:         t.Region,
		Frequency:      t.Frequency,
		RentAmount:     t.RentAmount.String(),
		DueDay:         t.DueDay,
		TrackingStart:  dateString(t.TrackingStart),
		OpeningArrears: t.OpeningArrears.String(),
	}
	if !t.CreatedAt.IsZero() {
		dto.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPaymentDTO(p generic.PaymentRecord) PaymentDTO {
	return PaymentDTO{
		ID:        p.ID,
		TenantID:  string(p.TenantID),
		Amount:    p.Amount.String(),
		Date:      dateString(p.Date),
		Reference: p.Reference,
	}
}

func toDiagnosticDTOs(ds []generic.Diagnostic) []DiagnosticDTO {
	if len(ds) == 0 {
		return nil
	}
	out := make([]DiagnosticDTO, len(ds))
	for i, d := range ds {
		out[i] = DiagnosticDTO{Code: string(d.Code), Message: d.Message, Date: dateString(d.Date), Ref: d.Ref}
	}
	return out
}

func toLedgerDTO(s rent.LedgerState) LedgerDTO {
	lines := make([]LedgerLineDTO, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = LedgerLineDTO{
			ID:          l.ID,
			DueDate:     dateString(l.DueDate),
			Amount:      l.Amount.String(),
			Paid:        l.Paid.String(),
			Outstanding: l.Outstanding.String(),
		}
	}
	return LedgerDTO{
		AsOf:                dateString(s.AsOf),
		FirstDueDate:        dateString(s.FirstDueDate),
		NextDueDate:         dateString(s.NextDueDate),
		CyclesElapsed:       s.CyclesElapsed,
		TotalDue:            s.TotalDue.String(),
		TotalPaid:           s.TotalPaid.String(),
		CurrentBalance:      s.CurrentBalance.String(),
		OldestUnpaidDueDate: datePtrString(s.OldestUnpaidDueDate),
		DaysOverdue:         s.DaysOverdue,
		Lines:               lines,
		Diagnostics:         toDiagnosticDTOs(s.Diagnostics),
	}
}

func toStatusDTO(id generic.TenantID, s compliance.TenantStatus) StatusDTO {
	dto := StatusDTO{
		TenantID:            string(id),
		AsOf:                dateString(s.AsOf),
		SeverityTier:        int(s.SeverityTier),
		Label:               s.Label,
		WorkingDaysOverdue:  s.WorkingDaysOverdue,
		DaysOverdue:         s.DaysOverdue,
		Balance:             s.Balance.String(),
		OldestUnpaidDueDate: datePtrString(s.OldestUnpaidDueDate),
		NextDueDate:         datePtrString(s.NextDueDate),
		ActiveStrikeCount:   s.ActiveStrikeCount,
		ActiveStrikes:       make([]StrikeDTO, 0, len(s.ActiveStrikes)),
		EligibleActions:     make([]ActionDTO, 0, len(s.EligibleActions)),
		TerminationRoutes:   make([]RouteDTO, 0, len(s.TerminationRoutes)),
		TerminationEligible: s.TerminationEligible(),
		CatchUpRequired:     s.CatchUpRequired,
		Estimated:           s.Estimated,
		Diagnostics:         toDiagnosticDTOs(s.Diagnostics),
	}
	for _, st := range s.ActiveStrikes {
		dto.ActiveStrikes = append(dto.ActiveStrikes, StrikeDTO{
			NoticeID:            st.NoticeID,
			Type:                string(st.Type),
			Number:              st.Number,
			OfficialServiceDate: dateString(st.OfficialServiceDate),
			Occasion:            dateString(st.Occasion),
			ActiveUntil:         dateString(st.ActiveUntil),
		})
	}
	for _, a := range s.EligibleActions {
		dto.EligibleActions = append(dto.EligibleActions, ActionDTO{
			Kind:         string(a.Kind),
			StrikeNumber: a.StrikeNumber,
			Occasion:     datePtrString(a.Occasion),
			CatchUp:      a.CatchUp,
			NoticeID:     a.NoticeID,
			Deadline:     datePtrString(a.Deadline),
			Route:        string(a.Route),
		})
	}
	for _, r := range s.TerminationRoutes {
		rd := RouteDTO{
			Kind:          string(r.Kind),
			Deadline:      datePtrString(r.Deadline),
			DaysRemaining: r.DaysRemaining,
			NoticeIDs:     r.NoticeIDs,
		}
		if r.Kind == compliance.RouteUnremediedBreach {
			rd.Outstanding = r.Outstanding.String()
		}
		dto.TerminationRoutes = append(dto.TerminationRoutes, rd)
	}
	return dto
}

func toNoticeDTO(n *tenancy.IssuedNotice) NoticeDTO {
	rec := n.Notice
	dto := NoticeDTO{
		ID:                  rec.ID,
		TenantID:            string(n.TenantID),
		Type:                string(rec.Type),
		StrikeNumber:        rec.StrikeNumber,
		Method:              string(rec.Method),
		SentAt:              rec.SentAt.Format(time.RFC3339),
		OfficialServiceDate: dateString(rec.OfficialServiceDate),
		Occasion:            dateString(rec.DueDateForOccasion),
		RemedyExpiry:        datePtrString(n.RemedyExpiry),
		FilingDeadline:      datePtrString(n.FilingDeadline),
	}
	if rec.Snapshot != nil {
		dto.Snapshot = toSnapshotDTO(rec.Snapshot)
	}
	return dto
}

func toSnapshotDTO(s *notice.DebtSnapshot) *SnapshotDTO {
	lines := s.Lines()
	dto := &SnapshotDTO{
		TakenAt: dateString(s.TakenAt()),
		Total:   s.Total().String(),
		Lines:   make([]SnapshotLineDTO, len(lines)),
	}
	for i, l := range lines {
		dto.Lines[i] = SnapshotLineDTO{LineID: l.LineID, DueDate: dateString(l.DueDate), Amount: l.Amount.String()}
	}
	return dto
}
