/*
Package tenancy is the application service around the compliance engine.

PURPOSE:
  The engine is pure: it neither reads nor writes. This service does both.
  It loads a consistent snapshot of a tenant from the store, hands plain
  values to the engine, and records payments and notices only when the
  engine says they are permitted.

REQUEST FLOW (IssueNotice):
  1. Load tenant, payments and notices in one read
  2. Evaluate the status at the send instant
  3. Compute the OSD through notice.Law
  4. Strikes: validate the occasion and same-day rule, check eligibility
     Remedy: freeze a DebtSnapshot from the ledger at the send date
  5. Append the notice with its computed dates

CLOCK:
  The service owns "now" (WithClock). Every engine call receives it as an
  explicit as-of value; nothing below this package reads a clock.

SEE ALSO:
  - compliance/: The state machine
  - generic/store.go: Persistence interface
  - api/: HTTP surface
*/
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/tenancy-engine/calendar"
	"github.com/warp/tenancy-engine/compliance"
	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/rent"
)

// Service orchestrates tenants, payments and notices.
type Service struct {
	store   generic.Store
	engine  *compliance.Engine
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
	region  string
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock replaces time.Now, for tests and what-if runs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithDefaultRegion applies to tenants created without a region.
func WithDefaultRegion(region string) Option {
	return func(s *Service) {
		s.region = calendar.NormalizeRegion(region)
	}
}

func New(store generic.Store, engine *compliance.Engine, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = compliance.NewEngine(nil)
	}
	return s
}

func (s *Service) Engine() *compliance.Engine { return s.engine }
func (s *Service) Metrics() *Metrics          { return s.metrics }
func (s *Service) Now() time.Time             { return s.now() }

func (s *Service) asOf(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return s.now()
	}
	return *t
}

// =============================================================================
// TENANTS
// =============================================================================

// TenantInput is the settings a tenant is created with. Rent fields may be
// left empty; the status is then estimated from notices only.
type TenantInput struct {
	ID             generic.TenantID
	Name           string
	Region         string
	Frequency      string
	RentAmount     generic.Money
	DueDay         string
	TrackingStart  generic.TimePoint
	OpeningArrears generic.Money
}

func (s *Service) CreateTenant(ctx context.Context, in TenantInput) (*generic.TenantRecord, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("tenant name required: %w", generic.ErrInvalidInput)
	}
	freq, err := rent.ParseFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}
	if in.RentAmount.IsNegative() || in.OpeningArrears.IsNegative() {
		return nil, fmt.Errorf("amounts cannot be negative: %w", generic.ErrInvalidInput)
	}
	region := calendar.NormalizeRegion(in.Region)
	if region == "" {
		region = s.region
	}
	if region != "" && !calendar.KnownRegion(region) {
		s.logger.WarnContext(ctx, "unknown region, national holidays only", "region", region)
	}

	settings := rent.Settings{Frequency: freq, DueDay: in.DueDay, TrackingStart: in.TrackingStart}
	if freq != "" && strings.TrimSpace(in.DueDay) != "" && !in.TrackingStart.IsZero() {
		if _, err := rent.NewSchedule(settings); err != nil {
			return nil, fmt.Errorf("%v: %w", err, generic.ErrInvalidInput)
		}
	}

	id := in.ID
	if id == "" {
		id = generic.TenantID(uuid.NewString())
	}
	t := generic.TenantRecord{
		ID:             id,
		Name:           name,
		Region:         region,
		Frequency:      string(freq),
		RentAmount:     in.RentAmount,
		DueDay:         strings.TrimSpace(in.DueDay),
		TrackingStart:  in.TrackingStart,
		OpeningArrears: in.OpeningArrears,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.SaveTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("save tenant: %w", err)
	}
	s.logger.InfoContext(ctx, "tenant created", "tenant_id", t.ID, "region", t.Region)
	return &t, nil
}

func (s *Service) GetTenant(ctx context.Context, id generic.TenantID) (*generic.TenantRecord, error) {
	return s.store.GetTenant(ctx, id)
}

func (s *Service) ListTenants(ctx context.Context) ([]generic.TenantRecord, error) {
	return s.store.ListTenants(ctx)
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentInput struct {
	Amount    generic.Money
	Date      generic.TimePoint
	Reference string
}

// RecordPayment appends a payment. Amounts must be positive.
func (s *Service) RecordPayment(ctx context.Context, id generic.TenantID, in PaymentInput) (*generic.PaymentRecord, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive: %w", generic.ErrInvalidInput)
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("payment date required: %w", generic.ErrInvalidInput)
	}
	if _, err := s.store.GetTenant(ctx, id); err != nil {
		return nil, err
	}

	p := generic.PaymentRecord{
		ID:        uuid.NewString(),
		TenantID:  id,
		Amount:    in.Amount,
		Date:      in.Date,
		Reference: in.Reference,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AppendPayment(ctx, p); err != nil {
		return nil, fmt.Errorf("append payment: %w", err)
	}
	s.metrics.IncrementPaymentRecorded()
	s.logger.InfoContext(ctx, "payment recorded",
		"tenant_id", id, "amount", p.Amount.String(), "date", p.Date.String())
	return &p, nil
}

func (s *Service) Payments(ctx context.Context, id generic.TenantID) ([]generic.PaymentRecord, error) {
	if _, err := s.store.GetTenant(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Payments(ctx, id)
}

// =============================================================================
// LEDGER AND STATUS
// =============================================================================

// Ledger returns the rent ledger at asOf (now when nil).
func (s *Service) Ledger(ctx context.Context, id generic.TenantID, asOf *time.Time) (rent.LedgerState, error) {
	snap, err := s.store.LoadSnapshot(ctx, id)
	if err != nil {
		return rent.LedgerState{}, err
	}
	date := generic.DateIn(s.asOf(asOf), s.engine.Law().Location())
	return rent.Calculate(Settings(snap.Tenant), Payments(snap.Payments), date)
}

// Status evaluates the tenant at asOf (now when nil).
func (s *Service) Status(ctx context.Context, id generic.TenantID, asOf *time.Time) (compliance.TenantStatus, error) {
	start := time.Now()
	snap, err := s.store.LoadSnapshot(ctx, id)
	if err != nil {
		return compliance.TenantStatus{}, err
	}
	in, err := s.input(snap, s.asOf(asOf))
	if err != nil {
		return compliance.TenantStatus{}, err
	}

	status := s.engine.Evaluate(in)
	s.metrics.ObserveEvaluation(status.SeverityTier, start)
	if len(status.Diagnostics) > 0 {
		s.logger.DebugContext(ctx, "status diagnostics",
			"tenant_id", id, "count", len(status.Diagnostics), "first", status.Diagnostics[0].String())
	}
	return status, nil
}

func (s *Service) input(snap *generic.TenantSnapshot, asOf time.Time) (compliance.Input, error) {
	notices, err := Notices(snap.Notices)
	if err != nil {
		return compliance.Input{}, err
	}
	return compliance.Input{
		Settings: Settings(snap.Tenant),
		Payments: Payments(snap.Payments),
		Notices:  notices,
		Region:   snap.Tenant.Region,
		AsOf:     asOf,
	}, nil
}

// =============================================================================
// NOTICES
// =============================================================================

type NoticeRequest struct {
	TenantID generic.TenantID
	Type     notice.Type
	Method   notice.Method
	SentAt   *time.Time         // now when nil
	Occasion *generic.TimePoint // strikes; defaults to the next eligible occasion
}

// IssuedNotice is a recorded notice with its statutory dates.
type IssuedNotice struct {
	TenantID       generic.TenantID
	Notice         notice.Record
	RemedyExpiry   *generic.TimePoint
	FilingDeadline *generic.TimePoint // set when the strike completes a triad
}

// Notices returns the tenant's notices in send order with their statutory
// dates.
func (s *Service) Notices(ctx context.Context, id generic.TenantID) ([]IssuedNotice, error) {
	snap, err := s.store.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := Notices(snap.Notices)
	if err != nil {
		return nil, err
	}
	law := s.engine.Law()
	out := make([]IssuedNotice, 0, len(records))
	for _, rec := range records {
		issued := IssuedNotice{TenantID: id, Notice: rec}
		switch {
		case rec.Type == notice.Remedy:
			d := law.RemedyExpiryDate(rec.OfficialServiceDate)
			issued.RemedyExpiry = &d
		case rec.Type.IsStrike() && rec.StrikeNumber == notice.StrikesToTerminate:
			d := law.TribunalFilingDeadline(rec.OfficialServiceDate)
			issued.FilingDeadline = &d
		}
		out = append(out, issued)
	}
	return out, nil
}

// IssueNotice records a notice if the law permits it at the send instant.
// Refusals are *generic.RuleViolation; a remedy notice with nothing owed
// returns generic.ErrNothingOwed.
func (s *Service) IssueNotice(ctx context.Context, req NoticeRequest) (*IssuedNotice, error) {
	issued, err := s.issueNotice(ctx, req)
	if err != nil {
		if reason := rejectionReason(err); reason != "" {
			s.metrics.IncrementNoticeRejected(reason)
			s.logger.InfoContext(ctx, "notice refused",
				"tenant_id", req.TenantID, "type", req.Type, "reason", reason, "error", err)
		}
		return nil, err
	}
	s.metrics.IncrementNoticeIssued(string(issued.Notice.Type))
	s.logger.InfoContext(ctx, "notice recorded",
		"tenant_id", req.TenantID,
		"notice_id", issued.Notice.ID,
		"type", issued.Notice.Type,
		"osd", issued.Notice.OfficialServiceDate.String())
	return issued, nil
}

func (s *Service) issueNotice(ctx context.Context, req NoticeRequest) (*IssuedNotice, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("notice type required: %w", generic.ErrInvalidInput)
	}
	if req.Method == "" {
		req.Method = notice.Email
	}

	snap, err := s.store.LoadSnapshot(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	sentAt := s.asOf(req.SentAt)
	in, err := s.input(snap, sentAt)
	if err != nil {
		return nil, err
	}

	law := s.engine.Law()
	status := s.engine.Evaluate(in)
	rec := notice.Record{
		ID:                  uuid.NewString(),
		Type:                req.Type,
		SentAt:              sentAt,
		Method:              req.Method,
		OfficialServiceDate: law.OfficialServiceDate(sentAt, snap.Tenant.Region, req.Method),
	}
	out := &IssuedNotice{TenantID: req.TenantID}

	if req.Type.IsStrike() {
		if last, ok := latestStrike(in.Notices); ok && last.SentAt.After(sentAt) {
			return nil, &generic.RuleViolation{
				Rule:    generic.ErrNotEligible,
				Action:  string(compliance.ActionIssueStrike),
				Message: fmt.Sprintf("strike %s was sent later, at %s", last.ID, last.SentAt.Format(time.RFC3339)),
			}
		}
	}

	switch req.Type {
	case notice.Strike:
		action, eligible := status.Action(compliance.ActionIssueStrike)
		eligible = eligible && action.Occasion != nil
		if !eligible && req.Occasion == nil {
			return nil, notEligible(compliance.ActionIssueStrike, generic.TimePoint{}, status, action, false)
		}
		switch {
		case req.Occasion != nil:
			rec.DueDateForOccasion = *req.Occasion
		case eligible:
			rec.DueDateForOccasion = *action.Occasion
		}
		if err := compliance.ValidateStrike(rec, in.Notices, law.Location()); err != nil {
			return nil, err
		}
		if !eligible || !action.Occasion.Equal(rec.DueDateForOccasion) {
			return nil, notEligible(compliance.ActionIssueStrike, rec.DueDateForOccasion, status, action, eligible)
		}
		rec.StrikeNumber = action.StrikeNumber
		if rec.StrikeNumber == notice.StrikesToTerminate {
			d := law.TribunalFilingDeadline(rec.OfficialServiceDate)
			out.FilingDeadline = &d
		}

	case notice.SocialStrike:
		if err := compliance.ValidateStrike(rec, in.Notices, law.Location()); err != nil {
			return nil, err
		}
		if status.ActiveStrikeCount >= notice.StrikesToTerminate {
			return nil, &generic.RuleViolation{
				Rule:    generic.ErrNotEligible,
				Action:  string(compliance.ActionIssueStrike),
				Message: fmt.Sprintf("%d strikes are already active", status.ActiveStrikeCount),
			}
		}
		rec.StrikeNumber = status.ActiveStrikeCount + 1
		if rec.StrikeNumber == notice.StrikesToTerminate {
			d := law.TribunalFilingDeadline(rec.OfficialServiceDate)
			out.FilingDeadline = &d
		}

	case notice.Remedy:
		ledger, err := rent.Calculate(in.Settings, in.Payments, generic.DateIn(sentAt, law.Location()))
		if err != nil {
			return nil, err
		}
		if !status.HasAction(compliance.ActionIssueRemedy) {
			if len(ledger.UnpaidLines()) == 0 {
				return nil, fmt.Errorf("remedy notice: %w", generic.ErrNothingOwed)
			}
			msg := "rent is not overdue"
			if status.HasAction(compliance.ActionMonitorRemedy) {
				msg = "a remedy notice for the unpaid rent is still running"
			}
			return nil, &generic.RuleViolation{
				Rule:    generic.ErrNotEligible,
				Action:  string(compliance.ActionIssueRemedy),
				Message: msg,
			}
		}
		debt, err := notice.TakeSnapshot(ledger)
		if err != nil {
			return nil, err
		}
		rec.Snapshot = debt
		expiry := law.RemedyExpiryDate(rec.OfficialServiceDate)
		out.RemedyExpiry = &expiry

	default:
		return nil, fmt.Errorf("notice type %q: %w", req.Type, generic.ErrInvalidInput)
	}

	stored, err := NoticeToRecord(req.TenantID, rec)
	if err != nil {
		return nil, err
	}
	stored.CreatedAt = s.now().UTC()
	if err := s.store.AppendNotice(ctx, stored); err != nil {
		return nil, fmt.Errorf("append notice: %w", err)
	}
	out.Notice = rec
	return out, nil
}

// latestStrike is the strike with the latest send instant.
func latestStrike(notices []notice.Record) (notice.Record, bool) {
	var last notice.Record
	found := false
	for _, n := range notices {
		if n.Type.IsStrike() && (!found || n.SentAt.After(last.SentAt)) {
			last, found = n, true
		}
	}
	return last, found
}

func notEligible(kind compliance.ActionKind, occasion generic.TimePoint, status compliance.TenantStatus,
	action compliance.Action, eligible bool) error {
	msg := fmt.Sprintf("no strike may be issued now (%s)", status.Label)
	if eligible {
		msg = fmt.Sprintf("the next strike must address rent due %s", action.Occasion)
	}
	return &generic.RuleViolation{
		Rule:    generic.ErrNotEligible,
		Action:  string(kind),
		Date:    occasion,
		Message: msg,
	}
}

// rejectionReason labels refusals for metrics; "" for other errors.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, generic.ErrDuplicateOccasion):
		return "duplicate_occasion"
	case errors.Is(err, generic.ErrSameDayStrike):
		return "same_day"
	case errors.Is(err, generic.ErrMissingOccasion):
		return "missing_occasion"
	case errors.Is(err, generic.ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, generic.ErrNothingOwed):
		return "nothing_owed"
	case errors.Is(err, generic.ErrInsufficientConfiguration):
		return "insufficient_configuration"
	default:
		return ""
	}
}
