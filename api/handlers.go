/*
handlers.go - HTTP API handlers for the tenancy compliance engine

PURPOSE:
  Exposes the tenancy service and the calendar via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the service.

ENDPOINTS:
  Tenants:
    GET    /api/tenants                   List all tenants
    POST   /api/tenants                   Create tenant
    GET    /api/tenants/{id}              Get tenant settings
    GET    /api/tenants/{id}/status       Compliance status (?as_of=)
    GET    /api/tenants/{id}/ledger       Rent ledger (?as_of=)

  Payments and notices:
    GET    /api/tenants/{id}/payments     Payment history
    POST   /api/tenants/{id}/payments     Record a payment
    GET    /api/tenants/{id}/notices      Notice history with deadlines
    POST   /api/tenants/{id}/notices      Issue a strike or remedy notice

  Calendar:
    GET    /api/calendar/regions          Supported region codes
    GET    /api/calendar/holidays         ?year=&region=
    GET    /api/calendar/working-days     ?from=&to=&region=
    GET    /api/notices/service-date      ?sent_at=&method=&region=

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call the tenancy service
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input
  - 404: Tenant not found
  - 409: Rule violation, duplicate ID, nothing owed
  - 422: Rent settings insufficient for the request
  - 500: Internal errors
  - 503: Database unreachable (/healthz only)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - tenancy/service.go: The service behind every handler
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/tenancy-engine/calendar"
	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/tenancy"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *tenancy.Service
	Logger  *slog.Logger
	DB      Pinger // optional; checked by Health
}

// NewHandler creates a handler. A nil logger discards.
func NewHandler(svc *tenancy.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{Service: svc, Logger: logger}
}

func (h *Handler) calendar() *calendar.Calendar {
	return h.Service.Engine().Law().Calendar()
}

func (h *Handler) location() *time.Location {
	return h.Service.Engine().Law().Location()
}

// Health reports liveness, and database reachability when DB is set.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			h.Logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// ListTenants returns all tenants.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Service.ListTenants(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenants", err)
		return
	}

	dtos := make([]TenantDTO, len(tenants))
	for i, t := range tenants {
		dtos[i] = toTenantDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTenant creates a new tenant.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := tenancy.TenantInput{
		ID:        generic.TenantID(req.ID),
		Name:      req.Name,
		Region:    req.Region,
		Frequency: req.Frequency,
		DueDay:    req.DueDay,
	}
	var err error
	if in.RentAmount, err = optionalMoney(req.RentAmount); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rent_amount", err)
		return
	}
	if in.OpeningArrears, err = optionalMoney(req.OpeningArrears); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid opening_arrears", err)
		return
	}
	if req.TrackingStart != "" {
		if in.TrackingStart, err = generic.ParseDate(req.TrackingStart); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tracking_start (use YYYY-MM-DD)", err)
			return
		}
	}

	tenant, err := h.Service.CreateTenant(r.Context(), in)
	if err != nil {
		h.respondError(w, r, "Failed to create tenant", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantDTO(*tenant))
}

// GetTenant returns a single tenant.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.Service.GetTenant(r.Context(), tenantID(r))
	if err != nil {
		h.respondError(w, r, "Failed to get tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*tenant))
}

// GetStatus returns the compliance status.
// GET /api/tenants/{id}/status?as_of=2025-03-12
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.parseAsOf(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD or RFC 3339)", err)
		return
	}

	id := tenantID(r)
	status, err := h.Service.Status(r.Context(), id, asOf)
	if err != nil {
		h.respondError(w, r, "Failed to evaluate status", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(id, status))
}

// GetLedger returns the rent ledger.
// GET /api/tenants/{id}/ledger?as_of=2025-03-12
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.parseAsOf(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD or RFC 3339)", err)
		return
	}

	ledger, err := h.Service.Ledger(r.Context(), tenantID(r), asOf)
	if err != nil {
		h.respondError(w, r, "Failed to calculate ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(ledger))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns the payment history.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.Payments(r.Context(), tenantID(r))
	if err != nil {
		h.respondError(w, r, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment records a payment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := generic.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	p, err := h.Service.RecordPayment(r.Context(), tenantID(r), tenancy.PaymentInput{
		Amount:    amount,
		Date:      date,
		Reference: req.Reference,
	})
	if err != nil {
		h.respondError(w, r, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*p))
}

// =============================================================================
// NOTICE HANDLERS
// =============================================================================

// ListNotices returns sent notices with their computed dates.
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Service.Notices(r.Context(), tenantID(r))
	if err != nil {
		h.respondError(w, r, "Failed to list notices", err)
		return
	}

	dtos := make([]NoticeDTO, len(notices))
	for i := range notices {
		dtos[i] = toNoticeDTO(&notices[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// IssueNotice records a strike or remedy notice if the law permits it.
func (h *Handler) IssueNotice(w http.ResponseWriter, r *http.Request) {
	var req IssueNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	typ, err := notice.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid type (STRIKE, SOCIAL_STRIKE or REMEDY)", err)
		return
	}
	method, err := notice.ParseMethod(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid method (email, hand, letterbox or post)", err)
		return
	}

	nr := tenancy.NoticeRequest{TenantID: tenantID(r), Type: typ, Method: method}
	if req.SentAt != "" {
		sentAt, err := time.Parse(time.RFC3339, req.SentAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid sent_at (use RFC 3339)", err)
			return
		}
		nr.SentAt = &sentAt
	}
	if req.Occasion != "" {
		occasion, err := generic.ParseDate(req.Occasion)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid occasion (use YYYY-MM-DD)", err)
			return
		}
		nr.Occasion = &occasion
	}

	issued, err := h.Service.IssueNotice(r.Context(), nr)
	if err != nil {
		h.respondError(w, r, "Notice refused", err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoticeDTO(issued))
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ListRegions returns the region codes with anniversary-day rules.
// GET /api/calendar/regions
func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, calendar.Regions())
}

// ListHolidays returns the holidays observed in a year.
// GET /api/calendar/holidays?year=2025&region=AUK
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year := time.Now().In(h.location()).Year()
	if s := q.Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1900 || y > 2200 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}
	region := calendar.NormalizeRegion(q.Get("region"))

	holidays := h.calendar().Holidays(year, region)
	dtos := make([]HolidayDTO, len(holidays))
	for i, hd := range holidays {
		dtos[i] = HolidayDTO{Date: dateString(hd.Date), Name: hd.Name, Region: hd.Region}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// WorkingDays counts working days in (from, to].
// GET /api/calendar/working-days?from=2025-03-05&to=2025-03-12&region=AUK
func (h *Handler) WorkingDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := generic.ParseDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from (use YYYY-MM-DD)", err)
		return
	}
	to, err := generic.ParseDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to (use YYYY-MM-DD)", err)
		return
	}
	region := calendar.NormalizeRegion(q.Get("region"))

	writeJSON(w, http.StatusOK, WorkingDaysDTO{
		From:        from.String(),
		To:          to.String(),
		Region:      region,
		WorkingDays: h.calendar().WorkingDaysBetween(from, to, region),
	})
}

// ServiceDate computes the OSD and the deadlines that run from it.
// GET /api/notices/service-date?sent_at=2025-03-07T16:30:00%2B13:00&method=email
func (h *Handler) ServiceDate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sentAt, err := time.Parse(time.RFC3339, q.Get("sent_at"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sent_at (use RFC 3339)", err)
		return
	}
	method, err := notice.ParseMethod(q.Get("method"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid method", err)
		return
	}
	region := calendar.NormalizeRegion(q.Get("region"))

	law := h.Service.Engine().Law()
	osd := law.OfficialServiceDate(sentAt, region, method)
	writeJSON(w, http.StatusOK, ServiceDateDTO{
		SentAt:              sentAt.Format(time.RFC3339),
		Method:              string(method),
		Region:              region,
		OfficialServiceDate: osd.String(),
		RemedyExpiry:        law.RemedyExpiryDate(osd).String(),
		FilingDeadline:      law.TribunalFilingDeadline(osd).String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func tenantID(r *http.Request) generic.TenantID {
	return generic.TenantID(chi.URLParam(r, "id"))
}

// parseAsOf accepts RFC 3339 or a plain date. A plain date means the end of
// that day, so notices sent during it are known.
func (h *Handler) parseAsOf(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := generic.ParseDate(s)
	if err != nil {
		return nil, err
	}
	t := d.At(h.location(), 23, 59, 59)
	return &t, nil
}

func optionalMoney(s string) (generic.Money, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return generic.ParseMoney(s)
}

// respondError maps the error taxonomy onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case generic.IsNotFound(err):
		status = http.StatusNotFound
	case generic.IsRuleViolation(err),
		errors.Is(err, generic.ErrDuplicateID),
		errors.Is(err, generic.ErrNothingOwed):
		status = http.StatusConflict
	case errors.Is(err, generic.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, generic.ErrInsufficientConfiguration):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.Logger.ErrorContext(r.Context(), message, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
