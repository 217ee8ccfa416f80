/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Tenant creation and lookup
- Status and ledger at an explicit as_of
- Payments and notice issuance, including refusals
- Calendar and service-date endpoints
- Error mapping (400, 404, 409, 422)
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tenancy-engine/calendar"
	"github.com/warp/tenancy-engine/compliance"
	"github.com/warp/tenancy-engine/generic/store"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/tenancy"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var auckland = mustLoad("Pacific/Auckland")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type testServer struct {
	router  *chi.Mux
	handler *Handler
	svc     *tenancy.Service
	reg     *prometheus.Registry
	now     time.Time
}

func newTestServer(t *testing.T, now time.Time) *testServer {
	t.Helper()
	ts := &testServer{reg: prometheus.NewRegistry(), now: now}
	engine := compliance.NewEngine(notice.NewLaw(calendar.New(calendar.WithLocation(auckland))))
	ts.svc = tenancy.New(store.NewMemory(), engine,
		tenancy.WithMetrics(tenancy.NewMetrics(ts.reg)),
		tenancy.WithClock(func() time.Time { return ts.now }),
	)
	ts.handler = NewHandler(ts.svc, nil)
	ts.router = NewRouter(ts.handler, RouterOptions{Gatherer: ts.reg})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// createWeeklyTenant pays $500 every Wednesday from 5 March 2025.
func (ts *testServer) createWeeklyTenant(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/tenants", CreateTenantRequest{
		Name:          "Aroha",
		Region:        "AUK",
		Frequency:     "weekly",
		RentAmount:    "500",
		DueDay:        "wednesday",
		TrackingStart: "2025-03-05",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[TenantDTO](t, rec).ID
}

func localTime(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, auckland)
}

// =============================================================================
// TENANTS
// =============================================================================

func TestTenants_CreateGetList(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)

	rec := ts.do(t, http.MethodGet, "/api/tenants/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tenant := decode[TenantDTO](t, rec)
	assert.Equal(t, "Aroha", tenant.Name)
	assert.Equal(t, "500.00", tenant.RentAmount)
	assert.Equal(t, "2025-03-05", tenant.TrackingStart)

	rec = ts.do(t, http.MethodGet, "/api/tenants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TenantDTO](t, rec), 1)
}

func TestTenants_Errors(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown tenant", http.MethodGet, "/api/tenants/nobody", nil, http.StatusNotFound},
		{"missing name", http.MethodPost, "/api/tenants", CreateTenantRequest{Frequency: "weekly"}, http.StatusBadRequest},
		{"bad money", http.MethodPost, "/api/tenants", CreateTenantRequest{Name: "A", RentAmount: "lots"}, http.StatusBadRequest},
		{"bad tracking start", http.MethodPost, "/api/tenants", CreateTenantRequest{Name: "A", TrackingStart: "05/03/2025"}, http.StatusBadRequest},
		{"bad frequency", http.MethodPost, "/api/tenants", CreateTenantRequest{Name: "A", Frequency: "daily"}, http.StatusBadRequest},
		{"status of unknown tenant", http.MethodGet, "/api/tenants/nobody/status", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// STATUS AND LEDGER
// =============================================================================

func TestGetStatus(t *testing.T) {
	// GIVEN: rent due 5 and 12 March, nothing paid
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)

	// WHEN
	rec := ts.do(t, http.MethodGet, "/api/tenants/"+id+"/status", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusDTO](t, rec)
	assert.Equal(t, "2025-03-12", status.AsOf)
	assert.Equal(t, 2, status.SeverityTier)
	assert.Equal(t, "Strike 1 ready", status.Label)
	assert.Equal(t, "1000.00", status.Balance)
	assert.Equal(t, "2025-03-05", status.OldestUnpaidDueDate)

	var strike *ActionDTO
	for i, a := range status.EligibleActions {
		if a.Kind == "issue_strike" {
			strike = &status.EligibleActions[i]
		}
	}
	require.NotNil(t, strike)
	assert.Equal(t, "2025-03-05", strike.Occasion)
	assert.Equal(t, 1, strike.StrikeNumber)
}

func TestGetStatus_AsOf(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)

	rec := ts.do(t, http.MethodGet, "/api/tenants/"+id+"/status?as_of=2025-03-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusDTO](t, rec)
	assert.Equal(t, "2025-03-06", status.AsOf)
	assert.Equal(t, 1, status.SeverityTier)

	rec = ts.do(t, http.MethodGet, "/api/tenants/"+id+"/status?as_of=2025-03-06T09:00:00%2B13:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03-06", decode[StatusDTO](t, rec).AsOf)

	rec = ts.do(t, http.MethodGet, "/api/tenants/"+id+"/status?as_of=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatus_Estimated(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	rec := ts.do(t, http.MethodPost, "/api/tenants", CreateTenantRequest{Name: "Partial"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[TenantDTO](t, rec).ID

	rec = ts.do(t, http.MethodGet, "/api/tenants/"+id+"/status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusDTO](t, rec)
	assert.True(t, status.Estimated)
	assert.True(t, strings.HasPrefix(status.Label, "Estimated: "))
	require.NotEmpty(t, status.Diagnostics)
	assert.Equal(t, "insufficient_configuration", status.Diagnostics[0].Code)

	// The ledger itself cannot be computed
	rec = ts.do(t, http.MethodGet, "/api/tenants/"+id+"/ledger", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetLedger(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)
	rec := ts.do(t, http.MethodPost, "/api/tenants/"+id+"/payments", RecordPaymentRequest{Amount: "300", Date: "2025-03-06"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/tenants/"+id+"/ledger", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decode[LedgerDTO](t, rec)
	assert.Equal(t, 2, ledger.CyclesElapsed)
	assert.Equal(t, "1000.00", ledger.TotalDue)
	assert.Equal(t, "300.00", ledger.TotalPaid)
	assert.Equal(t, "700.00", ledger.CurrentBalance)
	require.Len(t, ledger.Lines, 2)
	assert.Equal(t, "200.00", ledger.Lines[0].Outstanding)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestRecordPayment(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)

	rec := ts.do(t, http.MethodPost, "/api/tenants/"+id+"/payments", RecordPaymentRequest{Amount: "499.95", Date: "2025-03-05", Reference: "bank"})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decode[PaymentDTO](t, rec)
	assert.Equal(t, "499.95", p.Amount)
	assert.NotEmpty(t, p.ID)

	for _, bad := range []RecordPaymentRequest{
		{Amount: "abc", Date: "2025-03-05"},
		{Amount: "-5", Date: "2025-03-05"},
		{Amount: "5", Date: "March 5"},
	} {
		rec = ts.do(t, http.MethodPost, "/api/tenants/"+id+"/payments", bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	rec = ts.do(t, http.MethodGet, "/api/tenants/"+id+"/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]PaymentDTO](t, rec), 1)
}

// =============================================================================
// NOTICES
// =============================================================================

func TestIssueNotice_StrikeThenSameDay(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)

	// WHEN: a strike is issued with the default occasion
	rec := ts.do(t, http.MethodPost, "/api/tenants/"+id+"/notices", IssueNoticeRequest{Type: "strike", Method: "email"})

	// THEN
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	n := decode[NoticeDTO](t, rec)
	assert.Equal(t, "STRIKE", n.Type)
	assert.Equal(t, 1, n.StrikeNumber)
	assert.Equal(t, "2025-03-05", n.Occasion)
	assert.Equal(t, "2025-03-12", n.OfficialServiceDate)

	// A second strike the same day conflicts
	rec = ts.do(t, http.MethodPost, "/api/tenants/"+id+"/notices", IssueNoticeRequest{Type: "social_strike"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/tenants/"+id+"/notices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]NoticeDTO](t, rec), 1)
}

func TestIssueNotice_Remedy(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)

	rec := ts.do(t, http.MethodPost, "/api/tenants/"+id+"/notices", IssueNoticeRequest{
		Type:   "REMEDY",
		Method: "letterbox",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	n := decode[NoticeDTO](t, rec)
	// letterbox: two working days after Wednesday
	assert.Equal(t, "2025-03-14", n.OfficialServiceDate)
	assert.Equal(t, "2025-03-28", n.RemedyExpiry)
	require.NotNil(t, n.Snapshot)
	assert.Equal(t, "500.00", n.Snapshot.Total)
	require.Len(t, n.Snapshot.Lines, 1)
	assert.Equal(t, "2025-03-05", n.Snapshot.Lines[0].DueDate)
}

func TestIssueNotice_Errors(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)
	rec := ts.do(t, http.MethodPost, "/api/tenants", CreateTenantRequest{Name: "Partial"})
	require.Equal(t, http.StatusCreated, rec.Code)
	partial := decode[TenantDTO](t, rec).ID

	tests := []struct {
		name   string
		tenant string
		req    IssueNoticeRequest
		want   int
	}{
		{"unknown type", id, IssueNoticeRequest{Type: "warning"}, http.StatusBadRequest},
		{"unknown method", id, IssueNoticeRequest{Type: "strike", Method: "pigeon"}, http.StatusBadRequest},
		{"bad sent_at", id, IssueNoticeRequest{Type: "strike", SentAt: "today"}, http.StatusBadRequest},
		{"occasion not yet eligible", id, IssueNoticeRequest{Type: "strike", Occasion: "2025-03-12"}, http.StatusConflict},
		{"strike before anything is late", id, IssueNoticeRequest{Type: "strike", SentAt: "2025-03-06T10:00:00+13:00"}, http.StatusConflict},
		{"remedy without settings", partial, IssueNoticeRequest{Type: "remedy"}, http.StatusUnprocessableEntity},
		{"unknown tenant", "nobody", IssueNoticeRequest{Type: "remedy"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/tenants/"+tt.tenant+"/notices", tt.req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestListHolidays(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))

	rec := ts.do(t, http.MethodGet, "/api/calendar/holidays?year=2025&region=auk", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	dates := map[string]string{}
	for _, h := range decode[[]HolidayDTO](t, rec) {
		dates[h.Date] = h.Name
	}
	assert.Contains(t, dates, "2025-01-01")
	assert.Contains(t, dates, "2025-01-27")
	assert.Contains(t, dates, "2025-12-25")

	rec = ts.do(t, http.MethodGet, "/api/calendar/holidays?year=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkingDays(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))

	rec := ts.do(t, http.MethodGet, "/api/calendar/working-days?from=2025-03-05&to=2025-03-12&region=AUK", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[WorkingDaysDTO](t, rec).WorkingDays)

	rec = ts.do(t, http.MethodGet, "/api/calendar/working-days?from=2025-03-05", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceDate_FivePmRule(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))

	// GIVEN: an email sent at 6pm on a Friday
	rec := ts.do(t, http.MethodGet, "/api/notices/service-date?sent_at=2025-03-07T18:00:00%2B13:00&method=email", nil)

	// THEN: served the following Monday
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[ServiceDateDTO](t, rec)
	assert.Equal(t, "2025-03-10", dto.OfficialServiceDate)
	assert.Equal(t, "2025-03-24", dto.RemedyExpiry)
	assert.Equal(t, "2025-04-07", dto.FilingDeadline)
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	id := ts.createWeeklyTenant(t)
	rec := ts.do(t, http.MethodPost, "/api/tenants/"+id+"/payments", RecordPaymentRequest{Amount: "10", Date: "2025-03-05"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenancy_payments_recorded_total 1")
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// GIVEN: a reachable database
	ts.handler.DB = pingFunc(func(context.Context) error { return nil })
	rec = ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// GIVEN: the database stops answering
	ts.handler.DB = pingFunc(func(context.Context) error { return errors.New("database is closed") })
	rec = ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode[map[string]string](t, rec)["status"])
}

func TestListRegions(t *testing.T) {
	ts := newTestServer(t, localTime(2025, time.March, 12, 10))

	rec := ts.do(t, http.MethodGet, "/api/calendar/regions", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	regions := decode[[]string](t, rec)
	assert.Equal(t, calendar.Regions(), regions)
	assert.Contains(t, regions, "AUK")
	assert.Contains(t, regions, "WGN")
	assert.IsIncreasing(t, regions)
}
