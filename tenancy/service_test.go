package tenancy_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tenancy-engine/calendar"
	"github.com/warp/tenancy-engine/compliance"
	"github.com/warp/tenancy-engine/generic"
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

type fixture struct {
	svc   *tenancy.Service
	store *store.Memory
	reg   *prometheus.Registry
	now   time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{store: store.NewMemory(), reg: prometheus.NewRegistry(), now: now}
	engine := compliance.NewEngine(notice.NewLaw(calendar.New(calendar.WithLocation(auckland))))
	f.svc = tenancy.New(f.store, engine,
		tenancy.WithMetrics(tenancy.NewMetrics(f.reg)),
		tenancy.WithClock(func() time.Time { return f.now }),
	)
	return f
}

// weeklyTenant pays $500 every Wednesday from 5 March 2025.
func (f *fixture) weeklyTenant(t *testing.T) generic.TenantID {
	t.Helper()
	rec, err := f.svc.CreateTenant(context.Background(), tenancy.TenantInput{
		Name:          "Aroha",
		Region:        "auk",
		Frequency:     "weekly",
		RentAmount:    generic.Dollars(500),
		DueDay:        "Wednesday",
		TrackingStart: generic.NewTimePoint(2025, time.March, 5),
	})
	require.NoError(t, err)
	return rec.ID
}

func localTime(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, auckland)
}

// metricValue reads a counter or gauge sample by its single label value.
func metricValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && (len(m.GetLabel()) == 0 || m.GetLabel()[0].GetValue() != label) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

// =============================================================================
// TENANTS AND PAYMENTS
// =============================================================================

func TestCreateTenant_Validation(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()

	_, err := f.svc.CreateTenant(ctx, tenancy.TenantInput{Name: "  "})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = f.svc.CreateTenant(ctx, tenancy.TenantInput{Name: "A", Frequency: "daily"})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = f.svc.CreateTenant(ctx, tenancy.TenantInput{
		Name: "A", Frequency: "weekly", DueDay: "someday", TrackingStart: generic.NewTimePoint(2025, 1, 1),
	})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	// Incomplete settings are accepted; the status is then estimated
	rec, err := f.svc.CreateTenant(ctx, tenancy.TenantInput{Name: "Partial", Region: " wgn "})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "WGN", rec.Region)
}

func TestCreateTenant_DefaultRegion(t *testing.T) {
	svc := tenancy.New(store.NewMemory(), nil, tenancy.WithDefaultRegion("can"))

	rec, err := svc.CreateTenant(context.Background(), tenancy.TenantInput{Name: "Nikau"})
	require.NoError(t, err)
	assert.Equal(t, "CAN", rec.Region)

	rec, err = svc.CreateTenant(context.Background(), tenancy.TenantInput{Name: "Rata", Region: "OTA"})
	require.NoError(t, err)
	assert.Equal(t, "OTA", rec.Region)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()
	id := f.weeklyTenant(t)

	_, err := f.svc.RecordPayment(ctx, id, tenancy.PaymentInput{Amount: generic.Dollars(-5), Date: generic.NewTimePoint(2025, 3, 6)})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = f.svc.RecordPayment(ctx, "missing", tenancy.PaymentInput{Amount: generic.Dollars(5), Date: generic.NewTimePoint(2025, 3, 6)})
	assert.ErrorIs(t, err, generic.ErrNotFound)

	p, err := f.svc.RecordPayment(ctx, id, tenancy.PaymentInput{Amount: generic.Dollars(500), Date: generic.NewTimePoint(2025, 3, 6)})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, float64(1), metricValue(t, f.reg, "tenancy_payments_recorded_total", ""))

	ledger, err := f.svc.Ledger(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, generic.Dollars(1000), ledger.TotalDue)
	assert.Equal(t, generic.Dollars(500), ledger.CurrentBalance)
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatus_UsesClockAndRecordsMetrics(t *testing.T) {
	// GIVEN: two Wednesdays due and nothing paid
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()
	id := f.weeklyTenant(t)

	// WHEN
	status, err := f.svc.Status(ctx, id, nil)

	// THEN: rent due 5 March is five working days late
	require.NoError(t, err)
	assert.Equal(t, compliance.TierStrikeReady, status.SeverityTier)
	assert.Equal(t, 5, status.WorkingDaysOverdue)
	assert.Equal(t, generic.Dollars(1000), status.Balance)
	assert.Equal(t, float64(1), metricValue(t, f.reg, "tenancy_status_evaluations_total", "2"))

	// A past date can be asked for explicitly
	earlier := localTime(2025, time.March, 6, 9)
	status, err = f.svc.Status(ctx, id, &earlier)
	require.NoError(t, err)
	assert.Equal(t, compliance.TierRemedy, status.SeverityTier)

	_, err = f.svc.Status(ctx, "missing", nil)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// NOTICES
// =============================================================================

func TestIssueNotice_Strike(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()
	id := f.weeklyTenant(t)

	// WHEN: the landlord emails a strike before 5pm
	issued, err := f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Strike})

	// THEN: it addresses the oldest unpaid rent and is served today
	require.NoError(t, err)
	assert.Equal(t, 1, issued.Notice.StrikeNumber)
	assert.Equal(t, "2025-03-05", issued.Notice.DueDateForOccasion.String())
	assert.Equal(t, "2025-03-12", issued.Notice.OfficialServiceDate.String())
	assert.Nil(t, issued.FilingDeadline)
	assert.Equal(t, float64(1), metricValue(t, f.reg, "tenancy_notices_issued_total", "STRIKE"))

	status, err := f.svc.Status(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, status.ActiveStrikeCount)

	// A second strike the same day is refused
	_, err = f.svc.IssueNotice(ctx, tenancy.NoticeRequest{
		TenantID: id, Type: notice.SocialStrike,
	})
	require.ErrorIs(t, err, generic.ErrSameDayStrike)
	assert.Equal(t, float64(1), metricValue(t, f.reg, "tenancy_notices_rejected_total", "same_day"))
}

func TestIssueNotice_StrikeRefusals(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()
	id := f.weeklyTenant(t)
	_, err := f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Strike})
	require.NoError(t, err)

	// GIVEN: the next day
	f.now = localTime(2025, time.March, 13, 10)

	// Same occasion again
	march5 := generic.NewTimePoint(2025, time.March, 5)
	_, err = f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Strike, Occasion: &march5})
	assert.ErrorIs(t, err, generic.ErrDuplicateOccasion)

	// Rent due 12 March is only one working day late
	march12 := generic.NewTimePoint(2025, time.March, 12)
	_, err = f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Strike, Occasion: &march12})
	require.ErrorIs(t, err, generic.ErrNotEligible)
	assert.True(t, generic.IsRuleViolation(err))

	// No occasion and nothing eligible
	_, err = f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Strike})
	assert.ErrorIs(t, err, generic.ErrNotEligible)

	assert.Equal(t, float64(2), metricValue(t, f.reg, "tenancy_notices_rejected_total", "not_eligible"))
	assert.Equal(t, float64(1), metricValue(t, f.reg, "tenancy_notices_rejected_total", "duplicate_occasion"))

	notices, err := f.store.Notices(ctx, id)
	require.NoError(t, err)
	assert.Len(t, notices, 1)
}

func TestIssueNotice_SocialStrikesStopAtThree(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 10, 10))
	ctx := context.Background()
	id := f.weeklyTenant(t)

	// GIVEN: social strikes on three consecutive working days
	for i, day := range []int{10, 11, 12} {
		f.now = localTime(2025, time.March, day, 10)
		issued, err := f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.SocialStrike})
		require.NoError(t, err)
		assert.Equal(t, i+1, issued.Notice.StrikeNumber)
		if i < 2 {
			assert.Nil(t, issued.FilingDeadline)
		}
	}

	// WHEN: a fourth is attempted the next day
	f.now = localTime(2025, time.March, 13, 10)
	_, err := f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.SocialStrike})

	// THEN: refused, and only the third carries a filing deadline
	require.ErrorIs(t, err, generic.ErrNotEligible)
	assert.True(t, generic.IsRuleViolation(err))

	notices, err := f.svc.Notices(ctx, id)
	require.NoError(t, err)
	require.Len(t, notices, 3)
	assert.Nil(t, notices[0].FilingDeadline)
	assert.Nil(t, notices[1].FilingDeadline)
	require.NotNil(t, notices[2].FilingDeadline)
	assert.Equal(t, "2025-04-09", notices[2].FilingDeadline.String())
}

func TestIssueNotice_StrikeBeforeLatestStrikeRefused(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()
	id := f.weeklyTenant(t)
	_, err := f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.SocialStrike})
	require.NoError(t, err)

	// WHEN: a strike is back-dated to the day before
	sentAt := localTime(2025, time.March, 11, 10)
	_, err = f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.SocialStrike, SentAt: &sentAt})

	// THEN
	require.ErrorIs(t, err, generic.ErrNotEligible)
	notices, err := f.store.Notices(ctx, id)
	require.NoError(t, err)
	assert.Len(t, notices, 1)
}

func TestIssueNotice_Remedy(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()
	id := f.weeklyTenant(t)

	// WHEN
	issued, err := f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Remedy, Method: notice.Hand})

	// THEN: the debt is frozen at rent due before today
	require.NoError(t, err)
	require.NotNil(t, issued.Notice.Snapshot)
	assert.Equal(t, generic.Dollars(500), issued.Notice.Snapshot.Total())
	require.NotNil(t, issued.RemedyExpiry)
	assert.Equal(t, "2025-03-26", issued.RemedyExpiry.String())

	// The snapshot survives the store
	notices, err := f.store.Notices(ctx, id)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	decoded, err := tenancy.NoticeFromRecord(notices[0])
	require.NoError(t, err)
	assert.Equal(t, generic.Dollars(500), decoded.Snapshot.Total())

	// A second remedy while the first runs is refused
	f.now = localTime(2025, time.March, 13, 10)
	_, err = f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Remedy})
	assert.ErrorIs(t, err, generic.ErrNotEligible)
}

func TestIssueNotice_RemedyNothingOwed(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()
	id := f.weeklyTenant(t)
	_, err := f.svc.RecordPayment(ctx, id, tenancy.PaymentInput{Amount: generic.Dollars(1000), Date: generic.NewTimePoint(2025, 3, 12)})
	require.NoError(t, err)

	_, err = f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Remedy})

	assert.ErrorIs(t, err, generic.ErrNothingOwed)
	assert.Equal(t, float64(1), metricValue(t, f.reg, "tenancy_notices_rejected_total", "nothing_owed"))
}

func TestIssueNotice_RemedyNeedsSettings(t *testing.T) {
	f := newFixture(t, localTime(2025, time.March, 12, 10))
	ctx := context.Background()
	rec, err := f.svc.CreateTenant(ctx, tenancy.TenantInput{Name: "Partial"})
	require.NoError(t, err)

	_, err = f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: rec.ID, Type: notice.Remedy})

	assert.ErrorIs(t, err, generic.ErrInsufficientConfiguration)
}

func TestIssueNotice_AfterFivePmServesNextWorkingDay(t *testing.T) {
	// GIVEN: a Friday evening email
	f := newFixture(t, localTime(2025, time.March, 14, 18))
	ctx := context.Background()
	id := f.weeklyTenant(t)

	issued, err := f.svc.IssueNotice(ctx, tenancy.NoticeRequest{TenantID: id, Type: notice.Strike})

	// THEN: served on Monday
	require.NoError(t, err)
	assert.Equal(t, "2025-03-17", issued.Notice.OfficialServiceDate.String())
}
