package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTenant(t *testing.T, s *sqlite.Store) generic.TenantRecord {
	t.Helper()
	tenant := generic.TenantRecord{
		ID:             "t-1",
		Name:           "Aroha",
		Region:         "AUK",
		Frequency:      "weekly",
		RentAmount:     generic.Dollars(500),
		DueDay:         "wednesday",
		TrackingStart:  generic.MustParseDate("2025-01-01"),
		OpeningArrears: generic.Cents(12345),
	}
	require.NoError(t, s.SaveTenant(context.Background(), tenant))
	return tenant
}

func TestStore_Ping(t *testing.T) {
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, s.Ping(ctx))

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(ctx))
}

func TestStore_TenantRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	want := seedTenant(t, s)

	got, err := s.GetTenant(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.RentAmount, got.RentAmount)
	assert.Equal(t, want.OpeningArrears, got.OpeningArrears)
	assert.True(t, want.TrackingStart.Equal(got.TrackingStart))
	assert.Equal(t, "wednesday", got.DueDay)

	// Settings may change; history may not
	want.RentAmount = generic.Dollars(550)
	require.NoError(t, s.SaveTenant(ctx, want))
	got, err = s.GetTenant(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.Dollars(550), got.RentAmount)

	_, err = s.GetTenant(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestStore_Payments(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTenant(t, s)

	// GIVEN: two payments on the same day appended after a later one
	require.NoError(t, s.AppendPayment(ctx, generic.PaymentRecord{ID: "p1", TenantID: "t-1", Amount: generic.Dollars(100), Date: generic.MustParseDate("2025-01-20")}))
	require.NoError(t, s.AppendPayment(ctx, generic.PaymentRecord{ID: "p2", TenantID: "t-1", Amount: generic.Dollars(200), Date: generic.MustParseDate("2025-01-08"), Reference: "bank"}))
	require.NoError(t, s.AppendPayment(ctx, generic.PaymentRecord{ID: "p3", TenantID: "t-1", Amount: generic.Dollars(300), Date: generic.MustParseDate("2025-01-08")}))

	// WHEN
	ps, err := s.Payments(ctx, "t-1")

	// THEN: by date, then insertion
	require.NoError(t, err)
	require.Len(t, ps, 3)
	assert.Equal(t, "p2", ps[0].ID)
	assert.Equal(t, "p3", ps[1].ID)
	assert.Equal(t, "p1", ps[2].ID)
	assert.Equal(t, "bank", ps[0].Reference)
	assert.Equal(t, generic.Dollars(200), ps[0].Amount)
}

func TestStore_AppendRejections(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTenant(t, s)

	p := generic.PaymentRecord{ID: "p1", TenantID: "t-1", Amount: generic.Dollars(100), Date: generic.MustParseDate("2025-01-20")}
	require.NoError(t, s.AppendPayment(ctx, p))
	assert.ErrorIs(t, s.AppendPayment(ctx, p), generic.ErrDuplicateID)

	orphan := generic.PaymentRecord{ID: "p2", TenantID: "nobody", Amount: generic.Dollars(100), Date: generic.MustParseDate("2025-01-20")}
	assert.ErrorIs(t, s.AppendPayment(ctx, orphan), generic.ErrNotFound)
}

func TestStore_NoticesWithSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTenant(t, s)
	sent := time.Date(2025, time.February, 3, 22, 15, 0, 0, time.UTC)
	snapshot := json.RawMessage(`{"taken_at":"2025-02-04","total_cents":50000}`)

	require.NoError(t, s.AppendNotice(ctx, generic.NoticeRecord{
		ID:                  "n2",
		TenantID:            "t-1",
		Type:                "REMEDY",
		Method:              "email",
		SentAt:              sent.Add(time.Hour),
		OfficialServiceDate: generic.MustParseDate("2025-02-05"),
		Snapshot:            snapshot,
	}))
	require.NoError(t, s.AppendNotice(ctx, generic.NoticeRecord{
		ID:                  "n1",
		TenantID:            "t-1",
		Type:                "STRIKE",
		StrikeNumber:        1,
		Method:              "hand",
		SentAt:              sent,
		OfficialServiceDate: generic.MustParseDate("2025-02-04"),
		DueDateForOccasion:  generic.MustParseDate("2025-01-22"),
	}))

	ns, err := s.Notices(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, ns, 2)

	assert.Equal(t, "n1", ns[0].ID)
	assert.True(t, sent.Equal(ns[0].SentAt))
	assert.Equal(t, 1, ns[0].StrikeNumber)
	assert.Equal(t, "2025-01-22", ns[0].DueDateForOccasion.String())
	assert.Nil(t, ns[0].Snapshot)

	assert.Equal(t, "n2", ns[1].ID)
	assert.JSONEq(t, string(snapshot), string(ns[1].Snapshot))
	assert.True(t, ns[1].DueDateForOccasion.IsZero())
}

func TestStore_OneStrikePerOccasion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTenant(t, s)
	occasion := generic.MustParseDate("2025-01-22")

	first := generic.NoticeRecord{ID: "n1", TenantID: "t-1", Type: "STRIKE", Method: "email",
		SentAt: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), OfficialServiceDate: occasion.AddDays(12), DueDateForOccasion: occasion}
	require.NoError(t, s.AppendNotice(ctx, first))

	second := first
	second.ID = "n2"
	second.SentAt = second.SentAt.Add(48 * time.Hour)
	err := s.AppendNotice(ctx, second)

	require.ErrorIs(t, err, generic.ErrDuplicateOccasion)
	assert.True(t, generic.IsRuleViolation(err))
}

func TestStore_LoadSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTenant(t, s)
	require.NoError(t, s.AppendPayment(ctx, generic.PaymentRecord{ID: "p1", TenantID: "t-1", Amount: generic.Dollars(100), Date: generic.MustParseDate("2025-01-20")}))

	snap, err := s.LoadSnapshot(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Aroha", snap.Tenant.Name)
	assert.Len(t, snap.Payments, 1)
	assert.Empty(t, snap.Notices)

	_, err = s.LoadSnapshot(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestStore_Holidays(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveHoliday(ctx, generic.Holiday{Region: "CAN", Date: generic.MustParseDate("2025-11-14"), Name: "Show Day"}))
	require.NoError(t, s.SaveHoliday(ctx, generic.Holiday{Date: generic.MustParseDate("2025-06-02"), Name: "Closure"}))
	require.NoError(t, s.SaveHoliday(ctx, generic.Holiday{Region: "CAN", Date: generic.MustParseDate("2025-11-14"), Name: "Canterbury Show Day"}))

	hs, err := s.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, "Closure", hs[0].Name)
	assert.Equal(t, "", hs[0].Region)
	assert.Equal(t, "Canterbury Show Day", hs[1].Name)
	assert.NotEmpty(t, hs[1].ID)
}
