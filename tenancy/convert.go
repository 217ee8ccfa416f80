package tenancy

import (
	"encoding/json"
	"fmt"

	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/rent"
)

// =============================================================================
// RECORD <-> ENGINE CONVERSIONS
// =============================================================================

// Settings converts stored tenant settings into rent settings. An
// unreadable frequency is left empty so the ledger reports it as missing.
func Settings(t generic.TenantRecord) rent.Settings {
	freq, err := rent.ParseFrequency(t.Frequency)
	if err != nil {
		freq = ""
	}
	return rent.Settings{
		Frequency:      freq,
		RentAmount:     t.RentAmount,
		DueDay:         t.DueDay,
		TrackingStart:  t.TrackingStart,
		OpeningArrears: t.OpeningArrears,
	}
}

func Payments(records []generic.PaymentRecord) []rent.Payment {
	out := make([]rent.Payment, 0, len(records))
	for _, p := range records {
		out = append(out, rent.Payment{ID: p.ID, Amount: p.Amount, Date: p.Date})
	}
	return out
}

// Notices decodes stored notices, including remedy snapshots.
func Notices(records []generic.NoticeRecord) ([]notice.Record, error) {
	out := make([]notice.Record, 0, len(records))
	for _, r := range records {
		n, err := NoticeFromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func NoticeFromRecord(r generic.NoticeRecord) (notice.Record, error) {
	typ, err := notice.ParseType(r.Type)
	if err != nil {
		return notice.Record{}, fmt.Errorf("notice %s: %w", r.ID, err)
	}
	method, err := notice.ParseMethod(r.Method)
	if err != nil {
		return notice.Record{}, fmt.Errorf("notice %s: %w", r.ID, err)
	}
	n := notice.Record{
		ID:                  r.ID,
		Type:                typ,
		StrikeNumber:        r.StrikeNumber,
		SentAt:              r.SentAt,
		Method:              method,
		OfficialServiceDate: r.OfficialServiceDate,
		DueDateForOccasion:  r.DueDateForOccasion,
	}
	if len(r.Snapshot) > 0 && string(r.Snapshot) != "null" {
		var snap notice.DebtSnapshot
		if err := json.Unmarshal(r.Snapshot, &snap); err != nil {
			return notice.Record{}, fmt.Errorf("notice %s: %w", r.ID, err)
		}
		n.Snapshot = &snap
	}
	return n, nil
}

func NoticeToRecord(tenantID generic.TenantID, n notice.Record) (generic.NoticeRecord, error) {
	r := generic.NoticeRecord{
		ID:                  n.ID,
		TenantID:            tenantID,
		Type:                string(n.Type),
		StrikeNumber:        n.StrikeNumber,
		Method:              string(n.Method),
		SentAt:              n.SentAt,
		OfficialServiceDate: n.OfficialServiceDate,
		DueDateForOccasion:  n.DueDateForOccasion,
	}
	if n.Snapshot != nil {
		data, err := json.Marshal(n.Snapshot)
		if err != nil {
			return generic.NoticeRecord{}, fmt.Errorf("encode snapshot for notice %s: %w", n.ID, err)
		}
		r.Snapshot = data
	}
	return r, nil
}
