// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/tenancy-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	tenants  map[generic.TenantID]generic.TenantRecord
	payments map[generic.TenantID][]generic.PaymentRecord
	notices  map[generic.TenantID][]generic.NoticeRecord
	holidays map[string]generic.Holiday
	ids      map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		tenants:  make(map[generic.TenantID]generic.TenantRecord),
		payments: make(map[generic.TenantID][]generic.PaymentRecord),
		notices:  make(map[generic.TenantID][]generic.NoticeRecord),
		holidays: make(map[string]generic.Holiday),
		ids:      make(map[string]bool),
	}
}

func (m *Memory) SaveTenant(_ context.Context, t generic.TenantRecord) error {
	if t.ID == "" {
		return generic.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
	return nil
}

func (m *Memory) GetTenant(_ context.Context, id generic.TenantID) (*generic.TenantRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, generic.ErrNotFound
	}
	return &t, nil
}

func (m *Memory) ListTenants(_ context.Context) ([]generic.TenantRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]generic.TenantRecord, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AppendPayment inserts after any payment on the same or an earlier date.
func (m *Memory) AppendPayment(_ context.Context, p generic.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claimLocked("payment:"+p.ID, p.TenantID); err != nil {
		return err
	}

	ps := m.payments[p.TenantID]
	// Binary search keeps same-date payments in insertion order
	i := sort.Search(len(ps), func(i int) bool {
		return ps[i].Date.After(p.Date)
	})
	ps = append(ps, generic.PaymentRecord{})
	copy(ps[i+1:], ps[i:])
	ps[i] = p
	m.payments[p.TenantID] = ps
	return nil
}

func (m *Memory) Payments(_ context.Context, id generic.TenantID) ([]generic.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]generic.PaymentRecord{}, m.payments[id]...), nil
}

func (m *Memory) AppendNotice(_ context.Context, n generic.NoticeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claimLocked("notice:"+n.ID, n.TenantID); err != nil {
		return err
	}

	ns := m.notices[n.TenantID]
	i := sort.Search(len(ns), func(i int) bool {
		return ns[i].SentAt.After(n.SentAt)
	})
	ns = append(ns, generic.NoticeRecord{})
	copy(ns[i+1:], ns[i:])
	ns[i] = n
	m.notices[n.TenantID] = ns
	return nil
}

func (m *Memory) Notices(_ context.Context, id generic.TenantID) ([]generic.NoticeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]generic.NoticeRecord{}, m.notices[id]...), nil
}

// LoadSnapshot holds the read lock across all three reads.
func (m *Memory) LoadSnapshot(_ context.Context, id generic.TenantID) (*generic.TenantSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, generic.ErrNotFound
	}
	return &generic.TenantSnapshot{
		Tenant:   t,
		Payments: append([]generic.PaymentRecord{}, m.payments[id]...),
		Notices:  append([]generic.NoticeRecord{}, m.notices[id]...),
	}, nil
}

func (m *Memory) claimLocked(key string, tenant generic.TenantID) error {
	if _, ok := m.tenants[tenant]; !ok {
		return generic.ErrNotFound
	}
	if m.ids[key] {
		return generic.ErrDuplicateID
	}
	m.ids[key] = true
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.Region+"|"+h.Date.String()] = h
	return nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]generic.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Region < out[j].Region
	})
	return out, nil
}

var (
	_ generic.Store        = (*Memory)(nil)
	_ generic.HolidayStore = (*Memory)(nil)
)
