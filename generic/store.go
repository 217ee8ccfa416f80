/*
store.go - Persistence interface for tenants, payments and notices

PURPOSE:
  Defines the interface between the application service and the database.
  The engine itself never touches a Store: the service loads a consistent
  snapshot, hands plain values to the engine, and appends whatever the
  engine said is permitted.

APPEND-ONLY CONTRACT:
  Payments and notices are history. There is no Update or Delete for them;
  a notice, once recorded with its OSD and debt snapshot, is immutable.
  Reusing an ID returns ErrDuplicateID.

CONSISTENT READS:
  LoadSnapshot returns tenant, payments and notices from a single read so
  an evaluation never mixes two states of the same tenant.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - tenancy/service.go: The only consumer
*/
package generic

import (
	"context"
	"encoding/json"
	"time"
)

// =============================================================================
// RECORDS - Persisted shapes
// =============================================================================

// TenantRecord holds the tenant's rent settings as entered, before parsing.
// Fields may be empty; the ledger reports insufficient configuration.
type TenantRecord struct {
	ID             TenantID
	Name           string
	Region         string
	Frequency      string
	RentAmount     Money
	DueDay         string
	TrackingStart  TimePoint
	OpeningArrears Money
	CreatedAt      time.Time
}

// PaymentRecord is one credited payment.
type PaymentRecord struct {
	ID        string
	TenantID  TenantID
	Amount    Money
	Date      TimePoint
	Reference string
	CreatedAt time.Time
}

// NoticeRecord is a sent notice with its computed dates. Snapshot holds the
// frozen debt snapshot for remedy notices as opaque JSON owned by the
// notice package.
type NoticeRecord struct {
	ID                  string
	TenantID            TenantID
	Type                string
	StrikeNumber        int
	Method              string
	SentAt              time.Time
	OfficialServiceDate TimePoint
	DueDateForOccasion  TimePoint
	Snapshot            json.RawMessage
	CreatedAt           time.Time
}

// TenantSnapshot is everything an evaluation needs, read at once.
type TenantSnapshot struct {
	Tenant   TenantRecord
	Payments []PaymentRecord
	Notices  []NoticeRecord
}

// =============================================================================
// STORE - Interface for persistence
// =============================================================================

type Store interface {
	// SaveTenant inserts or replaces tenant settings.
	SaveTenant(ctx context.Context, t TenantRecord) error

	// GetTenant returns ErrNotFound for unknown IDs.
	GetTenant(ctx context.Context, id TenantID) (*TenantRecord, error)

	// ListTenants returns all tenants ordered by ID.
	ListTenants(ctx context.Context) ([]TenantRecord, error)

	// AppendPayment records a payment. Append-only.
	AppendPayment(ctx context.Context, p PaymentRecord) error

	// Payments returns a tenant's payments ordered by date, then insertion.
	Payments(ctx context.Context, id TenantID) ([]PaymentRecord, error)

	// AppendNotice records a sent notice. Append-only.
	AppendNotice(ctx context.Context, n NoticeRecord) error

	// Notices returns a tenant's notices ordered by sent time.
	Notices(ctx context.Context, id TenantID) ([]NoticeRecord, error)

	// LoadSnapshot reads tenant, payments and notices consistently.
	LoadSnapshot(ctx context.Context, id TenantID) (*TenantSnapshot, error)
}

// HolidayStore persists extra holidays on top of the built-in tables.
type HolidayStore interface {
	SaveHoliday(ctx context.Context, h Holiday) error
	ListHolidays(ctx context.Context) ([]Holiday, error)
}
