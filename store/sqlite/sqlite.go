/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Store and generic.HolidayStore on SQLite. The service
  reads a tenant's full history in one transaction and appends payments and
  notices; nothing is ever updated in place except tenant settings.

INTERFACES IMPLEMENTED:
  generic.Store:        Tenants, payments, notices
  generic.HolidayStore: Extra holidays loaded into the calendar at startup

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on payments or notices
  - No DELETE statements anywhere
  - A reused payment or notice ID returns generic.ErrDuplicateID

KEY TABLES:
  tenants:   Rent settings as entered (amounts in cents)
  payments:  Credited payments (amount_cents, date YYYY-MM-DD)
  notices:   Sent notices with OSD, occasion and the remedy snapshot JSON
  holidays:  Extra national or regional holidays

INDEXES:
  - idx_payments_tenant_date: Ledger calculation (hot path)
  - idx_notices_tenant_sent:  Strike memory
  - idx_notices_occasion:     One strike per occasion, enforced in the DB too

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/tenancy.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/tenancy-engine/generic"
)

// Sent times are stored in UTC with a fixed width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL DEFAULT '',
		rent_cents INTEGER NOT NULL DEFAULT 0,
		due_day TEXT NOT NULL DEFAULT '',
		tracking_start TEXT NOT NULL DEFAULT '',
		opening_arrears_cents INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Payments (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
		date TEXT NOT NULL,
		reference TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_tenant_date
		ON payments(tenant_id, date, seq);

	-- Notices (append-only)
	CREATE TABLE IF NOT EXISTS notices (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		type TEXT NOT NULL,
		strike_number INTEGER NOT NULL DEFAULT 0,
		method TEXT NOT NULL,
		sent_at TEXT NOT NULL,
		official_service_date TEXT NOT NULL,
		occasion TEXT NOT NULL DEFAULT '',
		snapshot_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notices_tenant_sent
		ON notices(tenant_id, sent_at, seq);

	-- A due date can ground at most one strike
	CREATE UNIQUE INDEX IF NOT EXISTS idx_notices_occasion
		ON notices(tenant_id, occasion)
		WHERE type = 'STRIKE' AND occasion != '';

	-- Holidays (national when region is empty)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		region TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_region_date
		ON holidays(region, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANTS
// =============================================================================

// SaveTenant inserts or replaces tenant settings.
func (s *Store) SaveTenant(ctx context.Context, t generic.TenantRecord) error {
	if t.ID == "" {
		return generic.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants
		(id, name, region, frequency, rent_cents, due_day, tracking_start, opening_arrears_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			region = excluded.region,
			frequency = excluded.frequency,
			rent_cents = excluded.rent_cents,
			due_day = excluded.due_day,
			tracking_start = excluded.tracking_start,
			opening_arrears_cents = excluded.opening_arrears_cents
	`,
		string(t.ID),
		t.Name,
		t.Region,
		t.Frequency,
		t.RentAmount.Cents(),
		t.DueDay,
		formatDate(t.TrackingStart),
		t.OpeningArrears.Cents(),
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

const tenantColumns = `id, name, region, frequency, rent_cents, due_day, tracking_start, opening_arrears_cents, created_at`

// GetTenant retrieves a tenant by ID.
func (s *Store) GetTenant(ctx context.Context, id generic.TenantID) (*generic.TenantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTenant(ctx, s.db, id)
}

// ListTenants returns all tenants ordered by ID.
func (s *Store) ListTenants(ctx context.Context) ([]generic.TenantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []generic.TenantRecord
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

func getTenant(ctx context.Context, q querier, id generic.TenantID) (*generic.TenantRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, string(id))
	t, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrNotFound
	}
	return t, err
}

func scanTenant(row scanner) (*generic.TenantRecord, error) {
	var t generic.TenantRecord
	var id, trackingStart, createdAt string
	var rentCents, arrearsCents int64
	err := row.Scan(&id, &t.Name, &t.Region, &t.Frequency, &rentCents, &t.DueDay,
		&trackingStart, &arrearsCents, &createdAt)
	if err != nil {
		return nil, err
	}
	t.ID = generic.TenantID(id)
	t.RentAmount = generic.Cents(rentCents)
	t.OpeningArrears = generic.Cents(arrearsCents)
	if t.TrackingStart, err = parseDate(trackingStart); err != nil {
		return nil, err
	}
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &t, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// AppendPayment records a payment. Append-only.
func (s *Store) AppendPayment(ctx context.Context, p generic.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, tenant_id, amount_cents, date, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		string(p.TenantID),
		p.Amount.Cents(),
		formatDate(p.Date),
		nullString(p.Reference),
		created.UTC().Format(timeLayout),
	)
	return appendError("payment", err)
}

// Payments returns a tenant's payments ordered by date, then insertion.
func (s *Store) Payments(ctx context.Context, id generic.TenantID) ([]generic.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPayments(ctx, s.db, id)
}

func queryPayments(ctx context.Context, q querier, id generic.TenantID) ([]generic.PaymentRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, amount_cents, date, reference, created_at
		FROM payments
		WHERE tenant_id = ?
		ORDER BY date ASC, seq ASC
	`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []generic.PaymentRecord
	for rows.Next() {
		var p generic.PaymentRecord
		var tenantID, date, createdAt string
		var cents int64
		var reference sql.NullString
		if err := rows.Scan(&p.ID, &tenantID, &cents, &date, &reference, &createdAt); err != nil {
			return nil, err
		}
		p.TenantID = generic.TenantID(tenantID)
		p.Amount = generic.Cents(cents)
		p.Reference = reference.String
		if p.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// NOTICES
// =============================================================================

// AppendNotice records a sent notice. Append-only.
func (s *Store) AppendNotice(ctx context.Context, n generic.NoticeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var snapshot sql.NullString
	if len(n.Snapshot) > 0 {
		snapshot = sql.NullString{String: string(n.Snapshot), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notices
		(id, tenant_id, type, strike_number, method, sent_at, official_service_date, occasion, snapshot_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID,
		string(n.TenantID),
		n.Type,
		n.StrikeNumber,
		n.Method,
		n.SentAt.UTC().Format(timeLayout),
		formatDate(n.OfficialServiceDate),
		formatDate(n.DueDateForOccasion),
		snapshot,
		created.UTC().Format(timeLayout),
	)
	if isConstraint(err, sqlite3.ErrConstraintUnique) && strings.Contains(err.Error(), "occasion") {
		return &generic.RuleViolation{
			Rule:   generic.ErrDuplicateOccasion,
			Action: "issue_strike",
			Date:   n.DueDateForOccasion,
		}
	}
	return appendError("notice", err)
}

// Notices returns a tenant's notices ordered by sent time.
func (s *Store) Notices(ctx context.Context, id generic.TenantID) ([]generic.NoticeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryNotices(ctx, s.db, id)
}

func queryNotices(ctx context.Context, q querier, id generic.TenantID) ([]generic.NoticeRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, type, strike_number, method, sent_at, official_service_date,
		       occasion, snapshot_json, created_at
		FROM notices
		WHERE tenant_id = ?
		ORDER BY sent_at ASC, seq ASC
	`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notices []generic.NoticeRecord
	for rows.Next() {
		var n generic.NoticeRecord
		var tenantID, sentAt, osd, occasion, createdAt string
		var snapshot sql.NullString
		if err := rows.Scan(&n.ID, &tenantID, &n.Type, &n.StrikeNumber, &n.Method,
			&sentAt, &osd, &occasion, &snapshot, &createdAt); err != nil {
			return nil, err
		}
		n.TenantID = generic.TenantID(tenantID)
		if n.SentAt, err = time.Parse(timeLayout, sentAt); err != nil {
			return nil, fmt.Errorf("notice %s: sent_at: %w", n.ID, err)
		}
		if n.OfficialServiceDate, err = parseDate(osd); err != nil {
			return nil, err
		}
		if n.DueDateForOccasion, err = parseDate(occasion); err != nil {
			return nil, err
		}
		if snapshot.Valid {
			n.Snapshot = []byte(snapshot.String)
		}
		n.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// LoadSnapshot reads tenant, payments and notices in one transaction.
func (s *Store) LoadSnapshot(ctx context.Context, id generic.TenantID) (*generic.TenantSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tenant, err := getTenant(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	payments, err := queryPayments(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	notices, err := queryNotices(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &generic.TenantSnapshot{Tenant: *tenant, Payments: payments, Notices: notices}, nil
}

// =============================================================================
// HOLIDAYS (generic.HolidayStore interface)
// =============================================================================

// SaveHoliday upserts a holiday by region and date.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	if h.Date.IsZero() {
		return generic.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, region, date, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(region, date) DO UPDATE SET name = excluded.name
	`, h.ID, h.Region, formatDate(h.Date), h.Name, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// ListHolidays returns all stored holidays ordered by date.
func (s *Store) ListHolidays(ctx context.Context) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region, date, name FROM holidays ORDER BY date, region
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var date string
		if err := rows.Scan(&h.ID, &h.Region, &date, &h.Name); err != nil {
			return nil, err
		}
		if h.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func formatDate(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}

func parseDate(s string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, nil
	}
	return generic.ParseDate(s)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func appendError(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case isConstraint(err, sqlite3.ErrConstraintUnique), isConstraint(err, sqlite3.ErrConstraintPrimaryKey):
		return fmt.Errorf("%s: %w", what, generic.ErrDuplicateID)
	case isConstraint(err, sqlite3.ErrConstraintForeignKey):
		return fmt.Errorf("%s: tenant: %w", what, generic.ErrNotFound)
	default:
		return fmt.Errorf("failed to append %s: %w", what, err)
	}
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}

var (
	_ generic.Store        = (*Store)(nil)
	_ generic.HolidayStore = (*Store)(nil)
)
