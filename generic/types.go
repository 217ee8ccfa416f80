/*
Package generic provides the primitives shared by the tenancy engine.

PURPOSE:
  Rent ledgers, notice deadlines and strike windows all reduce to two
  things: calendar dates and money. This package holds both, plus the error
  taxonomy and the persistence interfaces the surrounding application uses.
  Nothing here knows about the Residential Tenancies Act.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: integer cents, parsed and rendered through decimal.Decimal
  - Diagnostic: advisory finding that never blocks a computation
  - TenantID: type-safe identifier

DESIGN PRINCIPLES:
  1. Precision: money is accumulated in cents, never float64
  2. Money-zero: a balance within one cent of zero is zero
  3. Determinism: values only, no clocks, no globals

USAGE:
  rent := generic.MustParseMoney("500.00")
  owed := rent.Mul(3).Add(generic.Cents(2500))
  fmt.Println(owed) // 1525.00

SEE ALSO:
  - time.go: TimePoint and holiday types
  - errors.go: Error taxonomy
  - store.go: Persistence interfaces
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer minor units
// =============================================================================

// Money is an amount in cents.
type Money int64

var hundred = decimal.NewFromInt(100)

// Cents builds Money from minor units.
func Cents(c int64) Money { return Money(c) }

// Dollars builds Money from whole major units.
func Dollars(d int64) Money { return Money(d * 100) }

// MoneyFromDecimal rounds d half away from zero to the nearest cent.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(hundred).Round(0).IntPart())
}

// ParseMoney parses a decimal string such as "500", "499.95" or "-12.5".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, ErrInvalidInput)
	}
	return MoneyFromDecimal(d), nil
}

// MustParseMoney is for tables and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Cents() int64              { return int64(m) }
func (m Money) Decimal() decimal.Decimal  { return decimal.New(int64(m), -2) }
func (m Money) String() string            { return m.Decimal().StringFixed(2) }
func (m Money) Add(o Money) Money         { return m + o }
func (m Money) Sub(o Money) Money         { return m - o }
func (m Money) Mul(n int) Money           { return m * Money(n) }
func (m Money) GreaterThan(o Money) bool  { return m > o }
func (m Money) LessThan(o Money) bool     { return m < o }
func (m Money) Min(o Money) Money {
	if m < o {
		return m
	}
	return o
}

// IsZero is the money-zero test: within one cent of zero.
func (m Money) IsZero() bool { return m > -1 && m < 1 }

// IsPositive is true when m owes at least one cent.
func (m Money) IsPositive() bool { return !m.IsZero() && m > 0 }

// IsNegative is true when m is a credit of at least one cent.
func (m Money) IsNegative() bool { return !m.IsZero() && m < 0 }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string

// =============================================================================
// DIAGNOSTICS - Advisory, never fatal
// =============================================================================

type DiagnosticCode string

const (
	// DiagSettingDrift: a recorded due date is not on the current schedule,
	// typically because the due day changed after records existed.
	DiagSettingDrift DiagnosticCode = "setting_drift"

	// DiagBeforeTrackingStart: a payment or notice predates tracking start.
	DiagBeforeTrackingStart DiagnosticCode = "before_tracking_start"

	// DiagInsufficientConfiguration: the ledger could not be computed and the
	// status is an estimate from notices only.
	DiagInsufficientConfiguration DiagnosticCode = "insufficient_configuration"

	// DiagInvalidPayment: a payment with a non-positive amount was skipped.
	DiagInvalidPayment DiagnosticCode = "invalid_payment"

	// DiagMissingSnapshot: a remedy notice has no debt snapshot.
	DiagMissingSnapshot DiagnosticCode = "missing_snapshot"
)

// Diagnostic is a non-fatal finding the caller may surface.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Message string         `json:"message"`
	Date    TimePoint      `json:"date,omitempty"`
	Ref     string         `json:"ref,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Date.IsZero() {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Code, d.Message, d.Date)
}
