/*
errors.go - Centralized error types for the tenancy engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Configuration errors - settings too incomplete to compute a ledger
  2. Rule violations - a notice the law does not permit right now
  3. Store errors - persistence failures and lookups
  4. Anomalies - NOT errors; see Diagnostic in types.go

PROPAGATION:
  Configuration errors and rule violations are returned, never panicked,
  because callers branch on them in normal control flow:

    state, err := rent.Calculate(settings, payments, asOf)
    if errors.Is(err, generic.ErrInsufficientConfiguration) {
        // fall back to a status-only estimate
    }

SEE ALSO:
  - rent/ledger.go: Returns ConfigError
  - compliance/strikes.go: Returns RuleViolation
  - store.go: Uses store errors
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientConfiguration is returned when rent settings are missing
	// a field the ledger cannot default.
	ErrInsufficientConfiguration = errors.New("insufficient configuration")

	// ErrDuplicateOccasion is returned when a strike names a due date that an
	// earlier strike already addressed.
	ErrDuplicateOccasion = errors.New("strike already issued for this occasion")

	// ErrSameDayStrike is returned when a strike would be sent on the same
	// local day as another strike.
	ErrSameDayStrike = errors.New("strike already issued on this day")

	// ErrMissingOccasion is returned when a strike names no due date.
	ErrMissingOccasion = errors.New("strike must name the rent due date it addresses")

	// ErrNotEligible is returned when the requested notice is not currently
	// permitted for the tenant.
	ErrNotEligible = errors.New("action not currently eligible")

	// ErrNothingOwed is returned when a debt snapshot would be empty.
	ErrNothingOwed = errors.New("no outstanding debt")

	// ErrInvalidInput is returned for malformed values (dates, money, enums).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a tenant or record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned when an append reuses an existing ID.
	ErrDuplicateID = errors.New("duplicate id")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError lists the settings fields that are missing or invalid.
type ConfigError struct {
	Fields []string
	Reason string
}

func (e *ConfigError) Error() string {
	msg := "insufficient configuration"
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return ErrInsufficientConfiguration
}

// RuleViolation is a rejected legal action. It does not abort unrelated
// computation; the status for the tenant is still produced.
type RuleViolation struct {
	Rule    error  // one of the sentinel rule errors
	Action  string // e.g. "issue_strike"
	Date    TimePoint
	Message string
}

func (e *RuleViolation) Error() string {
	msg := e.Rule.Error()
	if e.Message != "" {
		msg = e.Message
	}
	if e.Date.IsZero() {
		return fmt.Sprintf("%s rejected: %s", e.Action, msg)
	}
	return fmt.Sprintf("%s rejected: %s (%s)", e.Action, msg, e.Date)
}

func (e *RuleViolation) Unwrap() error {
	return e.Rule
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRuleViolation returns true if err is a rejected legal action.
func IsRuleViolation(err error) bool {
	var rv *RuleViolation
	return errors.As(err, &rv)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientConfiguration) ||
		errors.Is(err, ErrNothingOwed) ||
		errors.Is(err, ErrDuplicateID) ||
		IsRuleViolation(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
