// Package rent implements the rent schedule and the ledger calculator.
// Everything here is a pure function of settings, payments and an explicit
// as-of date; a ledger is recomputed from scratch on every call.
package rent

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warp/tenancy-engine/generic"
)

// =============================================================================
// FREQUENCY
// =============================================================================

type Frequency string

const (
	Weekly      Frequency = "weekly"
	Fortnightly Frequency = "fortnightly"
	Monthly     Frequency = "monthly"
)

// ParseFrequency is case-insensitive. The empty string is returned as-is so
// Validate can report it as missing.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Weekly, Fortnightly, Monthly, "":
		return f, nil
	default:
		return "", fmt.Errorf("frequency %q: %w", s, generic.ErrInvalidInput)
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is a tenant's rent configuration. Immutable once a calculation
// begins.
type Settings struct {
	Frequency      Frequency
	RentAmount     generic.Money
	DueDay         string // weekday name (weekly/fortnightly) or "1".."31" (monthly)
	TrackingStart  generic.TimePoint
	OpeningArrears generic.Money
}

// Validate reports every missing or invalid field at once.
func (s Settings) Validate() error {
	var fields []string
	var reasons []string

	if !s.RentAmount.IsPositive() {
		fields = append(fields, "rent_amount")
	}
	if s.Frequency == "" {
		fields = append(fields, "frequency")
	}
	if strings.TrimSpace(s.DueDay) == "" {
		fields = append(fields, "due_day")
	} else if s.Frequency != "" {
		if _, _, err := parseDueDay(s.Frequency, s.DueDay); err != nil {
			fields = append(fields, "due_day")
			reasons = append(reasons, err.Error())
		}
	}
	if s.TrackingStart.IsZero() {
		fields = append(fields, "tracking_start")
	}
	if s.OpeningArrears.IsNegative() {
		fields = append(fields, "opening_arrears")
		reasons = append(reasons, "opening arrears cannot be negative")
	}

	if len(fields) == 0 {
		return nil
	}
	return &generic.ConfigError{Fields: fields, Reason: strings.Join(reasons, "; ")}
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// parseDueDay resolves the due-day descriptor for a frequency.
func parseDueDay(f Frequency, raw string) (time.Weekday, int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch f {
	case Weekly, Fortnightly:
		wd, ok := weekdays[v]
		if !ok {
			return 0, 0, fmt.Errorf("due day %q is not a weekday", raw)
		}
		return wd, 0, nil
	case Monthly:
		day, err := strconv.Atoi(v)
		if err != nil || day < 1 || day > 31 {
			return 0, 0, fmt.Errorf("due day %q is not a day of month 1-31", raw)
		}
		return 0, day, nil
	default:
		return 0, 0, fmt.Errorf("unknown frequency %q", f)
	}
}
