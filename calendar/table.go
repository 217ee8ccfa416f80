package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/tenancy-engine/generic"
)

// =============================================================================
// HOLIDAY TABLE - Static configuration loaded once at process start
// =============================================================================

// Table is the on-disk holiday configuration:
//
//	location: Pacific/Auckland
//	summer_blackout: true
//	blackouts:
//	  - {start: 2025-12-20, end: 2026-01-12}
//	holidays:
//	  - {date: 2025-11-14, region: CAN, name: Show Day}
//	  - {date: 2026-01-05, name: Court closure}
type Table struct {
	Location       string            `yaml:"location"`
	SummerBlackout bool              `yaml:"summer_blackout"`
	Blackouts      []generic.Period  `yaml:"blackouts"`
	Holidays       []generic.Holiday `yaml:"holidays"`
}

// LoadTable reads a YAML holiday table from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holiday table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML holiday table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse holiday table: %w", err)
	}
	for i, p := range t.Blackouts {
		if p.Start.IsZero() || p.End.IsZero() || !p.Valid() {
			return nil, fmt.Errorf("blackout %d %s: %w", i, p, generic.ErrInvalidInput)
		}
	}
	for i, h := range t.Holidays {
		if h.Date.IsZero() {
			return nil, fmt.Errorf("holiday %d (%s) has no date: %w", i, h.Name, generic.ErrInvalidInput)
		}
	}
	return &t, nil
}

// Options converts the table into Calendar options.
func (t *Table) Options() ([]Option, error) {
	var opts []Option
	if t.Location != "" {
		loc, err := time.LoadLocation(t.Location)
		if err != nil {
			return nil, fmt.Errorf("holiday table location %q: %w", t.Location, err)
		}
		opts = append(opts, WithLocation(loc))
	}
	if t.SummerBlackout {
		opts = append(opts, WithSummerBlackout())
	}
	for _, p := range t.Blackouts {
		opts = append(opts, WithBlackout(p))
	}
	if len(t.Holidays) > 0 {
		opts = append(opts, WithHolidays(t.Holidays...))
	}
	return opts, nil
}

// SyncHolidays saves the table's holidays into hs and returns an option
// carrying every stored holiday, including those saved by earlier runs.
func (t *Table) SyncHolidays(ctx context.Context, hs generic.HolidayStore) (Option, error) {
	for _, h := range t.Holidays {
		if err := hs.SaveHoliday(ctx, h); err != nil {
			return nil, fmt.Errorf("save holiday %s: %w", h.Date, err)
		}
	}
	return StoredHolidays(ctx, hs)
}

// StoredHolidays loads the holidays kept in hs.
func StoredHolidays(ctx context.Context, hs generic.HolidayStore) (Option, error) {
	stored, err := hs.ListHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return WithHolidays(stored...), nil
}
