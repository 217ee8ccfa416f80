package generic

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] date range. It backs blackout periods
// in the calendar and the rolling strike window.
//
// Examples:
//   - Summer blackout: 25 Dec 2024 - 15 Jan 2025
//   - Strike memory at 2025-04-01: 2025-01-01 - 2025-04-01
type Period struct {
	Start TimePoint `json:"start" yaml:"start"`
	End   TimePoint `json:"end" yaml:"end"`
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Valid reports whether End is not before Start.
func (p Period) Valid() bool {
	return !p.End.Before(p.Start)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// TrailingWindow returns the inclusive window of the given number of days
// ending at asOf: [asOf - days, asOf].
func TrailingWindow(asOf TimePoint, days int) Period {
	return Period{Start: asOf.AddDays(-days), End: asOf}
}
