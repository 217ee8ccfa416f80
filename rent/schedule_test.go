package rent_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tenancy-engine/generic"
	"github.com/warp/tenancy-engine/rent"
)

func date(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

func TestFirstDueDate(t *testing.T) {
	tests := []struct {
		name     string
		settings rent.Settings
		want     generic.TimePoint
	}{
		{
			name:     "weekly on the start weekday",
			settings: rent.Settings{Frequency: rent.Weekly, DueDay: "Wednesday", TrackingStart: date(2025, time.January, 1)},
			want:     date(2025, time.January, 1),
		},
		{
			name:     "weekly rolls to the next due weekday",
			settings: rent.Settings{Frequency: rent.Weekly, DueDay: "fri", TrackingStart: date(2025, time.January, 1)},
			want:     date(2025, time.January, 3),
		},
		{
			name:     "fortnightly",
			settings: rent.Settings{Frequency: rent.Fortnightly, DueDay: "Monday", TrackingStart: date(2025, time.January, 1)},
			want:     date(2025, time.January, 6),
		},
		{
			name:     "monthly later in the start month",
			settings: rent.Settings{Frequency: rent.Monthly, DueDay: "15", TrackingStart: date(2025, time.January, 10)},
			want:     date(2025, time.January, 15),
		},
		{
			name:     "monthly already passed moves to next month",
			settings: rent.Settings{Frequency: rent.Monthly, DueDay: "5", TrackingStart: date(2025, time.January, 10)},
			want:     date(2025, time.February, 5),
		},
		{
			name:     "monthly clamped in a short start month",
			settings: rent.Settings{Frequency: rent.Monthly, DueDay: "31", TrackingStart: date(2025, time.February, 3)},
			want:     date(2025, time.February, 28),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := rent.NewSchedule(tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.FirstDueDate())
		})
	}
}

func TestMonthlyClampingDoesNotStick(t *testing.T) {
	// GIVEN: due day 31 from January in a leap year
	s, err := rent.NewSchedule(rent.Settings{
		Frequency:     rent.Monthly,
		DueDay:        "31",
		TrackingStart: date(2024, time.January, 1),
	})
	require.NoError(t, err)

	// WHEN: generating through June
	got := s.DueDatesThrough(date(2024, time.June, 30))

	// THEN: short months clamp, and the following month returns to the 31st
	assert.Equal(t, []generic.TimePoint{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
		date(2024, time.May, 31),
		date(2024, time.June, 30),
	}, got)
	assert.Equal(t, date(2025, time.March, 31), s.NextDueDate(date(2025, time.February, 28)))
}

func TestCycleLengthDays(t *testing.T) {
	weekly, err := rent.NewSchedule(rent.Settings{Frequency: rent.Weekly, DueDay: "Mon", TrackingStart: date(2025, time.January, 6)})
	require.NoError(t, err)
	assert.Equal(t, 7, weekly.CycleLengthDays(date(2025, time.January, 6)))

	fortnightly, err := rent.NewSchedule(rent.Settings{Frequency: rent.Fortnightly, DueDay: "Mon", TrackingStart: date(2025, time.January, 6)})
	require.NoError(t, err)
	assert.Equal(t, 14, fortnightly.CycleLengthDays(date(2025, time.January, 6)))

	monthly, err := rent.NewSchedule(rent.Settings{Frequency: rent.Monthly, DueDay: "31", TrackingStart: date(2025, time.January, 1)})
	require.NoError(t, err)
	assert.Equal(t, 28, monthly.CycleLengthDays(date(2025, time.January, 31)))
	assert.Equal(t, 31, monthly.CycleLengthDays(date(2025, time.February, 28)))
}

func TestFindNextDueDateAfter(t *testing.T) {
	weekly, err := rent.NewSchedule(rent.Settings{Frequency: rent.Weekly, DueDay: "Wednesday", TrackingStart: date(2025, time.January, 1)})
	require.NoError(t, err)
	anchor := weekly.FirstDueDate()

	assert.Equal(t, date(2025, time.January, 29), weekly.FindNextDueDateAfter(date(2025, time.January, 22), anchor),
		"a due date itself is not strictly after")
	assert.Equal(t, date(2025, time.January, 29), weekly.FindNextDueDateAfter(date(2025, time.January, 23), anchor))
	assert.Equal(t, anchor, weekly.FindNextDueDateAfter(date(2024, time.December, 1), anchor))

	monthly, err := rent.NewSchedule(rent.Settings{Frequency: rent.Monthly, DueDay: "30", TrackingStart: date(2025, time.January, 1)})
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.March, 30), monthly.FindNextDueDateAfter(date(2025, time.February, 28), monthly.FirstDueDate()))
}

func TestIsDueDate(t *testing.T) {
	s, err := rent.NewSchedule(rent.Settings{Frequency: rent.Fortnightly, DueDay: "Wednesday", TrackingStart: date(2025, time.January, 1)})
	require.NoError(t, err)

	assert.True(t, s.IsDueDate(date(2025, time.January, 1)))
	assert.True(t, s.IsDueDate(date(2025, time.January, 15)))
	assert.False(t, s.IsDueDate(date(2025, time.January, 8)))
	assert.False(t, s.IsDueDate(date(2024, time.December, 18)), "before the first due date")
}

func TestNewSchedule_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		settings rent.Settings
		field    string
	}{
		{"missing frequency", rent.Settings{DueDay: "Mon", TrackingStart: date(2025, time.January, 1)}, "frequency"},
		{"missing due day", rent.Settings{Frequency: rent.Weekly, TrackingStart: date(2025, time.January, 1)}, "due_day"},
		{"missing tracking start", rent.Settings{Frequency: rent.Weekly, DueDay: "Mon"}, "tracking_start"},
		{"numeric day for weekly", rent.Settings{Frequency: rent.Weekly, DueDay: "3", TrackingStart: date(2025, time.January, 1)}, "due_day"},
		{"day 32 for monthly", rent.Settings{Frequency: rent.Monthly, DueDay: "32", TrackingStart: date(2025, time.January, 1)}, "due_day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rent.NewSchedule(tt.settings)
			require.ErrorIs(t, err, generic.ErrInsufficientConfiguration)

			var cfg *generic.ConfigError
			require.ErrorAs(t, err, &cfg)
			assert.Contains(t, cfg.Fields, tt.field)
		})
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := rent.ParseFrequency(" Fortnightly ")
	require.NoError(t, err)
	assert.Equal(t, rent.Fortnightly, f)

	_, err = rent.ParseFrequency("quarterly")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestCyclesElapsedMatchesDueDates(t *testing.T) {
	settingsList := []rent.Settings{
		{Frequency: rent.Weekly, DueDay: "Wednesday", TrackingStart: date(2025, time.January, 1)},
		{Frequency: rent.Fortnightly, DueDay: "Friday", TrackingStart: date(2025, time.January, 1)},
		{Frequency: rent.Monthly, DueDay: "31", TrackingStart: date(2025, time.January, 15)},
	}
	for _, settings := range settingsList {
		s, err := rent.NewSchedule(settings)
		require.NoError(t, err)
		for offset := -3; offset <= 120; offset++ {
			asOf := date(2025, time.January, 1).AddDays(offset)
			assert.Equal(t, len(s.DueDatesThrough(asOf)), s.CyclesElapsed(asOf),
				"%s as of %s", settings.Frequency, asOf)
		}
	}
}
