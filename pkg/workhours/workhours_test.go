package workhours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

func TestWorkingHours(t *testing.T) {
	saturday := time.Date(2024, time.January, 6, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"monday to next monday", monday, monday.AddDate(0, 0, 7), 40},
		{"same calendar day", monday, monday.Add(7 * time.Hour), 0},
		{"identical timestamps", monday, monday, 0},
		{"just under a day", monday, monday.Add(23*time.Hour + 59*time.Minute), 0},
		{"saturday to wednesday", saturday, saturday.AddDate(0, 0, 4), 16},
		{"monday to friday", monday, monday.AddDate(0, 0, 4), 32},
		{"monday to saturday", monday, monday.AddDate(0, 0, 5), 40},
		{"two weeks and a day", monday, monday.AddDate(0, 0, 15), 88},
		{"friday to monday", monday.AddDate(0, 0, 4), monday.AddDate(0, 0, 7), 8},
		{"sunday to sunday", saturday.AddDate(0, 0, 1), saturday.AddDate(0, 0, 8), 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WorkingHours(tt.start, tt.end)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkingHours_InvertedRange(t *testing.T) {
	_, err := WorkingHours(monday.AddDate(0, 0, 1), monday)
	assert.ErrorIs(t, err, ErrInvertedRange)
}

func TestWorkingHours_UsesStartLocationForWeekday(t *testing.T) {
	// 23:30 UTC on Friday is already Saturday in Warsaw.
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Skip("tzdata not available")
	}
	fridayNightUtc := time.Date(2024, time.January, 5, 23, 30, 0, 0, time.UTC)

	utcHours, err := WorkingHours(fridayNightUtc, fridayNightUtc.AddDate(0, 0, 1))
	assert.NoError(t, err)
	assert.Equal(t, 8, utcHours)

	local := fridayNightUtc.In(warsaw)
	localHours, err := WorkingHours(local, local.AddDate(0, 0, 1))
	assert.NoError(t, err)
	assert.Equal(t, 0, localHours)
}

func TestWorkingDays_NeverExceedsElapsedDays(t *testing.T) {
	for startOffset := 0; startOffset < 7; startOffset++ {
		start := monday.AddDate(0, 0, startOffset)
		for elapsed := 0; elapsed <= 30; elapsed++ {
			got := WorkingDays(start, elapsed)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, elapsed)
		}
	}
}
