// Package workhours estimates working time between two timestamps on a
// day-granular calendar with Saturday and Sunday off.
package workhours

import (
	"errors"
	"time"
)

const (
	HoursPerDay  = 8
	HoursPerWeek = 5 * HoursPerDay
)

var ErrInvertedRange = errors.New("end is before start")

const day = 24 * time.Hour

// WorkingHours returns the estimated working hours between start and end.
// Elapsed time is floored to whole days, so any span shorter than a day is 0.
// Weekdays are evaluated in start's location.
func WorkingHours(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, ErrInvertedRange
	}
	return WorkingDays(start, int(end.Sub(start)/day)) * HoursPerDay, nil
}

// WorkingDays counts the non-weekend days among the elapsedDays days that
// follow start, start's weekday included.
func WorkingDays(start time.Time, elapsedDays int) int {
	if elapsedDays <= 0 {
		return 0
	}
	fullWeeks := elapsedDays / 7
	remainder := elapsedDays % 7

	weekendDays := fullWeeks * 2
	startDay := int(start.Weekday())
	for i := 0; i < remainder; i++ {
		switch time.Weekday((startDay + i) % 7) {
		case time.Saturday, time.Sunday:
			weekendDays++
		}
	}
	return elapsedDays - weekendDays
}
