// Package parity computes odd/even academic weeks. Week 1 starts on the
// Monday of the week that contains September 1 and is odd.
package parity

import (
	"time"

	"schedule-sync-bot/internal/models"
)

// For returns the parity of the civil date of t in t's location.
func For(t time.Time) models.Parity {
	if WeekIndex(t)%2 == 0 {
		return models.ParityOdd
	}
	return models.ParityEven
}

// WeekIndex is the zero-based number of the week since the anchor Monday.
// Dates before the anchor get negative indexes.
func WeekIndex(t time.Time) int {
	d := civil(t)
	days := int(d.Sub(Anchor(d)).Hours() / 24)
	return floorDiv(days, 7)
}

// Anchor returns the Monday of the week holding September 1 of the academic
// year t belongs to. The year starts in September.
func Anchor(t time.Time) time.Time {
	y := t.Year()
	if t.Month() < time.September {
		y--
	}
	sep1 := time.Date(y, time.September, 1, 0, 0, 0, 0, time.UTC)
	return sep1.AddDate(0, 0, -daysSinceMonday(sep1))
}

// Monday returns the Monday of t's week at midnight in t's location.
func Monday(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -daysSinceMonday(d))
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
