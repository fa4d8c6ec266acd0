package lessons

import (
	"sort"
	"strings"

	"schedule-sync-bot/internal/models"
)

// Select keeps the lessons of one group on one weekday of one parity,
// ordered by start time.
func Select(all []models.Lesson, group string, day models.Weekday, parity models.Parity) []models.Lesson {
	var out []models.Lesson
	for _, l := range all {
		if l.Day == day && l.Parity == parity && strings.EqualFold(l.Group, group) {
			out = append(out, l)
		}
	}
	SortByStart(out)
	return out
}

// SortByStart orders lessons by start minute. Unparsable times go last and
// keep their relative order.
func SortByStart(ls []models.Lesson) {
	sort.SliceStable(ls, func(i, j int) bool {
		return SortKey(ls[i].Range) < SortKey(ls[j].Range)
	})
}

// CurrentOrNext returns the earliest lesson whose end is still ahead of
// minute, so a lesson in progress is kept until it ends. Nil means no more
// lessons today. ls must be sorted.
func CurrentOrNext(ls []models.Lesson, minute int) *models.Lesson {
	for i := range ls {
		if ls[i].Range.Valid && ls[i].Range.End > minute {
			return &ls[i]
		}
	}
	return nil
}
