// Package schedule ties a spreadsheet source to the lesson extractor and
// answers "what does this group have on this date".
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"schedule-sync-bot/internal/grid"
	"schedule-sync-bot/internal/lessons"
	"schedule-sync-bot/internal/models"
	"schedule-sync-bot/internal/parity"
)

const sheetKey = "sheet"

// Source returns the raw timetable sheet with links and merges.
type Source interface {
	FetchValuesAndLinks(ctx context.Context) (*grid.Sheet, error)
}

// Loader re-reads the sheet on every call unless a copy younger than the
// cache TTL is at hand. Keep the TTL below the scheduler tick so every tick
// sees a fresh sheet.
type Loader struct {
	log       *slog.Logger
	src       Source
	extractor *lessons.Extractor
	cache     *cache.Cache
}

func NewLoader(log *slog.Logger, src Source, extractor *lessons.Extractor, ttl time.Duration) *Loader {
	return &Loader{
		log:       log,
		src:       src,
		extractor: extractor,
		cache:     cache.New(ttl, 2*ttl),
	}
}

// Sheet returns the normalized sheet.
func (l *Loader) Sheet(ctx context.Context) (*grid.Sheet, error) {
	const op = "schedule.Loader.Sheet"

	if v, ok := l.cache.Get(sheetKey); ok {
		return v.(*grid.Sheet), nil
	}

	raw, err := l.src.FetchValuesAndLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s := grid.Expand(raw)

	l.cache.SetDefault(sheetKey, s)
	l.log.Debug("sheet loaded",
		slog.String("op", op),
		slog.Int("rows", len(s.Values)),
		slog.Int("merges", len(s.Merges)),
	)
	return s, nil
}

// Lessons returns every lesson of the sheet.
func (l *Loader) Lessons(ctx context.Context) ([]models.Lesson, error) {
	s, err := l.Sheet(ctx)
	if err != nil {
		return nil, err
	}
	return l.extractor.Extract(s.Values, s.Links), nil
}

// Groups lists the group codes of a course ("" for all).
func (l *Loader) Groups(ctx context.Context, course string) ([]string, error) {
	s, err := l.Sheet(ctx)
	if err != nil {
		return nil, err
	}
	return lessons.Groups(s.Values, course), nil
}

// Invalidate drops the cached sheet.
func (l *Loader) Invalidate() {
	l.cache.Delete(sheetKey)
}

// Day filters lessons of group for the civil date of t, using t's week
// parity, sorted by start time.
func Day(all []models.Lesson, group string, t time.Time) []models.Lesson {
	return lessons.Select(all, group, models.WeekdayOf(t), parity.For(t))
}
