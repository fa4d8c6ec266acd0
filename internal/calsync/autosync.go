package calsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"schedule-sync-bot/internal/lib/logger/sl"
	"schedule-sync-bot/internal/models"
	"schedule-sync-bot/internal/utils"
)

const rollingDays = 7

// RunKey names one autosync run; a run whose key matches the stored one
// has already happened.
func RunKey(mode models.AutosyncMode, now time.Time) string {
	y, w := now.ISOWeek()
	switch mode {
	case models.AutosyncWeekly:
		return fmt.Sprintf("weekly:%d-W%02d", y, w)
	case models.AutosyncWeeklyTwo:
		return fmt.Sprintf("weekly_two:%d-W%02d", y, w)
	case models.AutosyncRolling7:
		return "rolling7:" + utils.DateKey(now)
	default:
		return "daily:" + utils.DateKey(now)
	}
}

// Tick runs due autosyncs. Only a failure to list users is returned; a sheet
// read error is logged for every due user and leaves their key unset.
func (e *Engine) Tick(ctx context.Context) error {
	const op = "calsync.Engine.Tick"

	users, err := e.store.ListAutosyncUsers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var (
		all     []models.Lesson
		loadErr error
		loaded  bool
	)
	for i := range users {
		u := &users[i]
		now := e.now(u)
		key, due := e.due(u, now)
		if !due {
			continue
		}

		if !loaded {
			all, loadErr = e.src.Lessons(ctx)
			loaded = true
		}
		if loadErr != nil {
			e.log.Error("autosync skipped, schedule unavailable",
				slog.String("op", op), sl.ChatID(u.ChatID), slog.String("key", key), sl.Err(loadErr))
			continue
		}

		res, err := e.run(ctx, u, all)
		if err != nil {
			level := slog.LevelError
			if IsNotConnected(err) {
				level = slog.LevelWarn
			}
			e.log.Log(ctx, level, "autosync failed",
				slog.String("op", op), sl.ChatID(u.ChatID), slog.String("key", key), sl.Err(err))
			continue
		}
		if err := e.store.SetAutosyncRunKey(ctx, u.ChatID, key); err != nil {
			e.log.Error("failed to store autosync key", sl.ChatID(u.ChatID), sl.Err(err))
			continue
		}
		e.log.Info("autosync done", sl.ChatID(u.ChatID), slog.String("key", key),
			slog.Int("ok", res.OK), slog.Int("failed", res.Failed))
	}
	return nil
}

func (e *Engine) due(u *models.User, now time.Time) (string, bool) {
	a := u.Calendar.Autosync
	if !a.Enabled || !u.Calendar.Connected || u.Group == "" {
		return "", false
	}
	if utils.HHMM(now) != a.Time {
		return "", false
	}
	if a.Mode == models.AutosyncWeekly || a.Mode == models.AutosyncWeeklyTwo {
		if (int(now.Weekday())+6)%7 != a.Weekday {
			return "", false
		}
	}
	key := RunKey(a.Mode, now)
	return key, key != a.LastRunKey
}

func (e *Engine) run(ctx context.Context, u *models.User, all []models.Lesson) (Result, error) {
	switch u.Calendar.Autosync.Mode {
	case models.AutosyncWeekly:
		return e.replaceWeeks(ctx, u, all, 1)
	case models.AutosyncWeeklyTwo:
		return e.replaceWeeks(ctx, u, all, 2)
	case models.AutosyncRolling7:
		return e.syncDays(ctx, u, all, e.nextDays(u, rollingDays))
	default:
		return e.syncDays(ctx, u, all, []time.Time{e.today(u)})
	}
}

// replaceWeeks purges the bot's events of the coming weeks and writes them
// again, so lessons removed from the sheet disappear from the calendar.
func (e *Engine) replaceWeeks(ctx context.Context, u *models.User, all []models.Lesson, weeks int) (Result, error) {
	if _, err := e.PurgeWeeks(ctx, u, weeks); err != nil {
		return Result{}, err
	}
	var total Result
	for w := 0; w < weeks; w++ {
		res, err := e.syncDays(ctx, u, all, e.week(u, w))
		if err != nil {
			return total, err
		}
		total.Add(res)
	}
	return total, nil
}
