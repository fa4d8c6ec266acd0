// Package autosend pushes the schedule to subscribers: a once-a-day digest
// or a single "next lesson" card that is edited in place during the day.
package autosend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"schedule-sync-bot/internal/lessons"
	"schedule-sync-bot/internal/lib/logger/sl"
	"schedule-sync-bot/internal/messages"
	"schedule-sync-bot/internal/models"
	"schedule-sync-bot/internal/parity"
	"schedule-sync-bot/internal/schedule"
	"schedule-sync-bot/internal/utils"
)

type Store interface {
	ListAutosendUsers(ctx context.Context) ([]models.User, error)
	MarkDigestSent(ctx context.Context, chatID int64, date string) error
	SaveLiveCard(ctx context.Context, chatID int64, msgID int, key, date string) error
	SetLiveKey(ctx context.Context, chatID int64, key string) error
	ResetLiveMessage(ctx context.Context, chatID int64) error
}

type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
}

type LessonSource interface {
	Lessons(ctx context.Context) ([]models.Lesson, error)
}

type Notifier struct {
	log       *slog.Logger
	store     Store
	msg       Messenger
	src       LessonSource
	clock     clockwork.Clock
	defaultTZ string
}

func New(log *slog.Logger, store Store, msg Messenger, src LessonSource, clock clockwork.Clock, defaultTZ string) *Notifier {
	return &Notifier{
		log:       log,
		store:     store,
		msg:       msg,
		src:       src,
		clock:     clock,
		defaultTZ: defaultTZ,
	}
}

// Tick runs one pass over all subscribers. Only a failure to list users is
// returned; per-user problems, a sheet read error included, are logged.
func (n *Notifier) Tick(ctx context.Context) error {
	const op = "autosend.Notifier.Tick"

	users, err := n.store.ListAutosendUsers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lc := &lazyLessons{src: n.src}
	for _, u := range users {
		if u.Group == "" {
			continue
		}
		if err := n.processUser(ctx, u, lc); err != nil {
			n.log.Error("autosend failed",
				slog.String("op", op), sl.ChatID(u.ChatID), sl.Err(err))
		}
	}
	return nil
}

func (n *Notifier) processUser(ctx context.Context, u models.User, lc *lazyLessons) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	now := n.clock.Now().In(utils.Location(u.TZ, n.defaultTZ))
	today := utils.DateKey(now)
	a := u.Autosend
	atSendTime := utils.HHMM(now) == a.SendTime
	sentToday := a.LastSentDate != nil && *a.LastSentDate == today

	switch a.Mode {
	case models.AutosendDigest:
		if !atSendTime || sentToday {
			return nil
		}
		day, err := n.day(ctx, lc, u.Group, now)
		if err != nil {
			return err
		}
		text := messages.Day(u.Group, models.WeekdayOf(now), parity.For(now), day)
		if _, err := n.msg.Send(ctx, u.ChatID, text); err != nil {
			return err
		}
		n.log.Info("digest sent", sl.ChatID(u.ChatID), slog.Int("lessons", len(day)))
		return n.store.MarkDigestSent(ctx, u.ChatID, today)

	case models.AutosendLive:
		if atSendTime && (!sentToday || a.LiveMessageID == nil) {
			day, err := n.day(ctx, lc, u.Group, now)
			if err != nil {
				return err
			}
			cur := lessons.CurrentOrNext(day, utils.MinuteOfDay(now))
			text := messages.LiveCard(u.Group, models.WeekdayOf(now), parity.For(now), cur)
			id, err := n.msg.Send(ctx, u.ChatID, text)
			if err != nil {
				return err
			}
			n.log.Info("live card sent", sl.ChatID(u.ChatID), slog.Int("message_id", id))
			return n.store.SaveLiveCard(ctx, u.ChatID, id, messages.LiveKey(today, cur), today)
		}

		if !sentToday || a.LiveMessageID == nil {
			return nil
		}
		day, err := n.day(ctx, lc, u.Group, now)
		if err != nil {
			return err
		}
		cur := lessons.CurrentOrNext(day, utils.MinuteOfDay(now))
		key := messages.LiveKey(today, cur)
		if a.LiveContentKey != nil && *a.LiveContentKey == key {
			return nil
		}

		text := messages.LiveCard(u.Group, models.WeekdayOf(now), parity.For(now), cur)
		if err := n.msg.Edit(ctx, u.ChatID, *a.LiveMessageID, text); err != nil {
			n.log.Warn("live card edit failed, dropping card",
				sl.ChatID(u.ChatID), slog.Int("message_id", *a.LiveMessageID), sl.Err(err))
			return n.store.ResetLiveMessage(ctx, u.ChatID)
		}
		return n.store.SetLiveKey(ctx, u.ChatID, key)
	}

	return nil
}

func (n *Notifier) day(ctx context.Context, lc *lazyLessons, group string, now time.Time) ([]models.Lesson, error) {
	all, err := lc.get(ctx)
	if err != nil {
		return nil, err
	}
	return schedule.Day(all, group, now), nil
}

// lazyLessons reads the sheet at most once per tick and only when some
// user actually needs it.
type lazyLessons struct {
	src  LessonSource
	all  []models.Lesson
	err  error
	done bool
}

func (l *lazyLessons) get(ctx context.Context) ([]models.Lesson, error) {
	if !l.done {
		l.all, l.err = l.src.Lessons(ctx)
		l.done = true
	}
	return l.all, l.err
}
