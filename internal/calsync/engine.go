// Package calsync mirrors a user's lessons into an external calendar.
// Every event it writes is tagged with private properties, so repeated runs
// update events in place and purges never touch foreign events.
package calsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"schedule-sync-bot/internal/lib/logger/sl"
	"schedule-sync-bot/internal/models"
	"schedule-sync-bot/internal/parity"
	"schedule-sync-bot/internal/schedule"
	"schedule-sync-bot/internal/utils"
)

const (
	primaryCalendar = "primary"
	expirySkew      = time.Minute
	purgePageSize   = 2500
)

type Store interface {
	ListAutosyncUsers(ctx context.Context) ([]models.User, error)
	SaveCalendarTokens(ctx context.Context, chatID int64, access, refresh string, expiry *time.Time) error
	SetCalendarID(ctx context.Context, chatID int64, calendarID string) error
	SetLastSync(ctx context.Context, chatID int64, t time.Time) error
	ClearCalendar(ctx context.Context, chatID int64) error
	SetAutosyncRunKey(ctx context.Context, chatID int64, key string) error
}

type LessonSource interface {
	Lessons(ctx context.Context) ([]models.Lesson, error)
}

type Engine struct {
	log       *slog.Logger
	cal       Calendar
	tokens    Tokens
	store     Store
	src       LessonSource
	clock     clockwork.Clock
	defaultTZ string
	skip      []string
}

// New builds the engine. skip lists lowercase keywords of special subjects
// that are never written to the calendar.
func New(log *slog.Logger, cal Calendar, tokens Tokens, store Store, src LessonSource,
	clock clockwork.Clock, defaultTZ string, skip []string) *Engine {
	low := make([]string, 0, len(skip))
	for _, s := range skip {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			low = append(low, s)
		}
	}
	return &Engine{
		log:       log,
		cal:       cal,
		tokens:    tokens,
		store:     store,
		src:       src,
		clock:     clock,
		defaultTZ: defaultTZ,
		skip:      low,
	}
}

// ensureToken returns a usable access token, refreshing and persisting it
// when the stored one is missing or about to expire. u is updated in place.
func (e *Engine) ensureToken(ctx context.Context, u *models.User) (string, error) {
	const op = "calsync.ensureToken"

	c := &u.Calendar
	if !c.Connected {
		return "", fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	if c.AccessToken != "" && (c.TokenExpiry == nil || c.TokenExpiry.After(e.clock.Now().Add(expirySkew))) {
		return c.AccessToken, nil
	}
	if c.RefreshToken == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNotConnected)
	}

	tok, err := e.tokens.Refresh(ctx, c.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		expiry = &exp
	}
	if err := e.store.SaveCalendarTokens(ctx, u.ChatID, tok.AccessToken, tok.RefreshToken, expiry); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	c.AccessToken, c.TokenExpiry = tok.AccessToken, expiry
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	e.log.Debug("calendar token refreshed", sl.ChatID(u.ChatID))
	return c.AccessToken, nil
}

// Upsert patches the event carrying the same sched_key or inserts a new one.
func (e *Engine) Upsert(ctx context.Context, token, calendarID string, ev Event) error {
	const op = "calsync.Upsert"

	key := ev.Private[propKey]
	if key == "" || ev.Private[propBot] != "1" {
		return fmt.Errorf("%s: event is not tagged", op)
	}

	found, err := e.cal.ListEvents(ctx, token, calendarID, EventQuery{
		PrivateProperty: []string{propKey + "=" + key},
		PageSize:        2,
		Limit:           1,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(found) > 0 {
		_, err = e.cal.PatchEvent(ctx, token, calendarID, found[0].ID, ev)
	} else {
		_, err = e.cal.InsertEvent(ctx, token, calendarID, ev)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (e *Engine) SyncToday(ctx context.Context, u *models.User) (Result, error) {
	today := e.today(u)
	return e.syncDays(ctx, u, nil, []time.Time{today})
}

// SyncWeek syncs Monday..Sunday of the week weeksAhead weeks from now.
func (e *Engine) SyncWeek(ctx context.Context, u *models.User, weeksAhead int) (Result, error) {
	return e.syncDays(ctx, u, nil, e.week(u, weeksAhead))
}

// SyncNextNDays syncs today and the following n-1 days.
func (e *Engine) SyncNextNDays(ctx context.Context, u *models.User, n int) (Result, error) {
	return e.syncDays(ctx, u, nil, e.nextDays(u, n))
}

func (e *Engine) syncDays(ctx context.Context, u *models.User, all []models.Lesson, days []time.Time) (Result, error) {
	const op = "calsync.Sync"

	var res Result
	if u.Group == "" {
		return res, fmt.Errorf("%s: group is not set", op)
	}
	token, err := e.ensureToken(ctx, u)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	if all == nil {
		if all, err = e.src.Lessons(ctx); err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
	}

	calID := calendarID(u)
	tz := e.tz(u)
	for _, day := range days {
		for _, l := range schedule.Day(all, u.Group, day) {
			if e.skipped(l) {
				continue
			}
			if err := e.syncLesson(ctx, token, calID, tz, day, l); err != nil {
				res.Failed++
				e.log.Warn("lesson sync failed",
					sl.ChatID(u.ChatID), slog.String("day", utils.DateKey(day)),
					slog.String("time", l.Time), slog.String("subject", l.Subject), sl.Err(err))
				continue
			}
			res.OK++
		}
	}

	if err := e.store.SetLastSync(ctx, u.ChatID, e.clock.Now()); err != nil {
		e.log.Error("failed to store last sync", sl.ChatID(u.ChatID), sl.Err(err))
	}
	e.log.Info("calendar synced", sl.ChatID(u.ChatID),
		slog.Int("days", len(days)), slog.Int("ok", res.OK), slog.Int("failed", res.Failed))
	return res, nil
}

func (e *Engine) syncLesson(ctx context.Context, token, calID, tz string, day time.Time, l models.Lesson) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ev, err := BuildEvent(day, l, tz)
	if err != nil {
		return err
	}
	return e.Upsert(ctx, token, calID, ev)
}

// PurgeWindow deletes the bot's events that overlap [start, end). A zero
// start or end leaves that side open.
func (e *Engine) PurgeWindow(ctx context.Context, u *models.User, start, end time.Time) (Result, error) {
	const op = "calsync.PurgeWindow"

	var res Result
	token, err := e.ensureToken(ctx, u)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}

	q := EventQuery{PrivateProperty: []string{propBot + "=1"}, PageSize: purgePageSize}
	if !start.IsZero() {
		q.TimeMin = &start
	}
	if !end.IsZero() {
		q.TimeMax = &end
	}
	calID := calendarID(u)
	events, err := e.cal.ListEvents(ctx, token, calID, q)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}

	for _, ev := range events {
		if err := e.cal.DeleteEvent(ctx, token, calID, ev.ID); err != nil {
			res.Failed++
			e.log.Warn("event delete failed", sl.ChatID(u.ChatID), slog.String("event_id", ev.ID), sl.Err(err))
			continue
		}
		res.OK++
	}
	e.log.Info("calendar purged", sl.ChatID(u.ChatID), slog.Int("deleted", res.OK), slog.Int("failed", res.Failed))
	return res, nil
}

// PurgeWeeks clears the bot's events from this week's Monday on.
func (e *Engine) PurgeWeeks(ctx context.Context, u *models.User, weeks int) (Result, error) {
	start := parity.Monday(e.now(u))
	return e.PurgeWindow(ctx, u, start, start.AddDate(0, 0, 7*weeks))
}

// Disconnect forgets the user's calendar credentials. With purge it first
// deletes every event the bot created and revokes the token; failures there
// are only logged.
func (e *Engine) Disconnect(ctx context.Context, u *models.User, purge bool) error {
	const op = "calsync.Disconnect"

	if purge {
		if _, err := e.PurgeWindow(ctx, u, time.Time{}, time.Time{}); err != nil {
			e.log.Warn("purge before disconnect failed", sl.ChatID(u.ChatID), sl.Err(err))
		}
		tok := u.Calendar.RefreshToken
		if tok == "" {
			tok = u.Calendar.AccessToken
		}
		if tok != "" {
			if err := e.tokens.Revoke(ctx, tok); err != nil {
				e.log.Warn("token revoke failed", sl.ChatID(u.ChatID), sl.Err(err))
			}
		}
	}

	if err := e.store.ClearCalendar(ctx, u.ChatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	u.Calendar = models.CalendarLinkState{CalendarID: primaryCalendar, Autosync: u.Calendar.Autosync, LastSyncAt: u.Calendar.LastSyncAt}
	return nil
}

func (e *Engine) ListCalendars(ctx context.Context, u *models.User) ([]CalendarInfo, error) {
	const op = "calsync.ListCalendars"

	token, err := e.ensureToken(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cals, err := e.cal.ListCalendars(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cals, nil
}

// CreateCalendar creates a separate calendar in the user's timezone and
// switches syncing to it.
func (e *Engine) CreateCalendar(ctx context.Context, u *models.User, title string) (CalendarInfo, error) {
	const op = "calsync.CreateCalendar"

	token, err := e.ensureToken(ctx, u)
	if err != nil {
		return CalendarInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	cal, err := e.cal.CreateCalendar(ctx, token, title, e.tz(u))
	if err != nil {
		return CalendarInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := e.SelectCalendar(ctx, u, cal.ID); err != nil {
		return CalendarInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	return cal, nil
}

// SelectCalendar switches the target calendar; empty means primary.
func (e *Engine) SelectCalendar(ctx context.Context, u *models.User, id string) error {
	if id == "" {
		id = primaryCalendar
	}
	if err := e.store.SetCalendarID(ctx, u.ChatID, id); err != nil {
		return fmt.Errorf("calsync.SelectCalendar: %w", err)
	}
	u.Calendar.CalendarID = id
	return nil
}

func (e *Engine) skipped(l models.Lesson) bool {
	if !l.IsSpecial {
		return false
	}
	subj := strings.ToLower(l.SubjectText)
	for _, k := range e.skip {
		if strings.Contains(subj, k) {
			return true
		}
	}
	return false
}

func (e *Engine) tz(u *models.User) string {
	if u.TZ != "" {
		return u.TZ
	}
	return e.defaultTZ
}

func (e *Engine) now(u *models.User) time.Time {
	return e.clock.Now().In(utils.Location(u.TZ, e.defaultTZ))
}

func (e *Engine) today(u *models.User) time.Time {
	n := e.now(u)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
}

func (e *Engine) week(u *models.User, weeksAhead int) []time.Time {
	monday := parity.Monday(e.now(u)).AddDate(0, 0, 7*weeksAhead)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

func (e *Engine) nextDays(u *models.User, n int) []time.Time {
	today := e.today(u)
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, today.AddDate(0, 0, i))
	}
	return days
}

func calendarID(u *models.User) string {
	if u.Calendar.CalendarID == "" {
		return primaryCalendar
	}
	return u.Calendar.CalendarID
}

// IsNotConnected reports whether the user has to connect the calendar again.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
