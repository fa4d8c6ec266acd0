package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"schedule-sync-bot/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEnsureUserDefaults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := db.EnsureUser(ctx, 42, "student", "Europe/Moscow")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if u.TZ != "Europe/Moscow" || u.Username != "student" {
		t.Errorf("user = %+v", u)
	}
	if u.Autosend.Enabled || u.Autosend.Mode != models.AutosendDigest || u.Autosend.LiveMessageID != nil {
		t.Errorf("autosend = %+v", u.Autosend)
	}
	if u.Calendar.CalendarID != "primary" || u.Calendar.Connected {
		t.Errorf("calendar = %+v", u.Calendar)
	}

	// second contact keeps settings
	if err := db.SetTimezone(ctx, 42, "Asia/Yekaterinburg"); err != nil {
		t.Fatal(err)
	}
	u, err = db.EnsureUser(ctx, 42, "renamed", "Europe/Moscow")
	if err != nil {
		t.Fatal(err)
	}
	if u.TZ != "Asia/Yekaterinburg" || u.Username != "renamed" {
		t.Errorf("user = %+v", u)
	}
}

func TestGetUserNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetUser(context.Background(), 1); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := db.SetGroup(context.Background(), 1, "1", "ИВТ-11"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestAutosendLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if _, err := db.EnsureUser(ctx, 7, "", "UTC"); err != nil {
		t.Fatal(err)
	}

	if err := db.SetAutosend(ctx, 7, true, models.AutosendLive, "08:00"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveLiveCard(ctx, 7, 555, "2025-09-01|09:00-10:30|Физика", "2025-09-01"); err != nil {
		t.Fatal(err)
	}

	users, err := db.ListAutosendUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users", len(users))
	}
	a := users[0].Autosend
	if a.LiveMessageID == nil || *a.LiveMessageID != 555 || a.LastSentDate == nil || *a.LastSentDate != "2025-09-01" {
		t.Errorf("autosend = %+v", a)
	}

	if err := db.SetLiveKey(ctx, 7, "2025-09-01|NONE"); err != nil {
		t.Fatal(err)
	}
	if err := db.ResetLiveMessage(ctx, 7); err != nil {
		t.Fatal(err)
	}
	u, _ := db.GetUser(ctx, 7)
	if u.Autosend.LiveMessageID != nil || *u.Autosend.LiveContentKey != "2025-09-01|NONE" {
		t.Errorf("autosend = %+v", u.Autosend)
	}

	// same mode keeps the card, another mode drops it
	if err := db.SaveLiveCard(ctx, 7, 556, "k", "2025-09-02"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetAutosend(ctx, 7, true, models.AutosendLive, "09:00"); err != nil {
		t.Fatal(err)
	}
	u, _ = db.GetUser(ctx, 7)
	if u.Autosend.LiveMessageID == nil {
		t.Error("card dropped on time change")
	}
	if err := db.SetAutosend(ctx, 7, true, models.AutosendDigest, "09:00"); err != nil {
		t.Fatal(err)
	}
	u, _ = db.GetUser(ctx, 7)
	if u.Autosend.LiveMessageID != nil || u.Autosend.LiveContentKey != nil {
		t.Errorf("card kept on mode change: %+v", u.Autosend)
	}

	if err := db.MarkDigestSent(ctx, 7, "2025-09-03"); err != nil {
		t.Fatal(err)
	}
	u, _ = db.GetUser(ctx, 7)
	if *u.Autosend.LastSentDate != "2025-09-03" {
		t.Errorf("last date = %v", *u.Autosend.LastSentDate)
	}
}

func TestCalendarTokens(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if _, err := db.EnsureUser(ctx, 9, "", "UTC"); err != nil {
		t.Fatal(err)
	}

	exp := time.Unix(1_760_000_000, 0)
	if err := db.SaveCalendarTokens(ctx, 9, "access-1", "refresh-1", &exp); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCalendarTokens(ctx, 9, "access-2", "", &exp); err != nil {
		t.Fatal(err)
	}
	u, _ := db.GetUser(ctx, 9)
	c := u.Calendar
	if !c.Connected || c.AccessToken != "access-2" || c.RefreshToken != "refresh-1" || !c.TokenExpiry.Equal(exp) {
		t.Errorf("calendar = %+v", c)
	}

	if err := db.SetAutosync(ctx, 9, models.Autosync{Enabled: true, Mode: models.AutosyncWeekly, Time: "06:00", Weekday: 6}); err != nil {
		t.Fatal(err)
	}
	if err := db.SetAutosyncRunKey(ctx, 9, "weekly:2025-W38"); err != nil {
		t.Fatal(err)
	}
	users, err := db.ListAutosyncUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Calendar.Autosync.LastRunKey != "weekly:2025-W38" || users[0].Calendar.Autosync.Weekday != 6 {
		t.Fatalf("autosync users = %+v", users)
	}

	if err := db.SetCalendarID(ctx, 9, "abc@group.calendar.google.com"); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearCalendar(ctx, 9); err != nil {
		t.Fatal(err)
	}
	u, _ = db.GetUser(ctx, 9)
	if u.Calendar.Connected || u.Calendar.AccessToken != "" || u.Calendar.RefreshToken != "" || u.Calendar.CalendarID != "primary" {
		t.Errorf("calendar not cleared: %+v", u.Calendar)
	}
	if users, _ := db.ListAutosyncUsers(ctx); len(users) != 0 {
		t.Errorf("disconnected user still listed for autosync")
	}
}

func TestUserStateAndReset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if _, err := db.EnsureUser(ctx, 3, "", "UTC"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetUserState(ctx, 3, "wait_group"); err != nil {
		t.Fatal(err)
	}
	st, err := db.GetUserState(ctx, 3)
	if err != nil || st != "wait_group" {
		t.Fatalf("state = %q, %v", st, err)
	}

	mustDo(t, db.SetGroup(ctx, 3, "1 курс", "ИВТ-11"))
	mustDo(t, db.SetAutosend(ctx, 3, true, models.AutosendLive, "07:00"))
	mustDo(t, db.SaveLiveCard(ctx, 3, 55, "2025-09-01|NONE", "2025-09-01"))
	mustDo(t, db.SaveCalendarTokens(ctx, 3, "acc", "ref", nil))
	mustDo(t, db.SetAutosync(ctx, 3, models.Autosync{Enabled: true, Mode: models.AutosyncDaily, Time: "06:00"}))

	if err := db.ResetUser(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if st, _ := db.GetUserState(ctx, 3); st != "" {
		t.Errorf("state survived reset: %q", st)
	}
	u, err := db.GetUser(ctx, 3)
	if err != nil {
		t.Fatalf("user row lost on reset: %v", err)
	}
	if u.Group != "" || u.Course != "" {
		t.Errorf("group kept: %q %q", u.Course, u.Group)
	}
	a := u.Autosend
	if a.Enabled || a.LastSentDate != nil || a.LiveMessageID != nil || a.LiveContentKey != nil {
		t.Errorf("autosend not reset: %+v", a)
	}
	if u.Calendar.Autosync.Enabled {
		t.Error("autosync still on")
	}
	if !u.Calendar.Connected || u.Calendar.RefreshToken != "ref" {
		t.Errorf("calendar link must be left to Disconnect: %+v", u.Calendar)
	}

	if err := db.ResetUser(ctx, 99); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v", err)
	}
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
