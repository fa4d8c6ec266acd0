package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"schedule-sync-bot/internal/models"
)

//go:embed schema.sql
var ddl embed.FS

var ErrUserNotFound = errors.New("user not found")

type DB struct{ *sql.DB }

func New(path string) (*DB, error) {
	const op = "storage.New"

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// sqlite has a single writer anyway
	db.SetMaxOpenConns(1)

	if err = migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	b, err := ddl.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

// ResetUser switches off autosend and autosync, forgets the group and the
// live card and clears the dialog state. The row and the calendar link stay.
func (d *DB) ResetUser(ctx context.Context, chatID int64) error {
	const op = "storage.ResetUser"

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE users SET
            course                 = '',
            group_code             = '',
            autosend_enabled       = 0,
            autosend_last_date     = NULL,
            autosend_msg_id        = NULL,
            autosend_cur_key       = NULL,
            gcal_autosync_enabled  = 0,
            gcal_autosync_last_key = ''
        WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_states WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}

// ---------- users -----------------------------------------------------------

const userColumns = `
    chat_id, username, timezone, course, group_code, created_at,
    autosend_enabled, autosend_mode, autosend_time, autosend_last_date, autosend_msg_id, autosend_cur_key,
    gcal_connected, gcal_calendar_id, gcal_access_token, gcal_refresh_token, gcal_token_expiry, gcal_last_sync,
    gcal_autosync_enabled, gcal_autosync_mode, gcal_autosync_time, gcal_autosync_weekday, gcal_autosync_last_key`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u        models.User
		lastDate sql.NullString
		msgID    sql.NullInt64
		curKey   sql.NullString
		expiry   sql.NullInt64
		lastSync sql.NullInt64
	)

	err := s.Scan(
		&u.ChatID, &u.Username, &u.TZ, &u.Course, &u.Group, &u.CreatedAt,
		&u.Autosend.Enabled, &u.Autosend.Mode, &u.Autosend.SendTime, &lastDate, &msgID, &curKey,
		&u.Calendar.Connected, &u.Calendar.CalendarID, &u.Calendar.AccessToken, &u.Calendar.RefreshToken, &expiry, &lastSync,
		&u.Calendar.Autosync.Enabled, &u.Calendar.Autosync.Mode, &u.Calendar.Autosync.Time,
		&u.Calendar.Autosync.Weekday, &u.Calendar.Autosync.LastRunKey,
	)
	if err != nil {
		return nil, err
	}

	if lastDate.Valid {
		u.Autosend.LastSentDate = &lastDate.String
	}
	if msgID.Valid {
		id := int(msgID.Int64)
		u.Autosend.LiveMessageID = &id
	}
	if curKey.Valid {
		u.Autosend.LiveContentKey = &curKey.String
	}
	if expiry.Valid {
		t := time.Unix(expiry.Int64, 0)
		u.Calendar.TokenExpiry = &t
	}
	if lastSync.Valid {
		t := time.Unix(lastSync.Int64, 0)
		u.Calendar.LastSyncAt = &t
	}
	return &u, nil
}

// EnsureUser creates the chat's row on first contact and returns it.
func (d *DB) EnsureUser(ctx context.Context, chatID int64, username, tz string) (*models.User, error) {
	const op = "storage.EnsureUser"

	_, err := d.ExecContext(ctx, `
        INSERT INTO users (chat_id, username, timezone, created_at)
        VALUES (?,?,?,?)
        ON CONFLICT(chat_id) DO UPDATE SET username=excluded.username
    `, chatID, username, tz, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d.GetUser(ctx, chatID)
}

func (d *DB) GetUser(ctx context.Context, chatID int64) (*models.User, error) {
	const op = "storage.GetUser"

	u, err := scanUser(d.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE chat_id=?`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListAutosendUsers returns users with autosend switched on.
func (d *DB) ListAutosendUsers(ctx context.Context) ([]models.User, error) {
	return d.listUsers(ctx, "storage.ListAutosendUsers", "autosend_enabled=1")
}

// ListAutosyncUsers returns connected users with calendar autosync on.
func (d *DB) ListAutosyncUsers(ctx context.Context) ([]models.User, error) {
	return d.listUsers(ctx, "storage.ListAutosyncUsers", "gcal_connected=1 AND gcal_autosync_enabled=1")
}

func (d *DB) listUsers(ctx context.Context, op, where string) ([]models.User, error) {
	rows, err := d.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (d *DB) SetGroup(ctx context.Context, chatID int64, course, group string) error {
	return d.exec(ctx, "storage.SetGroup",
		`UPDATE users SET course=?, group_code=? WHERE chat_id=?`, course, group, chatID)
}

func (d *DB) SetTimezone(ctx context.Context, chatID int64, tz string) error {
	return d.exec(ctx, "storage.SetTimezone",
		`UPDATE users SET timezone=? WHERE chat_id=?`, tz, chatID)
}

// ---------- autosend --------------------------------------------------------

// SetAutosend changes the autosend settings. Switching mode drops the live
// card so the next send starts a fresh one.
func (d *DB) SetAutosend(ctx context.Context, chatID int64, enabled bool, mode models.AutosendMode, sendTime string) error {
	return d.exec(ctx, "storage.SetAutosend", `
        UPDATE users SET
            autosend_msg_id  = CASE WHEN autosend_mode <> ?1 OR ?2 = 0 THEN NULL ELSE autosend_msg_id END,
            autosend_cur_key = CASE WHEN autosend_mode <> ?1 OR ?2 = 0 THEN NULL ELSE autosend_cur_key END,
            autosend_enabled = ?2,
            autosend_mode    = ?1,
            autosend_time    = ?3
        WHERE chat_id = ?4
    `, string(mode), enabled, sendTime, chatID)
}

// MarkDigestSent records the date a digest went out.
func (d *DB) MarkDigestSent(ctx context.Context, chatID int64, date string) error {
	return d.exec(ctx, "storage.MarkDigestSent",
		`UPDATE users SET autosend_last_date=? WHERE chat_id=?`, date, chatID)
}

// SaveLiveCard stores a freshly sent live card.
func (d *DB) SaveLiveCard(ctx context.Context, chatID int64, msgID int, key, date string) error {
	return d.exec(ctx, "storage.SaveLiveCard", `
        UPDATE users SET autosend_msg_id=?, autosend_cur_key=?, autosend_last_date=?
        WHERE chat_id=?`, msgID, key, date, chatID)
}

// SetLiveKey stores the content key after an in-place edit.
func (d *DB) SetLiveKey(ctx context.Context, chatID int64, key string) error {
	return d.exec(ctx, "storage.SetLiveKey",
		`UPDATE users SET autosend_cur_key=? WHERE chat_id=?`, key, chatID)
}

// ResetLiveMessage forgets the live card, e.g. after it was deleted by the user.
func (d *DB) ResetLiveMessage(ctx context.Context, chatID int64) error {
	return d.exec(ctx, "storage.ResetLiveMessage",
		`UPDATE users SET autosend_msg_id=NULL WHERE chat_id=?`, chatID)
}

// ---------- google calendar -------------------------------------------------

// SaveCalendarTokens marks the user connected. An empty refresh token keeps
// the stored one since refresh responses usually omit it.
func (d *DB) SaveCalendarTokens(ctx context.Context, chatID int64, access, refresh string, expiry *time.Time) error {
	var exp sql.NullInt64
	if expiry != nil && !expiry.IsZero() {
		exp = sql.NullInt64{Int64: expiry.Unix(), Valid: true}
	}
	return d.exec(ctx, "storage.SaveCalendarTokens", `
        UPDATE users SET
            gcal_connected     = 1,
            gcal_access_token  = ?,
            gcal_refresh_token = COALESCE(NULLIF(?, ''), gcal_refresh_token),
            gcal_token_expiry  = ?
        WHERE chat_id = ?`, access, refresh, exp, chatID)
}

func (d *DB) SetCalendarID(ctx context.Context, chatID int64, calendarID string) error {
	return d.exec(ctx, "storage.SetCalendarID",
		`UPDATE users SET gcal_calendar_id=? WHERE chat_id=?`, calendarID, chatID)
}

func (d *DB) SetLastSync(ctx context.Context, chatID int64, t time.Time) error {
	return d.exec(ctx, "storage.SetLastSync",
		`UPDATE users SET gcal_last_sync=? WHERE chat_id=?`, t.Unix(), chatID)
}

// ClearCalendar drops tokens and the connection; autosync settings stay.
func (d *DB) ClearCalendar(ctx context.Context, chatID int64) error {
	return d.exec(ctx, "storage.ClearCalendar", `
        UPDATE users SET
            gcal_connected     = 0,
            gcal_calendar_id   = 'primary',
            gcal_access_token  = '',
            gcal_refresh_token = '',
            gcal_token_expiry  = NULL
        WHERE chat_id = ?`, chatID)
}

// SetAutosync replaces the autosync schedule and forgets the last run key.
func (d *DB) SetAutosync(ctx context.Context, chatID int64, a models.Autosync) error {
	return d.exec(ctx, "storage.SetAutosync", `
        UPDATE users SET
            gcal_autosync_enabled  = ?,
            gcal_autosync_mode     = ?,
            gcal_autosync_time     = ?,
            gcal_autosync_weekday  = ?,
            gcal_autosync_last_key = ''
        WHERE chat_id = ?`, a.Enabled, string(a.Mode), a.Time, a.Weekday, chatID)
}

func (d *DB) SetAutosyncRunKey(ctx context.Context, chatID int64, key string) error {
	return d.exec(ctx, "storage.SetAutosyncRunKey",
		`UPDATE users SET gcal_autosync_last_key=? WHERE chat_id=?`, key, chatID)
}

// ---------- user state (fsm) ------------------------------------------------

func (d *DB) SetUserState(ctx context.Context, chatID int64, state string) error {
	return d.exec(ctx, "storage.SetUserState", `
        INSERT INTO user_states(chat_id, state) VALUES (?,?)
        ON CONFLICT(chat_id) DO UPDATE SET state=excluded.state`, chatID, state)
}

func (d *DB) GetUserState(ctx context.Context, chatID int64) (string, error) {
	var st string
	err := d.QueryRowContext(ctx, `SELECT state FROM user_states WHERE chat_id=?`, chatID).Scan(&st)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage.GetUserState: %w", err)
	}
	return st, nil
}

func (d *DB) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := d.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}
