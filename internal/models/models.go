package models

import "time"

// User represents bot settings for a telegram chat together with the
// notification and calendar state attached to it.
type User struct {
	ChatID    int64  `db:"chat_id"    json:"chat_id"`
	Username  string `db:"username"   json:"username"`
	TZ        string `db:"timezone"   json:"timezone"`
	Course    string `db:"course"     json:"course"`
	Group     string `db:"group_code" json:"group"`
	CreatedAt int64  `db:"created_at" json:"created_at"`

	Autosend AutosendState     `json:"autosend"`
	Calendar CalendarLinkState `json:"calendar"`
}

// AutosendState drives the daily digest / live card of a user.
type AutosendState struct {
	Enabled        bool         `db:"autosend_enabled"   json:"enabled"`
	Mode           AutosendMode `db:"autosend_mode"      json:"mode"`
	SendTime       string       `db:"autosend_time"      json:"send_time"` // "HH:MM"
	LastSentDate   *string      `db:"autosend_last_date" json:"last_sent_date,omitempty"` // YYYY-MM-DD
	LiveMessageID  *int         `db:"autosend_msg_id"    json:"live_message_id,omitempty"`
	LiveContentKey *string      `db:"autosend_cur_key"   json:"live_content_key,omitempty"`
}

// CalendarLinkState is the Google Calendar connection of a user.
type CalendarLinkState struct {
	Connected    bool       `db:"gcal_connected"     json:"connected"`
	CalendarID   string     `db:"gcal_calendar_id"   json:"calendar_id"`
	AccessToken  string     `db:"gcal_access_token"  json:"-"`
	RefreshToken string     `db:"gcal_refresh_token" json:"-"`
	TokenExpiry  *time.Time `db:"gcal_token_expiry"  json:"token_expiry,omitempty"`
	LastSyncAt   *time.Time `db:"gcal_last_sync"     json:"last_sync_at,omitempty"`

	Autosync Autosync `json:"autosync"`
}

// Autosync is the periodic calendar sync schedule.
type Autosync struct {
	Enabled    bool         `db:"gcal_autosync_enabled"  json:"enabled"`
	Mode       AutosyncMode `db:"gcal_autosync_mode"     json:"mode"`
	Time       string       `db:"gcal_autosync_time"     json:"time"`    // "HH:MM"
	Weekday    int          `db:"gcal_autosync_weekday"  json:"weekday"` // 0 = Monday
	LastRunKey string       `db:"gcal_autosync_last_key" json:"last_run_key"`
}

// Lesson is one cell of the timetable after extraction.
type Lesson struct {
	Group       string    `json:"group"`
	Course      string    `json:"course"`
	Day         Weekday   `json:"day"`
	Time        string    `json:"time"` // raw cell text
	Range       TimeRange `json:"range"`
	Parity      Parity    `json:"parity"`
	SubjectText string    `json:"subject_text"` // lecture cell, single line
	Subject     string    `json:"subject"`      // teacher names stripped
	Teachers    []string  `json:"teachers"`
	Room        string    `json:"room"`
	RoomRemote  bool      `json:"room_remote"`
	RemoteLink  *string   `json:"remote_link,omitempty"`
	IsSpecial   bool      `json:"is_special"`
}

// TimeRange holds minutes since midnight. Valid is false for cells that
// do not look like "H:MM-H:MM".
type TimeRange struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Valid bool `json:"valid"`
}
