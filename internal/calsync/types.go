package calsync

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNotConnected means the user has no usable calendar credentials and
	// must connect again. It is never retried.
	ErrNotConnected = errors.New("calendar not connected")
	// ErrBadTime marks a lesson whose time cell cannot be scheduled.
	ErrBadTime = errors.New("lesson time is not a valid range")
)

const (
	propBot   = "sched_bot"
	propKey   = "sched_key"
	propGroup = "group"
)

// Event is a calendar event as this bot writes it. Start and End are wall
// clock times ("2006-01-02T15:04:05") in TimeZone.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       string
	End         string
	TimeZone    string
	Private     map[string]string
}

// EventQuery filters a listing. PrivateProperty entries are "key=value".
// Limit stops paging once that many events are collected.
type EventQuery struct {
	PrivateProperty []string
	TimeMin         *time.Time
	TimeMax         *time.Time
	PageSize        int64
	Limit           int
}

type CalendarInfo struct {
	ID      string
	Summary string
	Primary bool
}

// Calendar is the remote calendar API, authorized per call with an access
// token.
type Calendar interface {
	ListCalendars(ctx context.Context, token string) ([]CalendarInfo, error)
	CreateCalendar(ctx context.Context, token, title, tz string) (CalendarInfo, error)
	ListEvents(ctx context.Context, token, calendarID string, q EventQuery) ([]Event, error)
	InsertEvent(ctx context.Context, token, calendarID string, ev Event) (Event, error)
	PatchEvent(ctx context.Context, token, calendarID, eventID string, ev Event) (Event, error)
	DeleteEvent(ctx context.Context, token, calendarID, eventID string) error
}

// Tokens refreshes and revokes OAuth tokens. Refresh wraps ErrNotConnected
// when the refresh token is rejected.
type Tokens interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Revoke(ctx context.Context, token string) error
}

// Result tallies a batch of calendar writes.
type Result struct {
	OK     int
	Failed int
}

func (r *Result) Add(o Result) {
	r.OK += o.OK
	r.Failed += o.Failed
}
