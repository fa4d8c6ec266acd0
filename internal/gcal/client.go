// Package gcal talks to the Google Calendar API and Google's OAuth endpoints
// on behalf of a user.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"schedule-sync-bot/internal/calsync"
)

var errStop = errors.New("stop paging")

// Client builds a Calendar service per access token.
type Client struct {
	opts []option.ClientOption
}

// NewClient accepts extra options, e.g. option.WithEndpoint for a proxy.
func NewClient(opts ...option.ClientOption) *Client {
	return &Client{opts: opts}
}

func (c *Client) service(ctx context.Context, token string) (*calendar.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)
	return calendar.NewService(ctx, opts...)
}

func (c *Client) ListCalendars(ctx context.Context, token string) ([]calsync.CalendarInfo, error) {
	const op = "gcal.Client.ListCalendars"

	srv, err := c.service(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out []calsync.CalendarInfo
	err = srv.CalendarList.List().MinAccessRole("writer").Pages(ctx, func(page *calendar.CalendarList) error {
		for _, it := range page.Items {
			out = append(out, calsync.CalendarInfo{ID: it.Id, Summary: it.Summary, Primary: it.Primary})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (c *Client) CreateCalendar(ctx context.Context, token, title, tz string) (calsync.CalendarInfo, error) {
	const op = "gcal.Client.CreateCalendar"

	srv, err := c.service(ctx, token)
	if err != nil {
		return calsync.CalendarInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	cal, err := srv.Calendars.Insert(&calendar.Calendar{Summary: title, TimeZone: tz}).Context(ctx).Do()
	if err != nil {
		return calsync.CalendarInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	return calsync.CalendarInfo{ID: cal.Id, Summary: cal.Summary}, nil
}

func (c *Client) ListEvents(ctx context.Context, token, calendarID string, q calsync.EventQuery) ([]calsync.Event, error) {
	const op = "gcal.Client.ListEvents"

	srv, err := c.service(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	call := srv.Events.List(calendarID).SingleEvents(true).ShowDeleted(false)
	if len(q.PrivateProperty) > 0 {
		call = call.PrivateExtendedProperty(q.PrivateProperty...)
	}
	if q.TimeMin != nil {
		call = call.TimeMin(q.TimeMin.Format(time.RFC3339)).OrderBy("startTime")
	}
	if q.TimeMax != nil {
		call = call.TimeMax(q.TimeMax.Format(time.RFC3339))
	}
	if q.PageSize > 0 {
		call = call.MaxResults(q.PageSize)
	}

	var out []calsync.Event
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, it := range page.Items {
			out = append(out, fromAPI(it))
			if q.Limit > 0 && len(out) >= q.Limit {
				return errStop
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (c *Client) InsertEvent(ctx context.Context, token, calendarID string, ev calsync.Event) (calsync.Event, error) {
	const op = "gcal.Client.InsertEvent"

	srv, err := c.service(ctx, token)
	if err != nil {
		return calsync.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := srv.Events.Insert(calendarID, toAPI(ev)).Context(ctx).Do()
	if err != nil {
		return calsync.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return fromAPI(res), nil
}

func (c *Client) PatchEvent(ctx context.Context, token, calendarID, eventID string, ev calsync.Event) (calsync.Event, error) {
	const op = "gcal.Client.PatchEvent"

	srv, err := c.service(ctx, token)
	if err != nil {
		return calsync.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := srv.Events.Patch(calendarID, eventID, toAPI(ev)).Context(ctx).Do()
	if err != nil {
		return calsync.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return fromAPI(res), nil
}

// DeleteEvent treats an already deleted event as success.
func (c *Client) DeleteEvent(ctx context.Context, token, calendarID, eventID string) error {
	const op = "gcal.Client.DeleteEvent"

	srv, err := c.service(ctx, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = srv.Events.Delete(calendarID, eventID).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func toAPI(ev calsync.Event) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &calendar.EventDateTime{DateTime: ev.Start, TimeZone: ev.TimeZone},
		End:         &calendar.EventDateTime{DateTime: ev.End, TimeZone: ev.TimeZone},
	}
	if len(ev.Private) > 0 {
		out.ExtendedProperties = &calendar.EventExtendedProperties{Private: ev.Private}
	}
	return out
}

func fromAPI(ev *calendar.Event) calsync.Event {
	out := calsync.Event{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
	}
	if ev.Start != nil {
		out.Start, out.TimeZone = ev.Start.DateTime, ev.Start.TimeZone
	}
	if ev.End != nil {
		out.End = ev.End.DateTime
	}
	if ev.ExtendedProperties != nil {
		out.Private = ev.ExtendedProperties.Private
	}
	return out
}
