package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/mpawlik/gridcal/internal/config"
)

// Client wraps the Google Calendar service for a single configured
// calendar. All remote reads and writes of the daemon go through it.
type Client struct {
	svc        *calendar.Service
	calendarID string
	timeZone   string
	maxResults int64
}

// New creates a Calendar client on top of an authorized HTTP client.
// The calendar id, time zone, and result limit come from the
// configuration; the HTTP client must already carry the OAuth session.
func New(ctx context.Context, httpClient *http.Client, cfg *config.Config, opts ...option.ClientOption) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	svcOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:        svc,
		calendarID: cfg.CalendarID,
		timeZone:   cfg.TimeZone,
		maxResults: cfg.MaxResults,
	}, nil
}

// CalendarID returns the calendar this client reads and writes.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// ListUpcoming lists events starting at or after the given time. The
// result is capped at the configured maximum, expanded to single
// instances, and ordered by start time.
func (c *Client) ListUpcoming(ctx context.Context, from time.Time) ([]*calendar.Event, error) {
	events, err := c.svc.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		MaxResults(c.maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events.Items, nil
}

// CreateEvent creates a new timed event on the configured calendar and
// returns the remote's confirmed version of it.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*calendar.Event, error) {
	created, err := c.svc.Events.Insert(c.calendarID, buildEvent(input, c.timeZone)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return created, nil
}

// buildEvent assembles the wire representation of a timed event. Start
// and end always carry a dateTime and the configured time zone; all-day
// events are not produced here.
func buildEvent(input EventInput, timeZone string) *calendar.Event {
	return &calendar.Event{
		Summary:     input.Title,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: timeZone,
		},
	}
}
