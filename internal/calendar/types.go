package calendar

import "time"

// EventInput represents the input for creating a calendar event. The
// time zone is supplied by the client configuration, not per event.
type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}
