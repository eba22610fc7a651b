package events

import (
	"errors"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// ErrMalformedEvent indicates a remote event that cannot be mapped to a
// DisplayEvent. Concrete occurrences are *MalformedEventError values and
// unwrap to this sentinel.
var ErrMalformedEvent = errors.New("malformed remote event")

// MalformedEventError reports a single remote event that was rejected by
// the mapper, with enough detail to locate it in the source batch.
type MalformedEventError struct {
	// Index is the element's position in the mapped batch, or -1 when
	// the event was mapped on its own.
	Index   int
	EventID string
	Reason  string
}

func (e *MalformedEventError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("malformed remote event: %s", e.Reason)
	}
	return fmt.Sprintf("malformed remote event %s: %s", e.EventID, e.Reason)
}

func (e *MalformedEventError) Unwrap() error {
	return ErrMalformedEvent
}

// MapOne converts a single remote event into a DisplayEvent. The remote
// event must carry RFC3339 start and end timestamps with start before
// end; all-day events carry only a date and are rejected as malformed.
func MapOne(event *calendar.Event) (DisplayEvent, error) {
	ev, merr := mapEvent(event)
	if merr != nil {
		merr.Index = -1
		return DisplayEvent{}, merr
	}
	return ev, nil
}

// MapMany converts a batch of remote events into display events,
// preserving batch order. Malformed elements are skipped and reported:
// each contributes one *MalformedEventError to the second return value,
// and the rest of the batch maps normally. The first return value holds
// only successfully mapped events, in their original relative order.
func MapMany(items []*calendar.Event) ([]DisplayEvent, []error) {
	mapped := make([]DisplayEvent, 0, len(items))
	var skipped []error
	for i, item := range items {
		ev, merr := mapEvent(item)
		if merr != nil {
			merr.Index = i
			skipped = append(skipped, merr)
			continue
		}
		mapped = append(mapped, ev)
	}
	return mapped, skipped
}

func mapEvent(event *calendar.Event) (DisplayEvent, *MalformedEventError) {
	if event == nil {
		return DisplayEvent{}, &MalformedEventError{Reason: "event is nil"}
	}

	start, reason := parseDateTime(event.Start, "start")
	if reason != "" {
		return DisplayEvent{}, &MalformedEventError{EventID: event.Id, Reason: reason}
	}
	end, reason := parseDateTime(event.End, "end")
	if reason != "" {
		return DisplayEvent{}, &MalformedEventError{EventID: event.Id, Reason: reason}
	}
	if !start.Before(end) {
		return DisplayEvent{}, &MalformedEventError{EventID: event.Id, Reason: "start is not before end"}
	}

	return DisplayEvent{
		ID:    event.Id,
		Title: event.Summary,
		Start: start,
		End:   end,
	}, nil
}

func parseDateTime(dt *calendar.EventDateTime, field string) (time.Time, string) {
	if dt == nil || dt.DateTime == "" {
		return time.Time{}, field + ".dateTime is missing"
	}
	t, err := time.Parse(time.RFC3339, dt.DateTime)
	if err != nil {
		return time.Time{}, field + ".dateTime is not a valid RFC3339 timestamp"
	}
	return t, ""
}
