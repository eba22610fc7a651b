package server

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/mpawlik/gridcal/internal/events"
)

// BuildICS renders an event snapshot as an iCalendar feed. Timestamps
// are emitted in UTC; consumers apply their own display zone. now is
// used as the DTSTAMP of every component.
func BuildICS(evs []events.DisplayEvent, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range evs {
		ve := cal.AddEvent(ev.ID)
		ve.SetSummary(ev.Title)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetDtStampTime(now)
	}

	return cal.Serialize()
}
