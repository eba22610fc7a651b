package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// DefaultOAuthScopes are the Google OAuth scopes gridcal requests. The
// application reads and creates events on a single calendar, so the
// narrow events scope is sufficient.
var DefaultOAuthScopes = []string{
	calendar.CalendarEventsScope,
}
