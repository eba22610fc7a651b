// Package calendar provides a client for the Google Calendar API.
//
// The client is scoped to the single calendar named in the configuration
// and exposes just the operations the daemon performs: listing upcoming
// events for the view and inserting events created from grid slots.
//
// Authentication is not handled here; callers pass an HTTP client that
// already carries the OAuth session, typically obtained from the session
// manager.
//
// Example usage:
//
//	httpClient, err := sessions.HTTPClient(ctx)
//	if err != nil {
//	    return err
//	}
//	client, err := calendar.New(ctx, httpClient, cfg)
//	if err != nil {
//	    return err
//	}
//
//	// List upcoming events
//	items, err := client.ListUpcoming(ctx, time.Now())
package calendar
