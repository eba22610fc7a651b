// Package agenda keeps the in-memory event store synchronized with the
// remote Google Calendar across session transitions.
//
// The Controller subscribes to session state changes: signing in triggers
// a single automatic fetch of upcoming events, signing out clears the
// store and discards any fetch still in flight. Slot selection goes
// through the controller as well; an event is appended to the store only
// after the remote service confirms its creation, so the store never
// holds provisional entries.
//
// Failures are non-fatal. A failed fetch or create leaves the store
// as it was and emits a Notice that the view can surface. Nothing is
// retried automatically.
package agenda
