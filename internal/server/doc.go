// Package server provides the shared server context and the HTTP
// surfaces of the gridcal daemon.
//
// # Key Components
//
// ServerContext bundles the session manager, the sync controller, the
// event store and the instrumentation handles so the HTTP and MCP
// surfaces share one set of dependencies and one shutdown signal.
//
// ViewServer is the loopback HTTP API the calendar view polls:
//   - /api/events and /api/events.ics: the current agenda snapshot,
//     with the store revision as ETag for cheap change detection
//   - /api/view: grid parameters (visible window, time zone, calendar)
//   - /api/session endpoints: state, auth URL, sign-in, sign-out
//   - /api/slots: slot submission for event creation
//   - /api/notices: recent user-facing notices
//
// MetricsServer serves Prometheus metrics on a separate listener, and
// HealthChecker provides the liveness and readiness endpoints. The
// server reports ready only after the session manager has initialized.
//
// The view API never exposes OAuth tokens or client credentials; when
// basic auth credentials are configured, all API routes require them.
package server
