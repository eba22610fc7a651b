// Package agenda_tools provides MCP (Model Context Protocol) tools for the
// synced agenda.
//
// This package exposes the local event store and the sync controller through
// a standardized MCP interface, allowing AI assistants to inspect upcoming
// events and create new ones from free slots on behalf of users.
//
// Listing is served from the local store and never triggers a remote call.
// Refresh and create talk to the remote calendar; on failure the store keeps
// the last known good agenda, so a tool error never leaves the agenda in a
// half-updated state.
package agenda_tools
