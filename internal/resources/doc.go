// Package resources provides MCP resources for exposing agenda and session data.
// Resources are read-only data sources that MCP clients can fetch, such as
// the synced agenda snapshot and the current session state.
//
// Reading a resource never triggers a remote calendar call; the data comes
// from the local store, which the sync controller keeps up to date.
package resources
