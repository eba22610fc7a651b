// Package google provides OAuth2 authentication and token management for
// the Google Calendar API.
//
// The Authenticator wraps the oauth2 configuration derived from the
// application config and exposes the pieces of the interactive code flow
// (authorization URL, code exchange, token revocation) plus construction
// of authenticated HTTP clients.
//
// The TokenProvider interface allows different token backings to be
// plugged in. TokenStore persists the single user token in a local
// sqlite database; MemoryTokenProvider backs tests.
package google
