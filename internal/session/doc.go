// Package session owns the authentication lifecycle against the remote
// calendar provider.
//
// The Manager is a small state machine:
//
//	Uninitialized -> Initializing -> {SignedIn, SignedOut}
//	SignedIn <-> SignedOut via explicit sign-in / sign-out
//
// Initialize performs the one-time handshake (discovery documents fetched
// with the configured API key) and derives the initial state from the
// stored token. Every state transition is announced to subscribers
// exactly once, in registration order; the sync controller uses this to
// trigger the initial fetch. A background watcher detects
// provider-initiated sign-outs by periodically refreshing the token.
package session
