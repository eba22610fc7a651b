// Package session_tools provides MCP tools for the calendar session
// lifecycle.
//
// This package registers session tools that allow AI assistants to:
//   - Check the current session state and agenda size
//   - Get the OAuth authorization URL for calendar access
//   - Complete sign-in with the authorization code
//   - Sign out and clear the synced agenda
//
// The sign-in flow:
//  1. Call session_get_auth_url to get the authorization URL
//  2. User visits the URL and authorizes access
//  3. User provides the authorization code
//  4. Call session_sign_in with the code to establish the session
//
// Signing in triggers the initial agenda fetch; signing out clears it.
// The token is persisted and refreshed automatically, so a restart does
// not require a new authorization.
package session_tools
