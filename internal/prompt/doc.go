// Package prompt implements the terminal prompts used by CLI sessions:
// the authorization-code prompt of the sign-in flow and the title prompt
// of the slot selection flow. Empty answers decline rather than fail.
package prompt
