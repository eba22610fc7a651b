// Package cmd implements the command-line interface for gridcal.
//
// This package provides the following commands:
//   - serve: Run the calendar session daemon with the view API or MCP transport
//   - login: Sign in interactively and store the OAuth token
//   - logout: Sign out and remove the stored token
//   - agenda: Print the synced agenda once and exit
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
