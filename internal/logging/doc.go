// Package logging provides structured logging utilities for the gridcal application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (event title anonymization)
//   - Consistent attribute naming across the codebase
//   - Adapter exposing slog through the cron scheduler's logger interface
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "events.fetch")
//	logger.Info("fetched upcoming events",
//	    logging.Count(len(events)))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("event created",
//	    logging.TitleHash(title))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Event titles are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging
