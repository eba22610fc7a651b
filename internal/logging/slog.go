package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyComponent  = "component"
	KeyState      = "state"
	KeyEventID    = "event_id"
	KeyCalendarID = "calendar_id"
	KeyCount      = "count"
	KeyRevision   = "revision"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyTool       = "tool"
	KeyTitleHash  = "title_hash"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// New builds the root logger writing text records to w. level is one of
// debug, info, warn or error; anything else falls back to info.
func New(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Component returns a slog attribute for the component name.
func Component(component string) slog.Attr {
	return slog.String(KeyComponent, component)
}

// State returns a slog attribute for a session state name.
func State(state fmt.Stringer) slog.Attr {
	return slog.String(KeyState, state.String())
}

// EventID returns a slog attribute for a remote event id.
func EventID(id string) slog.Attr {
	return slog.String(KeyEventID, id)
}

// CalendarID returns a slog attribute for the calendar id.
func CalendarID(id string) slog.Attr {
	return slog.String(KeyCalendarID, id)
}

// Count returns a slog attribute for an element count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Revision returns a slog attribute for a store revision.
func Revision(rev uint64) slog.Attr {
	return slog.Uint64(KeyRevision, rev)
}

// Duration returns a slog attribute for an operation duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeTitle returns a hashed representation of an event title for logging.
// This allows correlation of log entries without exposing the user's event text.
func AnonymizeTitle(title string) string {
	if title == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(title))
	return "title:" + hex.EncodeToString(hash[:8])
}

// TitleHash returns a slog attribute with the anonymized event title.
// This is a convenience function to reduce repetition in logging calls and ensure
// consistent attribute naming across the codebase.
//
// Usage:
//
//	logger.Info("event created", logging.TitleHash(title))
func TitleHash(title string) slog.Attr {
	return slog.String(KeyTitleHash, AnonymizeTitle(title))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content,
// as even partial token prefixes can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
