package logging

import (
	"log/slog"
)

// CronLogger adapts an slog.Logger to the cron.Logger interface used by
// the robfig/cron scheduler, so scheduled refresh runs log through the
// same structured pipeline as the rest of the application.
type CronLogger struct {
	logger *slog.Logger
}

// NewCronLogger creates a new CronLogger wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewCronLogger(logger *slog.Logger) *CronLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronLogger{logger: logger.With(slog.String(KeyComponent, "cron"))}
}

// Info logs an info message with key-value pairs.
// Arguments should be provided as alternating key-value pairs: key1, value1, key2, value2, ...
func (c *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Info(msg, keysAndValues...)
}

// Error logs an error with key-value pairs.
// Arguments should be provided as alternating key-value pairs: key1, value1, key2, value2, ...
func (c *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, append(keysAndValues, KeyError, err)...)
}

// Logger returns the underlying slog.Logger for direct access when needed.
func (c *CronLogger) Logger() *slog.Logger {
	return c.logger
}
