package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/mpawlik/gridcal/internal/logging"
)

// ToolInvocation captures one MCP tool call or view API action for the
// audit trail. The Title field is user content: general logs get the
// hashed digest, only audit-configured logs see the raw value.
type ToolInvocation struct {
	Tool string

	// Remote calendar target, filled in as far as the invocation
	// touched one.
	CalendarID string
	Operation  string
	EventID    string
	Title      string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing an invocation of the named tool.
// Call one of the Complete methods when the tool finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

// WithCalendar records the calendar id.
func (ti *ToolInvocation) WithCalendar(calendarID string) *ToolInvocation {
	ti.CalendarID = calendarID
	return ti
}

// WithOperation records the remote operation kind.
func (ti *ToolInvocation) WithOperation(operation string) *ToolInvocation {
	ti.Operation = operation
	return ti
}

// WithEvent records the remote event id.
func (ti *ToolInvocation) WithEvent(eventID string) *ToolInvocation {
	ti.EventID = eventID
	return ti
}

// WithTitle records the event title carried by the invocation.
func (ti *ToolInvocation) WithTitle(title string) *ToolInvocation {
	ti.Title = title
	return ti
}

// WithSpanContext copies the trace and span ids from the span in ctx,
// if there is a valid one.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete stamps the duration and outcome.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// TitleDigest returns the hashed title identifier used in
// cardinality-safe logs.
func (ti *ToolInvocation) TitleDigest() string {
	return logging.AnonymizeTitle(ti.Title)
}

// Status maps Success onto the shared status label values.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// attrs builds the slog attributes. In audit mode every field appears
// as-is; otherwise titles are hashed, the default calendar is dropped
// and the span id is left out.
func (ti *ToolInvocation) attrs(audit bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.CalendarID != "" && (audit || ti.CalendarID != "primary") {
		attrs = append(attrs, slog.String("calendar_id", ti.CalendarID))
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation))
	}
	if ti.EventID != "" {
		attrs = append(attrs, slog.String("event_id", ti.EventID))
	}
	if ti.Title != "" {
		if audit {
			attrs = append(attrs, slog.String("title", ti.Title))
		} else {
			attrs = append(attrs, slog.String("title_hash", ti.TitleDigest()))
		}
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if audit && ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// LogAttrs returns the cardinality-safe attribute set for operational
// logs.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	return ti.attrs(false)
}

// LogAuditAttrs returns the full attribute set, raw title included.
// Records built from it belong in log storage with access controls.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	return ti.attrs(true)
}

/// AuditLogger writes the audit trail of user-visible actions: tool
// invocations, session transitions and event creation.
type AuditLogger struct {
	logger        *slog.Logger
	includeTitles bool
	enabled       bool
}

// NewAuditLogger creates an enabled AuditLogger that hashes titles.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger from the audit
// section of the instrumentation config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:        logger,
		includeTitles: config.IncludeTitles,
		enabled:       config.Enabled,
	}
}

// SetIncludeTitles switches raw titles in audit records on or off.
func (al *AuditLogger) SetIncludeTitles(include bool) {
	al.includeTitles = include
}

// SetEnabled switches the audit trail on or off.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation writes one audit record for a completed invocation.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if !al.enabled {
		return
	}

	attrs := ti.LogAttrs()
	if al.includeTitles {
		attrs = ti.LogAuditAttrs()
	}

	msg, level := "tool_executed", slog.LevelInfo
	if !ti.Success {
		msg, level = "tool_failed", slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogSessionTransition records a session state change. Subscribe this
// to the session manager so every sign-in and sign-out leaves a record.
func (al *AuditLogger) LogSessionTransition(state string) {
	if !al.enabled {
		return
	}
	al.logger.Info("session_transition", slog.String("state", state))
}

// LogEventCreated records the creation of a remote calendar event.
func (al *AuditLogger) LogEventCreated(calendarID, eventID, title string) {
	if !al.enabled {
		return
	}

	attrs := []any{
		slog.String("calendar_id", calendarID),
		slog.String("event_id", eventID),
	}
	if al.includeTitles {
		attrs = append(attrs, slog.String("title", title))
	} else {
		attrs = append(attrs, slog.String("title_hash", logging.AnonymizeTitle(title)))
	}
	al.logger.Info("event_created", attrs...)
}
