package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func attrsByKey(attrs []slog.Attr) map[string]slog.Attr {
	m := make(map[string]slog.Attr, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr
	}
	return m
}

func TestToolInvocation_Lifecycle(t *testing.T) {
	ti := NewToolInvocation("agenda_list_events")
	if ti.Tool != "agenda_list_events" {
		t.Errorf("Tool = %q, want %q", ti.Tool, "agenda_list_events")
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime not stamped")
	}

	ti.CompleteSuccess()
	if !ti.Success {
		t.Error("CompleteSuccess() left Success false")
	}
	if ti.Duration < 0 {
		t.Errorf("Duration = %v, want >= 0", ti.Duration)
	}
	if ti.Error != "" {
		t.Errorf("Error = %q, want empty", ti.Error)
	}
}

func TestToolInvocation_Complete(t *testing.T) {
	tests := []struct {
		name        string
		success     bool
		err         error
		wantSuccess bool
		wantError   string
	}{
		{
			name:        "success without error",
			success:     true,
			wantSuccess: true,
		},
		{
			name:      "failure with error",
			err:       errors.New("permission denied"),
			wantError: "permission denied",
		},
		{
			name: "failure without error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := NewToolInvocation("agenda_create_event").Complete(tt.success, tt.err)
			if ti.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", ti.Success, tt.wantSuccess)
			}
			if ti.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", ti.Error, tt.wantError)
			}
		})
	}
}

func TestToolInvocation_Builders(t *testing.T) {
	ti := NewToolInvocation("agenda_create_event").
		WithCalendar("team@example.com").
		WithOperation(OperationCreate).
		WithEvent("evt_12345").
		WithTitle("Sprint planning")

	if ti.CalendarID != "team@example.com" {
		t.Errorf("CalendarID = %q, want %q", ti.CalendarID, "team@example.com")
	}
	if ti.Operation != OperationCreate {
		t.Errorf("Operation = %q, want %q", ti.Operation, OperationCreate)
	}
	if ti.EventID != "evt_12345" {
		t.Errorf("EventID = %q, want %q", ti.EventID, "evt_12345")
	}
	if ti.Title != "Sprint planning" {
		t.Errorf("Title = %q, want %q", ti.Title, "Sprint planning")
	}
}

func TestToolInvocation_Status(t *testing.T) {
	ti := NewToolInvocation("test")

	ti.Success = true
	if got := ti.Status(); got != StatusSuccess {
		t.Errorf("Status() = %q, want %q", got, StatusSuccess)
	}
	ti.Success = false
	if got := ti.Status(); got != StatusError {
		t.Errorf("Status() = %q, want %q", got, StatusError)
	}
}

func TestToolInvocation_TitleDigest(t *testing.T) {
	ti := NewToolInvocation("test").WithTitle("Sprint planning")

	digest := ti.TitleDigest()
	if !strings.HasPrefix(digest, "title:") {
		t.Errorf("TitleDigest() = %q, want prefix %q", digest, "title:")
	}
	if strings.Contains(digest, "Sprint planning") {
		t.Error("TitleDigest() must not contain the raw title")
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *ToolInvocation
		want    map[string]string
		present []string
		absent  []string
	}{
		{
			name: "full invocation hashes the title",
			build: func() *ToolInvocation {
				ti := NewToolInvocation("agenda_create_event").
					WithCalendar("team@example.com").
					WithOperation(OperationCreate).
					WithEvent("evt_12345").
					WithTitle("Sprint planning").
					CompleteSuccess()
				ti.TraceID = "abc123def456"
				return ti
			},
			want: map[string]string{
				"calendar_id": "team@example.com",
				"operation":   OperationCreate,
				"event_id":    "evt_12345",
				"trace_id":    "abc123def456",
			},
			present: []string{"title_hash"},
			absent:  []string{"title", "span_id"},
		},
		{
			name: "default calendar is dropped",
			build: func() *ToolInvocation {
				return NewToolInvocation("agenda_list_events").WithCalendar("primary").CompleteSuccess()
			},
			absent: []string{"calendar_id"},
		},
		{
			name: "unset fields stay out",
			build: func() *ToolInvocation {
				return NewToolInvocation("agenda_list_events").CompleteSuccess()
			},
			absent: []string{"operation", "event_id", "title_hash", "trace_id", "error"},
		},
		{
			name: "failure carries the error",
			build: func() *ToolInvocation {
				return NewToolInvocation("agenda_create_event").CompleteWithError(errors.New("quota exceeded"))
			},
			want: map[string]string{"error": "quota exceeded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attrsByKey(tt.build().LogAttrs())

			for _, key := range []string{"tool", "duration", "success"} {
				if _, ok := got[key]; !ok {
					t.Errorf("missing %q attribute", key)
				}
			}
			for key, want := range tt.want {
				attr, ok := got[key]
				if !ok {
					t.Fatalf("missing %q attribute", key)
				}
				if attr.Value.String() != want {
					t.Errorf("%s = %q, want %q", key, attr.Value.String(), want)
				}
			}
			for _, key := range tt.present {
				if _, ok := got[key]; !ok {
					t.Errorf("missing %q attribute", key)
				}
			}
			for _, key := range tt.absent {
				if _, ok := got[key]; ok {
					t.Errorf("%q must not be present", key)
				}
			}
		})
	}
}

func TestToolInvocation_LogAuditAttrs(t *testing.T) {
	ti := NewToolInvocation("agenda_create_event").
		WithCalendar("team@example.com").
		WithOperation(OperationCreate).
		WithTitle("Sprint planning").
		CompleteSuccess()
	ti.TraceID = "abc123def456"
	ti.SpanID = "span789"

	got := attrsByKey(ti.LogAuditAttrs())
	for key, want := range map[string]string{
		"calendar_id": "team@example.com",
		"title":       "Sprint planning",
		"trace_id":    "abc123def456",
		"span_id":     "span789",
	} {
		attr, ok := got[key]
		if !ok {
			t.Fatalf("missing %q attribute", key)
		}
		if attr.Value.String() != want {
			t.Errorf("%s = %q, want %q", key, attr.Value.String(), want)
		}
	}
}

func TestToolInvocation_LogAuditAttrs_Minimal(t *testing.T) {
	got := attrsByKey(NewToolInvocation("agenda_list_events").CompleteSuccess().LogAuditAttrs())
	for _, key := range []string{"calendar_id", "title"} {
		if _, ok := got[key]; ok {
			t.Errorf("%q must not be present for an unset field", key)
		}
	}
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation("test").WithSpanContext(context.Background())

	if ti.TraceID != "" {
		t.Errorf("TraceID = %q, want empty", ti.TraceID)
	}
	if ti.SpanID != "" {
		t.Errorf("SpanID = %q, want empty", ti.SpanID)
	}
}

func TestNewAuditLogger(t *testing.T) {
	if al := NewAuditLogger(nil); al.logger == nil {
		t.Error("NewAuditLogger(nil) must fall back to the default logger")
	}

	logger := slog.Default()
	if al := NewAuditLogger(logger); al.logger != logger {
		t.Error("NewAuditLogger did not keep the provided logger")
	}
}

func TestAuditLogger_Records(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogToolInvocation(NewToolInvocation("agenda_list_events").CompleteSuccess())
	if !strings.Contains(buf.String(), "tool_executed") {
		t.Errorf("output %q missing tool_executed record", buf.String())
	}

	buf.Reset()
	al.LogToolInvocation(NewToolInvocation("agenda_create_event").CompleteWithError(errors.New("boom")))
	if !strings.Contains(buf.String(), "tool_failed") {
		t.Errorf("output %q missing tool_failed record", buf.String())
	}

	buf.Reset()
	al.LogSessionTransition("signed_in")
	out := buf.String()
	if !strings.Contains(out, "session_transition") || !strings.Contains(out, "signed_in") {
		t.Errorf("output %q missing session transition record", out)
	}
}

func TestAuditLogger_EventCreatedTitleHandling(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogEventCreated("primary", "evt_12345", "Sprint planning")
	out := buf.String()
	if !strings.Contains(out, "event_created") {
		t.Errorf("output %q missing event_created record", out)
	}
	if strings.Contains(out, "Sprint planning") {
		t.Error("raw title leaked into a hashed audit record")
	}

	al.SetIncludeTitles(true)
	buf.Reset()
	al.LogEventCreated("primary", "evt_12345", "Sprint planning")
	if !strings.Contains(buf.String(), "Sprint planning") {
		t.Error("raw title missing although IncludeTitles is on")
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	al.SetEnabled(false)

	al.LogSessionTransition("signed_out")
	al.LogEventCreated("primary", "evt_12345", "Sprint planning")
	al.LogToolInvocation(NewToolInvocation("agenda_list_events").CompleteSuccess())

	if buf.Len() != 0 {
		t.Errorf("disabled audit logger wrote %q", buf.String())
	}
}
