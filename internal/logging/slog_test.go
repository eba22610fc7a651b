package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestStringAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"Operation", Operation("refresh"), KeyOperation, "refresh"},
		{"Component", Component("store"), KeyComponent, "store"},
		{"EventID", EventID("evt-123"), KeyEventID, "evt-123"},
		{"CalendarID", CalendarID("primary"), KeyCalendarID, "primary"},
		{"Tool", Tool("agenda_create_event"), KeyTool, "agenda_create_event"},
		{"Status", Status(StatusSuccess), KeyStatus, StatusSuccess},
		{"Err", Err(errors.New("boom")), KeyError, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if got := tt.attr.Value.String(); got != tt.wantVal {
				t.Errorf("value = %q, want %q", got, tt.wantVal)
			}
		})
	}
}

func TestNumericAttrs(t *testing.T) {
	if attr := Count(7); attr.Key != KeyCount || attr.Value.Int64() != 7 {
		t.Errorf("Count(7) = %v", attr)
	}
	if attr := Revision(42); attr.Key != KeyRevision || attr.Value.Uint64() != 42 {
		t.Errorf("Revision(42) = %v", attr)
	}
	if attr := Duration(250 * time.Millisecond); attr.Key != KeyDuration || attr.Value.Duration() != 250*time.Millisecond {
		t.Errorf("Duration(250ms) = %v", attr)
	}
}

func TestErrNil(t *testing.T) {
	if attr := Err(nil); attr.Key != "" {
		t.Errorf("Err(nil) = %v, want the empty group slog omits", attr)
	}
}

func TestDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	base := New("info", &buf)

	WithOperation(base, "refresh").Info("op message")
	WithComponent(base, "session").Info("component message")
	WithTool(base, "agenda_list_events").Info("tool message")

	out := buf.String()
	for _, want := range []string{"refresh", "session", "agenda_list_events"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestAnonymizeTitle(t *testing.T) {
	got := AnonymizeTitle("Quarterly review")
	if !strings.HasPrefix(got, "title:") {
		t.Errorf("AnonymizeTitle = %q, want title: prefix", got)
	}
	if len(got) != len("title:")+16 {
		t.Errorf("digest length = %d, want %d", len(got), len("title:")+16)
	}
	if strings.Contains(got, "Quarterly") {
		t.Error("digest leaks the raw title")
	}
	if got != AnonymizeTitle("Quarterly review") {
		t.Error("digest is not deterministic")
	}
	if got == AnonymizeTitle("Weekly review") {
		t.Error("distinct titles collided")
	}
	if AnonymizeTitle("") != "" {
		t.Error("empty title must stay empty")
	}
}

func TestTitleHash(t *testing.T) {
	attr := TitleHash("Quarterly review")
	if attr.Key != KeyTitleHash {
		t.Errorf("key = %q, want %q", attr.Key, KeyTitleHash)
	}
	if got := attr.Value.String(); got != AnonymizeTitle("Quarterly review") {
		t.Errorf("value = %q, want the AnonymizeTitle digest", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", "<empty>"},
		{"short", "abc123", "[token:6 chars]"},
		{"long", "a_very_long_token_string", "[token:24 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestStatusValues(t *testing.T) {
	if StatusSuccess != "success" || StatusError != "error" || StatusSkipped != "skipped" {
		t.Errorf("status constants = %q/%q/%q", StatusSuccess, StatusError, StatusSkipped)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true},
		{level: "info", wantDebug: false, wantInfo: true},
		{level: "warn", wantDebug: false, wantInfo: false},
		{level: "error", wantDebug: false, wantInfo: false},
		{level: "bogus", wantDebug: false, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.level, &buf)

			logger.Debug("debug message")
			gotDebug := strings.Contains(buf.String(), "debug message")
			if gotDebug != tt.wantDebug {
				t.Errorf("New(%q) debug emitted = %v, want %v", tt.level, gotDebug, tt.wantDebug)
			}

			buf.Reset()
			logger.Info("info message")
			gotInfo := strings.Contains(buf.String(), "info message")
			if gotInfo != tt.wantInfo {
				t.Errorf("New(%q) info emitted = %v, want %v", tt.level, gotInfo, tt.wantInfo)
			}
		})
	}
}
