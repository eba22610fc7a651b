package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mpawlik/gridcal/internal/agenda"
	"github.com/mpawlik/gridcal/internal/events"
	"github.com/mpawlik/gridcal/internal/session"
)

func TestPrompter_ImplementsInterfaces(t *testing.T) {
	var _ session.CodePrompter = (*Prompter)(nil)
	var _ agenda.TitlePrompter = (*Prompter)(nil)
}

func TestPromptCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode string
		wantOK   bool
	}{
		{
			name:     "code entered",
			input:    "4/0AeanS0abc123\n",
			wantCode: "4/0AeanS0abc123",
			wantOK:   true,
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  my-code  \n",
			wantCode: "my-code",
			wantOK:   true,
		},
		{
			name:     "no trailing newline",
			input:    "my-code",
			wantCode: "my-code",
			wantOK:   true,
		},
		{
			name:     "empty line declines",
			input:    "\n",
			wantCode: "",
			wantOK:   false,
		},
		{
			name:     "closed input declines",
			input:    "",
			wantCode: "",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := New(strings.NewReader(tt.input), &out)

			code, ok, err := p.PromptCode(context.Background(), "https://accounts.example.com/auth?x=1")
			if err != nil {
				t.Fatalf("PromptCode() error = %v", err)
			}
			if code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("PromptCode() = (%q, %v), want (%q, %v)", code, ok, tt.wantCode, tt.wantOK)
			}
			if !strings.Contains(out.String(), "https://accounts.example.com/auth?x=1") {
				t.Error("prompt should show the authorization URL")
			}
		})
	}
}

func TestPromptTitle(t *testing.T) {
	slot := events.Slot{
		Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}

	var out bytes.Buffer
	p := New(strings.NewReader("Review\n"), &out)

	title, ok, err := p.PromptTitle(context.Background(), slot)
	if err != nil {
		t.Fatalf("PromptTitle() error = %v", err)
	}
	if !ok || title != "Review" {
		t.Errorf("PromptTitle() = (%q, %v), want (%q, true)", title, ok, "Review")
	}
	if !strings.Contains(out.String(), "2026-03-02 10:00 - 11:00") {
		t.Errorf("prompt should show the slot times, got %q", out.String())
	}
}

func TestPromptTitle_Dismissed(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("\n"), &out)

	slot := events.Slot{
		Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}
	title, ok, err := p.PromptTitle(context.Background(), slot)
	if err != nil {
		t.Fatalf("PromptTitle() error = %v", err)
	}
	if ok || title != "" {
		t.Errorf("PromptTitle() = (%q, %v), want dismissed", title, ok)
	}
}

func TestPromptCode_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() {
		pw.Close()
		pr.Close()
	})

	p := New(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.PromptCode(ctx, "https://accounts.example.com/auth")
	if err == nil {
		t.Fatal("PromptCode() should fail when the context is cancelled")
	}
}
