package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mpawlik/gridcal/internal/events"
)

// Prompter reads interactive answers from a terminal. It satisfies both
// session.CodePrompter and agenda.TitlePrompter, so one Prompter serves
// the sign-in flow and the slot selection flow of a CLI session.
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// New returns a prompter reading from in and writing prompts to out.
// Nil arguments default to os.Stdin and os.Stderr.
func New(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// PromptCode prints the authorization URL and reads the pasted code. An
// empty line or closed input declines the sign-in without error.
func (p *Prompter) PromptCode(ctx context.Context, authURL string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Open the following link in your browser, approve access, then paste the authorization code here:\n\n  %s\n\n", authURL)
	fmt.Fprint(p.out, "Code (empty to cancel): ")

	line, err := p.readLine(ctx)
	if err != nil {
		return "", false, err
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return "", false, nil
	}
	return code, true, nil
}

// PromptTitle asks for a title for the selected slot. An empty line or
// closed input dismisses the prompt without error.
func (p *Prompter) PromptTitle(ctx context.Context, slot events.Slot) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "New event %s - %s\n", slot.Start.Format("2006-01-02 15:04"), slot.End.Format("15:04"))
	fmt.Fprint(p.out, "Title (empty to cancel): ")

	line, err := p.readLine(ctx)
	if err != nil {
		return "", false, err
	}
	title := strings.TrimSpace(line)
	if title == "" {
		return "", false, nil
	}
	return title, true, nil
}

// readLine reads one line, honoring context cancellation. A closed input
// stream reads as an empty answer, which callers treat as a decline.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", a.err)
		}
		return a.line, nil
	}
}
