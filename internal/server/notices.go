package server

import (
	"sync"

	"github.com/mpawlik/gridcal/internal/agenda"
)

// DefaultNoticeCapacity is the number of notices retained for the view.
const DefaultNoticeCapacity = 50

// NoticeLog keeps the most recent notices in a ring buffer the view can
// poll over /api/notices. Every notice is also forwarded to an optional
// secondary notifier, normally the controller's log notifier.
type NoticeLog struct {
	mu      sync.Mutex
	ring    []agenda.Notice
	next    int
	filled  bool
	forward agenda.Notifier
}

// NewNoticeLog creates a notice log holding up to capacity entries.
// capacity values below one fall back to DefaultNoticeCapacity.
func NewNoticeLog(capacity int, forward agenda.Notifier) *NoticeLog {
	if capacity < 1 {
		capacity = DefaultNoticeCapacity
	}
	return &NoticeLog{
		ring:    make([]agenda.Notice, capacity),
		forward: forward,
	}
}

// Notify records the notice, overwriting the oldest entry once the
// buffer is full.
func (l *NoticeLog) Notify(n agenda.Notice) {
	l.mu.Lock()
	l.ring[l.next] = n
	l.next = (l.next + 1) % len(l.ring)
	if l.next == 0 {
		l.filled = true
	}
	l.mu.Unlock()

	if l.forward != nil {
		l.forward.Notify(n)
	}
}

// Recent returns the recorded notices, newest first.
func (l *NoticeLog) Recent() []agenda.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.next
	if l.filled {
		size = len(l.ring)
	}
	out := make([]agenda.Notice, 0, size)
	for i := 1; i <= size; i++ {
		idx := (l.next - i + len(l.ring)) % len(l.ring)
		out = append(out, l.ring[idx])
	}
	return out
}
