package agenda

import (
	"log/slog"
	"time"

	"github.com/mpawlik/gridcal/internal/logging"
)

// Notice kinds emitted by the controller.
const (
	NoticeSignedIn      = "signed_in"
	NoticeSignedOut     = "signed_out"
	NoticeFetchFailed   = "fetch_failed"
	NoticeCreateFailed  = "create_failed"
	NoticeEventsSkipped = "events_skipped"
)

// Notice is a non-fatal condition the view surfaces without interrupting
// the user. Failed fetches and creates produce notices instead of fatal
// errors; the store keeps its last-known-good contents.
type Notice struct {
	Kind    string
	Message string
	Err     error
	Time    time.Time
}

// Notifier receives notices from the controller. Implementations must be
// safe for concurrent use and must not block.
type Notifier interface {
	Notify(notice Notice)
}

// LogNotifier writes notices to a logger. It is the controller's default
// notifier.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs every notice.
// If logger is nil, slog.Default() is used.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logging.WithComponent(logger, "notices")}
}

// Notify logs the notice. Notices carrying an error log at warn level,
// the rest at info.
func (n *LogNotifier) Notify(notice Notice) {
	if notice.Err != nil {
		n.logger.Warn(notice.Message, slog.String("kind", notice.Kind), logging.Err(notice.Err))
		return
	}
	n.logger.Info(notice.Message, slog.String("kind", notice.Kind))
}
