package agenda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/mpawlik/gridcal/internal/calendar"
	"github.com/mpawlik/gridcal/internal/events"
	"github.com/mpawlik/gridcal/internal/instrumentation"
	"github.com/mpawlik/gridcal/internal/logging"
	"github.com/mpawlik/gridcal/internal/session"
)

// ErrFetchFailed wraps remote listing failures. The store keeps its
// last-known-good contents when a fetch fails.
var ErrFetchFailed = errors.New("failed to fetch remote events")

// ErrCreateFailed wraps remote insert failures. The store is left
// unchanged when a create fails.
var ErrCreateFailed = errors.New("failed to create remote event")

// CalendarAPI is the remote surface the controller drives.
// *calendar.Client satisfies it.
type CalendarAPI interface {
	CalendarID() string
	ListUpcoming(ctx context.Context, from time.Time) ([]*gcal.Event, error)
	CreateEvent(ctx context.Context, input calendar.EventInput) (*gcal.Event, error)
}

// ClientFactory builds a remote client once a session is available. The
// controller calls it lazily after sign-in and drops the client again on
// sign-out.
type ClientFactory func(ctx context.Context) (CalendarAPI, error)

// SessionStatus reports the current session state. *session.Manager
// satisfies it.
type SessionStatus interface {
	State() session.State
}

// TitlePrompter asks the user to name a selected slot. ok reports whether
// a title was entered; a dismissed prompt is ("", false, nil), not an
// error.
type TitlePrompter interface {
	PromptTitle(ctx context.Context, slot events.Slot) (title string, ok bool, err error)
}

// Controller keeps the event store in step with the remote calendar. It
// fetches upcoming events once per sign-in, clears the store on sign-out,
// and turns selected slots into remote events. Only remote-confirmed
// events ever reach the store; failures surface as notices and leave the
// store untouched. No operation is retried automatically.
type Controller struct {
	store     *events.Store
	sessions  SessionStatus
	newClient ClientFactory
	prompter  TitlePrompter
	logger    *slog.Logger
	now       func() time.Time

	notifier Notifier
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger

	// createMu serializes slot-to-event flows.
	createMu sync.Mutex

	mu      sync.Mutex
	client  CalendarAPI
	fetched bool
	gen     uint64
}

// NewController returns a controller bound to the given store and
// session. The prompter may be nil when slot selection goes through
// CreateFromSlot only. If logger is nil, slog.Default() is used.
func NewController(store *events.Store, sessions SessionStatus, newClient ClientFactory, prompter TitlePrompter, logger *slog.Logger) *Controller {
	return NewControllerWithClock(store, sessions, newClient, prompter, logger, time.Now)
}

// NewControllerWithClock is NewController with an injectable clock. The
// clock sets the lower time bound of every fetch.
func NewControllerWithClock(store *events.Store, sessions SessionStatus, newClient ClientFactory, prompter TitlePrompter, logger *slog.Logger, now func() time.Time) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithComponent(logger, "agenda")
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store:     store,
		sessions:  sessions,
		newClient: newClient,
		prompter:  prompter,
		logger:    logger,
		now:       now,
		notifier:  NewLogNotifier(logger),
	}
}

// SetNotifier replaces the default log notifier. Call before the
// controller starts receiving session notifications.
func (c *Controller) SetNotifier(n Notifier) {
	if n != nil {
		c.notifier = n
	}
}

// SetMetrics enables instrumentation metrics for the controller.
func (c *Controller) SetMetrics(metrics *instrumentation.Metrics) {
	c.metrics = metrics
}

// SetAuditLogger enables audit records for created events.
func (c *Controller) SetAuditLogger(audit *instrumentation.AuditLogger) {
	c.audit = audit
}

// HandleSessionState reacts to session transitions. Register it with
// session.Manager.Subscribe before Initialize so the initial transition
// is observed. Repeated notifications of the same state are idempotent:
// the automatic fetch runs at most once per sign-in.
func (c *Controller) HandleSessionState(st session.State) {
	switch st {
	case session.StateSignedIn:
		c.handleSignedIn()
	case session.StateSignedOut:
		c.handleSignedOut()
	}
}

func (c *Controller) handleSignedIn() {
	c.mu.Lock()
	if c.fetched {
		c.mu.Unlock()
		return
	}
	c.fetched = true
	gen := c.gen
	c.mu.Unlock()

	c.notify(Notice{Kind: NoticeSignedIn, Message: "signed in"})

	// The subscriber callback carries no context, and the session manager
	// invokes subscribers outside its lock, so calling back into the
	// session from here is safe.
	ctx := context.Background()
	client, err := c.ensureClient(ctx)
	if err != nil {
		c.notify(Notice{Kind: NoticeFetchFailed, Message: "could not reach the calendar service", Err: err})
		c.logger.Warn("building calendar client failed", logging.Err(err))
		return
	}
	if err := c.fetch(ctx, client, gen); err != nil {
		c.logger.Warn("initial fetch failed", logging.Err(err))
	}
}

func (c *Controller) handleSignedOut() {
	c.mu.Lock()
	c.gen++
	c.client = nil
	c.fetched = false
	c.store.Clear()
	c.mu.Unlock()

	c.recordStoreSize(context.Background(), int64(c.store.Len()))
	c.notify(Notice{Kind: NoticeSignedOut, Message: "signed out"})
	c.logger.Info("agenda cleared", logging.Revision(c.store.Revision()))
}

// Refresh refetches upcoming events. Unlike the automatic sign-in fetch
// it may run any number of times per session.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.sessions.State() != session.StateSignedIn {
		return session.ErrNotSignedIn
	}
	client, err := c.ensureClient(ctx)
	if err != nil {
		c.notify(Notice{Kind: NoticeFetchFailed, Message: "could not reach the calendar service", Err: err})
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return c.fetch(ctx, client, gen)
}

// fetch lists upcoming events, maps them, and replaces the store
// contents. Malformed elements are skipped and reported, never fatal. A
// result whose generation no longer matches (the session ended while the
// fetch was in flight) is discarded.
func (c *Controller) fetch(ctx context.Context, client CalendarAPI, gen uint64) error {
	from := c.now()

	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationList,
		instrumentation.NewSpanAttributeBuilder().WithCalendar(client.CalendarID()).Build()...)
	defer span.End()

	start := time.Now()
	items, err := client.ListUpcoming(ctx, from)
	duration := time.Since(start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.recordCalendarOperation(ctx, client, instrumentation.OperationList, instrumentation.StatusError, duration)
		c.notify(Notice{Kind: NoticeFetchFailed, Message: "could not fetch upcoming events", Err: err})
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	instrumentation.SetSpanSuccess(span)
	c.recordCalendarOperation(ctx, client, instrumentation.OperationList, instrumentation.StatusSuccess, duration)

	mapped, skipped := events.MapMany(items)
	for _, mapErr := range skipped {
		c.logger.Warn("skipping malformed event", logging.Err(mapErr))
	}
	if len(skipped) > 0 {
		c.notify(Notice{Kind: NoticeEventsSkipped, Message: fmt.Sprintf("skipped %d malformed events", len(skipped))})
	}
	if c.metrics != nil {
		c.metrics.RecordEventsMapped(ctx, int64(len(mapped)), int64(len(skipped)))
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("discarding fetch result from an ended session")
		return nil
	}
	c.store.ReplaceAll(mapped)
	c.mu.Unlock()

	c.recordStoreSize(ctx, int64(c.store.Len()))
	c.logger.Info("agenda refreshed",
		logging.Count(len(mapped)),
		logging.Revision(c.store.Revision()),
		logging.Duration(duration),
	)
	return nil
}

// SelectSlot runs the slot selection flow: validate the slot, prompt for
// a title, create the event remotely, append the confirmed event. The
// slot is validated before the prompt and before any remote call. A
// dismissed prompt or an empty title is a silent no-op.
func (c *Controller) SelectSlot(ctx context.Context, slot events.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	if c.sessions.State() != session.StateSignedIn {
		return session.ErrNotSignedIn
	}
	if c.prompter == nil {
		return errors.New("no title prompter configured")
	}
	title, ok, err := c.prompter.PromptTitle(ctx, slot)
	if err != nil {
		return fmt.Errorf("title prompt failed: %w", err)
	}
	if !ok || strings.TrimSpace(title) == "" {
		c.logger.Debug("slot selection dismissed")
		return nil
	}
	return c.CreateFromSlot(ctx, slot, title)
}

// CreateFromSlot creates a remote event for the slot with the title
// already decided by the caller. An empty title is a no-op. Nothing
// reaches the store unless the remote create is confirmed; a failed
// create leaves the store unchanged and emits a notice.
func (c *Controller) CreateFromSlot(ctx context.Context, slot events.Slot, title string) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	if c.sessions.State() != session.StateSignedIn {
		return session.ErrNotSignedIn
	}

	c.createMu.Lock()
	defer c.createMu.Unlock()

	client, err := c.ensureClient(ctx)
	if err != nil {
		c.notify(Notice{Kind: NoticeCreateFailed, Message: "could not reach the calendar service", Err: err})
		return fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationCreate,
		instrumentation.NewSpanAttributeBuilder().WithCalendar(client.CalendarID()).Build()...)
	defer span.End()

	start := time.Now()
	created, err := client.CreateEvent(ctx, calendar.EventInput{Title: title, Start: slot.Start, End: slot.End})
	duration := time.Since(start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.recordCalendarOperation(ctx, client, instrumentation.OperationCreate, instrumentation.StatusError, duration)
		c.notify(Notice{Kind: NoticeCreateFailed, Message: "could not create the event", Err: err})
		return fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	instrumentation.SetSpanSuccess(span)
	c.recordCalendarOperation(ctx, client, instrumentation.OperationCreate, instrumentation.StatusSuccess, duration)

	event, err := events.MapOne(created)
	if err != nil {
		// The event exists remotely but cannot be displayed; the next
		// refresh reports it as skipped.
		c.logger.Warn("created event is not displayable", logging.EventID(created.Id), logging.Err(err))
		return nil
	}

	c.store.Append(event)
	c.recordStoreSize(ctx, int64(c.store.Len()))
	if c.audit != nil {
		c.audit.LogEventCreated(client.CalendarID(), event.ID, event.Title)
	}
	c.logger.Info("event created",
		logging.EventID(event.ID),
		logging.TitleHash(event.Title),
		logging.Revision(c.store.Revision()),
	)
	return nil
}

// ensureClient returns the current remote client, building one through
// the factory if none exists yet.
func (c *Controller) ensureClient(ctx context.Context) (CalendarAPI, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		return client, nil
	}

	built, err := c.newClient(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.client == nil {
		c.client = built
	}
	client = c.client
	c.mu.Unlock()
	return client, nil
}

func (c *Controller) notify(n Notice) {
	if n.Time.IsZero() {
		n.Time = c.now()
	}
	if c.metrics != nil {
		c.metrics.RecordNotice(context.Background(), n.Kind)
	}
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

func (c *Controller) recordCalendarOperation(ctx context.Context, client CalendarAPI, operation, status string, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCalendarOperationFor(ctx, operation, status, client.CalendarID(), duration)
}

func (c *Controller) recordStoreSize(ctx context.Context, size int64) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordStoreSize(ctx, size)
}
