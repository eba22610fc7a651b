package agenda

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/mpawlik/gridcal/internal/calendar"
	"github.com/mpawlik/gridcal/internal/events"
	"github.com/mpawlik/gridcal/internal/session"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fakeSessions struct {
	mu    sync.Mutex
	state session.State
}

func (f *fakeSessions) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSessions) setState(st session.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = st
}

type fakeCalendar struct {
	mu          sync.Mutex
	listCalls   int
	listItems   []*gcal.Event
	listErr     error
	listStarted chan struct{}
	listRelease chan struct{}
	createCalls int
	createErr   error
	createEcho  *gcal.Event
	lastInput   calendar.EventInput
}

func (f *fakeCalendar) CalendarID() string { return "primary" }

func (f *fakeCalendar) ListUpcoming(ctx context.Context, from time.Time) ([]*gcal.Event, error) {
	f.mu.Lock()
	f.listCalls++
	if f.listStarted != nil {
		close(f.listStarted)
		f.listStarted = nil
	}
	release := f.listRelease
	items, err := f.listItems, f.listErr
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return items, err
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, input calendar.EventInput) (*gcal.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastInput = input
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createEcho != nil {
		return f.createEcho, nil
	}
	return &gcal.Event{
		Id:      "evt_created",
		Summary: input.Title,
		Start:   &gcal.EventDateTime{DateTime: input.Start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: input.End.Format(time.RFC3339)},
	}, nil
}

func (f *fakeCalendar) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeCalendar) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *fakeCalendar) setListError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeCalendar) setCreateError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *fakeCalendar) input() calendar.EventInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput
}

type fakePrompter struct {
	mu    sync.Mutex
	title string
	ok    bool
	err   error
	calls int
}

func (f *fakePrompter) PromptTitle(ctx context.Context, slot events.Slot) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.title, f.ok, f.err
}

func (f *fakePrompter) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

func wireEvent(id, title string, start time.Time, d time.Duration) *gcal.Event {
	return &gcal.Event{
		Id:      id,
		Summary: title,
		Start:   &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: start.Add(d).Format(time.RFC3339)},
	}
}

func newTestController(api CalendarAPI, sessions *fakeSessions, prompter TitlePrompter) (*Controller, *events.Store, *recordingNotifier) {
	store := events.NewStore()
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := func(ctx context.Context) (CalendarAPI, error) {
		return api, nil
	}
	c := NewControllerWithClock(store, sessions, factory, prompter, logger, func() time.Time { return testNow })
	c.SetNotifier(notifier)
	return c, store, notifier
}

func TestHandleSessionState_SignInFetchesUpcomingEvents(t *testing.T) {
	api := &fakeCalendar{listItems: []*gcal.Event{
		wireEvent("evt_1", "Standup", testNow.Add(time.Hour), 15*time.Minute),
		wireEvent("evt_2", "Review", testNow.Add(2*time.Hour), time.Hour),
	}}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, store, notifier := newTestController(api, sessions, nil)

	c.HandleSessionState(session.StateSignedIn)

	require.Equal(t, 1, api.listCount())
	got := store.All()
	require.Len(t, got, 2)
	assert.Equal(t, "evt_1", got[0].ID)
	assert.Equal(t, "Standup", got[0].Title)
	assert.Equal(t, "evt_2", got[1].ID)
	assert.Equal(t, "Review", got[1].Title)
	assert.Contains(t, notifier.kinds(), NoticeSignedIn)
}

func TestHandleSessionState_FetchRunsOncePerSignIn(t *testing.T) {
	api := &fakeCalendar{listItems: []*gcal.Event{
		wireEvent("evt_1", "Standup", testNow.Add(time.Hour), 15*time.Minute),
	}}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, _, _ := newTestController(api, sessions, nil)

	c.HandleSessionState(session.StateSignedIn)
	c.HandleSessionState(session.StateSignedIn)
	assert.Equal(t, 1, api.listCount())

	// Signing out resets the guard; the next sign-in fetches again.
	sessions.setState(session.StateSignedOut)
	c.HandleSessionState(session.StateSignedOut)
	sessions.setState(session.StateSignedIn)
	c.HandleSessionState(session.StateSignedIn)
	assert.Equal(t, 2, api.listCount())
}

func TestHandleSessionState_SignOutClearsStore(t *testing.T) {
	api := &fakeCalendar{listItems: []*gcal.Event{
		wireEvent("evt_1", "Standup", testNow.Add(time.Hour), 15*time.Minute),
	}}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, store, notifier := newTestController(api, sessions, nil)

	c.HandleSessionState(session.StateSignedIn)
	require.Equal(t, 1, store.Len())

	sessions.setState(session.StateSignedOut)
	c.HandleSessionState(session.StateSignedOut)

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.All())
	assert.Contains(t, notifier.kinds(), NoticeSignedOut)
}

func TestHandleSessionState_IgnoresIntermediateStates(t *testing.T) {
	api := &fakeCalendar{}
	sessions := &fakeSessions{state: session.StateInitializing}
	c, store, notifier := newTestController(api, sessions, nil)

	c.HandleSessionState(session.StateUninitialized)
	c.HandleSessionState(session.StateInitializing)

	assert.Equal(t, 0, api.listCount())
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, notifier.kinds())
}

func TestFetch_SkipsMalformedEvents(t *testing.T) {
	api := &fakeCalendar{listItems: []*gcal.Event{
		wireEvent("evt_1", "Standup", testNow.Add(time.Hour), 15*time.Minute),
		{Id: "evt_bad", Summary: "No start"},
		wireEvent("evt_3", "Review", testNow.Add(2*time.Hour), time.Hour),
	}}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, store, notifier := newTestController(api, sessions, nil)

	c.HandleSessionState(session.StateSignedIn)

	got := store.All()
	require.Len(t, got, 2)
	assert.Equal(t, "evt_1", got[0].ID)
	assert.Equal(t, "evt_3", got[1].ID)
	assert.Contains(t, notifier.kinds(), NoticeEventsSkipped)
}

func TestRefresh_RequiresSignIn(t *testing.T) {
	api := &fakeCalendar{}
	sessions := &fakeSessions{state: session.StateSignedOut}
	c, _, _ := newTestController(api, sessions, nil)

	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, session.ErrNotSignedIn)
	assert.Equal(t, 0, api.listCount())
}

func TestRefresh_FailureKeepsLastKnownGood(t *testing.T) {
	api := &fakeCalendar{listItems: []*gcal.Event{
		wireEvent("evt_1", "Standup", testNow.Add(time.Hour), 15*time.Minute),
	}}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, store, notifier := newTestController(api, sessions, nil)

	c.HandleSessionState(session.StateSignedIn)
	require.Equal(t, 1, store.Len())
	before := store.All()

	api.setListError(errors.New("backend down"))
	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrFetchFailed)

	assert.Equal(t, before, store.All())
	assert.Contains(t, notifier.kinds(), NoticeFetchFailed)
}

func TestRefresh_RunsOutsideTheOnceGuard(t *testing.T) {
	api := &fakeCalendar{listItems: []*gcal.Event{
		wireEvent("evt_1", "Standup", testNow.Add(time.Hour), 15*time.Minute),
	}}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, _, _ := newTestController(api, sessions, nil)

	c.HandleSessionState(session.StateSignedIn)
	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, 3, api.listCount())
}

func TestSelectSlot_InvalidSlotBeforeAnything(t *testing.T) {
	tests := []struct {
		name string
		slot events.Slot
	}{
		{
			name: "end equals start",
			slot: events.Slot{Start: testNow, End: testNow},
		},
		{
			name: "end before start",
			slot: events.Slot{Start: testNow, End: testNow.Add(-time.Hour)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeCalendar{}
			prompter := &fakePrompter{title: "Review", ok: true}
			sessions := &fakeSessions{state: session.StateSignedIn}
			c, store, _ := newTestController(api, sessions, prompter)

			err := c.SelectSlot(context.Background(), tt.slot)
			require.ErrorIs(t, err, events.ErrInvalidSlot)

			assert.Equal(t, 0, prompter.promptCount())
			assert.Equal(t, 0, api.createCount())
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestSelectSlot_InvalidSlotWinsOverSignedOut(t *testing.T) {
	api := &fakeCalendar{}
	prompter := &fakePrompter{title: "Review", ok: true}
	sessions := &fakeSessions{state: session.StateSignedOut}
	c, _, _ := newTestController(api, sessions, prompter)

	err := c.SelectSlot(context.Background(), events.Slot{Start: testNow, End: testNow})
	require.ErrorIs(t, err, events.ErrInvalidSlot)
	assert.Equal(t, 0, prompter.promptCount())
}

func TestSelectSlot_RequiresSignIn(t *testing.T) {
	api := &fakeCalendar{}
	prompter := &fakePrompter{title: "Review", ok: true}
	sessions := &fakeSessions{state: session.StateSignedOut}
	c, _, _ := newTestController(api, sessions, prompter)

	slot := events.Slot{Start: testNow, End: testNow.Add(time.Hour)}
	err := c.SelectSlot(context.Background(), slot)
	require.ErrorIs(t, err, session.ErrNotSignedIn)

	assert.Equal(t, 0, prompter.promptCount())
	assert.Equal(t, 0, api.createCount())
}

func TestSelectSlot_DismissedPromptIsNoOp(t *testing.T) {
	tests := []struct {
		name     string
		prompter *fakePrompter
	}{
		{
			name:     "prompt dismissed",
			prompter: &fakePrompter{ok: false},
		},
		{
			name:     "blank title",
			prompter: &fakePrompter{title: "   ", ok: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeCalendar{}
			sessions := &fakeSessions{state: session.StateSignedIn}
			c, store, notifier := newTestController(api, sessions, tt.prompter)

			slot := events.Slot{Start: testNow, End: testNow.Add(time.Hour)}
			err := c.SelectSlot(context.Background(), slot)
			require.NoError(t, err)

			assert.Equal(t, 1, tt.prompter.promptCount())
			assert.Equal(t, 0, api.createCount())
			assert.Equal(t, 0, store.Len())
			assert.Empty(t, notifier.kinds())
		})
	}
}

func TestSelectSlot_PromptErrorSurfaces(t *testing.T) {
	api := &fakeCalendar{}
	prompter := &fakePrompter{err: errors.New("terminal closed")}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, _, _ := newTestController(api, sessions, prompter)

	slot := events.Slot{Start: testNow, End: testNow.Add(time.Hour)}
	err := c.SelectSlot(context.Background(), slot)
	require.Error(t, err)
	assert.Equal(t, 0, api.createCount())
}

func TestSelectSlot_AppendsRemoteConfirmedEvent(t *testing.T) {
	start := testNow.Add(time.Hour)
	api := &fakeCalendar{createEcho: &gcal.Event{
		Id:      "abc",
		Summary: "Review",
		Start:   &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)},
	}}
	prompter := &fakePrompter{title: "Review", ok: true}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, store, _ := newTestController(api, sessions, prompter)

	slot := events.Slot{Start: start, End: start.Add(time.Hour)}
	err := c.SelectSlot(context.Background(), slot)
	require.NoError(t, err)

	require.Equal(t, 1, api.createCount())
	sent := api.input()
	assert.Equal(t, "Review", sent.Title)
	assert.True(t, sent.Start.Equal(slot.Start))
	assert.True(t, sent.End.Equal(slot.End))

	got := store.All()
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].ID)
	assert.Equal(t, "Review", got[0].Title)
	assert.True(t, got[0].Start.Equal(slot.Start))
	assert.True(t, got[0].End.Equal(slot.End))
}

func TestCreateFromSlot_EmptyTitleIsNoOp(t *testing.T) {
	api := &fakeCalendar{}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, store, _ := newTestController(api, sessions, nil)

	slot := events.Slot{Start: testNow, End: testNow.Add(time.Hour)}
	require.NoError(t, c.CreateFromSlot(context.Background(), slot, "  "))

	assert.Equal(t, 0, api.createCount())
	assert.Equal(t, 0, store.Len())
}

func TestCreateFromSlot_RequiresSignIn(t *testing.T) {
	api := &fakeCalendar{}
	sessions := &fakeSessions{state: session.StateSignedOut}
	c, _, _ := newTestController(api, sessions, nil)

	slot := events.Slot{Start: testNow, End: testNow.Add(time.Hour)}
	err := c.CreateFromSlot(context.Background(), slot, "Review")
	require.ErrorIs(t, err, session.ErrNotSignedIn)
	assert.Equal(t, 0, api.createCount())
}

func TestCreateFromSlot_FailureLeavesStoreUnchanged(t *testing.T) {
	api := &fakeCalendar{listItems: []*gcal.Event{
		wireEvent("evt_1", "Standup", testNow.Add(time.Hour), 15*time.Minute),
	}}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, store, notifier := newTestController(api, sessions, nil)

	c.HandleSessionState(session.StateSignedIn)
	require.Equal(t, 1, store.Len())
	before := store.All()
	revBefore := store.Revision()

	api.setCreateError(errors.New("quota exceeded"))

	slot := events.Slot{Start: testNow.Add(3 * time.Hour), End: testNow.Add(4 * time.Hour)}
	err := c.CreateFromSlot(context.Background(), slot, "Planning")
	require.ErrorIs(t, err, ErrCreateFailed)

	assert.Equal(t, before, store.All())
	assert.Equal(t, revBefore, store.Revision())
	assert.Contains(t, notifier.kinds(), NoticeCreateFailed)
}

func TestStaleFetchDiscardedAfterSignOut(t *testing.T) {
	api := &fakeCalendar{
		listItems: []*gcal.Event{
			wireEvent("evt_1", "Standup", testNow.Add(time.Hour), 15*time.Minute),
		},
		listStarted: make(chan struct{}),
		listRelease: make(chan struct{}),
	}
	started := api.listStarted
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, store, _ := newTestController(api, sessions, nil)

	done := make(chan struct{})
	go func() {
		c.HandleSessionState(session.StateSignedIn)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not start")
	}

	// Sign-out lands while the fetch is still in flight.
	sessions.setState(session.StateSignedOut)
	c.HandleSessionState(session.StateSignedOut)
	close(api.listRelease)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not finish")
	}

	assert.Equal(t, 0, store.Len(), "stale fetch result must be discarded")
}

func TestClientFactoryFailure(t *testing.T) {
	store := events.NewStore()
	notifier := &recordingNotifier{}
	sessions := &fakeSessions{state: session.StateSignedIn}
	factory := func(ctx context.Context) (CalendarAPI, error) {
		return nil, errors.New("no http client")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewControllerWithClock(store, sessions, factory, nil, logger, func() time.Time { return testNow })
	c.SetNotifier(notifier)

	c.HandleSessionState(session.StateSignedIn)
	assert.Equal(t, 0, store.Len())
	assert.Contains(t, notifier.kinds(), NoticeFetchFailed)

	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrFetchFailed)
}

func TestSelectSlot_NoPrompterConfigured(t *testing.T) {
	api := &fakeCalendar{}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, _, _ := newTestController(api, sessions, nil)

	slot := events.Slot{Start: testNow, End: testNow.Add(time.Hour)}
	err := c.SelectSlot(context.Background(), slot)
	require.Error(t, err)
	assert.Equal(t, 0, api.createCount())
}

func TestNotice_TimeStamped(t *testing.T) {
	api := &fakeCalendar{listErr: errors.New("backend down")}
	sessions := &fakeSessions{state: session.StateSignedIn}
	c, _, notifier := newTestController(api, sessions, nil)

	_ = c.Refresh(context.Background())

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.NotEmpty(t, notifier.notices)
	assert.True(t, notifier.notices[0].Time.Equal(testNow))
}
