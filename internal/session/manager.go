package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/mpawlik/gridcal/internal/config"
	"github.com/mpawlik/gridcal/internal/google"
	"github.com/mpawlik/gridcal/internal/instrumentation"
	"github.com/mpawlik/gridcal/internal/logging"
)

// State represents the authentication lifecycle state. Exactly one value
// holds at any time; transitions happen only inside the Manager.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateSignedIn
	StateSignedOut
)

// String returns the lowercase state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateSignedIn:
		return "signed_in"
	case StateSignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// ErrNotReady is returned when an operation requires a completed
// Initialize call.
var ErrNotReady = errors.New("session manager is not initialized")

// ErrDeclined is returned when the user cancels the provider's consent
// flow.
var ErrDeclined = errors.New("sign-in was declined")

// ErrNotSignedIn is returned when an operation requires an established
// session.
var ErrNotSignedIn = errors.New("not signed in")

// ErrAlreadyInitialized is returned when Initialize is called more than
// once.
var ErrAlreadyInitialized = errors.New("session manager is already initialized")

// defaultWatchInterval is how often the background watcher verifies that
// the provider still honors the current session.
const defaultWatchInterval = 15 * time.Minute

// AuthFlow is the slice of the OAuth flow the Manager drives. It is
// satisfied by *google.Authenticator.
type AuthFlow interface {
	AuthCodeURL() string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource
	Client(ctx context.Context, token *oauth2.Token) *http.Client
	Revoke(ctx context.Context, token *oauth2.Token) error
}

// CodePrompter obtains the authorization code from the user during the
// interactive sign-in flow. Implementations present the authorization URL
// and return the code the provider displayed. ok is false when the user
// declined the consent flow.
type CodePrompter interface {
	PromptCode(ctx context.Context, authURL string) (code string, ok bool, err error)
}

type subscriber struct {
	id int
	fn func(State)
}

// Manager owns the session against the remote identity provider.
type Manager struct {
	cfg        *config.Config
	flow       AuthFlow
	tokens     google.TokenProvider
	prompter   CodePrompter
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	httpClient *http.Client

	mu        sync.RWMutex
	state     State
	token     *oauth2.Token
	subs      []subscriber
	nextSubID int

	watchInterval time.Duration
	watchTicker   *time.Ticker
	watchDone     chan struct{}
}

// NewManager creates a Manager in StateUninitialized with the default
// watch interval.
func NewManager(cfg *config.Config, flow AuthFlow, tokens google.TokenProvider, prompter CodePrompter, logger *slog.Logger) *Manager {
	return NewManagerWithWatchInterval(cfg, flow, tokens, prompter, logger, defaultWatchInterval)
}

// NewManagerWithWatchInterval creates a Manager with a custom watch
// interval. An interval <= 0 disables the background watcher.
func NewManagerWithWatchInterval(cfg *config.Config, flow AuthFlow, tokens google.TokenProvider, prompter CodePrompter, logger *slog.Logger, interval time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:           cfg,
		flow:          flow,
		tokens:        tokens,
		prompter:      prompter,
		logger:        logging.WithComponent(logger, "session"),
		httpClient:    http.DefaultClient,
		state:         StateUninitialized,
		watchInterval: interval,
	}
}

// SetMetrics attaches instrumentation. Call before Initialize.
func (m *Manager) SetMetrics(metrics *instrumentation.Metrics) {
	m.metrics = metrics
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn to be invoked on every state transition, exactly
// once per transition, in registration order. The returned function
// removes the subscription; calling it more than once is safe.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Initialize performs the one-time handshake with the remote provider and
// derives the initial session state from the stored token. It must
// complete before SignIn or SignOut are valid. On handshake failure the
// Manager returns to StateUninitialized.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.tryTransition(StateUninitialized, StateInitializing) {
		return ErrAlreadyInitialized
	}

	if err := m.handshake(ctx); err != nil {
		m.setState(StateUninitialized)
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	if m.probeStoredToken(ctx) {
		m.setState(StateSignedIn)
	} else {
		m.setState(StateSignedOut)
	}

	m.startWatcher()
	return nil
}

// handshake fetches every configured discovery document with the API key
// appended. Any failure fails initialization.
func (m *Manager) handshake(ctx context.Context) error {
	for _, doc := range m.cfg.DiscoveryDocs {
		u, err := url.Parse(doc)
		if err != nil {
			return fmt.Errorf("invalid discovery document URL %q: %w", doc, err)
		}
		q := u.Query()
		q.Set("key", m.cfg.APIKey)
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to build discovery request: %w", err)
		}
		resp, err := m.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch discovery document: %w", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("discovery document %s returned status %d", doc, resp.StatusCode)
		}
	}
	return nil
}

// probeStoredToken reports whether the stored token still produces a
// valid session. The refreshed token is persisted when the provider
// rotated it.
func (m *Manager) probeStoredToken(ctx context.Context) bool {
	stored, err := m.tokens.Token(ctx)
	if err != nil {
		if !errors.Is(err, google.ErrNoToken) {
			m.logger.Warn("failed to read stored token", logging.Err(err))
		}
		return false
	}

	fresh, err := m.flow.TokenSource(ctx, stored).Token()
	if err != nil {
		m.logger.Warn("stored token is no longer valid", logging.Err(err))
		m.recordTokenRefresh(ctx, instrumentation.AuthResultFailure)
		return false
	}
	m.recordTokenRefresh(ctx, instrumentation.AuthResultSuccess)
	if fresh.AccessToken != stored.AccessToken {
		if err := m.tokens.Save(ctx, fresh); err != nil {
			m.logger.Warn("failed to persist refreshed token", logging.Err(err))
		}
	}

	m.mu.Lock()
	m.token = fresh
	m.mu.Unlock()
	return true
}

// AuthURL returns the provider consent URL for the two-step sign-in used
// by the HTTP API and the MCP tools: fetch the URL, approve access out of
// band, then submit the authorization code through SignInWithCode. It
// fails with ErrNotReady before Initialize has completed.
func (m *Manager) AuthURL() (string, error) {
	switch m.State() {
	case StateUninitialized, StateInitializing:
		return "", ErrNotReady
	}
	return m.flow.AuthCodeURL(), nil
}

// SignIn runs the interactive sign-in flow. It fails with ErrNotReady
// before Initialize has completed and with ErrDeclined when the user
// cancels the consent flow. Signing in while already signed in is a
// no-op.
func (m *Manager) SignIn(ctx context.Context) error {
	switch m.State() {
	case StateUninitialized, StateInitializing:
		return ErrNotReady
	case StateSignedIn:
		return nil
	}

	authURL := m.flow.AuthCodeURL()
	code, ok, err := m.prompter.PromptCode(ctx, authURL)
	if err != nil {
		m.recordAuthAttempt(ctx, instrumentation.AuthResultFailure)
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	if !ok || strings.TrimSpace(code) == "" {
		m.recordAuthAttempt(ctx, instrumentation.AuthResultDeclined)
		return ErrDeclined
	}
	return m.SignInWithCode(ctx, code)
}

// SignInWithCode completes a sign-in with an authorization code obtained
// out of band. An empty code fails with ErrDeclined. Signing in while
// already signed in is a no-op.
func (m *Manager) SignInWithCode(ctx context.Context, code string) error {
	switch m.State() {
	case StateUninitialized, StateInitializing:
		return ErrNotReady
	case StateSignedIn:
		return nil
	}

	code = strings.TrimSpace(code)
	if code == "" {
		m.recordAuthAttempt(ctx, instrumentation.AuthResultDeclined)
		return ErrDeclined
	}

	token, err := m.flow.Exchange(ctx, code)
	if err != nil {
		m.recordAuthAttempt(ctx, instrumentation.AuthResultFailure)
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := m.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	m.recordAuthAttempt(ctx, instrumentation.AuthResultSuccess)
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	m.setState(StateSignedIn)
	return nil
}

// SignOut clears the session: the token is revoked at the provider (best
// effort), removed from storage, and the next state notification reports
// StateSignedOut. It fails with ErrNotReady before Initialize.
func (m *Manager) SignOut(ctx context.Context) error {
	switch m.State() {
	case StateUninitialized, StateInitializing:
		return ErrNotReady
	}

	m.mu.Lock()
	token := m.token
	m.token = nil
	m.mu.Unlock()

	if token != nil {
		if err := m.flow.Revoke(ctx, token); err != nil {
			m.logger.Warn("failed to revoke token at provider", logging.Err(err))
		}
	}
	if err := m.tokens.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete stored token: %w", err)
	}

	m.setState(StateSignedOut)
	return nil
}

// HTTPClient returns an HTTP client authorized for the remote calendar
// API. It fails with ErrNotSignedIn unless the session is signed in.
func (m *Manager) HTTPClient(ctx context.Context) (*http.Client, error) {
	m.mu.RLock()
	state, token := m.state, m.token
	m.mu.RUnlock()

	if state != StateSignedIn || token == nil {
		return nil, ErrNotSignedIn
	}
	return m.flow.Client(ctx, token), nil
}

// tryTransition moves from one specific state to another. It reports
// false, without notifying, when the current state differs.
func (m *Manager) tryTransition(from, to State) bool {
	m.mu.Lock()
	if m.state != from {
		m.mu.Unlock()
		return false
	}
	m.state = to
	subs := m.subscriberSnapshot()
	m.mu.Unlock()

	m.announce(to, subs)
	return true
}

// setState transitions to the given state. Setting the current state
// again is not a transition and produces no notification.
func (m *Manager) setState(to State) {
	m.mu.Lock()
	if m.state == to {
		m.mu.Unlock()
		return
	}
	m.state = to
	subs := m.subscriberSnapshot()
	m.mu.Unlock()

	m.announce(to, subs)
}

// subscriberSnapshot must be called with the lock held.
func (m *Manager) subscriberSnapshot() []func(State) {
	subs := make([]func(State), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s.fn)
	}
	return subs
}

// announce runs outside the lock so subscribers may call back into the
// Manager.
func (m *Manager) announce(st State, subs []func(State)) {
	m.logger.Info("session state changed", logging.State(st))
	if m.metrics != nil {
		m.metrics.RecordSessionTransition(context.Background(), st.String())
	}
	for _, fn := range subs {
		fn(st)
	}
}

func (m *Manager) recordAuthAttempt(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordAuthAttempt(ctx, result)
	}
}

func (m *Manager) recordTokenRefresh(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(ctx, result)
	}
}

func (m *Manager) startWatcher() {
	if m.watchInterval <= 0 {
		return
	}
	m.watchTicker = time.NewTicker(m.watchInterval)
	m.watchDone = make(chan struct{})
	go m.watchSession(m.watchTicker, m.watchDone)
}

func (m *Manager) watchSession(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-ticker.C:
			m.checkSession(context.Background())
		case <-done:
			return
		}
	}
}

// checkSession verifies that the provider still honors the current
// session. A failed refresh is treated as a provider-initiated sign-out.
func (m *Manager) checkSession(ctx context.Context) {
	m.mu.RLock()
	state, token := m.state, m.token
	m.mu.RUnlock()
	if state != StateSignedIn || token == nil {
		return
	}

	fresh, err := m.flow.TokenSource(ctx, token).Token()
	if err != nil {
		m.logger.Warn("session invalidated by provider", logging.Err(err))
		m.recordTokenRefresh(ctx, instrumentation.AuthResultFailure)
		m.mu.Lock()
		m.token = nil
		m.mu.Unlock()
		if derr := m.tokens.Delete(ctx); derr != nil {
			m.logger.Warn("failed to delete invalidated token", logging.Err(derr))
		}
		m.setState(StateSignedOut)
		return
	}

	m.recordTokenRefresh(ctx, instrumentation.AuthResultSuccess)
	if fresh.AccessToken != token.AccessToken {
		m.mu.Lock()
		m.token = fresh
		m.mu.Unlock()
		if err := m.tokens.Save(ctx, fresh); err != nil {
			m.logger.Warn("failed to persist refreshed token", logging.Err(err))
		}
	}
}

// Stop stops the session watcher goroutine. Stopping an already stopped
// Manager is safe.
func (m *Manager) Stop() {
	if m.watchTicker != nil {
		m.watchTicker.Stop()
		m.watchTicker = nil
	}
	if m.watchDone != nil {
		close(m.watchDone)
		m.watchDone = nil
	}
}
