package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mpawlik/gridcal/internal/agenda"
	"github.com/mpawlik/gridcal/internal/events"
	"github.com/mpawlik/gridcal/internal/logging"
	"github.com/mpawlik/gridcal/internal/session"
)

// View server timeouts. Sign-in and slot submission block on the remote
// calendar, so the write timeout is generous.
const (
	// DefaultViewReadTimeout is the default read header timeout for the view server.
	DefaultViewReadTimeout = 10 * time.Second

	// DefaultViewWriteTimeout is the default write timeout for the view server.
	DefaultViewWriteTimeout = 60 * time.Second

	// DefaultViewIdleTimeout is the default idle timeout for the view server.
	DefaultViewIdleTimeout = 120 * time.Second
)

// ViewServer is the local HTTP surface for the calendar view: event
// snapshots, grid parameters, session control and slot submission. It
// binds to loopback by default and never exposes tokens or credentials.
type ViewServer struct {
	sc      *ServerContext
	notices *NoticeLog
	health  *HealthChecker
	logger  *slog.Logger
	mux     *http.ServeMux

	httpServer *http.Server
	addr       string
}

// NewViewServer creates a view server around the given server context.
// notices and health may be nil; the corresponding endpoints then serve
// empty data or are not registered.
func NewViewServer(sc *ServerContext, notices *NoticeLog, health *HealthChecker) *ViewServer {
	s := &ViewServer{
		sc:      sc,
		notices: notices,
		health:  health,
		logger:  logging.WithComponent(sc.Logger(), "view"),
		mux:     http.NewServeMux(),
		addr:    sc.Config().ViewListen,
	}
	s.registerRoutes()
	return s
}

func (s *ViewServer) registerRoutes() {
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events.ics", s.handleEventsICS)
	s.mux.HandleFunc("/api/view", s.handleView)
	s.mux.HandleFunc("/api/session", s.handleSession)
	s.mux.HandleFunc("/api/session/auth-url", s.handleAuthURL)
	s.mux.HandleFunc("/api/session/signin", s.handleSignIn)
	s.mux.HandleFunc("/api/session/signout", s.handleSignOut)
	s.mux.HandleFunc("/api/slots", s.handleSlots)
	s.mux.HandleFunc("/api/notices", s.handleNotices)

	if s.health != nil {
		s.health.RegisterHealthEndpoints(s.mux)
	}
}

// Handler returns the full handler chain: routes wrapped with basic auth
// when credentials are configured, and request metrics outermost so that
// rejected requests are counted too.
func (s *ViewServer) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.sc.Config().ViewUsername != "" || s.sc.Config().ViewPassword != "" {
		h = s.withBasicAuth(h)
	}
	return s.withMetrics(h)
}

// Start starts the view server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *ViewServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultViewReadTimeout,
		WriteTimeout:      DefaultViewWriteTimeout,
		IdleTimeout:       DefaultViewIdleTimeout,
	}

	s.logger.Info("starting view server", slog.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the view server.
func (s *ViewServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down view server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *ViewServer) Addr() string {
	return s.addr
}

type eventsResponse struct {
	Revision uint64                `json:"revision"`
	Events   []events.DisplayEvent `json:"events"`
}

type viewResponse struct {
	CalendarID  string `json:"calendar_id"`
	TimeZone    string `json:"time_zone"`
	WindowStart int    `json:"window_start"`
	WindowEnd   int    `json:"window_end"`
}

type sessionResponse struct {
	State string `json:"state"`
}

type authURLResponse struct {
	AuthURL string `json:"auth_url"`
}

type signInRequest struct {
	Code string `json:"code"`
}

type slotRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Title string    `json:"title"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type noticeEntry struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

type noticesResponse struct {
	Notices []noticeEntry `json:"notices"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleEvents serves the current agenda snapshot. The store revision
// doubles as the ETag so pollers can cheaply detect changes.
func (s *ViewServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	evs, revision := s.sc.Store().Snapshot()
	etag := fmt.Sprintf(`"%d"`, revision)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, eventsResponse{Revision: revision, Events: evs})
}

// handleEventsICS serves the same snapshot as an iCalendar feed, for
// view collaborators that speak ICS rather than JSON.
func (s *ViewServer) handleEventsICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	evs, revision := s.sc.Store().Snapshot()
	etag := fmt.Sprintf(`"%d"`, revision)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, BuildICS(evs, time.Now()))
}

// handleView serves the grid parameters the widget renders with.
func (s *ViewServer) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	cfg := s.sc.Config()
	writeJSON(w, http.StatusOK, viewResponse{
		CalendarID:  cfg.CalendarID,
		TimeZone:    cfg.TimeZone,
		WindowStart: cfg.ViewWindowStart,
		WindowEnd:   cfg.ViewWindowEnd,
	})
}

func (s *ViewServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{State: s.sc.Sessions().State().String()})
}

func (s *ViewServer) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	url, err := s.sc.Sessions().AuthURL()
	switch {
	case errors.Is(err, session.ErrNotReady):
		writeError(w, http.StatusConflict, "not_ready")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error")
	default:
		writeJSON(w, http.StatusOK, authURLResponse{AuthURL: url})
	}
}

// handleSignIn completes the two-step sign-in: the client obtained an
// authorization code via /api/session/auth-url and posts it back here.
func (s *ViewServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}

	err := s.sc.Sessions().SignInWithCode(r.Context(), req.Code)
	switch {
	case errors.Is(err, session.ErrNotReady):
		writeError(w, http.StatusConflict, "not_ready")
	case errors.Is(err, session.ErrDeclined):
		writeError(w, http.StatusBadRequest, "declined")
	case err != nil:
		s.logger.Warn("sign-in over HTTP failed", logging.Err(err))
		writeError(w, http.StatusBadGateway, "signin_failed")
	default:
		writeJSON(w, http.StatusOK, sessionResponse{State: s.sc.Sessions().State().String()})
	}
}

func (s *ViewServer) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	err := s.sc.Sessions().SignOut(r.Context())
	switch {
	case errors.Is(err, session.ErrNotReady):
		writeError(w, http.StatusConflict, "not_ready")
	case err != nil:
		s.logger.Warn("sign-out over HTTP failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "signout_failed")
	default:
		writeJSON(w, http.StatusOK, sessionResponse{State: s.sc.Sessions().State().String()})
	}
}

// handleSlots submits a selected slot for event creation. The event
// appears in /api/events only after the remote calendar confirmed it.
func (s *ViewServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}

	slot := events.Slot{Start: req.Start, End: req.End}
	if err := slot.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "missing_title")
		return
	}

	err := s.sc.Controller().CreateFromSlot(r.Context(), slot, req.Title)
	switch {
	case errors.Is(err, events.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, "invalid_slot")
	case errors.Is(err, session.ErrNotSignedIn):
		writeError(w, http.StatusConflict, "not_signed_in")
	case errors.Is(err, agenda.ErrCreateFailed):
		writeError(w, http.StatusBadGateway, "create_failed")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error")
	default:
		writeJSON(w, http.StatusCreated, statusResponse{Status: "created"})
	}
}

func (s *ViewServer) handleNotices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	var recent []agenda.Notice
	if s.notices != nil {
		recent = s.notices.Recent()
	}
	entries := make([]noticeEntry, 0, len(recent))
	for _, n := range recent {
		entry := noticeEntry{
			Kind:    n.Kind,
			Message: n.Message,
			Time:    n.Time,
		}
		if n.Err != nil {
			entry.Error = n.Err.Error()
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, noticesResponse{Notices: entries})
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to encode response", logging.Err(err))
	}
}

// writeError writes a JSON error body with a stable machine-readable
// code the view can branch on.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
}
