package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mpawlik/gridcal/internal/agenda"
	"github.com/mpawlik/gridcal/internal/config"
	"github.com/mpawlik/gridcal/internal/events"
	"github.com/mpawlik/gridcal/internal/instrumentation"
	"github.com/mpawlik/gridcal/internal/session"
)

// ServerContext holds the shared state of a running gridcal server: the
// session manager, the sync controller, the event store, and the
// instrumentation handles the HTTP and MCP surfaces report through.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg        *config.Config
	sessions   *session.Manager
	controller *agenda.Controller
	store      *events.Store
	logger     *slog.Logger

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context around the given components.
// If logger is nil, slog.Default() is used.
func NewServerContext(ctx context.Context, cfg *config.Config, sessions *session.Manager, controller *agenda.Controller, store *events.Store, logger *slog.Logger) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = slog.Default()
	}

	return &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		cfg:        cfg,
		sessions:   sessions,
		controller: controller,
		store:      store,
		logger:     logger,
	}
}

// Context returns the server context. It is cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the application configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Sessions returns the session manager.
func (sc *ServerContext) Sessions() *session.Manager {
	return sc.sessions
}

// Controller returns the sync controller.
func (sc *ServerContext) Controller() *agenda.Controller {
	return sc.controller
}

// Store returns the event store.
func (sc *ServerContext) Store() *events.Store {
	return sc.store
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// SetMetrics attaches instrumentation metrics. May be nil when
// instrumentation is disabled.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// Metrics returns the instrumentation metrics, or nil when disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger attaches an audit logger. May be nil when audit logging
// is disabled.
func (sc *ServerContext) SetAuditLogger(auditLogger *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = auditLogger
}

// AuditLogger returns the audit logger, or nil when disabled.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Calling it more than once is
// harmless.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
