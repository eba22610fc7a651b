package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mpawlik/gridcal/internal/agenda"
	"github.com/mpawlik/gridcal/internal/calendar"
	"github.com/mpawlik/gridcal/internal/config"
	"github.com/mpawlik/gridcal/internal/events"
	"github.com/mpawlik/gridcal/internal/google"
	"github.com/mpawlik/gridcal/internal/instrumentation"
	"github.com/mpawlik/gridcal/internal/logging"
	"github.com/mpawlik/gridcal/internal/resources"
	"github.com/mpawlik/gridcal/internal/server"
	"github.com/mpawlik/gridcal/internal/session"
	"github.com/mpawlik/gridcal/internal/tools/agenda_tools"
	"github.com/mpawlik/gridcal/internal/tools/session_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., "127.0.0.1:9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		transport      string
		viewAddr       string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the calendar session and view services",
		Long: `Start the long-running gridcal daemon. It initializes the calendar
session from the stored token, keeps the local agenda in sync with the
session state (fetch on sign-in, clear on sign-out), and serves the
view API over localhost HTTP.

Supports two transports:
  - http: localhost view API plus health and metrics endpoints (default)
  - stdio: MCP (Model Context Protocol) server so an AI assistant can
    act as the view

Sign-in:
  The daemon starts signed out unless a previous 'gridcal login' left a
  stored token. Over HTTP the view signs in through
  GET /api/session/auth-url and POST /api/session/signin; over stdio
  the session_get_auth_url and session_sign_in tools drive the flow.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsConfig := MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr}
			loadMetricsEnvVars(cmd, &metricsConfig)
			return runServe(transport, debugMode, viewAddr, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "http", "Transport type: http or stdio")
	cmd.Flags().StringVar(&viewAddr, "view-addr", "", "View API listen address (default from config: 127.0.0.1:8787)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use GRIDCAL_METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use GRIDCAL_METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars loads metrics configuration from environment variables.
// Environment variables only apply when the flag was not explicitly set.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("GRIDCAL_METRICS_ENABLED"); v != "" {
			config.Enabled = v == "true"
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("GRIDCAL_METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(transport string, debugMode bool, viewAddr string, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if debugMode {
		cfg.LogLevel = "debug"
	}
	if viewAddr != "" {
		cfg.ViewListen = viewAddr
	}

	// Logs go to stderr; stdout belongs to the stdio transport.
	logger := logging.New(cfg.LogLevel, os.Stderr)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	tokens, err := google.OpenTokenStore(cfg.TokenDB)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	defer func() {
		if err := tokens.Close(); err != nil {
			logger.Warn("token store close failed", logging.Err(err))
		}
	}()

	manager := session.NewManager(cfg, google.NewAuthenticator(cfg), tokens, nil, logger)
	defer manager.Stop()

	store := events.NewStore()
	controller := agenda.NewController(store, manager, func(ctx context.Context) (agenda.CalendarAPI, error) {
		httpClient, err := manager.HTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		return calendar.New(ctx, httpClient, cfg)
	}, nil, logger)

	notices := server.NewNoticeLog(server.DefaultNoticeCapacity, agenda.NewLogNotifier(logger))
	controller.SetNotifier(notices)

	var audit *instrumentation.AuditLogger
	if provider.Enabled() {
		manager.SetMetrics(provider.Metrics())
		controller.SetMetrics(provider.Metrics())
		audit = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
		controller.SetAuditLogger(audit)
	}

	// Subscriptions must be in place before Initialize so the initial
	// transition triggers the first fetch.
	manager.Subscribe(controller.HandleSessionState)
	if audit != nil {
		manager.Subscribe(func(st session.State) {
			audit.LogSessionTransition(st.String())
		})
	}

	sc := server.NewServerContext(shutdownCtx, cfg, manager, controller, store, logger)
	defer func() {
		if err := sc.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()
	if provider.Enabled() {
		sc.SetMetrics(provider.Metrics())
		sc.SetAuditLogger(audit)
	}

	health := server.NewHealthChecker(sc)

	if err := manager.Initialize(shutdownCtx); err != nil {
		return err
	}

	// Scheduled refresh keeps long-running sessions fresh between view
	// reloads.
	if cfg.RefreshSchedule != "" {
		c := cron.New(cron.WithLogger(logging.NewCronLogger(logger)))
		if _, err := c.AddFunc(cfg.RefreshSchedule, func() {
			if err := controller.Refresh(shutdownCtx); err != nil && !errors.Is(err, session.ErrNotSignedIn) {
				logger.Warn("scheduled refresh failed", logging.Err(err))
			}
		}); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshSchedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	health.SetReady(true)

	switch transport {
	case "http":
		return runViewServer(shutdownCtx, sc, notices, health, provider, metricsConfig, logger)
	case "stdio":
		return runStdioServer(sc)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: http, stdio)", transport)
	}
}

func runViewServer(ctx context.Context, sc *server.ServerContext, notices *server.NoticeLog, health *server.HealthChecker, provider *instrumentation.Provider, metricsConfig MetricsConfig, logger *slog.Logger) error {
	// Start metrics server if enabled
	if metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	view := server.NewViewServer(sc, notices, health)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := view.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping view server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := view.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down view server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("view server stopped with error: %w", err)
		}
	}

	return nil
}

func runStdioServer(sc *server.ServerContext) error {
	mcpSrv := mcpserver.NewMCPServer("gridcal", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	if err := registerAllTools(mcpSrv, sc); err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Session",
			register: func() error {
				return session_tools.RegisterSessionTools(mcpSrv, ctx)
			},
		},
		{
			name: "Agenda",
			register: func() error {
				return agenda_tools.RegisterAgendaTools(mcpSrv, ctx)
			},
		},
		{
			name: "Agenda Resources",
			register: func() error {
				return resources.RegisterAgendaResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
