package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpawlik/gridcal/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is where the metrics server listens unless
	// configured otherwise. Loopback only; gridcal is a single-user
	// daemon.
	DefaultMetricsAddr = "127.0.0.1:9090"

	DefaultMetricsReadTimeout  = 10 * time.Second
	DefaultMetricsWriteTimeout = 10 * time.Second
	DefaultMetricsIdleTimeout  = 60 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP
	// servers.
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig configures the dedicated metrics listener.
type MetricsServerConfig struct {
	// Addr is the listen address; empty means DefaultMetricsAddr.
	Addr string

	// Enabled reports whether the caller wants a metrics server at all.
	Enabled bool

	// InstrumentationProvider must be an enabled provider whose
	// prometheus exporter feeds the default registry.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer exposes the Prometheus scrape endpoint on its own
// listener so operational metrics stay off the view API port.
type MetricsServer struct {
	srv *http.Server
}

// NewMetricsServer validates the config and prepares the listener.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.InstrumentationProvider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !config.InstrumentationProvider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}

	addr := config.Addr
	if addr == "" {
		addr = DefaultMetricsAddr
	}

	s := &MetricsServer{}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: DefaultMetricsReadTimeout,
		WriteTimeout:      DefaultMetricsWriteTimeout,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}
	return s, nil
}

// handler is the metrics mux: the scrape endpoint plus a trivial health
// check for the listener itself.
func (s *MetricsServer) handler() http.Handler {
	mux := http.NewServeMux()

	// The OpenTelemetry prometheus exporter registers its collector
	// with the default registry, which promhttp.Handler() serves.
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start serves until Shutdown. Run it on its own goroutine.
func (s *MetricsServer) Start() error {
	slog.Info("starting metrics server", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown drains the listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	slog.Info("shutting down metrics server")
	return s.srv.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *MetricsServer) Addr() string {
	return s.srv.Addr
}
