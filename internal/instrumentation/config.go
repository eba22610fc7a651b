package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls the OpenTelemetry setup of the daemon.
type Config struct {
	// ServiceName identifies the service in exported telemetry
	// (default: gridcal).
	ServiceName string

	// ServiceVersion is stamped on the telemetry resource.
	ServiceVersion string

	// ServiceInstanceID distinguishes concurrent instances. Empty means
	// the hostname.
	ServiceInstanceID string

	// Enabled switches metrics and tracing on. GRIDCAL_INSTRUMENTATION_ENABLED=false
	// turns everything into no-ops.
	Enabled bool

	// MetricsExporter selects "prometheus", "otlp" or "stdout"
	// (default: prometheus).
	MetricsExporter string

	// TracingExporter selects "otlp", "stdout" or "none"
	// (default: none).
	TracingExporter string

	// OTLPEndpoint is the OTLP collector host:port, without a protocol
	// prefix.
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP instead of TLS. Meant for
	// local collectors only.
	OTLPInsecure bool

	// TraceSamplingRate is the head sampling ratio, 0.0 to 1.0
	// (default: 0.1).
	TraceSamplingRate float64

	// PrometheusEndpoint is the scrape path on the metrics server
	// (default: /metrics).
	PrometheusEndpoint string

	// DetailedLabels adds high-cardinality labels such as calendar ids.
	// Keep off in production.
	DetailedLabels bool

	// AuditLogging configures the audit trail.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the audit trail for event creation and
// session transitions.
type AuditLoggingConfig struct {
	// Enabled switches audit records on (default: true).
	Enabled bool

	// IncludeTitles logs raw event titles instead of hashed ones. Titles
	// are user content, so only route them to storage with access
	// controls.
	IncludeTitles bool

	// LogLevel is the slog level of audit records: "debug", "info",
	// "warn" or "error" (default: info).
	LogLevel string
}

// DefaultConfig builds a Config from the environment, falling back to
// the documented defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:        getEnvOrDefault("OTEL_SERVICE_NAME", "gridcal"),
		ServiceVersion:     "unknown",
		ServiceInstanceID:  getEnvOrDefault("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:            getEnvBoolOrDefault("GRIDCAL_INSTRUMENTATION_ENABLED", true),
		MetricsExporter:    getEnvOrDefault("GRIDCAL_METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:    getEnvOrDefault("GRIDCAL_TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:  getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 0.1),
		PrometheusEndpoint: getEnvOrDefault("GRIDCAL_PROMETHEUS_ENDPOINT", "/metrics"),
		DetailedLabels:     getEnvBoolOrDefault("GRIDCAL_METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:       getEnvBoolOrDefault("GRIDCAL_AUDIT_LOGGING_ENABLED", true),
			IncludeTitles: getEnvBoolOrDefault("GRIDCAL_AUDIT_LOGGING_INCLUDE_TITLES", false),
			LogLevel:      getEnvOrDefault("GRIDCAL_AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

// Validate rejects configurations the provider could not start with.
// Empty exporter fields are accepted; NewProvider never sees them when
// the config came from DefaultConfig.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Label values shared by the metric recorders.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	AuthResultSuccess  = "success"
	AuthResultDeclined = "declined"
	AuthResultFailure  = "failure"

	MapResultMapped  = "mapped"
	MapResultSkipped = "skipped"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// DefaultMetricInterval paces periodic readers such as the stdout
	// exporter.
	DefaultMetricInterval = 10 * time.Second
)
