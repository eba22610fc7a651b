// Package instrumentation wires OpenTelemetry metrics and tracing into
// the gridcal daemon.
//
// A single Provider owns the meter and tracer providers, the exporter
// backends and the Metrics recorder. Everything degrades to a no-op
// when instrumentation is disabled, so callers never guard their
// recording calls.
//
// # Metrics
//
// The Metrics recorder covers five areas of the daemon:
//
//   - http_requests_total, http_request_duration_seconds: view API
//     traffic by method, path and status
//   - session_transitions_total, auth_attempts_total,
//     token_refresh_total: session lifecycle and OAuth activity
//   - calendar_api_operations_total,
//     calendar_api_operation_duration_seconds: remote Google Calendar
//     calls by operation and status
//   - events_mapped_total, event_store_size, notices_total: the event
//     pipeline between sync and display
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: MCP tool
//     traffic by tool name and status
//
// # Tracing
//
// Spans follow the tool.<name> and calendar.<operation> naming scheme
// and carry the attributes from SpanAttributeBuilder. Sampling is
// parent based with a configurable ratio; the none exporter installs a
// NeverSample tracer so span creation stays cheap.
//
// # Configuration
//
// DefaultConfig reads the environment, with GRIDCAL_* switches for the
// exporters and the standard OTEL_* variables for everything else:
//
//   - GRIDCAL_INSTRUMENTATION_ENABLED (default true)
//   - GRIDCAL_METRICS_EXPORTER: prometheus, otlp or stdout
//   - GRIDCAL_TRACING_EXPORTER: otlp, stdout or none
//   - OTEL_EXPORTER_OTLP_ENDPOINT
//   - OTEL_TRACES_SAMPLER_ARG: sampling ratio between 0.0 and 1.0
//   - OTEL_SERVICE_NAME
//
// # Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	m := provider.Metrics()
//	m.RecordCalendarOperation(ctx, "list", "success", time.Since(start))
//	m.RecordToolInvocation(ctx, "agenda_list_events", "success", time.Since(start))
package instrumentation
