package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric label keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrState     = "state"
	attrKind      = "kind"
	attrTool      = "tool"
	attrCalendar  = "calendar"
)

// Metrics records the daemon's observability metrics. The zero value is
// a no-op recorder; every Record method checks its instruments first,
// which is what a disabled Provider relies on.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	sessionTransitionsTotal metric.Int64Counter
	authAttemptsTotal       metric.Int64Counter
	tokenRefreshTotal       metric.Int64Counter

	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram

	eventsMappedTotal metric.Int64Counter
	storeSize         metric.Int64Gauge
	noticesTotal      metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels admits high-cardinality labels such as calendar
	// ids.
	detailedLabels bool
}

func newCounter(meter metric.Meter, name, desc, unit string) (metric.Int64Counter, error) {
	counter, err := meter.Int64Counter(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", name, err)
	}
	return counter, nil
}

func newHistogram(meter metric.Meter, name, desc string, buckets ...float64) (metric.Float64Histogram, error) {
	histogram, err := meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", name, err)
	}
	return histogram, nil
}

// NewMetrics registers all instruments on the given meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error
	if m.httpRequestsTotal, err = newCounter(meter,
		"http_requests_total", "Total number of HTTP requests", "{request}"); err != nil {
		return nil, err
	}
	if m.httpRequestDuration, err = newHistogram(meter,
		"http_request_duration_seconds", "HTTP request duration in seconds",
		0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0); err != nil {
		return nil, err
	}

	if m.sessionTransitionsTotal, err = newCounter(meter,
		"session_transitions_total", "Total number of session state transitions", "{transition}"); err != nil {
		return nil, err
	}
	if m.authAttemptsTotal, err = newCounter(meter,
		"auth_attempts_total", "Total number of interactive sign-in attempts", "{attempt}"); err != nil {
		return nil, err
	}
	if m.tokenRefreshTotal, err = newCounter(meter,
		"token_refresh_total", "Total number of token refresh attempts", "{attempt}"); err != nil {
		return nil, err
	}

	if m.calendarOperationsTotal, err = newCounter(meter,
		"calendar_api_operations_total", "Total number of remote calendar API operations", "{operation}"); err != nil {
		return nil, err
	}
	if m.calendarOperationDuration, err = newHistogram(meter,
		"calendar_api_operation_duration_seconds", "Remote calendar API operation duration in seconds",
		0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0); err != nil {
		return nil, err
	}

	if m.eventsMappedTotal, err = newCounter(meter,
		"events_mapped_total", "Total number of remote events processed by the mapper, by result", "{event}"); err != nil {
		return nil, err
	}
	m.storeSize, err = meter.Int64Gauge("event_store_size",
		metric.WithDescription("Number of events currently held in the display store"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event_store_size gauge: %w", err)
	}
	if m.noticesTotal, err = newCounter(meter,
		"notices_total", "Total number of non-fatal user notices emitted", "{notice}"); err != nil {
		return nil, err
	}

	if m.toolInvocationsTotal, err = newCounter(meter,
		"mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"); err != nil {
		return nil, err
	}
	if m.toolDuration, err = newHistogram(meter,
		"mcp_tool_duration_seconds", "MCP tool execution duration in seconds",
		0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordHTTPRequest counts one request and its latency on the view or
// metrics listener.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSessionTransition counts the entry into a session state.
func (m *Metrics) RecordSessionTransition(ctx context.Context, state string) {
	if m.sessionTransitionsTotal == nil {
		return
	}
	m.sessionTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrState, state),
	))
}

// RecordAuthAttempt counts an interactive sign-in attempt. Use the
// AuthResult label values.
func (m *Metrics) RecordAuthAttempt(ctx context.Context, result string) {
	if m.authAttemptsTotal == nil {
		return
	}
	m.authAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordTokenRefresh counts a token refresh attempt by result.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordCalendarOperation counts a remote calendar call without a
// calendar label.
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, status string, duration time.Duration) {
	m.RecordCalendarOperationFor(ctx, operation, status, "", duration)
}

// RecordCalendarOperationFor counts a remote calendar call. The
// calendar id only becomes a label under detailedLabels; arbitrary ids
// are high-cardinality values.
func (m *Metrics) RecordCalendarOperationFor(ctx context.Context, operation, status, calendarID string, duration time.Duration) {
	if m.calendarOperationsTotal == nil || m.calendarOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && calendarID != "" {
		attrs = append(attrs, attribute.String(attrCalendar, calendarID))
	}

	m.calendarOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordEventsMapped counts the outcome of one mapping pass over the
// remote events: how many produced display events and how many were
// skipped as malformed.
func (m *Metrics) RecordEventsMapped(ctx context.Context, mapped, skipped int64) {
	if m.eventsMappedTotal == nil {
		return
	}

	if mapped > 0 {
		m.eventsMappedTotal.Add(ctx, mapped, metric.WithAttributes(
			attribute.String(attrResult, MapResultMapped),
		))
	}
	if skipped > 0 {
		m.eventsMappedTotal.Add(ctx, skipped, metric.WithAttributes(
			attribute.String(attrResult, MapResultSkipped),
		))
	}
}

// RecordStoreSize publishes the current size of the display store.
func (m *Metrics) RecordStoreSize(ctx context.Context, size int64) {
	if m.storeSize == nil {
		return
	}
	m.storeSize.Record(ctx, size)
}

// RecordNotice counts a non-fatal user notice by kind.
func (m *Metrics) RecordNotice(ctx context.Context, kind string) {
	if m.noticesTotal == nil {
		return
	}
	m.noticesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
	))
}

// RecordToolInvocation counts one MCP tool call and its latency.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
