package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

// Metrics records protocol-level measurements.
type Metrics interface {
	RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration, size int)
	RecordInvocation(ctx context.Context, skill string, duration time.Duration, err error)
	RecordCardRequest(ctx context.Context, notModified bool)
	RecordStreamEvent(ctx context.Context, eventType string)
}

// PrometheusMetrics implements Metrics on OTel instruments.
// The zero value is a valid no-op recorder.
type PrometheusMetrics struct {
	httpDuration metric.Float64Histogram
	httpRequests metric.Int64Counter

	invokeDuration metric.Float64Histogram
	invokeCalls    metric.Int64Counter
	invokeErrors   metric.Int64Counter

	cardRequests metric.Int64Counter
	streamEvents metric.Int64Counter
}

func NewPrometheusMetrics(
	httpDuration metric.Float64Histogram,
	httpRequests metric.Int64Counter,
	invokeDuration metric.Float64Histogram,
	invokeCalls metric.Int64Counter,
	invokeErrors metric.Int64Counter,
	cardRequests metric.Int64Counter,
	streamEvents metric.Int64Counter,
) *PrometheusMetrics {
	return &PrometheusMetrics{
		httpDuration:   httpDuration,
		httpRequests:   httpRequests,
		invokeDuration: invokeDuration,
		invokeCalls:    invokeCalls,
		invokeErrors:   invokeErrors,
		cardRequests:   cardRequests,
		streamEvents:   streamEvents,
	}
}

func (m *PrometheusMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration, size int) {
	if m == nil || m.httpDuration == nil || m.httpRequests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	}

	m.httpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *PrometheusMetrics) RecordInvocation(ctx context.Context, skill string, duration time.Duration, err error) {
	if m == nil || m.invokeDuration == nil || m.invokeCalls == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("skill", skill),
	}

	m.invokeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.invokeCalls.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.invokeErrors != nil {
		m.invokeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordCardRequest(ctx context.Context, notModified bool) {
	if m == nil || m.cardRequests == nil {
		return
	}

	m.cardRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("not_modified", notModified),
	))
}

func (m *PrometheusMetrics) RecordStreamEvent(ctx context.Context, eventType string) {
	if m == nil || m.streamEvents == nil {
		return
	}

	m.streamEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventType),
	))
}

// SetGlobalMetrics installs the process-wide recorder.
func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics returns the process-wide recorder, or nil if metrics
// are not initialized.
func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
