// Package observability wires Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics creates the OTel meter backed by the Prometheus exporter and
// instantiates all weft instruments. With enabled=false it returns an
// empty PrometheusMetrics whose record methods are no-ops.
func InitMetrics(ctx context.Context, enabled bool) (*PrometheusMetrics, error) {
	if !enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("weft")

	httpDuration, err := meter.Float64Histogram(
		"weft_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	httpRequests, err := meter.Int64Counter(
		"weft_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	invokeDuration, err := meter.Float64Histogram(
		"weft_skill_invocation_duration_seconds",
		metric.WithDescription("Skill invocation duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation duration histogram: %w", err)
	}

	invokeCalls, err := meter.Int64Counter(
		"weft_skill_invocations_total",
		metric.WithDescription("Total skill invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocations counter: %w", err)
	}

	invokeErrors, err := meter.Int64Counter(
		"weft_skill_invocation_errors_total",
		metric.WithDescription("Total failed skill invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation errors counter: %w", err)
	}

	cardRequests, err := meter.Int64Counter(
		"weft_agent_card_requests_total",
		metric.WithDescription("Total agent card requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create card requests counter: %w", err)
	}

	streamEvents, err := meter.Int64Counter(
		"weft_stream_events_total",
		metric.WithDescription("Total SSE events emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream events counter: %w", err)
	}

	return NewPrometheusMetrics(
		httpDuration,
		httpRequests,
		invokeDuration,
		invokeCalls,
		invokeErrors,
		cardRequests,
		streamEvents,
	), nil
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
