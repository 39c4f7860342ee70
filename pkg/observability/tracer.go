package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// GetTracer returns a tracer from the global provider. Without an
// installed provider this is a no-op tracer, so callers can create spans
// unconditionally.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
