// Package telemetry wires the engine's OpenTelemetry tracer provider
// (SPEC_FULL.md §2, ambient stack). It has no direct analog in the teacher
// or the rest of the example pack — none of the retrieved repos construct
// their own otel SDK pipeline — so this is built straight from
// go.opentelemetry.io/otel's own documented bootstrap shape: a batch span
// processor over an OTLP/HTTP exporter, falling back to a no-op tracer
// provider when no collector endpoint is configured so every span-creation
// call site still runs, it just records nothing.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "leadwatch-worker"

// Shutdown flushes and stops the tracer provider; callers should defer it
// from the composition root.
type Shutdown func(ctx context.Context) error

// Setup installs a global tracer provider. endpoint is the OTLP/HTTP
// collector address (OTEL_EXPORTER_OTLP_ENDPOINT); an empty endpoint
// installs a no-op provider instead of failing, per SPEC_FULL.md §6's
// "spans are still created with a no-op exporter" note.
func Setup(ctx context.Context, endpoint string) (trace.TracerProvider, Shutdown, error) {
	if endpoint == "" {
		tp := trace.NewNoopTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: build otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp, func(shutdownCtx context.Context) error { return tp.Shutdown(shutdownCtx) }, nil
}

// Tracer returns a named tracer off the global provider — a thin wrapper so
// call sites don't each import go.opentelemetry.io/otel directly.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
