// Package runtime carries process-level plumbing: tracing, metrics and
// signal handling.
package runtime

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/webagent/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the tracer provider when export is enabled.
type Telemetry struct {
	tp *sdktrace.TracerProvider
}

// SetupTelemetry installs a global tracer provider exporting over OTLP gRPC.
// Without an endpoint, or when disabled, the global no-op provider is used.
func SetupTelemetry(ctx context.Context, cfg config.TelemetryConfig, version string) (*Telemetry, trace.Tracer, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "webagent"
	}
	if !cfg.Enabled || cfg.OTLPEndpoint == "" {
		return &Telemetry{}, otel.Tracer(name), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
			attribute.String("service.namespace", "webagent"),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("resource init: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("otlp init: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return &Telemetry{tp: tp}, tp.Tracer(name), nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.tp == nil {
		return nil
	}
	if err := t.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("trace shutdown: %w", err)
	}
	return nil
}
