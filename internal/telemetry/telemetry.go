// Package telemetry wires up the process-wide OpenTelemetry tracer
// provider the harness uses to wrap each invocation in a client span,
// grounded on the lamux otel.go setupOtelSDK/newTraceProvider pattern:
// a propagator is installed globally, a TracerProvider is built over an
// otlptrace exporter, and a single shutdown func is returned to the
// caller.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config is the harness's tracer-provider configuration.
type Config struct {
	ServiceName string
	Endpoint    string // OTLP/HTTP endpoint; empty disables export entirely
}

// Init builds a TracerProvider, installs the W3C trace-context +
// baggage propagator globally, and returns a shutdown func. When
// cfg.Endpoint is empty, spans are generated but never exported — the
// harness still needs real spans to inject traceparent headers from.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	otel.SetTextMapPropagator(newPropagator())

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if cfg.Endpoint != "" {
		client := otlptracehttp.NewClient(otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
		exporter, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("telemetry: building exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}
