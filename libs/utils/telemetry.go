package utils

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.11.0"
)

// TelemetryConfig holds configuration for creating metric and trace providers.
type TelemetryConfig struct {
	// ServiceNamespace is the service namespace (e.g., "pareto")
	ServiceNamespace string
	// ServiceName is the service name (e.g., "pareto-bridge")
	ServiceName string
	// ServiceInstanceID is the unique instance identifier (e.g., the store path)
	ServiceInstanceID string
	// ServiceVersion is the version of the running binary
	ServiceVersion string
	// Interval is the interval at which metrics are collected and exported (defaults to 10s)
	Interval time.Duration
}

func (cfg TelemetryConfig) resource() *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNamespaceKey.String(cfg.ServiceNamespace),
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceInstanceIDKey.String(cfg.ServiceInstanceID),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
	)
}

// NewMetricProvider creates a new OTLP metric provider with the given configuration
func NewMetricProvider(
	ctx context.Context,
	cfg TelemetryConfig,
	otlpOpts ...otlpmetrichttp.Option,
) (*sdk.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression)}
	opts = append(opts, otlpOpts...)

	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 10 * time.Second
	}

	provider := sdk.NewMeterProvider(
		sdk.WithReader(
			sdk.NewPeriodicReader(exp,
				sdk.WithTimeout(interval),
				sdk.WithInterval(interval))),
		sdk.WithResource(cfg.resource()))

	return provider, nil
}

// NewTracerProvider creates a new batching OTLP tracer provider with the given configuration
func NewTracerProvider(
	ctx context.Context,
	cfg TelemetryConfig,
	otlpOpts ...otlptracehttp.Option,
) (*tracesdk.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithCompression(otlptracehttp.GzipCompression)}
	opts = append(opts, otlpOpts...)

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(cfg.resource()),
	), nil
}
