package nodebuilder

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.uber.org/fx"

	"github.com/pareto-space/pareto-bridge/libs/utils"
	"github.com/pareto-space/pareto-bridge/nodebuilder/node"
	"github.com/pareto-space/pareto-bridge/nodebuilder/relay"
	"github.com/pareto-space/pareto-bridge/relay/dispatch"
)

const (
	serviceName          = "pareto-bridge"
	runtimeStatsInterval = 15 * time.Second
)

// WithMetrics enables metrics exporting for the node.
func WithMetrics(metricOpts []otlpmetrichttp.Option) fx.Option {
	return fx.Options(
		fx.Supply(metricOpts),
		fx.Invoke(initializeMetrics),
		fx.Invoke(node.WithMetrics),
		fx.Invoke(relay.WithMetrics),
		// add more monitoring here
	)
}

// WithTracing enables trace exporting for the node.
func WithTracing(traceOpts []otlptracehttp.Option) fx.Option {
	return fx.Options(
		fx.Supply(traceOpts),
		fx.Invoke(initializeTracing),
	)
}

// WithDispatchOptions replaces the options the fetch dispatcher is created with.
func WithDispatchOptions(opts ...dispatch.Option) fx.Option {
	return fx.Replace(opts)
}

// initializeMetrics initializes the global meter provider.
func initializeMetrics(
	ctx context.Context,
	lc fx.Lifecycle,
	info *node.BuildInfo,
	opts []otlpmetrichttp.Option,
) error {
	provider, err := utils.NewMetricProvider(ctx, telemetryConfig(info), opts...)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	otel.SetMeterProvider(provider)

	// go runtime metrics: memory, gc and goroutines
	return runtime.Start(
		runtime.WithMeterProvider(provider),
		runtime.WithMinimumReadMemStatsInterval(runtimeStatsInterval),
	)
}

// initializeTracing initializes the global tracer provider.
func initializeTracing(
	ctx context.Context,
	lc fx.Lifecycle,
	info *node.BuildInfo,
	opts []otlptracehttp.Option,
) error {
	provider, err := utils.NewTracerProvider(ctx, telemetryConfig(info), opts...)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	otel.SetTracerProvider(provider)
	return nil
}

func telemetryConfig(info *node.BuildInfo) utils.TelemetryConfig {
	instance, err := os.Hostname()
	if err != nil {
		log.Warnw("resolving hostname for telemetry", "err", err)
		instance = "unknown"
	}
	return utils.TelemetryConfig{
		ServiceNamespace:  "pareto",
		ServiceName:       serviceName,
		ServiceInstanceID: instance,
		ServiceVersion:    info.GetSemanticVersion(),
	}
}
