package node

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("node")

// WithMetrics registers node metrics.
func WithMetrics(info *BuildInfo) error {
	nodeStartTS, err := meter.Int64ObservableGauge(
		"node_start_ts",
		metric.WithDescription("timestamp when the node was started"),
	)
	if err != nil {
		return err
	}

	totalNodeRunTime, err := meter.Float64ObservableCounter(
		"node_runtime_counter_in_seconds",
		metric.WithDescription("total time the node has been running"),
	)
	if err != nil {
		return err
	}

	buildInfo, err := meter.Int64ObservableGauge(
		"build_info",
		metric.WithDescription("build information of the running binary"),
	)
	if err != nil {
		return err
	}
	buildAttrs := metric.WithAttributes(
		attribute.String("version", info.GetSemanticVersion()),
		attribute.String("commit", info.CommitShortSha()),
		attribute.String("system_version", info.SystemVersion),
		attribute.String("golang_version", info.GolangVersion),
	)

	started := time.Now()
	callback := func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(nodeStartTS, started.Unix())
		observer.ObserveFloat64(totalNodeRunTime, time.Since(started).Seconds())
		observer.ObserveInt64(buildInfo, 1, buildAttrs)
		return nil
	}

	_, err = meter.RegisterCallback(callback, nodeStartTS, totalNodeRunTime, buildInfo)
	return err
}
