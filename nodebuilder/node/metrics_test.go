package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestWithMetrics(t *testing.T) {
	reader := sdk.NewManualReader()
	provider := sdk.NewMeterProvider(sdk.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	// re-assign the global variable `meter` from metrics.go
	meter = provider.Meter("test")
	err := WithMetrics(&BuildInfo{SemanticVersion: "0.1.0", LastCommit: "abcdefghijk"})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}
	require.Len(t, byName, 3)

	start, ok := byName["node_start_ts"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Positive(t, start.DataPoints[0].Value)

	runtime, ok := byName["node_runtime_counter_in_seconds"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	assert.GreaterOrEqual(t, runtime.DataPoints[0].Value, 0.0)

	build, ok := byName["build_info"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	version, ok := build.DataPoints[0].Attributes.Value("version")
	require.True(t, ok)
	assert.Equal(t, "v0.1.0", version.AsString())
	commit, ok := build.DataPoints[0].Attributes.Value("commit")
	require.True(t, ok)
	assert.Equal(t, "abcdefg", commit.AsString())
}
