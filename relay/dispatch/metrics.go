package dispatch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pareto-space/pareto-bridge/libs/utils"
)

const (
	sourceKey = "source"
	failedKey = "failed"
)

var meter = otel.Meter("relay_dispatch")

type metrics struct {
	fetches metric.Int64Counter // attributes: source[immediate|flush], failed[bool]
	expired metric.Int64Counter

	queued metric.Int64ObservableGauge
	ready  metric.Int64ObservableGauge

	clientReg metric.Registration
}

func initMetrics(d *Dispatcher) (*metrics, error) {
	fetches, err := meter.Int64Counter("relay_dispatch_fetches",
		metric.WithDescription("delegated fetches issued by the dispatcher"))
	if err != nil {
		return nil, err
	}

	expired, err := meter.Int64Counter("relay_dispatch_expired_requests",
		metric.WithDescription("queued requests dropped before all their relays became ready"))
	if err != nil {
		return nil, err
	}

	queued, err := meter.Int64ObservableGauge("relay_dispatch_queued_requests",
		metric.WithDescription("amount of requests waiting for relays"))
	if err != nil {
		return nil, err
	}

	ready, err := meter.Int64ObservableGauge("relay_dispatch_ready_relays",
		metric.WithDescription("amount of relays known to be ready"))
	if err != nil {
		return nil, err
	}

	callback := func(_ context.Context, observer metric.Observer) error {
		stats := d.Stats()
		observer.ObserveInt64(queued, int64(stats.Queued))
		observer.ObserveInt64(ready, int64(stats.Ready))
		return nil
	}
	clientReg, err := meter.RegisterCallback(callback, queued, ready)
	if err != nil {
		return nil, fmt.Errorf("registering metrics callback: %w", err)
	}

	return &metrics{
		fetches:   fetches,
		expired:   expired,
		queued:    queued,
		ready:     ready,
		clientReg: clientReg,
	}, nil
}

func (m *metrics) close() error {
	if m == nil {
		return nil
	}
	return m.clientReg.Unregister()
}

func (m *metrics) observeFetch(ctx context.Context, src source, err error) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)
	m.fetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String(sourceKey, string(src)),
		attribute.Bool(failedKey, err != nil)))
}

func (m *metrics) observeExpired() {
	if m == nil {
		return
	}
	m.expired.Add(context.Background(), 1)
}
