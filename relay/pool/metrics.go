package pool

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	statusKey = "status"
	failedKey = "failed"
	resultKey = "result"
)

var meter = otel.Meter("relay_pool")

type metrics struct {
	transitions   metric.Int64Counter     // attributes: status[string]
	fetchTime     metric.Float64Histogram // attributes: failed[bool]
	fetchedEvents metric.Int64Counter
	published     metric.Int64Counter // attributes: result[accepted|rejected]

	relays metric.Int64ObservableGauge // attributes: status[string]

	clientReg metric.Registration
}

func initMetrics(p *Pool) (*metrics, error) {
	transitions, err := meter.Int64Counter("relay_pool_status_transitions",
		metric.WithDescription("relay connection status transitions"))
	if err != nil {
		return nil, err
	}

	fetchTime, err := meter.Float64Histogram("relay_pool_fetch_time",
		metric.WithDescription("duration of fetch requests"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	fetchedEvents, err := meter.Int64Counter("relay_pool_fetched_events",
		metric.WithDescription("unique events returned by fetch requests"))
	if err != nil {
		return nil, err
	}

	published, err := meter.Int64Counter("relay_pool_publish_results",
		metric.WithDescription("per relay results of publishing events"))
	if err != nil {
		return nil, err
	}

	relays, err := meter.Int64ObservableGauge("relay_pool_relays",
		metric.WithDescription("amount of relays per connection status"))
	if err != nil {
		return nil, err
	}

	callback := func(_ context.Context, observer metric.Observer) error {
		counts := make(map[string]int64)
		for _, st := range p.Status() {
			counts[st.Status]++
		}
		for status, count := range counts {
			observer.ObserveInt64(relays, count,
				metric.WithAttributes(attribute.String(statusKey, status)))
		}
		return nil
	}
	clientReg, err := meter.RegisterCallback(callback, relays)
	if err != nil {
		return nil, fmt.Errorf("registering metrics callback: %w", err)
	}

	return &metrics{
		transitions:   transitions,
		fetchTime:     fetchTime,
		fetchedEvents: fetchedEvents,
		published:     published,
		relays:        relays,
		clientReg:     clientReg,
	}, nil
}

func (m *metrics) close() error {
	if m == nil {
		return nil
	}
	return m.clientReg.Unregister()
}

func (m *metrics) observeStatus(status Status) {
	if m == nil {
		return
	}
	m.transitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(statusKey, status.String())))
}

func (m *metrics) observeFetch(ctx context.Context, dur time.Duration, events int, failed bool) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.fetchTime.Record(ctx, dur.Seconds(),
		metric.WithAttributes(attribute.Bool(failedKey, failed)))
	m.fetchedEvents.Add(ctx, int64(events))
}

func (m *metrics) observePublish(ctx context.Context, accepted, rejected int) {
	if m == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.published.Add(ctx, int64(accepted),
		metric.WithAttributes(attribute.String(resultKey, "accepted")))
	m.published.Add(ctx, int64(rejected),
		metric.WithAttributes(attribute.String(resultKey, "rejected")))
}
