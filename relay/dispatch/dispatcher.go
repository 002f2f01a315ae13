package dispatch

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pareto-space/pareto-bridge/libs/utils"
	"github.com/pareto-space/pareto-bridge/nostr"
	"github.com/pareto-space/pareto-bridge/relay"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

var (
	log    = logging.Logger("relay/dispatch")
	tracer = otel.Tracer("relay/dispatch")
)

// Pool is the relay pool requests are dispatched to.
type Pool interface {
	// Relays lists every relay known to the pool.
	Relays() []string
	// IsReady reports whether the relay is connected and ready for requests.
	IsReady(url string) bool
	// RelaySet scopes a fetch to the given relays.
	RelaySet(urls ...string) *pool.RelaySet
	FetchEvents(context.Context, nostr.Filters, pool.FetchOptions, *pool.RelaySet) ([]*nostr.Event, error)
	OnRelayReady(pool.RelayHandler) (cancel func())
	OnRelayDisconnect(pool.RelayHandler) (cancel func())
}

// Sink receives the results of dispatched fetches. It is called once per delegated fetch, so a
// single request may be delivered in several batches.
type Sink interface {
	ProcessEvents(requestID int, description string, events []*nostr.Event)
}

// SinkFunc is a function Sink.
type SinkFunc func(requestID int, description string, events []*nostr.Event)

func (f SinkFunc) ProcessEvents(requestID int, description string, events []*nostr.Event) {
	f(requestID, description, events)
}

// Request is a fetch request.
type Request struct {
	// ID is handed to the Sink with every batch of results.
	ID          int
	Filters     nostr.Filters
	CloseOnEOSE bool
	Description string
	// Relays the request targets. Empty targets every relay of the pool.
	Relays []string
}

// Stats reports the dispatcher state.
type Stats struct {
	Queued int `json:"queued"`
	Ready  int `json:"ready"`
}

type source string

const (
	sourceImmediate source = "immediate"
	sourceFlush     source = "flush"
)

type fetch struct {
	sink        Sink
	id          int
	filters     nostr.Filters
	closeOnEOSE bool
	description string
	relays      []string
	source      source
}

// Dispatcher serves fetch requests against the ready relays of a pool and defers the rest until
// their relays become ready.
type Dispatcher struct {
	params Parameters
	pool   Pool
	clock  clock.Clock

	lk    sync.Mutex
	ready urlSet
	// queue is kept in insertion order
	queue []*queuedRequest

	unsubscribe []func()
	metrics     *metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher and subscribes it to the readiness notifications of the pool.
// Relays already ready at construction are served immediately.
func NewDispatcher(p Pool, params Parameters, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		params: params,
		pool:   p,
		clock:  clock.New(),
		ready:  make(urlSet),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.unsubscribe = append(d.unsubscribe,
		p.OnRelayReady(d.MarkReady),
		p.OnRelayDisconnect(d.MarkDisconnect),
	)
	for _, url := range p.Relays() {
		if p.IsReady(url) {
			d.MarkReady(url)
		}
	}
	return d
}

// Start runs the periodic queue reaper if Parameters.GcInterval is set.
func (d *Dispatcher) Start(context.Context) error {
	if d.params.GcInterval > 0 {
		d.wg.Add(1)
		go d.gc()
	}
	return nil
}

// Stop unsubscribes from the pool, cancels in-flight fetches and waits for them to return.
func (d *Dispatcher) Stop(ctx context.Context) error {
	for _, unsubscribe := range d.unsubscribe {
		unsubscribe()
	}
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.metrics.close()
}

// MarkReady records the relay as ready and serves the queued requests waiting for it.
func (d *Dispatcher) MarkReady(url string) {
	url = relay.NormalizeURL(url)

	d.lk.Lock()
	d.ready.add(url)
	fetches := d.flush(url)
	d.lk.Unlock()

	log.Debugw("relay ready", "relay", url, "dispatched", len(fetches))
	d.send(fetches...)
}

// MarkDisconnect records the relay as not ready. Queued requests are left untouched.
func (d *Dispatcher) MarkDisconnect(url string) {
	url = relay.NormalizeURL(url)

	d.lk.Lock()
	d.ready.remove(url)
	d.lk.Unlock()

	log.Debugw("relay disconnected", "relay", url)
}

// FetchEvents serves the request against its ready relays at once and queues it for the others.
// Results are delivered to the sink.
func (d *Dispatcher) FetchEvents(sink Sink, req Request) {
	targets := relay.NormalizeURLs(req.Relays)
	if len(targets) == 0 {
		targets = relay.NormalizeURLs(d.pool.Relays())
	}
	if len(targets) == 0 {
		log.Warnw("request has no relays to target", "request", req.ID, "description", req.Description)
		return
	}

	var readyNow, missing []string
	d.lk.Lock()
	for _, url := range targets {
		if d.ready.has(url) {
			readyNow = append(readyNow, url)
		} else {
			missing = append(missing, url)
		}
	}
	if len(missing) > 0 {
		d.queue = append(d.queue, newQueuedRequest(sink, req, missing, d.clock.Now()))
	}
	d.lk.Unlock()

	if len(missing) > 0 {
		log.Debugw("queued request", "request", req.ID, "description", req.Description, "missing", missing)
	}
	if len(readyNow) > 0 {
		d.send(fetch{
			sink:        sink,
			id:          req.ID,
			filters:     req.Filters,
			closeOnEOSE: req.CloseOnEOSE,
			description: req.Description,
			relays:      readyNow,
			source:      sourceImmediate,
		})
	}
}

// Stats returns the amount of queued requests and ready relays.
func (d *Dispatcher) Stats() Stats {
	d.lk.Lock()
	defer d.lk.Unlock()
	return Stats{Queued: len(d.queue), Ready: len(d.ready)}
}

// flush drops expired requests and collects the fetches of the queued requests waiting for the
// given relay. An empty url only drops expired requests. Must be called with the lock held.
func (d *Dispatcher) flush(url string) []fetch {
	var (
		fetches []fetch
		now     = d.clock.Now()
	)
	// reverse order keeps indexes valid while removing
	for i := len(d.queue) - 1; i >= 0; i-- {
		qr := d.queue[i]
		if qr.expired(now, d.params.QueueTimeout) {
			log.Debugw("dropping expired request",
				"request", qr.id, "description", qr.description, "age", now.Sub(qr.createdAt))
			d.removeAt(i)
			d.metrics.observeExpired()
			continue
		}
		if url == "" || !qr.missing.has(url) {
			continue
		}

		if taken := qr.take(d.ready); len(taken) > 0 {
			fetches = append(fetches, qr.fetch(taken, sourceFlush))
		}
		if len(qr.missing) == 0 {
			d.removeAt(i)
		}
	}
	return fetches
}

func (d *Dispatcher) removeAt(i int) {
	copy(d.queue[i:], d.queue[i+1:])
	d.queue[len(d.queue)-1] = nil
	d.queue = d.queue[:len(d.queue)-1]
}

// send scopes every fetch to its relays and runs it in the background.
func (d *Dispatcher) send(fetches ...fetch) {
	if d.ctx.Err() != nil {
		return
	}
	for _, f := range fetches {
		set := d.pool.RelaySet(f.relays...)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run(f, set)
		}()
	}
}

func (d *Dispatcher) run(f fetch, set *pool.RelaySet) {
	var err error
	ctx, span := tracer.Start(d.ctx, "dispatch/fetch", trace.WithAttributes(
		attribute.Int("request", f.id),
		attribute.String("description", f.description),
		attribute.StringSlice("relays", f.relays),
		attribute.String("source", string(f.source)),
	))
	defer func() {
		utils.SetStatusAndEnd(span, err)
	}()

	events, err := d.pool.FetchEvents(ctx, f.filters, pool.FetchOptions{CloseOnEOSE: f.closeOnEOSE}, set)
	d.metrics.observeFetch(ctx, f.source, err)
	if err != nil {
		log.Errorw("fetching events",
			"request", f.id, "description", f.description, "relays", set, "err", err)
		return
	}

	span.SetAttributes(attribute.Int("events", len(events)))
	f.sink.ProcessEvents(f.id, f.description, events)
}

func (d *Dispatcher) gc() {
	defer d.wg.Done()

	ticker := d.clock.Ticker(d.params.GcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.lk.Lock()
			d.flush("")
			d.lk.Unlock()
		case <-d.ctx.Done():
			return
		}
	}
}
