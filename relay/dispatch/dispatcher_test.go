package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pareto-space/pareto-bridge/nostr"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

const (
	relayA = "wss://a.example.com/"
	relayB = "wss://b.example.com/"
)

func TestParameters_Validate(t *testing.T) {
	params := DefaultParameters()
	require.NoError(t, params.Validate())
	require.Equal(t, 5*time.Second, params.QueueTimeout)
	require.Zero(t, params.GcInterval)

	params.QueueTimeout = 0
	require.Error(t, params.Validate())

	params = DefaultParameters()
	params.GcInterval = -time.Second
	require.Error(t, params.Validate())
}

func TestDispatcher_ServesInReadinessWaves(t *testing.T) {
	fp, d, _ := newTestDispatcher(t)
	sink := newRecorder()

	filters := nostr.Filters{{Kinds: []int{1}}}
	d.FetchEvents(sink, Request{
		ID:          1,
		Filters:     filters,
		CloseOnEOSE: true,
		Description: "r1",
		Relays:      []string{"a.example.com", "b.example.com"},
	})
	require.Empty(t, fp.relaySets())
	require.Len(t, d.queue, 1)
	require.Equal(t, urlSet{relayA: {}, relayB: {}}, d.queue[0].missing)

	fp.ready("a.example.com")
	require.Equal(t, [][]string{{relayA}}, fp.relaySets())
	require.Len(t, d.queue, 1)
	require.Equal(t, urlSet{relayB: {}}, d.queue[0].missing)

	fp.ready("b.example.com")
	require.Equal(t, [][]string{{relayA}, {relayB}}, fp.relaySets())
	require.Empty(t, d.queue)

	batches := sink.wait(t, 2)
	for _, b := range batches {
		assert.Equal(t, 1, b.requestID)
		assert.Equal(t, "r1", b.description)
		require.Len(t, b.events, 1)
	}
	require.ElementsMatch(t, []string{relayA, relayB}, []string{batches[0].events[0].ID, batches[1].events[0].ID})

	calls := fp.fetchCalls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, filters, c.filters)
		assert.True(t, c.opts.CloseOnEOSE)
	}
}

// A request waiting for a relay that never becomes ready is dropped silently.
func TestDispatcher_DropsExpiredRequests(t *testing.T) {
	fp, d, clk := newTestDispatcher(t)
	sink := newRecorder()

	d.FetchEvents(sink, Request{ID: 1, Relays: []string{"never.example.com"}})
	require.Len(t, d.queue, 1)

	// exactly at the timeout the request is still alive
	clk.Add(d.params.QueueTimeout)
	fp.ready("unrelated.example.com")
	require.Len(t, d.queue, 1)

	clk.Add(time.Millisecond)
	fp.ready("unrelated.example.com")
	require.Empty(t, d.queue)
	require.Empty(t, fp.relaySets())

	fp.ready("never.example.com")
	require.Empty(t, fp.relaySets())
	require.Empty(t, sink.batches())
}

func TestDispatcher_DefaultsToPoolRelays(t *testing.T) {
	for _, relays := range [][]string{nil, {}} {
		fp, d, _ := newTestDispatcher(t, relayA, relayB)
		sink := newRecorder()

		fp.ready(relayA)
		fp.ready(relayB)

		d.FetchEvents(sink, Request{ID: 3, Relays: relays})
		require.Equal(t, [][]string{{relayA, relayB}}, fp.relaySets())
		require.Empty(t, d.queue)

		batch := sink.wait(t, 1)[0]
		require.Equal(t, 3, batch.requestID)
		require.Len(t, batch.events, 2)
	}
}

func TestDispatcher_NoTargets(t *testing.T) {
	fp, d, _ := newTestDispatcher(t)

	d.FetchEvents(newRecorder(), Request{ID: 1})
	require.Empty(t, d.queue)
	require.Empty(t, fp.relaySets())
}

func TestDispatcher_PartiallyReady(t *testing.T) {
	fp, d, _ := newTestDispatcher(t)
	sink := newRecorder()

	fp.ready(relayA)
	d.FetchEvents(sink, Request{ID: 1, Relays: []string{relayA, relayB}})
	require.Equal(t, [][]string{{relayA}}, fp.relaySets())
	require.Len(t, d.queue, 1)
	require.Equal(t, urlSet{relayB: {}}, d.queue[0].missing)

	fp.ready(relayB)
	require.Equal(t, [][]string{{relayA}, {relayB}}, fp.relaySets())
	require.Empty(t, d.queue)
	sink.wait(t, 2)
}

// A relay is never dispatched twice for the same request.
func TestDispatcher_IdempotentReadiness(t *testing.T) {
	fp, d, _ := newTestDispatcher(t)

	d.FetchEvents(newRecorder(), Request{ID: 1, Relays: []string{relayA, relayB}})

	fp.ready(relayA)
	fp.ready(relayA)
	require.Equal(t, [][]string{{relayA}}, fp.relaySets())
	require.Len(t, d.queue, 1)

	// a reconnect does not redispatch what was already served
	fp.disconnect(relayA)
	fp.ready(relayA)
	require.Equal(t, [][]string{{relayA}}, fp.relaySets())

	fp.ready(relayB)
	fp.ready(relayB)
	require.Equal(t, [][]string{{relayA}, {relayB}}, fp.relaySets())
	require.Empty(t, d.queue)
}

func TestDispatcher_NoDispatchAfterExpiry(t *testing.T) {
	fp, d, clk := newTestDispatcher(t)

	d.FetchEvents(newRecorder(), Request{ID: 1, Relays: []string{relayA, relayB}})
	fp.ready(relayA)
	require.Len(t, fp.relaySets(), 1)

	clk.Add(d.params.QueueTimeout + time.Second)
	fp.ready(relayB)
	require.Len(t, fp.relaySets(), 1)
	require.Empty(t, d.queue)
}

// Relay urls match in any notation.
func TestDispatcher_NormalizesURLs(t *testing.T) {
	fp, d, _ := newTestDispatcher(t)

	d.MarkReady("relay.example.com")
	d.FetchEvents(newRecorder(), Request{ID: 1, Relays: []string{"wss://relay.example.com/"}})
	require.Equal(t, [][]string{{"wss://relay.example.com/"}}, fp.relaySets())
	require.Empty(t, d.queue)

	d.FetchEvents(newRecorder(), Request{ID: 2, Relays: []string{"wss://relay.example.com", "relay.example.com/"}})
	require.Equal(t, [][]string{{"wss://relay.example.com/"}, {"wss://relay.example.com/"}}, fp.relaySets())
}

// Relays the pool reports ready before the dispatcher exists are served without queueing.
func TestDispatcher_ReadyBeforeConstruction(t *testing.T) {
	fp := newFakePool(relayA, relayB)
	fp.setReady(relayA, true)
	d := NewDispatcher(fp, DefaultParameters(), WithClock(clock.NewMock()))
	t.Cleanup(func() { require.NoError(t, d.Stop(context.Background())) })
	require.Equal(t, Stats{Ready: 1}, d.Stats())

	sink := newRecorder()
	d.FetchEvents(sink, Request{ID: 1, Relays: []string{relayA}})
	require.Equal(t, [][]string{{relayA}}, fp.relaySets())
	require.Empty(t, d.queue)
	require.Equal(t, 1, sink.wait(t, 1)[0].requestID)

	// the relay that was not ready still defers its requests
	d.FetchEvents(sink, Request{ID: 2, Relays: []string{relayB}})
	require.Len(t, d.queue, 1)
}

func TestDispatcher_Disconnect(t *testing.T) {
	fp, d, _ := newTestDispatcher(t)

	fp.ready(relayA)
	require.Equal(t, Stats{Ready: 1}, d.Stats())

	fp.disconnect(relayA)
	require.Equal(t, Stats{}, d.Stats())

	d.FetchEvents(newRecorder(), Request{ID: 1, Relays: []string{relayA}})
	require.Empty(t, fp.relaySets())
	require.Equal(t, Stats{Queued: 1}, d.Stats())

	fp.ready(relayA)
	require.Equal(t, [][]string{{relayA}}, fp.relaySets())
	require.Equal(t, Stats{Ready: 1}, d.Stats())
}

func TestDispatcher_SharedRelays(t *testing.T) {
	fp, d, _ := newTestDispatcher(t)
	sink := newRecorder()

	d.FetchEvents(sink, Request{ID: 1, Relays: []string{relayA}})
	d.FetchEvents(sink, Request{ID: 2, Relays: []string{relayA, relayB}})
	d.FetchEvents(sink, Request{ID: 3, Relays: []string{relayB}})

	fp.ready(relayA)
	require.Len(t, fp.relaySets(), 2)
	require.Len(t, d.queue, 2)

	ids := make([]int, 0, 2)
	for _, b := range sink.wait(t, 2) {
		ids = append(ids, b.requestID)
	}
	require.ElementsMatch(t, []int{1, 2}, ids)

	fp.ready(relayB)
	require.Len(t, fp.relaySets(), 4)
	require.Empty(t, d.queue)
}

func TestDispatcher_FetchFailure(t *testing.T) {
	fp, d, _ := newTestDispatcher(t)
	sink := newRecorder()

	fp.fail(relayA)
	fp.ready(relayA)
	fp.ready(relayB)

	d.FetchEvents(sink, Request{ID: 1, Relays: []string{relayA}})
	d.FetchEvents(sink, Request{ID: 2, Relays: []string{relayB}})

	batches := sink.wait(t, 1)
	require.Equal(t, 2, batches[0].requestID)

	require.Eventually(t, func() bool { return len(fp.fetchCalls()) == 2 }, time.Second, time.Millisecond)
	require.NoError(t, d.Stop(context.Background()))
	// the failed fetch is neither delivered nor retried
	require.Len(t, sink.batches(), 1)
	require.Len(t, fp.fetchCalls(), 2)
}

func TestDispatcher_GC(t *testing.T) {
	clk := clock.NewMock()
	fp := newFakePool()
	params := DefaultParameters()
	params.GcInterval = time.Second
	d := NewDispatcher(fp, params, WithClock(clk))
	require.NoError(t, d.WithMetrics())
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, d.Stop(context.Background())) })

	d.FetchEvents(newRecorder(), Request{ID: 1, Relays: []string{relayA}})
	require.Equal(t, 1, d.Stats().Queued)

	// expired requests are dropped without any relay becoming ready
	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		return d.Stats().Queued == 0
	}, time.Second, time.Millisecond)
	require.Empty(t, fp.relaySets())
}

func TestDispatcher_Stop(t *testing.T) {
	fp := newFakePool()
	d := NewDispatcher(fp, DefaultParameters())
	require.Equal(t, 1, fp.handlers())

	require.NoError(t, d.Stop(context.Background()))
	require.Zero(t, fp.handlers())

	// nothing is dispatched after stop
	d.MarkReady(relayA)
	d.FetchEvents(newRecorder(), Request{ID: 1, Relays: []string{relayA}})
	require.Empty(t, fp.relaySets())
}

func newTestDispatcher(t *testing.T, relays ...string) (*fakePool, *Dispatcher, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	fp := newFakePool(relays...)
	d := NewDispatcher(fp, DefaultParameters(), WithClock(clk))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, d.Stop(ctx))
	})
	return fp, d, clk
}

type fetchCall struct {
	filters nostr.Filters
	opts    pool.FetchOptions
	relays  []string
}

// fakePool records the relay sets requested from it and answers every fetch with one event per
// relay, using the relay url as event id.
type fakePool struct {
	lk         sync.Mutex
	relays     []string
	onReady    map[int]pool.RelayHandler
	onDisc     map[int]pool.RelayHandler
	nextID     int
	sets       [][]string
	calls      []fetchCall
	failRelays map[string]bool
	readyNow   map[string]bool
}

func newFakePool(relays ...string) *fakePool {
	return &fakePool{
		relays:     relays,
		onReady:    make(map[int]pool.RelayHandler),
		onDisc:     make(map[int]pool.RelayHandler),
		failRelays: make(map[string]bool),
		readyNow:   make(map[string]bool),
	}
}

func (fp *fakePool) IsReady(url string) bool {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	return fp.readyNow[url]
}

func (fp *fakePool) setReady(url string, ready bool) {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	fp.readyNow[url] = ready
}

func (fp *fakePool) Relays() []string {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	return append([]string(nil), fp.relays...)
}

func (fp *fakePool) RelaySet(urls ...string) *pool.RelaySet {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	fp.sets = append(fp.sets, append([]string(nil), urls...))
	return pool.NewRelaySet(urls...)
}

func (fp *fakePool) FetchEvents(
	_ context.Context,
	filters nostr.Filters,
	opts pool.FetchOptions,
	set *pool.RelaySet,
) ([]*nostr.Event, error) {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	fp.calls = append(fp.calls, fetchCall{filters: filters, opts: opts, relays: set.URLs()})

	var events []*nostr.Event
	for _, url := range set.URLs() {
		if fp.failRelays[url] {
			return nil, errors.New("relay unreachable")
		}
		events = append(events, &nostr.Event{ID: url, Kind: 1})
	}
	return events, nil
}

func (fp *fakePool) OnRelayReady(h pool.RelayHandler) func() {
	return fp.register(fp.onReady, h)
}

func (fp *fakePool) OnRelayDisconnect(h pool.RelayHandler) func() {
	return fp.register(fp.onDisc, h)
}

func (fp *fakePool) register(hs map[int]pool.RelayHandler, h pool.RelayHandler) func() {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	id := fp.nextID
	fp.nextID++
	hs[id] = h
	return func() {
		fp.lk.Lock()
		defer fp.lk.Unlock()
		delete(hs, id)
	}
}

func (fp *fakePool) ready(url string) {
	fp.setReady(url, true)
	for _, h := range fp.snapshot(fp.onReady) {
		h(url)
	}
}

func (fp *fakePool) disconnect(url string) {
	fp.setReady(url, false)
	for _, h := range fp.snapshot(fp.onDisc) {
		h(url)
	}
}

func (fp *fakePool) snapshot(hs map[int]pool.RelayHandler) []pool.RelayHandler {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	out := make([]pool.RelayHandler, 0, len(hs))
	for _, h := range hs {
		out = append(out, h)
	}
	return out
}

func (fp *fakePool) handlers() int {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	return min(len(fp.onReady), len(fp.onDisc))
}

func (fp *fakePool) fail(url string) {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	fp.failRelays[url] = true
}

func (fp *fakePool) relaySets() [][]string {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	return append([][]string(nil), fp.sets...)
}

func (fp *fakePool) fetchCalls() []fetchCall {
	fp.lk.Lock()
	defer fp.lk.Unlock()
	return append([]fetchCall(nil), fp.calls...)
}

type batch struct {
	requestID   int
	description string
	events      []*nostr.Event
}

type recorder struct {
	lk  sync.Mutex
	got []batch
	ch  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 64)}
}

func (r *recorder) ProcessEvents(requestID int, description string, events []*nostr.Event) {
	r.lk.Lock()
	r.got = append(r.got, batch{requestID: requestID, description: description, events: events})
	r.lk.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []batch {
	t.Helper()
	for range n {
		select {
		case <-r.ch:
		case <-time.After(time.Second):
			t.Fatalf("expected %d batches, got %d", n, len(r.batches()))
		}
	}
	return r.batches()
}

func (r *recorder) batches() []batch {
	r.lk.Lock()
	defer r.lk.Unlock()
	return append([]batch(nil), r.got...)
}
