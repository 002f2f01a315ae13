package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pareto-space/pareto-bridge/nostr"
	"github.com/pareto-space/pareto-bridge/relay/relaytest"
)

// unreachable is a relay url nothing listens on.
const unreachable = "ws://127.0.0.1:1/"

func testParams() Parameters {
	params := DefaultParameters()
	params.ConnectTimeout = 2 * time.Second
	params.DialTimeout = time.Second
	params.FetchTimeout = 2 * time.Second
	params.PublishTimeout = time.Second
	params.ReconnectMin = 10 * time.Millisecond
	params.ReconnectMax = 50 * time.Millisecond
	return params
}

func startPool(t *testing.T, params Parameters, urls ...string) *Pool {
	t.Helper()
	p := New(params, urls)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, p.Stop(ctx))
	})
	return p
}

func TestParameters_Validate(t *testing.T) {
	params := DefaultParameters()
	require.NoError(t, params.Validate())

	params.FetchTimeout = 0
	require.Error(t, params.Validate())

	params = DefaultParameters()
	params.ReconnectMax = params.ReconnectMin / 2
	require.Error(t, params.Validate())
}

func TestPool_AddRelays(t *testing.T) {
	p := New(testParams(), []string{"relay.one", "wss://relay.one/", "ws://relay.two"})
	require.Equal(t, []string{"wss://relay.one/", "ws://relay.two/"}, p.Relays())

	added := p.AddRelays("relay.two", "relay.three")
	require.Equal(t, []string{"wss://relay.two/", "wss://relay.three/"}, added)
	require.Len(t, p.Relays(), 4)

	for _, st := range p.Status() {
		require.Equal(t, StatusDisconnected.String(), st.Status)
	}
}

func TestPool_RelaySet(t *testing.T) {
	p := New(testParams(), []string{"relay.one"})

	set := p.RelaySet()
	require.Equal(t, []string{"wss://relay.one/"}, set.URLs())

	set = p.RelaySet("relay.two")
	require.Equal(t, []string{"wss://relay.two/"}, set.URLs())
	// unknown relays become part of the pool
	require.Equal(t, []string{"wss://relay.one/", "wss://relay.two/"}, p.Relays())

	var nilSet *RelaySet
	require.Zero(t, nilSet.Len())
	require.Equal(t, "[]", nilSet.String())
}

func TestPool_Lifecycle(t *testing.T) {
	srv := relaytest.New(t)

	p := New(testParams(), []string{srv.URL()})
	var (
		lk     sync.Mutex
		events []string
	)
	record := func(name string) RelayHandler {
		return func(url string) {
			assert.Equal(t, srv.URL(), url)
			lk.Lock()
			defer lk.Unlock()
			events = append(events, name)
		}
	}
	p.OnRelayConnecting(record("connecting"))
	p.OnRelayConnect(record("connect"))
	p.OnRelayReady(record("ready"))
	p.OnRelayDisconnect(record("disconnect"))

	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.Equal(t, 1, p.WaitReady(context.Background(), 0))
	require.True(t, p.IsReady(srv.URL()))

	lk.Lock()
	require.Equal(t, []string{"connecting", "connect", "ready"}, events)
	lk.Unlock()

	srv.DropConnections()

	// the relay is redialed after dropping
	require.Eventually(t, func() bool {
		lk.Lock()
		defer lk.Unlock()
		return len(events) >= 7 && events[len(events)-1] == "ready"
	}, 5*time.Second, 10*time.Millisecond)

	lk.Lock()
	assert.Equal(t, []string{"connecting", "connect", "ready", "disconnect", "connecting", "connect", "ready"}, events[:7])
	lk.Unlock()
}

func TestPool_FailedDialDoesNotDisconnect(t *testing.T) {
	p := New(testParams(), []string{unreachable})
	var disconnects atomic.Int32
	p.OnRelayDisconnect(func(string) { disconnects.Add(1) })
	connecting := make(chan struct{}, 16)
	p.OnRelayConnecting(func(string) {
		select {
		case connecting <- struct{}{}:
		default:
		}
	})

	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	// wait for a couple of redial attempts
	for range 2 {
		select {
		case <-connecting:
		case <-time.After(5 * time.Second):
			t.Fatal("relay is not redialed")
		}
	}
	require.Zero(t, p.WaitReady(context.Background(), 50*time.Millisecond))
	require.False(t, p.IsReady(unreachable))
	require.Zero(t, disconnects.Load())
}

func TestPool_WaitAnyReady(t *testing.T) {
	srv := relaytest.New(t)
	params := testParams()
	params.ConnectTimeout = 10 * time.Second
	p := startPool(t, params, srv.URL(), unreachable)

	// one ready relay is enough, the unreachable one is not waited for
	start := time.Now()
	require.Equal(t, 1, p.WaitAnyReady(context.Background(), 0))
	require.Less(t, time.Since(start), 5*time.Second)

	require.Equal(t, 1, p.WaitReady(context.Background(), 100*time.Millisecond))
	require.False(t, p.IsReady(unreachable))
}

func TestPool_WaitAnyReadyTimeout(t *testing.T) {
	p := startPool(t, testParams(), unreachable)
	require.Zero(t, p.WaitAnyReady(context.Background(), 50*time.Millisecond))
}

func TestPool_FetchEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	one := relaytest.New(t,
		&nostr.Event{ID: "a", PubKey: "alice", Kind: 1},
		&nostr.Event{ID: "b", PubKey: "alice", Kind: 1},
	)
	two := relaytest.New(t,
		&nostr.Event{ID: "b", PubKey: "alice", Kind: 1},
		&nostr.Event{ID: "c", PubKey: "alice", Kind: 1},
		&nostr.Event{ID: "d", PubKey: "bob", Kind: 1},
	)
	p := startPool(t, testParams(), one.URL(), two.URL())
	require.Equal(t, 2, p.WaitReady(ctx, 0))

	filters := nostr.Filters{{Authors: []string{"alice"}}}

	t.Run("all relays", func(t *testing.T) {
		events, err := p.FetchEvents(ctx, filters, FetchOptions{CloseOnEOSE: true}, p.RelaySet())
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"a", "b", "c"}, eventIDs(events))
	})

	t.Run("subset", func(t *testing.T) {
		events, err := p.FetchEvents(ctx, filters, FetchOptions{CloseOnEOSE: true}, p.RelaySet(two.URL()))
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"b", "c"}, eventIDs(events))
	})

	t.Run("no ready relay", func(t *testing.T) {
		_, err := p.FetchEvents(ctx, filters, FetchOptions{CloseOnEOSE: true}, NewRelaySet(unreachable))
		require.ErrorIs(t, err, ErrNoRelays)
	})
}

func TestPool_FetchEventsUntilTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	srv := relaytest.New(t, &nostr.Event{ID: "a", Kind: 1})
	srv.SkipEOSE()

	params := testParams()
	params.FetchTimeout = 300 * time.Millisecond
	p := startPool(t, params, srv.URL())
	require.Equal(t, 1, p.WaitReady(ctx, 0))

	go func() {
		for srv.Requests() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		srv.Broadcast(&nostr.Event{ID: "live", Kind: 1})
	}()

	start := time.Now()
	events, err := p.FetchEvents(ctx, nostr.Filters{{Kinds: []int{1}}}, FetchOptions{}, p.RelaySet())
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), params.FetchTimeout)
	require.ElementsMatch(t, []string{"a", "live"}, eventIDs(events))
}

func TestPool_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	accepting := relaytest.New(t)
	rejecting := relaytest.New(t)
	rejecting.Reject("blocked: spam")

	p := startPool(t, testParams(), accepting.URL(), rejecting.URL())
	require.Equal(t, 2, p.WaitRelaySet(ctx, NewRelaySet(accepting.URL(), rejecting.URL())))

	ev := &nostr.Event{ID: "e1", PubKey: "alice", Kind: 1, Content: "gm"}
	results, err := p.Publish(ctx, ev, NewRelaySet(accepting.URL(), rejecting.URL(), unreachable))
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.True(t, results[0].Accepted)
	require.False(t, results[1].Accepted)
	require.Equal(t, "blocked: spam", results[1].Message)
	require.ErrorIs(t, results[2].Err, ErrNotReady)
	require.Len(t, accepting.Published(), 1)

	_, err = p.Publish(ctx, ev, NewRelaySet(rejecting.URL()))
	require.Error(t, err)
}

func eventIDs(events []*nostr.Event) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}
