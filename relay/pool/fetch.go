package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pareto-space/pareto-bridge/nostr"
	"github.com/pareto-space/pareto-bridge/relay"
)

// FetchOptions tune a FetchEvents call.
type FetchOptions struct {
	// CloseOnEOSE makes the fetch finish once every relay sent EOSE. Otherwise events are
	// collected until the fetch timeout elapses.
	CloseOnEOSE bool
}

// FetchEvents subscribes to the filters on every ready relay of the set and returns the union of
// the received events, deduplicated by id, in arrival order. Relays of the set that are not ready
// are skipped. ErrNoRelays is returned if no relay of the set could be queried.
func (p *Pool) FetchEvents(
	ctx context.Context,
	filters nostr.Filters,
	opts FetchOptions,
	set *RelaySet,
) ([]*nostr.Event, error) {
	conns := p.readyConns(set)
	if len(conns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRelays, set)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.params.FetchTimeout)
	defer cancel()

	var (
		lk     sync.Mutex
		seen   = make(map[string]struct{})
		events []*nostr.Event
		errs   = make([]error, len(conns))
	)
	collect := func(ev *nostr.Event) {
		lk.Lock()
		defer lk.Unlock()
		if _, ok := seen[ev.ID]; ok {
			return
		}
		seen[ev.ID] = struct{}{}
		events = append(events, ev)
	}

	var eg errgroup.Group
	for i, conn := range conns {
		eg.Go(func() error {
			errs[i] = fetch(ctx, conn, filters, opts, collect)
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			log.Debugw("fetching from relay", "relay", conns[i].URL(), "err", err)
		}
	}
	p.metrics.observeFetch(ctx, time.Since(start), len(events), failed == len(conns))

	if failed == len(conns) {
		return nil, fmt.Errorf("%w: %w", ErrNoRelays, errors.Join(errs...))
	}
	return events, nil
}

func fetch(
	ctx context.Context,
	conn *relay.Conn,
	filters nostr.Filters,
	opts FetchOptions,
	collect func(*nostr.Event),
) error {
	sub, err := conn.Subscribe(ctx, filters)
	if err != nil {
		return err
	}
	defer sub.Close()

	eose := sub.EndOfStoredEvents()
	if !opts.CloseOnEOSE {
		eose = nil
	}

	for {
		select {
		case ev := <-sub.Events():
			collect(ev)
		case <-eose:
			drain(sub, collect)
			return nil
		case <-sub.Done():
			drain(sub, collect)
			if conn.Err() != nil {
				return fmt.Errorf("subscription ended: %s", sub.Reason())
			}
			return nil
		case <-ctx.Done():
			drain(sub, collect)
			if opts.CloseOnEOSE {
				// relays that never sent EOSE still contribute what they sent so far
				log.Debugw("fetch timed out before EOSE", "relay", conn.URL())
			}
			return nil
		}
	}
}

func drain(sub *relay.Subscription, collect func(*nostr.Event)) {
	for {
		select {
		case ev := <-sub.Events():
			collect(ev)
		default:
			return
		}
	}
}
