package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pareto-space/pareto-bridge/nostr"
)

// PublishResult is the outcome of publishing an event to one relay.
type PublishResult struct {
	Relay    string `json:"relay"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
	Err      error  `json:"-"`
}

// Publish sends the event to every relay of the set and waits for their acknowledgements.
// Relays of the set that are not ready are reported with ErrNotReady. An error is returned only
// when no relay accepted the event.
func (p *Pool) Publish(ctx context.Context, ev *nostr.Event, set *RelaySet) ([]PublishResult, error) {
	urls := set.URLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: empty relay set", ErrNoRelays)
	}

	ctx, cancel := context.WithTimeout(ctx, p.params.PublishTimeout)
	defer cancel()

	p.lk.Lock()
	results := make([]PublishResult, len(urls))
	var eg errgroup.Group
	for i, url := range urls {
		results[i].Relay = url
		e, ok := p.relays[url]
		if !ok || e.status != StatusReady || e.conn == nil {
			results[i].Err = ErrNotReady
			continue
		}
		conn := e.conn
		eg.Go(func() error {
			ok, err := conn.Publish(ctx, ev)
			results[i].Accepted, results[i].Message, results[i].Err = ok.OK, ok.Reason, err
			return nil
		})
	}
	p.lk.Unlock()
	_ = eg.Wait()

	accepted := 0
	for _, res := range results {
		if res.Accepted {
			accepted++
		} else {
			log.Debugw("event not accepted", "relay", res.Relay, "id", ev.ID, "reason", res.Message, "err", res.Err)
		}
	}
	p.metrics.observePublish(ctx, accepted, len(results)-accepted)

	if accepted == 0 {
		return results, fmt.Errorf("relay/pool: event %s accepted by none of %s", ev.ID, set)
	}
	return results, nil
}
