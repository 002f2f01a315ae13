package dispatch

import (
	"time"

	"github.com/pareto-space/pareto-bridge/nostr"
)

// queuedRequest is a request still waiting for some of its relays to become ready.
type queuedRequest struct {
	sink        Sink
	id          int
	filters     nostr.Filters
	closeOnEOSE bool
	description string

	// targets keeps the relays of the request in submission order, missing is the subset of
	// them not dispatched yet. missing only shrinks and is never empty while queued.
	targets   []string
	missing   urlSet
	createdAt time.Time
}

func newQueuedRequest(sink Sink, req Request, missing []string, now time.Time) *queuedRequest {
	qr := &queuedRequest{
		sink:        sink,
		id:          req.ID,
		filters:     req.Filters,
		closeOnEOSE: req.CloseOnEOSE,
		description: req.Description,
		targets:     missing,
		missing:     make(urlSet, len(missing)),
		createdAt:   now,
	}
	for _, url := range missing {
		qr.missing.add(url)
	}
	return qr
}

func (qr *queuedRequest) expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(qr.createdAt) > timeout
}

// take removes the missing relays that are ready and returns them in submission order.
func (qr *queuedRequest) take(ready urlSet) []string {
	var taken []string
	for _, url := range qr.targets {
		if qr.missing.has(url) && ready.has(url) {
			qr.missing.remove(url)
			taken = append(taken, url)
		}
	}
	return taken
}

func (qr *queuedRequest) fetch(urls []string, src source) fetch {
	return fetch{
		sink:        qr.sink,
		id:          qr.id,
		filters:     qr.filters,
		closeOnEOSE: qr.closeOnEOSE,
		description: qr.description,
		relays:      urls,
		source:      src,
	}
}
