// Package gateway serves the HTTP surface of the bridge: health and relay status endpoints, the
// event cache and the websocket endpoint application shells connect to.
package gateway

import (
	"context"

	logging "github.com/ipfs/go-log/v2"

	"github.com/pareto-space/pareto-bridge/bridge"
	"github.com/pareto-space/pareto-bridge/nostr"
	"github.com/pareto-space/pareto-bridge/relay/dispatch"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

var log = logging.Logger("gateway")

// Pool reports the state of the relay pool.
type Pool interface {
	Status() []pool.RelayStatus
}

// Dispatcher reports the state of the fetch dispatcher.
type Dispatcher interface {
	Stats() dispatch.Stats
}

// EventStore serves cached events.
type EventStore interface {
	Get(ctx context.Context, id string) (*nostr.Event, error)
	Query(ctx context.Context, filters nostr.Filters) ([]*nostr.Event, error)
}

// Session is a bridge session fed by a websocket connection.
type Session interface {
	Handle(bridge.Command)
	Close()
}

// OpenSession opens a bridge session delivering its messages to the given port.
type OpenSession func(bridge.Port) Session

// Handler serves the gateway endpoints.
type Handler struct {
	pool       Pool
	dispatcher Dispatcher
	events     EventStore
	open       OpenSession
}

// NewHandler creates a Handler. The bridge endpoint is only registered if open is not nil.
func NewHandler(p Pool, d Dispatcher, events EventStore, open OpenSession) *Handler {
	return &Handler{
		pool:       p,
		dispatcher: d,
		events:     events,
		open:       open,
	}
}
