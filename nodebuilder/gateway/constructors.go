package gateway

import (
	"github.com/pareto-space/pareto-bridge/api/gateway"
	"github.com/pareto-space/pareto-bridge/bridge"
	"github.com/pareto-space/pareto-bridge/eventstore"
	"github.com/pareto-space/pareto-bridge/relay/dispatch"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

// Handler constructs a new gateway Handler from the given services and registers it on the
// server.
func Handler(
	p *pool.Pool,
	d *dispatch.Dispatcher,
	events *eventstore.Store,
	svc *bridge.Service,
	serv *gateway.Server,
) {
	handler := gateway.NewHandler(p, d, events, func(port bridge.Port) gateway.Session {
		return svc.NewSession(port)
	})
	handler.RegisterEndpoints(serv)
	handler.RegisterMiddleware(serv)
}

func server(cfg *Config) *gateway.Server {
	return gateway.NewServer(cfg.Address, cfg.Port, cfg.Origins...)
}
