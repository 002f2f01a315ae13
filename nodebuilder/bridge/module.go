package bridge

import (
	"context"

	"go.uber.org/fx"

	"github.com/pareto-space/pareto-bridge/bridge"
	"github.com/pareto-space/pareto-bridge/eventstore"
	"github.com/pareto-space/pareto-bridge/libs/relaystore"
	"github.com/pareto-space/pareto-bridge/relay/dispatch"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

func ConstructModule(cfg *Config) fx.Option {
	err := cfg.Validate()
	if err != nil {
		return fx.Error(err)
	}

	return fx.Module(
		"bridge",
		fx.Supply(*cfg),
		fx.Provide(fx.Annotate(
			func(
				cfg Config,
				p *pool.Pool,
				d *dispatch.Dispatcher,
				events *eventstore.Store,
				relays *relaystore.RelayStore,
			) *bridge.Service {
				return bridge.NewService(p, d, events, relays, bridge.Parameters(cfg))
			},
			fx.OnStart(func(ctx context.Context, s *bridge.Service) error {
				return s.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, s *bridge.Service) error {
				return s.Stop(ctx)
			}),
		)),
	)
}
