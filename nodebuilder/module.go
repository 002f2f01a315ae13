package nodebuilder

import (
	"context"

	"go.uber.org/fx"

	"github.com/pareto-space/pareto-bridge/libs/fxutil"
	"github.com/pareto-space/pareto-bridge/nodebuilder/bridge"
	"github.com/pareto-space/pareto-bridge/nodebuilder/gateway"
	"github.com/pareto-space/pareto-bridge/nodebuilder/node"
	"github.com/pareto-space/pareto-bridge/nodebuilder/relay"
)

func ConstructModule(cfg *Config, store Store) fx.Option {
	baseComponents := fx.Options(
		fx.Provide(func(lc fx.Lifecycle) context.Context {
			return fxutil.WithLifecycle(context.Background(), lc)
		}),
		fx.Supply(cfg),
		fx.Supply(ConfigLoader(store.Config)),
		fx.Provide(store.Datastore),
		// modules provided by the node
		node.ConstructModule(&cfg.Node),
		relay.ConstructModule(&cfg.Relay),
		bridge.ConstructModule(&cfg.Bridge),
		gateway.ConstructModule(&cfg.Gateway),
	)

	return fx.Module(
		"node",
		baseComponents,
	)
}
