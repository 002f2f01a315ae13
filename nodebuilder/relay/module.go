package relay

import (
	"context"
	"fmt"

	"github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/fx"

	"github.com/pareto-space/pareto-bridge/eventstore"
	"github.com/pareto-space/pareto-bridge/libs/relaystore"
	"github.com/pareto-space/pareto-bridge/relay/dispatch"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

var log = logging.Logger("module/relay")

func ConstructModule(cfg *Config, options ...fx.Option) fx.Option {
	// sanitize config values before constructing module
	err := cfg.Validate()
	if err != nil {
		return fx.Error(err)
	}

	return fx.Module(
		"relay",
		fx.Supply(*cfg),
		fx.Options(options...),
		fx.Provide(fx.Annotate(
			func(cfg Config) *pool.Pool {
				log.Infow("configured relays", "relays", cfg.Relays)
				return pool.New(cfg.Pool, cfg.Relays)
			},
			fx.OnStart(func(ctx context.Context, p *pool.Pool) error {
				return p.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, p *pool.Pool) error {
				return p.Stop(ctx)
			}),
		)),
		// the dispatcher is started after the pool so it observes every ready transition
		fx.Provide(fx.Annotate(
			func(p *pool.Pool, cfg Config, opts []dispatch.Option) *dispatch.Dispatcher {
				return dispatch.NewDispatcher(p, cfg.Dispatch, opts...)
			},
			fx.OnStart(func(ctx context.Context, d *dispatch.Dispatcher) error {
				return d.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, d *dispatch.Dispatcher) error {
				return d.Stop(ctx)
			}),
		)),
		fx.Supply([]dispatch.Option{}),
		fx.Provide(fx.Annotate(
			func(ds datastore.Batching, cfg Config) (*eventstore.Store, error) {
				store, err := eventstore.NewStore(ds, cfg.EventCache)
				if err != nil {
					return nil, fmt.Errorf("nodebuilder/relay: creating event cache: %w", err)
				}
				return store, nil
			},
			fx.OnStop(func(ctx context.Context, store *eventstore.Store) error {
				return store.Close(ctx)
			}),
		)),
		fx.Provide(func(ctx context.Context, ds datastore.Batching) (*relaystore.RelayStore, error) {
			return relaystore.NewRelayStore(ctx, ds)
		}),
	)
}

// WithMetrics turns on pool and dispatcher metrics.
func WithMetrics(p *pool.Pool, d *dispatch.Dispatcher) error {
	if err := p.WithMetrics(); err != nil {
		return err
	}
	return d.WithMetrics()
}
