package node

import (
	"go.uber.org/fx"
)

func ConstructModule(cfg *Config) fx.Option {
	if err := cfg.Validate(); err != nil {
		return fx.Error(err)
	}
	return fx.Module(
		"node",
		fx.Supply(*cfg),
		fx.Supply(GetBuildInfo()),
	)
}
