package bridge

import (
	"fmt"

	"github.com/pareto-space/pareto-bridge/bridge"
)

type Config bridge.Parameters

// DefaultConfig returns the default bridge module configuration.
func DefaultConfig() Config {
	return Config(bridge.DefaultParameters())
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	err := (*bridge.Parameters)(cfg).Validate()
	if err != nil {
		return fmt.Errorf("nodebuilder/bridge: %w", err)
	}
	return nil
}
