package relay

import (
	"fmt"

	"github.com/pareto-space/pareto-bridge/eventstore"
	"github.com/pareto-space/pareto-bridge/relay/dispatch"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

// Config combines the configuration of the relay pool, the fetch dispatcher and the event cache.
type Config struct {
	// Relays the pool connects to on start. Relays added by shells are persisted separately.
	Relays []string

	Pool       pool.Parameters
	Dispatch   dispatch.Parameters
	EventCache eventstore.Parameters
}

func DefaultConfig() Config {
	return Config{
		Relays:     []string{"wss://nostr.synalysis.com/", "wss://synalysis.nostr1.com/"},
		Pool:       pool.DefaultParameters(),
		Dispatch:   dispatch.DefaultParameters(),
		EventCache: eventstore.DefaultParameters(),
	}
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	if err := cfg.Pool.Validate(); err != nil {
		return fmt.Errorf("nodebuilder/relay: %w", err)
	}
	if err := cfg.Dispatch.Validate(); err != nil {
		return fmt.Errorf("nodebuilder/relay: %w", err)
	}
	if err := cfg.EventCache.Validate(); err != nil {
		return fmt.Errorf("nodebuilder/relay: %w", err)
	}
	return nil
}
