package nodebuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

// MockStore provides mock in memory Store for testing purposes.
func MockStore(t *testing.T, cfg *Config) Store {
	t.Helper()
	store := NewMemStore()

	err := store.PutConfig(cfg)
	require.NoError(t, err)
	return store
}

// TestNode assembles a Node over an in memory Store connecting to the given relays. The gateway
// listens on a random local port.
func TestNode(t *testing.T, relays []string, opts ...fx.Option) *Node {
	cfg := DefaultConfig()
	cfg.Relay.Relays = relays
	return TestNodeWithConfig(t, cfg, opts...)
}

func TestNodeWithConfig(t *testing.T, cfg *Config, opts ...fx.Option) *Node {
	// avoids port conflicts
	cfg.Gateway.Address = "127.0.0.1"
	cfg.Gateway.Port = "0"
	cfg.Gateway.Enabled = true

	store := MockStore(t, cfg)
	nd, err := New(store, opts...)
	require.NoError(t, err)
	return nd
}
