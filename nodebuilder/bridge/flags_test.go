package bridge

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(Flags())

	cfg := DefaultConfig()
	require.NoError(t, ParseFlags(cmd, &cfg))
	require.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, cmd.Flags().Set(defaultRelayFlag, "wss://relay.example/"))
	require.NoError(t, cmd.Flags().Set(connectTimeoutFlag, "500ms"))
	require.NoError(t, ParseFlags(cmd, &cfg))
	require.Equal(t, "wss://relay.example/", cfg.DefaultRelay)
	require.Equal(t, 500*time.Millisecond, cfg.ConnectTimeout)

	require.NoError(t, cmd.Flags().Set(connectTimeoutFlag, "0s"))
	require.Error(t, ParseFlags(cmd, &cfg))
}
