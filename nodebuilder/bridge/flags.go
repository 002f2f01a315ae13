package bridge

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var (
	defaultRelayFlag   = "bridge.default-relay"
	connectTimeoutFlag = "bridge.connect-timeout"
)

// Flags gives a set of hardcoded bridge package flags.
func Flags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.String(
		defaultRelayFlag,
		"",
		"Relay receiving events sent without relays (default: wss://pareto.nostr1.com/)",
	)
	flags.Duration(
		connectTimeoutFlag,
		0,
		"How long a connecting shell waits for relays before it is connected (default: 2s)",
	)

	return flags
}

// ParseFlags parses bridge flags from the given cmd and saves them to the passed config.
func ParseFlags(cmd *cobra.Command, cfg *Config) error {
	if relay := cmd.Flag(defaultRelayFlag).Value.String(); relay != "" {
		cfg.DefaultRelay = relay
	}
	if cmd.Flags().Changed(connectTimeoutFlag) {
		timeout, err := cmd.Flags().GetDuration(connectTimeoutFlag)
		if err != nil {
			return err
		}
		cfg.ConnectTimeout = timeout
	}
	return cfg.Validate()
}
