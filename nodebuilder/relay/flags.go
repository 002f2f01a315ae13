package relay

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	librelay "github.com/pareto-space/pareto-bridge/relay"
)

var (
	urlsFlag         = "relay.urls"
	queueTimeoutFlag = "relay.queue-timeout"
	fetchTimeoutFlag = "relay.fetch-timeout"
)

// Flags gives a set of hardcoded relay package flags.
func Flags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.StringSlice(
		urlsFlag,
		nil,
		"Comma-separated relays to connect to, replacing the configured ones. The wss:// scheme may be omitted",
	)
	flags.Duration(
		queueTimeoutFlag,
		0,
		"How long a fetch waits for its relays to become ready",
	)
	flags.Duration(
		fetchTimeoutFlag,
		0,
		"Upper bound of a single fetch from relays",
	)

	return flags
}

// ParseFlags parses relay flags from the given cmd and saves them to the passed config.
func ParseFlags(cmd *cobra.Command, cfg *Config) error {
	if cmd.Flags().Changed(urlsFlag) {
		urls, err := cmd.Flags().GetStringSlice(urlsFlag)
		if err != nil {
			return err
		}
		cfg.Relays = librelay.NormalizeURLs(urls)
	}

	if cmd.Flags().Changed(queueTimeoutFlag) {
		timeout, err := cmd.Flags().GetDuration(queueTimeoutFlag)
		if err != nil {
			return err
		}
		cfg.Dispatch.QueueTimeout = timeout
	}

	if cmd.Flags().Changed(fetchTimeoutFlag) {
		timeout, err := cmd.Flags().GetDuration(fetchTimeoutFlag)
		if err != nil {
			return err
		}
		cfg.Pool.FetchTimeout = timeout
	}
	return cfg.Validate()
}
