package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/pareto-space/pareto-bridge/nodebuilder/bridge"
	"github.com/pareto-space/pareto-bridge/nodebuilder/gateway"
	"github.com/pareto-space/pareto-bridge/nodebuilder/relay"
)

// PrintOutput writes data wrapped into a result object as indented JSON.
func PrintOutput(w io.Writer, data interface{}, err error) error {
	if err != nil {
		data = err.Error()
	}

	resp := struct {
		Result interface{} `json:"result"`
	}{
		Result: data,
	}

	bytes, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bytes))
	return err
}

// PersistentPreRunEnv loads the stored config into the command context and overrides it with
// the values of the parsed flags.
func PersistentPreRunEnv(cmd *cobra.Command, _ []string) error {
	var (
		ctx = cmd.Context()
		err error
	)

	// loads existing config into the environment
	ctx, err = ParseNodeFlags(ctx, cmd)
	if err != nil {
		return err
	}

	cfg := NodeConfig(ctx)

	err = relay.ParseFlags(cmd, &cfg.Relay)
	if err != nil {
		return err
	}

	err = bridge.ParseFlags(cmd, &cfg.Bridge)
	if err != nil {
		return err
	}

	gateway.ParseFlags(cmd, &cfg.Gateway)

	ctx, err = ParseMiscFlags(ctx, cmd)
	if err != nil {
		return err
	}

	// set config
	ctx = WithNodeConfig(ctx, &cfg)
	cmd.SetContext(ctx)
	return nil
}

// WithFlagSet adds the given flagset to the command.
func WithFlagSet(fset []*flag.FlagSet) func(*cobra.Command) {
	return func(c *cobra.Command) {
		for _, set := range fset {
			c.Flags().AddFlagSet(set)
		}
	}
}
