package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	cmdnode "github.com/pareto-space/pareto-bridge/cmd"
	"github.com/pareto-space/pareto-bridge/nodebuilder/bridge"
	"github.com/pareto-space/pareto-bridge/nodebuilder/gateway"
	"github.com/pareto-space/pareto-bridge/nodebuilder/relay"
)

// flags returns fresh flag sets, commands must not share them.
func flags() []*flag.FlagSet {
	return []*flag.FlagSet{
		cmdnode.NodeFlags(),
		relay.Flags(),
		bridge.Flags(),
		gateway.Flags(),
		cmdnode.MiscFlags(),
	}
}

func init() {
	initCmd := cmdnode.Init(flags()...)
	initCmd.PersistentPreRunE = cmdnode.PersistentPreRunEnv
	startCmd := cmdnode.Start(flags()...)
	startCmd.PersistentPreRunE = cmdnode.PersistentPreRunEnv
	statusCmd := cmdnode.Status(flags()...)
	statusCmd.PersistentPreRunE = cmdnode.PersistentPreRunEnv

	rootCmd.AddCommand(
		initCmd,
		startCmd,
		statusCmd,
		cmdnode.UpdateConfigCmd(cmdnode.NodeFlags()),
		cmdnode.RemoveConfigCmd(cmdnode.NodeFlags()),
		versionCmd,
	)
	rootCmd.SetHelpCommand(&cobra.Command{})
}

func main() {
	err := run()
	if err != nil {
		os.Exit(1)
	}
}

func run() error {
	return rootCmd.ExecuteContext(context.Background())
}

var rootCmd = &cobra.Command{
	Use:   "pareto-bridge [subcommand]",
	Short: "Bridges application shells to nostr relays",
	Args:  cobra.NoArgs,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}
