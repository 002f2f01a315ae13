package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pareto-space/pareto-bridge/nodebuilder"
)

// RemoveConfigCmd constructs a CLI command removing the config of the Store.
func RemoveConfigCmd(fsets ...*pflag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "config-remove",
		Args:              cobra.NoArgs,
		Short:             "Remove current config",
		PersistentPreRunE: parseStorePath,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nodebuilder.Remove(StorePath(cmd.Context()))
		},
	}
	for _, set := range fsets {
		cmd.Flags().AddFlagSet(set)
	}
	return cmd
}

// UpdateConfigCmd constructs a CLI command filling the stored config with the defaults of
// fields it lacks.
func UpdateConfigCmd(fsets ...*pflag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "config-update",
		Args:              cobra.NoArgs,
		Short:             "Update current config with the defaults of newly added fields",
		PersistentPreRunE: parseStorePath,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nodebuilder.UpdateConfig(StorePath(cmd.Context()))
		},
	}
	for _, set := range fsets {
		cmd.Flags().AddFlagSet(set)
	}
	return cmd
}

func parseStorePath(cmd *cobra.Command, _ []string) error {
	ctx, err := ParseNodeFlags(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	cmd.SetContext(ctx)
	return nil
}
