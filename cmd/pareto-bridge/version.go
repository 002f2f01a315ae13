package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pareto-space/pareto-bridge/nodebuilder/node"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show information about the current binary build",
	Args:  cobra.NoArgs,
	Run:   printBuildInfo,
}

func printBuildInfo(cmd *cobra.Command, _ []string) {
	info := node.GetBuildInfo()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Semantic version: %s\n", info.GetSemanticVersion())
	fmt.Fprintf(out, "Commit: %s\n", info.CommitShortSha())
	fmt.Fprintf(out, "Build Date: %s\n", info.BuildTime)
	fmt.Fprintf(out, "System version: %s\n", info.SystemVersion)
	fmt.Fprintf(out, "Golang version: %s\n", info.GolangVersion)
}
