package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarluq/prompt-relay/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version, git commit, and build date.`,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
