package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarluq/prompt-relay/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the effective configuration without starting the server.
Checks file syntax, value ranges and required fields after the environment
overrides are applied.`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	path := configPath()

	cfg, err := config.Resolve(path)
	if err != nil {
		fmt.Fprintf(out, "✗ Config validation failed: %s\n", err)
		return err
	}

	source := path
	if source == "" {
		source = "default configuration"
	}
	fmt.Fprintf(out, "✓ %s is valid\n", source)

	if cfg.Upstream.APIKey == "" {
		fmt.Fprintf(out, "! %s is not set; upstream calls will fail\n", config.EnvAPIKey)
	}
	return nil
}
