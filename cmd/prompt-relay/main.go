// Package main is the entry point for prompt-relay.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang/v2"
	"github.com/spf13/cobra"
)

const (
	appName           = "prompt-relay"
	defaultConfigFile = "config.yaml"
)

// configCandidates are tried in order in each search directory.
var configCandidates = []string{defaultConfigFile, "config.yml", "config.toml"}

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Quota-limited relay for a hosted LLM",
	Long: `prompt-relay accepts plain-text prompts over HTTP, enforces a per-client daily
prompt allowance, picks the provider model with the largest context window and
returns the generated text.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/"+appName+"/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

// configPath returns --config when set, otherwise the first config file found in the
// working directory or the user config directory. Empty means defaults plus environment.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return findConfigInWithHome(".", home)
}

// findConfigIn looks for a config file in dir only.
func findConfigIn(dir string) string {
	for _, name := range configCandidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// findConfigInWithHome looks in workDir, then in home/.config/prompt-relay.
func findConfigInWithHome(workDir, home string) string {
	if p := findConfigIn(workDir); p != "" {
		return p
	}
	if home == "" {
		return ""
	}
	return findConfigIn(filepath.Join(home, ".config", appName))
}
