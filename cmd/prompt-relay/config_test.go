package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/prompt-relay/internal/config"
)

// withConfigFlag points the global --config value at path for one test.
func withConfigFlag(t *testing.T, path string) {
	t.Helper()
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
}

func newOutputCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	return cmd, out
}

func TestRunConfigValidate(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), defaultConfigFile)
		writeFile(t, path, "quota:\n  daily_limit: 3\n")
		withConfigFlag(t, path)

		cmd, out := newOutputCmd()
		require.NoError(t, runConfigValidate(cmd, nil))
		assert.Contains(t, out.String(), "✓ "+path+" is valid")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), defaultConfigFile)
		writeFile(t, path, "quota:\n  daily_limit: -1\ngeneration:\n  top_p: 3\n")
		withConfigFlag(t, path)

		cmd, out := newOutputCmd()
		err := runConfigValidate(cmd, nil)
		require.Error(t, err)
		assert.Contains(t, out.String(), "✗ Config validation failed")
		assert.Contains(t, err.Error(), "quota.daily_limit")
		assert.Contains(t, err.Error(), "generation.top_p")
	})

	t.Run("missing api key warns", func(t *testing.T) {
		t.Setenv(config.EnvAPIKey, "")
		path := filepath.Join(t.TempDir(), defaultConfigFile)
		writeFile(t, path, "upstream:\n  api_key: \"\"\n")
		withConfigFlag(t, path)

		cmd, out := newOutputCmd()
		require.NoError(t, runConfigValidate(cmd, nil))
		assert.Contains(t, out.String(), config.EnvAPIKey+" is not set")
	})
}

func TestRunConfigInit(t *testing.T) {
	t.Parallel()

	newInitCmd := func(output string, force bool) (*cobra.Command, *bytes.Buffer) {
		cmd, out := newOutputCmd()
		cmd.Flags().StringP("output", "o", "", "")
		cmd.Flags().Bool("force", false, "")
		require.NoError(t, cmd.Flags().Set("output", output))
		if force {
			require.NoError(t, cmd.Flags().Set("force", "true"))
		}
		return cmd, out
	}

	t.Run("writes a valid config", func(t *testing.T) {
		t.Parallel()
		output := filepath.Join(t.TempDir(), "nested", defaultConfigFile)

		cmd, out := newInitCmd(output, false)
		require.NoError(t, runConfigInit(cmd, nil))
		assert.Contains(t, out.String(), "Config file created at "+output)

		cfg, err := config.Load(output)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, config.DefaultDailyLimit, cfg.Quota.DailyLimit)
		assert.Equal(t, config.DefaultListen, cfg.Server.Listen)
		assert.Equal(t, config.DefaultFallbackModel, cfg.Upstream.FallbackModel)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()
		output := filepath.Join(t.TempDir(), defaultConfigFile)
		writeFile(t, output, "existing: content")

		cmd, _ := newInitCmd(output, false)
		err := runConfigInit(cmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--force")
	})

	t.Run("force overwrites", func(t *testing.T) {
		t.Parallel()
		output := filepath.Join(t.TempDir(), defaultConfigFile)
		writeFile(t, output, "existing: content")

		cmd, _ := newInitCmd(output, true)
		require.NoError(t, runConfigInit(cmd, nil))

		cfg, err := config.Load(output)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(cfg.Upstream.BaseURL, "https://"))
	})
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	cmd, out := newOutputCmd()
	versionCmd.Run(cmd, nil)

	assert.True(t, strings.HasPrefix(out.String(), appName+" dev"))
}
