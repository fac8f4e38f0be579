package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/prompt-relay/internal/config"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	t.Parallel()

	logger, closer, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Msg("test message")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	logger, _, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_FileOutputRotates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "relay.log")
	logger, closer, err := NewLogger(config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   path,
		Rotation: config.RotationConfig{MaxSizeMB: 1, MaxBackups: 2},
	})
	require.NoError(t, err)

	logger.Debug().Str("client", "203.0.113.7").Msg("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), "203.0.113.7")
}

func TestShouldUsePretty(t *testing.T) {
	t.Parallel()

	assert.True(t, shouldUsePretty(config.LoggingConfig{Pretty: true}, nil))
	assert.True(t, shouldUsePretty(config.LoggingConfig{Format: "pretty"}, nil))
	assert.False(t, shouldUsePretty(config.LoggingConfig{Format: "json"}, os.Stdout))
	assert.False(t, shouldUsePretty(config.LoggingConfig{Format: "console"}, nil))
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	assert.Contains(t, formatLevel("info"), "INF")
	assert.Equal(t, "custom", formatLevel("custom"))
	assert.Empty(t, formatLevel(42))
	assert.Equal(t, "-> hello", formatMessage("hello"))
	assert.Empty(t, formatMessage(nil))
	assert.True(t, strings.Contains(formatFieldName("status"), "status="))
}

func TestAddRequestID(t *testing.T) {
	t.Parallel()

	ctx := AddRequestID(context.Background(), "")
	assert.Len(t, GetRequestID(ctx), 36)

	ctx = AddRequestID(context.Background(), "fixed")
	assert.Equal(t, "fixed", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}
