package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()

	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Listen)
	assert.Equal(t, []string{"*"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "https://api.cerebras.ai/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "llama-3.3-70b", cfg.Upstream.FallbackModel)
	assert.Equal(t, 15, cfg.Quota.DailyLimit)
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Generation.Temperature, 1e-9)
	assert.InDelta(t, 1.0, cfg.Generation.TopP, 1e-9)
	assert.True(t, cfg.Upstream.CircuitBreaker.IsEnabled())

	require.NoError(t, cfg.Validate())
}

func TestLoggingConfig_ParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			cfg := LoggingConfig{Level: tt.level}
			assert.Equal(t, tt.want, cfg.ParseLevel())
		})
	}
}

func TestOptionGetters(t *testing.T) {
	t.Parallel()

	var server ServerConfig
	assert.True(t, server.GetTimeoutOption().IsAbsent())
	assert.True(t, server.GetMaxConcurrentOption().IsAbsent())

	server.TimeoutMS = 1500
	server.MaxConcurrent = 8
	assert.Equal(t, 1500*time.Millisecond, server.GetTimeoutOption().MustGet())
	assert.Equal(t, 8, server.GetMaxConcurrentOption().MustGet())

	var upstream UpstreamConfig
	assert.True(t, upstream.GetRPMLimitOption().IsAbsent())
	assert.Equal(t, 10*time.Second, upstream.GetCatalogTimeout())
	assert.Equal(t, time.Minute, upstream.GetCompletionTimeout())

	upstream.RPMLimit = 30
	upstream.CatalogTimeoutMS = 250
	assert.Equal(t, 30, upstream.GetRPMLimitOption().MustGet())
	assert.Equal(t, 250*time.Millisecond, upstream.GetCatalogTimeout())

	var quota QuotaConfig
	assert.Equal(t, DefaultDailyLimit, quota.GetDailyLimit())
	assert.True(t, quota.GetSweepIntervalOption().IsAbsent())
	quota.SweepIntervalMS = 60000
	assert.Equal(t, time.Minute, quota.GetSweepIntervalOption().MustGet())

	var cors CORSConfig
	assert.Equal(t, []string{"*"}, cors.GetAllowedOrigins())
}
