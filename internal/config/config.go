// Package config provides configuration loading and parsing for prompt-relay.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/prompt-relay/internal/health"
)

// RuntimeConfig defines the interface for accessing runtime configuration that supports hot-reload.
// Components that read reloadable settings per request should hold this instead of a *Config.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Default values applied before a config file is decoded.
const (
	DefaultListen              = "0.0.0.0:5000"
	DefaultBaseURL             = "https://api.cerebras.ai/v1"
	DefaultFallbackModel       = "llama-3.3-70b"
	DefaultDailyLimit          = 15
	DefaultMaxTokens           = 1024
	DefaultTemperature         = 0.2
	DefaultTopP                = 1.0
	DefaultMaxBodyBytes        = 1 << 20
	DefaultTimeoutMS           = 120000
	DefaultCatalogTimeoutMS    = 10000
	DefaultCompletionTimeoutMS = 60000
	DefaultSweepIntervalMS     = 3600000
)

// Config represents the complete prompt-relay configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Upstream   UpstreamConfig   `yaml:"upstream" toml:"upstream"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Generation GenerationConfig `yaml:"generation" toml:"generation"`
	Quota      QuotaConfig      `yaml:"quota" toml:"quota"`
}

// ServerConfig defines server-level settings.
type ServerConfig struct {
	Listen            string     `yaml:"listen" toml:"listen"`
	CORS              CORSConfig `yaml:"cors" toml:"cors"`
	TimeoutMS         int        `yaml:"timeout_ms" toml:"timeout_ms"`
	MaxConcurrent     int        `yaml:"max_concurrent" toml:"max_concurrent"`
	MaxBodyBytes      int64      `yaml:"max_body_bytes" toml:"max_body_bytes"`
	EnableHTTP2       bool       `yaml:"enable_http2" toml:"enable_http2"` // Enable HTTP/2 cleartext (h2c) support
	TrustForwardedFor bool       `yaml:"trust_forwarded_for" toml:"trust_forwarded_for"`
}

// CORSConfig lists the origins allowed to call the relay from a browser.
type CORSConfig struct {
	// AllowedOrigins defaults to ["*"].
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// UpstreamConfig describes the hosted LLM provider.
type UpstreamConfig struct {
	BaseURL       string `yaml:"base_url" toml:"base_url"`
	APIKey        string `yaml:"api_key" toml:"api_key"` // overridden by CEREBRAS_API_KEY
	FallbackModel string `yaml:"fallback_model" toml:"fallback_model"`

	CircuitBreaker health.CircuitBreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`

	CatalogTimeoutMS    int `yaml:"catalog_timeout_ms" toml:"catalog_timeout_ms"`
	CompletionTimeoutMS int `yaml:"completion_timeout_ms" toml:"completion_timeout_ms"`

	// RPMLimit paces outbound completions. 0 disables pacing.
	RPMLimit int `yaml:"rpm_limit" toml:"rpm_limit"`
}

// GenerationConfig holds the sampling parameters sent with every prompt.
type GenerationConfig struct {
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	TopP        float64 `yaml:"top_p" toml:"top_p"`
}

// QuotaConfig controls the per-client daily allowance.
type QuotaConfig struct {
	DailyLimit int `yaml:"daily_limit" toml:"daily_limit"`

	// SweepIntervalMS is how often stale usage records are dropped. 0 disables the janitor.
	SweepIntervalMS int `yaml:"sweep_interval_ms" toml:"sweep_interval_ms"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level    string         `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format   string         `yaml:"format" toml:"format"` // json, console
	Output   string         `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Rotation RotationConfig `yaml:"rotation" toml:"rotation"`
	Pretty   bool           `yaml:"pretty" toml:"pretty"` // enable colored console output
}

// RotationConfig applies when logging.output is a file path.
type RotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool `yaml:"compress" toml:"compress"`
}

// Defaults returns a configuration with every default filled in.
// Files are decoded on top of it, so only the keys present in a file override a default.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       DefaultListen,
			TimeoutMS:    DefaultTimeoutMS,
			MaxBodyBytes: DefaultMaxBodyBytes,
			CORS:         CORSConfig{AllowedOrigins: []string{"*"}},
		},
		Upstream: UpstreamConfig{
			BaseURL:             DefaultBaseURL,
			FallbackModel:       DefaultFallbackModel,
			CatalogTimeoutMS:    DefaultCatalogTimeoutMS,
			CompletionTimeoutMS: DefaultCompletionTimeoutMS,
		},
		Generation: GenerationConfig{
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			TopP:        DefaultTopP,
		},
		Quota: QuotaConfig{
			DailyLimit:      DefaultDailyLimit,
			SweepIntervalMS: DefaultSweepIntervalMS,
		},
		Logging: LoggingConfig{
			Level:  LevelInfo,
			Format: "json",
			Output: "stdout",
		},
	}
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetTimeoutOption returns the server write timeout as an Option.
// Returns None if TimeoutMS is zero (use default).
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// GetMaxConcurrentOption returns the max concurrent setting as an Option.
// Returns None if MaxConcurrent is zero (unlimited).
func (s *ServerConfig) GetMaxConcurrentOption() mo.Option[int] {
	if s.MaxConcurrent <= 0 {
		return mo.None[int]()
	}
	return mo.Some(s.MaxConcurrent)
}

// GetAllowedOrigins returns the configured origins, ["*"] when none are set.
func (c *CORSConfig) GetAllowedOrigins() []string {
	if len(c.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return c.AllowedOrigins
}

// GetCatalogTimeout returns the catalog fetch timeout.
func (u *UpstreamConfig) GetCatalogTimeout() time.Duration {
	return msOrDefault(u.CatalogTimeoutMS, DefaultCatalogTimeoutMS)
}

// GetCompletionTimeout returns the completion call timeout.
func (u *UpstreamConfig) GetCompletionTimeout() time.Duration {
	return msOrDefault(u.CompletionTimeoutMS, DefaultCompletionTimeoutMS)
}

// GetRPMLimitOption returns the RPM limit as an Option.
// Returns None if RPMLimit is zero (no pacing).
func (u *UpstreamConfig) GetRPMLimitOption() mo.Option[int] {
	if u.RPMLimit <= 0 {
		return mo.None[int]()
	}
	return mo.Some(u.RPMLimit)
}

// GetDailyLimit returns the daily limit with the default for non-positive values.
func (q *QuotaConfig) GetDailyLimit() int {
	if q.DailyLimit <= 0 {
		return DefaultDailyLimit
	}
	return q.DailyLimit
}

// GetSweepIntervalOption returns the janitor interval, None when sweeping is disabled.
func (q *QuotaConfig) GetSweepIntervalOption() mo.Option[time.Duration] {
	if q.SweepIntervalMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(q.SweepIntervalMS) * time.Millisecond)
}

func msOrDefault(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
