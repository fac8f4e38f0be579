package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":      true, // Empty defaults to info
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to json
	"json":    true,
	"console": true,
	"text":    true, // Alias for console
	"pretty":  true,
}

// Validate checks the configuration for errors.
// Returns a ValidationError containing all errors found, or nil if valid.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateServer(c, errs)
	validateUpstream(c, errs)
	validateGeneration(c, errs)
	validateQuota(c, errs)
	validateLogging(c, errs)

	return errs.ToError()
}

// validateServer validates the server configuration section.
func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen == "" {
		errs.Add("server.listen is required")
	} else {
		validateListenAddress(c.Server.Listen, errs)
	}

	if c.Server.TimeoutMS < 0 {
		errs.Add("server.timeout_ms must be >= 0")
	}
	if c.Server.MaxConcurrent < 0 {
		errs.Add("server.max_concurrent must be >= 0")
	}
	if c.Server.MaxBodyBytes < 0 {
		errs.Add("server.max_body_bytes must be >= 0")
	}

	for i, origin := range c.Server.CORS.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			errs.Addf("server.cors.allowed_origins[%d] is empty", i)
		}
	}
}

// validateListenAddress validates a listen address in host:port format.
func validateListenAddress(addr string, errs *ValidationError) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", addr)
		return
	}

	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " \t\n") {
		errs.Add("server.listen host contains invalid characters")
	}

	if port == "" {
		errs.Add("server.listen port is required")
		return
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		errs.Addf("server.listen port must be 0-65535 (got %q)", port)
	}
}

func validateUpstream(c *Config, errs *ValidationError) {
	u, err := url.Parse(c.Upstream.BaseURL)
	if c.Upstream.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		errs.Addf("upstream.base_url must be an absolute URL (got %q)", c.Upstream.BaseURL)
	}

	if strings.TrimSpace(c.Upstream.FallbackModel) == "" {
		errs.Add("upstream.fallback_model is required")
	}
	if c.Upstream.CatalogTimeoutMS < 0 {
		errs.Add("upstream.catalog_timeout_ms must be >= 0")
	}
	if c.Upstream.CompletionTimeoutMS < 0 {
		errs.Add("upstream.completion_timeout_ms must be >= 0")
	}
	if c.Upstream.RPMLimit < 0 {
		errs.Addf("upstream.rpm_limit must be >= 0 (got %d)", c.Upstream.RPMLimit)
	}

	cb := c.Upstream.CircuitBreaker
	if cb.FailureThreshold < 0 {
		errs.Add("upstream.circuit_breaker.failure_threshold must be >= 0")
	}
	if cb.OpenDurationMS < 0 {
		errs.Add("upstream.circuit_breaker.open_duration_ms must be >= 0")
	}
	if cb.HalfOpenProbes < 0 {
		errs.Add("upstream.circuit_breaker.half_open_probes must be >= 0")
	}
}

func validateGeneration(c *Config, errs *ValidationError) {
	g := c.Generation
	if g.MaxTokens <= 0 {
		errs.Addf("generation.max_tokens must be > 0 (got %d)", g.MaxTokens)
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		errs.Addf("generation.temperature must be 0-2 (got %g)", g.Temperature)
	}
	if g.TopP <= 0 || g.TopP > 1 {
		errs.Addf("generation.top_p must be in (0, 1] (got %g)", g.TopP)
	}
}

func validateQuota(c *Config, errs *ValidationError) {
	if c.Quota.DailyLimit <= 0 {
		errs.Addf("quota.daily_limit must be > 0 (got %d)", c.Quota.DailyLimit)
	}
	if c.Quota.SweepIntervalMS < 0 {
		errs.Add("quota.sweep_interval_ms must be >= 0")
	}
}

// validateLogging validates the logging configuration section.
func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[c.Logging.Level] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)",
			c.Logging.Level)
	}

	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)",
			c.Logging.Format)
	}

	r := c.Logging.Rotation
	if r.MaxSizeMB < 0 || r.MaxBackups < 0 || r.MaxAgeDays < 0 {
		errs.Add("logging.rotation values must be >= 0")
	}
}
