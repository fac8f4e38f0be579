package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/prompt-relay/internal/catalog"
	"github.com/omarluq/prompt-relay/internal/config"
	"github.com/omarluq/prompt-relay/internal/health"
	"github.com/omarluq/prompt-relay/internal/ratelimit"
	"github.com/omarluq/prompt-relay/internal/upstream"
)

// breakerName labels the completion circuit breaker in logs.
const breakerName = "completion"

// CatalogService wraps the model selector.
type CatalogService struct {
	Selector *catalog.Selector
}

// NewCatalog builds the selector over an authenticated models fetcher.
func NewCatalog(i do.Injector) (*CatalogService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Get()
	logger := do.MustInvoke[*LoggerService](i).Logger

	if cfg.Upstream.APIKey == "" {
		logger.Warn().Str("env", config.EnvAPIKey).Msg("no provider API key configured, upstream calls will be rejected")
	}

	client := upstream.NewBearerClient(cfg.Upstream.APIKey, 0)
	fetcher := catalog.NewHTTPFetcher(cfg.Upstream.BaseURL, client)

	return &CatalogService{
		Selector: catalog.NewSelector(fetcher, cfg.Upstream.FallbackModel, cfg.Upstream.GetCatalogTimeout()),
	}, nil
}

// CompletionService wraps the guarded completion client.
type CompletionService struct {
	Completer upstream.Completer
	Limiter   *ratelimit.TokenBucketLimiter
	Breaker   *health.CircuitBreaker
}

// NewCompletion builds the completion client behind RPM pacing and the circuit breaker.
func NewCompletion(i do.Injector) (*CompletionService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logger := do.MustInvoke[*LoggerService](i).Logger
	cfg := cfgSvc.Get()

	client := upstream.NewClient(cfg.Upstream.BaseURL, upstream.NewBearerClient(cfg.Upstream.APIKey, 0))
	limiter := ratelimit.NewTokenBucketLimiter(cfg.Upstream.RPMLimit)

	var breaker *health.CircuitBreaker
	if cfg.Upstream.CircuitBreaker.IsEnabled() {
		breaker = health.NewCircuitBreaker(breakerName, cfg.Upstream.CircuitBreaker, logger)
	}

	cfgSvc.OnReload(func(newCfg *config.Config) error {
		if newRPM := newCfg.Upstream.RPMLimit; newRPM != limiter.Limit() {
			limiter.SetLimit(newRPM)
			logger.Info().Int("rpm_limit", newRPM).Msg("upstream pacing updated via hot-reload")
		}
		return nil
	})

	return &CompletionService{
		Completer: upstream.NewGuard(client, breaker, limiter),
		Limiter:   limiter,
		Breaker:   breaker,
	}, nil
}
