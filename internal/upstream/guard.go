package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/omarluq/prompt-relay/internal/health"
	"github.com/omarluq/prompt-relay/internal/ratelimit"
)

// Guard wraps a Completer with outbound pacing and a circuit breaker.
// Either may be nil.
type Guard struct {
	next    Completer
	breaker *health.CircuitBreaker
	limiter ratelimit.RateLimiter
}

var _ Completer = (*Guard)(nil)

// NewGuard returns a Completer that paces through limiter and trips breaker on upstream failures.
func NewGuard(next Completer, breaker *health.CircuitBreaker, limiter ratelimit.RateLimiter) *Guard {
	return &Guard{next: next, breaker: breaker, limiter: limiter}
}

// Breaker returns the wrapped circuit breaker, nil when disabled.
func (g *Guard) Breaker() *health.CircuitBreaker {
	return g.breaker
}

// Complete paces, consults the breaker, and forwards to the wrapped Completer.
func (g *Guard) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Completion{}, fmt.Errorf("upstream: pacing: %w", err)
		}
		if usage := g.limiter.GetUsage(); !usage.Unlimited {
			zerolog.Ctx(ctx).Debug().
				Int("rpm_used", usage.RequestsUsed).
				Int("rpm_remaining", usage.RequestsRemaining).
				Int("rpm_limit", usage.RequestsLimit).
				Msg("upstream pacing")
		}
	}

	if g.breaker == nil {
		return g.next.Complete(ctx, req)
	}

	done, err := g.breaker.Allow()
	if err != nil {
		return Completion{}, err
	}

	completion, err := g.next.Complete(ctx, req)
	done(breakerOutcome(err))
	return completion, err
}

// breakerOutcome maps a completion error to what the breaker should record.
// Provider rejections that say nothing about its health are reported as success.
func breakerOutcome(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if health.ShouldCountAsFailure(apiErr.StatusCode, nil) {
			return err
		}
		return nil
	}

	if errors.Is(err, ErrEmptyChoices) || errors.Is(err, ErrMalformedResponse) {
		return err
	}

	if health.ShouldCountAsFailure(0, err) {
		return err
	}
	return nil
}
