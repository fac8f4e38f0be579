// Package ratelimit paces outbound completion requests to the upstream provider.
//
// Pacing is independent of the per-client daily quota: the quota decides whether a
// client may generate at all, the limiter spreads admitted requests so the relay
// stays under the provider's requests-per-minute allowance.
//
//	limiter := ratelimit.NewTokenBucketLimiter(30) // 30 RPM
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit

import (
	"context"
	"errors"
)

// Common errors returned by rate limiters.
var (
	// ErrRateLimitExceeded is returned when a rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

	// ErrContextCancelled is returned when the context is canceled during a blocking operation.
	ErrContextCancelled = errors.New("ratelimit: context canceled")
)

// Usage is a snapshot of the limiter's request budget.
type Usage struct {
	RequestsUsed      int
	RequestsLimit     int
	RequestsRemaining int
	Unlimited         bool
}

// RateLimiter paces requests. Implementations must be safe for concurrent use.
type RateLimiter interface {
	// Wait blocks until a request may proceed or ctx is done.
	// Returns ErrContextCancelled if ctx ends first.
	Wait(ctx context.Context) error

	// SetLimit replaces the requests-per-minute limit. Zero or negative disables pacing.
	SetLimit(rpm int)

	// GetUsage returns the current budget snapshot.
	GetUsage() Usage
}
