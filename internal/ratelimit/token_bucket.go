package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter implements RateLimiter using golang.org/x/time/rate.
//
// Burst equals the per-minute limit so a quiet relay can spend a full minute's
// allowance at once and then refills gradually.
type TokenBucketLimiter struct {
	limiter  *rate.Limiter
	rpmLimit int
	mu       sync.RWMutex
}

var _ RateLimiter = (*TokenBucketLimiter)(nil)

// NewTokenBucketLimiter creates a limiter allowing rpm requests per minute.
// Zero or negative rpm means unlimited.
func NewTokenBucketLimiter(rpm int) *TokenBucketLimiter {
	l := &TokenBucketLimiter{}
	l.SetLimit(rpm)
	return l
}

func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
}

// Wait blocks until a request is allowed or the context is canceled.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}
		// Wait fails fast when the deadline is closer than the next token.
		return ErrRateLimitExceeded
	}
	return nil
}

// SetLimit swaps in a fresh bucket for the new limit. Outstanding waiters keep the old one.
func (l *TokenBucketLimiter) SetLimit(rpm int) {
	if rpm < 0 {
		rpm = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.limiter = newLimiter(rpm)
	l.rpmLimit = rpm
}

// Limit returns the configured requests per minute, 0 when unlimited.
func (l *TokenBucketLimiter) Limit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rpmLimit
}

// GetUsage approximates used requests from the bucket's remaining tokens.
func (l *TokenBucketLimiter) GetUsage() Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.rpmLimit == 0 {
		return Usage{Unlimited: true}
	}

	remaining := clampUsage(int(l.limiter.Tokens()), l.rpmLimit)
	return Usage{
		RequestsUsed:      l.rpmLimit - remaining,
		RequestsLimit:     l.rpmLimit,
		RequestsRemaining: remaining,
	}
}

func clampUsage(remaining, limit int) int {
	if remaining < 0 {
		return 0
	}
	if remaining > limit {
		return limit
	}
	return remaining
}
