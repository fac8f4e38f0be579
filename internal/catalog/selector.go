package catalog

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Selector chooses the model id for the next completion request.
// It holds no mutable state and is safe for concurrent use.
type Selector struct {
	fetcher  Fetcher
	fallback string
	timeout  time.Duration
}

// NewSelector creates a selector over fetcher.
// An empty fallback uses DefaultFallbackModel; a timeout of zero leaves the
// fetch bounded only by the caller's context.
func NewSelector(fetcher Fetcher, fallback string, timeout time.Duration) *Selector {
	if fallback == "" {
		fallback = DefaultFallbackModel
	}
	return &Selector{
		fetcher:  fetcher,
		fallback: fallback,
		timeout:  timeout,
	}
}

// Fallback returns the model id used when selection cannot complete.
func (s *Selector) Fallback() string {
	return s.fallback
}

// Select fetches the catalog and returns the id of the model with the largest
// context length. It never fails: fetch errors and empty catalogs return the fallback.
func (s *Selector) Select(ctx context.Context) string {
	logger := zerolog.Ctx(ctx)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	models, err := s.fetcher.Fetch(ctx).Get()
	if err != nil {
		logger.Warn().
			Err(err).
			Str("fallback", s.fallback).
			Msg("model catalog fetch failed, using fallback model")
		return s.fallback
	}

	best, ok := Best(models).Get()
	if !ok {
		logger.Warn().
			Str("fallback", s.fallback).
			Msg("model catalog is empty, using fallback model")
		return s.fallback
	}

	logger.Debug().
		Str("model", best.ID).
		Int64("max_context", best.MaxContext).
		Int("candidates", len(models)).
		Msg("selected model from catalog")

	return best.ID
}
