package health_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/prompt-relay/internal/health"
)

const testUpstreamName = "completion"

func newTestBreaker(threshold, openMS, probes int) *health.CircuitBreaker {
	return health.NewCircuitBreaker(testUpstreamName, health.CircuitBreakerConfig{
		FailureThreshold: threshold,
		OpenDurationMS:   openMS,
		HalfOpenProbes:   probes,
	}, nil)
}

func tripBreaker(t *testing.T, breaker *health.CircuitBreaker, failures int) {
	t.Helper()
	for i := 0; i < failures; i++ {
		done, err := breaker.Allow()
		require.NoError(t, err, "iteration %d", i)
		done(errors.New("upstream down"))
	}
}

func TestNewCircuitBreaker_StartsClosed(t *testing.T) {
	t.Parallel()

	breaker := newTestBreaker(0, 0, 0)

	assert.Equal(t, testUpstreamName, breaker.Name())
	assert.Equal(t, health.StateClosed, breaker.State())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	breaker := newTestBreaker(3, 60000, 1)
	tripBreaker(t, breaker, 3)

	assert.Equal(t, health.StateOpen, breaker.State())

	_, err := breaker.Allow()
	require.ErrorIs(t, err, health.ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	t.Parallel()

	breaker := newTestBreaker(3, 60000, 1)
	tripBreaker(t, breaker, 2)

	done, err := breaker.Allow()
	require.NoError(t, err)
	done(nil)

	tripBreaker(t, breaker, 2)
	assert.Equal(t, health.StateClosed, breaker.State())
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	t.Parallel()

	breaker := newTestBreaker(1, 20, 1)
	tripBreaker(t, breaker, 1)
	require.Equal(t, health.StateOpen, breaker.State())

	assert.Eventually(t, func() bool {
		return breaker.State() == health.StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	done, err := breaker.Allow()
	require.NoError(t, err)
	done(nil)

	assert.Equal(t, health.StateClosed, breaker.State())
}

func TestCircuitBreaker_ContextCanceledIsNotFailure(t *testing.T) {
	t.Parallel()

	breaker := newTestBreaker(1, 60000, 1)

	done, err := breaker.Allow()
	require.NoError(t, err)
	done(fmt.Errorf("request aborted: %w", context.Canceled))

	assert.Equal(t, health.StateClosed, breaker.State())
}

func TestShouldCountAsFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		name   string
		status int
		want   bool
	}{
		{name: "ok", status: 200, want: false},
		{name: "bad request", status: 400, want: false},
		{name: "unauthorized", status: 401, want: false},
		{name: "rate limited", status: 429, want: true},
		{name: "server error", status: 500, want: true},
		{name: "bad gateway", status: 502, want: true},
		{name: "transport error", err: errors.New("connection reset"), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "wrapped canceled", err: fmt.Errorf("wrap: %w", context.Canceled), want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, health.ShouldCountAsFailure(tt.status, tt.err))
		})
	}
}
