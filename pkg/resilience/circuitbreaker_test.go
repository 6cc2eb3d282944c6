package resilience

import (
	"errors"
	"testing"
	"time"

	"shadowrun-gm-dashboard/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(retryTimeout time.Duration) *CircuitBreaker {
	log := logger.New(logger.Config{Level: "error", JSON: false})
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		RetryTimeout:     retryTimeout,
	}, log)
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return boom })
		require.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerRecovers(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return boom })
	}
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	// First probe moves the breaker to half-open
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return boom })
	}

	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	boom := errors.New("boom")

	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return boom })
	require.NoError(t, cb.Execute(func() error { return nil }))

	// Two more failures stay under the threshold after the reset
	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return boom })
	assert.Equal(t, StateClosed, cb.GetState())
}
