package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errProviderDown = errors.New("provider unavailable")

func tripAfterOneFailure(counts Counts) bool {
	return counts.TotalFailures >= 1
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(999).String())
}

func TestNewCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker("payment", Config{})

	assert.Equal(t, "payment", cb.name)
	assert.Equal(t, uint32(1), cb.maxRequests)
	assert.Equal(t, time.Minute, cb.interval)
	assert.Equal(t, time.Minute, cb.timeout)
	assert.Equal(t, StateClosed, cb.State())
	assert.NotNil(t, cb.readyToTrip)
}

func TestNewCircuitBreakerCustomConfig(t *testing.T) {
	cb := NewCircuitBreaker("shipping", Config{
		MaxRequests: 10,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts Counts) bool {
			return counts.TotalFailures >= 5
		},
	})

	assert.Equal(t, "shipping", cb.name)
	assert.Equal(t, uint32(10), cb.maxRequests)
	assert.Equal(t, 30*time.Second, cb.interval)
	assert.Equal(t, 60*time.Second, cb.timeout)
}

func TestExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("payment", Config{})

	err := cb.Execute(context.Background(), func() error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())

	counts := cb.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)
}

func TestExecuteOpensAfterFailureRate(t *testing.T) {
	cb := NewCircuitBreaker("payment", Config{
		Interval: 0,
		ReadyToTrip: func(counts Counts) bool {
			return counts.Requests >= 3 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, func() error {
			return errProviderDown
		})
		assert.Equal(t, errProviderDown, err)
	}

	assert.Equal(t, StateOpen, cb.State())
}

func TestOpenStateRejectsCalls(t *testing.T) {
	cb := NewCircuitBreaker("payment", Config{ReadyToTrip: tripAfterOneFailure})
	ctx := context.Background()

	err := cb.Execute(ctx, func() error { return errProviderDown })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	err = cb.Execute(ctx, func() error { return nil })
	assert.Equal(t, ErrOpenState, err)
	assert.True(t, IsCircuitBreakerError(err))
}

func TestRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("shipping", Config{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: tripAfterOneFailure,
	})
	ctx := context.Background()

	err := cb.Execute(ctx, func() error { return errProviderDown })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)

	// probe succeeds, circuit closes again
	err = cb.Execute(ctx, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenRequiresMaxRequestsSuccesses(t *testing.T) {
	cb := NewCircuitBreaker("shipping", Config{
		MaxRequests: 2,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: tripAfterOneFailure,
	})
	ctx := context.Background()

	err := cb.Execute(ctx, func() error { return errProviderDown })
	assert.Error(t, err)

	time.Sleep(15 * time.Millisecond)

	err = cb.Execute(ctx, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State())

	err = cb.Execute(ctx, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenLimitsConcurrentProbes(t *testing.T) {
	cb := NewCircuitBreaker("payment", Config{
		MaxRequests: 1,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: tripAfterOneFailure,
	})
	ctx := context.Background()

	err := cb.Execute(ctx, func() error { return errProviderDown })
	assert.Error(t, err)

	time.Sleep(15 * time.Millisecond)

	err = cb.Execute(ctx, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())

	cb.mu.Lock()
	cb.state = StateHalfOpen
	cb.counts.Requests = 1
	cb.mu.Unlock()

	err = cb.Execute(ctx, func() error { return nil })
	assert.Equal(t, ErrTooManyRequests, err)
	assert.True(t, IsCircuitBreakerError(err))
}

func TestPanicCountsAsFailure(t *testing.T) {
	cb := NewCircuitBreaker("payment", Config{})

	assert.Panics(t, func() {
		cb.Execute(context.Background(), func() error {
			panic("provider client bug")
		})
	})

	counts := cb.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
}

func TestReset(t *testing.T) {
	cb := NewCircuitBreaker("payment", Config{ReadyToTrip: tripAfterOneFailure})

	err := cb.Execute(context.Background(), func() error { return errProviderDown })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(0), cb.Counts().Requests)
}

func TestCircuitBreakerError(t *testing.T) {
	err := &CircuitBreakerError{message: "circuit open"}
	assert.Equal(t, "circuit open", err.Error())
	assert.True(t, IsCircuitBreakerError(err))
	assert.False(t, IsCircuitBreakerError(errProviderDown))
}

func TestManager(t *testing.T) {
	t.Run("GetBreakerReusesInstances", func(t *testing.T) {
		manager := NewManager(Config{
			MaxRequests: 5,
			Interval:    30 * time.Second,
		})

		payment := manager.GetBreaker("payment")
		paymentAgain := manager.GetBreaker("payment")
		shipping := manager.GetBreaker("shipping")

		assert.Same(t, payment, paymentAgain)
		assert.NotSame(t, payment, shipping)
		assert.Equal(t, uint32(5), payment.maxRequests)
	})

	t.Run("ExecuteTracksPerName", func(t *testing.T) {
		manager := NewManager(Config{ReadyToTrip: tripAfterOneFailure})
		ctx := context.Background()

		assert.NoError(t, manager.Execute(ctx, "shipping", func() error { return nil }))
		assert.Equal(t, StateClosed, manager.State("shipping"))

		err := manager.Execute(ctx, "payment", func() error { return errProviderDown })
		assert.Error(t, err)
		assert.Equal(t, StateOpen, manager.State("payment"))
		assert.Equal(t, StateClosed, manager.State("shipping"))
	})
}

func TestDefaultManager(t *testing.T) {
	err := Execute(context.Background(), "newsletter", func() error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, DefaultManager.State("newsletter"))
}
