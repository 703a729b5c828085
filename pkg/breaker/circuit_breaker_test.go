package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPeerDown = errors.New("connection refused")

func fail(context.Context) error    { return errPeerDown }
func succeed(context.Context) error { return nil }

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(999).String())
}

func TestNewCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker("catalog", Config{})

	assert.Equal(t, "catalog", cb.Name())
	assert.Equal(t, uint32(1), cb.maxRequests)
	assert.Equal(t, time.Minute, cb.timeout)
	assert.Equal(t, StateClosed, cb.State())
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("catalog", Config{
		ReadyToTrip: ConsecutiveFailures(3),
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, to)
		},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errPeerDown)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
	assert.True(t, IsBreakerError(err))
	assert.False(t, called)
	assert.Equal(t, []State{StateOpen}, transitions)
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("catalog", Config{ReadyToTrip: ConsecutiveFailures(2)})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, succeed))
	_ = cb.Execute(ctx, fail)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(1), cb.Counts().ConsecutiveFailures)
}

func TestIsSuccessfulIgnoresClientErrors(t *testing.T) {
	errNotFound := errors.New("product not found")
	cb := NewCircuitBreaker("catalog", Config{
		ReadyToTrip:  ConsecutiveFailures(1),
		IsSuccessful: func(err error) bool { return errors.Is(err, errNotFound) },
	})

	err := cb.Execute(context.Background(), func(context.Context) error { return errNotFound })
	assert.ErrorIs(t, err, errNotFound)
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("order", Config{
		ReadyToTrip: ConsecutiveFailures(1),
		Timeout:     20 * time.Millisecond,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("order", Config{
		ReadyToTrip: ConsecutiveFailures(1),
		Timeout:     20 * time.Millisecond,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCancelledContextIsNotCounted(t *testing.T) {
	cb := NewCircuitBreaker("notification", Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, succeed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint32(0), cb.Counts().Requests)
}

func TestPanicCountsAsFailure(t *testing.T) {
	cb := NewCircuitBreaker("user", Config{ReadyToTrip: ConsecutiveFailures(1)})

	assert.Panics(t, func() {
		_ = cb.Execute(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, StateOpen, cb.State())
}

func TestManager(t *testing.T) {
	m := NewManager(Config{ReadyToTrip: ConsecutiveFailures(1)})

	a := m.Get("catalog")
	assert.Same(t, a, m.Get("catalog"))

	_ = a.Execute(context.Background(), fail)
	m.Get("user")

	states := m.States()
	assert.Equal(t, StateOpen, states["catalog"])
	assert.Equal(t, StateClosed, states["user"])
}
