//go:build unit

package reserve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/circuitbreaker"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnection = errors.New("connection refused")

type plainSource struct {
	err   error
	calls int
}

func (s *plainSource) Pull(context.Context, gated.Identity, decimal.Decimal) error {
	s.calls++
	return s.err
}

func (s *plainSource) Push(context.Context, gated.Identity, decimal.Decimal) error {
	s.calls++
	return s.err
}

func (s *plainSource) Decimals() int32 { return 2 }

func testConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 3,
		FailureRatio:        1,
		MinRequests:         100,
	}
}

func TestWithCircuitBreaker_OpensOnFailures(t *testing.T) {
	ctx := context.Background()
	src := &plainSource{err: errConnection}
	manager := circuitbreaker.NewManager(log.NewNop())

	guarded := WithCircuitBreaker(src, manager, "reserve", testConfig())
	assert.Equal(t, int32(2), guarded.Decimals())

	for range 3 {
		require.ErrorIs(t, guarded.Pull(ctx, "U1", amt(1)), errConnection)
	}

	assert.Equal(t, circuitbreaker.StateOpen, manager.GetState("reserve"))

	err := guarded.Push(ctx, "U1", amt(1))
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 3, src.calls)
	assert.False(t, IsRejection(err))
}

func TestWithCircuitBreaker_RejectionsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	src := &plainSource{err: ErrInsufficientBalance}
	manager := circuitbreaker.NewManager(log.NewNop())

	guarded := WithCircuitBreaker(src, manager, "reserve", testConfig())

	for range 10 {
		require.ErrorIs(t, guarded.Pull(ctx, "U1", amt(1)), ErrInsufficientBalance)
	}

	assert.True(t, manager.IsHealthy("reserve"))
	assert.Equal(t, 10, src.calls)
}

func TestWithCircuitBreaker_Balancer(t *testing.T) {
	ctx := context.Background()
	manager := circuitbreaker.NewManager(log.NewNop())

	mem := NewMemory(0)
	require.NoError(t, mem.Credit("U1", amt(9)))

	guarded := WithCircuitBreaker(mem, manager, "memory", circuitbreaker.DefaultConfig())
	require.NoError(t, guarded.Pull(ctx, "U1", amt(9)))

	balance, err := BalanceOf(ctx, guarded)
	require.NoError(t, err)
	assert.True(t, balance.Equal(amt(9)))

	_, err = BalanceOf(ctx, WithCircuitBreaker(&plainSource{}, manager, "plain", circuitbreaker.DefaultConfig()))
	require.ErrorIs(t, err, ErrBalanceUnsupported)
}
