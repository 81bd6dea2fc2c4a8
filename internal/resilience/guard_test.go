package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_AppliesTimeout(t *testing.T) {
	g := NewGuard(BreakerConfig{}, NoRetry, 20*time.Millisecond)

	_, err := Call(context.Background(), g, "brave", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCall_OpenBreakerSkipsCall(t *testing.T) {
	g := NewGuard(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute}, NoRetry, 0)

	_, err := Call(context.Background(), g, "perplexity", func(context.Context) (int, error) {
		return 0, errors.New("perplexity: unexpected status 503: down")
	})
	require.Error(t, err)

	called := false
	_, err = Call(context.Background(), g, "perplexity", func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	require.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)

	// Other services are unaffected.
	v, err := Call(context.Background(), g, "brave", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCall_PermanentErrorsKeepBreakerClosed(t *testing.T) {
	g := NewGuard(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute}, NoRetry, 0)

	for range 3 {
		_, err := Call(context.Background(), g, "brave", func(context.Context) (int, error) {
			return 0, errors.New("brave: unexpected status 401: invalid token")
		})
		require.Error(t, err)
	}
	assert.Equal(t, StateClosed, g.Breakers.Get("brave").State())
}

func TestCall_NilGuard(t *testing.T) {
	v, err := Call(context.Background(), nil, "brave", func(context.Context) (string, error) { return "direct", nil })
	require.NoError(t, err)
	assert.Equal(t, "direct", v)
}
