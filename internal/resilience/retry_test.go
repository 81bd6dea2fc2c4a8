package resilience

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	val, err := Retry(context.Background(), fastPolicy, "test", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", eris.Errorf("brave: unexpected status 503: busy")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy, "test", func(context.Context) (int, error) {
		calls++
		return 0, eris.Errorf("brave: unexpected status 401: bad key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_NoRetryPolicy(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), NoRetry, "test", func(context.Context) (int, error) {
		calls++
		return 0, eris.Errorf("perplexity: unexpected status 500: oops")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, RetryPolicy{MaxAttempts: 5, Backoff: time.Hour}, "test", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, eris.Errorf("unexpected status 429: slow down")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_DelayCapped(t *testing.T) {
	p := RetryPolicy{Backoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, p.delay(0))
	assert.Equal(t, 200*time.Millisecond, p.delay(1))
	assert.Equal(t, 300*time.Millisecond, p.delay(5))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", eris.New("perplexity: unexpected status 429: limit"), true},
		{"503", eris.New("brave: unexpected status 503: down"), true},
		{"400", eris.New("brave: unexpected status 400: bad"), false},
		{"net timeout", eris.Wrap(timeoutErr{}, "brave: send request"), true},
		{"conn reset", eris.Wrap(syscall.ECONNRESET, "write"), true},
		{"breaker open", eris.Wrap(ErrBreakerOpen, "brave"), false},
		{"canceled", eris.Wrap(context.Canceled, "brave: send request"), false},
		{"plain", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 502, StatusCode(eris.New("x: unexpected status 502: gateway")))
	assert.Equal(t, 0, StatusCode(errors.New("no status")))
	assert.Equal(t, 0, StatusCode(nil))
}
