package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "b2b:"), mr
}

func TestRedis_AcquireRelease(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	lease, err := r.Acquire(ctx, "run:1:10", time.Minute)
	require.NoError(t, err)

	got, err := mr.Get("b2b:run:1:10")
	require.NoError(t, err)
	assert.Equal(t, lease.Token, got)
	assert.Equal(t, time.Minute, mr.TTL("b2b:run:1:10"))

	_, err = r.Acquire(ctx, "run:1:10", time.Minute)
	assert.ErrorIs(t, err, ErrHeld)

	_, err = r.Acquire(ctx, "run:1:11", time.Minute)
	assert.NoError(t, err)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("b2b:run:1:10"))
	require.NoError(t, lease.Release(ctx))

	_, err = r.Acquire(ctx, "run:1:10", time.Minute)
	assert.NoError(t, err)
}

func TestRedis_ExpiredLeaseDoesNotReleaseNewHolder(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	stale, err := r.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := r.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	got, err := mr.Get("b2b:k")
	require.NoError(t, err)
	assert.Equal(t, fresh.Token, got)
}

func TestRedis_ServerDown(t *testing.T) {
	r, mr := newTestRedis(t)
	mr.Close()

	_, err := r.Acquire(context.Background(), "k", time.Second)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrHeld))
	assert.Contains(t, err.Error(), "lock: acquire b2b:k")
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := Dial(context.Background(), RedisConfig{Addr: mr.Addr(), Prefix: "x:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	_, err = r.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("x:k"))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	now := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, lease.Token)

	_, err = m.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrHeld)

	// An expired lease is taken over, and its release leaves the new holder alone.
	now = now.Add(2 * time.Minute)
	fresh, err := m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
	_, err = m.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrHeld)

	require.NoError(t, fresh.Release(ctx))
	_, err = m.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)
}

func TestLease_NilRelease(t *testing.T) {
	var l *Lease
	assert.NoError(t, l.Release(context.Background()))
}
