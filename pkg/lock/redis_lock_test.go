package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestMutex_LockUnlock(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	first := New(client, "lock:register:ada", time.Second)
	second := New(client, "lock:register:ada", time.Second)

	require.NoError(t, first.Lock(ctx))
	assert.ErrorIs(t, second.Lock(ctx), ErrLockFailed)

	// a foreign token cannot release the key
	assert.ErrorIs(t, second.Unlock(ctx), ErrLockNotHeld)

	require.NoError(t, first.Unlock(ctx))
	assert.NoError(t, second.Lock(ctx))
}

func TestMutex_Expires(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	m := New(client, "lock:register:bob", 100*time.Millisecond)
	require.NoError(t, m.Lock(ctx))

	mr.FastForward(200 * time.Millisecond)

	assert.NoError(t, New(client, m.Key(), time.Second).Lock(ctx))
	assert.ErrorIs(t, m.Unlock(ctx), ErrLockNotHeld)
}

func TestMutex_TryLock(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	holder := New(client, "lock:register:cy", time.Second)
	require.NoError(t, holder.Lock(ctx))

	waiter := New(client, "lock:register:cy", time.Second)
	start := time.Now()
	assert.ErrorIs(t, waiter.TryLock(ctx, 3, 10*time.Millisecond), ErrLockFailed)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = holder.Unlock(context.Background())
	}()
	assert.NoError(t, waiter.TryLock(ctx, 20, 10*time.Millisecond))
}

func TestMutex_TryLockCancelled(t *testing.T) {
	_, client := setupRedis(t)
	require.NoError(t, New(client, "k", time.Second).Lock(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(client, "k", time.Second).TryLock(ctx, 5, time.Second), context.Canceled)
}
