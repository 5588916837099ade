package daylock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisLocker(t *testing.T, wait time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, "vetcare", time.Second, wait, zap.NewNop()), mr
}

func TestRedis_LockUnlock(t *testing.T) {
	l, mr := newRedisLocker(t, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "appointments:2024-06-10")
	require.NoError(t, err)
	assert.True(t, mr.Exists("vetcare:appointments:2024-06-10"))

	_, err = l.Lock(ctx, "appointments:2024-06-10")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, mr.Exists("vetcare:appointments:2024-06-10"))

	unlock2, err := l.Lock(ctx, "appointments:2024-06-10")
	require.NoError(t, err)
	unlock2()
}

func TestRedis_UnlockKeepsForeignLock(t *testing.T) {
	l, mr := newRedisLocker(t, 0)

	unlock, err := l.Lock(context.Background(), "day")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	require.NoError(t, mr.Set("vetcare:day", "someone-else"))
	unlock()

	v, err := mr.Get("vetcare:day")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedis_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	for _, prefix := range []string{"vetcare:lock", "vetcare:lock:"} {
		l := NewRedis(rdb, prefix, time.Second, 0, zap.NewNop())
		unlock, err := l.Lock(context.Background(), "appointments:2024-06-10")
		require.NoError(t, err)
		assert.Equal(t, []string{"vetcare:lock:appointments:2024-06-10"}, mr.Keys(), prefix)
		unlock()
	}
}
