package lock

import (
	"context"
	"testing"
	"time"

	pkgredis "OmniAgent/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	pkgredis.SetClient(client)
	t.Cleanup(func() {
		pkgredis.SetClient(nil)
		_ = client.Close()
	})
	return mr
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr := setupRedis(t)
	l := NewRedisLocker("lock:", time.Minute, 200*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "u1:s1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:u1:s1"))
	assert.Equal(t, time.Minute, mr.TTL("lock:u1:s1"))

	unlock()
	assert.False(t, mr.Exists("lock:u1:s1"))
}

func TestRedisLocker_WaitTimeout(t *testing.T) {
	setupRedis(t)
	l := NewRedisLocker("lock:", time.Minute, 120*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLocker_AcquiresAfterRelease(t *testing.T) {
	setupRedis(t)
	l := NewRedisLocker("lock:", time.Minute, time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		unlock2, err := l.Lock(context.Background(), "k")
		if err == nil {
			unlock2()
		}
		close(acquired)
	}()

	time.Sleep(80 * time.Millisecond)
	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second locker never acquired")
	}
}

func TestRedisLocker_DoesNotReleaseForeignToken(t *testing.T) {
	mr := setupRedis(t)
	l := NewRedisLocker("lock:", time.Minute, 200*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// 模拟 TTL 过期后被别人重新持有
	require.NoError(t, mr.Set("lock:k", "someone-else"))
	unlock()

	v, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedisLocker_NoClient(t *testing.T) {
	pkgredis.SetClient(nil)
	l := NewRedisLocker("lock:", time.Minute, 50*time.Millisecond)
	_, err := l.Lock(context.Background(), "k")
	assert.Error(t, err)
}
