package lock

import (
	"context"
	"errors"
	"time"

	"OmniAgent/internal/modules/knowledge/domain/repository"
	"OmniAgent/pkg/redis"
	"OmniAgent/pkg/util"
	"OmniAgent/pkg/zlog"

	"go.uber.org/zap"
)

var ErrLockTimeout = errors.New("lock wait timeout")

// RedisLocker 跨进程的 key 锁：SET NX PX 加随机 token，释放时比较 token 再删除。
// TTL 兜底进程崩溃后的锁残留，一次摄取必须在 TTL 内完成
type RedisLocker struct {
	prefix   string
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

func NewRedisLocker(prefix string, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if wait <= 0 {
		wait = ttl
	}
	return &RedisLocker{prefix: prefix, ttl: ttl, wait: wait, interval: 50 * time.Millisecond}
}

var _ repository.KeyLocker = (*RedisLocker)(nil)

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := util.GenerateUUID()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		ok, err := redis.SetNX(waitCtx, fullKey, token, l.ttl)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return nil, ErrLockTimeout
			}
			return nil, err
		}
		if ok {
			return l.unlockFunc(fullKey, token), nil
		}
		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrLockTimeout
		}
	}
}

func (l *RedisLocker) unlockFunc(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		ok, err := redis.ReleaseIfOwner(ctx, key, token)
		if err != nil {
			zlog.Warn("release redis lock failed", zap.String("key", key), zap.Error(err))
			return
		}
		if !ok {
			zlog.Warn("redis lock expired before release", zap.String("key", key))
		}
	}
}
