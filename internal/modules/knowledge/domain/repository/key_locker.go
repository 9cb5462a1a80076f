package repository

import "context"

// KeyLocker 按 key 串行化同一来源的写入。Lock 阻塞直到拿到锁或 ctx 结束，
// 返回的 unlock 必须调用且只调用一次
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
