package repository

import (
	"context"
	"time"
)

// Locker serialises work per key across goroutines (and, for shared
// implementations, across processes). TryLock fails with
// domain.ErrTurnInProgress when the key is held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
