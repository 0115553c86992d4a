package redis

import (
	"context"
	"time"

	"qualitative-interview/internal/config"
)

// LoginThrottle caps login attempts per username in fixed windows. The
// counter lives under KeyPrefix+username and expires with the window.
type LoginThrottle struct {
	client RedisClient
	prefix string
	limit  int64
	window time.Duration
}

func NewLoginThrottle(client RedisClient, cfg config.LoginLimit) *LoginThrottle {
	return &LoginThrottle{
		client: client,
		prefix: cfg.KeyPrefix,
		limit:  int64(cfg.Attempts),
		window: cfg.Window,
	}
}

func (l *LoginThrottle) key(username string) string { return l.prefix + username }

// Allow counts one attempt for username. Once the window is spent it
// reports false and how long until the counter resets.
func (l *LoginThrottle) Allow(ctx context.Context, username string) (bool, time.Duration, error) {
	key := l.key(username)
	count, err := l.client.Incr(ctx, key)
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window); err != nil {
			return false, 0, err
		}
	}
	if count <= l.limit {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, key)
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		// the counter lost its expiry, start a new window rather than lock out forever
		if err := l.client.Expire(ctx, key, l.window); err != nil {
			return false, 0, err
		}
		ttl = l.window
	}
	return false, ttl, nil
}
