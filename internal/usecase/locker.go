package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/ports/repository"
)

var _ repository.Locker = (*LocalLocker)(nil)

// LocalLocker is an in-process Locker for single-instance deployments.
// Expired holds are treated as free; a zero ttl never expires.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localHold
	now  func() time.Time
}

type localHold struct {
	token   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]localHold{}, now: time.Now}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if h, ok := l.held[key]; ok && (h.expires.IsZero() || now.Before(h.expires)) {
		return "", domain.ErrTurnInProgress
	}
	token := uuid.NewString()
	h := localHold{token: token}
	if ttl > 0 {
		h.expires = now.Add(ttl)
	}
	l.held[key] = h
	return token, nil
}

func (l *LocalLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && h.token == token {
		delete(l.held, key)
	}
	return nil
}
