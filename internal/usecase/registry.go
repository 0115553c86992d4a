package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/infra/logging"
)

// SessionRegistry holds the single in-memory Session per username for the
// lifetime of the process.
type SessionRegistry struct {
	mu           sync.Mutex
	sessions     map[string]*model.Session
	iv           InterviewUseCase
	testIdentity string
	now          func() time.Time
	log          *zerolog.Logger
}

func NewSessionRegistry(iv InterviewUseCase, testIdentity string, logger *zerolog.Logger) *SessionRegistry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SessionRegistry{
		sessions:     map[string]*model.Session{},
		iv:           iv,
		testIdentity: testIdentity,
		now:          time.Now,
		log:          logger,
	}
}

// Open returns the session for username. A reconnect gets the existing
// session back; an identity with a canonical record is refused; the test
// identity starts over once its previous session has ended. Only entry
// points that may begin an interview call Open.
func (r *SessionRegistry) Open(ctx context.Context, username string) (*model.Session, error) {
	if !model.ValidUsername(username) {
		return nil, domain.ErrInvalidIdentity
	}

	r.mu.Lock()
	prev := r.sessions[username]
	r.mu.Unlock()
	if prev != nil && prev.Active() {
		return prev, nil
	}
	existing := prev
	if existing != nil && username == r.testIdentity {
		existing = nil
	}

	// the completion check hits the canonical sink, keep it outside the lock
	done, err := r.iv.IsComplete(ctx, username)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, domain.ErrAlreadyCompleted
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.sessions[username]; cur != prev {
		// a concurrent Open for the same identity got there first
		return cur, nil
	}
	if existing != nil {
		// ended in this run without a confirmed canonical record
		return existing, nil
	}

	s := model.NewSession(uuid.NewString(), username, r.now())
	r.sessions[username] = s
	logging.With(logging.WithSessID(logging.WithUsername(ctx, username), s.ID), r.log).
		Info().Msg("session opened")
	return s, nil
}

// Current returns the session a running interview operates on, in whatever
// state it is, without ever creating one.
func (r *SessionRegistry) Current(ctx context.Context, username string) (*model.Session, error) {
	if !model.ValidUsername(username) {
		return nil, domain.ErrInvalidIdentity
	}
	if s, ok := r.Get(username); ok {
		return s, nil
	}
	done, err := r.iv.IsComplete(ctx, username)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, domain.ErrAlreadyCompleted
	}
	return nil, domain.ErrSessionNotActive
}

// Get returns the session for username without creating one.
func (r *SessionRegistry) Get(username string) (*model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[username]
	return s, ok
}
