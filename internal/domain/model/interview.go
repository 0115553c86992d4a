package model

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Role string

const (
	RoleInterviewer Role = "Interviewer"
	RoleRespondent  Role = "Respondent"
	RoleSystem      Role = "System"
)

type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionQuit      SessionState = "quit"
	SessionCompleted SessionState = "completed"
)

// Terminal reports whether no further turns may be taken.
func (s SessionState) Terminal() bool {
	return s == SessionQuit || s == SessionCompleted
}

// Message is one committed entry of the interview log. Messages are never
// mutated once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the aggregate root for one respondent's interview during a run.
// Readers and the single writer may live on different goroutines, so all
// access after construction goes through the methods.
type Session struct {
	mu sync.RWMutex

	ID        string       `json:"id"`
	Username  string       `json:"username"`
	State     SessionState `json:"state"`
	Messages  []Message    `json:"messages"`
	StartTime time.Time    `json:"start_time"`
}

func NewSession(id, username string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Username:  username,
		State:     SessionActive,
		Messages:  make([]Message, 0, 16),
		StartTime: now,
	}
}

// Append commits a message at the end of the log and returns a copy of it.
func (s *Session) Append(role Role, content string, now time.Time) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Message{
		ID:        newMessageID(now),
		Role:      role,
		Content:   content,
		Seq:       len(s.Messages),
		CreatedAt: now,
	}
	s.Messages = append(s.Messages, m)
	return m
}

// Transition moves an active session to a terminal state. It reports false
// when the session already left Active; the state is never changed twice.
func (s *Session) Transition(to SessionState) bool {
	if !to.Terminal() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != SessionActive {
		return false
	}
	s.State = to
	return true
}

func (s *Session) Status() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

func (s *Session) Active() bool { return s.Status() == SessionActive }

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// LastMessage returns the most recent message, if any.
func (s *Session) LastMessage() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// History returns a copy of the message log.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Snapshot projects the session into the record written to transcript sinks.
// Timing is recomputed from StartTime on every call.
func (s *Session) Snapshot(now time.Time) *TranscriptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return &TranscriptRecord{
		Username: s.Username,
		State:    s.State,
		Messages: msgs,
		Timing:   NewTimingRecord(s.StartTime, now),
	}
}

func newMessageID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
