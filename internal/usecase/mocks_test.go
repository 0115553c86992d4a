// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"qualitative-interview/internal/config"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/domain/ports/adapter"
	"qualitative-interview/internal/domain/ports/repository"
)

// memSink is an in-memory TranscriptSink. failWrites and hideReads make the
// first N writes fail or the first N existence checks miss.
type memSink struct {
	mu         sync.Mutex
	name       string
	records    map[string]*model.TranscriptRecord
	writes     int
	failWrites int
	hideReads  int
	existsErr  error
}

func newMemSink(name string) *memSink {
	return &memSink{name: name, records: map[string]*model.TranscriptRecord{}}
}

func (m *memSink) Name() string { return m.name }

func (m *memSink) Write(ctx context.Context, rec *model.TranscriptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWrites > 0 {
		m.failWrites--
		return errors.New("disk full")
	}
	cp := *rec
	cp.Messages = append([]model.Message(nil), rec.Messages...)
	m.records[rec.Username] = &cp
	return nil
}

func (m *memSink) Exists(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	if m.hideReads > 0 {
		m.hideReads--
		return false, nil
	}
	_, ok := m.records[username]
	return ok, nil
}

func (m *memSink) get(username string) (*model.TranscriptRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[username]
	return r, ok
}

func (m *memSink) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type logRow struct {
	username string
	msg      model.Message
}

type memLog struct {
	mu   sync.Mutex
	rows []logRow
}

func (l *memLog) Append(ctx context.Context, username string, msg model.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, logRow{username: username, msg: msg})
	return nil
}

func (l *memLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

// fakeCall scripts one StreamReply invocation.
type fakeCall struct {
	frags []string
	err   error         // yielded after frags
	wait  chan struct{} // when set, blocks before the first fragment
}

// fakeStreamer plays back scripted calls and records what it was asked and
// how far the consumer pulled.
type fakeStreamer struct {
	mu       sync.Mutex
	calls    []fakeCall
	n        int
	prefixes [][]adapter.Message
	pulled   []int
	started  chan struct{}
}

func newFakeStreamer(calls ...fakeCall) *fakeStreamer {
	return &fakeStreamer{calls: calls, started: make(chan struct{}, 16)}
}

func reply(frags ...string) fakeCall { return fakeCall{frags: frags} }

func (f *fakeStreamer) Name() string { return "fake" }

func (f *fakeStreamer) StreamReply(ctx context.Context, prefix []adapter.Message, instructions string) iter.Seq2[string, error] {
	f.mu.Lock()
	idx := f.n
	f.n++
	var call fakeCall
	if idx < len(f.calls) {
		call = f.calls[idx]
	} else {
		call = reply("Could you tell me more?")
	}
	f.prefixes = append(f.prefixes, append([]adapter.Message(nil), prefix...))
	f.pulled = append(f.pulled, 0)
	f.mu.Unlock()

	return func(yield func(string, error) bool) {
		f.started <- struct{}{}
		if call.wait != nil {
			select {
			case <-call.wait:
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			}
		}
		for _, frag := range call.frags {
			f.mu.Lock()
			f.pulled[idx]++
			f.mu.Unlock()
			if !yield(frag, nil) {
				return
			}
		}
		if call.err != nil {
			yield("", call.err)
		}
	}
}

func (f *fakeStreamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func (f *fakeStreamer) pulledAt(i int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulled[i]
}

func (f *fakeStreamer) prefixAt(i int) []adapter.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefixes[i]
}

// harness wires the interview use case to in-memory collaborators.
type harness struct {
	uc        *interviewUC
	ai        *fakeStreamer
	canonical *memSink
	backup    *memSink
	master    *memLog
}

func testCodes() []ControlCode {
	return CodesFromConfig(config.DefaultCodes())
}

func closingFor(code string) string {
	for _, c := range testCodes() {
		if c.Code == code {
			return c.ClosingMessage
		}
	}
	return ""
}

func newHarness(ai *fakeStreamer) *harness {
	det, err := NewDetector(testCodes())
	if err != nil {
		panic(err)
	}
	h := &harness{
		ai:        ai,
		canonical: newMemSink("canonical"),
		backup:    newMemSink("backup"),
		master:    &memLog{},
	}
	p := NewPersister(h.canonical, []repository.TranscriptSink{h.backup}, h.master, det,
		RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}, nil)
	h.uc = NewInterviewUseCase(ai, det, p, NewLocalLocker(), InterviewOptions{
		Script:        "You are a qualitative interviewer.",
		QuitMessage:   config.DefaultQuitMessage,
		TestIdentity:  "testaccount",
		StreamTimeout: time.Second,
	}, nil)
	return h
}
