// File: internal/usecase/interview_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/domain/ports/adapter"
	"qualitative-interview/internal/domain/ports/repository"
	"qualitative-interview/internal/infra/logging"
	"qualitative-interview/internal/infra/metrics"
)

// Compile-time check
var _ InterviewUseCase = (*interviewUC)(nil)

type TurnKind string

const (
	TurnOpening    TurnKind = "opening"
	TurnRespondent TurnKind = "respondent"
	TurnRetry      TurnKind = "retry"
)

// DeltaFunc receives display-safe reply text while a reply streams.
type DeltaFunc func(text string)

// TurnResult describes what a turn committed.
type TurnResult struct {
	// Noop is set when the call was a guarded no-op (e.g. a repeated Start).
	Noop bool
	// Reply is the committed interviewer message.
	Reply model.Message
	// Code is set when the reply carried a control code.
	Code  *ControlCode
	State model.SessionState
}

type InterviewUseCase interface {
	Start(ctx context.Context, s *model.Session, onDelta DeltaFunc) (*TurnResult, error)
	SubmitTurn(ctx context.Context, s *model.Session, text string, onDelta DeltaFunc) (*TurnResult, error)
	Retry(ctx context.Context, s *model.Session, onDelta DeltaFunc) (*TurnResult, error)
	Quit(ctx context.Context, s *model.Session) (bool, error)
	IsComplete(ctx context.Context, username string) (bool, error)
}

type InterviewOptions struct {
	// Script is the persona instruction block sent with every model call.
	Script        string
	QuitMessage   string
	TestIdentity  string
	StreamTimeout time.Duration
	// FinalizeTimeout caps the terminal persist, which otherwise outlives a
	// cancelled request.
	FinalizeTimeout time.Duration
	Dev             bool
}

type interviewUC struct {
	ai        adapter.ReplyStreamer
	detector  *Detector
	persister *Persister
	locker    repository.Locker
	opts      InterviewOptions
	now       func() time.Time
	log       *zerolog.Logger
}

func NewInterviewUseCase(
	ai adapter.ReplyStreamer,
	detector *Detector,
	persister *Persister,
	locker repository.Locker,
	opts InterviewOptions,
	logger *zerolog.Logger,
) *interviewUC {
	if logger == nil {
		logger = logging.Nop()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = 2 * time.Minute
	}
	if opts.FinalizeTimeout <= 0 {
		opts.FinalizeTimeout = 2 * time.Minute
	}
	return &interviewUC{
		ai:        ai,
		detector:  detector,
		persister: persister,
		locker:    locker,
		opts:      opts,
		now:       time.Now,
		log:       logger,
	}
}

func lockKey(username string) string { return "interview:lock:" + username }

func (u *interviewUC) lock(ctx context.Context, s *model.Session) (func(), error) {
	ttl := u.opts.StreamTimeout + u.opts.FinalizeTimeout
	token, err := u.locker.TryLock(ctx, lockKey(s.Username), ttl)
	if err != nil {
		if errors.Is(err, domain.ErrTurnInProgress) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTurnInProgress, err)
	}
	return func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), lockKey(s.Username), token); err != nil {
			u.log.Warn().Err(err).Str("username", s.Username).Msg("unlock failed")
		}
	}, nil
}

func (u *interviewUC) ctxFor(ctx context.Context, s *model.Session) context.Context {
	return logging.WithSessID(logging.WithUsername(ctx, s.Username), s.ID)
}

// Start runs the opening turn. It is a no-op once the session has messages
// or has left Active.
func (u *interviewUC) Start(ctx context.Context, s *model.Session, onDelta DeltaFunc) (*TurnResult, error) {
	ctx = u.ctxFor(ctx, s)
	defer logging.TraceDuration(logging.With(ctx, u.log), "InterviewUC.Start")()

	unlock, err := u.lock(ctx, s)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !s.Active() || s.Len() > 0 {
		return &TurnResult{Noop: true, State: s.Status()}, nil
	}
	metrics.IncSession("opened")
	return u.runTurn(ctx, s, TurnOpening, onDelta)
}

// SubmitTurn commits the respondent's message, backs it up, then streams and
// commits the interviewer reply.
func (u *interviewUC) SubmitTurn(ctx context.Context, s *model.Session, text string, onDelta DeltaFunc) (*TurnResult, error) {
	ctx = u.ctxFor(ctx, s)
	logger := logging.With(ctx, u.log)
	defer logging.TraceDuration(logger, "InterviewUC.SubmitTurn")()

	unlock, err := u.lock(ctx, s)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !s.Active() {
		return nil, domain.ErrSessionNotActive
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrInvalidArgument
	}

	msg := s.Append(model.RoleRespondent, text, u.now())
	logger.Debug().Int("seq", msg.Seq).Str("text", logging.Redact(text, u.opts.Dev)).Msg("respondent message committed")
	u.persister.RecordMessage(ctx, s.Username, msg)
	u.persister.Backup(ctx, s)

	return u.runTurn(ctx, s, TurnRespondent, onDelta)
}

// Retry re-requests the interviewer reply after a failed turn.
func (u *interviewUC) Retry(ctx context.Context, s *model.Session, onDelta DeltaFunc) (*TurnResult, error) {
	ctx = u.ctxFor(ctx, s)
	defer logging.TraceDuration(logging.With(ctx, u.log), "InterviewUC.Retry")()

	unlock, err := u.lock(ctx, s)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !s.Active() {
		return nil, domain.ErrSessionNotActive
	}
	last, ok := s.LastMessage()
	if !ok || last.Role != model.RoleRespondent {
		return nil, domain.ErrNothingToRetry
	}
	return u.runTurn(ctx, s, TurnRetry, onDelta)
}

// Quit cancels an active interview. On a session that already left Active it
// reports false and appends nothing.
func (u *interviewUC) Quit(ctx context.Context, s *model.Session) (bool, error) {
	ctx = u.ctxFor(ctx, s)
	logger := logging.With(ctx, u.log)

	unlock, err := u.lock(ctx, s)
	if err != nil {
		return false, err
	}
	defer unlock()

	if !s.Active() {
		return false, nil
	}
	msg := s.Append(model.RoleInterviewer, u.opts.QuitMessage, u.now())
	s.Transition(model.SessionQuit)
	u.persister.RecordMessage(ctx, s.Username, msg)
	metrics.IncSession(string(model.SessionQuit))
	logger.Info().Int("messages", s.Len()).Msg("interview quit")

	return true, u.finalize(ctx, s)
}

// IsComplete reports whether username already has a canonical record. The
// test identity never counts as complete.
func (u *interviewUC) IsComplete(ctx context.Context, username string) (bool, error) {
	if username == u.opts.TestIdentity {
		return false, nil
	}
	ok, err := u.persister.Recorded(ctx, username)
	if err != nil {
		return false, fmt.Errorf("completion check for %s: %w", username, err)
	}
	return ok, nil
}

func (u *interviewUC) finalize(ctx context.Context, s *model.Session) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.opts.FinalizeTimeout)
	defer cancel()
	return u.persister.Finalize(fctx, s)
}

// prefix maps the committed log to backend turns. System messages are not
// part of the conversation sent to the model.
func prefix(s *model.Session) []adapter.Message {
	hist := s.History()
	out := make([]adapter.Message, 0, len(hist))
	for _, m := range hist {
		switch m.Role {
		case model.RoleInterviewer:
			out = append(out, adapter.Message{Role: adapter.RoleAssistant, Content: m.Content})
		case model.RoleRespondent:
			out = append(out, adapter.Message{Role: adapter.RoleUser, Content: m.Content})
		}
	}
	return out
}

// runTurn streams one reply through the detector and commits the result.
// The caller holds the session lock.
func (u *interviewUC) runTurn(ctx context.Context, s *model.Session, kind TurnKind, onDelta DeltaFunc) (*TurnResult, error) {
	logger := logging.With(ctx, u.log)
	if onDelta == nil {
		onDelta = func(string) {}
	}

	sctx, cancel := context.WithTimeout(ctx, u.opts.StreamTimeout)
	defer cancel()

	sc := u.detector.NewScanner()
	var streamErr error
	for frag, err := range u.ai.StreamReply(sctx, prefix(s), u.opts.Script) {
		if err != nil {
			streamErr = err
			break
		}
		display, matched := sc.Feed(frag)
		if display != "" {
			onDelta(display)
		}
		if matched {
			break
		}
	}

	if streamErr != nil {
		metrics.IncTurn(string(kind), "failed")
		logger.Error().Err(streamErr).Str("backend", u.ai.Name()).Str("kind", string(kind)).Msg("reply stream failed")
		if errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", domain.ErrBackendTimeout, u.opts.StreamTimeout)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrBackend, streamErr)
	}

	code, matched := sc.Match()
	if !matched {
		if rest := sc.Flush(); rest != "" {
			onDelta(rest)
		}
	}
	content := sc.Content()
	if content == "" {
		metrics.IncTurn(string(kind), "failed")
		logger.Warn().Str("backend", u.ai.Name()).Str("kind", string(kind)).Msg("empty reply")
		return nil, domain.ErrEmptyReply
	}

	reply := s.Append(model.RoleInterviewer, content, u.now())
	u.persister.RecordMessage(ctx, s.Username, reply)

	if !matched {
		metrics.IncTurn(string(kind), "committed")
		u.persister.Backup(ctx, s)
		return &TurnResult{Reply: reply, State: s.Status()}, nil
	}

	s.Transition(model.SessionCompleted)
	metrics.IncTurn(string(kind), "closed")
	metrics.IncControlCode(string(code.Outcome))
	metrics.IncSession(string(model.SessionCompleted))
	logger.Info().Str("outcome", string(code.Outcome)).Int("messages", s.Len()).Msg("interview closed by control code")

	res := &TurnResult{Reply: reply, Code: &code, State: s.Status()}
	return res, u.finalize(ctx, s)
}
