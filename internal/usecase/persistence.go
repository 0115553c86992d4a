// File: internal/usecase/persistence.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/domain/ports/repository"
	"qualitative-interview/internal/infra/logging"
	"qualitative-interview/internal/infra/metrics"
)

var errNotObservable = errors.New("record written but not observable")

// RetryPolicy bounds the write-then-verify loop of a terminal persist.
// MaxAttempts <= 0 keeps trying until the context ends.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// Persister writes full transcript snapshots. Backup sinks take every turn
// on a best-effort basis; the canonical sink only takes terminal snapshots,
// so its record doubles as the completion marker.
type Persister struct {
	canonical repository.TranscriptSink
	backups   []repository.TranscriptSink
	master    repository.MessageLog
	detector  *Detector
	policy    RetryPolicy
	now       func() time.Time
	log       *zerolog.Logger
}

func NewPersister(
	canonical repository.TranscriptSink,
	backups []repository.TranscriptSink,
	master repository.MessageLog,
	detector *Detector,
	policy RetryPolicy,
	logger *zerolog.Logger,
) *Persister {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Persister{
		canonical: canonical,
		backups:   backups,
		master:    master,
		detector:  detector,
		policy:    policy,
		now:       time.Now,
		log:       logger,
	}
}

// Persist overwrites the sink's record for the session's username with the
// current snapshot.
func (p *Persister) Persist(ctx context.Context, s *model.Session, sink repository.TranscriptSink) error {
	rec := p.record(s)
	if err := sink.Write(ctx, rec); err != nil {
		metrics.IncPersist(sink.Name(), "error")
		return fmt.Errorf("persist %s to %s: %w", rec.Username, sink.Name(), err)
	}
	metrics.IncPersist(sink.Name(), "ok")
	return nil
}

// Backup writes the snapshot to every backup sink. Failures are logged and
// never returned.
func (p *Persister) Backup(ctx context.Context, s *model.Session) {
	for _, sink := range p.backups {
		if err := p.Persist(ctx, s, sink); err != nil {
			logging.With(ctx, p.log).Warn().Err(err).Str("sink", sink.Name()).Msg("backup persist failed")
		}
	}
}

// Finalize writes the terminal snapshot to the canonical sink and returns
// only once a read-back confirms the record exists. Between attempts it
// backs off exponentially. Giving up yields domain.ErrNotDurable.
func (p *Persister) Finalize(ctx context.Context, s *model.Session) error {
	logger := logging.With(ctx, p.log)
	defer logging.TraceDuration(logger, "Persister.Finalize")()

	// the backups should reflect the terminal state as well
	p.Backup(ctx, s)

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = p.Persist(ctx, s, p.canonical)
		if lastErr == nil {
			ok, err := p.canonical.Exists(ctx, s.Username)
			switch {
			case err != nil:
				lastErr = fmt.Errorf("verify %s: %w", s.Username, err)
			case !ok:
				lastErr = errNotObservable
				metrics.IncPersist(p.canonical.Name(), "unverified")
			default:
				if attempt > 1 {
					logger.Info().Int("attempts", attempt).Msg("terminal transcript confirmed")
				}
				return nil
			}
		}

		if p.policy.MaxAttempts > 0 && attempt >= p.policy.MaxAttempts {
			break
		}
		wait := p.policy.backoff(attempt)
		logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("retry_in", wait).Msg("terminal persist not confirmed")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			logger.Error().Err(lastErr).Msg("terminal persist abandoned")
			return fmt.Errorf("%w: %w (last error: %v)", domain.ErrNotDurable, ctx.Err(), lastErr)
		case <-t.C:
		}
	}
	logger.Error().Err(lastErr).Int("attempts", p.policy.MaxAttempts).Msg("terminal persist gave up")
	return fmt.Errorf("%w: %w", domain.ErrNotDurable, lastErr)
}

// Recorded reports whether the canonical sink holds a record for username.
func (p *Persister) Recorded(ctx context.Context, username string) (bool, error) {
	return p.canonical.Exists(ctx, username)
}

// RecordMessage appends a committed message to the shared master log.
func (p *Persister) RecordMessage(ctx context.Context, username string, msg model.Message) {
	if p.master == nil {
		return
	}
	if p.detector != nil {
		msg.Content = p.detector.Sanitize(msg.Content)
	}
	if err := p.master.Append(ctx, username, msg); err != nil {
		metrics.IncPersist("master_log", "error")
		logging.With(ctx, p.log).Warn().Err(err).Msg("master log append failed")
		return
	}
	metrics.IncPersist("master_log", "ok")
}

// record snapshots the session, mapping any control code that slipped into
// an interviewer message to its closing message.
func (p *Persister) record(s *model.Session) *model.TranscriptRecord {
	rec := s.Snapshot(p.now())
	if p.detector == nil {
		return rec
	}
	for i, m := range rec.Messages {
		if m.Role == model.RoleInterviewer {
			rec.Messages[i].Content = p.detector.Sanitize(m.Content)
		}
	}
	return rec
}
