// File: internal/infra/db/postgres/postgres_transcript_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/domain/ports/repository"
)

var _ repository.TranscriptSink = (*TranscriptRepo)(nil)

// TranscriptRepo stores one row per identity plus its messages. A write
// replaces both inside one transaction.
type TranscriptRepo struct {
	pool *pgxpool.Pool
	tm   *TxManager
}

func NewPostgresTranscriptRepo(pool *pgxpool.Pool) *TranscriptRepo {
	return &TranscriptRepo{pool: pool, tm: NewTxManager(pool)}
}

func (r *TranscriptRepo) Name() string { return "postgres" }

func (r *TranscriptRepo) Write(ctx context.Context, rec *model.TranscriptRecord) error {
	if !model.ValidUsername(rec.Username) {
		return domain.ErrInvalidIdentity
	}
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		if err := r.saveTranscript(ctx, tx, rec); err != nil {
			return err
		}
		return r.replaceMessages(ctx, tx, rec)
	})
	if err != nil {
		return fmt.Errorf("write transcript %s: %w", rec.Username, err)
	}
	return nil
}

func (r *TranscriptRepo) saveTranscript(ctx context.Context, qx any, rec *model.TranscriptRecord) error {
	const q = `
INSERT INTO interview_transcripts (username, state, start_time, duration_minutes, transcript, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (username) DO UPDATE SET
  state = EXCLUDED.state,
  start_time = EXCLUDED.start_time,
  duration_minutes = EXCLUDED.duration_minutes,
  transcript = EXCLUDED.transcript,
  updated_at = NOW();`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, rec.Username, string(rec.State), rec.Timing.StartTime, rec.Timing.DurationMinutes, rec.TranscriptText())
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

func (r *TranscriptRepo) replaceMessages(ctx context.Context, tx pgx.Tx, rec *model.TranscriptRecord) error {
	if _, err := tx.Exec(ctx, `DELETE FROM interview_messages WHERE username=$1;`, rec.Username); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if len(rec.Messages) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, m := range rec.Messages {
		b.Queue(`INSERT INTO interview_messages (username, seq, id, role, content, created_at) VALUES ($1,$2,$3,$4,$5,$6);`,
			rec.Username, m.Seq, m.ID, string(m.Role), m.Content, m.CreatedAt)
	}
	br := tx.SendBatch(ctx, b)
	for range rec.Messages {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return br.Close()
}

func (r *TranscriptRepo) Exists(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM interview_transcripts WHERE username=$1);`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, username).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return ok, nil
}

// Load reads the stored record for username.
func (r *TranscriptRepo) Load(ctx context.Context, username string) (*model.TranscriptRecord, error) {
	rec := &model.TranscriptRecord{Username: username}
	var state string
	err := r.pool.QueryRow(ctx,
		`SELECT state, start_time, duration_minutes FROM interview_transcripts WHERE username=$1;`, username).
		Scan(&state, &rec.Timing.StartTime, &rec.Timing.DurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	rec.State = model.SessionState(state)
	rec.Timing.StartTime = rec.Timing.StartTime.UTC()

	rows, err := r.pool.Query(ctx,
		`SELECT seq, id, role, content, created_at FROM interview_messages WHERE username=$1 ORDER BY seq;`, username)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.Message
		var role string
		if err := rows.Scan(&m.Seq, &m.ID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = model.Role(role)
		rec.Messages = append(rec.Messages, m)
	}
	return rec, rows.Err()
}
