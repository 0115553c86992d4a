package repository

import (
	"context"

	"qualitative-interview/internal/domain/model"
)

// -----------------------------
// Transcripts
// -----------------------------

// TranscriptSink is a durable, username-keyed store of transcript snapshots.
type TranscriptSink interface {
	Name() string
	// Write replaces any prior record for rec.Username with rec.
	Write(ctx context.Context, rec *model.TranscriptRecord) error
	// Exists reports whether a record for username is observably present.
	Exists(ctx context.Context, username string) (bool, error)
}

// MessageLog is the shared append-only log of every committed message.
type MessageLog interface {
	Append(ctx context.Context, username string, msg model.Message) error
}
