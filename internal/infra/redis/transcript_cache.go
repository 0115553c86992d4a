package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/domain/ports/repository"
)

var _ repository.TranscriptSink = (*TranscriptCache)(nil)

// TranscriptCache keeps the latest snapshot per identity as a backup sink
// shared by all server instances. Entries expire after ttl.
type TranscriptCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewTranscriptCache(client RedisClient, ttl time.Duration) *TranscriptCache {
	return &TranscriptCache{
		client: client,
		ttl:    ttl,
	}
}

func transcriptKey(username string) string { return "interview:transcript:" + username }

func (c *TranscriptCache) Name() string { return "redis" }

func (c *TranscriptCache) Write(ctx context.Context, rec *model.TranscriptRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, transcriptKey(rec.Username), data, c.ttl)
}

func (c *TranscriptCache) Exists(ctx context.Context, username string) (bool, error) {
	n, err := c.client.Exists(ctx, transcriptKey(username))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Load returns the cached snapshot for username.
func (c *TranscriptCache) Load(ctx context.Context, username string) (*model.TranscriptRecord, error) {
	data, err := c.client.Get(ctx, transcriptKey(username))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec model.TranscriptRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
