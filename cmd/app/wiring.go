package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"qualitative-interview/internal/config"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/domain/ports/repository"
	aiAdapters "qualitative-interview/internal/infra/adapters/ai"
	pg "qualitative-interview/internal/infra/db/postgres"
	"qualitative-interview/internal/infra/logging"
	"qualitative-interview/internal/infra/metrics"
	red "qualitative-interview/internal/infra/redis"
	"qualitative-interview/internal/infra/storage/files"
	"qualitative-interview/internal/usecase"
)

// recordLoader is implemented by every canonical sink.
type recordLoader interface {
	repository.TranscriptSink
	Load(ctx context.Context, username string) (*model.TranscriptRecord, error)
}

// app holds the collaborators shared by the commands.
type app struct {
	cfg       *config.Config
	log       *zerolog.Logger
	canonical recordLoader
	backups   []repository.TranscriptSink
	master    *files.MasterLog
	locker    repository.Locker
	redis     *red.Client
	cache     *red.TranscriptCache
	pool      *pgxpool.Pool

	iv       usecase.InterviewUseCase
	sessions *usecase.SessionRegistry
}

func loadConfig() (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.Load(cfgPath, devMode)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] enabled")
	}
	return cfg, logger, nil
}

// openStorage connects the canonical sink, the backup sinks, the master log
// and the turn locker. Redis is optional; without it locks are process-local.
func openStorage(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger}

	switch cfg.Storage.Canonical {
	case "postgres":
		pool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		a.pool = pool
		a.canonical = pg.NewPostgresTranscriptRepo(pool)
	default:
		store, err := files.NewStore("files", files.Layout{
			TranscriptsDir: cfg.Storage.TranscriptsDir,
			TimesDir:       cfg.Storage.TimesDir,
			TablesDir:      cfg.Storage.TablesDir,
		})
		if err != nil {
			return nil, fmt.Errorf("files store: %w", err)
		}
		a.canonical = store
	}

	backup, err := files.NewStore("backup", files.Layout{
		TranscriptsDir: cfg.Storage.BackupsDir,
		TimesDir:       cfg.Storage.BackupsDir,
		Backup:         true,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("backup store: %w", err)
	}
	a.backups = append(a.backups, backup)

	if a.master, err = files.NewMasterLog(cfg.Storage.MasterLog); err != nil {
		a.close()
		return nil, fmt.Errorf("master log: %w", err)
	}

	a.locker = usecase.NewLocalLocker()
	if cfg.Redis.URL != "" {
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = client
		a.locker = red.NewLocker(client)
		a.cache = red.NewTranscriptCache(client, cfg.Redis.TTL)
		a.backups = append(a.backups, a.cache)
	}

	logger.Info().
		Str("canonical", a.canonical.Name()).
		Int("backups", len(a.backups)).
		Bool("redis", a.redis != nil).
		Msg("storage ready")
	return a, nil
}

// wireInterview builds the model backend and the interview use case on top
// of opened storage.
func (a *app) wireInterview(ctx context.Context) error {
	cfg := a.cfg
	streamer, err := aiAdapters.NewFromConfig(ctx, cfg.AI, cfg.Interview.PlaceholderGreeting, cfg.Runtime.Dev)
	if err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	metrics.SetBuildInfo(version, streamer.Name(), cfg.AI.Model)

	det, err := usecase.NewDetector(usecase.CodesFromConfig(cfg.Interview.Codes))
	if err != nil {
		return fmt.Errorf("control codes: %w", err)
	}
	persister := usecase.NewPersister(a.canonical, a.backups, a.master, det, usecase.RetryPolicy{
		MaxAttempts:    cfg.Storage.Verify.MaxAttempts,
		InitialBackoff: cfg.Storage.Verify.InitialBackoff,
		MaxBackoff:     cfg.Storage.Verify.MaxBackoff,
	}, a.log)

	a.iv = usecase.NewInterviewUseCase(streamer, det, persister, a.locker, interviewOptions(cfg), a.log)
	a.sessions = usecase.NewSessionRegistry(a.iv, cfg.Interview.TestIdentity, a.log)
	return nil
}

func interviewOptions(cfg *config.Config) usecase.InterviewOptions {
	return usecase.InterviewOptions{
		Script:          cfg.Interview.SystemPrompt(),
		QuitMessage:     cfg.Interview.QuitMessage,
		TestIdentity:    cfg.Interview.TestIdentity,
		StreamTimeout:   cfg.AI.StreamTimeout,
		FinalizeTimeout: cfg.Storage.Verify.Timeout,
		Dev:             cfg.Runtime.Dev,
	}
}

func (a *app) close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn().Err(err).Msg("close")
	}
}
