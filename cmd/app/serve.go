package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	red "qualitative-interview/internal/infra/redis"
	"qualitative-interview/internal/infra/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.wireInterview(ctx); err != nil {
		return err
	}

	var auth *web.AuthManager
	if cfg.Auth.Enabled {
		auth = web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Users, !cfg.Runtime.Dev, "", cfg.Auth.TokenTTL)
	} else {
		logger.Warn().Str("identity", cfg.Interview.TestIdentity).Msg("auth disabled; every request acts as the test identity")
	}
	srv := web.NewServer(a.iv, a.sessions, auth, cfg.Interview.TestIdentity, cfg.Interview.QuitMessage, logger)
	if a.redis != nil {
		srv.WithLoginLimiter(red.NewLoginThrottle(a.redis, cfg.Auth.Login))
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	// in-flight terminal persists run detached, give them time to land
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
