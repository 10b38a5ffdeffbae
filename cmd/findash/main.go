package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"findash/internal/auth"
	"findash/internal/backend"
	"findash/internal/cli"
	"findash/internal/config"
	apphttp "findash/internal/http"
	"findash/internal/log"
	"findash/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout)
	cfg = cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	opts, err := backend.OptionsFrom(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	store, err := backend.NewOpener(logger).Open(context.Background(), opts)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	authOpts := auth.Options{AllowResetSentinel: cfg.AuthAllowResetSentinel}
	if cfg.JWTSecret != "" {
		authOpts.Tokens = auth.NewTokenIssuer(cfg.JWTSecret, auth.DefaultTokenTTL)
	}
	if cfg.AuthAllowResetSentinel {
		logger.Warn("Password reset sentinel is enabled; any known account can be reset without its old password")
	}

	authSvc := auth.NewService(store.Store, authOpts)
	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Store:        store.Store,
		Auth:         authSvc,
		Logger:       logger,
		CacheTTL:     cfg.CacheTTL,
		RequireToken: cfg.AuthRequireToken,
		RateLimit:    ratelimit.DefaultConfig(),
		ChartMonths:  cfg.ChartMonths,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 20 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), store.Close())
	})

	logger.Info("Starting findash server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"tokens", authSvc.TokensEnabled(),
		"require_token", cfg.AuthRequireToken)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
