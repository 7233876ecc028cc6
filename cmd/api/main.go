// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

// Command api runs the Credo authentication service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mahirlabib/credo/internal/api"
	"github.com/mahirlabib/credo/internal/auth"
	"github.com/mahirlabib/credo/internal/platform/config"
	"github.com/mahirlabib/credo/internal/platform/constants"
	"github.com/mahirlabib/credo/internal/platform/mailer"
	"github.com/mahirlabib/credo/internal/platform/migration"
	"github.com/mahirlabib/credo/internal/platform/postgres"
	"github.com/mahirlabib/credo/internal/platform/ratelimit"
	"github.com/mahirlabib/credo/internal/platform/redis"
	"github.com/mahirlabib/credo/internal/platform/sec"
	"github.com/mahirlabib/credo/internal/platform/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Configuration & Logging ────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting",
		slog.String("app", constants.AppName),
		slog.String("version", constants.AppVersion),
		slog.String("environment", cfg.Environment),
	)

	// ── 2. Backing Stores ─────────────────────────────────────────────────
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migration.Run(cfg.DatabaseURL, cfg.MigrationPath, logger); err != nil {
		return err
	}

	var limiterStore ratelimit.Store
	redisClient, err := redisClientOrNil(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiterStore = ratelimit.NewRedisStore(redisClient)
	} else {
		logger.Warn("redis not configured, using in-process rate limiter (single instance only)")
		limiterStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.NewLimiter(limiterStore, constants.RateLimitMaxRequests, constants.RateLimitWindow)

	// ── 3. Collaborators ──────────────────────────────────────────────────
	var notifier auth.Notifier
	if cfg.SMTPHost != "" {
		notifier = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	} else {
		logger.Warn("smtp not configured, logging outbound email instead")
		notifier = mailer.NewLogMailer(logger)
	}

	var blobs auth.BlobStore
	if cfg.S3Bucket != "" {
		blobs, err = storage.NewS3Store(ctx, storage.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("object storage not configured, avatar uploads disabled")
		blobs = storage.Disabled{}
	}

	tokens, err := sec.NewTokenService(
		cfg.JWTAccessSecret, cfg.JWTRefreshSecret,
		constants.AuthIssuer,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	if err != nil {
		return err
	}

	// ── 4. Domain Wiring ──────────────────────────────────────────────────
	accounts := auth.NewPostgresAccountStore(pool)
	otps := auth.NewPostgresOtpStore(pool)

	lifecycle := auth.NewAccountLifecycle(accounts, blobs, logger)
	otpEngine := auth.NewOtpEngine(otps, notifier, logger)
	service := auth.NewService(accounts, lifecycle, otpEngine, tokens, blobs, cfg.ResetTokenSecret, logger)

	handler := auth.NewHandler(service, tokens, limiter, auth.CookieConfig{
		Secure:     !cfg.IsDevelopment(),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})

	// ── 5. Serve ──────────────────────────────────────────────────────────
	server := api.New(ctx, api.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		Redis:       redisClient,
		AuthHandler: handler,
	})

	return server.Run(ctx)
}

// redisClientOrNil connects to Redis when a URL is configured, otherwise
// returns nil so the caller falls back to in-process stores.
func redisClientOrNil(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*goredis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return redis.NewClient(ctx, cfg.RedisURL, logger)
}
