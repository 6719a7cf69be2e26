package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/unlockmate/internal/analyzer"
	"github.com/dharsanguruparan/unlockmate/internal/api"
	"github.com/dharsanguruparan/unlockmate/internal/auth"
	"github.com/dharsanguruparan/unlockmate/internal/config"
	"github.com/dharsanguruparan/unlockmate/internal/database"
	"github.com/dharsanguruparan/unlockmate/internal/fulfill"
	"github.com/dharsanguruparan/unlockmate/internal/lifecycle"
	"github.com/dharsanguruparan/unlockmate/internal/query"
	"github.com/dharsanguruparan/unlockmate/internal/queue"
	"github.com/dharsanguruparan/unlockmate/internal/repository"
	"github.com/dharsanguruparan/unlockmate/internal/s3storage"
	"github.com/dharsanguruparan/unlockmate/internal/signing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Error("ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	repo := repository.NewRequestRepository(pool)

	blobs, err := s3storage.New(cfg)
	if err != nil {
		logger.Error("init storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		logger.Error("ensure bucket", slog.String("error", err.Error()))
		os.Exit(1)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()

	controller := lifecycle.New(repo)
	fulfiller := fulfill.New(controller, blobs, queue.NewClientNotifier(asynqClient))

	server := api.New(api.Options{
		Config:     cfg,
		Store:      repo,
		Controller: controller,
		Fulfiller:  fulfiller,
		Analyzer:   analyzer.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel),
		Signer:     signing.NewSigner(cfg.SigningSecret),
		Sessions:   auth.NewSessions(cfg.JWTSecret, cfg.JWTTTL),
		Admin:      auth.NewSharedSecret(cfg.AdminSecret),
		Presigner:  blobs,
		Pricing:    query.Pricing{SingleCents: cfg.PriceSingleCents, LifetimeCents: cfg.PriceLifetimeCents},
		Logger:     logger,
	})
	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
