package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syndicate/internal/catalog"
	"syndicate/internal/config"
	"syndicate/internal/db"
	"syndicate/internal/events"
	"syndicate/internal/game"
	"syndicate/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	shutdownTracing, err := telemetry.Setup(ctx, "syndicate-worker", cfg.Tracing)
	if err != nil {
		logger.Error("telemetry setup failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool, logger); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSToken)
		if err != nil {
			logger.Error("nats connect failed", "err", err)
			os.Exit(1)
		}
		defer nc.Close()
		publisher = nc
	}

	store, err := catalog.NewStore(pool, 64, time.Minute)
	if err != nil {
		logger.Error("catalog init failed", "err", err)
		os.Exit(1)
	}
	svc := game.NewService(pool, store, logger, game.WithPublisher(publisher))

	if cfg.RunOnce {
		if _, _, err := svc.AdvanceRounds(ctx); err != nil {
			logger.Error("round tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.RoundTickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.RoundTickEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if _, _, err := svc.AdvanceRounds(ctx); err != nil {
				logger.Error("round tick failed", "err", err)
			}
		}
	}
}
