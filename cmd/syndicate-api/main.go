package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syndicate/internal/api"
	"syndicate/internal/auth"
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

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	shutdownTracing, err := telemetry.Setup(ctx, "syndicate-api", cfg.Tracing)
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

	store, err := catalog.NewStore(pool, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	if err != nil {
		logger.Error("catalog init failed", "err", err)
		os.Exit(1)
	}
	if cfg.StartupSeedCatalog {
		seed := catalog.DefaultSeed()
		if cfg.CatalogSeedPath != "" {
			seed, err = catalog.LoadSeed(cfg.CatalogSeedPath)
			if err != nil {
				logger.Error("load catalog seed failed", "err", err, "path", cfg.CatalogSeedPath)
				os.Exit(1)
			}
		}
		if err := store.Apply(ctx, pool, seed); err != nil {
			logger.Error("seed catalog failed", "err", err)
			os.Exit(1)
		}
		logger.Info("catalog seeded", "resources", len(seed.Resources), "sets", len(seed.Sets))
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

	gameSvc := game.NewService(pool, store, logger, game.WithPublisher(publisher))
	server := api.New(cfg, logger, auth.NewVerifier(cfg.JWTSecret), gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("syndicate api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
