package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"storydesk/internal/changefeed"
	"storydesk/internal/config"
	"storydesk/internal/scheduler"
	"storydesk/internal/service"
	"storydesk/internal/source/static"
	"storydesk/internal/storage/postgres"
	"storydesk/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("export", "", "write a JSON export of all stories to this file and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	if err := migrations.Run(db.DB); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	storyStore := postgres.NewStoryStore(db)
	txManager := postgres.NewTransactionManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *exportPath != "" {
		if err := export(ctx, *exportPath, storyStore, txManager, logger, cfg.View); err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
		return
	}

	feed, err := changefeed.NewRabbitMQ(changefeed.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer feed.Close()

	collectionService, err := service.NewCollectionService(storyStore, feed, txManager, logger, cfg.View)
	if err != nil {
		logger.Error("failed to create collection service", "error", err)
		os.Exit(1)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := collectionService.Start(ctx); err != nil {
		logger.Error("failed to start collection", "error", err)
		os.Exit(1)
	}
	defer collectionService.Close()

	snap := collectionService.Snapshot()
	stats := collectionService.Stats()
	logger.Info("collection ready",
		"state", snap.State.String(),
		"total", stats.Total,
		"published", stats.Published,
		"drafts", stats.Drafts,
		"views", stats.TotalViews,
	)

	publicService := service.NewPublicService(storyStore, fallbackSource(cfg.Fallback, logger), logger, cfg.Public)
	if err := publicService.Load(ctx); err != nil {
		logger.Warn("public listing unavailable", "error", err)
	} else if featured, ok := publicService.Featured(); ok {
		logger.Info("featured story", "id", featured.ID, "title", featured.Title)
	}

	sched := scheduler.NewScheduler(collectionService, cfg.View.VerifyEvery, logger)

	logger.Info("starting storydesk",
		"exchange", cfg.RabbitMQ.Exchange,
		"reconcile_mode", cfg.View.ReconcileMode,
		"verify_every", cfg.View.VerifyEvery,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func export(
	ctx context.Context,
	path string,
	store service.StoryStore,
	txManager service.TransactionManager,
	logger *slog.Logger,
	cfg config.ViewConfig,
) error {
	svc, err := service.NewCollectionService(store, nil, txManager, logger, cfg)
	if err != nil {
		return err
	}
	if err := svc.Reload(ctx); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := svc.Export(f); err != nil {
		return err
	}

	logger.Info("export written", "path", path, "count", svc.Snapshot().TotalCount)
	return nil
}

// fallbackSource returns nil when no static index is configured.
func fallbackSource(cfg config.FallbackConfig, logger *slog.Logger) service.FallbackSource {
	if cfg.BaseURL == "" {
		return nil
	}
	return static.New(static.Config{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	}, logger)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
