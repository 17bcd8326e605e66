package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"flat_watcher/internal/config"
	"flat_watcher/internal/publisher"
	"flat_watcher/internal/scheduler"
	"flat_watcher/internal/server"
	"flat_watcher/internal/service"
	"flat_watcher/internal/source/bazos"
	"flat_watcher/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("opened database", "path", cfg.Database.Path)

	// Initialize stores
	listingStore := sqlite.NewListingStore(db)
	parseRunStore := sqlite.NewParseRunStore(db)
	txManager := sqlite.NewTransactionManager(db)

	// Initialize optional new-listing publisher
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbit, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbit.Close()
		pub = rabbit
	}

	// Initialize bazos source
	src := bazos.New(bazos.Config{
		BaseURL:   cfg.Scrape.BaseURL,
		PageSize:  cfg.Scrape.PageSize,
		Timeout:   cfg.Scrape.Timeout,
		PageDelay: cfg.Scrape.PageDelay,
		UserAgent: cfg.Scrape.UserAgent,
	}, logger)

	refreshService := service.NewRefreshService(
		src,
		listingStore,
		parseRunStore,
		txManager,
		pub,
		logger,
		cfg.Refresh,
	)
	queryService := service.NewQueryService(listingStore, parseRunStore, logger)

	sched := scheduler.NewScheduler(refreshService, cfg.Refresh.Interval, logger)
	srv := server.New(queryService, refreshService, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		if err := srv.Start(cfg.HTTP.Addr); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting flat watcher",
		"source", src.Name(),
		"interval", cfg.Refresh.Interval,
		"max_pages", cfg.Refresh.MaxPages,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
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
