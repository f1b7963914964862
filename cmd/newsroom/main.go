package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"newsroom/internal/config"
	"newsroom/internal/curation"
	"newsroom/internal/extract"
	"newsroom/internal/imagegen"
	"newsroom/internal/pipeline"
	"newsroom/internal/publisher"
	"newsroom/internal/scheduler"
	"newsroom/internal/source/gnews"
	"newsroom/internal/source/newsapi"
	"newsroom/internal/storage/postgres"
	"newsroom/internal/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single cycle and exit")
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

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	articleStore := postgres.NewArticleStore(db)
	subscriberStore := postgres.NewSubscriberStore(db)

	var events pipeline.EventPublisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	sources := []pipeline.FetchSource{
		{
			Source: newsapi.New(newsapi.Config{
				APIKey:     cfg.Sources.NewsAPI.APIKey,
				Categories: cfg.Sources.NewsAPI.Categories,
				Timeout:    cfg.Sources.Scraper.Timeout,
			}, logger),
			Limit: cfg.Sources.NewsAPI.Count,
		},
		{
			Source: gnews.New(gnews.Config{
				APIKey:  cfg.Sources.GNews.APIKey,
				Timeout: cfg.Sources.Scraper.Timeout,
			}, logger),
			Limit: cfg.Sources.GNews.Count,
		},
	}

	extractor := extract.New(cfg.Sources.Scraper.UserAgent, cfg.Sources.Scraper.Timeout)

	llm := curation.NewClient(cfg.LLM)
	curator := curation.NewCurator(llm, logger)
	promptWriter := imagegen.NewPromptWriter(llm, logger)

	imageClient := imagegen.NewClient(imagegen.Config{
		BaseURL:     cfg.Images.BaseURL,
		Models:      cfg.Images.Models,
		MaxAttempts: cfg.Images.MaxAttempts,
		Timeout:     cfg.Images.RequestTimeout,
	}, logger)

	messenger := telegram.NewClient(cfg.Telegram.BotToken)

	pipe := pipeline.New(
		sources,
		extractor,
		articleStore,
		subscriberStore,
		curator,
		promptWriter,
		imageClient,
		messenger,
		events,
		pipeline.Config{
			CurationBatch:     cfg.Curation.BatchSize,
			IllustrationBatch: cfg.Images.BatchSize,
			DispatchBatch:     cfg.Telegram.BatchSize,
			SweepBatch:        5,
			RetryCeiling:      cfg.Images.RetryCeiling,
			ImagesEnabled:     cfg.Images.Enabled,
			OutputDir:         cfg.Images.OutputDir,
			WebsiteImage:      cfg.Images.Website,
			TelegramImage:     cfg.Images.Telegram,
			PortraitImage:     cfg.Images.Instagram,
			TelegramEnabled:   cfg.Telegram.Enabled,
			ChannelID:         cfg.Telegram.ChannelID,
			WebsiteURL:        cfg.Telegram.WebsiteURL,
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		stats := pipe.RunCycle(ctx)
		logStatusCounts(ctx, articleStore, logger)
		if !stats.Success {
			os.Exit(1)
		}
		return
	}

	interval := time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute
	sched := scheduler.New(pipe, interval, cfg.Scheduler.RunImmediately(), logger)

	logger.Info("starting newsroom",
		"interval", interval,
		"images_enabled", cfg.Images.Enabled,
		"telegram_enabled", cfg.Telegram.Enabled,
	)

	err = sched.Start(ctx)

	snap := sched.Status()
	logger.Info("scheduler summary", "runs", snap.Runs, "errors", snap.Errors)

	if err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func logStatusCounts(ctx context.Context, store *postgres.ArticleStore, logger *slog.Logger) {
	counts, err := store.CountByStatus(ctx)
	if err != nil {
		logger.Warn("failed to count articles", "error", err)
		return
	}
	attrs := make([]any, 0, len(counts)*2)
	for status, count := range counts {
		attrs = append(attrs, string(status), count)
	}
	logger.Info("article status counts", attrs...)
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
