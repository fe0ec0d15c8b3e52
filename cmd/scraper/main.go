package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grocerytrack/grocery-price-tracker/internal/browser"
	"github.com/grocerytrack/grocery-price-tracker/internal/cache"
	"github.com/grocerytrack/grocery-price-tracker/internal/config"
	"github.com/grocerytrack/grocery-price-tracker/internal/database"
	"github.com/grocerytrack/grocery-price-tracker/internal/matcher"
	"github.com/grocerytrack/grocery-price-tracker/internal/runs"
	"github.com/grocerytrack/grocery-price-tracker/internal/scraper"
	"github.com/grocerytrack/grocery-price-tracker/internal/updater"
)

// dryRunWriter logs the price a pass would write without touching the store.
type dryRunWriter struct {
	logger *slog.Logger
}

func (w *dryRunWriter) UpdatePrice(ctx context.Context, productName string, price float64) error {
	w.logger.Info("dry run: would update price", "product", productName, "price", price)
	return nil
}

func main() {
	var (
		useBrowser = flag.Bool("browser", false, "Drive a real browser instead of plain HTTP")
		dryRun     = flag.Bool("dry-run", false, "Match prices but do not write them")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.DBName,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    2,
		MinConns:    1,
		MaxConnLife: 5 * time.Minute,
		MaxConnIdle: 1 * time.Minute,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	scraperOpts := &scraper.Options{
		BaseURL:   cfg.Scraper.BaseURL,
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.Timeout,
		MinDelay:  cfg.Scraper.MinDelay,
		MaxDelay:  cfg.Scraper.MaxDelay,
	}

	var searcher updater.Searcher
	if *useBrowser || cfg.Scraper.UseBrowser {
		browserOpts := browser.DefaultOptions()
		browserOpts.Headless = cfg.Scraper.Headless
		browserOpts.UserAgent = cfg.Scraper.UserAgent

		b, err := browser.New(browserOpts)
		if err != nil {
			logger.Error("failed to start browser", "error", err)
			os.Exit(1)
		}
		defer b.Close()

		searcher = scraper.NewBrowserSearcher(b, scraperOpts, logger)
	} else {
		searcher = scraper.NewAldiSearcher(scraperOpts, logger)
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		searcher = cache.NewSearchCache(searcher, redisClient, cfg.Redis.CacheTTL, logger)
	}

	var writer updater.PriceWriter = db
	if *dryRun {
		writer = &dryRunWriter{logger: logger}
	}

	coordinator := updater.NewCoordinator(matcher.New(cfg.Matcher.HomeBrands), searcher, writer, logger)
	manager := runs.NewManager(db, db, coordinator, logger)

	run, report, err := manager.RunOnce(ctx)
	if err != nil {
		logger.Error("pass failed", "error", err)
		os.Exit(1)
	}

	logger.Info("pass finished",
		"run_id", run.ID,
		"processed", report.Processed,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed)

	if report.Failed > 0 {
		os.Exit(1)
	}
}
