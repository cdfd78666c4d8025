package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marco/pubmedVault/internal/analytics"
	"github.com/marco/pubmedVault/internal/cache"
	"github.com/marco/pubmedVault/internal/config"
	"github.com/marco/pubmedVault/internal/pubmed"
)

var (
	configPath = flag.String("config", "", "Path to configuration file (optional)")
	watch      = flag.Bool("watch", false, "Reload configuration when the file changes")
	verbose    = flag.Bool("verbose", false, "Show detailed logging")
)

func main() {
	flag.Parse()

	// stdout carries protocol traffic, so all logging goes to stderr.
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	store, err := buildCache(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}

	client := pubmed.NewClient(pubmed.ClientConfig{
		APIKey:           cfg.NCBI.APIKey,
		Email:            cfg.NCBI.Email,
		RateLimit:        cfg.NCBI.RateLimit,
		MaxAttempts:      cfg.Retry.MaxAttempts,
		InitialBackoffMs: cfg.Retry.InitialBackoffMs,
		Cache:            store,
		Logger:           logger,
	})

	if *watch && *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, time.Second, func(next *config.Config) {
			client.SetRateLimit(next.NCBI.RateLimit)
			logger.Info("applied reloaded settings", "rate_limit", next.NCBI.RateLimit)
		})
		if err != nil {
			logger.Warn("config watcher unavailable", "error", err)
		} else if err := watcher.Start(); err != nil {
			logger.Warn("config watcher failed to start", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	server := newServer(client, analytics.New(client, logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("pubmed server started",
		"cache_backend", cfg.Cache.Backend,
		"rate_limit", cfg.NCBI.RateLimit,
		"api_key_set", cfg.NCBI.APIKey != "",
	)

	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("server stopped with error", "error", err)
	}

	stats := store.Stats()
	logger.Info("shutting down",
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses,
		"cache_hit_rate", stats.HitRate,
	)
	if err := store.Close(); err != nil {
		logger.Warn("cache close failed", "error", err)
	}
}

func buildCache(cfg *config.Config) (cache.Cache, error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	switch cfg.Cache.Backend {
	case "sqlite":
		return cache.NewSQLiteCache(cfg.Cache.Path, cfg.Cache.MaxSize, ttl)
	default:
		return cache.NewMemoryCache(cfg.Cache.MaxSize, ttl), nil
	}
}
