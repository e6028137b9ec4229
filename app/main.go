package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rune-reader/app/api"
	"github.com/lysyi3m/rune-reader/app/cache"
	"github.com/lysyi3m/rune-reader/app/cfg"
	"github.com/lysyi3m/rune-reader/app/database"
	"github.com/lysyi3m/rune-reader/app/feed"
	"github.com/lysyi3m/rune-reader/app/fetcher"
	"github.com/lysyi3m/rune-reader/app/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		return
	}

	setupLogger(config.Debug)

	if err := run(config); err != nil {
		slog.Error("Rune Reader stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(config *cfg.Cfg) error {
	ctx := context.Background()

	slog.Info("Starting Rune Reader", "version", config.Version, "once", config.Once)

	db, err := database.Open(ctx, config.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", config.DBPath, "migration_version", version, "dirty", dirty)

	catalog := feed.NewConfigCache(config.BoardsFile)
	if err := catalog.Run(); err != nil {
		return fmt.Errorf("failed to load board catalog: %w", err)
	}
	slog.Info("Board catalog loaded", "file", config.BoardsFile, "boards", len(catalog.GetBoards()), "sources", catalog.GetSourceCount())

	probeCache, closeCache, err := newProbeCache(ctx, config)
	if err != nil {
		return err
	}
	defer closeCache()

	client := fetcher.New(fetcher.Options{
		HTTPClient:     &http.Client{},
		Timeout:        config.FetchTimeout,
		UserAgent:      config.UserAgent,
		Seed:           config.UserAgentSeed,
		ProbeThreshold: config.ThumbnailMinBytes,
		ProbeCache:     probeCache,
	})
	slog.Debug("Fetcher configured", "user_agent", client.UserAgent(), "timeout", config.FetchTimeout)

	registry := feed.NewRegistry(client, feed.RegistryOptions{
		MaxPageBytes: config.MaxPageBytes,
		MessageLimit: config.MessageLimit,
	})

	var sink feed.DiagnosticSink
	dirSink, err := feed.NewDirSink(config.DiagnosticsDir)
	if err != nil {
		return err
	}
	if dirSink != nil {
		sink = dirSink
		slog.Info("Diagnostic dumps enabled", "dir", config.DiagnosticsDir)
	}

	boardRepo := database.NewBoardRepository(db)
	feedRepo := database.NewFeedRepository(db)
	articleRepo := database.NewArticleRepository(db)

	if config.Once {
		return runOnce(ctx, catalog, registry, boardRepo, feedRepo, articleRepo, config.WorkerCount, sink)
	}

	scheduler := tasks.NewScheduler(catalog, registry, boardRepo, feedRepo, articleRepo, tasks.Options{
		WorkerCount: config.WorkerCount,
		CronSpec:    config.CronSpec,
		RunOnStart:  config.RunOnStart,
		Sink:        sink,
	})
	slog.Info("Starting scheduler", "workers", config.WorkerCount, "cron", config.CronSpec)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(catalog, boardRepo, feedRepo, articleRepo, scheduler)
	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      api.NewServer(handler, config.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}

// runOnce performs a single ingestion run. It fails only when every
// configured source failed.
func runOnce(ctx context.Context, catalog *feed.ConfigCache, registry *feed.Registry,
	boardRepo database.BoardRepository, feedRepo database.FeedRepository, articleRepo database.ArticleRepository,
	workerCount int, sink feed.DiagnosticSink) error {
	scheduler := tasks.NewScheduler(catalog, registry, boardRepo, feedRepo, articleRepo, tasks.Options{
		WorkerCount: workerCount,
		Sink:        sink,
	})
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := scheduler.RunOnce(ctx)
	if err != nil {
		return err
	}

	for _, source := range report.Sources {
		if source.State == tasks.StateFailed {
			slog.Warn("Source did not complete", "source", source.Source, "state", string(source.FailedIn), "error", source.Error)
		}
	}

	if report.AllFailed() {
		return fmt.Errorf("all %d sources failed", len(report.Sources))
	}
	return nil
}

func newProbeCache(ctx context.Context, config *cfg.Cfg) (fetcher.ProbeCache, func(), error) {
	if config.RedisAddr == "" {
		return cache.NewMemoryCache(config.ProbeCacheTTL), func() {}, nil
	}

	redisCache, err := cache.NewRedisCache(ctx, config.RedisAddr, config.ProbeCacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to probe cache: %w", err)
	}

	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			slog.Warn("Failed to close probe cache", "error", err)
		}
	}, nil
}
