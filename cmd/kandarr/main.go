package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"kandarr/internal/api"
	"kandarr/internal/classify"
	"kandarr/internal/config"
	"kandarr/internal/coordinator"
	"kandarr/internal/enrich"
	"kandarr/internal/models"
	"kandarr/internal/newcontent"
	"kandarr/internal/pool"
	"kandarr/internal/queue"
	"kandarr/internal/ratelimit"
	"kandarr/internal/scheduler"
	"kandarr/internal/services/jikan"
	"kandarr/internal/services/omdb"
	"kandarr/internal/services/openlibrary"
	"kandarr/internal/services/rawg"
	"kandarr/internal/services/tmdb"
	"kandarr/internal/utils"
	"kandarr/internal/validate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Kandarr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Register per-provider rate limits
	limiter := ratelimit.NewLimiter(logger)
	limiter.Register(tmdb.ProviderName, cfg.TMDBRateLimit, 2)
	limiter.Register(omdb.ProviderName, cfg.OMDBRateLimit, 1)
	limiter.Register(jikan.ProviderName, cfg.JikanRateLimit, 1)
	limiter.Register(openlibrary.ProviderName, cfg.OpenLibraryRateLimit, 1)
	limiter.Register(rawg.ProviderName, cfg.RAWGRateLimit, 1)

	// 5. Initialize external metadata clients
	tmdbClient, err := tmdb.NewClient(cfg, limiter, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	logger.Info("TMDB client initialized")

	omdbClient := omdb.NewClient(cfg, limiter, logger)
	if omdbClient != nil {
		logger.Info("OMDB client initialized")
	} else {
		logger.Info("No OMDB key configured, skipping secondary ratings")
	}

	jikanClient := jikan.NewClient(cfg, limiter, logger)
	openlibraryClient := openlibrary.NewClient(cfg, limiter, logger)

	rawgClient, err := rawg.NewClient(cfg, limiter, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RAWG client: %w", err)
	}
	logger.Info("Metadata clients initialized")

	// 6. Assemble detection and enrichment
	orchestrator, err := classify.NewDefaultOrchestrator(classify.OrchestratorConfig{
		Threshold:  cfg.DetectionThreshold,
		Concurrent: cfg.ClassifierConcurrent,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize detection orchestrator: %w", err)
	}

	providers := []enrich.Provider{
		enrich.NewTVProvider(tmdbClient, omdbClient, logger),
		enrich.NewMovieProvider(tmdbClient, omdbClient, logger),
		enrich.NewAnimeProvider(jikanClient, logger),
		enrich.NewBookProvider(openlibraryClient, logger),
		enrich.NewGameProvider(rawgClient, logger),
	}
	pipeline := validate.NewPipeline(logger)
	cache := enrich.NewCache(cfg.CacheTTL)
	service := enrich.NewService(orchestrator, providers, pipeline, cache, logger)
	logger.Info("Enrichment service initialized")

	// 7. Wire the queue, the pool and the coordinator
	taskQueue := queue.New(queue.Config{
		MaxSize:     cfg.QueueMaxSize,
		Retention:   cfg.QueueRetention,
		MaxAttempts: cfg.MaxAttempts,
	}, logger)
	workerPool := pool.New(pool.Config{
		MinWorkers:  cfg.PoolMinWorkers,
		MaxWorkers:  cfg.PoolMaxWorkers,
		IdleTimeout: cfg.PoolIdleTimeout,
	}, logger)
	coord := coordinator.New(taskQueue, workerPool, service, db, limiter, cfg.WaitTimeout, logger)
	coord.Start()
	defer coord.Shutdown(context.Background())

	// 8. Start the new-content scheduler
	sched := scheduler.NewScheduler(newcontent.NewOrchestrator(logger), db, scheduler.Config{
		ScanCron:   cfg.ScanCron,
		ScanWindow: cfg.ScanWindow,
		Retention:  cfg.Retention,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 9. Initialize HTTP server
	server := api.NewServer(cfg, coord, sched, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 10. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Kandarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Kandarr stopped")
	return nil
}
