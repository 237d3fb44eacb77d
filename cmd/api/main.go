package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pulse/api/internal/app"
	"pulse/api/internal/cache"
	"pulse/api/internal/config"
	"pulse/api/internal/logging"
	"pulse/api/internal/metrics"
	"pulse/api/internal/search"
	"pulse/api/internal/snapshot"
	"pulse/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()
	deps := app.Dependencies{
		Metrics: metrics.NewCollector("pulse"),
		Logger:  logger,
	}

	var (
		dataStore app.DataStore
		db        *sql.DB
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		dataStore = store.NewMemoryStore()
	default:
		var err error
		db, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir, logger); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		dataStore = store.NewPostgresStore(db)
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := cache.NewRedisStore(cfg.RedisURL, cfg.InterestTTL, cfg.DraftTTL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		logger.Info("using redis for interest cache and drafts")
		deps.Cache = redisStore
	} else {
		logger.Info("using process memory for interest cache and drafts")
		deps.Cache = cache.NewMemory(cfg.InterestTTL, cfg.DraftTTL)
	}

	var (
		engine   search.Engine
		fallback search.Searcher
		pgfts    *search.PgFTS
	)
	if db != nil {
		pgfts = search.NewPgFTS(db)
		fallback = pgfts
	}
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		engine = meiliClient
	}
	searchService := search.NewService(engine, fallback, logger)
	defer searchService.Wait()
	deps.Search = searchService
	if engine != nil && pgfts != nil {
		go reindexWhenHealthy(ctx, engine, pgfts, searchService, logger)
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archive, err := snapshot.Open(ctx, snapshot.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Warn("snapshot archive unavailable", zap.Error(err))
		} else {
			deps.Snapshots = archive
		}
	}

	service := app.New(cfg, dataStore, deps)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pulse api listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

// reindexWhenHealthy pushes every active topic into Meilisearch once its
// health check passes, so the index recovers from downtime.
func reindexWhenHealthy(ctx context.Context, engine search.Engine, pgfts *search.PgFTS, searchService *search.Service, logger *zap.Logger) {
	deadline := time.Now().Add(time.Minute)
	for !engine.Healthy() {
		if time.Now().After(deadline) {
			logger.Warn("meilisearch not healthy, skipping startup reindex")
			return
		}
		time.Sleep(2 * time.Second)
	}
	topics, err := pgfts.LoadActiveTopics(ctx)
	if err != nil {
		logger.Warn("load topics for reindex", zap.Error(err))
		return
	}
	searchService.Reindex(topics)
	logger.Info("search index rebuilt", zap.Int("topics", len(topics)))
}
