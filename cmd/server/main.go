package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"venomshop/backend/internal/analytics"
	"venomshop/backend/internal/assistant"
	"venomshop/backend/internal/cache"
	"venomshop/backend/internal/config"
	"venomshop/backend/internal/httpapi"
	"venomshop/backend/internal/metrics"
	"venomshop/backend/internal/scheduler"
	"venomshop/backend/internal/service"
	"venomshop/backend/internal/settings"
	"venomshop/backend/internal/store"
	"venomshop/backend/internal/store/memory"
	pgstore "venomshop/backend/internal/store/postgres"
	sqlitestore "venomshop/backend/internal/store/sqlite"
	"venomshop/backend/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 3)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close error", zap.Error(err))
			}
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}
	log.Info("repository ready", zap.String("backend", cfg.StoreBackend))

	var answerCache cache.AnswerCache = cache.NewMemoryAnswerCache()
	var ranges settings.RangeStore = settings.NewFileStore(cfg.SettingsPath)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, using in-process cache and file settings", zap.Error(err))
			_ = client.Close()
		} else {
			answerCache = cache.NewRedisAnswerCache(client)
			ranges = settings.NewRedisStore(client, "")
			closers = append(closers, client.Close)
			log.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	aggregator := analytics.New(cfg.Analytics())
	var completer assistant.Completer
	if cfg.OpenRouterAPIKey != "" {
		completer = assistant.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.ModelName, "")
	} else {
		log.Info("OPENROUTER_API_KEY not set, assistant answers locally")
	}
	engine := assistant.NewEngine(
		completer,
		assistant.LocalResponder{LowStockThreshold: cfg.LowStockThreshold},
		answerCache,
		cfg.AssistantCacheTTL(),
		logger.Named(log, "assistant"),
	)

	svc := service.New(repo, aggregator, ranges, engine, recorder, logger.Named(log, "svc.ledger"))
	api := httpapi.New(svc, cfg.AllowedOrigin, registry, logger.Named(log, "http"))

	jobs := scheduler.NewScheduler(cfg.ReportCronSchedule, svc, logger.Named(log, "scheduler"))
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("inventory ledger listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

// openRepository opens the configured backend. A postgres failure is returned, never replaced by another store.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		return pg, pg.Close, nil
	case config.BackendMemory:
		return memory.NewSeeded(), nil, nil
	default:
		db, err := sqlitestore.New(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite database %s: %w", cfg.DatabasePath, err)
		}
		return db, db.Close, nil
	}
}
