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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prudhvinik1/deltasync/internal/config"
	"github.com/prudhvinik1/deltasync/internal/database"
	"github.com/prudhvinik1/deltasync/internal/handlers"
	"github.com/prudhvinik1/deltasync/internal/metrics"
	"github.com/prudhvinik1/deltasync/internal/middleware"
	"github.com/prudhvinik1/deltasync/internal/models"
	"github.com/prudhvinik1/deltasync/internal/registry"
	"github.com/prudhvinik1/deltasync/internal/repositories"
	"github.com/prudhvinik1/deltasync/internal/services"
	"golang.org/x/sync/errgroup"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defs, err := registry.LoadDefinitions(cfg.EntitiesFile)
	if err != nil {
		return err
	}

	factory, closeStore, err := openEntityStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg, err := registry.Build(defs, factory)
	if err != nil {
		return err
	}
	if err := reg.Verify(ctx); err != nil {
		return err
	}
	logger.Info("entity registry built", "entity_types", reg.EntityTypes(), "driver", cfg.StorageDriver)

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	syncMetrics := metrics.NewSyncMetrics(promRegistry)

	tombstones := repositories.NewRedisTombstoneRepository(redisClient, cfg.TombstoneRetention, nil)
	cursors := repositories.NewRedisCursorRepository(redisClient, cfg.CursorTTL)
	audit := services.MultiAuditSink{services.NewLogAuditSink(logger), syncMetrics}

	applier := services.NewApplierService(reg, tombstones, audit, logger)
	changelog := services.NewChangeLogService(reg, tombstones, services.PageLimits{
		Default: cfg.DefaultPageSize,
		Max:     cfg.MaxPageSize,
	}, nil)
	syncService := services.NewSyncService(reg, applier, changelog, cursors, logger)

	router := handlers.NewRouter(handlers.RouterConfig{
		SyncHandler:    handlers.NewSyncHandler(syncService, syncMetrics, logger),
		Verifier:       middleware.NewTokenVerifier(cfg.JWTSecret),
		Metrics:        metrics.Handler(promRegistry),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openEntityStore migrates the configured backing store and returns the
// accessor factory for it.
func openEntityStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (registry.AccessorFactory, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		factory := func(def models.EntityDefinition) repositories.EntityAccessor {
			return repositories.NewSQLiteEntityRepository(db, def, nil)
		}
		return factory, func() { db.Close() }, nil

	default:
		if err := database.MigratePostgres(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		factory := func(def models.EntityDefinition) repositories.EntityAccessor {
			return repositories.NewPostgresEntityRepository(pool, def)
		}
		return factory, pool.Close, nil
	}
}
