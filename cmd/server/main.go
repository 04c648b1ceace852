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

	"example.com/bill-tracker/backend/internal/config"
	"example.com/bill-tracker/backend/internal/database"
	"example.com/bill-tracker/backend/internal/logging"
	"example.com/bill-tracker/backend/internal/metrics"
	"example.com/bill-tracker/backend/internal/notifications"
	"example.com/bill-tracker/backend/internal/recurrence"
	"example.com/bill-tracker/backend/internal/repository"
	"example.com/bill-tracker/backend/internal/repository/memory"
	"example.com/bill-tracker/backend/internal/repository/mongodb"
	"example.com/bill-tracker/backend/internal/repository/postgres"
	"example.com/bill-tracker/backend/internal/server"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.IsLocal(), cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", slog.String("backend", cfg.Storage.Backend), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Auth.SkipAuth {
		logger.Warn("authentication bypass enabled", slog.String("user", cfg.Auth.DevUserEmail))
	}

	hub := notifications.NewHub()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	billService := server.NewBillService(cfg, logger, store, hub, m)
	e := server.New(cfg, logger, server.Deps{
		Store:   store,
		Bills:   billService,
		Hub:     hub,
		Metrics: m,
	})
	httpServer := server.NewHTTPServer(cfg.Server, e)

	if cfg.Recurrence.Interval > 0 {
		scheduler := recurrence.NewScheduler(billService, cfg.Recurrence.Interval, logger)
		go scheduler.Run(ctx)
	}

	go func() {
		logger.Info("http server started", slog.String("addr", httpServer.Addr), slog.String("storage", cfg.Storage.Backend))
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return repository.Store{}, err
		}
		if cfg.Database.Migrate {
			if err := database.Migrate(pool); err != nil {
				pool.Close()
				return repository.Store{}, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("database migrations applied")
		}
		return postgres.NewStore(pool), nil
	case config.BackendMongo:
		client, err := database.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return repository.Store{}, err
		}
		indexCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
		defer cancel()
		store, err := mongodb.NewStore(indexCtx, client, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return repository.Store{}, err
		}
		return store, nil
	case config.BackendMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	default:
		return repository.Store{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
