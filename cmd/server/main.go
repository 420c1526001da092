package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bandvault/bandvault/internal/config"
	"github.com/bandvault/bandvault/internal/database"
	"github.com/bandvault/bandvault/internal/imports"
	"github.com/bandvault/bandvault/internal/logging"
	"github.com/bandvault/bandvault/internal/repository"
	"github.com/bandvault/bandvault/internal/storage"
	"github.com/bandvault/bandvault/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"storage_endpoint", cfg.Storage.Endpoint,
		"import_max_file_size", cfg.Import.MaxFileSize,
	)

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	if err := database.Migrate(pool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	objects := storage.New(storage.NewClient(cfg.Storage), cfg.Storage.Bucket)
	if err := objects.EnsureBucket(ctx); err != nil {
		slog.Error("failed to prepare storage bucket", "error", err)
		os.Exit(1)
	}

	store := repository.NewStore(pool)
	service := imports.NewService(store, objects, imports.Options{
		MaxFileSize:   cfg.Import.MaxFileSize,
		QueueCapacity: cfg.Import.QueueCapacity,
	})

	// The worker runs on its own context so in-flight imports survive
	// request cancellation and are only stopped by shutdown.
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	service.Start(workerCtx)

	server := web.NewServer(service, web.Options{
		Addr:         cfg.Server.Addr(),
		MaxFileSize:  cfg.Import.MaxFileSize,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests first, then drain the import queue.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := service.Stop(shutdownCtx); err != nil {
			slog.Warn("imports did not drain in time", "error", err)
		}
		cancelWorker()
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
