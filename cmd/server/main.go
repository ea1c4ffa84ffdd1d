// Command server runs the invoice batch ingestion API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/invoicebatch/internal/config"
	"github.com/JonMunkholm/invoicebatch/internal/core"
	"github.com/JonMunkholm/invoicebatch/internal/logging"
	"github.com/JonMunkholm/invoicebatch/internal/rules"
	"github.com/JonMunkholm/invoicebatch/internal/store/postgres"
	"github.com/JonMunkholm/invoicebatch/internal/store/sqlite"
	"github.com/JonMunkholm/invoicebatch/internal/web"
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
	slog.Debug("configuration", "config", cfg.String())
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Database.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"warning_threshold", cfg.Pipeline.WarningThreshold,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	clients := core.DefaultClients()
	if len(cfg.Clients.Labels) > 0 {
		if clients, err = core.ParseClientLabels(cfg.Clients.Labels); err != nil {
			slog.Error("invalid client labels", "error", err)
			os.Exit(1)
		}
	}

	seed := cfg.Pipeline.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	simulator := rules.NewSeeded(seed, rules.WithRates(cfg.Pipeline.MinErrorRate, cfg.Pipeline.MaxErrorRate))
	slog.Info("simulator ready", "seed", seed,
		"min_rate", cfg.Pipeline.MinErrorRate, "max_rate", cfg.Pipeline.MaxErrorRate)

	service, err := core.NewService(store, simulator, core.Options{
		MaxFileSize:      cfg.Upload.MaxFileSize,
		TempDir:          cfg.Upload.TempDir,
		WarningThreshold: cfg.Pipeline.WarningThreshold,
		MaxConcurrent:    cfg.Upload.MaxConcurrent,
		MaxWaitTime:      cfg.Upload.MaxWaitTime,
		Clients:          clients,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		if status := service.UploadLimiterStatus(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		closeStore()
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore opens the configured store and returns its close function.
func openStore(ctx context.Context, db config.DatabaseConfig) (core.Store, func(), error) {
	switch db.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(db.URL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("opened sqlite store", "path", db.URL)
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("failed to close sqlite store", "error", err)
			}
		}, nil

	case config.DriverPostgres:
		s, err := postgres.Open(ctx, db.URL, postgres.PoolConfig{
			MaxConns:        db.MaxConns,
			MinConns:        db.MinConns,
			MaxConnLifetime: db.MaxConnLifetime,
			MaxConnIdleTime: db.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		// Log which database we connected to
		if u, err := url.Parse(db.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", db.Driver)
	}
}
