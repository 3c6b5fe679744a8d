package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/donorcrm/internal/config"
	"github.com/JonMunkholm/donorcrm/internal/core"
	_ "github.com/JonMunkholm/donorcrm/internal/core/entities" // Register entity types
	"github.com/JonMunkholm/donorcrm/internal/logging"
	"github.com/JonMunkholm/donorcrm/internal/metrics"
	"github.com/JonMunkholm/donorcrm/internal/store/postgres"
	"github.com/JonMunkholm/donorcrm/internal/web"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())
	if cfg.Auth.Disabled {
		slog.Warn("authentication disabled; every request runs as admin", "user", cfg.Auth.DevUser)
	}

	ctx := context.Background()
	store, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		slog.Info("schema applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var service *core.Service
	m := metrics.New(reg, func() int { return service.ActiveImports() })

	service = core.NewService(store, core.Options{
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportMaxWait:        cfg.Import.MaxWaitTime,
		ImportTimeout:        cfg.Import.Timeout,
		ErrorLimit:           cfg.Import.ErrorLimit,
		Recorder:             m,
	})

	for _, def := range service.Definitions() {
		slog.Debug("entity registered", "type", def.Type, "fields", len(def.Fields))
	}

	server := web.NewServer(service, cfg,
		web.WithMetrics(m),
		web.WithHealthCheck(store.Ping),
	)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		RetentionDays: cfg.Audit.RetentionDays,
		BatchSize:     cfg.Audit.BatchSize,
		CheckInterval: cfg.Audit.CheckInterval,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.ActiveImports(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
