package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/fileopen/internal/config"
	"github.com/JonMunkholm/fileopen/internal/core"
	"github.com/JonMunkholm/fileopen/internal/logging"
	"github.com/JonMunkholm/fileopen/internal/metrics"
	"github.com/JonMunkholm/fileopen/internal/store"
	"github.com/JonMunkholm/fileopen/internal/transcode"
	"github.com/JonMunkholm/fileopen/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"root_dir", cfg.Load.RootDir,
		"confine_to_root", cfg.Load.ConfineToRoot,
		"load_max_concurrent", cfg.Load.MaxConcurrent,
		"history_enabled", cfg.Database.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// History is optional; a nil store disables it.
	var history core.HistoryStore
	if cfg.Database.Enabled() {
		st, err := store.Open(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create history schema", "error", err)
			os.Exit(1)
		}
		history = st
	}

	m := metrics.New()
	m.CountCharsetFallbacks()

	service, err := core.NewService(core.ServiceConfig{
		RootDir:       cfg.Load.RootDir,
		ConfineToRoot: cfg.Load.ConfineToRoot,
		MaxConcurrent: cfg.Load.MaxConcurrent,
		MaxWait:       cfg.Load.MaxWaitTime,
		Loader: core.Loader{
			Transcoder: transcode.Transcoder{
				InputSize:        cfg.Transcode.InputSize,
				IntermediateSize: cfg.Transcode.IntermediateSize,
				OutputSize:       cfg.Transcode.OutputSize,
			},
			Strict:      cfg.Load.StrictEncoding,
			MaxFileSize: cfg.Load.MaxFileSize,
		},
	}, history, m)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}
	m.TrackActiveLoads(func() int { return service.LimiterStatus().Active })

	slog.Info("serving files", "root", service.RootDir())

	server := web.NewServer(service, cfg, m.Handler())

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go service.StartHistoryPurge(jobCtx, core.PurgeConfig{
		RetentionDays: cfg.History.RetentionDays,
		CheckInterval: cfg.History.PurgeInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for in-flight loads (with timeout)
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for loads to complete", "active", status.Active)
			if err := service.WaitForLoads(shutdownCtx); err != nil {
				slog.Warn("loads did not complete in time", "error", err)
			} else {
				slog.Info("all loads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
