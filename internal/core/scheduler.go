package core

// scheduler.go runs background maintenance for the history table.
//
// The purge job deletes entries older than the retention period. It runs
// once at start and then every CheckInterval until the context is
// cancelled. Failures are logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// PurgeConfig holds configuration for the history purge scheduler.
type PurgeConfig struct {
	RetentionDays int           // Days to keep history (default: 30)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c PurgeConfig) withDefaults() PurgeConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartHistoryPurge blocks, purging old history entries periodically,
// until ctx is cancelled. It returns at once when history is disabled.
func (s *Service) StartHistoryPurge(ctx context.Context, cfg PurgeConfig) {
	if s.history == nil {
		return
	}
	cfg = cfg.withDefaults()

	slog.Info("history purge scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval.String(),
	)

	s.runPurgeJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurgeJob(ctx, cfg)
		}
	}
}

// runPurgeJob performs one purge cycle.
func (s *Service) runPurgeJob(ctx context.Context, cfg PurgeConfig) {
	start := time.Now()

	purged, err := s.history.PurgeOlderThan(ctx, cfg.RetentionDays)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return
	}
	slog.Info("purged history entries",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
