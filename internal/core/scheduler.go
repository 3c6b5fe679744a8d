package core

// scheduler.go runs background maintenance.
//
// Currently one job: audit retention. Entries older than RetentionDays are
// deleted in batches so a large backlog never holds a long lock. The job
// logs failures and keeps running; it never stops the application.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig configures the audit retention job.
// Zero values fall back to defaults.
type RetentionConfig struct {
	RetentionDays int           // days to keep audit entries (default: 365)
	BatchSize     int           // rows deleted per statement (default: 5000)
	CheckInterval time.Duration // how often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 365
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler prunes old audit entries immediately and then
// every CheckInterval until ctx is cancelled.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"batch_size", cfg.BatchSize,
	)

	s.PruneAudit(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.PruneAudit(ctx, cfg)
		}
	}
}

// PruneAudit deletes audit entries older than the retention window and
// returns how many were removed.
func (s *Service) PruneAudit(ctx context.Context, cfg RetentionConfig) int64 {
	cfg = cfg.withDefaults()
	start := s.now()
	cutoff := start.AddDate(0, 0, -cfg.RetentionDays)

	var total int64
	for ctx.Err() == nil {
		n, err := s.store.PruneAudit(ctx, cutoff, cfg.BatchSize)
		if err != nil {
			slog.Error("audit prune failed", "error", err, "pruned", total)
			return total
		}
		total += n
		if n < int64(cfg.BatchSize) {
			break
		}
	}

	slog.Info("audit prune completed",
		"pruned", total,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return total
}
