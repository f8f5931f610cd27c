// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/taskflow/internal/platform/metrics"
)

// Sweeper periodically deletes expired sessions.
//
// Expired sessions are already rejected on lookup; sweeping only reclaims storage.
type Sweeper struct {
	sessions SessionRepository
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(sessions SessionRepository, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		metrics:  m,
		clock:    time.Now,
	}
}

// SweepOnce deletes every session that has expired by now.
func (sweeper *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	removed, err := sweeper.sessions.DeleteExpired(ctx, sweeper.clock())
	if err != nil {
		return 0, err
	}
	sweeper.metrics.RecordSweep(removed)
	return removed, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
// A non-positive interval returns at once.
func (sweeper *Sweeper) Run(ctx context.Context) {
	if sweeper.interval <= 0 {
		return
	}

	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()

	sweeper.logger.InfoContext(ctx, "session_sweeper_started", slog.Duration("interval", sweeper.interval))

	for {
		sweeper.sweep(ctx)

		select {
		case <-ctx.Done():
			sweeper.logger.InfoContext(ctx, "session_sweeper_stopped")
			return
		case <-ticker.C:
		}
	}
}

func (sweeper *Sweeper) sweep(ctx context.Context) {
	removed, err := sweeper.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			sweeper.logger.ErrorContext(ctx, "session_sweep_failed", slog.Any("error", err))
		}
		return
	}
	if removed > 0 {
		sweeper.logger.InfoContext(ctx, "session_sweep_completed", slog.Int64("removed", removed))
	}
}
