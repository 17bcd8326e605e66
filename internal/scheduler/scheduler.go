package scheduler

import (
	"context"
	"log/slog"
	"time"

	"flat_watcher/internal/domain"
)

// Refresher defines the operations the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) (*domain.ParseRun, error)
	Prune(ctx context.Context) (int64, error)
}

type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger
}

func NewScheduler(refresher Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs one refresh immediately and then one per interval until
// the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runRefresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	run, err := s.refresher.Refresh(refreshCtx)
	if err != nil {
		s.logger.Error("refresh failed", "error", err)
		return
	}

	if run.Status == domain.RunSuccess {
		if _, err := s.refresher.Prune(refreshCtx); err != nil {
			s.logger.Error("prune failed", "error", err)
		}
	}
}
