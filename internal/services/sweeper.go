package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/brightclass/assessment-delivery/internal/repositories"
)

const DefaultSweepInterval = time.Minute

// Sweeper force-submits attempts whose wall-clock deadline passed without the
// client reporting expiry, so disconnected students still get scored.
type Sweeper struct {
	repo     repositories.Repository
	attempts AttemptService
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(repo repositories.Repository, attempts AttemptService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		repo:     repo,
		attempts: attempts,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Starting attempt expiry sweeper", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Attempt expiry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Failures on individual attempts are logged and the
// pass continues; the next tick retries them.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.repo.Attempt().GetExpiredAttempts(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to query expired attempts", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	s.logger.Info("Expiring overdue attempts", "count", len(expired))
	for _, attempt := range expired {
		if err := s.attempts.HandleTimeout(ctx, attempt.ID); err != nil {
			s.logger.Error("Failed to expire attempt",
				"attempt_id", attempt.ID,
				"error", err)
		}
	}
}
