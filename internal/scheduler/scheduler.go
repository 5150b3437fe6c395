package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Verifier checks a local projection against its source of truth.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Scheduler runs Verify on a fixed interval so a missed change event is
// corrected within one period.
type Scheduler struct {
	verifier Verifier
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewScheduler(verifier Verifier, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		verifier: verifier,
		interval: interval,
		timeout:  time.Minute,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start blocks until ctx is done. The first check runs after one interval;
// the caller has already loaded the collection.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runVerify(ctx)
		}
	}
}

func (s *Scheduler) runVerify(ctx context.Context) {
	verifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.verifier.Verify(verifyCtx); err != nil {
		s.logger.Error("verify failed", "error", err)
	}
}
