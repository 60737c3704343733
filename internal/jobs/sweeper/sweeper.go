package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Store clears expired feature flags in bulk. The statement is idempotent,
// so overlapping or repeated sweeps are harmless.
type Store interface {
	ClearExpiredFeatures(ctx context.Context, now time.Time) (int64, error)
}

type Sweeper struct {
	store    Store
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func New(store Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		store:    store,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, fmt.Errorf("sweeper store is nil")
	}

	cleared, err := s.store.ClearExpiredFeatures(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("clear expired features: %w", err)
	}

	if cleared > 0 {
		s.logger.Info("expired product features cleared", zap.Int64("count", cleared))
	}
	return cleared, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
// A failed sweep is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("feature sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("feature sweep failed", zap.Error(err))
			}
		}
	}
}
