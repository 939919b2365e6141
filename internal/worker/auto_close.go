package worker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/procurekit/procurement-service/internal/persistence"
)

// Reaper closes tickets whose confirmation window has lapsed.
type Reaper interface {
	AutoCloseExpired(ctx context.Context) (int, error)
}

// Locker elects a single sweeper across replicas. TryLock returns a nil
// lease when another holder has the lock.
type Locker interface {
	TryLock(ctx context.Context) (*persistence.Lease, error)
}

// SweepResult reports one scheduler run.
type SweepResult struct {
	Closed  int
	Skipped bool
}

// AutoCloseScheduler runs the reaper on a fixed interval and on demand. A
// sweep only runs while this replica holds the lock; the reaper itself is
// idempotent, so a lost lock costs duplicate work, never double closes.
type AutoCloseScheduler struct {
	reaper   Reaper
	lock     Locker
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  atomic.Bool
}

// NewAutoCloseScheduler builds the scheduler.
func NewAutoCloseScheduler(reaper Reaper, lock Locker, interval time.Duration, logger *zap.Logger) *AutoCloseScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &AutoCloseScheduler{
		reaper:   reaper,
		lock:     lock,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the ticker loop in the background.
func (s *AutoCloseScheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("auto-close scheduler started", zap.Duration("interval", s.interval))
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					s.logger.Error("auto-close sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *AutoCloseScheduler) Stop() {
	if !s.started.Load() {
		return
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
}

// RunOnce performs one sweep if the lock can be taken.
func (s *AutoCloseScheduler) RunOnce(ctx context.Context) (SweepResult, error) {
	if s.lock != nil {
		lease, err := s.lock.TryLock(ctx)
		if err != nil {
			return SweepResult{}, err
		}
		if lease == nil {
			s.logger.Debug("auto-close sweep skipped; another instance holds the lock")
			return SweepResult{Skipped: true}, nil
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("auto-close lock release failed", zap.Error(err))
			}
		}()
	}

	closed, err := s.reaper.AutoCloseExpired(ctx)
	return SweepResult{Closed: closed}, err
}
