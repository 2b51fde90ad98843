package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendsync/internal/engine"
	applog "spendsync/internal/log"
)

// PassRunner runs one sync pass over every user.
type PassRunner interface {
	SyncAll(ctx context.Context) (engine.SyncAllReport, error)
}

// SchedulerConfig holds configuration for the periodic sync scheduler
type SchedulerConfig struct {
	// Interval between sync passes (default: 1h)
	Interval time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{Interval: time.Hour}
}

// Scheduler runs a sync pass at start and then on every tick.
type Scheduler struct {
	runner PassRunner
	config SchedulerConfig
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(runner PassRunner, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &Scheduler{
		runner: runner,
		config: config,
		logger: applog.WithComponent(slog.Default(), applog.ComponentWorker),
	}
}

// Start begins the loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Sync scheduler started", "interval", s.config.Interval.String())
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Sync scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.runPass(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// runPass cancels the pass when Stop is called so shutdown does not wait
// for every remaining user.
func (s *Scheduler) runPass(ctx context.Context) {
	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-passCtx.Done():
		}
	}()

	_, err := s.runner.SyncAll(passCtx)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrSyncInProgress):
		s.logger.DebugContext(ctx, "Sync pass skipped, previous pass still running")
	case errors.Is(err, context.Canceled):
		s.logger.InfoContext(ctx, "Sync pass interrupted")
	default:
		s.logger.ErrorContext(ctx, "Sync pass failed", applog.FieldError, err)
	}
}
