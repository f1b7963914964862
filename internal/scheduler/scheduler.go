package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsroom/internal/domain"
)

// CycleRunner is the interface the scheduler drives.
type CycleRunner interface {
	RunCycle(ctx context.Context) *domain.CycleStats
}

// Snapshot is a point-in-time view of scheduler activity.
type Snapshot struct {
	Runs        int
	Errors      int
	LastRunAt   time.Time
	LastStats   *domain.CycleStats
	NextRunIn   time.Duration
}

type Scheduler struct {
	runner      CycleRunner
	interval    time.Duration
	cycleLimit  time.Duration
	runOnStart  bool
	logger      *slog.Logger

	mu        sync.Mutex
	runs      int
	errors    int
	lastRunAt time.Time
	lastStats *domain.CycleStats
}

func New(runner CycleRunner, interval time.Duration, runOnStart bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		cycleLimit: interval, // one cycle never bleeds into the next slot
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Start runs cycles until the context is cancelled. Cycles never overlap:
// the ticker only fires again after the previous run returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.interval,
		"run_on_start", s.runOnStart,
	)

	if s.runOnStart {
		s.runCycle(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleLimit)
	defer cancel()

	stats := s.runner.RunCycle(cycleCtx)

	s.mu.Lock()
	s.runs++
	if !stats.Success {
		s.errors++
	}
	s.lastRunAt = time.Now()
	s.lastStats = stats
	s.mu.Unlock()
}

// Status reports the scheduler's counters and the last cycle's stats.
func (s *Scheduler) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Runs:      s.runs,
		Errors:    s.errors,
		LastRunAt: s.lastRunAt,
		LastStats: s.lastStats,
	}
	if !s.lastRunAt.IsZero() {
		if next := s.interval - time.Since(s.lastRunAt); next > 0 {
			snap.NextRunIn = next
		}
	}
	return snap
}
