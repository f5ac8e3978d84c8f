// Package scheduler provides the daily trigger for feed ingestion runs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrolwatch/fuelsync/internal/engine"
)

// Scheduler runs one feed cycle per day at a fixed hour, plus an immediate
// run at startup when today's feed has not been ingested yet.
type Scheduler struct {
	engine  *engine.Engine
	runHour int
	logger  zerolog.Logger

	mu        sync.RWMutex
	nextRunAt time.Time
	lastRunAt *time.Time
	running   bool
}

// New creates a Scheduler.
func New(e *engine.Engine, runHour int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine:  e,
		runHour: runHour,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler and blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Int("runHour", s.runHour).Msg("starting scheduler")

	s.runIfNeeded(ctx)

	nextRun := s.calculateNextRunTime()
	s.setNextRun(nextRun)

	s.logger.Info().
		Time("nextRun", nextRun).
		Dur("in", time.Until(nextRun)).
		Msg("next run scheduled")

	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runCycle(ctx)

			nextRun = s.calculateNextRunTime()
			s.setNextRun(nextRun)
			s.logger.Info().Time("nextRun", nextRun).Msg("next run scheduled")
			timer.Reset(time.Until(nextRun))
		}
	}
}

// calculateNextRunTime returns today's run hour, or tomorrow's once passed.
func (s *Scheduler) calculateNextRunTime() time.Time {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.runHour, 0, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// runIfNeeded runs a cycle at startup when today's feed is missing from
// storage.
func (s *Scheduler) runIfNeeded(ctx context.Context) {
	ingested, err := s.engine.AlreadyIngested(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check if today was ingested")
		return
	}
	if ingested {
		s.logger.Info().Msg("today already ingested, skipping initial run")
		return
	}

	s.logger.Info().Msg("no data for today, running initial cycle")
	s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	if _, err := s.engine.Run(ctx, now, false); err != nil {
		s.logger.Error().Err(err).Msg("scheduled run failed")
	}
}

func (s *Scheduler) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRunAt = t
	s.mu.Unlock()
}

// NextRunAt returns the time of the next scheduled run.
func (s *Scheduler) NextRunAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunAt
}

// LastRunAt returns the time of the last run.
func (s *Scheduler) LastRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunAt
}

// IsRunning returns whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
