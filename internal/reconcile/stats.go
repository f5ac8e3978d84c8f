package reconcile

import (
	"sync"
	"time"
)

// RunStats accumulates counts and timings through one feed cycle.
type RunStats struct {
	mu sync.RWMutex

	StartedAt  time.Time
	FinishedAt *time.Time

	RecordsTotal  int
	RecordsParsed int
	RecordsFailed int

	NewStations          int
	StationsUpdated      int
	StationsUnchanged    int
	AvailabilityInserted int
	PricesInserted       int
	PricesUpdated        int

	FetchDuration    time.Duration
	ParseDuration    time.Duration
	ClassifyDuration time.Duration
	ApplyDuration    time.Duration

	LastError *string
}

// StatsSnapshot is a copy of RunStats safe to hand across goroutines.
type StatsSnapshot struct {
	StartedAt  time.Time
	FinishedAt *time.Time

	RecordsTotal  int
	RecordsParsed int
	RecordsFailed int

	NewStations          int
	StationsUpdated      int
	StationsUnchanged    int
	AvailabilityInserted int
	PricesInserted       int
	PricesUpdated        int

	FetchDuration    time.Duration
	ParseDuration    time.Duration
	ClassifyDuration time.Duration
	ApplyDuration    time.Duration

	LastError *string
}

// NewRunStats starts a stats accumulator for a run beginning now.
func NewRunStats() *RunStats {
	return &RunStats{StartedAt: time.Now()}
}

// RecordParse stores the parse-phase counters.
func (s *RunStats) RecordParse(total, parsed, failed int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RecordsTotal = total
	s.RecordsParsed = parsed
	s.RecordsFailed = failed
	s.ParseDuration = duration
}

// RecordPlan stores the classification bucket sizes.
func (s *RunStats) RecordPlan(plan *Plan, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NewStations = len(plan.NewStations)
	s.StationsUpdated = len(plan.StationsToUpdate)
	s.StationsUnchanged = plan.Unchanged
	s.AvailabilityInserted = len(plan.AvailabilityToInsert)
	s.PricesInserted = len(plan.PricesToInsert)
	s.PricesUpdated = len(plan.PricesToUpdate)
	s.ClassifyDuration = duration
}

// RecordFetch stores the feed fetch timing.
func (s *RunStats) RecordFetch(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FetchDuration = duration
}

// RecordApply stores the persistence timing.
func (s *RunStats) RecordApply(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ApplyDuration = duration
}

// Finish marks the run complete, recording the failure if any.
func (s *RunStats) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.FinishedAt = &now
	if err != nil {
		msg := err.Error()
		s.LastError = &msg
	}
}

// Snapshot returns a consistent copy of the accumulated values.
func (s *RunStats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		StartedAt:            s.StartedAt,
		FinishedAt:           s.FinishedAt,
		RecordsTotal:         s.RecordsTotal,
		RecordsParsed:        s.RecordsParsed,
		RecordsFailed:        s.RecordsFailed,
		NewStations:          s.NewStations,
		StationsUpdated:      s.StationsUpdated,
		StationsUnchanged:    s.StationsUnchanged,
		AvailabilityInserted: s.AvailabilityInserted,
		PricesInserted:       s.PricesInserted,
		PricesUpdated:        s.PricesUpdated,
		FetchDuration:        s.FetchDuration,
		ParseDuration:        s.ParseDuration,
		ClassifyDuration:     s.ClassifyDuration,
		ApplyDuration:        s.ApplyDuration,
		LastError:            s.LastError,
	}
}
