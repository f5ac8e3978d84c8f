// Package engine orchestrates one feed cycle: load reference data, fetch and
// parse the feed, classify against persisted state, and apply the plan.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrolwatch/fuelsync/internal/feed"
	"github.com/petrolwatch/fuelsync/internal/models"
	"github.com/petrolwatch/fuelsync/internal/parser"
	"github.com/petrolwatch/fuelsync/internal/reconcile"
	"github.com/petrolwatch/fuelsync/internal/refdata"
)

// FeedSource fetches the raw feed envelope.
type FeedSource interface {
	FetchLatest(ctx context.Context) (*feed.Envelope, error)
	FetchForDate(ctx context.Context, date time.Time) (*feed.Envelope, error)
}

// Store combines the persisted-state reads the classifier needs with the
// bulk writes that apply a plan.
type Store interface {
	reconcile.StateSource

	InsertStations(ctx context.Context, stations []models.Station) (map[int]int64, error)
	UpdateStations(ctx context.Context, stations []models.Station) error
	InsertAvailability(ctx context.Context, links []models.FuelLink) (int64, error)
	InsertPrices(ctx context.Context, prices []models.FuelPrice) (int64, error)
	UpdatePrices(ctx context.Context, prices []models.FuelPrice) error
	HasPricesForDate(ctx context.Context, date time.Time) (bool, error)
}

// MetricsSink receives the outcome of each run. Implemented by the HTTP
// package's Prometheus metrics.
type MetricsSink interface {
	RecordRun(stats reconcile.StatsSnapshot, success bool)
}

// Report is the structured outcome of one run, for logging and the status
// endpoint.
type Report struct {
	AsOf     time.Time
	DryRun   bool
	Stats    reconcile.StatsSnapshot
	Failures []*parser.ParseError
	Plan     *reconcile.Plan
}

// Engine runs feed cycles. One cycle is a single logical unit of work; runs
// never overlap because the scheduler serializes them.
type Engine struct {
	feed    FeedSource
	store   Store
	refdata *refdata.Provider
	workers int
	logger  zerolog.Logger

	mu         sync.RWMutex
	metrics    MetricsSink
	lastReport *Report
}

// New creates an Engine.
func New(feedSource FeedSource, store Store, refProvider *refdata.Provider, parseWorkers int, logger zerolog.Logger) *Engine {
	return &Engine{
		feed:    feedSource,
		store:   store,
		refdata: refProvider,
		workers: parseWorkers,
		logger:  logger.With().Str("component", "engine").Logger(),
	}
}

// SetMetrics wires a metrics sink. Safe to call before the first run only.
func (e *Engine) SetMetrics(m MetricsSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// LastReport returns the report of the most recent run, or nil.
func (e *Engine) LastReport() *Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastReport
}

// AlreadyIngested reports whether price facts for the date are persisted.
func (e *Engine) AlreadyIngested(ctx context.Context, date time.Time) (bool, error) {
	return e.store.HasPricesForDate(ctx, dateOnly(date))
}

// Run executes one feed cycle for asOf. With dryRun the plan is computed but
// not applied. Every failure mode comes back as a typed error; partial
// progress on apply failure is logged, not rolled back.
func (e *Engine) Run(ctx context.Context, asOf time.Time, dryRun bool) (*Report, error) {
	asOf = dateOnly(asOf)
	stats := reconcile.NewRunStats()

	report, err := e.run(ctx, asOf, dryRun, stats)
	stats.Finish(err)

	if report == nil {
		report = &Report{AsOf: asOf, DryRun: dryRun}
	}
	report.Stats = stats.Snapshot()

	e.mu.Lock()
	e.lastReport = report
	metrics := e.metrics
	e.mu.Unlock()

	if metrics != nil {
		metrics.RecordRun(report.Stats, err == nil)
	}

	if err != nil {
		e.logger.Error().Err(err).Str("asOf", asOf.Format("2006-01-02")).Msg("run failed")
		return report, err
	}

	e.logger.Info().
		Str("asOf", asOf.Format("2006-01-02")).
		Bool("dryRun", dryRun).
		Int("parsed", report.Stats.RecordsParsed).
		Int("failed", report.Stats.RecordsFailed).
		Int("newStations", report.Stats.NewStations).
		Int("stationsUpdated", report.Stats.StationsUpdated).
		Int("pricesInserted", report.Stats.PricesInserted).
		Int("pricesUpdated", report.Stats.PricesUpdated).
		Msg("run completed")
	return report, nil
}

func (e *Engine) run(ctx context.Context, asOf time.Time, dryRun bool, stats *reconcile.RunStats) (*Report, error) {
	tables, err := e.refdata.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading reference data: %w", err)
	}

	fetchStart := time.Now()
	envelope, err := e.fetch(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	stats.RecordFetch(time.Since(fetchStart))

	parseStart := time.Now()
	snapshot, err := parser.NewFeedParser(tables, e.workers, e.logger).Parse(envelope, asOf)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	stats.RecordParse(snapshot.Total, snapshot.Parsed, snapshot.Failed, time.Since(parseStart))

	classifyStart := time.Now()
	plan, err := reconcile.NewClassifier(e.store, e.logger).Classify(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("classifying snapshot: %w", err)
	}
	stats.RecordPlan(plan, time.Since(classifyStart))

	report := &Report{AsOf: asOf, DryRun: dryRun, Failures: snapshot.Failures, Plan: plan}

	if dryRun {
		e.logger.Info().Msg("dry run, skipping persistence")
		return report, nil
	}

	applyStart := time.Now()
	if err := e.apply(ctx, plan); err != nil {
		return report, fmt.Errorf("applying plan: %w", err)
	}
	stats.RecordApply(time.Since(applyStart))

	return report, nil
}

// fetch uses the live endpoint for today's snapshot and the historical
// endpoint otherwise.
func (e *Engine) fetch(ctx context.Context, asOf time.Time) (*feed.Envelope, error) {
	if asOf.Equal(dateOnly(time.Now())) {
		return e.feed.FetchLatest(ctx)
	}
	return e.feed.FetchForDate(ctx, asOf)
}

// apply persists the plan with sequential bulk calls. Stations go first so
// that availability and price facts always reference an existing station.
func (e *Engine) apply(ctx context.Context, plan *reconcile.Plan) error {
	ids, err := e.store.InsertStations(ctx, plan.NewStations)
	if err != nil {
		return fmt.Errorf("inserting stations: %w", err)
	}

	links := make([]models.FuelLink, 0, len(plan.AvailabilityToInsert))
	prices := make([]models.FuelPrice, 0, len(plan.PricesToInsert))

	// New stations carry their full fact sets; their children pick up the
	// internal ids assigned by the insert.
	for _, st := range plan.NewStations {
		id, ok := ids[st.ExternalCode]
		if !ok {
			e.logger.Warn().Int("station", st.ExternalCode).Msg("no internal id assigned, skipping facts")
			continue
		}
		for _, p := range st.Prices {
			p.StationID = id
			prices = append(prices, p)
			links = append(links, models.FuelLink{StationID: id, FuelTypeID: p.FuelTypeID})
		}
	}
	links = append(links, plan.AvailabilityToInsert...)
	prices = append(prices, plan.PricesToInsert...)

	if _, err := e.store.InsertAvailability(ctx, links); err != nil {
		return fmt.Errorf("inserting availability: %w", err)
	}
	if _, err := e.store.InsertPrices(ctx, prices); err != nil {
		return fmt.Errorf("inserting prices: %w", err)
	}
	if err := e.store.UpdateStations(ctx, plan.StationsToUpdate); err != nil {
		return fmt.Errorf("updating stations: %w", err)
	}
	if err := e.store.UpdatePrices(ctx, plan.PricesToUpdate); err != nil {
		return fmt.Errorf("updating prices: %w", err)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
