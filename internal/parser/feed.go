package parser

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrolwatch/fuelsync/internal/feed"
	"github.com/petrolwatch/fuelsync/internal/models"
	"github.com/petrolwatch/fuelsync/internal/refdata"
)

// Feed date formats observed upstream: timestamped on the live endpoint,
// date-only on the historical one.
var feedDateLayouts = []string{"02/01/2006 15:04:05", "02/01/2006"}

// Snapshot is the outcome of parsing one full feed.
type Snapshot struct {
	AsOf     time.Time
	Stations []models.Station
	Failures []*ParseError

	// Record counts for run statistics. Total = Parsed + Failed; the
	// failure list may be longer than Failed because per-fuel errors do
	// not drop their record.
	Total  int
	Parsed int
	Failed int
}

// FeedParser validates the feed envelope and fans records out to the record
// parser.
type FeedParser struct {
	tables  *refdata.Tables
	workers int
	logger  zerolog.Logger
}

// NewFeedParser creates a FeedParser. workers <= 0 selects a default based on
// available CPUs.
func NewFeedParser(tables *refdata.Tables, workers int, logger zerolog.Logger) *FeedParser {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}
	return &FeedParser{
		tables:  tables,
		workers: workers,
		logger:  logger.With().Str("component", "parser").Logger(),
	}
}

// Parse validates the envelope and parses every record. Envelope problems
// (bad result status, missing or mismatched date, empty station list) abort
// the run; individual record failures are collected and never stop the batch.
func (fp *FeedParser) Parse(envelope *feed.Envelope, expectedDate time.Time) (*Snapshot, error) {
	if envelope.Result != feed.ResultOK {
		return nil, fmt.Errorf("%w: got %q", ErrFeedStatus, envelope.Result)
	}

	feedDate, err := parseFeedDate(envelope.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrFeedDate, envelope.Date)
	}
	asOf := dateOnly(expectedDate)
	if !dateOnly(feedDate).Equal(asOf) {
		return nil, fmt.Errorf("%w: feed says %s, expected %s",
			ErrFeedDateMismatch, feedDate.Format("2006-01-02"), asOf.Format("2006-01-02"))
	}

	if len(envelope.Stations) == 0 {
		return nil, ErrFeedEmpty
	}

	snapshot := &Snapshot{AsOf: asOf, Total: len(envelope.Stations)}
	rp := NewRecordParser(fp.tables, fp.logger)

	// Records are independent, so the parse fans out across a small worker
	// pool. Results accumulate under a single lock; order is restored by
	// external code afterwards.
	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan *feed.StationRecord)

	for i := 0; i < fp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				station, errs := rp.Parse(rec, asOf)
				mu.Lock()
				snapshot.Failures = append(snapshot.Failures, errs...)
				if station != nil {
					snapshot.Stations = append(snapshot.Stations, *station)
					snapshot.Parsed++
				} else {
					snapshot.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	for i := range envelope.Stations {
		jobs <- &envelope.Stations[i]
	}
	close(jobs)
	wg.Wait()

	sort.Slice(snapshot.Stations, func(i, j int) bool {
		return snapshot.Stations[i].ExternalCode < snapshot.Stations[j].ExternalCode
	})
	sort.Slice(snapshot.Failures, func(i, j int) bool {
		if snapshot.Failures[i].StationCode != snapshot.Failures[j].StationCode {
			return snapshot.Failures[i].StationCode < snapshot.Failures[j].StationCode
		}
		return snapshot.Failures[i].Field < snapshot.Failures[j].Field
	})

	fp.logger.Info().
		Int("total", snapshot.Total).
		Int("parsed", snapshot.Parsed).
		Int("failed", snapshot.Failed).
		Str("asOf", asOf.Format("2006-01-02")).
		Msg("parsed feed snapshot")

	return snapshot, nil
}

func parseFeedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	var lastErr error
	for _, layout := range feedDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
