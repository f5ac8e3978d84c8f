package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrolwatch/fuelsync/internal/models"
	"github.com/petrolwatch/fuelsync/internal/parser"
)

// Classifier diffs a parsed snapshot against the persisted state.
type Classifier struct {
	source StateSource
	logger zerolog.Logger
}

// NewClassifier creates a Classifier reading persisted state from source.
func NewClassifier(source StateSource, logger zerolog.Logger) *Classifier {
	return &Classifier{
		source: source,
		logger: logger.With().Str("component", "reconcile").Logger(),
	}
}

// Classify partitions the snapshot's stations, availability links, and price
// facts into insert/update/no-op buckets. The external code is the join key
// between feed and storage; internal ids never appear in the feed and are
// carried over from the persisted counterpart here. Classification is
// single-threaded: it needs one globally consistent view of persisted state.
func (c *Classifier) Classify(ctx context.Context, snapshot *parser.Snapshot) (*Plan, error) {
	start := time.Now()

	persisted, err := c.source.FindAllStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching persisted stations: %w", err)
	}

	byCode := make(map[int]models.Station, len(persisted))
	for _, s := range persisted {
		byCode[s.ExternalCode] = s
	}

	plan := &Plan{AsOf: snapshot.AsOf}
	var existing []models.Station
	var existingIDs []int64

	for _, station := range snapshot.Stations {
		counterpart, ok := byCode[station.ExternalCode]
		if !ok {
			plan.NewStations = append(plan.NewStations, station)
			continue
		}

		station.ID = counterpart.ID
		for i := range station.Prices {
			station.Prices[i].StationID = counterpart.ID
		}
		existing = append(existing, station)
		existingIDs = append(existingIDs, counterpart.ID)

		if station.SameAttributes(counterpart) {
			plan.Unchanged++
		} else {
			plan.StationsToUpdate = append(plan.StationsToUpdate, station)
		}
	}

	if err := c.classifyAvailability(ctx, plan, existing, existingIDs); err != nil {
		return nil, err
	}
	if err := c.classifyPrices(ctx, plan, snapshot.AsOf, existing, existingIDs); err != nil {
		return nil, err
	}

	c.logger.Info().
		Int("newStations", len(plan.NewStations)).
		Int("stationsToUpdate", len(plan.StationsToUpdate)).
		Int("unchanged", plan.Unchanged).
		Int("availabilityToInsert", len(plan.AvailabilityToInsert)).
		Int("pricesToInsert", len(plan.PricesToInsert)).
		Int("pricesToUpdate", len(plan.PricesToUpdate)).
		Dur("duration", time.Since(start)).
		Msg("classified snapshot")

	return plan, nil
}

// classifyAvailability grows the (station, fuel) membership set for existing
// stations. Links are never updated or removed.
func (c *Classifier) classifyAvailability(ctx context.Context, plan *Plan, existing []models.Station, existingIDs []int64) error {
	if len(existing) == 0 {
		return nil
	}

	links, err := c.source.FindAvailability(ctx, existingIDs)
	if err != nil {
		return fmt.Errorf("fetching persisted availability: %w", err)
	}

	have := make(map[models.FuelLink]struct{}, len(links))
	for _, l := range links {
		have[l] = struct{}{}
	}

	for _, station := range existing {
		for _, fuelID := range station.FuelIDs() {
			link := models.FuelLink{StationID: station.ID, FuelTypeID: fuelID}
			if _, ok := have[link]; !ok {
				plan.AvailabilityToInsert = append(plan.AvailabilityToInsert, link)
			}
		}
	}
	return nil
}

// classifyPrices compares the as-of date's price facts for existing stations.
// Equal prices are dropped silently; that is the common case day to day.
func (c *Classifier) classifyPrices(ctx context.Context, plan *Plan, asOf time.Time, existing []models.Station, existingIDs []int64) error {
	if len(existing) == 0 {
		return nil
	}

	persisted, err := c.source.FindPrices(ctx, asOf, existingIDs)
	if err != nil {
		return fmt.Errorf("fetching persisted prices: %w", err)
	}

	type key struct {
		stationID int64
		fuelID    int64
	}
	have := make(map[key]float64, len(persisted))
	for _, p := range persisted {
		have[key{p.StationID, p.FuelTypeID}] = p.Price
	}

	for _, station := range existing {
		for _, price := range station.Prices {
			current, ok := have[key{price.StationID, price.FuelTypeID}]
			switch {
			case !ok:
				plan.PricesToInsert = append(plan.PricesToInsert, price)
			case current != price.Price:
				plan.PricesToUpdate = append(plan.PricesToUpdate, price)
			}
		}
	}
	return nil
}
