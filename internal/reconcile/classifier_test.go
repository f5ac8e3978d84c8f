package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrolwatch/fuelsync/internal/models"
	"github.com/petrolwatch/fuelsync/internal/parser"
)

const (
	fuelG95E5 int64 = 1
	fuelGOA   int64 = 2
)

var runDate = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

// fakeSource is an in-memory StateSource.
type fakeSource struct {
	stations []models.Station
	links    []models.FuelLink
	prices   []models.FuelPrice

	failStations bool
	failLinks    bool
	failPrices   bool
}

func (f *fakeSource) FindAllStations(ctx context.Context) ([]models.Station, error) {
	if f.failStations {
		return nil, errors.New("storage unavailable")
	}
	return f.stations, nil
}

func (f *fakeSource) FindAvailability(ctx context.Context, stationIDs []int64) ([]models.FuelLink, error) {
	if f.failLinks {
		return nil, errors.New("storage unavailable")
	}
	wanted := make(map[int64]bool, len(stationIDs))
	for _, id := range stationIDs {
		wanted[id] = true
	}
	var out []models.FuelLink
	for _, l := range f.links {
		if wanted[l.StationID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeSource) FindPrices(ctx context.Context, date time.Time, stationIDs []int64) ([]models.FuelPrice, error) {
	if f.failPrices {
		return nil, errors.New("storage unavailable")
	}
	wanted := make(map[int64]bool, len(stationIDs))
	for _, id := range stationIDs {
		wanted[id] = true
	}
	var out []models.FuelPrice
	for _, p := range f.prices {
		if wanted[p.StationID] && p.Date.Equal(date) {
			out = append(out, p)
		}
	}
	return out, nil
}

func baseStation(ext int, label string) models.Station {
	return models.Station{
		ExternalCode:   ext,
		Label:          label,
		Schedule:       "L-D: 24H",
		Address:        "CALLE MAYOR 1",
		Locality:       "MADRID",
		PostalCode:     28001,
		MunicipalityID: 100,
		ProvinceID:     10,
		Latitude:       40.4168,
		Longitude:      -3.7038,
		Margin:         models.MarginRight,
		Remission:      models.RemissionDealer,
		SaleType:       models.SaleTypePublic,
	}
}

func persistedStation(id int64, ext int, label string) models.Station {
	s := baseStation(ext, label)
	s.ID = id
	return s
}

func withPrices(s models.Station, prices ...models.FuelPrice) models.Station {
	s.Prices = prices
	return s
}

func price(fuelID int64, value float64) models.FuelPrice {
	return models.FuelPrice{FuelTypeID: fuelID, Date: runDate, Price: value}
}

func snapshotOf(stations ...models.Station) *parser.Snapshot {
	return &parser.Snapshot{
		AsOf:     runDate,
		Stations: stations,
		Total:    len(stations),
		Parsed:   len(stations),
	}
}

func classify(t *testing.T, src StateSource, snap *parser.Snapshot) *Plan {
	t.Helper()
	plan, err := NewClassifier(src, zerolog.Nop()).Classify(context.Background(), snap)
	require.NoError(t, err)
	return plan
}

func TestClassify_NewAndUpdatedStations(t *testing.T) {
	src := &fakeSource{
		stations: []models.Station{persistedStation(7, 1001, "Old")},
	}

	stationA := baseStation(1001, "New")
	stationB := withPrices(baseStation(2002, "CEPSA"), price(fuelG95E5, 1.459))

	plan := classify(t, src, snapshotOf(stationA, stationB))

	require.Len(t, plan.StationsToUpdate, 1)
	assert.Equal(t, int64(7), plan.StationsToUpdate[0].ID, "internal id carried over from persisted counterpart")
	assert.Equal(t, "New", plan.StationsToUpdate[0].Label)

	require.Len(t, plan.NewStations, 1)
	assert.Equal(t, 2002, plan.NewStations[0].ExternalCode)
	require.Len(t, plan.NewStations[0].Prices, 1)
	assert.Equal(t, 1.459, plan.NewStations[0].Prices[0].Price)

	// A new station's facts travel with the new-station bucket.
	assert.Empty(t, plan.PricesToInsert)
	assert.Empty(t, plan.PricesToUpdate)
	assert.Empty(t, plan.AvailabilityToInsert)
}

func TestClassify_UnchangedStationIsNoOp(t *testing.T) {
	src := &fakeSource{
		stations: []models.Station{persistedStation(7, 1001, "REPSOL")},
	}

	plan := classify(t, src, snapshotOf(baseStation(1001, "REPSOL")))

	assert.Empty(t, plan.NewStations)
	assert.Empty(t, plan.StationsToUpdate)
	assert.Equal(t, 1, plan.Unchanged)
}

func TestClassify_FieldDiffIsExact(t *testing.T) {
	mutations := map[string]func(*models.Station){
		"label":       func(s *models.Station) { s.Label = "OTHER" },
		"schedule":    func(s *models.Station) { s.Schedule = "L-V: 07-22" },
		"address":     func(s *models.Station) { s.Address = "AVENIDA SUR 2" },
		"locality":    func(s *models.Station) { s.Locality = "GETAFE" },
		"postal code": func(s *models.Station) { s.PostalCode = 28901 },
		"latitude":    func(s *models.Station) { s.Latitude = 40.41680000001 },
		"margin":      func(s *models.Station) { s.Margin = models.MarginLeft },
		"sale type":   func(s *models.Station) { s.SaleType = models.SaleTypeRestricted },
		"bio ethanol": func(s *models.Station) { s.BioEthanolPct = 5 },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			src := &fakeSource{
				stations: []models.Station{persistedStation(7, 1001, "REPSOL")},
			}
			parsed := baseStation(1001, "REPSOL")
			mutate(&parsed)

			plan := classify(t, src, snapshotOf(parsed))
			assert.Len(t, plan.StationsToUpdate, 1)
			assert.Equal(t, 0, plan.Unchanged)
		})
	}
}

func TestClassify_PartitionCompleteness(t *testing.T) {
	src := &fakeSource{
		stations: []models.Station{
			persistedStation(1, 1001, "REPSOL"),
			persistedStation(2, 1002, "CEPSA"),
		},
	}

	snap := snapshotOf(
		baseStation(1001, "REPSOL"), // unchanged
		baseStation(1002, "GALP"),   // update
		baseStation(3003, "BP"),     // new
	)

	plan := classify(t, src, snap)

	assert.Equal(t, len(snap.Stations), len(plan.NewStations)+len(plan.StationsToUpdate)+plan.Unchanged,
		"every parsed station lands in exactly one bucket")

	seen := map[int]bool{}
	for _, s := range plan.NewStations {
		assert.False(t, seen[s.ExternalCode])
		seen[s.ExternalCode] = true
	}
	for _, s := range plan.StationsToUpdate {
		assert.False(t, seen[s.ExternalCode])
		seen[s.ExternalCode] = true
	}
}

func TestClassify_PriceBuckets(t *testing.T) {
	src := &fakeSource{
		stations: []models.Station{persistedStation(7, 1001, "REPSOL")},
		prices: []models.FuelPrice{
			{StationID: 7, FuelTypeID: fuelG95E5, Date: runDate, Price: 1.459},
			{StationID: 7, FuelTypeID: fuelGOA, Date: runDate, Price: 1.389},
		},
		links: []models.FuelLink{
			{StationID: 7, FuelTypeID: fuelG95E5},
			{StationID: 7, FuelTypeID: fuelGOA},
		},
	}

	parsed := withPrices(baseStation(1001, "REPSOL"),
		price(fuelG95E5, 1.459), // equal: dropped silently
		price(fuelGOA, 1.395),   // changed: update
	)

	plan := classify(t, src, snapshotOf(parsed))

	assert.Empty(t, plan.PricesToInsert)
	require.Len(t, plan.PricesToUpdate, 1)
	assert.Equal(t, fuelGOA, plan.PricesToUpdate[0].FuelTypeID)
	assert.Equal(t, 1.395, plan.PricesToUpdate[0].Price)
	assert.Equal(t, int64(7), plan.PricesToUpdate[0].StationID)
}

func TestClassify_PriceInsertForMissingFact(t *testing.T) {
	src := &fakeSource{
		stations: []models.Station{persistedStation(7, 1001, "REPSOL")},
		links:    []models.FuelLink{{StationID: 7, FuelTypeID: fuelG95E5}},
	}

	parsed := withPrices(baseStation(1001, "REPSOL"), price(fuelG95E5, 1.459))

	plan := classify(t, src, snapshotOf(parsed))

	require.Len(t, plan.PricesToInsert, 1)
	assert.Equal(t, int64(7), plan.PricesToInsert[0].StationID)
	assert.Empty(t, plan.PricesToUpdate)
}

func TestClassify_MonotonicAvailability(t *testing.T) {
	src := &fakeSource{
		stations: []models.Station{persistedStation(7, 1001, "REPSOL")},
		links:    []models.FuelLink{{StationID: 7, FuelTypeID: fuelGOA}},
	}

	parsed := withPrices(baseStation(1001, "REPSOL"),
		price(fuelG95E5, 1.459),
		price(fuelGOA, 1.389),
	)

	plan := classify(t, src, snapshotOf(parsed))

	require.Len(t, plan.AvailabilityToInsert, 1)
	assert.Equal(t, models.FuelLink{StationID: 7, FuelTypeID: fuelG95E5}, plan.AvailabilityToInsert[0])

	// Never re-insert a link already persisted.
	for _, l := range plan.AvailabilityToInsert {
		for _, have := range src.links {
			assert.NotEqual(t, have, l)
		}
	}
}

func TestClassify_Idempotence(t *testing.T) {
	src := &fakeSource{
		stations: []models.Station{
			persistedStation(1, 1001, "REPSOL"),
			persistedStation(2, 1002, "CEPSA"),
		},
		links: []models.FuelLink{{StationID: 1, FuelTypeID: fuelG95E5}},
		prices: []models.FuelPrice{
			{StationID: 1, FuelTypeID: fuelG95E5, Date: runDate, Price: 1.500},
		},
	}

	snap := snapshotOf(
		withPrices(baseStation(1001, "REPSOL"), price(fuelG95E5, 1.459)),
		withPrices(baseStation(1002, "GALP"), price(fuelGOA, 1.389)),
		baseStation(3003, "BP"),
	)

	first := classify(t, src, snap)
	second := classify(t, src, snap)
	assert.Equal(t, first, second, "same inputs must produce an identical plan")

	// Apply the price buckets, then re-classify: price work must vanish.
	src.prices = append(src.prices, first.PricesToInsert...)
	for i, p := range src.prices {
		for _, u := range first.PricesToUpdate {
			if p.StationID == u.StationID && p.FuelTypeID == u.FuelTypeID && p.Date.Equal(u.Date) {
				src.prices[i].Price = u.Price
			}
		}
	}
	src.links = append(src.links, first.AvailabilityToInsert...)

	third := classify(t, src, snap)
	assert.Empty(t, third.PricesToInsert)
	assert.Empty(t, third.PricesToUpdate)
	assert.Empty(t, third.AvailabilityToInsert)
}

func TestClassify_StateFetchFailureAborts(t *testing.T) {
	snap := snapshotOf(withPrices(baseStation(1001, "REPSOL"), price(fuelG95E5, 1.459)))

	tests := []struct {
		name string
		src  *fakeSource
	}{
		{"stations fetch fails", &fakeSource{failStations: true}},
		{"availability fetch fails", &fakeSource{
			stations:  []models.Station{persistedStation(7, 1001, "REPSOL")},
			failLinks: true,
		}},
		{"prices fetch fails", &fakeSource{
			stations:   []models.Station{persistedStation(7, 1001, "REPSOL")},
			failPrices: true,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewClassifier(tt.src, zerolog.Nop()).Classify(context.Background(), snap)
			assert.Error(t, err)
			assert.Nil(t, plan, "no partial plan on fetch failure")
		})
	}
}

func TestClassify_EmptyPersistedState(t *testing.T) {
	src := &fakeSource{}
	parsed := withPrices(baseStation(1001, "REPSOL"), price(fuelG95E5, 1.459))

	plan := classify(t, src, snapshotOf(parsed))

	require.Len(t, plan.NewStations, 1)
	assert.False(t, plan.IsEmpty())
	assert.Empty(t, plan.AvailabilityToInsert)
	assert.Empty(t, plan.PricesToInsert)
}
