// Package reconcile computes the minimal set of writes needed to bring the
// persisted state in line with a freshly parsed feed snapshot.
package reconcile

import (
	"context"
	"time"

	"github.com/petrolwatch/fuelsync/internal/models"
)

// StateSource exposes the currently persisted state. A failure on any of
// these calls aborts classification; there is no safe partial reconciliation.
type StateSource interface {
	FindAllStations(ctx context.Context) ([]models.Station, error)
	FindAvailability(ctx context.Context, stationIDs []int64) ([]models.FuelLink, error)
	FindPrices(ctx context.Context, date time.Time, stationIDs []int64) ([]models.FuelPrice, error)
}

// Plan partitions one snapshot into the five disjoint write buckets. It is
// self-contained and serializable: no entry references back into the parsed
// snapshot or the persisted state.
type Plan struct {
	AsOf time.Time

	// NewStations have no persisted counterpart. They are persisted as a
	// unit together with their full price and availability sets, which
	// therefore do not appear in the buckets below.
	NewStations []models.Station

	// StationsToUpdate are existing stations whose attributes changed.
	// Each carries the internal id of its persisted counterpart; the
	// update is all-or-nothing on the whole record.
	StationsToUpdate []models.Station

	AvailabilityToInsert []models.FuelLink
	PricesToInsert       []models.FuelPrice
	PricesToUpdate       []models.FuelPrice

	// Unchanged counts existing stations whose attributes matched exactly.
	Unchanged int
}

// IsEmpty reports whether the plan contains no writes at all.
func (p *Plan) IsEmpty() bool {
	return len(p.NewStations) == 0 &&
		len(p.StationsToUpdate) == 0 &&
		len(p.AvailabilityToInsert) == 0 &&
		len(p.PricesToInsert) == 0 &&
		len(p.PricesToUpdate) == 0
}
