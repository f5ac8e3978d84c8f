// Package refdata loads the slowly-changing dimension tables (regions,
// provinces, municipalities, fuel types) and exposes them as an immutable
// lookup for the feed parser.
package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrolwatch/fuelsync/internal/models"
)

// ErrReferenceNotFound is wrapped by every failed lookup. A missing reference
// is always fatal for the record being parsed; the tables are expected to be
// complete before any feed run.
var ErrReferenceNotFound = errors.New("reference not found")

// Loader reads the dimension tables from storage.
type Loader interface {
	FindAllRegions(ctx context.Context) ([]models.Region, error)
	FindAllProvinces(ctx context.Context) ([]models.Province, error)
	FindAllMunicipalities(ctx context.Context) ([]models.Municipality, error)
	FindAllFuelTypes(ctx context.Context) ([]models.FuelType, error)
}

// Tables holds the reference data for one run, keyed by external code.
// It is read-only after construction.
type Tables struct {
	regions        map[int]models.Region
	provinces      map[int]models.Province
	municipalities map[int]models.Municipality
	fuelTypes      map[int]models.FuelType
	fuelsByShort   map[string]models.FuelType
}

// Load builds the reference tables from storage. A failure here is fatal for
// the whole run, equivalent to a malformed feed envelope.
func Load(ctx context.Context, loader Loader) (*Tables, error) {
	regions, err := loader.FindAllRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading regions: %w", err)
	}
	provinces, err := loader.FindAllProvinces(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading provinces: %w", err)
	}
	municipalities, err := loader.FindAllMunicipalities(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading municipalities: %w", err)
	}
	fuelTypes, err := loader.FindAllFuelTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading fuel types: %w", err)
	}

	return NewTables(regions, provinces, municipalities, fuelTypes), nil
}

// NewTables builds an immutable lookup from already-loaded entities. Tests
// use this directly to supply synthetic reference data.
func NewTables(regions []models.Region, provinces []models.Province, municipalities []models.Municipality, fuelTypes []models.FuelType) *Tables {
	t := &Tables{
		regions:        make(map[int]models.Region, len(regions)),
		provinces:      make(map[int]models.Province, len(provinces)),
		municipalities: make(map[int]models.Municipality, len(municipalities)),
		fuelTypes:      make(map[int]models.FuelType, len(fuelTypes)),
		fuelsByShort:   make(map[string]models.FuelType, len(fuelTypes)),
	}
	for _, r := range regions {
		t.regions[r.ExternalCode] = r
	}
	for _, p := range provinces {
		t.provinces[p.ExternalCode] = p
	}
	for _, m := range municipalities {
		t.municipalities[m.ExternalCode] = m
	}
	for _, f := range fuelTypes {
		t.fuelTypes[f.ExternalCode] = f
		t.fuelsByShort[f.ShortCode] = f
	}
	return t
}

// Region resolves a region by its external code.
func (t *Tables) Region(code int) (models.Region, error) {
	r, ok := t.regions[code]
	if !ok {
		return models.Region{}, fmt.Errorf("%w: region %d", ErrReferenceNotFound, code)
	}
	return r, nil
}

// Province resolves a province by its external code.
func (t *Tables) Province(code int) (models.Province, error) {
	p, ok := t.provinces[code]
	if !ok {
		return models.Province{}, fmt.Errorf("%w: province %d", ErrReferenceNotFound, code)
	}
	return p, nil
}

// Municipality resolves a municipality by its external code.
func (t *Tables) Municipality(code int) (models.Municipality, error) {
	m, ok := t.municipalities[code]
	if !ok {
		return models.Municipality{}, fmt.Errorf("%w: municipality %d", ErrReferenceNotFound, code)
	}
	return m, nil
}

// FuelType resolves a fuel type by its external code.
func (t *Tables) FuelType(code int) (models.FuelType, error) {
	f, ok := t.fuelTypes[code]
	if !ok {
		return models.FuelType{}, fmt.Errorf("%w: fuel type %d", ErrReferenceNotFound, code)
	}
	return f, nil
}

// FuelByShortCode resolves a fuel type by its short code (e.g. "GOA").
func (t *Tables) FuelByShortCode(code string) (models.FuelType, bool) {
	f, ok := t.fuelsByShort[code]
	return f, ok
}

// Counts reports table sizes for logging.
func (t *Tables) Counts() (regions, provinces, municipalities, fuelTypes int) {
	return len(t.regions), len(t.provinces), len(t.municipalities), len(t.fuelTypes)
}
