package refdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrolwatch/fuelsync/internal/models"
)

type fakeLoader struct {
	regions        []models.Region
	provinces      []models.Province
	municipalities []models.Municipality
	fuelTypes      []models.FuelType

	calls   int
	failMun bool
}

func (f *fakeLoader) FindAllRegions(ctx context.Context) ([]models.Region, error) {
	f.calls++
	return f.regions, nil
}

func (f *fakeLoader) FindAllProvinces(ctx context.Context) ([]models.Province, error) {
	return f.provinces, nil
}

func (f *fakeLoader) FindAllMunicipalities(ctx context.Context) ([]models.Municipality, error) {
	if f.failMun {
		return nil, errors.New("connection reset")
	}
	return f.municipalities, nil
}

func (f *fakeLoader) FindAllFuelTypes(ctx context.Context) ([]models.FuelType, error) {
	return f.fuelTypes, nil
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		regions: []models.Region{
			{ID: 1, ExternalCode: 13, Name: "Madrid"},
		},
		provinces: []models.Province{
			{ID: 10, ExternalCode: 28, RegionID: 1, Name: "MADRID"},
		},
		municipalities: []models.Municipality{
			{ID: 100, ExternalCode: 540, ProvinceID: 10, Name: "Madrid"},
		},
		fuelTypes: []models.FuelType{
			{ID: 1, ExternalCode: 1, Name: "Gasolina 95 E5", ShortCode: "G95E5"},
			{ID: 2, ExternalCode: 4, Name: "Gasóleo A", ShortCode: "GOA"},
		},
	}
}

func TestLoadAndLookups(t *testing.T) {
	tables, err := Load(context.Background(), newFakeLoader())
	require.NoError(t, err)

	region, err := tables.Region(13)
	require.NoError(t, err)
	assert.Equal(t, "Madrid", region.Name)

	province, err := tables.Province(28)
	require.NoError(t, err)
	assert.Equal(t, int64(10), province.ID)

	municipality, err := tables.Municipality(540)
	require.NoError(t, err)
	assert.Equal(t, int64(10), municipality.ProvinceID)

	fuel, err := tables.FuelType(4)
	require.NoError(t, err)
	assert.Equal(t, "GOA", fuel.ShortCode)

	byShort, ok := tables.FuelByShortCode("G95E5")
	assert.True(t, ok)
	assert.Equal(t, int64(1), byShort.ID)

	_, ok = tables.FuelByShortCode("H2")
	assert.False(t, ok)

	regions, provinces, municipalities, fuels := tables.Counts()
	assert.Equal(t, 1, regions)
	assert.Equal(t, 1, provinces)
	assert.Equal(t, 1, municipalities)
	assert.Equal(t, 2, fuels)
}

func TestLookupMissesWrapSentinel(t *testing.T) {
	tables, err := Load(context.Background(), newFakeLoader())
	require.NoError(t, err)

	_, err = tables.Region(99)
	assert.ErrorIs(t, err, ErrReferenceNotFound)
	_, err = tables.Province(99)
	assert.ErrorIs(t, err, ErrReferenceNotFound)
	_, err = tables.Municipality(99)
	assert.ErrorIs(t, err, ErrReferenceNotFound)
	_, err = tables.FuelType(99)
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestLoadFailsOnLoaderError(t *testing.T) {
	loader := newFakeLoader()
	loader.failMun = true

	tables, err := Load(context.Background(), loader)
	assert.Nil(t, tables)
	assert.ErrorContains(t, err, "loading municipalities")
}

func TestProviderCachesTables(t *testing.T) {
	loader := newFakeLoader()
	provider := NewProvider(loader, time.Hour, zerolog.Nop())

	first, err := provider.Tables(context.Background())
	require.NoError(t, err)
	second, err := provider.Tables(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.calls)

	provider.Invalidate()
	third, err := provider.Tables(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, loader.calls)
}

func TestProviderZeroTTLDisablesCaching(t *testing.T) {
	loader := newFakeLoader()
	provider := NewProvider(loader, 0, zerolog.Nop())

	_, err := provider.Tables(context.Background())
	require.NoError(t, err)
	_, err = provider.Tables(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, loader.calls)
}
