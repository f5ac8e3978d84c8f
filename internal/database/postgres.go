// Package database provides the PostgreSQL store backing reference data,
// persisted snapshot reads, and bulk plan writes.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/petrolwatch/fuelsync/internal/models"
)

// Store wraps a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New opens a connection pool and verifies connectivity.
func New(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger.With().Str("component", "database").Logger(),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks if the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// FindAllRegions returns every region.
func (s *Store) FindAllRegions(ctx context.Context) ([]models.Region, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, external_code, name FROM regions`)
	if err != nil {
		return nil, fmt.Errorf("querying regions: %w", err)
	}
	defer rows.Close()

	var regions []models.Region
	for rows.Next() {
		var r models.Region
		if err := rows.Scan(&r.ID, &r.ExternalCode, &r.Name); err != nil {
			return nil, fmt.Errorf("scanning region: %w", err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// FindAllProvinces returns every province.
func (s *Store) FindAllProvinces(ctx context.Context) ([]models.Province, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, external_code, region_id, name FROM provinces`)
	if err != nil {
		return nil, fmt.Errorf("querying provinces: %w", err)
	}
	defer rows.Close()

	var provinces []models.Province
	for rows.Next() {
		var p models.Province
		if err := rows.Scan(&p.ID, &p.ExternalCode, &p.RegionID, &p.Name); err != nil {
			return nil, fmt.Errorf("scanning province: %w", err)
		}
		provinces = append(provinces, p)
	}
	return provinces, rows.Err()
}

// FindAllMunicipalities returns every municipality.
func (s *Store) FindAllMunicipalities(ctx context.Context) ([]models.Municipality, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, external_code, province_id, name FROM municipalities`)
	if err != nil {
		return nil, fmt.Errorf("querying municipalities: %w", err)
	}
	defer rows.Close()

	var municipalities []models.Municipality
	for rows.Next() {
		var m models.Municipality
		if err := rows.Scan(&m.ID, &m.ExternalCode, &m.ProvinceID, &m.Name); err != nil {
			return nil, fmt.Errorf("scanning municipality: %w", err)
		}
		municipalities = append(municipalities, m)
	}
	return municipalities, rows.Err()
}

// FindAllFuelTypes returns every fuel type.
func (s *Store) FindAllFuelTypes(ctx context.Context) ([]models.FuelType, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, external_code, name, short_code FROM fuel_types`)
	if err != nil {
		return nil, fmt.Errorf("querying fuel types: %w", err)
	}
	defer rows.Close()

	var fuels []models.FuelType
	for rows.Next() {
		var f models.FuelType
		if err := rows.Scan(&f.ID, &f.ExternalCode, &f.Name, &f.ShortCode); err != nil {
			return nil, fmt.Errorf("scanning fuel type: %w", err)
		}
		fuels = append(fuels, f)
	}
	return fuels, rows.Err()
}

// FindAllStations returns every persisted station (without child facts).
func (s *Store) FindAllStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, external_code, label, schedule, address, locality, postal_code,
       municipality_id, province_id, latitude, longitude,
       margin, remission, sale_type, bio_ethanol_pct, methyl_ester_pct
FROM stations`)
	if err != nil {
		return nil, fmt.Errorf("querying stations: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(
			&st.ID, &st.ExternalCode, &st.Label, &st.Schedule, &st.Address,
			&st.Locality, &st.PostalCode, &st.MunicipalityID, &st.ProvinceID,
			&st.Latitude, &st.Longitude, &st.Margin, &st.Remission,
			&st.SaleType, &st.BioEthanolPct, &st.MethylEsterPct,
		); err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// FindAvailability returns the (station, fuel) links for the given stations.
func (s *Store) FindAvailability(ctx context.Context, stationIDs []int64) ([]models.FuelLink, error) {
	if len(stationIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
SELECT station_id, fuel_type_id FROM station_fuels WHERE station_id = ANY($1)`, stationIDs)
	if err != nil {
		return nil, fmt.Errorf("querying availability: %w", err)
	}
	defer rows.Close()

	var links []models.FuelLink
	for rows.Next() {
		var l models.FuelLink
		if err := rows.Scan(&l.StationID, &l.FuelTypeID); err != nil {
			return nil, fmt.Errorf("scanning availability link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// FindPrices returns the price facts for the given date and stations.
func (s *Store) FindPrices(ctx context.Context, date time.Time, stationIDs []int64) ([]models.FuelPrice, error) {
	if len(stationIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
SELECT station_id, fuel_type_id, price_date, price
FROM fuel_prices
WHERE price_date = $1 AND station_id = ANY($2)`, date, stationIDs)
	if err != nil {
		return nil, fmt.Errorf("querying prices: %w", err)
	}
	defer rows.Close()

	var prices []models.FuelPrice
	for rows.Next() {
		var p models.FuelPrice
		if err := rows.Scan(&p.StationID, &p.FuelTypeID, &p.Date, &p.Price); err != nil {
			return nil, fmt.Errorf("scanning price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// HasPricesForDate reports whether any price fact exists for the date.
// The scheduler uses this to decide whether today's feed was already ingested.
func (s *Store) HasPricesForDate(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM fuel_prices WHERE price_date = $1)`, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking prices for date: %w", err)
	}
	return exists, nil
}

// TotalStationsCount returns the number of persisted stations.
func (s *Store) TotalStationsCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting stations: %w", err)
	}
	return count, nil
}

// InsertStations bulk-inserts new stations and returns the internal id
// assigned to each external code.
func (s *Store) InsertStations(ctx context.Context, stations []models.Station) (map[int]int64, error) {
	ids := make(map[int]int64, len(stations))
	if len(stations) == 0 {
		return ids, nil
	}

	batch := &pgx.Batch{}
	query := `
INSERT INTO stations (external_code, label, schedule, address, locality, postal_code,
                      municipality_id, province_id, latitude, longitude,
                      margin, remission, sale_type, bio_ethanol_pct, methyl_ester_pct)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id`
	for _, st := range stations {
		batch.Queue(query,
			st.ExternalCode, st.Label, st.Schedule, st.Address, st.Locality,
			st.PostalCode, st.MunicipalityID, st.ProvinceID, st.Latitude,
			st.Longitude, string(st.Margin), string(st.Remission),
			string(st.SaleType), st.BioEthanolPct, st.MethylEsterPct)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for _, st := range stations {
		var id int64
		if err := res.QueryRow().Scan(&id); err != nil {
			return nil, fmt.Errorf("inserting station %d: %w", st.ExternalCode, err)
		}
		ids[st.ExternalCode] = id
	}

	s.logger.Debug().Int("count", len(stations)).Msg("inserted stations")
	return ids, nil
}

// UpdateStations bulk-updates existing stations, overwriting every attribute.
func (s *Store) UpdateStations(ctx context.Context, stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
UPDATE stations
SET label = $2, schedule = $3, address = $4, locality = $5, postal_code = $6,
    municipality_id = $7, province_id = $8, latitude = $9, longitude = $10,
    margin = $11, remission = $12, sale_type = $13,
    bio_ethanol_pct = $14, methyl_ester_pct = $15
WHERE id = $1`
	for _, st := range stations {
		batch.Queue(query,
			st.ID, st.Label, st.Schedule, st.Address, st.Locality,
			st.PostalCode, st.MunicipalityID, st.ProvinceID, st.Latitude,
			st.Longitude, string(st.Margin), string(st.Remission),
			string(st.SaleType), st.BioEthanolPct, st.MethylEsterPct)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for _, st := range stations {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("updating station %d: %w", st.ExternalCode, err)
		}
	}

	s.logger.Debug().Int("count", len(stations)).Msg("updated stations")
	return nil
}

// InsertAvailability bulk-inserts (station, fuel) links.
func (s *Store) InsertAvailability(ctx context.Context, links []models.FuelLink) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(`INSERT INTO station_fuels (station_id, fuel_type_id) VALUES ($1,$2)`,
			l.StationID, l.FuelTypeID)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	var inserted int64
	for range links {
		tag, err := res.Exec()
		if err != nil {
			return inserted, fmt.Errorf("inserting availability link: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// InsertPrices bulk-inserts price facts.
func (s *Store) InsertPrices(ctx context.Context, prices []models.FuelPrice) (int64, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(`INSERT INTO fuel_prices (station_id, fuel_type_id, price_date, price) VALUES ($1,$2,$3,$4)`,
			p.StationID, p.FuelTypeID, p.Date, p.Price)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	var inserted int64
	for range prices {
		tag, err := res.Exec()
		if err != nil {
			return inserted, fmt.Errorf("inserting price: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// UpdatePrices overwrites price facts that changed for their date.
func (s *Store) UpdatePrices(ctx context.Context, prices []models.FuelPrice) error {
	if len(prices) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(`
UPDATE fuel_prices SET price = $4
WHERE station_id = $1 AND fuel_type_id = $2 AND price_date = $3`,
			p.StationID, p.FuelTypeID, p.Date, p.Price)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range prices {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("updating price: %w", err)
		}
	}
	return nil
}
