// Package parser turns raw feed records into validated domain stations and
// drives the per-snapshot parse.
package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/petrolwatch/fuelsync/internal/feed"
	"github.com/petrolwatch/fuelsync/internal/models"
	"github.com/petrolwatch/fuelsync/internal/refdata"
)

const (
	postalCodeMin = 1000
	postalCodeMax = 52999
	priceMax      = 100.0
)

// RecordParser validates a single raw feed record against the reference
// tables. It is safe for concurrent use; the tables are read-only.
type RecordParser struct {
	tables *refdata.Tables
	logger zerolog.Logger
}

// NewRecordParser creates a RecordParser bound to one run's reference tables.
func NewRecordParser(tables *refdata.Tables, logger zerolog.Logger) *RecordParser {
	return &RecordParser{
		tables: tables,
		logger: logger.With().Str("component", "parser").Logger(),
	}
}

// Parse converts one raw record into a validated Station with its nested
// price facts dated asOf. A nil station means the record was dropped; the
// returned errors then contain exactly one fatal entry. A non-nil station may
// still carry non-fatal per-fuel errors.
func (rp *RecordParser) Parse(rec *feed.StationRecord, asOf time.Time) (*models.Station, []*ParseError) {
	code, err := strconv.Atoi(strings.TrimSpace(rec.StationCode))
	if err != nil || code <= 0 {
		return nil, []*ParseError{{
			Kind:        KindInvalidExternalCode,
			StationCode: rec.StationCode,
			Field:       "IDEESS",
			Reason:      "must be a positive integer",
			Fatal:       true,
		}}
	}

	province, perr := rp.resolveProvince(rec)
	if perr != nil {
		perr.StationCode = rec.StationCode
		return nil, []*ParseError{perr}
	}
	municipality, perr := rp.resolveMunicipality(rec)
	if perr != nil {
		perr.StationCode = rec.StationCode
		return nil, []*ParseError{perr}
	}

	// The upstream feed has known referential inconsistencies here; this is
	// a data-quality signal, not a validation failure.
	if municipality.ProvinceID != province.ID {
		rp.logger.Warn().
			Str("station", rec.StationCode).
			Int("municipality", municipality.ExternalCode).
			Int("province", province.ExternalCode).
			Msg("municipality does not belong to station province")
	}

	postalCode, err := strconv.Atoi(strings.TrimSpace(rec.PostalCode))
	if err != nil || postalCode < postalCodeMin || postalCode > postalCodeMax {
		return nil, []*ParseError{{
			Kind:        KindInvalidPostalCode,
			StationCode: rec.StationCode,
			Field:       "C.P.",
			Reason:      "must be an integer between 1000 and 52999",
			Fatal:       true,
		}}
	}

	latitude, err := parseDecimal(rec.Latitude)
	if err != nil || latitude < -90 || latitude > 90 {
		return nil, []*ParseError{{
			Kind:        KindInvalidCoordinate,
			StationCode: rec.StationCode,
			Field:       "Latitud",
			Reason:      "must be a decimal in [-90, 90]",
			Fatal:       true,
		}}
	}
	longitude, err := parseDecimal(rec.Longitude)
	if err != nil || longitude < -180 || longitude > 180 {
		return nil, []*ParseError{{
			Kind:        KindInvalidCoordinate,
			StationCode: rec.StationCode,
			Field:       "Longitud (WGS84)",
			Reason:      "must be a decimal in [-180, 180]",
			Fatal:       true,
		}}
	}

	margin, err := models.ParseMargin(strings.TrimSpace(rec.Margin))
	if err != nil {
		return nil, []*ParseError{unknownEnum(rec.StationCode, "Margen", err)}
	}
	remission, err := models.ParseRemission(strings.TrimSpace(rec.Remission))
	if err != nil {
		return nil, []*ParseError{unknownEnum(rec.StationCode, "Remisión", err)}
	}
	saleType, err := models.ParseSaleType(strings.TrimSpace(rec.SaleType))
	if err != nil {
		return nil, []*ParseError{unknownEnum(rec.StationCode, "Tipo Venta", err)}
	}

	station := &models.Station{
		ExternalCode:   code,
		Label:          rec.Label,
		Schedule:       rec.Schedule,
		Address:        rec.Address,
		Locality:       rec.Locality,
		PostalCode:     postalCode,
		MunicipalityID: municipality.ID,
		ProvinceID:     province.ID,
		Latitude:       latitude,
		Longitude:      longitude,
		Margin:         margin,
		Remission:      remission,
		SaleType:       saleType,
		BioEthanolPct:  parsePercent(rec.BioEthanolPct),
		MethylEsterPct: parsePercent(rec.MethylEsterPct),
	}

	prices, priceErrs := rp.parsePrices(rec, asOf)
	station.Prices = prices
	return station, priceErrs
}

// parsePrices parses every known fuel price column independently. Empty or
// unparsable values mean the fuel is not sold at this station; only values
// outside (0, 100] produce an attributable error, and never drop the record.
func (rp *RecordParser) parsePrices(rec *feed.StationRecord, asOf time.Time) ([]models.FuelPrice, []*ParseError) {
	var prices []models.FuelPrice
	var errs []*ParseError

	for _, col := range feed.PriceColumns() {
		raw := strings.TrimSpace(col.Value(rec))
		if raw == "" {
			continue
		}
		value, err := parseDecimal(raw)
		if err != nil {
			continue
		}
		if value == 0 {
			continue
		}
		if value < 0 || value > priceMax {
			errs = append(errs, &ParseError{
				Kind:        KindPriceOutOfRange,
				StationCode: rec.StationCode,
				Field:       col.ShortCode,
				Reason:      "price must be in (0, 100]",
			})
			continue
		}

		fuel, ok := rp.tables.FuelByShortCode(col.ShortCode)
		if !ok {
			errs = append(errs, &ParseError{
				Kind:        KindReferenceNotFound,
				StationCode: rec.StationCode,
				Field:       col.ShortCode,
				Reason:      "fuel type not in reference tables",
			})
			continue
		}

		prices = append(prices, models.FuelPrice{
			FuelTypeID: fuel.ID,
			Date:       asOf,
			Price:      models.RoundPrice(value),
		})
	}

	return prices, errs
}

func (rp *RecordParser) resolveProvince(rec *feed.StationRecord) (models.Province, *ParseError) {
	if code, err := strconv.Atoi(strings.TrimSpace(rec.ProvinceCode)); err == nil {
		if p, err := rp.tables.Province(code); err == nil {
			return p, nil
		}
	}
	return models.Province{}, &ParseError{
		Kind:   KindReferenceNotFound,
		Field:  "IDProvincia",
		Reason: "province code did not resolve",
		Fatal:  true,
	}
}

func (rp *RecordParser) resolveMunicipality(rec *feed.StationRecord) (models.Municipality, *ParseError) {
	if code, err := strconv.Atoi(strings.TrimSpace(rec.MunicipalityCode)); err == nil {
		if m, err := rp.tables.Municipality(code); err == nil {
			return m, nil
		}
	}
	return models.Municipality{}, &ParseError{
		Kind:   KindReferenceNotFound,
		Field:  "IDMunicipio",
		Reason: "municipality code did not resolve",
		Fatal:  true,
	}
}

func unknownEnum(stationCode, field string, err error) *ParseError {
	return &ParseError{
		Kind:        KindUnknownEnumCode,
		StationCode: stationCode,
		Field:       field,
		Reason:      err.Error(),
		Fatal:       true,
	}
}

// parseDecimal parses a decimal number accepting the Spanish comma separator.
func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// parsePercent parses a percentage field best-effort. The upstream data for
// these fields is known to be dirty, so anything unusable defaults to 0.
func parsePercent(s string) float64 {
	v, err := parseDecimal(strings.TrimSpace(s))
	if err != nil || v < 0 || v > 100 {
		return 0
	}
	return v
}
