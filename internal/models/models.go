// Package models provides the domain types shared across the fuel station sync service.
package models

import (
	"fmt"
	"math"
	"time"
)

// Region is a top-level administrative area (comunidad autónoma).
type Region struct {
	ID           int64
	ExternalCode int
	Name         string
}

// Province belongs to exactly one Region.
type Province struct {
	ID           int64
	ExternalCode int
	RegionID     int64
	Name         string
}

// Municipality belongs to exactly one Province.
type Municipality struct {
	ID           int64
	ExternalCode int
	ProvinceID   int64
	Name         string
}

// FuelType is a sellable fuel product (e.g. "Gasolina 95 E5", short code G95E5).
type FuelType struct {
	ID           int64
	ExternalCode int
	Name         string
	ShortCode    string
}

// Margin indicates on which side of the road a station sits.
type Margin string

// Remission indicates how the station reports its prices upstream.
type Remission string

// SaleType indicates whether a station sells to the general public.
type SaleType string

const (
	MarginRight Margin = "D"
	MarginLeft  Margin = "I"
	MarginNone  Margin = "N"

	RemissionDealer Remission = "dm"
	RemissionOwner  Remission = "OM"

	SaleTypePublic     SaleType = "P"
	SaleTypeRestricted SaleType = "R"
)

// ParseMargin maps a feed margin code to its enumeration value.
func ParseMargin(code string) (Margin, error) {
	switch Margin(code) {
	case MarginRight, MarginLeft, MarginNone:
		return Margin(code), nil
	}
	return "", fmt.Errorf("unknown margin code %q", code)
}

// ParseRemission maps a feed remission code to its enumeration value.
func ParseRemission(code string) (Remission, error) {
	switch Remission(code) {
	case RemissionDealer, RemissionOwner:
		return Remission(code), nil
	}
	return "", fmt.Errorf("unknown remission code %q", code)
}

// ParseSaleType maps a feed sale type code to its enumeration value.
func ParseSaleType(code string) (SaleType, error) {
	switch SaleType(code) {
	case SaleTypePublic, SaleTypeRestricted:
		return SaleType(code), nil
	}
	return "", fmt.Errorf("unknown sale type code %q", code)
}

// Station is one fuel station from the nationwide feed. ExternalCode is the
// feed's stable identifier; ID is assigned by storage and is zero until the
// station has been persisted.
type Station struct {
	ID             int64
	ExternalCode   int
	Label          string
	Schedule       string
	Address        string
	Locality       string
	PostalCode     int
	MunicipalityID int64
	ProvinceID     int64
	Latitude       float64
	Longitude      float64
	Margin         Margin
	Remission      Remission
	SaleType       SaleType
	BioEthanolPct  float64
	MethylEsterPct float64

	// Prices holds the fuel price facts parsed alongside this station.
	// A fuel appearing here is by definition available at the station.
	Prices []FuelPrice
}

// SameAttributes reports whether two stations agree on every reconciled
// attribute. Identity (ID, ExternalCode) and nested price facts are not part
// of the comparison. Coordinates compare as exact float64 values, no epsilon.
func (s Station) SameAttributes(o Station) bool {
	return s.Label == o.Label &&
		s.Schedule == o.Schedule &&
		s.Address == o.Address &&
		s.Locality == o.Locality &&
		s.PostalCode == o.PostalCode &&
		s.MunicipalityID == o.MunicipalityID &&
		s.ProvinceID == o.ProvinceID &&
		s.Latitude == o.Latitude &&
		s.Longitude == o.Longitude &&
		s.Margin == o.Margin &&
		s.Remission == o.Remission &&
		s.SaleType == o.SaleType &&
		s.BioEthanolPct == o.BioEthanolPct &&
		s.MethylEsterPct == o.MethylEsterPct
}

// FuelIDs returns the ids of all fuels this station reported a price for.
func (s Station) FuelIDs() []int64 {
	ids := make([]int64, 0, len(s.Prices))
	for _, p := range s.Prices {
		ids = append(ids, p.FuelTypeID)
	}
	return ids
}

// FuelLink records that a station sells a fuel. Existence is the only
// attribute; links are never removed.
type FuelLink struct {
	StationID  int64
	FuelTypeID int64
}

// FuelPrice is one price fact, keyed by (station, fuel, date).
type FuelPrice struct {
	StationID  int64
	FuelTypeID int64
	Date       time.Time
	Price      float64
}

// RoundPrice normalizes a price to three decimals, rounding half up.
// All prices in the system are positive, so half away from zero is half up.
func RoundPrice(p float64) float64 {
	return math.Round(p*1000) / 1000
}
