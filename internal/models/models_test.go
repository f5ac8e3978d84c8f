package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMargin(t *testing.T) {
	for _, code := range []string{"D", "I", "N"} {
		m, err := ParseMargin(code)
		assert.NoError(t, err)
		assert.Equal(t, Margin(code), m)
	}

	_, err := ParseMargin("X")
	assert.EqualError(t, err, `unknown margin code "X"`)
	_, err = ParseMargin("d")
	assert.Error(t, err, "codes are case sensitive")
}

func TestParseRemission(t *testing.T) {
	for _, code := range []string{"dm", "OM"} {
		r, err := ParseRemission(code)
		assert.NoError(t, err)
		assert.Equal(t, Remission(code), r)
	}

	_, err := ParseRemission("om")
	assert.Error(t, err)
}

func TestParseSaleType(t *testing.T) {
	for _, code := range []string{"P", "R"} {
		s, err := ParseSaleType(code)
		assert.NoError(t, err)
		assert.Equal(t, SaleType(code), s)
	}

	_, err := ParseSaleType("")
	assert.Error(t, err)
}

func testStation() Station {
	return Station{
		ID:             7,
		ExternalCode:   1001,
		Label:          "REPSOL",
		Schedule:       "L-D: 24H",
		Address:        "CALLE MAYOR 1",
		Locality:       "MADRID",
		PostalCode:     28001,
		MunicipalityID: 100,
		ProvinceID:     10,
		Latitude:       40.4168,
		Longitude:      -3.7038,
		Margin:         MarginRight,
		Remission:      RemissionDealer,
		SaleType:       SaleTypePublic,
	}
}

func TestSameAttributes(t *testing.T) {
	a := testStation()
	b := testStation()
	assert.True(t, a.SameAttributes(b))

	// Identity and price facts are excluded from the comparison.
	b.ID = 99
	b.ExternalCode = 2002
	b.Prices = []FuelPrice{{FuelTypeID: 1, Price: 1.459}}
	assert.True(t, a.SameAttributes(b))

	c := testStation()
	c.Longitude = -3.70380001
	assert.False(t, a.SameAttributes(c), "coordinates compare exactly")

	d := testStation()
	d.MethylEsterPct = 7
	assert.False(t, a.SameAttributes(d))
}

func TestFuelIDs(t *testing.T) {
	s := testStation()
	assert.Empty(t, s.FuelIDs())

	s.Prices = []FuelPrice{
		{FuelTypeID: 2, Price: 1.389},
		{FuelTypeID: 1, Price: 1.459},
	}
	assert.Equal(t, []int64{2, 1}, s.FuelIDs(), "order follows the price list")
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.459, 1.459},
		{1.4585, 1.459}, // half rounds up
		{1.4584, 1.458},
		{0.0005, 0.001},
		{1.2345678, 1.235},
		{1, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundPrice(tt.in), "RoundPrice(%v)", tt.in)
	}
}
