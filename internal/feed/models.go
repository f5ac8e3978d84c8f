// Package feed provides the wire types and HTTP client for the Spanish
// government fuel price API (sedeaplicaciones.minetur.gob.es).
package feed

// ResultOK is the sentinel the API sets on a successful query.
const ResultOK = "OK"

// Envelope is one full snapshot response for a given date.
type Envelope struct {
	Date     string          `json:"Fecha"`
	Stations []StationRecord `json:"ListaEESSPrecio"`
	Note     string          `json:"Nota"`
	Result   string          `json:"ResultadoConsulta"`
}

// StationRecord is a single raw station entry. Every field arrives as a
// string; numeric fields use the Spanish comma decimal separator and empty
// strings mean "not sold here" for price fields.
type StationRecord struct {
	PostalCode         string `json:"C.P."`
	Address            string `json:"Dirección"`
	Schedule           string `json:"Horario"`
	Latitude           string `json:"Latitud"`
	Locality           string `json:"Localidad"`
	Longitude          string `json:"Longitud (WGS84)"`
	Margin             string `json:"Margen"`
	Municipality       string `json:"Municipio"`
	PriceBiodiesel     string `json:"Precio Biodiesel"`
	PriceBioethanol    string `json:"Precio Bioetanol"`
	PriceCNG           string `json:"Precio Gas Natural Comprimido"`
	PriceLNG           string `json:"Precio Gas Natural Licuado"`
	PriceLPG           string `json:"Precio Gases licuados del petróleo"`
	PriceDieselA       string `json:"Precio Gasoleo A"`
	PriceDieselB       string `json:"Precio Gasoleo B"`
	PriceDieselPrem    string `json:"Precio Gasoleo Premium"`
	PriceGasoline95E10 string `json:"Precio Gasolina 95 E10"`
	PriceGasoline95E5  string `json:"Precio Gasolina 95 E5"`
	PriceGasoline95E5P string `json:"Precio Gasolina 95 E5 Premium"`
	PriceGasoline98E10 string `json:"Precio Gasolina 98 E10"`
	PriceGasoline98E5  string `json:"Precio Gasolina 98 E5"`
	PriceHydrogen      string `json:"Precio Hidrogeno"`
	Province           string `json:"Provincia"`
	Remission          string `json:"Remisión"`
	Label              string `json:"Rótulo"`
	SaleType           string `json:"Tipo Venta"`
	BioEthanolPct      string `json:"% BioEtanol"`
	MethylEsterPct     string `json:"% Éster metílico"`
	StationCode        string `json:"IDEESS"`
	MunicipalityCode   string `json:"IDMunicipio"`
	ProvinceCode       string `json:"IDProvincia"`
	RegionCode         string `json:"IDCCAA"`
}

// PriceColumn binds a fuel short code to its raw value in a StationRecord.
type PriceColumn struct {
	ShortCode string
	Value     func(*StationRecord) string
}

// PriceColumns lists every fuel price field the feed carries, in a fixed
// order so parsed price sets are deterministic.
func PriceColumns() []PriceColumn {
	return []PriceColumn{
		{"G95E5", func(r *StationRecord) string { return r.PriceGasoline95E5 }},
		{"G95E10", func(r *StationRecord) string { return r.PriceGasoline95E10 }},
		{"G95E5+", func(r *StationRecord) string { return r.PriceGasoline95E5P }},
		{"G98E5", func(r *StationRecord) string { return r.PriceGasoline98E5 }},
		{"G98E10", func(r *StationRecord) string { return r.PriceGasoline98E10 }},
		{"GOA", func(r *StationRecord) string { return r.PriceDieselA }},
		{"GOB", func(r *StationRecord) string { return r.PriceDieselB }},
		{"GOA+", func(r *StationRecord) string { return r.PriceDieselPrem }},
		{"BIO", func(r *StationRecord) string { return r.PriceBiodiesel }},
		{"BIE", func(r *StationRecord) string { return r.PriceBioethanol }},
		{"GLP", func(r *StationRecord) string { return r.PriceLPG }},
		{"GNC", func(r *StationRecord) string { return r.PriceCNG }},
		{"GNL", func(r *StationRecord) string { return r.PriceLNG }},
		{"H2", func(r *StationRecord) string { return r.PriceHydrogen }},
	}
}
