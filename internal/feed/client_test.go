package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
	"Fecha": "30/08/2026 8:00:00",
	"ListaEESSPrecio": [
		{
			"C.P.": "28001",
			"Dirección": "CALLE MAYOR 1",
			"IDEESS": "1001",
			"IDMunicipio": "540",
			"IDProvincia": "28",
			"IDCCAA": "13",
			"Latitud": "40,416800",
			"Longitud (WGS84)": "-3,703800",
			"Margen": "D",
			"Precio Gasolina 95 E5": "1,459",
			"Precio Gasoleo A": "1,389",
			"Remisión": "dm",
			"Rótulo": "REPSOL",
			"Tipo Venta": "P"
		}
	],
	"Nota": "",
	"ResultadoConsulta": "OK"
}`

func TestFetchLatest(t *testing.T) {
	var gotPath, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	envelope, err := client.FetchLatest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/EstacionesTerrestres", gotPath)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, ResultOK, envelope.Result)
	assert.Equal(t, "30/08/2026 8:00:00", envelope.Date)
	require.Len(t, envelope.Stations, 1)

	record := envelope.Stations[0]
	assert.Equal(t, "1001", record.StationCode)
	assert.Equal(t, "REPSOL", record.Label)
	assert.Equal(t, "1,459", record.PriceGasoline95E5)
	assert.Equal(t, "1,389", record.PriceDieselA)
	assert.Equal(t, "", record.PriceDieselB)
}

func TestFetchForDateBuildsHistoricalURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	_, err := client.FetchForDate(context.Background(), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "/EstacionesTerrestresHist/05-01-2026", gotPath)
}

func TestFetchRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	_, err := client.FetchLatest(context.Background())
	assert.ErrorContains(t, err, "unexpected status code 504")
}

func TestFetchRejectsMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	_, err := client.FetchLatest(context.Background())
	assert.ErrorContains(t, err, "parsing response JSON")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	for i := 0; i < 3; i++ {
		_, err := client.FetchLatest(context.Background())
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrCircuitOpen)
	}

	_, err := client.FetchLatest(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
