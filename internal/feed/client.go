package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL is the production endpoint for the full station snapshot.
	DefaultBaseURL = "https://sedeaplicaciones.minetur.gob.es/ServiciosRESTCarburantes/PreciosCarburantes"

	defaultTimeout = 60 * time.Second
)

// ErrCircuitOpen is returned when the upstream API has been failing and the
// breaker refuses further requests.
var ErrCircuitOpen = errors.New("feed API circuit open")

// Client fetches snapshots from the fuel price API. The upstream is known to
// degrade under load, so requests go through a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

// NewClient creates a feed API client. An empty baseURL selects the
// production endpoint.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fuel-price-api",
		MaxRequests: 2,
		Interval:    2 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		breaker: cb,
		logger:  logger.With().Str("component", "feed").Logger(),
	}
}

// FetchLatest fetches the most recent full snapshot.
func (c *Client) FetchLatest(ctx context.Context) (*Envelope, error) {
	return c.fetch(ctx, c.baseURL+"/EstacionesTerrestres")
}

// FetchForDate fetches the historical snapshot for a specific date.
func (c *Client) FetchForDate(ctx context.Context, date time.Time) (*Envelope, error) {
	url := fmt.Sprintf("%s/EstacionesTerrestresHist/%s", c.baseURL, date.Format("02-01-2006"))
	return c.fetch(ctx, url)
}

func (c *Client) fetch(ctx context.Context, url string) (*Envelope, error) {
	c.logger.Debug().Str("url", url).Msg("fetching feed snapshot")

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doFetch(ctx, url)
	})
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	envelope := result.(*Envelope)
	c.logger.Info().
		Int("stations", len(envelope.Stations)).
		Str("feedDate", envelope.Date).
		Dur("duration", duration).
		Msg("fetched feed snapshot")

	return envelope, nil
}

func (c *Client) doFetch(ctx context.Context, url string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}

	return &envelope, nil
}
