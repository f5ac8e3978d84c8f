package refdata

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const cacheKey = "tables"

// Provider serves reference tables, caching them across scheduled runs in the
// same process. The tables are rebuilt from storage once the TTL expires;
// within a run the returned value behaves as an immutable map.
type Provider struct {
	loader Loader
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewProvider creates a Provider with the given cache TTL. A zero or negative
// TTL disables caching and every run reloads from storage.
func NewProvider(loader Loader, ttl time.Duration, logger zerolog.Logger) *Provider {
	var c *cache.Cache
	if ttl > 0 {
		c = cache.New(ttl, 2*ttl)
	}
	return &Provider{
		loader: loader,
		cache:  c,
		logger: logger.With().Str("component", "refdata").Logger(),
	}
}

// Tables returns the reference tables, from cache when fresh.
func (p *Provider) Tables(ctx context.Context) (*Tables, error) {
	if p.cache != nil {
		if cached, found := p.cache.Get(cacheKey); found {
			return cached.(*Tables), nil
		}
	}

	start := time.Now()
	tables, err := Load(ctx, p.loader)
	if err != nil {
		return nil, err
	}

	regions, provinces, municipalities, fuels := tables.Counts()
	p.logger.Info().
		Int("regions", regions).
		Int("provinces", provinces).
		Int("municipalities", municipalities).
		Int("fuelTypes", fuels).
		Dur("duration", time.Since(start)).
		Msg("loaded reference data")

	if p.cache != nil {
		p.cache.Set(cacheKey, tables, cache.DefaultExpiration)
	}
	return tables, nil
}

// Invalidate drops any cached tables so the next run reloads from storage.
func (p *Provider) Invalidate() {
	if p.cache != nil {
		p.cache.Delete(cacheKey)
	}
}
