package openweathermap

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/odor-dispersion-service/internal/cache"
	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
)

// Source is the weather provider contract shared by Client and CachedSource.
type Source interface {
	Current(ctx context.Context) (domain.Weather, error)
	Forecast(ctx context.Context) ([]domain.Weather, error)
}

const (
	keyCurrent  = "current"
	keyForecast = "forecast"
)

// CachedSource wraps a Source with a bounded TTL cache so repeated reads
// within the TTL do not reach the API.
type CachedSource struct {
	inner    Source
	current  *cache.LRU[string, domain.Weather]
	forecast *cache.LRU[string, []domain.Weather]
	metrics  *observability.Metrics
}

// NewCachedSource creates a cache decorator around a weather source.
func NewCachedSource(inner Source, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:    inner,
		current:  cache.New[string, domain.Weather](maxEntries, ttl, clock),
		forecast: cache.New[string, []domain.Weather](maxEntries, ttl, clock),
		metrics:  metrics,
	}
}

func (c *CachedSource) Current(ctx context.Context) (domain.Weather, error) {
	if w, ok := c.current.Get(keyCurrent); ok {
		c.observe(keyCurrent, "hit")
		return w, nil
	}
	c.observe(keyCurrent, "miss")
	w, err := c.inner.Current(ctx)
	if err != nil {
		return w, err
	}
	c.current.Put(keyCurrent, w)
	return w, nil
}

func (c *CachedSource) Forecast(ctx context.Context) ([]domain.Weather, error) {
	if list, ok := c.forecast.Get(keyForecast); ok {
		c.observe(keyForecast, "hit")
		return append([]domain.Weather(nil), list...), nil
	}
	c.observe(keyForecast, "miss")
	list, err := c.inner.Forecast(ctx)
	if err != nil {
		return nil, err
	}
	// Empty forecasts are not cached so the next poll retries.
	if len(list) > 0 {
		c.forecast.Put(keyForecast, append([]domain.Weather(nil), list...))
	}
	return list, nil
}

func (c *CachedSource) observe(method, result string) {
	if c.metrics != nil {
		c.metrics.WeatherCache.WithLabelValues(method, result).Inc()
	}
}

var (
	_ Source = (*Client)(nil)
	_ Source = (*CachedSource)(nil)
)
