// Package openweathermap fetches live and forecast weather for the dashboard
// area from the OpenWeatherMap 2.5 API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client reads the current conditions and the 3-hourly forecast at a fixed point.
type Client struct {
	apiKey     string
	lat, lon   float64
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	APIKey  string
	Lat     float64
	Lon     float64
	Timeout time.Duration
	// RPS caps outbound requests per second. Zero disables the limit.
	RPS     float64
	BaseURL string
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(opts Options) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:     opts.APIKey,
		lat:        opts.Lat,
		lon:        opts.Lon,
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    baseURL,
		limiter:    limiter,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// Current returns the live conditions. Missing fields fall back to the
// dashboard defaults (north wind, 1 m/s, 50 %).
func (c *Client) Current(ctx context.Context) (domain.Weather, error) {
	var resp reading
	if err := c.get(ctx, "weather", &resp); err != nil {
		return domain.Weather{}, err
	}
	return resp.weather(), nil
}

// Forecast returns the forecast slots in time order. Slot 0 is the nearest.
func (c *Client) Forecast(ctx context.Context) ([]domain.Weather, error) {
	var resp forecastResponse
	if err := c.get(ctx, "forecast", &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Weather, 0, len(resp.List))
	for _, item := range resp.List {
		out = append(out, item.weather())
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, method string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}

	params := url.Values{
		"lat":   {strconv.FormatFloat(c.lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(c.lon, 'f', -1, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.WeatherAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("%s weather request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("openweathermap API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	c.logger.Debug("weather fetched", "method", method, "duration", time.Since(start))
	return nil
}

// OpenWeatherMap response types.

type reading struct {
	Main struct {
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Dt int64 `json:"dt"`
}

type forecastResponse struct {
	List []reading `json:"list"`
}

func (r reading) weather() domain.Weather {
	w := domain.DefaultWeather
	if r.Wind.Deg != nil {
		w.WindDirectionDeg = *r.Wind.Deg
	}
	if r.Wind.Speed != nil {
		w.WindSpeedMps = *r.Wind.Speed
	}
	if r.Main.Humidity != nil {
		w.HumidityPct = *r.Main.Humidity
	}
	return w.Sanitize()
}
