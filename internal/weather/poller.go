package weather

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
)

// DefaultPollInterval matches the dashboard's five-minute refresh.
const DefaultPollInterval = 5 * time.Minute

// Source supplies live and forecast weather.
type Source interface {
	Current(ctx context.Context) (domain.Weather, error)
	Forecast(ctx context.Context) ([]domain.Weather, error)
}

// Poller refreshes a Board from a Source on a fixed interval.
type Poller struct {
	source   Source
	board    *Board
	interval time.Duration
	clock    clockwork.Clock
	onChange func()
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// PollerOptions configures a Poller. OnChange runs after a poll moved the
// live reading.
type PollerOptions struct {
	Interval time.Duration
	Clock    clockwork.Clock
	OnChange func()
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewPoller creates a Poller writing into board.
func NewPoller(source Source, board *Board, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{
		source:   source,
		board:    board,
		interval: opts.Interval,
		clock:    opts.Clock,
		onChange: opts.OnChange,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Run polls once immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("weather poller started", "interval", p.interval)
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("weather poller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.Poll(ctx)
		}
	}
}

// Poll fetches the current reading and the forecast once. Failures are
// logged and leave the board as it was.
func (p *Poller) Poll(ctx context.Context) {
	live, err := p.source.Current(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("weather poll failed, keeping previous reading", "error", err)
		}
		p.observe("error")
		return
	}
	p.observe("success")

	changed := p.board.UpdateLive(live, p.clock.Now())

	if forecast, err := p.source.Forecast(ctx); err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("forecast poll failed, keeping previous forecast", "error", err)
		}
	} else if len(forecast) > 0 {
		p.board.SetForecast(forecast)
	}

	if changed {
		p.logger.Debug("live weather changed",
			"wind_direction", live.WindDirectionDeg,
			"wind_speed", live.WindSpeedMps,
			"humidity", live.HumidityPct,
		)
		if p.onChange != nil {
			p.onChange()
		}
	}
}

func (p *Poller) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.WeatherPolls.WithLabelValues(outcome).Inc()
	}
}
