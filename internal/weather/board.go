// Package weather keeps the live and forecast weather shared by all sessions
// and polls a provider to refresh it.
package weather

import (
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/scheduler"
)

// Board holds the current live reading and the latest forecast.
type Board struct {
	mu        sync.RWMutex
	live      domain.Weather
	forecast  []domain.Weather
	updatedAt time.Time
}

// NewBoard starts from domain.DefaultWeather with no forecast.
func NewBoard() *Board {
	return &Board{live: domain.DefaultWeather}
}

// UpdateLive applies a reading field by field: each of direction, humidity
// and speed moves only when it differs from the stored value by more than
// its threshold. It reports whether anything moved.
func (b *Board) UpdateLive(w domain.Weather, at time.Time) bool {
	w = w.Sanitize()

	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false
	if domain.AngleDiffDeg(w.WindDirectionDeg, b.live.WindDirectionDeg) > scheduler.DirectionThresholdDeg {
		b.live.WindDirectionDeg = w.WindDirectionDeg
		changed = true
	}
	if math.Abs(w.HumidityPct-b.live.HumidityPct) > scheduler.HumidityThresholdPct {
		b.live.HumidityPct = w.HumidityPct
		changed = true
	}
	if math.Abs(w.WindSpeedMps-b.live.WindSpeedMps) > scheduler.SpeedThresholdMps {
		b.live.WindSpeedMps = w.WindSpeedMps
		changed = true
	}
	if w.Stability != b.live.Stability {
		b.live.Stability = w.Stability
		changed = true
	}
	b.updatedAt = at
	return changed
}

// SetForecast replaces the forecast slots.
func (b *Board) SetForecast(list []domain.Weather) {
	copied := make([]domain.Weather, len(list))
	copy(copied, list)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.forecast = copied
}

// Live returns the current live reading.
func (b *Board) Live() domain.Weather {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Forecast returns a copy of the forecast slots.
func (b *Board) Forecast() []domain.Weather {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Weather, len(b.forecast))
	copy(out, b.forecast)
	return out
}

// Snapshot returns live and forecast together with the time of the last reading.
func (b *Board) Snapshot() (domain.Weather, []domain.Weather, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Weather, len(b.forecast))
	copy(out, b.forecast)
	return b.live, out, b.updatedAt
}
