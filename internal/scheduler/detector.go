package scheduler

import (
	"math"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
)

// Thresholds below which a weather change is not worth a recompute.
const (
	SpeedThresholdMps     = 0.2
	HumidityThresholdPct  = 3.0
	DirectionThresholdDeg = 3.0
)

// WeatherChanged reports whether next differs materially from prev.
func WeatherChanged(prev, next domain.Weather) bool {
	return math.Abs(next.WindSpeedMps-prev.WindSpeedMps) > SpeedThresholdMps ||
		math.Abs(next.HumidityPct-prev.HumidityPct) > HumidityThresholdPct ||
		domain.AngleDiffDeg(next.WindDirectionDeg, prev.WindDirectionDeg) > DirectionThresholdDeg ||
		next.Stability != prev.Stability
}

// ChangeDetector remembers the inputs of the last dispatch decision.
// The zero value reports every input as changed.
type ChangeDetector struct {
	primed      bool
	weather     domain.Weather
	fingerprint uint64
	maxCount    int
}

// Changed reports whether the weather or the farm selection differs from
// the last committed inputs.
func (d *ChangeDetector) Changed(w domain.Weather, fingerprint uint64, maxCount int) bool {
	if !d.primed {
		return true
	}
	return WeatherChanged(d.weather, w) || fingerprint != d.fingerprint || maxCount != d.maxCount
}

// Commit records the inputs of a dispatch decision.
func (d *ChangeDetector) Commit(w domain.Weather, fingerprint uint64, maxCount int) {
	d.primed = true
	d.weather = w
	d.fingerprint = fingerprint
	d.maxCount = maxCount
}

// Reset forgets the committed inputs so the next request always recomputes.
func (d *ChangeDetector) Reset() {
	*d = ChangeDetector{}
}
