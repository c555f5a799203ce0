package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Stability is a coarse atmospheric mixing category.
type Stability int

const (
	StabilityNeutral Stability = iota
	StabilityStable
	StabilityUnstable
)

// ParseStability maps "stable", "neutral" or "unstable" to a Stability.
// Anything else yields StabilityNeutral and false.
func ParseStability(s string) (Stability, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stable":
		return StabilityStable, true
	case "unstable":
		return StabilityUnstable, true
	case "neutral":
		return StabilityNeutral, true
	default:
		return StabilityNeutral, false
	}
}

func (s Stability) String() string {
	switch s {
	case StabilityStable:
		return "stable"
	case StabilityUnstable:
		return "unstable"
	default:
		return "neutral"
	}
}

func (s Stability) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts any string; unknown values decode as neutral.
func (s *Stability) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("stability: %w", err)
	}
	*s, _ = ParseStability(raw)
	return nil
}

func (s Stability) multiplier() float64 {
	switch s {
	case StabilityStable:
		return 1.4
	case StabilityUnstable:
		return 0.8
	default:
		return 1.0
	}
}

// Weather is one snapshot of the conditions driving the dispersion model.
type Weather struct {
	WindDirectionDeg float64   `json:"windDirectionDeg"`
	WindSpeedMps     float64   `json:"windSpeedMps"`
	HumidityPct      float64   `json:"humidityPct"`
	Stability        Stability `json:"stability"`
}

// DefaultWeather is used until the first live reading arrives.
var DefaultWeather = Weather{WindDirectionDeg: 0, WindSpeedMps: 1, HumidityPct: 50, Stability: StabilityNeutral}

// Sanitize clamps every field into its declared range.
func (w Weather) Sanitize() Weather {
	w.WindDirectionDeg = NormalizeDeg(w.WindDirectionDeg)
	if math.IsNaN(w.WindSpeedMps) || w.WindSpeedMps < 0 {
		w.WindSpeedMps = 0
	}
	switch {
	case math.IsNaN(w.HumidityPct) || w.HumidityPct < 0:
		w.HumidityPct = 0
	case w.HumidityPct > 100:
		w.HumidityPct = 100
	}
	return w
}

func (w Weather) windMultiplier() float64 {
	switch {
	case w.WindSpeedMps <= 0.5:
		return 1.5
	case w.WindSpeedMps >= 1.5:
		return 0.7
	default:
		return 1.0
	}
}

func (w Weather) humidityMultiplier() float64 {
	return 1 + (w.HumidityPct/100)*0.3
}

// Scenario selects which weather drives a session's plumes.
type Scenario string

const (
	// ScenarioAverage uses live weather, or the selected forecast slot.
	ScenarioAverage Scenario = "average"
	// ScenarioWorst pins calm, humid, stable air.
	ScenarioWorst Scenario = "worst"
	// ScenarioBest pins windy, dry, unstable air.
	ScenarioBest Scenario = "best"
)

// ParseScenario returns ScenarioAverage for unknown values.
func ParseScenario(s string) (Scenario, bool) {
	switch Scenario(strings.ToLower(strings.TrimSpace(s))) {
	case ScenarioWorst:
		return ScenarioWorst, true
	case ScenarioBest:
		return ScenarioBest, true
	case ScenarioAverage:
		return ScenarioAverage, true
	default:
		return ScenarioAverage, false
	}
}

// ActiveWeather resolves the single weather value in effect for a scenario.
// forecastIndex > 0 selects forecast[forecastIndex]; index 0 means live.
// Worst and best scenarios keep the live wind direction. In the average
// scenario the supplied stability applies.
func ActiveWeather(scenario Scenario, live Weather, forecast []Weather, forecastIndex int, stability Stability) Weather {
	switch scenario {
	case ScenarioWorst:
		return Weather{WindDirectionDeg: live.WindDirectionDeg, WindSpeedMps: 1, HumidityPct: 98, Stability: StabilityStable}
	case ScenarioBest:
		return Weather{WindDirectionDeg: live.WindDirectionDeg, WindSpeedMps: 3.6, HumidityPct: 0, Stability: StabilityUnstable}
	}

	w := live
	if forecastIndex > 0 && forecastIndex < len(forecast) {
		w = forecast[forecastIndex]
	}
	w.Stability = stability
	return w
}

// Guidance is a short citizen-facing note on how the weather affects odor.
func Guidance(w Weather) string {
	switch {
	case w.WindSpeedMps <= 1.0:
		return "Light wind: odor may spread widely."
	case w.WindSpeedMps >= 2.0:
		return "Strong wind: odor disperses quickly."
	case w.HumidityPct >= 70:
		return "High humidity: odor may linger."
	case w.HumidityPct <= 30:
		return "Low humidity: odor spread may be limited."
	default:
		return "Odor spread is moderate under current conditions."
	}
}
