package domain

import (
	"log/slog"
	"math"
)

const (
	// BaseRadiusMeters is the radius of the smallest farm before multipliers.
	BaseRadiusMeters = 500.0
	// MaxRadiusMeters is the radius of the largest farm before multipliers.
	MaxRadiusMeters = 5000.0
	// SectorHalfAngleDeg is half the width of the downwind cone.
	SectorHalfAngleDeg = 30.0
)

// MaxCountMode selects the population used for head-count normalization.
type MaxCountMode string

const (
	// MaxCountGlobal normalizes against every farm, so toggling filters does
	// not resize the remaining plumes.
	MaxCountGlobal MaxCountMode = "global"
	// MaxCountVisible normalizes against the filtered selection only.
	MaxCountVisible MaxCountMode = "visible"
)

// ParseMaxCountMode returns MaxCountGlobal and false for unknown values.
func ParseMaxCountMode(s string) (MaxCountMode, bool) {
	switch MaxCountMode(s) {
	case MaxCountGlobal:
		return MaxCountGlobal, true
	case MaxCountVisible:
		return MaxCountVisible, true
	default:
		return MaxCountGlobal, false
	}
}

// ComputePlumes returns one plume per usable farm, in input order.
//
// maxCount is the normalization denominator chosen by the caller (for
// example the unfiltered population's largest head count). It is raised to
// the largest count in farms when smaller, and to 1 when the batch is empty,
// so a farm's extra radius never exceeds the full range.
//
// Unknown livestock labels take the default multiplier and are logged once
// per call when logger is non-nil.
func ComputePlumes(farms []FarmLite, w Weather, maxCount int, logger *slog.Logger) []Plume {
	safeMax := max(1, maxCount)
	usable := 0
	for _, f := range farms {
		if f.usable() {
			usable++
			safeMax = max(safeMax, f.LivestockCount)
		}
	}

	w = w.Sanitize()
	envMul := w.windMultiplier() * w.Stability.multiplier() * w.humidityMultiplier()
	start, end := SectorBounds(w.WindDirectionDeg)

	var warned map[string]struct{}
	plumes := make([]Plume, 0, usable)
	for _, f := range farms {
		if !f.usable() {
			continue
		}
		t, known := ParseLivestockType(f.LivestockType)
		if !known && logger != nil {
			if warned == nil {
				warned = make(map[string]struct{})
			}
			if _, seen := warned[f.LivestockType]; !seen {
				warned[f.LivestockType] = struct{}{}
				logger.Warn("unknown livestock type, using default multiplier",
					"livestock_type", f.LivestockType,
					"farm_id", f.ID,
				)
			}
		}

		extra := float64(f.LivestockCount) / float64(safeMax) * (MaxRadiusMeters - BaseRadiusMeters)
		radius := round1(math.Max(0, (BaseRadiusMeters+extra)*t.SpeciesMultiplier()*envMul))

		plumes = append(plumes, Plume{
			FarmID:     f.ID,
			Type:       f.LivestockType,
			Center:     LatLng{Lat: f.Lat, Lng: f.Lng},
			Radius:     radius,
			StartAngle: start,
			EndAngle:   end,
			Color:      t.Group().Color(),
		})
	}
	return plumes
}

// SectorBounds returns the start and end bearings of the downwind cone
// centered on windDirectionDeg. The clockwise arc from start to end is
// always 2×SectorHalfAngleDeg.
func SectorBounds(windDirectionDeg float64) (float64, float64) {
	dir := NormalizeDeg(windDirectionDeg)
	return NormalizeDeg(dir - SectorHalfAngleDeg), NormalizeDeg(dir + SectorHalfAngleDeg)
}

// SectorRing approximates a plume's sector as a closed polygon ring starting
// and ending at the center. steps is the number of arc segments.
func SectorRing(p Plume, steps int) []LatLng {
	if steps < 1 {
		steps = 1
	}
	sweep := NormalizeDeg(p.EndAngle - p.StartAngle)
	ring := make([]LatLng, 0, steps+3)
	ring = append(ring, p.Center)
	for i := 0; i <= steps; i++ {
		bearing := p.StartAngle + sweep*float64(i)/float64(steps)
		ring = append(ring, Destination(p.Center, bearing, p.Radius))
	}
	return append(ring, p.Center)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
