package domain

import "time"

// FarmRecord is a farm as supplied by the farm registry.
type FarmRecord struct {
	ID             int      `json:"id"`
	LivestockType  string   `json:"livestockType"`
	LivestockCount int      `json:"livestockCount"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
}

// Lite projects the record onto the fields the dispersion model needs. The
// second return value is false when the farm has no usable location or no
// animals.
func (f FarmRecord) Lite() (FarmLite, bool) {
	loc, ok := validLocation(f.Lat, f.Lng)
	if !ok || f.LivestockCount <= 0 {
		return FarmLite{}, false
	}
	return FarmLite{
		ID:             f.ID,
		Lat:            loc.Lat,
		Lng:            loc.Lng,
		LivestockType:  f.LivestockType,
		LivestockCount: f.LivestockCount,
	}, true
}

// FarmLite is the reduced farm projection sent to the dispersion worker.
type FarmLite struct {
	ID             int     `json:"id"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	LivestockType  string  `json:"livestockType"`
	LivestockCount int     `json:"livestockCount"`
}

func (f FarmLite) usable() bool {
	lat, lng := f.Lat, f.Lng
	_, ok := validLocation(&lat, &lng)
	return ok && f.LivestockCount > 0
}

// LiteFarms projects records in order, dropping the unusable ones.
func LiteFarms(records []FarmRecord) []FarmLite {
	out := make([]FarmLite, 0, len(records))
	for _, r := range records {
		if lite, ok := r.Lite(); ok {
			out = append(out, lite)
		}
	}
	return out
}

// MaxLivestockCount returns the largest head count among usable farms, or 0.
func MaxLivestockCount(records []FarmRecord) int {
	maxCount := 0
	for _, r := range records {
		if _, ok := r.Lite(); ok && r.LivestockCount > maxCount {
			maxCount = r.LivestockCount
		}
	}
	return maxCount
}

// WeatherSnapshot is the wire form of a weather reading.
type WeatherSnapshot struct {
	WindDirectionDeg float64 `json:"windDirectionDeg"`
	WindSpeedMps     float64 `json:"windSpeedMps"`
	HumidityPct      float64 `json:"humidityPct"`
	Stability        string  `json:"stability"`
}

// Weather converts the snapshot. The second return value is false when the
// stability label was not recognized and neutral was substituted.
func (s WeatherSnapshot) Weather() (Weather, bool) {
	stability, ok := ParseStability(s.Stability)
	if s.Stability == "" {
		ok = true
	}
	w := Weather{
		WindDirectionDeg: s.WindDirectionDeg,
		WindSpeedMps:     s.WindSpeedMps,
		HumidityPct:      s.HumidityPct,
		Stability:        stability,
	}
	return w.Sanitize(), ok
}

// Snapshot returns the wire form of w.
func (w Weather) Snapshot() WeatherSnapshot {
	return WeatherSnapshot{
		WindDirectionDeg: w.WindDirectionDeg,
		WindSpeedMps:     w.WindSpeedMps,
		HumidityPct:      w.HumidityPct,
		Stability:        w.Stability.String(),
	}
}

// ComplaintPoint is a citizen odor complaint.
type ComplaintPoint struct {
	ID     int      `json:"id"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Date   string   `json:"date"`
	Region string   `json:"region"`
	Period *string  `json:"period"`
}

// Location returns the complaint's coordinate if it is usable.
func (c ComplaintPoint) Location() (LatLng, bool) {
	return validLocation(c.Lat, c.Lng)
}

// DispatchMessage is the control-to-worker message. It is a value snapshot:
// the worker never sees the caller's slices.
type DispatchMessage struct {
	Farms         []FarmLite `json:"farms"`
	MaxCount      int        `json:"maxCount"`
	WindSpeed     float64    `json:"windSpeed"`
	Humidity      float64    `json:"humidity"`
	Stability     string     `json:"stability"`
	WindDirection float64    `json:"windDirection"`
}

// NewDispatchMessage builds a message from a farm selection and weather.
func NewDispatchMessage(farms []FarmLite, maxCount int, w Weather) DispatchMessage {
	copied := make([]FarmLite, len(farms))
	copy(copied, farms)
	return DispatchMessage{
		Farms:         copied,
		MaxCount:      maxCount,
		WindSpeed:     w.WindSpeedMps,
		Humidity:      w.HumidityPct,
		Stability:     w.Stability.String(),
		WindDirection: w.WindDirectionDeg,
	}
}

// Weather extracts the weather carried by the message. The second return
// value is false when the stability label was not recognized.
func (m DispatchMessage) Weather() (Weather, bool) {
	return WeatherSnapshot{
		WindDirectionDeg: m.WindDirection,
		WindSpeedMps:     m.WindSpeed,
		HumidityPct:      m.Humidity,
		Stability:        m.Stability,
	}.Weather()
}

// Plume is the odor footprint of one farm: a circle of Radius meters and a
// sector from StartAngle clockwise to EndAngle (compass degrees).
type Plume struct {
	FarmID     int     `json:"farmId"`
	Type       string  `json:"type"`
	Center     LatLng  `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"startAngle"`
	EndAngle   float64 `json:"endAngle"`
	Color      string  `json:"color"`
}

// PlumeGeneration is one published set of plumes for a session.
type PlumeGeneration struct {
	SessionID   string    `json:"session_id"`
	Plumes      []Plume   `json:"plumes"`
	PublishedAt time.Time `json:"published_at"`
}

// NewPlumeGeneration stamps plumes with the current time.
func NewPlumeGeneration(sessionID string, plumes []Plume) PlumeGeneration {
	if plumes == nil {
		plumes = []Plume{}
	}
	return PlumeGeneration{
		SessionID:   sessionID,
		Plumes:      plumes,
		PublishedAt: clock.Now().UTC(),
	}
}
