package domain

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6_371_000.0

// LatLng is a WGS-84 latitude/longitude pair in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// validLocation reports whether lat/lng form a usable coordinate. Missing or
// non-finite values are unusable, and so is a zero on either axis, which
// upstream exports write for a blank coordinate cell.
func validLocation(lat, lng *float64) (LatLng, bool) {
	if lat == nil || lng == nil {
		return LatLng{}, false
	}
	la, ln := *lat, *lng
	if math.IsNaN(la) || math.IsNaN(ln) || math.IsInf(la, 0) || math.IsInf(ln, 0) {
		return LatLng{}, false
	}
	if la == 0 || ln == 0 {
		return LatLng{}, false
	}
	if la < -90 || la > 90 || ln < -180 || ln > 180 {
		return LatLng{}, false
	}
	return LatLng{Lat: la, Lng: ln}, true
}

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// NormalizeDeg maps any angle into [0, 360). Non-finite input maps to 0.
func NormalizeDeg(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	d := math.Mod(math.Mod(deg, 360)+360, 360)
	if d >= 360 {
		return 0
	}
	return d
}

// AngleDiffDeg returns the shortest-arc difference between two bearings, in [0, 180].
func AngleDiffDeg(a, b float64) float64 {
	return math.Abs(NormalizeDeg(a-b+180) - 180)
}

// Destination returns the point reached by travelling distance meters from
// origin along the given compass bearing.
func Destination(origin LatLng, bearingDeg, meters float64) LatLng {
	delta := meters / EarthRadiusMeters
	theta := bearingDeg * math.Pi / 180
	lat1 := origin.Lat * math.Pi / 180
	lng1 := origin.Lng * math.Pi / 180

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return LatLng{
		Lat: lat2 * 180 / math.Pi,
		Lng: math.Mod(lng2*180/math.Pi+540, 360) - 180,
	}
}
