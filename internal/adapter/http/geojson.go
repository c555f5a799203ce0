package http

import (
	"net/http"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
)

// sectorSteps is the number of arc segments used to draw a plume's cone.
const sectorSteps = 24

// plumeCollection renders each plume as its downwind sector polygon.
// GeoJSON positions are [lng, lat].
func plumeCollection(plumes []domain.Plume) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range plumes {
		ring := domain.SectorRing(p, sectorSteps)
		coords := make([][]float64, len(ring))
		for i, pt := range ring {
			coords[i] = []float64{pt.Lng, pt.Lat}
		}
		f := geojson.NewPolygonFeature([][][]float64{coords})
		f.SetProperty("farmId", p.FarmID)
		f.SetProperty("type", p.Type)
		f.SetProperty("radius", p.Radius)
		f.SetProperty("startAngle", p.StartAngle)
		f.SetProperty("endAngle", p.EndAngle)
		f.SetProperty("color", p.Color)
		fc.AddFeature(f)
	}
	return fc
}

// clusterCollection renders each cluster as a point marker.
func clusterCollection(clusters []domain.Cluster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range clusters {
		f := geojson.NewPointFeature([]float64{c.Position.Lng, c.Position.Lat})
		f.SetProperty("count", c.Count)
		f.SetProperty("region", c.Region)
		f.SetProperty("markerScale", domain.MarkerScale(c.Count))
		fc.AddFeature(f)
	}
	return fc
}

func writeGeoJSON(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	data, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode geojson")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // best-effort response body
}
