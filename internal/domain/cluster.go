package domain

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultClusterThresholdMeters is the merge distance for complaint markers.
	DefaultClusterThresholdMeters = 100.0
	// ClusterCellSizeDeg is the spatial hash cell edge, roughly 50 m of latitude.
	ClusterCellSizeDeg = 0.0005
)

// ErrInvalidThreshold is returned for a negative or non-finite merge distance.
var ErrInvalidThreshold = errors.New("cluster threshold must be a finite, non-negative distance")

// Cluster is a group of nearby complaints drawn as a single map marker.
type Cluster struct {
	Position LatLng           `json:"position"`
	Count    int              `json:"count"`
	Members  []ComplaintPoint `json:"members"`
	Region   string           `json:"region"`
}

type cellKey struct {
	x, y int64
}

type located struct {
	idx int
	loc LatLng
}

func cellOf(loc LatLng) cellKey {
	return cellKey{
		x: int64(math.Floor(loc.Lat / ClusterCellSizeDeg)),
		y: int64(math.Floor(loc.Lng / ClusterCellSizeDeg)),
	}
}

// ClusterComplaints partitions the complaints that have a usable location.
//
// Points are visited in input order. An unassigned point seeds a new cluster
// and absorbs every unassigned point in its own or the 8 neighboring grid
// cells that lies within thresholdMeters of it. Clusters are returned in
// creation order; each centroid is the plain mean of member coordinates and
// Region is the seed's region.
func ClusterComplaints(points []ComplaintPoint, thresholdMeters float64) ([]Cluster, error) {
	if thresholdMeters < 0 || math.IsNaN(thresholdMeters) || math.IsInf(thresholdMeters, 0) {
		return nil, fmt.Errorf("cluster complaints: %w", ErrInvalidThreshold)
	}

	valid := make([]located, 0, len(points))
	grid := make(map[cellKey][]int)
	for i, p := range points {
		loc, ok := p.Location()
		if !ok {
			continue
		}
		grid[cellOf(loc)] = append(grid[cellOf(loc)], len(valid))
		valid = append(valid, located{idx: i, loc: loc})
	}

	clusters := make([]Cluster, 0)
	if len(valid) == 0 {
		return clusters, nil
	}

	assigned := make([]bool, len(valid))
	for seed := range valid {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		members := []int{seed}

		origin := valid[seed].loc
		base := cellOf(origin)
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for _, cand := range grid[cellKey{x: base.x + dx, y: base.y + dy}] {
					if assigned[cand] {
						continue
					}
					if HaversineMeters(origin, valid[cand].loc) <= thresholdMeters {
						assigned[cand] = true
						members = append(members, cand)
					}
				}
			}
		}

		clusters = append(clusters, buildCluster(points, valid, members))
	}
	return clusters, nil
}

func buildCluster(points []ComplaintPoint, valid []located, members []int) Cluster {
	c := Cluster{
		Count:   len(members),
		Members: make([]ComplaintPoint, 0, len(members)),
		Region:  points[valid[members[0]].idx].Region,
	}
	var sumLat, sumLng float64
	for _, m := range members {
		sumLat += valid[m].loc.Lat
		sumLng += valid[m].loc.Lng
		c.Members = append(c.Members, points[valid[m].idx])
	}
	c.Position = LatLng{
		Lat: sumLat / float64(len(members)),
		Lng: sumLng / float64(len(members)),
	}
	return c
}

// MarkerScale returns the marker radius in pixels for a cluster of count complaints.
func MarkerScale(count int) int {
	switch {
	case count <= 1:
		return 8
	case count <= 5:
		return 12
	case count <= 10:
		return 16
	case count <= 20:
		return 20
	case count <= 50:
		return 24
	default:
		return 28
	}
}
