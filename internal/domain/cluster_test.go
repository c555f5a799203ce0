package domain

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func complaint(id int, lat, lng float64, region string) ComplaintPoint {
	return ComplaintPoint{ID: id, Lat: ptr(lat), Lng: ptr(lng), Date: "2024-05-03", Region: region}
}

func TestClusterComplaints_Scenario(t *testing.T) {
	points := []ComplaintPoint{
		complaint(1, 36.7855, 127.1020, "배방읍"),
		complaint(2, 36.78551, 127.10201, "배방읍"),
		complaint(3, 36.9000, 127.3000, "둔포면"),
	}

	clusters, err := ClusterComplaints(points, DefaultClusterThresholdMeters)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, 2, clusters[0].Count)
	assert.Equal(t, []int{1, 2}, memberIDs(clusters[0]))
	assert.Equal(t, "배방읍", clusters[0].Region)
	assert.InDelta(t, 36.785505, clusters[0].Position.Lat, 1e-9)
	assert.InDelta(t, 127.102005, clusters[0].Position.Lng, 1e-9)

	assert.Equal(t, 1, clusters[1].Count)
	assert.Equal(t, []int{3}, memberIDs(clusters[1]))
	assert.Equal(t, "둔포면", clusters[1].Region)
}

func TestClusterComplaints_DropsInvalidLocations(t *testing.T) {
	points := []ComplaintPoint{
		{ID: 1, Region: "no coords"},
		{ID: 2, Lat: ptr(36.78), Region: "half coords"},
		{ID: 3, Lat: ptr(0.0), Lng: ptr(0.0), Region: "null island"},
		{ID: 4, Lat: ptr(math.NaN()), Lng: ptr(127.0)},
		{ID: 5, Lat: ptr(36.78), Lng: ptr(0.0), Region: "blank lng"},
	}

	clusters, err := ClusterComplaints(points, DefaultClusterThresholdMeters)
	require.NoError(t, err)
	assert.NotNil(t, clusters)
	assert.Empty(t, clusters)
}

func TestClusterComplaints_InvalidThreshold(t *testing.T) {
	for _, th := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := ClusterComplaints(nil, th)
		require.ErrorIs(t, err, ErrInvalidThreshold)
	}
}

func TestClusterComplaints_OrderFollowsSeeds(t *testing.T) {
	points := []ComplaintPoint{
		complaint(10, 36.90, 127.30, "c"),
		complaint(20, 36.70, 127.00, "a"),
		complaint(30, 36.90005, 127.30005, "c"),
		complaint(40, 36.80, 127.10, "b"),
	}

	clusters, err := ClusterComplaints(points, DefaultClusterThresholdMeters)
	require.NoError(t, err)
	require.Len(t, clusters, 3)
	assert.Equal(t, []int{10, 30}, memberIDs(clusters[0]))
	assert.Equal(t, []int{20}, memberIDs(clusters[1]))
	assert.Equal(t, []int{40}, memberIDs(clusters[2]))
}

func TestClusterComplaints_NeighborCellLink(t *testing.T) {
	// Straddles a cell boundary at lat 36.7850 (cell edge every 0.0005°).
	points := []ComplaintPoint{
		complaint(1, 36.78499, 127.1001, "x"),
		complaint(2, 36.78503, 127.1001, "x"),
	}

	clusters, err := ClusterComplaints(points, DefaultClusterThresholdMeters)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].Count)
}

func TestClusterComplaints_ZeroThresholdKeepsDuplicatesTogether(t *testing.T) {
	points := []ComplaintPoint{
		complaint(1, 36.78, 127.1, "x"),
		complaint(2, 36.78, 127.1, "x"),
		complaint(3, 36.7801, 127.1, "x"),
	}

	clusters, err := ClusterComplaints(points, 0)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Equal(t, []int{1, 2}, memberIDs(clusters[0]))
}

func TestClusterComplaints_PartitionAndLinkage(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	points := make([]ComplaintPoint, 0, 600)
	for i := range 600 {
		if i%17 == 0 {
			points = append(points, ComplaintPoint{ID: i, Region: "missing"})
			continue
		}
		lat := 36.78 + rng.Float64()*0.01
		lng := 127.10 + rng.Float64()*0.01
		points = append(points, complaint(i, lat, lng, "r"))
	}

	clusters, err := ClusterComplaints(points, DefaultClusterThresholdMeters)
	require.NoError(t, err)

	seen := map[int]int{}
	for ci, c := range clusters {
		assert.Equal(t, len(c.Members), c.Count)
		for _, m := range c.Members {
			prev, dup := seen[m.ID]
			require.False(t, dup, "point %d in clusters %d and %d", m.ID, prev, ci)
			seen[m.ID] = ci
		}

		if c.Count < 2 {
			continue
		}
		seed, _ := c.Members[0].Location()
		for _, m := range c.Members[1:] {
			loc, _ := m.Location()
			assert.LessOrEqual(t, HaversineMeters(seed, loc), DefaultClusterThresholdMeters)
		}
	}

	for _, p := range points {
		_, ok := p.Location()
		_, clustered := seen[p.ID]
		assert.Equal(t, ok, clustered, "point %d", p.ID)
	}
}

func TestMarkerScale(t *testing.T) {
	cases := map[int]int{1: 8, 2: 12, 5: 12, 6: 16, 10: 16, 20: 20, 50: 24, 51: 28, 500: 28}
	for count, want := range cases {
		assert.Equal(t, want, MarkerScale(count), "count %d", count)
	}
}

func memberIDs(c Cluster) []int {
	ids := make([]int, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
