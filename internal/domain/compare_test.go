package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamePlumes(t *testing.T) {
	a := []Plume{
		{FarmID: 1, Type: testPig, Radius: 1234.5, StartAngle: 60, EndAngle: 120, Center: LatLng{Lat: 1, Lng: 2}},
		{FarmID: 2, Type: testDeer, Radius: 800, StartAngle: 60, EndAngle: 120},
	}
	same := []Plume{
		{FarmID: 1, Type: testPig, Radius: 1234.5, StartAngle: 60, EndAngle: 120, Center: LatLng{Lat: 9, Lng: 9}},
		{FarmID: 2, Type: testDeer, Radius: 800, StartAngle: 60, EndAngle: 120},
	}

	assert.True(t, SamePlumes(a, same), "center is not part of the comparison")
	assert.True(t, SamePlumes(nil, []Plume{}))
	assert.False(t, SamePlumes(a, a[:1]))

	mutations := map[string]func(p *Plume){
		"farm":   func(p *Plume) { p.FarmID = 9 },
		"type":   func(p *Plume) { p.Type = testHanwoo },
		"radius": func(p *Plume) { p.Radius = 1234.6 },
		"start":  func(p *Plume) { p.StartAngle = 61 },
		"end":    func(p *Plume) { p.EndAngle = 121 },
	}
	for name, mutate := range mutations {
		b := append([]Plume(nil), a...)
		mutate(&b[1])
		assert.False(t, SamePlumes(a, b), name)
	}
}

func TestSameClusters(t *testing.T) {
	a := []Cluster{{Position: LatLng{Lat: 1, Lng: 2}, Count: 2, Members: []ComplaintPoint{{ID: 1}, {ID: 2}}}}
	b := []Cluster{{Position: LatLng{Lat: 1, Lng: 2}, Count: 2, Members: []ComplaintPoint{{ID: 1}, {ID: 2}}}}
	assert.True(t, SameClusters(a, b))

	b[0].Members[1].ID = 3
	assert.False(t, SameClusters(a, b))
	assert.False(t, SameClusters(a, nil))
}

func TestFingerprint(t *testing.T) {
	farms := []FarmLite{farm(1, testPig, 10), farm(2, testDeer, 20)}

	assert.Equal(t, Fingerprint(farms), Fingerprint([]FarmLite{farm(1, testPig, 10), farm(2, testDeer, 20)}))

	moved := []FarmLite{farms[0], farms[1]}
	moved[0].Lat = 10
	assert.Equal(t, Fingerprint(farms), Fingerprint(moved), "location is not part of the fingerprint")

	assert.NotEqual(t, Fingerprint(farms), Fingerprint([]FarmLite{farms[1], farms[0]}), "order matters")
	assert.NotEqual(t, Fingerprint(farms), Fingerprint([]FarmLite{farm(1, testPig, 11), farm(2, testDeer, 20)}))
	assert.NotEqual(t, Fingerprint(farms), Fingerprint(farms[:1]))
	assert.NotEqual(t, Fingerprint([]FarmLite{farm(1, "a", 12)}), Fingerprint([]FarmLite{farm(11, "a", 2)}))
}
