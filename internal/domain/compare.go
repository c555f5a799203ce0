package domain

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// SamePlumes reports whether two plume lists would render identically:
// equal length and, index by index, equal farm, type, radius and sector.
// Radii are compared exactly; they are already rounded to 0.1 m.
func SamePlumes(a, b []Plume) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.FarmID != y.FarmID || x.Type != y.Type || x.Radius != y.Radius ||
			x.StartAngle != y.StartAngle || x.EndAngle != y.EndAngle {
			return false
		}
	}
	return true
}

// SameClusters reports whether two cluster lists have the same markers:
// equal length and, index by index, equal position and member ids.
func SameClusters(a, b []Cluster) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Position != y.Position || x.Count != y.Count || len(x.Members) != len(y.Members) {
			return false
		}
		for j := range x.Members {
			if x.Members[j].ID != y.Members[j].ID {
				return false
			}
		}
	}
	return true
}

// Fingerprint summarizes a farm selection for change detection. It hashes
// "id:type:count" for every farm joined by "|", preserving order, so a
// reordered selection counts as a change.
func Fingerprint(farms []FarmLite) uint64 {
	buf := make([]byte, 0, len(farms)*24)
	for i, f := range farms {
		if i > 0 {
			buf = append(buf, '|')
		}
		buf = strconv.AppendInt(buf, int64(f.ID), 10)
		buf = append(buf, ':')
		buf = append(buf, f.LivestockType...)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, int64(f.LivestockCount), 10)
	}
	return xxh3.Hash(buf)
}
