// Package domain models livestock-farm odor dispersion and citizen complaint
// clustering for the municipal odor map.
//
// # Dispersion Model
//
// Each farm gets a plume: a circle plus a 60° sector pointing downwind. The
// radius is a heuristic multiplier formula, not an atmospheric simulation:
//
//	radius = round1(max(0, (500 + count/safeMax × 4500) × species × wind × stability × humidity))
//
//	species:   pig 3.0 | broiler 1.4 | layer/breeder 1.4 | cattle 2.0 | deer 1.0 | other 1.0
//	wind:      ≤ 0.5 m/s 1.5 (calm air traps odor) | ≥ 1.5 m/s 0.7 | otherwise 1.0
//	stability: stable 1.4 | unstable 0.8 | neutral 1.0
//	humidity:  1 + humidity/100 × 0.3
//
// safeMax is shared by every farm in one batch so plume sizes are comparable
// within a call. Callers decide whether it is the max of the full farm
// population or of the filtered subset (see [MaxCountMode]).
//
// Angles use the compass convention: 0° = north, clockwise positive. Renderers
// that draw in a mathematical convention convert at their own boundary.
//
// # Livestock Labels
//
// Farm records carry Korean livestock labels from the municipal registry:
//
//	돼지 pig | 육계 broiler | 종계/산란계 layer/breeder | 한우 Hanwoo | 육우 beef cattle
//	젖소 dairy | 소 cattle | 사슴 deer | 오리 duck | 메추리 quail | 염소 goat | 산양 mountain goat
//
// Unknown labels never fail a computation; they take the default multiplier.
//
// # Complaint Clustering
//
// Complaints are hashed into a 0.0005° grid (~50 m) and each unassigned point
// seeds a cluster that absorbs unassigned points from its own and the 8
// neighboring cells within 100 m (haversine). This bounds the search to O(n)
// on average at the cost of occasionally missing a link across non-adjacent
// cells.
//
// # Data Quality
//
// Farms or complaints without a usable location, and farms with no animals,
// are filtered out before any computation. Filtering is not an error.
package domain
