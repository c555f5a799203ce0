package domain

// ScaleRange bounds a group's head count to [Min, Max). A nil Max is unbounded.
type ScaleRange struct {
	Min int  `json:"min"`
	Max *int `json:"max"`
}

func (r ScaleRange) contains(count int) bool {
	return count >= r.Min && (r.Max == nil || count < *r.Max)
}

// FarmFilter selects the farms shown on the map.
type FarmFilter struct {
	// Types lists the livestock labels to show. Nil shows every type; an
	// empty non-nil slice shows none.
	Types []string `json:"types"`
	// Scales restricts head counts per livestock group.
	Scales map[Group]ScaleRange `json:"scales,omitempty"`
}

// DefaultFarmFilter shows the types the dashboard selects on first load.
func DefaultFarmFilter() FarmFilter {
	return FarmFilter{Types: []string{"한우", "돼지", "젖소", "육우"}}
}

// Apply returns the records passing the filter, in input order.
func (f FarmFilter) Apply(records []FarmRecord) []FarmRecord {
	var allowed map[string]struct{}
	if f.Types != nil {
		allowed = make(map[string]struct{}, len(f.Types))
		for _, t := range f.Types {
			allowed[t] = struct{}{}
		}
	}

	out := make([]FarmRecord, 0, len(records))
	for _, r := range records {
		if allowed != nil {
			if _, ok := allowed[r.LivestockType]; !ok {
				continue
			}
		}
		if rng, ok := f.Scales[GroupOf(r.LivestockType)]; ok && !rng.contains(r.LivestockCount) {
			continue
		}
		out = append(out, r)
	}
	return out
}
