package domain

import "strings"

// LivestockType is the closed set of livestock labels found in the farm registry.
type LivestockType int

const (
	LivestockUnknown LivestockType = iota
	LivestockPig
	LivestockBroiler
	LivestockLayerBreeder
	LivestockHanwoo
	LivestockBeefCattle
	LivestockDairy
	LivestockCattle
	LivestockDeer
	LivestockDuck
	LivestockQuail
	LivestockGoat
	LivestockMountainGoat
)

var livestockLabels = map[string]LivestockType{
	"돼지":     LivestockPig,
	"육계":     LivestockBroiler,
	"종계/산란계": LivestockLayerBreeder,
	"한우":     LivestockHanwoo,
	"육우":     LivestockBeefCattle,
	"젖소":     LivestockDairy,
	"소":      LivestockCattle,
	"사슴":     LivestockDeer,
	"오리":     LivestockDuck,
	"메추리":    LivestockQuail,
	"염소":     LivestockGoat,
	"산양":     LivestockMountainGoat,
}

// ParseLivestockType maps a registry label to a LivestockType. The second
// return value is false for labels outside the known set.
func ParseLivestockType(label string) (LivestockType, bool) {
	t, ok := livestockLabels[strings.TrimSpace(label)]
	return t, ok
}

// SpeciesMultiplier is the odor calibration factor for the livestock type.
// Only the generic 소 label is calibrated for cattle; 한우, 육우 and 젖소
// share its color group but take 1.0 like other uncalibrated types.
func (t LivestockType) SpeciesMultiplier() float64 {
	switch t {
	case LivestockPig:
		return 3.0
	case LivestockBroiler, LivestockLayerBreeder:
		return 1.4
	case LivestockCattle:
		return 2.0
	case LivestockDeer:
		return 1.0
	default:
		return 1.0
	}
}

// Group returns the category used by the scale filter and plume coloring.
func (t LivestockType) Group() Group {
	switch t {
	case LivestockHanwoo, LivestockBeefCattle, LivestockDairy, LivestockCattle:
		return GroupCattle
	case LivestockPig:
		return GroupPig
	case LivestockLayerBreeder, LivestockBroiler:
		return GroupChicken
	case LivestockDuck:
		return GroupDuck
	case LivestockDeer:
		return GroupDeer
	default:
		return GroupOther
	}
}

// Group is a livestock category shown as one color on the map.
type Group string

const (
	GroupCattle  Group = "소"
	GroupPig     Group = "돼지"
	GroupChicken Group = "닭"
	GroupDuck    Group = "오리"
	GroupDeer    Group = "사슴"
	GroupOther   Group = "기타"
)

// Color is the stroke color for plumes of this group.
func (g Group) Color() string {
	switch g {
	case GroupChicken:
		return "#FFA500"
	case GroupCattle:
		return "#1E90FF"
	case GroupPig:
		return "#FF69B4"
	case GroupDeer:
		return "#32CD32"
	default:
		return "#8884FF"
	}
}

// GroupOf returns the group for a raw registry label.
func GroupOf(label string) Group {
	t, _ := ParseLivestockType(label)
	return t.Group()
}
