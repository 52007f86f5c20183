// pkg/core/region.go
package core

// Region is one of the six addressable body regions of a segmented profile.
type Region uint8

const (
	Head Region = iota
	Torso
	LeftArm
	RightArm
	LeftLeg
	RightLeg
)

// Regions lists every region in container order.
var Regions = [...]Region{Head, Torso, LeftArm, RightArm, LeftLeg, RightLeg}

var regionNames = [...]string{
	Head:     "head",
	Torso:    "torso",
	LeftArm:  "left_arm",
	RightArm: "right_arm",
	LeftLeg:  "left_leg",
	RightLeg: "right_leg",
}

var regionPhrases = [...]string{
	Head:     "head",
	Torso:    "torso",
	LeftArm:  "left arm",
	RightArm: "right arm",
	LeftLeg:  "left leg",
	RightLeg: "right leg",
}

// String returns the selector name, e.g. "left_arm".
func (r Region) String() string {
	if int(r) < len(regionNames) {
		return regionNames[r]
	}
	return "unknown"
}

// Phrase returns the narration form, e.g. "left arm".
func (r Region) Phrase() string {
	if int(r) < len(regionPhrases) {
		return regionPhrases[r]
	}
	return ""
}

// ParseRegion maps a selector name to a Region.
func ParseRegion(s string) (Region, bool) {
	for i, name := range regionNames {
		if name == s {
			return Region(i), true
		}
	}
	return 0, false
}
