// Package archetype defines the closed archetype label set and the ordered
// rule cascade that corrects raw cluster labels with basketball-domain
// knowledge.
package archetype

import (
	"math"

	"github.com/stitts-dev/court-iq/pkg/types"
)

// Label is a behavioral archetype drawn from a fixed closed set.
type Label string

const (
	Playmaker      Label = "Playmaker"
	ComboGuard     Label = "Combo Guard"
	ThreeAndDWing  Label = "3-and-D Wing"
	ScoringWing    Label = "Scoring Wing"
	AthleticWing   Label = "Athletic Wing"
	PointForward   Label = "Point Forward"
	StretchBig     Label = "Stretch Big"
	VersatileBig   Label = "Versatile Big"
	TraditionalBig Label = "Traditional Big"
	PointCenter    Label = "Point Center"
)

// AllLabels is the closed label set. Every final assignment must be a member.
var AllLabels = []Label{
	Playmaker, ComboGuard, ThreeAndDWing, ScoringWing, AthleticWing,
	PointForward, StretchBig, VersatileBig, TraditionalBig, PointCenter,
}

// Valid reports membership in the closed label set.
func (l Label) Valid() bool {
	for _, candidate := range AllLabels {
		if l == candidate {
			return true
		}
	}
	return false
}

// InteriorLabels are archetypes whose role involves regular interior
// contact; the size mismatch signal applies at full weight only to these.
var InteriorLabels = map[Label]bool{
	TraditionalBig: true,
	VersatileBig:   true,
	StretchBig:     true,
	PointCenter:    true,
}

// FacilitatorLabels are primary ball-initiation archetypes, gated by the
// touches-per-minute floor in the cascade.
var FacilitatorLabels = map[Label]bool{
	Playmaker:    true,
	PointForward: true,
	PointCenter:  true,
}

// labelPositions maps each archetype onto the positions it occupies, used
// for positional distance between archetypes.
var labelPositions = map[Label][]types.Position{
	TraditionalBig: {types.Center},
	VersatileBig:   {types.PowerForward, types.Center},
	StretchBig:     {types.Center, types.PowerForward},
	PointCenter:    {types.Center},
	PointForward:   {types.SmallForward, types.PowerForward},
	ScoringWing:    {types.SmallForward, types.ShootingGuard},
	AthleticWing:   {types.SmallForward, types.PowerForward},
	ThreeAndDWing:  {types.SmallForward, types.ShootingGuard},
	ComboGuard:     {types.PointGuard, types.ShootingGuard},
	Playmaker:      {types.PointGuard},
}

// PrimaryPosition returns the first (most representative) position for an
// archetype. Unknown labels default to small forward, the positional middle.
func (l Label) PrimaryPosition() types.Position {
	if positions, ok := labelPositions[l]; ok {
		return positions[0]
	}
	return types.SmallForward
}

var positionOrder = map[types.Position]int{
	types.Center:        0,
	types.PowerForward:  1,
	types.SmallForward:  2,
	types.ShootingGuard: 3,
	types.PointGuard:    4,
}

var labelDistance map[[2]Label]float64

func init() {
	labelDistance = make(map[[2]Label]float64, len(AllLabels)*len(AllLabels))
	for _, a := range AllLabels {
		for _, b := range AllLabels {
			if a == b {
				labelDistance[[2]Label{a, b}] = 0
				continue
			}
			min := math.Inf(1)
			for _, pa := range labelPositions[a] {
				for _, pb := range labelPositions[b] {
					d := math.Abs(float64(positionOrder[pa] - positionOrder[pb]))
					if d < min {
						min = d
					}
				}
			}
			labelDistance[[2]Label{a, b}] = min
		}
	}
}

// Distance returns the positional distance between two archetypes: 0 for the
// same archetype, 1 for adjacent positions, larger for farther apart.
// Unknown labels are treated as maximally distant.
func Distance(a, b Label) float64 {
	if d, ok := labelDistance[[2]Label{a, b}]; ok {
		return d
	}
	return 4.0
}

// ImpliedInteriorUsage is the assumed interior shot share for a player with
// no shot-zone data, derived from the archetype alone.
func ImpliedInteriorUsage(l Label) float64 {
	if InteriorLabels[l] {
		return 0.7
	}
	return 0.25
}
