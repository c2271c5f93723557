package archetype

import (
	"github.com/stitts-dev/court-iq/pkg/types"
)

// Profile is the raw statistical view of one player (or one centroid) that
// the labelling rules consume. Rate stats are per-100 possessions; position
// shares and shot shares are fractions in [0,1].
type Profile struct {
	PtsPer100  float64
	RebPer100  float64
	AstPer100  float64
	StlPer100  float64
	BlkPer100  float64
	Fg3mPer100 float64
	UsagePct   float64

	GuardPct   float64
	ForwardPct float64
	BigPct     float64

	TouchesPerMin float64
	HasTouches    bool

	InteriorShotShare float64
	ThreeShotShare    float64
	HasShotZones      bool
}

// ProfileFrom builds a rule profile from a stat record.
func ProfileFrom(r *types.PlayerStatRecord) Profile {
	return Profile{
		PtsPer100:         r.PtsPer100,
		RebPer100:         r.RebPer100,
		AstPer100:         r.AstPer100,
		StlPer100:         r.StlPer100,
		BlkPer100:         r.BlkPer100,
		Fg3mPer100:        r.Fg3mPer100,
		UsagePct:          r.UsagePct,
		GuardPct:          r.GuardShare(),
		ForwardPct:        r.ForwardShare(),
		BigPct:            r.BigShare(),
		TouchesPerMin:     r.TouchesPerMin,
		HasTouches:        r.TouchesPerMin > 0,
		InteriorShotShare: r.InteriorShotShare(),
		ThreeShotShare:    r.ThreeShotShare(),
		HasShotZones:      r.TotalFGA > 0,
	}
}

// Threshold constants for the cascade. Tunable, not structural: stage order
// and stage shape are the contract, the exact numbers are calibration.
const (
	bigShareFloor     = 0.30
	forwardShareFloor = 0.50
	guardShareFloor   = 0.50

	touchesInitiationFloor = 2.0

	frontcourtShareGate = 0.70
	escapeThreeShare    = 0.40
	escapeRebCeiling    = 9.0

	wingThreeShareFloor  = 0.45
	wingRebCeiling       = 8.0
	bigInteriorFloor     = 0.65
	bigRebFloor          = 9.0
	centerShareSplit     = 0.60
	traditionalFg3mLimit = 2.0
)

// BaseLabel maps a centroid's raw stat profile onto an archetype using
// threshold rules. This is the first stage of the cascade: every player
// inherits the base label of the centroid it is assigned to.
func BaseLabel(c Profile) Label {
	isBig := c.BigPct > bigShareFloor
	isForward := c.ForwardPct > forwardShareFloor && c.BigPct < 0.20
	isGuard := c.GuardPct > guardShareFloor

	switch {
	case isBig:
		switch {
		case c.AstPer100 > 5 && c.RebPer100 > 8:
			return PointCenter
		case c.Fg3mPer100 > 3:
			return StretchBig
		case c.RebPer100 > 10 && c.BlkPer100 > 1.5 && c.Fg3mPer100 < 2:
			return TraditionalBig
		case c.PtsPer100 > 20 || (c.RebPer100 > 8 && c.AstPer100 > 3):
			return VersatileBig
		default:
			return TraditionalBig
		}
	case isForward:
		switch {
		case c.AstPer100 > 6.5:
			return PointForward
		case c.PtsPer100 > 27 && c.UsagePct > 24:
			return ScoringWing
		case c.Fg3mPer100 > 4 && c.PtsPer100 < 22:
			return ThreeAndDWing
		case c.PtsPer100 > 22:
			return ScoringWing
		default:
			return AthleticWing
		}
	case isGuard:
		switch {
		case c.AstPer100 > 8 && c.PtsPer100 < 24:
			return Playmaker
		case c.PtsPer100 > 25 || c.AstPer100 > 7:
			return ComboGuard
		case c.Fg3mPer100 > 4 && c.StlPer100 > 1.8 && c.PtsPer100 < 20:
			return ThreeAndDWing
		default:
			return ComboGuard
		}
	}

	// Mixed-position centroid: fall back on the dominant skill.
	switch {
	case c.AstPer100 > 6 && c.ForwardPct > c.GuardPct:
		return PointForward
	case c.AstPer100 > 6:
		return Playmaker
	case c.PtsPer100 > 25:
		return ScoringWing
	case c.Fg3mPer100 > 4 && c.StlPer100 > 1.5:
		return ThreeAndDWing
	default:
		return AthleticWing
	}
}

// Rule is one cascade stage: a pure function from (current label, profile)
// to a possibly-overridden label. Apply returns the new label and whether
// the rule fired. Rules never consult stages that run after them.
type Rule struct {
	Name  string
	Apply func(Label, Profile) (Label, bool)
}

// Cascade is the ordered override chain. The order is part of the contract:
// later stages assume earlier corrections have already been applied (the
// hybrid split, for example, only sees bigs that survived the shot-zone
// correction and the escape valve).
var Cascade = []Rule{
	{Name: "shot_zone_correction", Apply: shotZoneCorrection},
	{Name: "ball_initiation_gate", Apply: ballInitiationGate},
	{Name: "frontcourt_escape_valve", Apply: frontcourtEscapeValve},
	{Name: "extreme_profile_routing", Apply: extremeProfileRouting},
	{Name: "hybrid_split", Apply: hybridSplit},
}

// Result is the cascade outcome for one player, including the audit trail
// of which rules fired.
type Result struct {
	Final      Label
	FiredRules []string
	Degraded   bool
}

// Reclassify runs the ordered cascade over a raw cluster label. Missing
// inputs (no shot zones, no touch data) cause the affected stages to pass
// the label through unchanged and mark the result degraded; the cascade
// never fails a player outright.
func Reclassify(raw Label, p Profile) Result {
	label := raw
	if !label.Valid() {
		label = AthleticWing
	}

	res := Result{Degraded: !p.HasShotZones || !p.HasTouches}
	for _, rule := range Cascade {
		next, fired := rule.Apply(label, p)
		if fired {
			res.FiredRules = append(res.FiredRules, rule.Name)
			label = next
		}
	}
	res.Final = label
	return res
}

// shotZoneCorrection re-routes size-ambiguous players (frontcourt labels
// with modest center share) by their shot profile. A big who lives behind
// the arc and does not rebound is a wing regardless of where the position
// chart puts them; a wing who shoots at the rim and rebounds like a big is
// promoted the other way.
func shotZoneCorrection(label Label, p Profile) (Label, bool) {
	if !p.HasShotZones {
		return label, false
	}
	ambiguous := (label == VersatileBig || label == AthleticWing) && p.BigPct < 0.35
	if !ambiguous {
		return label, false
	}

	if p.ThreeShotShare > wingThreeShareFloor && p.RebPer100 < wingRebCeiling {
		if p.PtsPer100 > 22 {
			return ScoringWing, true
		}
		return ThreeAndDWing, true
	}
	if label == AthleticWing && p.InteriorShotShare > bigInteriorFloor && p.RebPer100 > bigRebFloor {
		return VersatileBig, true
	}
	return label, false
}

// ballInitiationGate demotes facilitator labels for players who do not
// actually initiate the offense. High-assist role players who rarely touch
// the ball are not primary facilitators.
func ballInitiationGate(label Label, p Profile) (Label, bool) {
	if !FacilitatorLabels[label] || !p.HasTouches {
		return label, false
	}
	if p.TouchesPerMin >= touchesInitiationFloor {
		return label, false
	}
	switch label {
	case Playmaker:
		return ComboGuard, true
	case PointForward:
		return AthleticWing, true
	case PointCenter:
		return VersatileBig, true
	}
	return label, false
}

// frontcourtEscapeValve promotes wings with heavy frontcourt minute share
// into a big label, unless their shot profile and rebounding rate say they
// are a wing who merely defends up a position. On an exact threshold the
// rule does not fire, so the less specialized wing label is kept.
func frontcourtEscapeValve(label Label, p Profile) (Label, bool) {
	wing := label == ScoringWing || label == AthleticWing || label == ThreeAndDWing
	if !wing {
		return label, false
	}
	if p.ForwardPct+p.BigPct <= frontcourtShareGate {
		return label, false
	}
	// Escape valve: perimeter shot profile plus light rebounding keeps the
	// wing label despite the frontcourt minutes.
	if p.HasShotZones && p.ThreeShotShare >= escapeThreeShare && p.RebPer100 < escapeRebCeiling {
		return label, false
	}
	return VersatileBig, true
}

// extremeProfileRouting moves statistically extreme players into hybrid
// labels. Facilitator hybrids still require the ball-initiation floor: this
// stage runs after the gate and must not undo it.
func extremeProfileRouting(label Label, p Profile) (Label, bool) {
	canInitiate := p.HasTouches && p.TouchesPerMin >= touchesInitiationFloor

	if p.BigPct > bigShareFloor && p.AstPer100 > 9 && p.RebPer100 > 9 && canInitiate && label != PointCenter {
		return PointCenter, true
	}
	if p.BigPct > bigShareFloor && p.Fg3mPer100 > 3 && label == TraditionalBig {
		return StretchBig, true
	}
	if p.ForwardPct > forwardShareFloor && p.AstPer100 > 6.5 && canInitiate &&
		(label == ScoringWing || label == AthleticWing) {
		return PointForward, true
	}
	return label, false
}

// hybridSplit is the final split of the versatile-big hybrid by center
// share: players who are effectively full-time centers without a perimeter
// game become traditional bigs.
func hybridSplit(label Label, p Profile) (Label, bool) {
	if label != VersatileBig {
		return label, false
	}
	if p.BigPct > centerShareSplit && p.Fg3mPer100 < traditionalFg3mLimit {
		return TraditionalBig, true
	}
	return label, false
}
