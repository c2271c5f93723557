package archetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// guardProfile is a baseline high-assist guard with complete data.
func guardProfile() Profile {
	return Profile{
		PtsPer100: 20, RebPer100: 4, AstPer100: 9, StlPer100: 1.4,
		BlkPer100: 0.2, Fg3mPer100: 2.5, UsagePct: 22,
		GuardPct: 0.9, ForwardPct: 0.1,
		TouchesPerMin: 2.8, HasTouches: true,
		InteriorShotShare: 0.35, ThreeShotShare: 0.4, HasShotZones: true,
	}
}

// bigProfile is a baseline rim-running center with complete data.
func bigProfile() Profile {
	return Profile{
		PtsPer100: 18, RebPer100: 13, AstPer100: 2, StlPer100: 0.8,
		BlkPer100: 2.5, Fg3mPer100: 0.1, UsagePct: 17,
		BigPct: 0.85, ForwardPct: 0.15,
		TouchesPerMin: 1.1, HasTouches: true,
		InteriorShotShare: 0.85, ThreeShotShare: 0.02, HasShotZones: true,
	}
}

func TestReclassifyDeterministic(t *testing.T) {
	p := guardProfile()
	first := Reclassify(Playmaker, p)
	for i := 0; i < 10; i++ {
		again := Reclassify(Playmaker, p)
		assert.Equal(t, first, again)
	}
}

func TestReclassifyClosedSet(t *testing.T) {
	profiles := []Profile{guardProfile(), bigProfile(), {}}
	for _, raw := range append(AllLabels, Label("Unknown Cluster")) {
		for _, p := range profiles {
			res := Reclassify(raw, p)
			assert.True(t, res.Final.Valid(), "raw=%s must resolve inside the closed set, got %q", raw, res.Final)
		}
	}
}

func TestReclassifyInvalidRawLabel(t *testing.T) {
	res := Reclassify(Label("garbage"), Profile{})
	assert.True(t, res.Final.Valid())
}

func TestBallInitiationGate(t *testing.T) {
	tests := []struct {
		name     string
		raw      Label
		touches  float64
		expected Label
		fires    bool
	}{
		{"playmaker below floor demoted", Playmaker, 1.2, ComboGuard, true},
		{"playmaker at floor kept", Playmaker, 2.0, Playmaker, false},
		{"point forward below floor demoted", PointForward, 1.0, AthleticWing, true},
		{"point center below floor demoted", PointCenter, 1.5, VersatileBig, true},
		{"non-facilitator untouched", ScoringWing, 0.5, ScoringWing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := guardProfile()
			p.TouchesPerMin = tt.touches
			got, fired := ballInitiationGate(tt.raw, p)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.fires, fired)
		})
	}
}

func TestBallInitiationGateMissingTouches(t *testing.T) {
	p := guardProfile()
	p.HasTouches = false
	p.TouchesPerMin = 0

	got, fired := ballInitiationGate(Playmaker, p)
	assert.Equal(t, Playmaker, got, "missing touch data must pass through, not demote")
	assert.False(t, fired)

	res := Reclassify(Playmaker, p)
	assert.True(t, res.Degraded)
}

func TestFrontcourtEscapeValve(t *testing.T) {
	p := Profile{
		PtsPer100: 16, RebPer100: 6, Fg3mPer100: 2.8,
		ForwardPct: 0.55, BigPct: 0.25,
		TouchesPerMin: 1.0, HasTouches: true,
		InteriorShotShare: 0.3, ThreeShotShare: 0.5, HasShotZones: true,
	}

	// Perimeter profile escapes the promotion despite frontcourt minutes.
	got, fired := frontcourtEscapeValve(ThreeAndDWing, p)
	assert.Equal(t, ThreeAndDWing, got)
	assert.False(t, fired)

	// Same minutes, interior profile: promoted.
	p.ThreeShotShare = 0.1
	p.RebPer100 = 11
	got, fired = frontcourtEscapeValve(ThreeAndDWing, p)
	assert.Equal(t, VersatileBig, got)
	assert.True(t, fired)
}

func TestFrontcourtEscapeValveThresholdEquality(t *testing.T) {
	p := Profile{
		RebPer100:  11,
		ForwardPct: 0.70, BigPct: 0, // exactly at the 0.70 gate
		HasShotZones: true, ThreeShotShare: 0.1,
	}
	got, fired := frontcourtEscapeValve(AthleticWing, p)
	assert.Equal(t, AthleticWing, got, "exact threshold keeps the less specialized label")
	assert.False(t, fired)
}

func TestHybridSplit(t *testing.T) {
	p := bigProfile()
	p.BigPct = 0.75
	p.Fg3mPer100 = 0.5

	got, fired := hybridSplit(VersatileBig, p)
	assert.Equal(t, TraditionalBig, got)
	assert.True(t, fired)

	// A shooting big keeps the hybrid label.
	p.Fg3mPer100 = 3.0
	got, fired = hybridSplit(VersatileBig, p)
	assert.Equal(t, VersatileBig, got)
	assert.False(t, fired)

	got, fired = hybridSplit(ScoringWing, p)
	assert.Equal(t, ScoringWing, got)
	assert.False(t, fired)
}

func TestCascadeOrderRecorded(t *testing.T) {
	// A demoted point center that is a full-time non-shooting center walks
	// through the gate and then the hybrid split, in that order.
	p := bigProfile()
	p.TouchesPerMin = 1.2
	p.BigPct = 0.8

	res := Reclassify(PointCenter, p)
	require.Equal(t, TraditionalBig, res.Final)
	assert.Equal(t, []string{"ball_initiation_gate", "hybrid_split"}, res.FiredRules)
	assert.False(t, res.Degraded)
}

func TestBaseLabelBranches(t *testing.T) {
	tests := []struct {
		name     string
		profile  Profile
		expected Label
	}{
		{"point center", Profile{BigPct: 0.6, AstPer100: 6, RebPer100: 10}, PointCenter},
		{"stretch big", Profile{BigPct: 0.6, Fg3mPer100: 3.5}, StretchBig},
		{"traditional big", Profile{BigPct: 0.6, RebPer100: 12, BlkPer100: 2.2, Fg3mPer100: 0.3}, TraditionalBig},
		{"versatile big", Profile{BigPct: 0.6, PtsPer100: 23}, VersatileBig},
		{"point forward", Profile{ForwardPct: 0.7, BigPct: 0.1, AstPer100: 7}, PointForward},
		{"scoring wing", Profile{ForwardPct: 0.7, BigPct: 0.1, PtsPer100: 28, UsagePct: 27}, ScoringWing},
		{"three and d wing", Profile{ForwardPct: 0.7, BigPct: 0.1, Fg3mPer100: 4.5, PtsPer100: 15}, ThreeAndDWing},
		{"athletic wing", Profile{ForwardPct: 0.7, BigPct: 0.1, PtsPer100: 14}, AthleticWing},
		{"playmaker", Profile{GuardPct: 0.8, AstPer100: 9, PtsPer100: 18}, Playmaker},
		{"combo guard", Profile{GuardPct: 0.8, PtsPer100: 27}, ComboGuard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BaseLabel(tt.profile))
		})
	}
}

func TestDistance(t *testing.T) {
	assert.Zero(t, Distance(Playmaker, Playmaker))
	assert.Equal(t, 0.0, Distance(Playmaker, ComboGuard), "shared point guard position")
	assert.Equal(t, 4.0, Distance(Playmaker, TraditionalBig))
	assert.Equal(t, 4.0, Distance(Playmaker, Label("mystery")))
	assert.Equal(t, Distance(StretchBig, ComboGuard), Distance(ComboGuard, StretchBig), "symmetric")
}

func TestImpliedInteriorUsage(t *testing.T) {
	assert.Equal(t, 0.7, ImpliedInteriorUsage(TraditionalBig))
	assert.Equal(t, 0.25, ImpliedInteriorUsage(Playmaker))
}

func TestPrimaryPosition(t *testing.T) {
	assert.Equal(t, "PG", string(Playmaker.PrimaryPosition()))
	assert.Equal(t, "C", string(TraditionalBig.PrimaryPosition()))
	assert.Equal(t, "SF", string(Label("unknown").PrimaryPosition()))
}
