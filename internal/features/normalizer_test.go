package features

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/court-iq/pkg/types"
)

func statRecord(name string, games int, mpg float64, mutate func(*types.PlayerStatRecord)) types.PlayerStatRecord {
	r := types.PlayerStatRecord{
		PlayerName:     name,
		Team:           "BOS",
		Window:         types.WindowFullSeason,
		GamesPlayed:    games,
		MinutesPerGame: mpg,
		TotalMinutes:   float64(games) * mpg,
		PtsPer100:      22, RebPer100: 7, AstPer100: 4, StlPer100: 1.2,
		BlkPer100: 0.8, TovPer100: 2.5, Fg3mPer100: 2.4, UsagePct: 21,
		TouchesPerMin: 1.4,
		TotalFGA:      600, RimFGA: 180, PaintFGA: 90, MidFGA: 120, ThreeFGA: 210,
		PGPct: 0.1, SGPct: 0.4, SFPct: 0.4, PFPct: 0.1,
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func TestQualifies(t *testing.T) {
	r := statRecord("a", 10, 12, nil)
	assert.True(t, Qualifies(&r, 10, 12))

	r.GamesPlayed = 9
	assert.False(t, Qualifies(&r, 10, 12))

	r.GamesPlayed = 10
	r.MinutesPerGame = 11.9
	assert.False(t, Qualifies(&r, 10, 12))
}

func TestFitNormalizerExcludesBelowFloor(t *testing.T) {
	records := []types.PlayerStatRecord{
		statRecord("starter one", 40, 30, func(r *types.PlayerStatRecord) { r.PtsPer100 = 30 }),
		statRecord("starter two", 40, 30, func(r *types.PlayerStatRecord) { r.PtsPer100 = 20 }),
		// Deep bench outlier: below floor, must not move the moments.
		statRecord("bench outlier", 3, 4, func(r *types.PlayerStatRecord) { r.PtsPer100 = 90 }),
	}

	n, err := FitNormalizer(records, 10, 12)
	require.NoError(t, err)

	assert.Equal(t, 2, n.QualifyingCount)
	assert.False(t, n.FallbackAll)
	assert.InDelta(t, 25.0, n.Mean(FeatPtsPer100), 1e-9)

	// The outlier is still scored, against the qualifying moments.
	z, degraded := n.ZScores(&records[2])
	assert.False(t, degraded)
	assert.Greater(t, z[FeatPtsPer100], 3.0)
}

func TestFitNormalizerZeroVarianceFeature(t *testing.T) {
	records := []types.PlayerStatRecord{
		statRecord("a", 40, 30, func(r *types.PlayerStatRecord) { r.UsagePct = 20 }),
		statRecord("b", 40, 30, func(r *types.PlayerStatRecord) { r.UsagePct = 20; r.PtsPer100 = 30 }),
	}

	n, err := FitNormalizer(records, 10, 12)
	require.NoError(t, err)
	assert.True(t, n.Degenerate(FeatUsagePct))

	z, _ := n.ZScores(&records[0])
	assert.Zero(t, z[FeatUsagePct])
	assert.False(t, math.IsNaN(z[FeatUsagePct]))
}

func TestFitNormalizerFallsBackOnEmptyQualifyingSet(t *testing.T) {
	records := []types.PlayerStatRecord{
		statRecord("a", 2, 5, nil),
		statRecord("b", 3, 6, func(r *types.PlayerStatRecord) { r.PtsPer100 = 10 }),
	}

	n, err := FitNormalizer(records, 10, 12)
	require.NoError(t, err)
	assert.True(t, n.FallbackAll)
	assert.Zero(t, n.QualifyingCount)
}

func TestFitNormalizerEmptyPopulation(t *testing.T) {
	_, err := FitNormalizer(nil, 10, 12)
	assert.Error(t, err)
}

func TestZScoresMissingShotZonesDegrades(t *testing.T) {
	records := []types.PlayerStatRecord{
		statRecord("a", 40, 30, nil),
		statRecord("b", 40, 30, func(r *types.PlayerStatRecord) { r.PtsPer100 = 28 }),
	}
	n, err := FitNormalizer(records, 10, 12)
	require.NoError(t, err)

	noZones := statRecord("c", 40, 30, func(r *types.PlayerStatRecord) {
		r.TotalFGA = 0
		r.RimFGA, r.PaintFGA, r.MidFGA, r.ThreeFGA = 0, 0, 0, 0
	})
	z, degraded := n.ZScores(&noZones)
	assert.True(t, degraded)
	assert.Zero(t, z[FeatInterior])
	assert.Zero(t, z[FeatThreeShare])
}

func TestBuildCompositeGeometry(t *testing.T) {
	runID := uuid.New()

	z := make(map[string]float64, len(FeatureNames))
	for _, name := range FeatureNames {
		z[name] = 0
	}
	neutral := BuildComposite(runID, "neutral player", z)
	for i, v := range neutral.Vector() {
		assert.Zero(t, v, "neutral z-scores must produce a zero vector, index %s", types.IndexNames[i])
	}

	// An interior-heavy profile scores positive interior and negative
	// perimeter by construction.
	z[FeatPtsPer100] = 1
	z[FeatInterior] = 2
	z[FeatThreeShare] = -1.5
	z[FeatFg3mPer100] = -1
	z[FeatVersatility] = -1
	big := BuildComposite(runID, "interior big", z)
	assert.Positive(t, big.InteriorScoring)
	assert.Negative(t, big.PerimeterShooting)

	assert.Len(t, big.Vector(), types.IndexCount)
	assert.Equal(t, runID, big.RunID)
}
