package features

import (
	"time"

	"github.com/google/uuid"

	"github.com/stitts-dev/court-iq/pkg/types"
)

// indexTerm is one fixed-weight contribution of a z-scored feature to a
// composite index. Weights are part of the design, never fit from data, so
// the feature-to-index mapping is stable run to run.
type indexTerm struct {
	feature string
	weight  float64
}

// Index definitions. InteriorScoring/PerimeterShooting and
// Playmaking/OffBallValue are negatively correlated by construction; that is
// the intended geometry of the index space, not a defect.
var indexDefinitions = map[string][]indexTerm{
	"interior_scoring": {
		{FeatPtsPer100, 1.0},
		{FeatInterior, 1.0},
		{FeatThreeShare, -1.0},
	},
	"perimeter_shooting": {
		{FeatFg3mPer100, 1.0},
		{FeatThreeShare, 1.0},
		{FeatVersatility, 1.0},
	},
	"playmaking": {
		{FeatAstPer100, 1.0},
		{FeatAstRebRatio, 1.0},
		{FeatTouchesPM, 1.0},
	},
	"rebounding": {
		{FeatRebPer100, 1.0},
		{FeatForwardPct, 0.5},
		{FeatBigPct, 1.0},
	},
	"rim_protection": {
		{FeatBlkPer100, 1.0},
		{FeatBigPct, 1.0},
	},
	"perimeter_defense": {
		{FeatStlPer100, 1.0},
		{FeatGuardPct, 1.0},
	},
	"usage_load": {
		{FeatUsagePct, 1.0},
		{FeatTouchesPM, 1.0},
		{FeatPtsPer100, 0.5},
	},
	"off_ball_value": {
		{FeatVersatility, 1.0},
		{FeatFg3mPer100, 1.0},
		{FeatTouchesPM, -1.0},
		{FeatUsagePct, -1.0},
	},
}

func sumTerms(z map[string]float64, terms []indexTerm) float64 {
	total := 0.0
	for _, t := range terms {
		total += t.weight * z[t.feature]
	}
	return total
}

// BuildComposite collapses one player's z-scores into the eight composite
// indices for the given run.
func BuildComposite(runID uuid.UUID, playerName string, z map[string]float64) *types.CompositeIndexVector {
	return &types.CompositeIndexVector{
		RunID:             runID,
		PlayerName:        playerName,
		InteriorScoring:   sumTerms(z, indexDefinitions["interior_scoring"]),
		PerimeterShooting: sumTerms(z, indexDefinitions["perimeter_shooting"]),
		Playmaking:        sumTerms(z, indexDefinitions["playmaking"]),
		Rebounding:        sumTerms(z, indexDefinitions["rebounding"]),
		RimProtection:     sumTerms(z, indexDefinitions["rim_protection"]),
		PerimeterDefense:  sumTerms(z, indexDefinitions["perimeter_defense"]),
		UsageLoad:         sumTerms(z, indexDefinitions["usage_load"]),
		OffBallValue:      sumTerms(z, indexDefinitions["off_ball_value"]),
		ComputedAt:        time.Now().UTC(),
	}
}
