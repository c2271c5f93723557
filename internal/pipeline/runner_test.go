package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/court-iq/internal/archetype"
	"github.com/stitts-dev/court-iq/internal/cluster"
	"github.com/stitts-dev/court-iq/pkg/config"
	"github.com/stitts-dev/court-iq/pkg/identity"
	"github.com/stitts-dev/court-iq/pkg/logger"
	"github.com/stitts-dev/court-iq/pkg/types"
)

func TestSeasonStart(t *testing.T) {
	tests := []struct {
		asOf     time.Time
		expected int // season start year
	}{
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), 2026},
		{time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC), 2026},
	}
	for _, tt := range tests {
		got := seasonStart(tt.asOf)
		assert.Equal(t, tt.expected, got.Year(), "asOf=%s", tt.asOf)
		assert.Equal(t, time.October, got.Month())
	}
}

func TestAssignPlayersOrderIndependentOfWorkers(t *testing.T) {
	recordByKey := map[string]*types.PlayerStatRecord{}
	var points []cluster.Point
	for i := 0; i < 24; i++ {
		name := "player " + string(rune('a'+i))
		vec := []float64{float64(i % 3 * 10), float64(i%3) * -10}
		rec := &types.PlayerStatRecord{
			PlayerName: name,
			Team:       "BOS",
			PtsPer100:  20, RebPer100: 6, AstPer100: 4,
			TouchesPerMin: 2.5,
			TotalFGA:      500, RimFGA: 150, PaintFGA: 100, MidFGA: 100, ThreeFGA: 150,
			SGPct: 0.6, SFPct: 0.4,
		}
		recordByKey[identity.Key(name)] = rec
		points = append(points, cluster.Point{PlayerName: name, Vector: vec, Weight: 500})
	}

	model, err := cluster.Fit(points, 3, 42, 100)
	require.NoError(t, err)

	baseLabels := []archetype.Label{archetype.ScoringWing, archetype.ComboGuard, archetype.AthleticWing}
	degraded := map[string]bool{}
	runID := uuid.New()

	run := func(workers int) []types.ArchetypeAssignment {
		r := &Runner{cfg: &config.Config{PipelineWorkers: workers, SoftmaxTemperature: 1.0}}
		return r.assignPlayers(runID, model, points, baseLabels, recordByKey, degraded)
	}

	serial := run(1)
	parallel := run(8)

	require.Len(t, serial, len(points))
	require.Len(t, parallel, len(points))
	for i := range serial {
		assert.Equal(t, serial[i].PlayerName, parallel[i].PlayerName, "output order must match input order")
		assert.Equal(t, serial[i].FinalLabel, parallel[i].FinalLabel)
		assert.Equal(t, serial[i].Probabilities, parallel[i].Probabilities)
		assert.Equal(t, serial[i].Cluster, parallel[i].Cluster)
	}
}

func TestAssignPlayersClosedLabelSet(t *testing.T) {
	rec := &types.PlayerStatRecord{PlayerName: "lone player", Team: "BOS"}
	recordByKey := map[string]*types.PlayerStatRecord{identity.Key("lone player"): rec}
	points := []cluster.Point{{PlayerName: "lone player", Vector: []float64{0, 0}, Weight: 100}}

	model, err := cluster.Fit(points, 1, 42, 10)
	require.NoError(t, err)

	r := &Runner{cfg: &config.Config{PipelineWorkers: 2, SoftmaxTemperature: 1.0}}
	out := r.assignPlayers(uuid.New(), model, points, []archetype.Label{archetype.Label("not a label")}, recordByKey, map[string]bool{})

	require.Len(t, out, 1)
	assert.True(t, archetype.Label(out[0].FinalLabel).Valid(), "invalid base labels must still resolve inside the closed set")
}

func TestRecordSilhouettesOnModel(t *testing.T) {
	var points []cluster.Point
	for i := 0; i < 18; i++ {
		points = append(points, cluster.Point{
			PlayerName: "player " + string(rune('a'+i)),
			Vector:     []float64{float64(i % 3 * 10), float64(i%3) * -10},
			Weight:     400,
		})
	}
	model, err := cluster.Fit(points, 3, 42, 100)
	require.NoError(t, err)
	require.Empty(t, model.Silhouettes)

	r := &Runner{cfg: &config.Config{
		SilhouetteMinK: 2,
		SilhouetteMaxK: 4,
		ClusterSeed:    42,
		ClusterMaxIter: 100,
	}}
	r.recordSilhouettes(model, points, logger.WithComponent("pipeline"))

	require.Len(t, model.Silhouettes, 3, "every candidate k must be recorded")
	for k := 2; k <= 4; k++ {
		score, ok := model.Silhouettes[k]
		require.True(t, ok, "candidate k=%d missing", k)
		assert.GreaterOrEqual(t, score, -1.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
