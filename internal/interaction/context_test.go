package interaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/court-iq/internal/archetype"
	"github.com/stitts-dev/court-iq/pkg/types"
)

func historyLog(player, opponent string, date time.Time, minutes, fp float64) types.GameLogRow {
	return types.GameLogRow{
		PlayerName:    player,
		Team:          "BOS",
		Opponent:      opponent,
		GameDate:      date,
		Minutes:       minutes,
		FantasyPoints: fp,
	}
}

func TestNewPlayerContextWingspanEstimate(t *testing.T) {
	rec := &types.PlayerStatRecord{
		PlayerName: "Tall Guy", Team: "BOS",
		GamesPlayed: 40, MinutesPerGame: 30,
		TotalFGA: 400, RimFGA: 200, PaintFGA: 100, MidFGA: 50, ThreeFGA: 50,
	}
	meas := &types.Measurement{PlayerName: "Tall Guy", HeightInches: 80, WeightPounds: 240}

	ctx := NewPlayerContext(rec, archetype.VersatileBig, meas, Volatility{})
	assert.True(t, ctx.HasMeasurement)
	assert.True(t, ctx.WingspanEstimated)
	assert.InDelta(t, 80*1.06, ctx.WingspanInches, 1e-9)
}

func TestNewPlayerContextFallbacks(t *testing.T) {
	rec := &types.PlayerStatRecord{
		PlayerName: "No Data", Team: "gsw",
		GamesPlayed: 12, MinutesPerGame: 18,
	}

	ctx := NewPlayerContext(rec, archetype.TraditionalBig, nil, Volatility{})
	assert.Equal(t, "GS", ctx.Team)
	assert.False(t, ctx.HasMeasurement)
	assert.False(t, ctx.HasShotZones)
	assert.Equal(t, 0.7, ctx.InteriorUsage, "missing shot zones fall back to the archetype-implied share")
	assert.Equal(t, 18.0, ctx.AvgMinutes)
	assert.Equal(t, 12, ctx.GamesPlayed)
}

func TestComputeVolatility(t *testing.T) {
	start := time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)
	logs := []types.GameLogRow{
		historyLog("Steady Vet", "MIA", start.AddDate(0, 0, 10), 30, 35),
		historyLog("Steady Vet", "MIA", start.AddDate(0, 0, 12), 32, 38),
		historyLog("Steady Vet", "MIA", start.AddDate(0, 0, 14), 31, 36),
		// Prior-season line must be excluded.
		historyLog("Steady Vet", "MIA", start.AddDate(0, 0, -100), 5, 2),
	}

	vol := ComputeVolatility(logs, start)
	v, ok := vol["steady vet"]
	require.True(t, ok)
	assert.Equal(t, 3, v.Games)
	assert.InDelta(t, 31.0, v.AvgMinutes, 1e-9)
	assert.Greater(t, v.MinutesSD, 0.0)
	assert.Less(t, v.MinutesSD, 2.0)
}

func TestBuildFamiliarityShrinkage(t *testing.T) {
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	var logs []types.GameLogRow
	// 1.0 fp/min baseline everywhere, 1.5 against MIA over many meetings,
	// 1.5 against BOS in a single meeting.
	for i := 0; i < 12; i++ {
		logs = append(logs, historyLog("Rival Player", "MIA", base.AddDate(0, 0, i*7), 30, 45))
	}
	for i := 0; i < 13; i++ {
		logs = append(logs, historyLog("Rival Player", "CHI", base.AddDate(0, 0, i*7+1), 30, 30))
	}
	logs = append(logs, historyLog("Rival Player", "BOS", base, 30, 45))

	fam := BuildFamiliarity(logs, 10)

	vsMIA, ok := fam[famKey{"rival player", "MIA"}]
	require.True(t, ok)
	vsBOS, ok := fam[famKey{"rival player", "BOS"}]
	require.True(t, ok)

	assert.Equal(t, 12, vsMIA.GamesVs)
	assert.Positive(t, vsMIA.Score, "outperforming a team raises the score")
	assert.Positive(t, vsBOS.FppmDiff)
	assert.Less(t, vsBOS.Shrink, vsMIA.Shrink, "one meeting earns far less trust than twelve")
	assert.Less(t, vsBOS.Score, vsMIA.Score)
	assert.LessOrEqual(t, vsMIA.Shrink, 1.0)
}

func TestBuildFamiliarityNoHistoryMeansNoEntry(t *testing.T) {
	fam := BuildFamiliarity(nil, 10)
	_, ok := fam[famKey{"anyone", "MIA"}]
	assert.False(t, ok)
}

func TestBuildArchetypeProfiles(t *testing.T) {
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	archetypeOf := map[string]archetype.Label{
		"guard one": archetype.Playmaker,
		"guard two": archetype.ComboGuard,
		"big one":   archetype.TraditionalBig,
	}
	rosters := map[string][]string{
		"MIA": {"guard two", "big one"},
	}

	var logs []types.GameLogRow
	for i := 0; i < 20; i++ {
		logs = append(logs, historyLog("Guard One", "MIA", base.AddDate(0, 0, i*3), 30, 36))
	}

	profiles := BuildArchetypeProfiles(logs, archetypeOf, rosters)

	// Positionally plausible pair exists.
	p, ok := profiles[[2]archetype.Label{archetype.Playmaker, archetype.ComboGuard}]
	require.True(t, ok)
	assert.Equal(t, 20, p.SampleN)
	assert.Greater(t, p.Confidence, 0.0)
	assert.LessOrEqual(t, p.Confidence, 1.0)

	// A point guard never plausibly matches up with a traditional big
	// (positional distance above the pairing cutoff).
	_, ok = profiles[[2]archetype.Label{archetype.Playmaker, archetype.TraditionalBig}]
	assert.False(t, ok)
}
