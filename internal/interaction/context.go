// Package interaction computes the bounded per-matchup projection delta:
// four independent sub-signals (size, archetype, familiarity, durability)
// weighted by the probability that each opposing defender actually contests
// the player, combined with fixed weights and clamped last.
package interaction

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/court-iq/internal/archetype"
	"github.com/stitts-dev/court-iq/pkg/identity"
	"github.com/stitts-dev/court-iq/pkg/types"
)

// Config carries the engine's tunable constants. Alpha weights follow the
// calibrated split between the four sub-signals; FpScale converts the
// per-minute-scale raw adjustment onto fantasy points.
type Config struct {
	MaxAdjustment     float64
	FamiliarityFloorN int

	AlphaSize        float64
	AlphaArchetype   float64
	AlphaFamiliarity float64
	AlphaDurability  float64
	FpScale          float64
}

// DefaultConfig returns the calibrated engine constants.
func DefaultConfig() Config {
	return Config{
		MaxAdjustment:     3.0,
		FamiliarityFloorN: 10,
		AlphaSize:         0.30,
		AlphaArchetype:    0.25,
		AlphaFamiliarity:  0.30,
		AlphaDurability:   0.15,
		FpScale:           30,
	}
}

// PlayerContext is the engine's assembled view of one player: archetype,
// playing-time profile, physical measurements, and shot-location usage.
// Keys are identity.Key-normalized names.
type PlayerContext struct {
	Key  string
	Name string
	Team string

	Archetype archetype.Label

	AvgMinutes  float64
	MinutesSD   float64
	GamesPlayed int

	InteriorUsage float64
	HasShotZones  bool

	HeightInches      float64
	WeightPounds      float64
	WingspanInches    float64
	HasMeasurement    bool
	WingspanEstimated bool
}

// PerimeterUsage is the complement of interior usage.
func (p *PlayerContext) PerimeterUsage() float64 { return 1 - p.InteriorUsage }

// Stability maps minutes volatility onto [0,1]: 1 is a locked-in rotation
// spot, 0 is a fully unpredictable role. Small game samples are penalized
// because the observed volatility itself is untrustworthy.
func (p *PlayerContext) Stability() float64 {
	s := math.Max(0, math.Min(1, 1-p.MinutesSD/10.0))
	if p.GamesPlayed < 20 {
		s *= 0.7
	}
	return s
}

// wingspanHeightRatio estimates a missing wingspan from height; the league
// mean wingspan runs about 6% over standing height.
const wingspanHeightRatio = 1.06

// NewPlayerContext assembles one player's context from the run inputs. Any
// of measurement or shot zones may be missing; the context degrades to
// archetype-implied or estimated values instead of failing.
func NewPlayerContext(
	rec *types.PlayerStatRecord,
	label archetype.Label,
	meas *types.Measurement,
	vol Volatility,
) *PlayerContext {
	ctx := &PlayerContext{
		Key:         identity.Key(rec.PlayerName),
		Name:        rec.PlayerName,
		Team:        identity.Team(rec.Team),
		Archetype:   label,
		AvgMinutes:  vol.AvgMinutes,
		MinutesSD:   vol.MinutesSD,
		GamesPlayed: vol.Games,
	}
	if ctx.AvgMinutes == 0 {
		ctx.AvgMinutes = rec.MinutesPerGame
	}
	if ctx.GamesPlayed == 0 {
		ctx.GamesPlayed = rec.GamesPlayed
	}

	if rec.TotalFGA > 0 {
		ctx.InteriorUsage = rec.InteriorShotShare()
		ctx.HasShotZones = true
	} else {
		ctx.InteriorUsage = archetype.ImpliedInteriorUsage(label)
	}

	if meas != nil && (meas.HeightInches > 0 || meas.WeightPounds > 0) {
		ctx.HasMeasurement = true
		ctx.HeightInches = meas.HeightInches
		ctx.WeightPounds = meas.WeightPounds
		ctx.WingspanInches = meas.WingspanInches
		ctx.WingspanEstimated = meas.WingspanEstimated
		if ctx.WingspanInches == 0 && ctx.HeightInches > 0 {
			ctx.WingspanInches = ctx.HeightInches * wingspanHeightRatio
			ctx.WingspanEstimated = true
		}
	}

	return ctx
}

// Volatility summarizes a player's playing-time distribution from the
// game log history.
type Volatility struct {
	AvgMinutes float64
	MinutesSD  float64
	Games      int
}

// ComputeVolatility derives per-player minutes volatility from current-
// season game logs.
func ComputeVolatility(logs []types.GameLogRow, seasonStart time.Time) map[string]Volatility {
	minutes := make(map[string][]float64)
	for i := range logs {
		g := &logs[i]
		if g.GameDate.Before(seasonStart) || g.Minutes <= 0 {
			continue
		}
		key := identity.Key(g.PlayerName)
		minutes[key] = append(minutes[key], g.Minutes)
	}

	out := make(map[string]Volatility, len(minutes))
	for key, mins := range minutes {
		v := Volatility{Games: len(mins), AvgMinutes: stat.Mean(mins, nil)}
		if len(mins) > 1 {
			v.MinutesSD = stat.StdDev(mins, nil)
		}
		out[key] = v
	}
	return out
}

// Familiarity is one player's historical performance differential against
// one specific team, pre-shrunk by meeting count.
type Familiarity struct {
	GamesVs    int
	FppmDiff   float64
	Shrink     float64
	Score      float64
	SeasonFppm float64
}

type famKey struct {
	player string
	team   string
}

// BuildFamiliarity computes player-vs-team FP/min differentials from the
// multi-season log history, shrunk toward zero by a diminishing function of
// the number of prior meetings. The shrinkage curve is normalized against
// max(maxObservedMeetings, floorN) so a handful of meetings never earns
// full trust even in a sparse history.
func BuildFamiliarity(logs []types.GameLogRow, floorN int) map[famKey]Familiarity {
	type agg struct {
		fppmSum float64
		games   int
	}
	season := make(map[string]*agg)
	vsTeam := make(map[famKey]*agg)
	maxMeetings := 0

	for i := range logs {
		g := &logs[i]
		if g.Minutes <= minSampleMinutes {
			continue
		}
		fp := g.FantasyPoints
		if fp == 0 {
			fp = g.ComputeFantasyPoints()
		}
		fppm := fp / g.Minutes

		player := identity.Key(g.PlayerName)
		opponent := identity.Team(g.Opponent)
		if opponent == "" {
			continue
		}

		if season[player] == nil {
			season[player] = &agg{}
		}
		season[player].fppmSum += fppm
		season[player].games++

		fk := famKey{player, opponent}
		if vsTeam[fk] == nil {
			vsTeam[fk] = &agg{}
		}
		vsTeam[fk].fppmSum += fppm
		vsTeam[fk].games++
		if vsTeam[fk].games > maxMeetings {
			maxMeetings = vsTeam[fk].games
		}
	}

	// Fixed floor on the normalization constant, independent of how large
	// the maximum observed sample happens to be.
	norm := math.Log1p(float64(maxInt(maxMeetings, floorN)))

	out := make(map[famKey]Familiarity, len(vsTeam))
	for fk, vs := range vsTeam {
		s := season[fk.player]
		if s == nil || s.games == 0 {
			continue
		}
		seasonFppm := s.fppmSum / float64(s.games)
		vsFppm := vs.fppmSum / float64(vs.games)
		shrink := math.Log1p(float64(vs.games)) / norm
		diff := vsFppm - seasonFppm
		out[fk] = Familiarity{
			GamesVs:    vs.games,
			FppmDiff:   diff,
			Shrink:     shrink,
			Score:      diff * shrink,
			SeasonFppm: seasonFppm,
		}
	}
	return out
}

// ArchProfile is the league-wide performance differential for one
// (offensive archetype, defending archetype) pair, with a sample-size
// confidence weight.
type ArchProfile struct {
	FppmDiff   float64
	SampleN    int
	Confidence float64
}

// archProfileFullN is the sample size at which an archetype-pair profile
// earns full confidence.
const archProfileFullN = 100

// minSampleMinutes filters garbage-time lines out of every historical
// aggregate in this package.
const minSampleMinutes = 5.0

// BuildArchetypeProfiles aggregates archetype-vs-archetype performance from
// the log history: each game contributes against the positionally-plausible
// archetypes (distance <= 2) on the opposing roster.
func BuildArchetypeProfiles(
	logs []types.GameLogRow,
	archetypeOf map[string]archetype.Label,
	rosters map[string][]string,
) map[[2]archetype.Label]ArchProfile {
	type agg struct {
		fppmSum float64
		games   int
	}
	seasonByArch := make(map[archetype.Label]*agg)
	pairAgg := make(map[[2]archetype.Label]*agg)

	for i := range logs {
		g := &logs[i]
		if g.Minutes <= minSampleMinutes {
			continue
		}
		playerArch, ok := archetypeOf[identity.Key(g.PlayerName)]
		if !ok {
			continue
		}
		opponent := identity.Team(g.Opponent)
		roster, ok := rosters[opponent]
		if !ok {
			continue
		}

		fp := g.FantasyPoints
		if fp == 0 {
			fp = g.ComputeFantasyPoints()
		}
		fppm := fp / g.Minutes

		if seasonByArch[playerArch] == nil {
			seasonByArch[playerArch] = &agg{}
		}
		seasonByArch[playerArch].fppmSum += fppm
		seasonByArch[playerArch].games++

		seen := make(map[archetype.Label]bool)
		for _, defKey := range roster {
			defArch, ok := archetypeOf[defKey]
			if !ok || seen[defArch] {
				continue
			}
			seen[defArch] = true
			if archetype.Distance(playerArch, defArch) > 2 {
				continue
			}
			pair := [2]archetype.Label{playerArch, defArch}
			if pairAgg[pair] == nil {
				pairAgg[pair] = &agg{}
			}
			pairAgg[pair].fppmSum += fppm
			pairAgg[pair].games++
		}
	}

	out := make(map[[2]archetype.Label]ArchProfile, len(pairAgg))
	for pair, a := range pairAgg {
		s := seasonByArch[pair[0]]
		if s == nil || s.games == 0 {
			continue
		}
		out[pair] = ArchProfile{
			FppmDiff:   a.fppmSum/float64(a.games) - s.fppmSum/float64(s.games),
			SampleN:    a.games,
			Confidence: math.Min(1, float64(a.games)/float64(archProfileFullN)),
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
