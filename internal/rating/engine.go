// Package rating computes team-versus-position (DVP) and team-versus-
// archetype (DVA) defensive ratings: fantasy points and category stats
// conceded per opponent minute, blended across a full-season and a rolling
// window with sample-size shrinkage toward the league average.
package rating

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/court-iq/internal/archetype"
	"github.com/stitts-dev/court-iq/pkg/identity"
	"github.com/stitts-dev/court-iq/pkg/logger"
	"github.com/stitts-dev/court-iq/pkg/types"
)

// Config carries the tunable constants of the rating engine. SeasonStart
// bounds the full-season sample: the log history spans multiple seasons for
// other consumers, but ratings only ever describe the current season's
// rosters.
type Config struct {
	RollingWindowDays int
	RollingBlendCap   float64
	MinRecentGames    int
	ShrinkageFullN    int
	SeasonLengthDays  int
	SeasonStart       time.Time
}

// Engine is stateless between runs: every build reads the full log history
// and produces a fresh, run-versioned rating set.
type Engine struct {
	cfg Config
	log *logrus.Entry
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, log: logger.WithComponent("rating_engine")}
}

// minMinutesPerGame filters garbage-time stat lines out of the rating
// sample.
const minMinutesPerGame = 5.0

// RollingBlendWeight is the season-progress schedule for the rolling
// window's share of the blend: zero while the rolling window is all there
// is of the season, ramping linearly to the cap by the 60% mark. Pure
// function of day-of-season so the engine stays stateless.
func (e *Engine) RollingBlendWeight(dayOfSeason int) float64 {
	rampStart := float64(e.cfg.RollingWindowDays)
	rampEnd := 0.6 * float64(e.cfg.SeasonLengthDays)
	if rampEnd <= rampStart {
		return e.cfg.RollingBlendCap
	}
	progress := (float64(dayOfSeason) - rampStart) / (rampEnd - rampStart)
	progress = math.Max(0, math.Min(1, progress))
	return e.cfg.RollingBlendCap * progress
}

// Confidence maps an observed sample size onto [0,1], monotonically
// non-decreasing, reaching full confidence at ShrinkageFullN games.
func (e *Engine) Confidence(sampleN int) float64 {
	if e.cfg.ShrinkageFullN <= 0 {
		return 1
	}
	return math.Min(1, float64(sampleN)/float64(e.cfg.ShrinkageFullN))
}

type groupKey struct {
	team  string
	kind  types.RatingGroupKind
	group string
}

// accumulator collects mean per-minute rates per (team, group), averaging
// the per-game per-minute rates so a single long game cannot dominate.
type accumulator struct {
	fpSum   float64
	catSums map[string]float64
	games   int
}

func newAccumulator() *accumulator {
	return &accumulator{catSums: make(map[string]float64)}
}

func (a *accumulator) add(g *types.GameLogRow) {
	fp := g.FantasyPoints
	if fp == 0 {
		fp = g.ComputeFantasyPoints()
	}
	a.fpSum += fp / g.Minutes
	for _, cat := range types.StatCategories {
		a.catSums[cat] += g.CategoryValue(cat) / g.Minutes
	}
	a.games++
}

func (a *accumulator) meanFp() float64 { return a.fpSum / float64(a.games) }

func (a *accumulator) meanCat(cat string) float64 { return a.catSums[cat] / float64(a.games) }

// BuildResult bundles the ratings with the run-level diagnostics.
type BuildResult struct {
	Ratings []types.MatchupRating
	// PositionArchetypeCorrelation is the Pearson correlation between per-
	// team position-based and archetype-based rating deltas. Diagnostic only:
	// a value near 1 means the archetype rating adds nothing over position.
	PositionArchetypeCorrelation float64
}

// Build computes the full DVP and DVA rating set for one run. Group
// membership comes from the archetype assignments (DVA) and primary
// positions (DVP) of the same run; asOf anchors the rolling window and
// dayOfSeason drives the blend schedule.
func (e *Engine) Build(
	runID uuid.UUID,
	logs []types.GameLogRow,
	archetypeOf map[string]archetype.Label,
	positionOf map[string]types.Position,
	asOf time.Time,
	dayOfSeason int,
) (*BuildResult, error) {
	if len(logs) == 0 {
		return nil, fmt.Errorf("no game logs available for rating build")
	}

	cutoff := asOf.AddDate(0, 0, -e.cfg.RollingWindowDays)
	blendWeight := e.RollingBlendWeight(dayOfSeason)

	full := make(map[groupKey]*accumulator)
	recent := make(map[groupKey]*accumulator)
	leagueByGroup := make(map[[2]string]*accumulator) // (kind, group) league baseline
	teams := make(map[string]bool)

	usable := 0
	for i := range logs {
		g := &logs[i]
		if g.Minutes <= minMinutesPerGame {
			continue
		}
		if g.GameDate.Before(e.cfg.SeasonStart) {
			continue
		}
		opponent := identity.Team(g.Opponent)
		if opponent == "" {
			continue
		}

		keys := make([]groupKey, 0, 2)
		if label, ok := archetypeOf[identity.Key(g.PlayerName)]; ok {
			keys = append(keys, groupKey{opponent, types.GroupArchetype, string(label)})
		}
		if pos, ok := positionOf[identity.Key(g.PlayerName)]; ok {
			keys = append(keys, groupKey{opponent, types.GroupPosition, string(pos)})
		}
		if len(keys) == 0 {
			continue
		}
		usable++
		teams[opponent] = true

		for _, key := range keys {
			if full[key] == nil {
				full[key] = newAccumulator()
			}
			full[key].add(g)

			lgKey := [2]string{string(key.kind), key.group}
			if leagueByGroup[lgKey] == nil {
				leagueByGroup[lgKey] = newAccumulator()
			}
			leagueByGroup[lgKey].add(g)

			if !g.GameDate.Before(cutoff) {
				if recent[key] == nil {
					recent[key] = newAccumulator()
				}
				recent[key].add(g)
			}
		}
	}

	if usable == 0 {
		return nil, fmt.Errorf("no game logs matched an archetype or position group")
	}

	profiles := e.categoryProfiles(leagueByGroup)

	now := time.Now().UTC()
	ratings := make([]types.MatchupRating, 0, len(teams)*len(leagueByGroup))

	// Emit the complete (team x group) grid; combos a team never faced are
	// filled with the league average at zero confidence so downstream
	// lookups always resolve and can tell the fill apart from real data.
	for team := range teams {
		for lgKey, league := range leagueByGroup {
			kind := types.RatingGroupKind(lgKey[0])
			group := lgKey[1]
			key := groupKey{team, kind, group}

			rating := types.MatchupRating{
				RunID:          runID,
				Team:           team,
				Kind:           kind,
				Group:          group,
				CategoryPerMin: make(map[string]float64, len(types.StatCategories)),
				CategoryDiff:   make(map[string]float64, len(types.StatCategories)),
				BlendWeight:    blendWeight,
				ComputedAt:     now,
			}

			fullAcc := full[key]
			if fullAcc == nil {
				rating.LeagueAverageFill = true
				rating.FpPerMin = league.meanFp()
				for _, cat := range types.StatCategories {
					rating.CategoryPerMin[cat] = league.meanCat(cat)
					rating.CategoryDiff[cat] = 0
				}
				ratings = append(ratings, rating)
				continue
			}

			rating.FullSampleN = fullAcc.games
			rating.Confidence = e.Confidence(fullAcc.games)

			recentAcc := recent[key]
			useRecent := recentAcc != nil && recentAcc.games >= e.cfg.MinRecentGames
			if useRecent {
				rating.RecentSampleN = recentAcc.games
			}

			rating.FpPerMin = e.blend(fullAcc.meanFp(), recentAcc, useRecent, blendWeight, (*accumulator).meanFp)
			rating.FpPerMinDiff = rating.FpPerMin - league.meanFp()
			for _, cat := range types.StatCategories {
				c := cat
				blended := e.blend(fullAcc.meanCat(c), recentAcc, useRecent, blendWeight,
					func(a *accumulator) float64 { return a.meanCat(c) })
				rating.CategoryPerMin[cat] = blended
				rating.CategoryDiff[cat] = blended - league.meanCat(cat)
			}

			rating.DVSRaw = e.dvsRaw(&rating, league, profiles[lgKey])
			rating.DVSMultiplier = rating.DVSRaw * rating.Confidence

			ratings = append(ratings, rating)
		}
	}

	corr := e.positionArchetypeCorrelation(ratings)
	e.log.WithFields(logrus.Fields{
		"run_id":               runID,
		"ratings":              len(ratings),
		"teams":                len(teams),
		"usable_logs":          usable,
		"blend_weight_rolling": blendWeight,
		"dvp_dva_correlation":  corr,
	}).Info("Built matchup rating set")

	return &BuildResult{Ratings: ratings, PositionArchetypeCorrelation: corr}, nil
}

func (e *Engine) blend(fullVal float64, recentAcc *accumulator, useRecent bool, w float64, mean func(*accumulator) float64) float64 {
	if !useRecent {
		return fullVal
	}
	return (1-w)*fullVal + w*mean(recentAcc)
}

// categoryProfiles computes, per group, the share of fantasy production
// contributed by each stat category. The profile weights the per-category
// leaks in the DVS multiplier: a rebounding archetype cares about a team's
// rebounds conceded far more than its steals conceded.
func (e *Engine) categoryProfiles(league map[[2]string]*accumulator) map[[2]string]map[string]float64 {
	profiles := make(map[[2]string]map[string]float64, len(league))
	for key, acc := range league {
		profile := make(map[string]float64, len(types.StatCategories))
		total := 0.0
		for _, cat := range types.StatCategories {
			contribution := acc.meanCat(cat) * math.Abs(types.FantasyWeights[cat])
			profile[cat] = contribution
			total += contribution
		}
		if total > 0 {
			for cat := range profile {
				profile[cat] /= total
			}
		}
		profiles[key] = profile
	}
	return profiles
}

// dvsRaw is the unshrunk defense-vs-skill multiplier: per-category leak
// relative to league rate, weighted by the group's category profile.
func (e *Engine) dvsRaw(rating *types.MatchupRating, league *accumulator, profile map[string]float64) float64 {
	multiplier := 0.0
	for _, cat := range types.StatCategories {
		lgRate := league.meanCat(cat)
		if lgRate == 0 {
			continue
		}
		leak := rating.CategoryDiff[cat] / lgRate
		multiplier += profile[cat] * leak
	}
	return multiplier
}

// positionArchetypeCorrelation correlates per-team mean rating deltas across
// the two grouping schemes.
func (e *Engine) positionArchetypeCorrelation(ratings []types.MatchupRating) float64 {
	posByTeam := make(map[string][]float64)
	archByTeam := make(map[string][]float64)
	for i := range ratings {
		r := &ratings[i]
		if r.LeagueAverageFill {
			continue
		}
		switch r.Kind {
		case types.GroupPosition:
			posByTeam[r.Team] = append(posByTeam[r.Team], r.FpPerMinDiff)
		case types.GroupArchetype:
			archByTeam[r.Team] = append(archByTeam[r.Team], r.FpPerMinDiff)
		}
	}

	teams := make([]string, 0, len(posByTeam))
	for team := range posByTeam {
		if _, ok := archByTeam[team]; ok {
			teams = append(teams, team)
		}
	}
	if len(teams) < 3 {
		return 0
	}
	sort.Strings(teams)

	posMeans := make([]float64, len(teams))
	archMeans := make([]float64, len(teams))
	for i, team := range teams {
		posMeans[i] = stat.Mean(posByTeam[team], nil)
		archMeans[i] = stat.Mean(archByTeam[team], nil)
	}

	corr := stat.Correlation(posMeans, archMeans, nil)
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}
