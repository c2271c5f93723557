package interaction

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/court-iq/internal/archetype"
	"github.com/stitts-dev/court-iq/pkg/identity"
	"github.com/stitts-dev/court-iq/pkg/logger"
	"github.com/stitts-dev/court-iq/pkg/types"
)

// Engine computes interaction adjustments for a game slate. Immutable once
// built, so per-matchup computation is freely parallel.
type Engine struct {
	cfg Config

	players     map[string]*PlayerContext
	rosters     map[string][]string
	familiarity map[famKey]Familiarity
	profiles    map[[2]archetype.Label]ArchProfile

	leagueStability float64

	log *logrus.Entry
}

// NewEngine assembles the engine from per-player contexts and the
// pre-built historical aggregates.
func NewEngine(
	cfg Config,
	players []*PlayerContext,
	familiarity map[famKey]Familiarity,
	profiles map[[2]archetype.Label]ArchProfile,
) *Engine {
	e := &Engine{
		cfg:         cfg,
		players:     make(map[string]*PlayerContext, len(players)),
		rosters:     make(map[string][]string),
		familiarity: familiarity,
		profiles:    profiles,
		log:         logger.WithComponent("interaction_engine"),
	}

	stabilitySum := 0.0
	for _, p := range players {
		e.players[p.Key] = p
		e.rosters[p.Team] = append(e.rosters[p.Team], p.Key)
		stabilitySum += p.Stability()
	}
	if len(players) > 0 {
		e.leagueStability = stabilitySum / float64(len(players))
	} else {
		e.leagueStability = 0.5
	}

	// Deterministic roster order so weight normalization and tie-breaks are
	// reproducible run to run.
	for team := range e.rosters {
		sort.Strings(e.rosters[team])
	}

	return e
}

// Adjust computes the bounded projection delta for one offensive player
// against one opposing team on one game date. Missing data degrades each
// sub-signal to neutral zero; the clamp to ±MaxAdjustment is applied last,
// after the weighted combination, so simultaneous extremes can never
// compound past the rail.
func (e *Engine) Adjust(runID uuid.UUID, playerName, opponentTeam string, gameDate time.Time) (*types.InteractionAdjustment, error) {
	key := identity.Key(playerName)
	opponent := identity.Team(opponentTeam)

	adj := &types.InteractionAdjustment{
		RunID:        runID,
		PlayerName:   playerName,
		OpponentTeam: opponent,
		GameDate:     gameDate,
		ComputedAt:   time.Now().UTC(),
	}

	player, ok := e.players[key]
	if !ok {
		return nil, fmt.Errorf("unknown player %q", playerName)
	}

	weights := e.interactionWeights(player, opponent)
	if len(weights) == 0 {
		// No roster data for the opponent: neutral adjustment, flagged.
		adj.Degraded = true
		e.log.WithFields(logrus.Fields{
			"player":        playerName,
			"opponent_team": opponent,
		}).Warn("No interaction weights available, returning neutral adjustment")
		return adj, nil
	}

	size, sizeDegraded := e.sizeSignal(player, weights)
	adj.SizeSignal = size
	adj.ArchetypeSignal = e.archetypeSignal(player, weights)
	adj.FamiliaritySignal = e.familiaritySignal(key, opponent)
	adj.DurabilitySignal = e.durabilitySignal(weights)
	adj.Degraded = sizeDegraded

	adj.RawDelta = e.cfg.FpScale * (e.cfg.AlphaSize*adj.SizeSignal +
		e.cfg.AlphaArchetype*adj.ArchetypeSignal +
		e.cfg.AlphaFamiliarity*adj.FamiliaritySignal +
		e.cfg.AlphaDurability*adj.DurabilitySignal)

	adj.FinalDelta = clamp(adj.RawDelta, -e.cfg.MaxAdjustment, e.cfg.MaxAdjustment)
	adj.TopDefenders = topDefenders(weights, 5)

	return adj, nil
}

// Roster returns the display names of a team's rostered players in
// deterministic order. Empty when the team is unknown.
func (e *Engine) Roster(team string) []string {
	keys := e.rosters[identity.Team(team)]
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, e.players[key].Name)
	}
	return names
}

// defenderWeight pairs a defender context with its normalized interaction
// probability and the raw factor breakdown.
type defenderWeight struct {
	defender *PlayerContext

	weight          float64
	positionWeight  float64
	minutesOverlap  float64
	roleInteraction float64
}

// interactionWeights builds the normalized interaction probability
// distribution over the opposing roster: position proximity, projected
// shared floor time, and interior/perimeter role overlap, renormalized to
// sum to one.
func (e *Engine) interactionWeights(player *PlayerContext, opponentTeam string) []defenderWeight {
	roster := e.rosters[opponentTeam]
	if len(roster) == 0 {
		return nil
	}

	playerMin := player.AvgMinutes
	if playerMin == 0 {
		playerMin = 20
	}

	weights := make([]defenderWeight, 0, len(roster))
	total := 0.0
	for _, defKey := range roster {
		def := e.players[defKey]

		posWeight := math.Exp(-archetype.Distance(player.Archetype, def.Archetype))

		defMin := def.AvgMinutes
		if defMin == 0 {
			defMin = 15
		}
		overlap := (playerMin * defMin) / (48.0 * 48.0)

		role := player.InteriorUsage*def.InteriorUsage + player.PerimeterUsage()*def.PerimeterUsage()

		raw := posWeight * overlap * role
		if raw <= 1e-6 {
			continue
		}
		weights = append(weights, defenderWeight{
			defender:        def,
			weight:          raw,
			positionWeight:  posWeight,
			minutesOverlap:  overlap,
			roleInteraction: role,
		})
		total += raw
	}

	if total == 0 {
		return nil
	}
	for i := range weights {
		weights[i].weight /= total
	}
	return weights
}

// sizeNormalization is the raw size differential (inches + pound-halves)
// that maps to the signal's ±1 bound.
const sizeNormalization = 30.0

// sizeSignal is the interaction-weighted physical mismatch, gated by
// interior usage so it only materially affects players whose role involves
// interior contact. Returns the signal and whether it was degraded by
// missing measurements.
func (e *Engine) sizeSignal(player *PlayerContext, weights []defenderWeight) (float64, bool) {
	if !player.HasMeasurement {
		return 0, true
	}

	total := 0.0
	anyOpponent := false
	for _, w := range weights {
		def := w.defender
		if !def.HasMeasurement {
			continue
		}
		anyOpponent = true

		raw := (player.HeightInches - def.HeightInches) +
			0.5*(player.WeightPounds-def.WeightPounds) +
			0.3*(player.WingspanInches-def.WingspanInches)

		normalized := clamp(raw/sizeNormalization, -1, 1)
		total += w.weight * normalized * player.InteriorUsage
	}

	if !anyOpponent {
		return 0, true
	}
	return total, false
}

// archetypeSignal is the interaction-weighted archetype-pair differential,
// each pair scaled by the confidence of its historical sample.
func (e *Engine) archetypeSignal(player *PlayerContext, weights []defenderWeight) float64 {
	total := 0.0
	for _, w := range weights {
		pair := [2]archetype.Label{player.Archetype, w.defender.Archetype}
		profile, ok := e.profiles[pair]
		if !ok {
			continue
		}
		total += w.weight * profile.FppmDiff * profile.Confidence
	}
	return total
}

// familiaritySignal is the pre-shrunk player-vs-team differential. Zero
// prior meetings means exactly zero: full shrinkage, no effect.
func (e *Engine) familiaritySignal(playerKey, opponentTeam string) float64 {
	fam, ok := e.familiarity[famKey{playerKey, opponentTeam}]
	if !ok {
		return 0
	}
	return fam.Score
}

// plausibleDefenderFloor is the interaction weight below which an opponent
// is not considered a plausible matchup for durability purposes.
const plausibleDefenderFloor = 0.10

// durabilitySignal compares the least stable plausible matchup opponent
// against league-average stability. A fragile opposing rotation spot is an
// opportunity (positive); an iron-man defender is a tougher night
// (negative). The worst plausible case drives the signal, not the roster
// average: one unreliable primary defender changes the whole matchup.
func (e *Engine) durabilitySignal(weights []defenderWeight) float64 {
	minStability := math.Inf(1)
	found := false
	for _, w := range weights {
		if w.weight < plausibleDefenderFloor {
			continue
		}
		s := w.defender.Stability()
		if s < minStability {
			minStability = s
			found = true
		}
	}
	if !found {
		return 0
	}
	return e.leagueStability - minStability
}

func topDefenders(weights []defenderWeight, n int) []types.DefenderWeight {
	sorted := make([]defenderWeight, len(weights))
	copy(sorted, weights)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].weight != sorted[j].weight {
			return sorted[i].weight > sorted[j].weight
		}
		return sorted[i].defender.Key < sorted[j].defender.Key
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]types.DefenderWeight, len(sorted))
	for i, w := range sorted {
		out[i] = types.DefenderWeight{
			OpponentName:    w.defender.Name,
			Weight:          w.weight,
			PositionWeight:  w.positionWeight,
			MinutesOverlap:  w.minutesOverlap,
			RoleInteraction: w.roleInteraction,
			Archetype:       string(w.defender.Archetype),
			AvgMinutes:      w.defender.AvgMinutes,
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
