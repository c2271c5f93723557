// Package pipeline orchestrates the daily analytics run: normalize features,
// build composite indices, fit and label the archetype clusters, run the
// reclassification cascade, and build the matchup rating set. Each run is
// versioned so consumers can pin their reads.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/court-iq/internal/archetype"
	"github.com/stitts-dev/court-iq/internal/cluster"
	"github.com/stitts-dev/court-iq/internal/features"
	"github.com/stitts-dev/court-iq/internal/interaction"
	"github.com/stitts-dev/court-iq/internal/rating"
	"github.com/stitts-dev/court-iq/internal/store"
	"github.com/stitts-dev/court-iq/pkg/config"
	"github.com/stitts-dev/court-iq/pkg/identity"
	"github.com/stitts-dev/court-iq/pkg/logger"
	"github.com/stitts-dev/court-iq/pkg/types"
)

// historyYears bounds how far back the game log read goes. Matchup history
// older than this has little predictive value and bloats the aggregates.
const historyYears = 3

// Runner executes pipeline runs and holds the interaction engine of the most
// recent completed run for slate computation.
type Runner struct {
	cfg   *config.Config
	store *store.Store
	cache *store.AdjustmentCache
	log   *logrus.Entry

	mu            sync.RWMutex
	currentRunID  uuid.UUID
	currentEngine *interaction.Engine
}

func NewRunner(cfg *config.Config, st *store.Store, cache *store.AdjustmentCache) *Runner {
	return &Runner{
		cfg:   cfg,
		store: st,
		cache: cache,
		log:   logger.WithComponent("pipeline"),
	}
}

// seasonStart anchors the NBA season containing asOf. Seasons tip off in
// late October; any date before August belongs to the season that started
// the previous calendar year.
func seasonStart(asOf time.Time) time.Time {
	year := asOf.Year()
	if asOf.Month() < time.August {
		year--
	}
	return time.Date(year, time.October, 21, 0, 0, 0, 0, time.UTC)
}

// Run executes one full pipeline run as of now. Partial outputs from a
// failed run stay in place under the failed run id; consumers only read
// completed runs.
func (r *Runner) Run(ctx context.Context) (*types.PipelineRun, error) {
	asOf := time.Now().UTC()

	run, err := r.store.CreateRun(ctx)
	if err != nil {
		return nil, err
	}
	log := r.log.WithField("run_id", run.ID)
	log.Info("Pipeline run started")

	if err := r.execute(ctx, run, asOf, log); err != nil {
		log.WithError(err).Error("Pipeline run failed")
		r.store.FailRun(ctx, run, err)
		return run, err
	}

	if err := r.store.CompleteRun(ctx, run); err != nil {
		return run, err
	}

	log.WithFields(logrus.Fields{
		"players_scored": run.PlayersScored,
		"training_size":  run.TrainingSize,
		"rating_count":   run.RatingCount,
		"duration":       time.Since(run.StartedAt).Round(time.Millisecond),
	}).Info("Pipeline run completed")
	return run, nil
}

func (r *Runner) execute(ctx context.Context, run *types.PipelineRun, asOf time.Time, log *logrus.Entry) error {
	// Stage 1: load inputs.
	fullSeason, err := r.store.LoadStatRecords(ctx, types.WindowFullSeason)
	if err != nil {
		return err
	}
	if len(fullSeason) == 0 {
		return fmt.Errorf("no full-season stat records available")
	}
	measurements, err := r.store.LoadMeasurements(ctx)
	if err != nil {
		return err
	}
	gameLogs, err := r.store.LoadGameLogs(ctx, asOf.AddDate(-historyYears, 0, 0))
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"stat_records": len(fullSeason),
		"measurements": len(measurements),
		"game_logs":    len(gameLogs),
	}).Info("Inputs loaded")

	// Stage 2: normalize and build composite index vectors.
	norm, err := features.FitNormalizer(fullSeason, r.cfg.MinGamesPlayed, r.cfg.MinMinutesPG)
	if err != nil {
		return fmt.Errorf("failed to fit normalizer: %w", err)
	}

	composites := make([]types.CompositeIndexVector, 0, len(fullSeason))
	degradedFeatures := make(map[string]bool, len(fullSeason))
	recordByKey := make(map[string]*types.PlayerStatRecord, len(fullSeason))
	for i := range fullSeason {
		rec := &fullSeason[i]
		key := identity.Key(rec.PlayerName)
		recordByKey[key] = rec

		z, degraded := norm.ZScores(rec)
		degradedFeatures[key] = degraded
		composites = append(composites, *features.BuildComposite(run.ID, rec.PlayerName, z))
	}

	// Stage 3: fit the cluster model on the training subset, then soft-
	// assign every scored player against the frozen centroids.
	points := make([]cluster.Point, len(composites))
	var training []cluster.Point
	for i := range composites {
		rec := recordByKey[identity.Key(composites[i].PlayerName)]
		points[i] = cluster.Point{
			PlayerName: composites[i].PlayerName,
			Vector:     composites[i].Vector(),
			Weight:     rec.TotalMinutes,
		}
		if rec.TotalMinutes >= r.cfg.TrainingMinutes && features.Qualifies(rec, r.cfg.MinGamesPlayed, r.cfg.MinMinutesPG) {
			training = append(training, points[i])
		}
	}
	if len(training) < r.cfg.ClusterCount {
		return fmt.Errorf("training population too small: %d players for %d clusters", len(training), r.cfg.ClusterCount)
	}

	model, err := cluster.Fit(training, r.cfg.ClusterCount, r.cfg.ClusterSeed, r.cfg.ClusterMaxIter)
	if err != nil {
		return fmt.Errorf("failed to fit cluster model: %w", err)
	}

	r.recordSilhouettes(model, training, log)

	// Stage 4: base-label each centroid from the minutes-weighted raw stats
	// of its training members.
	baseLabels := r.labelCentroids(model, training, recordByKey)
	log.WithField("labels", baseLabels).Info("Centroids labelled")

	// Stage 5: per-player soft assignment plus the reclassification cascade,
	// fanned out over a bounded worker pool.
	assignments := r.assignPlayers(run.ID, model, points, baseLabels, recordByKey, degradedFeatures)

	if err := r.store.SaveComposites(ctx, composites); err != nil {
		return err
	}
	if err := r.store.SaveAssignments(ctx, assignments); err != nil {
		return err
	}

	// Stage 6: matchup ratings from the log history and this run's labels.
	archetypeOf := make(map[string]archetype.Label, len(assignments))
	positionOf := make(map[string]types.Position, len(assignments))
	for i := range assignments {
		key := identity.Key(assignments[i].PlayerName)
		archetypeOf[key] = archetype.Label(assignments[i].FinalLabel)
		positionOf[key] = assignments[i].Position
	}

	start := seasonStart(asOf)
	dayOfSeason := int(asOf.Sub(start).Hours() / 24)

	// The 3-year log read feeds the familiarity aggregates; the rating
	// sample is bounded to the current season inside the engine.
	engine := rating.NewEngine(rating.Config{
		RollingWindowDays: r.cfg.RollingWindowDays,
		RollingBlendCap:   r.cfg.RollingBlendCap,
		MinRecentGames:    r.cfg.MinRecentGames,
		ShrinkageFullN:    r.cfg.ShrinkageFullN,
		SeasonLengthDays:  r.cfg.SeasonLengthDays,
		SeasonStart:       start,
	})
	ratingResult, err := engine.Build(run.ID, gameLogs, archetypeOf, positionOf, asOf, dayOfSeason)
	if err != nil {
		return fmt.Errorf("failed to build matchup ratings: %w", err)
	}
	if err := r.store.SaveRatings(ctx, ratingResult.Ratings); err != nil {
		return err
	}

	// Stage 7: assemble the interaction engine for slate computation.
	interEngine := r.buildInteractionEngine(fullSeason, measurements, gameLogs, archetypeOf, start)
	r.mu.Lock()
	r.currentRunID = run.ID
	r.currentEngine = interEngine
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.InvalidateRun(ctx, run.ID); err != nil {
			log.WithError(err).Warn("Failed to invalidate adjustment cache")
		}
	}

	run.PlayersScored = len(assignments)
	run.TrainingSize = len(training)
	run.ClusterCount = model.K
	run.RatingCount = len(ratingResult.Ratings)
	run.DVPCorrelation = ratingResult.PositionArchetypeCorrelation
	return nil
}

// recordSilhouettes runs the diagnostic sweep over the candidate cluster
// counts and records the per-K scores on the fitted model. K itself stays
// fixed at the configured count regardless of the sweep's winner.
func (r *Runner) recordSilhouettes(model *cluster.Model, training []cluster.Point, log *logrus.Entry) {
	model.Silhouettes = cluster.SilhouetteSweep(training, r.cfg.SilhouetteMinK, r.cfg.SilhouetteMaxK, r.cfg.ClusterSeed, r.cfg.ClusterMaxIter)
	log.WithField("silhouettes", model.Silhouettes).Info("Silhouette sweep")
}

// labelCentroids derives each cluster's archetype from the minutes-weighted
// mean raw stats of its training members.
func (r *Runner) labelCentroids(model *cluster.Model, training []cluster.Point, recordByKey map[string]*types.PlayerStatRecord) []archetype.Label {
	assignments := model.Assignments(training)

	meanOf := func(c int, value func(*types.PlayerStatRecord) float64) float64 {
		return cluster.CentroidProfile(training, assignments, c, func(p cluster.Point) float64 {
			return value(recordByKey[identity.Key(p.PlayerName)])
		})
	}

	labels := make([]archetype.Label, model.K)
	for c := 0; c < model.K; c++ {
		profile := archetype.Profile{
			PtsPer100:         meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.PtsPer100 }),
			RebPer100:         meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.RebPer100 }),
			AstPer100:         meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.AstPer100 }),
			StlPer100:         meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.StlPer100 }),
			BlkPer100:         meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.BlkPer100 }),
			Fg3mPer100:        meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.Fg3mPer100 }),
			UsagePct:          meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.UsagePct }),
			GuardPct:          meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.GuardShare() }),
			ForwardPct:        meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.ForwardShare() }),
			BigPct:            meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.BigShare() }),
			TouchesPerMin:     meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.TouchesPerMin }),
			InteriorShotShare: meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.InteriorShotShare() }),
			ThreeShotShare:    meanOf(c, func(r *types.PlayerStatRecord) float64 { return r.ThreeShotShare() }),
		}
		labels[c] = archetype.BaseLabel(profile)
	}
	return labels
}

// assignPlayers soft-assigns every scored player and runs the cascade.
// Output order matches the input point order regardless of worker count.
func (r *Runner) assignPlayers(
	runID uuid.UUID,
	model *cluster.Model,
	points []cluster.Point,
	baseLabels []archetype.Label,
	recordByKey map[string]*types.PlayerStatRecord,
	degradedFeatures map[string]bool,
) []types.ArchetypeAssignment {
	workers := r.cfg.PipelineWorkers
	if workers < 1 {
		workers = 1
	}

	assignments := make([]types.ArchetypeAssignment, len(points))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				p := points[i]
				rec := recordByKey[identity.Key(p.PlayerName)]

				nearest, _ := model.Nearest(p.Vector)
				probs := model.SoftAssign(p.Vector, r.cfg.SoftmaxTemperature)

				raw := baseLabels[nearest]
				res := archetype.Reclassify(raw, archetype.ProfileFrom(rec))

				assignments[i] = types.ArchetypeAssignment{
					RunID:         runID,
					PlayerName:    p.PlayerName,
					Team:          identity.Team(rec.Team),
					Position:      rec.PrimaryPosition(),
					Cluster:       nearest,
					Probabilities: probs,
					RawLabel:      string(raw),
					FinalLabel:    string(res.Final),
					FiredRules:    res.FiredRules,
					Degraded:      res.Degraded || degradedFeatures[identity.Key(p.PlayerName)],
					ComputedAt:    time.Now().UTC(),
				}
			}
		}()
	}

	for i := range points {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return assignments
}

// buildInteractionEngine assembles per-player contexts and historical
// aggregates for the slate adjustment engine.
func (r *Runner) buildInteractionEngine(
	records []types.PlayerStatRecord,
	measurements []types.Measurement,
	gameLogs []types.GameLogRow,
	archetypeOf map[string]archetype.Label,
	start time.Time,
) *interaction.Engine {
	measByKey := make(map[string]*types.Measurement, len(measurements))
	for i := range measurements {
		measByKey[identity.Key(measurements[i].PlayerName)] = &measurements[i]
	}
	volatility := interaction.ComputeVolatility(gameLogs, start)

	players := make([]*interaction.PlayerContext, 0, len(records))
	rosters := make(map[string][]string)
	for i := range records {
		rec := &records[i]
		key := identity.Key(rec.PlayerName)
		label, ok := archetypeOf[key]
		if !ok {
			continue
		}
		pc := interaction.NewPlayerContext(rec, label, measByKey[key], volatility[key])
		players = append(players, pc)
		rosters[pc.Team] = append(rosters[pc.Team], key)
	}

	cfg := interaction.DefaultConfig()
	cfg.MaxAdjustment = r.cfg.MaxFantasyAdjustment
	cfg.FamiliarityFloorN = r.cfg.FamiliarityFloorN

	familiarity := interaction.BuildFamiliarity(gameLogs, cfg.FamiliarityFloorN)
	profiles := interaction.BuildArchetypeProfiles(gameLogs, archetypeOf, rosters)

	return interaction.NewEngine(cfg, players, familiarity, profiles)
}
