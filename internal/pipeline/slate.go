package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stitts-dev/court-iq/pkg/identity"
	"github.com/stitts-dev/court-iq/pkg/types"
)

// SlateGame is one game on a slate: two teams and a tip-off date.
type SlateGame struct {
	Home string    `json:"home"`
	Away string    `json:"away"`
	Date time.Time `json:"date"`
}

// CurrentRunID returns the run whose interaction engine is loaded, or
// uuid.Nil before the first completed run.
func (r *Runner) CurrentRunID() uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentRunID
}

// ComputeSlate computes interaction adjustments for every rostered player on
// both sides of each slate game, persists them, and caches each team slate.
// Adjustments are ephemeral: they belong to the current run and are never
// carried forward to later slates.
func (r *Runner) ComputeSlate(ctx context.Context, games []SlateGame) ([]types.InteractionAdjustment, error) {
	r.mu.RLock()
	engine := r.currentEngine
	runID := r.currentRunID
	r.mu.RUnlock()

	if engine == nil {
		return nil, fmt.Errorf("no completed pipeline run loaded")
	}

	type task struct {
		offense, defense string
		date             time.Time
	}
	tasks := make([]task, 0, 2*len(games))
	for _, game := range games {
		home := identity.Team(game.Home)
		away := identity.Team(game.Away)
		date := game.Date.Truncate(24 * time.Hour)
		tasks = append(tasks, task{home, away, date}, task{away, home, date})
	}

	// Fan the team sides out over the worker pool; results land by index so
	// output order matches the requested game order.
	workers := r.cfg.PipelineWorkers
	if workers < 1 {
		workers = 1
	}
	results := make([][]types.InteractionAdjustment, len(tasks))
	fromCache := make([]bool, len(tasks))
	errs := make([]error, len(tasks))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				t := tasks[i]
				results[i], fromCache[i], errs[i] = r.teamAdjustments(ctx, engine, runID, t.offense, t.defense, t.date)
			}
		}()
	}
	for i := range tasks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i := range tasks {
		if errs[i] != nil {
			return nil, errs[i]
		}
	}

	// Cache-served team slates were already persisted when first computed;
	// re-saving them would duplicate rows under the same run.
	if err := r.store.SaveAdjustments(ctx, freshAdjustments(results, fromCache)); err != nil {
		return nil, err
	}

	var all []types.InteractionAdjustment
	for i := range tasks {
		all = append(all, results[i]...)
	}
	return all, nil
}

// freshAdjustments collects the adjustments of team slates that were
// computed this call, skipping the ones served from cache.
func freshAdjustments(results [][]types.InteractionAdjustment, fromCache []bool) []types.InteractionAdjustment {
	var fresh []types.InteractionAdjustment
	for i := range results {
		if fromCache[i] {
			continue
		}
		fresh = append(fresh, results[i]...)
	}
	return fresh
}

// teamAdjustments computes one team's adjustments against one opponent,
// serving from cache when the slate was already computed. The second return
// reports a cache hit.
func (r *Runner) teamAdjustments(ctx context.Context, engine slateEngine, runID uuid.UUID, offense, defense string, date time.Time) ([]types.InteractionAdjustment, bool, error) {
	if r.cache != nil {
		cached, err := r.cache.GetSlate(ctx, runID, offense, date)
		if err != nil {
			r.log.WithError(err).Warn("Adjustment cache read failed")
		} else if cached != nil {
			return cached, true, nil
		}
	}

	var out []types.InteractionAdjustment
	for _, name := range engine.Roster(offense) {
		adj, err := engine.Adjust(runID, name, defense, date)
		if err != nil {
			return nil, false, fmt.Errorf("failed to adjust %s vs %s: %w", name, defense, err)
		}
		out = append(out, *adj)
	}

	if r.cache != nil {
		if err := r.cache.SetSlate(ctx, runID, offense, date, out); err != nil {
			r.log.WithError(err).Warn("Adjustment cache write failed")
		}
	}
	return out, false, nil
}

// slateEngine is the slice of the interaction engine the slate path needs.
type slateEngine interface {
	Roster(team string) []string
	Adjust(runID uuid.UUID, playerName, opponentTeam string, gameDate time.Time) (*types.InteractionAdjustment, error)
}
