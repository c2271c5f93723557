// Package store persists run-versioned pipeline outputs to Postgres and
// caches per-slate interaction adjustments in Redis. Input tables (stat
// records, measurements, game logs) are owned by the upstream collection
// system and only read here.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stitts-dev/court-iq/pkg/database"
	"github.com/stitts-dev/court-iq/pkg/logger"
	"github.com/stitts-dev/court-iq/pkg/types"
)

type Store struct {
	db  *database.DB
	log *logrus.Entry
}

// New wires the store and migrates the output tables. Input tables are
// deliberately not migrated: their schema belongs to the upstream system.
func New(db *database.DB) (*Store, error) {
	s := &Store{db: db, log: logger.WithComponent("store")}

	if err := db.AutoMigrate(
		&types.PipelineRun{},
		&types.CompositeIndexVector{},
		&types.ArchetypeAssignment{},
		&types.MatchupRating{},
		&types.InteractionAdjustment{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate output tables: %w", err)
	}

	return s, nil
}

// CreateRun registers a new pipeline run in the running state.
func (s *Store) CreateRun(ctx context.Context) (*types.PipelineRun, error) {
	run := &types.PipelineRun{
		ID:        uuid.New(),
		Status:    types.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run completed and records its summary counters.
func (s *Store) CompleteRun(ctx context.Context, run *types.PipelineRun) error {
	now := time.Now().UTC()
	run.Status = types.RunStatusCompleted
	run.CompletedAt = &now
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to complete pipeline run %s: %w", run.ID, err)
	}
	return nil
}

// FailRun marks a run failed with the causing error. Outputs already
// written for the run stay in place for debugging; downstream consumers
// only read completed runs.
func (s *Store) FailRun(ctx context.Context, run *types.PipelineRun, cause error) {
	now := time.Now().UTC()
	run.Status = types.RunStatusFailed
	run.CompletedAt = &now
	run.Error = cause.Error()
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		s.log.WithError(err).WithField("run_id", run.ID).Error("Failed to record run failure")
	}
}

// LatestCompletedRun returns the most recent completed run, or
// gorm.ErrRecordNotFound when no run has completed yet.
func (s *Store) LatestCompletedRun(ctx context.Context) (*types.PipelineRun, error) {
	var run types.PipelineRun
	err := s.db.WithContext(ctx).
		Where("status = ?", types.RunStatusCompleted).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*types.PipelineRun, error) {
	var run types.PipelineRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadStatRecords reads the upstream stat rows for one window.
func (s *Store) LoadStatRecords(ctx context.Context, window types.StatWindow) ([]types.PlayerStatRecord, error) {
	var records []types.PlayerStatRecord
	if err := s.db.WithContext(ctx).Where("window = ?", window).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load stat records (%s): %w", window, err)
	}
	return records, nil
}

// LoadMeasurements reads the upstream physical measurement rows.
func (s *Store) LoadMeasurements(ctx context.Context) ([]types.Measurement, error) {
	var measurements []types.Measurement
	if err := s.db.WithContext(ctx).Find(&measurements).Error; err != nil {
		return nil, fmt.Errorf("failed to load measurements: %w", err)
	}
	return measurements, nil
}

// LoadGameLogs reads the historical game log rows on or after since.
func (s *Store) LoadGameLogs(ctx context.Context, since time.Time) ([]types.GameLogRow, error) {
	var logs []types.GameLogRow
	if err := s.db.WithContext(ctx).Where("game_date >= ?", since).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to load game logs: %w", err)
	}
	return logs, nil
}

const batchSize = 500

// SaveComposites persists the composite index vectors for a run.
func (s *Store) SaveComposites(ctx context.Context, vectors []types.CompositeIndexVector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(vectors, batchSize).Error; err != nil {
		return fmt.Errorf("failed to save composite vectors: %w", err)
	}
	return nil
}

// SaveAssignments persists the archetype assignments for a run.
func (s *Store) SaveAssignments(ctx context.Context, assignments []types.ArchetypeAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(assignments, batchSize).Error; err != nil {
		return fmt.Errorf("failed to save archetype assignments: %w", err)
	}
	return nil
}

// SaveRatings persists the matchup rating set for a run.
func (s *Store) SaveRatings(ctx context.Context, ratings []types.MatchupRating) error {
	if len(ratings) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(ratings, batchSize).Error; err != nil {
		return fmt.Errorf("failed to save matchup ratings: %w", err)
	}
	return nil
}

// SaveAdjustments persists interaction adjustments for a slate.
func (s *Store) SaveAdjustments(ctx context.Context, adjustments []types.InteractionAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(adjustments, batchSize).Error; err != nil {
		return fmt.Errorf("failed to save interaction adjustments: %w", err)
	}
	return nil
}

// GetAssignments returns the archetype assignments of one run.
func (s *Store) GetAssignments(ctx context.Context, runID uuid.UUID) ([]types.ArchetypeAssignment, error) {
	var out []types.ArchetypeAssignment
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("player_name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetRatings returns the matchup ratings of one run, optionally filtered by
// group kind.
func (s *Store) GetRatings(ctx context.Context, runID uuid.UUID, kind types.RatingGroupKind) ([]types.MatchupRating, error) {
	q := s.db.WithContext(ctx).Where("run_id = ?", runID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []types.MatchupRating
	if err := q.Order("team").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetAdjustments returns the interaction adjustments of one run, optionally
// filtered by opponent team and game date.
func (s *Store) GetAdjustments(ctx context.Context, runID uuid.UUID, team string, date *time.Time) ([]types.InteractionAdjustment, error) {
	q := s.db.WithContext(ctx).Where("run_id = ?", runID)
	if team != "" {
		q = q.Where("opponent_team = ?", team)
	}
	if date != nil {
		q = q.Where("game_date = ?", *date)
	}
	var out []types.InteractionAdjustment
	if err := q.Order("player_name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IsNotFound reports whether an error is the gorm record-not-found error.
func IsNotFound(err error) bool {
	return err == gorm.ErrRecordNotFound
}
