package types

import (
	"time"

	"github.com/google/uuid"
)

// StatWindow identifies which aggregation window a stat record covers.
type StatWindow string

const (
	WindowFullSeason StatWindow = "full_season"
	WindowRolling    StatWindow = "rolling"
)

// Position is one of the five core basketball positions.
type Position string

const (
	PointGuard    Position = "PG"
	ShootingGuard Position = "SG"
	SmallForward  Position = "SF"
	PowerForward  Position = "PF"
	Center        Position = "C"
)

// CorePositions lists the five positions in frontcourt-to-backcourt order
// used for positional distance calculations.
var CorePositions = []Position{Center, PowerForward, SmallForward, ShootingGuard, PointGuard}

// PlayerStatRecord is one row per player per stat window, produced by the
// upstream collection system and treated as read-only input. Rate stats are
// per-100 possessions; shot zone counts are season totals.
type PlayerStatRecord struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	PlayerName string     `json:"player_name" gorm:"index"`
	Team       string     `json:"team"`
	Window     StatWindow `json:"window" gorm:"index"`

	GamesPlayed    int     `json:"games_played"`
	TotalMinutes   float64 `json:"total_minutes"`
	MinutesPerGame float64 `json:"minutes_per_game"`

	PtsPer100  float64 `json:"pts_per100"`
	RebPer100  float64 `json:"reb_per100"`
	AstPer100  float64 `json:"ast_per100"`
	StlPer100  float64 `json:"stl_per100"`
	BlkPer100  float64 `json:"blk_per100"`
	TovPer100  float64 `json:"tov_per100"`
	Fg3mPer100 float64 `json:"fg3m_per100"`

	UsagePct      float64 `json:"usg_pct"`
	TouchesPerMin float64 `json:"touches_per_min"`

	TotalFGA float64 `json:"total_fga"`
	RimFGA   float64 `json:"rim_fga"`
	PaintFGA float64 `json:"paint_fga"`
	MidFGA   float64 `json:"mid_fga"`
	ThreeFGA float64 `json:"three_fga"`

	PGPct float64 `json:"pg_pct"`
	SGPct float64 `json:"sg_pct"`
	SFPct float64 `json:"sf_pct"`
	PFPct float64 `json:"pf_pct"`
	CPct  float64 `json:"c_pct"`
}

func (PlayerStatRecord) TableName() string { return "player_stat_records" }

// GuardShare returns the fraction of minutes spent at either guard spot.
func (r *PlayerStatRecord) GuardShare() float64 { return r.PGPct + r.SGPct }

// ForwardShare returns the fraction of minutes spent at either forward spot.
func (r *PlayerStatRecord) ForwardShare() float64 { return r.SFPct + r.PFPct }

// BigShare returns the fraction of minutes spent at center.
func (r *PlayerStatRecord) BigShare() float64 { return r.CPct }

// InteriorShotShare returns the fraction of attempts at the rim or in the paint.
func (r *PlayerStatRecord) InteriorShotShare() float64 {
	if r.TotalFGA <= 0 {
		return 0
	}
	return (r.RimFGA + r.PaintFGA) / r.TotalFGA
}

// ThreeShotShare returns the fraction of attempts from three.
func (r *PlayerStatRecord) ThreeShotShare() float64 {
	if r.TotalFGA <= 0 {
		return 0
	}
	return r.ThreeFGA / r.TotalFGA
}

// PerimeterShotShare returns the fraction of attempts from three or midrange.
func (r *PlayerStatRecord) PerimeterShotShare() float64 {
	if r.TotalFGA <= 0 {
		return 0
	}
	return (r.MidFGA + r.ThreeFGA) / r.TotalFGA
}

// PrimaryPosition returns the position with the largest minute share.
func (r *PlayerStatRecord) PrimaryPosition() Position {
	best := PointGuard
	bestShare := r.PGPct
	for pos, share := range map[Position]float64{
		ShootingGuard: r.SGPct,
		SmallForward:  r.SFPct,
		PowerForward:  r.PFPct,
		Center:        r.CPct,
	} {
		if share > bestShare {
			best = pos
			bestShare = share
		}
	}
	return best
}

// Measurement holds a player's physical profile. Wingspan may be estimated
// from height when no combine measurement exists.
type Measurement struct {
	ID                uint    `json:"id" gorm:"primaryKey"`
	PlayerName        string  `json:"player_name" gorm:"index"`
	HeightInches      float64 `json:"height_inches"`
	WeightPounds      float64 `json:"weight_lbs"`
	WingspanInches    float64 `json:"wingspan_inches"`
	WingspanEstimated bool    `json:"wingspan_estimated"`
}

func (Measurement) TableName() string { return "player_measurements" }

// GameLogRow is one player game line from the historical log, spanning
// multiple seasons. Owned by the upstream collection system.
type GameLogRow struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PlayerName string    `json:"player_name" gorm:"index"`
	Team       string    `json:"team"`
	Opponent   string    `json:"opponent" gorm:"index"`
	GameDate   time.Time `json:"game_date" gorm:"index"`

	Minutes       float64 `json:"min"`
	Points        float64 `json:"pts"`
	Rebounds      float64 `json:"reb"`
	Assists       float64 `json:"ast"`
	Steals        float64 `json:"stl"`
	Blocks        float64 `json:"blk"`
	ThreesMade    float64 `json:"fg3m"`
	Turnovers     float64 `json:"tov"`
	FantasyPoints float64 `json:"fp"`
}

func (GameLogRow) TableName() string { return "player_game_logs" }

// CompositeIndexVector holds the eight composite indices for one player in
// one pipeline run. Indices are sums of z-scored features and therefore
// population-relative; vectors from different runs are not comparable.
type CompositeIndexVector struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	RunID      uuid.UUID `json:"run_id" gorm:"type:uuid;index"`
	PlayerName string    `json:"player_name" gorm:"index"`

	InteriorScoring   float64 `json:"interior_scoring"`
	PerimeterShooting float64 `json:"perimeter_shooting"`
	Playmaking        float64 `json:"playmaking"`
	Rebounding        float64 `json:"rebounding"`
	RimProtection     float64 `json:"rim_protection"`
	PerimeterDefense  float64 `json:"perimeter_defense"`
	UsageLoad         float64 `json:"usage_load"`
	OffBallValue      float64 `json:"off_ball_value"`

	ComputedAt time.Time `json:"computed_at"`
}

func (CompositeIndexVector) TableName() string { return "composite_index_vectors" }

// Vector returns the indices as a slice in canonical order.
func (v *CompositeIndexVector) Vector() []float64 {
	return []float64{
		v.InteriorScoring, v.PerimeterShooting, v.Playmaking, v.Rebounding,
		v.RimProtection, v.PerimeterDefense, v.UsageLoad, v.OffBallValue,
	}
}

// IndexCount is the dimensionality of the composite index space.
const IndexCount = 8

// IndexNames lists the composite indices in canonical order.
var IndexNames = []string{
	"interior_scoring", "perimeter_shooting", "playmaking", "rebounding",
	"rim_protection", "perimeter_defense", "usage_load", "off_ball_value",
}

// ArchetypeAssignment is the per-player clustering outcome for a run: the
// soft probability vector over clusters plus the resolved final label. The
// final label may diverge from the highest-probability cluster when cascade
// rules override it; both are kept for the audit trail.
type ArchetypeAssignment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	RunID      uuid.UUID `json:"run_id" gorm:"type:uuid;index"`
	PlayerName string    `json:"player_name" gorm:"index"`
	Team       string    `json:"team"`
	Position   Position  `json:"position"`

	Cluster       int       `json:"cluster"`
	Probabilities []float64 `json:"probabilities" gorm:"serializer:json"`
	RawLabel      string    `json:"raw_label"`
	FinalLabel    string    `json:"final_label" gorm:"index"`
	FiredRules    []string  `json:"fired_rules" gorm:"serializer:json"`

	Degraded   bool      `json:"degraded"`
	ComputedAt time.Time `json:"computed_at"`
}

func (ArchetypeAssignment) TableName() string { return "archetype_assignments" }

// RatingGroupKind distinguishes position-based from archetype-based ratings.
type RatingGroupKind string

const (
	GroupPosition  RatingGroupKind = "position"
	GroupArchetype RatingGroupKind = "archetype"
)

// MatchupRating is a team's blended defensive rating against one position or
// one archetype: fantasy points and category stats conceded per opponent
// minute, with sample sizes and a shrinkage confidence weight.
type MatchupRating struct {
	ID    uint            `json:"id" gorm:"primaryKey"`
	RunID uuid.UUID       `json:"run_id" gorm:"type:uuid;index"`
	Team  string          `json:"team" gorm:"index"`
	Kind  RatingGroupKind `json:"kind" gorm:"index"`
	Group string          `json:"group" gorm:"index"`

	FpPerMin       float64            `json:"fp_pm"`
	FpPerMinDiff   float64            `json:"fp_pm_diff"`
	CategoryPerMin map[string]float64 `json:"category_pm" gorm:"serializer:json"`
	CategoryDiff   map[string]float64 `json:"category_pm_diff" gorm:"serializer:json"`

	FullSampleN   int     `json:"sample_n"`
	RecentSampleN int     `json:"recent_n"`
	Confidence    float64 `json:"confidence"`
	BlendWeight   float64 `json:"blend_weight"`

	DVSMultiplier float64 `json:"dvs_multiplier"`
	DVSRaw        float64 `json:"dvs_raw"`

	LeagueAverageFill bool      `json:"league_average_fill"`
	ComputedAt        time.Time `json:"computed_at"`
}

func (MatchupRating) TableName() string { return "matchup_ratings" }

// DefenderWeight is one row of the interaction probability distribution: how
// much of a player's matchup exposure lands on one opposing defender.
type DefenderWeight struct {
	OpponentName    string  `json:"opponent_name"`
	Weight          float64 `json:"weight"`
	PositionWeight  float64 `json:"position_weight"`
	MinutesOverlap  float64 `json:"minutes_overlap"`
	RoleInteraction float64 `json:"role_interaction"`
	Archetype       string  `json:"archetype"`
	AvgMinutes      float64 `json:"avg_min"`
}

// InteractionAdjustment is the bounded projection delta for one offensive
// player against one opposing team on one game date. Ephemeral: computed
// fresh per slate and cached, never carried forward between slates.
type InteractionAdjustment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RunID        uuid.UUID `json:"run_id" gorm:"type:uuid;index"`
	PlayerName   string    `json:"player_name" gorm:"index"`
	OpponentTeam string    `json:"opponent_team" gorm:"index"`
	GameDate     time.Time `json:"game_date" gorm:"index"`

	SizeSignal        float64 `json:"size_signal"`
	ArchetypeSignal   float64 `json:"archetype_signal"`
	FamiliaritySignal float64 `json:"familiarity_signal"`
	DurabilitySignal  float64 `json:"durability_signal"`

	RawDelta   float64 `json:"raw_delta"`
	FinalDelta float64 `json:"final_delta"`

	TopDefenders []DefenderWeight `json:"top_defenders" gorm:"serializer:json"`

	Degraded   bool      `json:"degraded"`
	ComputedAt time.Time `json:"computed_at"`
}

func (InteractionAdjustment) TableName() string { return "interaction_adjustments" }

// RunStatus tracks pipeline run lifecycle.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineRun versions all derived output so downstream consumers can pin to
// a specific run instead of "latest".
type PipelineRun struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	PlayersScored  int     `json:"players_scored"`
	TrainingSize   int     `json:"training_size"`
	ClusterCount   int     `json:"cluster_count"`
	RatingCount    int     `json:"rating_count"`
	DVPCorrelation float64 `json:"dvp_dva_correlation"`

	Error string `json:"error,omitempty"`
}

func (PipelineRun) TableName() string { return "pipeline_runs" }
