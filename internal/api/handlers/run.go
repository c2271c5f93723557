package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stitts-dev/court-iq/internal/store"
	"github.com/stitts-dev/court-iq/pkg/identity"
	"github.com/stitts-dev/court-iq/pkg/types"
	"github.com/stitts-dev/court-iq/pkg/utils"
)

// RunHandler serves the read-only view of pipeline run outputs.
type RunHandler struct {
	store *store.Store
}

func NewRunHandler(st *store.Store) *RunHandler {
	return &RunHandler{store: st}
}

// GetLatestRun returns the most recent completed run.
func (h *RunHandler) GetLatestRun(c *gin.Context) {
	run, err := h.store.LatestCompletedRun(c.Request.Context())
	if err != nil {
		if store.IsNotFound(err) {
			utils.SendNotFound(c, "No completed pipeline run yet")
			return
		}
		utils.SendInternalError(c, "Failed to fetch latest run")
		return
	}
	utils.SendSuccess(c, run)
}

// GetRun returns one run by id.
func (h *RunHandler) GetRun(c *gin.Context) {
	id, ok := h.runID(c)
	if !ok {
		return
	}
	run, err := h.store.GetRun(c.Request.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			utils.SendNotFound(c, "Run not found")
			return
		}
		utils.SendInternalError(c, "Failed to fetch run")
		return
	}
	utils.SendSuccess(c, run)
}

// GetArchetypes returns the archetype assignments of a run.
func (h *RunHandler) GetArchetypes(c *gin.Context) {
	id, ok := h.runID(c)
	if !ok {
		return
	}
	assignments, err := h.store.GetAssignments(c.Request.Context(), id)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch archetype assignments")
		return
	}
	utils.SendSuccess(c, assignments)
}

// GetRatings returns the matchup ratings of a run. The optional kind query
// parameter filters to position or archetype groups.
func (h *RunHandler) GetRatings(c *gin.Context) {
	id, ok := h.runID(c)
	if !ok {
		return
	}

	kind := types.RatingGroupKind(c.Query("kind"))
	if kind != "" && kind != types.GroupPosition && kind != types.GroupArchetype {
		utils.SendValidationError(c, "Invalid kind", "kind must be position or archetype")
		return
	}

	ratings, err := h.store.GetRatings(c.Request.Context(), id, kind)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch matchup ratings")
		return
	}
	utils.SendSuccess(c, ratings)
}

// GetAdjustments returns the interaction adjustments of a run, optionally
// filtered by opponent team and game date (YYYY-MM-DD).
func (h *RunHandler) GetAdjustments(c *gin.Context) {
	id, ok := h.runID(c)
	if !ok {
		return
	}

	team := c.Query("team")
	if team != "" {
		team = identity.Team(team)
	}

	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.SendValidationError(c, "Invalid date", "date must be YYYY-MM-DD")
			return
		}
		date = &parsed
	}

	adjustments, err := h.store.GetAdjustments(c.Request.Context(), id, team, date)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch interaction adjustments")
		return
	}
	utils.SendSuccess(c, adjustments)
}

func (h *RunHandler) runID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendValidationError(c, "Invalid run id", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
