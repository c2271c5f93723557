package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stitts-dev/court-iq/internal/pipeline"
	"github.com/stitts-dev/court-iq/pkg/utils"
)

// SlateHandler computes interaction adjustments for a game slate against the
// current run's interaction engine.
type SlateHandler struct {
	runner *pipeline.Runner
}

func NewSlateHandler(runner *pipeline.Runner) *SlateHandler {
	return &SlateHandler{runner: runner}
}

type slateRequest struct {
	Games []pipeline.SlateGame `json:"games" binding:"required,min=1,dive"`
}

// ComputeSlate computes, persists, and returns adjustments for every player
// on both sides of each requested game.
func (h *SlateHandler) ComputeSlate(c *gin.Context) {
	var req slateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid slate request", err.Error())
		return
	}
	for _, g := range req.Games {
		if g.Home == "" || g.Away == "" || g.Date.IsZero() {
			utils.SendValidationError(c, "Invalid slate game", "each game needs home, away, and date")
			return
		}
	}

	if h.runner.CurrentRunID() == uuid.Nil {
		utils.SendConflict(c, "No completed pipeline run loaded yet")
		return
	}

	adjustments, err := h.runner.ComputeSlate(c.Request.Context(), req.Games)
	if err != nil {
		utils.SendInternalError(c, "Failed to compute slate adjustments")
		return
	}

	utils.SendSuccess(c, gin.H{
		"run_id":      h.runner.CurrentRunID(),
		"adjustments": adjustments,
	})
}

// TriggerRun starts a pipeline run outside the daily schedule. The run
// executes synchronously; clients should expect multi-second latency.
func (h *SlateHandler) TriggerRun(c *gin.Context) {
	run, err := h.runner.Run(c.Request.Context())
	if err != nil {
		utils.SendError(c, 500, utils.NewAppError(utils.ErrCodePipeline, "Pipeline run failed", err.Error()))
		return
	}
	utils.SendSuccess(c, run)
}
