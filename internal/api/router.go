// Package api exposes the read-only HTTP surface over pipeline outputs plus
// the slate computation and manual trigger endpoints.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/court-iq/internal/api/handlers"
	"github.com/stitts-dev/court-iq/internal/pipeline"
	"github.com/stitts-dev/court-iq/internal/store"
)

// SetupRoutes configures all API routes on the given router group.
func SetupRoutes(group *gin.RouterGroup, st *store.Store, runner *pipeline.Runner) {
	runHandler := handlers.NewRunHandler(st)
	slateHandler := handlers.NewSlateHandler(runner)

	group.GET("/runs/latest", runHandler.GetLatestRun)
	group.GET("/runs/:id", runHandler.GetRun)
	group.GET("/runs/:id/archetypes", runHandler.GetArchetypes)
	group.GET("/runs/:id/ratings", runHandler.GetRatings)
	group.GET("/runs/:id/adjustments", runHandler.GetAdjustments)

	group.POST("/slate", slateHandler.ComputeSlate)
	group.POST("/runs", slateHandler.TriggerRun)
}
