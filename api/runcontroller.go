package api

import (
	"context"
	"errors"
	"net/http"

	"weeklyreport/orchestrator"
	"weeklyreport/types"

	"github.com/gin-gonic/gin"
)

// RegisterRunRoutes registers the status and run trigger endpoints. Runs
// started here are bound to ctx, not to the request.
func RegisterRunRoutes(ctx context.Context, r *gin.Engine, runner *orchestrator.Runner) {
	r.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, runner.State().GetStatus())
	})

	r.POST("/api/run/:stage", func(c *gin.Context) {
		stage, ok := types.ParseStage(c.Param("stage"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "unknown stage " + c.Param("stage") + " (valid: fetch, summarize, render, all)",
			})
			return
		}

		if err := runner.Start(ctx, stage); err != nil {
			if errors.Is(err, orchestrator.ErrBusy) {
				c.JSON(http.StatusConflict, gin.H{
					"error": err.Error(),
					"state": runner.State().GetState(),
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status": "started",
			"stage":  stage,
		})
	})
}
