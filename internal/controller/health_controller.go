package controller

import (
	"os"

	"github.com/gin-gonic/gin"

	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
)

type HealthController struct {
	PredictionService *service.PredictionService
	Artifacts         *repository.ArtifactRepository
}

func NewHealthController(prediction *service.PredictionService, artifacts *repository.ArtifactRepository) *HealthController {
	return &HealthController{PredictionService: prediction, Artifacts: artifacts}
}

// @Summary Health check
// @Description Reports service status and whether the model artifact and training report are available
// @Tags system
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	modelState := "not_loaded"
	if c.PredictionService.Ready() {
		modelState = "loaded"
	}

	reportState := "absent"
	if _, err := os.Stat(c.Artifacts.MetricsPath()); err == nil {
		reportState = "present"
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"model":           modelState,
			"training_report": reportState,
		},
	})
}
