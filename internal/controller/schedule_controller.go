package controller

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
	"studyplanner_backend/pkg/logger"
)

// ScheduleController exposes the training, reload, and prediction endpoints
// around the study-time model.
type ScheduleController struct {
	TrainingService   *service.TrainingService
	PredictionService *service.PredictionService
	Artifacts         *repository.ArtifactRepository
}

func NewScheduleController(training *service.TrainingService, prediction *service.PredictionService, artifacts *repository.ArtifactRepository) *ScheduleController {
	return &ScheduleController{
		TrainingService:   training,
		PredictionService: prediction,
		Artifacts:         artifacts,
	}
}

// Train godoc
// @Summary Train the study-time model
// @Description Runs the full training pipeline synchronously, persists the model artifact and metrics report, and reloads the prediction service
// @Tags schedule
// @Produce json
// @Success 200 {object} util.Response{data=map[string]interface{}} "Training report"
// @Failure 500 {object} util.Response "Training pipeline failed"
// @Router /api/train [post]
func (c *ScheduleController) Train(ctx *gin.Context) {
	report, err := c.TrainingService.Train()
	if err != nil {
		util.ErrorWithDetails(ctx, http.StatusInternalServerError, "Training pipeline failed", err.Error())
		return
	}

	if _, err := c.PredictionService.LoadModel(); err != nil {
		logger.Log.Warn("Reload after training failed", zap.Error(err))
	}

	util.Success(ctx, gin.H{
		"trained": true,
		"metrics": report,
	})
}

// ReloadModel godoc
// @Summary Reload the persisted model artifact
// @Description Replaces the in-memory model with the artifact currently on disk
// @Tags schedule
// @Produce json
// @Success 200 {object} util.Response{data=map[string]interface{}} "Path of the loaded artifact"
// @Failure 500 {object} util.Response "Artifact missing or unreadable"
// @Router /api/reload_model [post]
func (c *ScheduleController) ReloadModel(ctx *gin.Context) {
	path, err := c.PredictionService.LoadModel()
	if err != nil {
		util.Error(ctx, http.StatusInternalServerError, "Model file not found or failed to load")
		return
	}

	util.Success(ctx, gin.H{
		"reloaded":   true,
		"model_path": path,
	})
}

// Predict godoc
// @Summary Predict study hours for a batch of assignments
// @Description Scores loosely structured assignment records; field aliases are resolved per record and the whole batch fails on one malformed record
// @Tags schedule
// @Accept json
// @Produce json
// @Param request body model.PredictRequest true "Assignment records"
// @Success 200 {object} util.Response{data=map[string]interface{}} "One prediction per record, in input order"
// @Failure 400 {object} util.Response "Missing assignments field"
// @Failure 503 {object} util.Response "No model loaded"
// @Failure 500 {object} util.Response "Scoring failed"
// @Router /api/predict [post]
func (c *ScheduleController) Predict(ctx *gin.Context) {
	var req model.PredictRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Request JSON must contain 'assignments' field (list)")
		return
	}

	results, err := c.PredictionService.Predict(req.Assignments)
	if err != nil {
		if errors.Is(err, util.ErrModelNotReady) {
			util.ServiceUnavailable(ctx, "Schedule model not loaded. Train model first or call /api/reload_model.")
			return
		}
		util.ErrorWithDetails(ctx, http.StatusInternalServerError, "Model prediction failed", err.Error())
		return
	}

	util.Success(ctx, gin.H{
		"predictions": results,
	})
}

// Metrics godoc
// @Summary Latest training report
// @Description Returns the metrics and metadata persisted by the most recent training run
// @Tags schedule
// @Produce json
// @Success 200 {object} util.Response{data=map[string]interface{}} "Training report"
// @Failure 404 {object} util.Response "No training run recorded yet"
// @Failure 500 {object} util.Response "Report unreadable"
// @Router /api/model/metrics [get]
func (c *ScheduleController) Metrics(ctx *gin.Context) {
	report, err := c.Artifacts.LoadReport()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			util.NotFound(ctx, "No training report found. Train a model first.")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"metrics": report,
	})
}
