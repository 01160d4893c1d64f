package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
)

// DatasetController exposes the feature engineering step over HTTP.
type DatasetController struct {
	FeatureService *service.FeatureService
}

func NewDatasetController(features *service.FeatureService) *DatasetController {
	return &DatasetController{FeatureService: features}
}

// Build godoc
// @Summary Build the engineered training dataset
// @Description Scans the raw data directory, joins submissions with assessment metadata and engagement totals, derives the study-time label, and writes the training CSV
// @Tags dataset
// @Produce json
// @Success 200 {object} util.Response{data=map[string]interface{}} "Row count and output path"
// @Failure 500 {object} util.Response "A required table or column is missing"
// @Router /api/dataset/build [post]
func (c *DatasetController) Build(ctx *gin.Context) {
	result, err := c.FeatureService.BuildDataset()
	if err != nil {
		util.ErrorWithDetails(ctx, http.StatusInternalServerError, "Dataset build failed", err.Error())
		return
	}

	util.Success(ctx, gin.H{
		"built":       true,
		"rows":        result.Rows,
		"output_path": result.OutputPath,
	})
}
