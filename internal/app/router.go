package app

import (
	"studyplanner_backend/docs"

	"studyplanner_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		// Model lifecycle
		api.POST("/train", c.schedule.Train)
		api.POST("/reload_model", c.schedule.ReloadModel)
		api.POST("/predict", c.schedule.Predict)
		api.GET("/model/metrics", c.schedule.Metrics)

		// Dataset engineering
		api.POST("/dataset/build", c.dataset.Build)

		// Canvas passthrough
		api.GET("/courses", c.course.Courses)
		api.GET("/assignments", c.course.Assignments)
		api.GET("/assignments/raw", c.course.AssignmentsRaw)
		api.GET("/assignment/:assignment_id", c.course.Assignment)
		api.GET("/assignment/:assignment_id/subs", c.course.Submissions)
		api.GET("/course/:course_id/files", c.course.Files)
		api.POST("/parse_custom", c.course.ParseCustom)
		api.POST("/download_file", c.course.DownloadFile)
	}
}
