package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Repository Health Monitor API
// @version 1.0
// @description API for computing community and repository health metrics
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// SetupRouter configures the API routes
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", h.Health)

	// API v1 group
	v1 := r.Group("/api/v1")
	{
		metrics := v1.Group("/metrics")
		{
			// @Summary Compute the full metric report
			// @Description Computes every health metric for the given repositories
			// @Tags metrics
			// @Accept json
			// @Produce json
			// @Param repo query []string true "Repository URL (repeatable)"
			// @Param date query string false "As-of date (YYYY-MM-DD, default today)" example("2024-06-30")
			// @Param level query string false "Aggregation level" Enums(repo, project, community) default(repo)
			// @Success 200 {object} map[string]interface{}
			// @Failure 400 {object} ErrorResponse
			// @Failure 502 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /metrics [get]
			metrics.GET("", h.GetMetrics)

			// @Summary Compute a single metric
			// @Description Computes one metric selected by its report key
			// @Tags metrics
			// @Accept json
			// @Produce json
			// @Param name path string true "Metric report key" example("commit_frequency")
			// @Param repo query []string true "Repository URL (repeatable)"
			// @Param date query string false "As-of date (YYYY-MM-DD, default today)"
			// @Param level query string false "Aggregation level" Enums(repo, project, community) default(repo)
			// @Success 200 {object} map[string]interface{}
			// @Failure 400 {object} ErrorResponse
			// @Failure 502 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /metrics/{name} [get]
			metrics.GET("/:name", h.GetMetric)
		}

		snapshots := v1.Group("/snapshots")
		{
			// @Summary Compute and persist a metric snapshot
			// @Description Computes the full report and stores it under a label
			// @Tags snapshots
			// @Accept json
			// @Produce json
			// @Param request body SnapshotRequest true "Snapshot request"
			// @Success 201 {object} models.MetricSnapshot
			// @Failure 400 {object} ErrorResponse
			// @Failure 503 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /snapshots [post]
			snapshots.POST("", h.CreateSnapshot)

			// @Summary List metric snapshots
			// @Description Lists persisted snapshots for a label, newest first
			// @Tags snapshots
			// @Accept json
			// @Produce json
			// @Param label query string true "Snapshot label"
			// @Param limit query int false "Number of snapshots to return" default(20)
			// @Success 200 {array} models.MetricSnapshot
			// @Failure 400 {object} ErrorResponse
			// @Failure 503 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /snapshots [get]
			snapshots.GET("", h.ListSnapshots)

			// @Summary Fetch the latest metric snapshot
			// @Description Returns the newest persisted snapshot for a label
			// @Tags snapshots
			// @Accept json
			// @Produce json
			// @Param label query string true "Snapshot label"
			// @Success 200 {object} models.MetricSnapshot
			// @Failure 400 {object} ErrorResponse
			// @Failure 404 {object} ErrorResponse
			// @Failure 503 {object} ErrorResponse
			// @Router /snapshots/latest [get]
			snapshots.GET("/latest", h.GetLatestSnapshot)
		}
	}

	return r
}
