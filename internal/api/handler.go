package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oss-insight/repo-health-monitor/internal/db"
	apperrors "github.com/oss-insight/repo-health-monitor/internal/errors"
	"github.com/oss-insight/repo-health-monitor/internal/models"
	"github.com/oss-insight/repo-health-monitor/internal/search"
	"github.com/oss-insight/repo-health-monitor/pkg/utils"
)

// MetricsService defines the metric computation interface the API consumes
type MetricsService interface {
	Report(ctx context.Context, asOf time.Time, repos []string, level models.Level) (models.MetricResult, error)
	Metric(ctx context.Context, name string, asOf time.Time, repos []string, level models.Level) (models.MetricResult, error)
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error string `json:"error"`
}

// SnapshotRequest is the body of a snapshot creation request
type SnapshotRequest struct {
	Label    string   `json:"label" binding:"required"`
	RepoList []string `json:"repo_list" binding:"required"`
	Date     string   `json:"date"`
	Level    string   `json:"level"`
}

type Handler struct {
	metrics MetricsService
	store   db.Store
	logger  *logrus.Logger
}

// NewHandler creates an API handler. store may be nil when snapshot
// persistence is not configured.
func NewHandler(metrics MetricsService, store db.Store, logger *logrus.Logger) *Handler {
	return &Handler{
		metrics: metrics,
		store:   store,
		logger:  logger,
	}
}

func (h *Handler) GetMetrics(c *gin.Context) {
	repos, asOf, level, ok := h.metricParams(c)
	if !ok {
		return
	}

	report, err := h.metrics.Report(c.Request.Context(), asOf, repos, level)
	if err != nil {
		h.respondWithComputeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetMetric(c *gin.Context) {
	repos, asOf, level, ok := h.metricParams(c)
	if !ok {
		return
	}

	result, err := h.metrics.Metric(c.Request.Context(), c.Param("name"), asOf, repos, level)
	if err != nil {
		h.respondWithComputeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) CreateSnapshot(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "snapshot persistence is not configured"})
		return
	}

	var req SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	repos, ok := h.validRepos(c, req.RepoList)
	if !ok {
		return
	}
	asOf, ok := h.parseDate(c, req.Date)
	if !ok {
		return
	}
	level, ok := h.parseLevel(c, req.Level)
	if !ok {
		return
	}

	report, err := h.metrics.Report(c.Request.Context(), asOf, repos, level)
	if err != nil {
		h.respondWithComputeError(c, err)
		return
	}

	snapshot := &models.MetricSnapshot{
		Label:    req.Label,
		Level:    level,
		RepoList: repos,
		AsOfDate: asOf,
		Report:   report,
	}
	if err := h.store.SaveSnapshot(c.Request.Context(), snapshot); err != nil {
		h.logger.Errorf("Failed to save snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save snapshot"})
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}

func (h *Handler) ListSnapshots(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "snapshot persistence is not configured"})
		return
	}

	label := c.Query("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "label parameter is required"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit parameter"})
			return
		}
		limit = parsed
	}

	snapshots, err := h.store.ListSnapshots(c.Request.Context(), label, limit)
	if err != nil {
		h.logger.Errorf("Failed to list snapshots: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list snapshots"})
		return
	}

	c.JSON(http.StatusOK, snapshots)
}

func (h *Handler) GetLatestSnapshot(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "snapshot persistence is not configured"})
		return
	}

	label := c.Query("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "label parameter is required"})
		return
	}

	snapshot, err := h.store.GetLatestSnapshot(c.Request.Context(), label)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Errorf("Failed to fetch latest snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch latest snapshot"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// metricParams reads and validates the shared metric query parameters.
func (h *Handler) metricParams(c *gin.Context) ([]string, time.Time, models.Level, bool) {
	repos, ok := h.validRepos(c, c.QueryArray("repo"))
	if !ok {
		return nil, time.Time{}, "", false
	}
	asOf, ok := h.parseDate(c, c.Query("date"))
	if !ok {
		return nil, time.Time{}, "", false
	}
	level, ok := h.parseLevel(c, c.Query("level"))
	if !ok {
		return nil, time.Time{}, "", false
	}
	return repos, asOf, level, true
}

func (h *Handler) validRepos(c *gin.Context, repos []string) ([]string, bool) {
	if len(repos) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "at least one repo parameter is required"})
		return nil, false
	}
	for _, repo := range repos {
		if !utils.IsValidRepoURL(repo) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid repository URL: " + repo})
			return nil, false
		}
	}
	return repos, true
}

func (h *Handler) parseDate(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Now().UTC(), true
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date parameter (use YYYY-MM-DD)"})
		return time.Time{}, false
	}
	return asOf, true
}

func (h *Handler) parseLevel(c *gin.Context, raw string) (models.Level, bool) {
	if raw == "" {
		return models.LevelRepo, true
	}
	level := models.Level(raw)
	if !level.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid level parameter (use repo, project or community)"})
		return "", false
	}
	return level, true
}

func (h *Handler) respondWithComputeError(c *gin.Context, err error) {
	switch {
	case apperrors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case search.IsProtocolError(err):
		h.logger.Errorf("Backend protocol error: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "search backend broke the pagination contract"})
	default:
		h.logger.Errorf("Failed to compute metrics: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to compute metrics"})
	}
}
