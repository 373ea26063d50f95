package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/oss-insight/repo-health-monitor/internal/errors"
	"github.com/oss-insight/repo-health-monitor/internal/models"
	"github.com/oss-insight/repo-health-monitor/internal/search"
)

// MockMetricsService is a mock implementation of MetricsService
type MockMetricsService struct {
	mock.Mock
}

func (m *MockMetricsService) Report(ctx context.Context, asOf time.Time, repos []string, level models.Level) (models.MetricResult, error) {
	args := m.Called(ctx, asOf, repos, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.MetricResult), args.Error(1)
}

func (m *MockMetricsService) Metric(ctx context.Context, name string, asOf time.Time, repos []string, level models.Level) (models.MetricResult, error) {
	args := m.Called(ctx, name, asOf, repos, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.MetricResult), args.Error(1)
}

// MockStore is a mock implementation of db.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveSnapshot(ctx context.Context, snapshot *models.MetricSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockStore) ListSnapshots(ctx context.Context, label string, limit int) ([]*models.MetricSnapshot, error) {
	args := m.Called(ctx, label, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MetricSnapshot), args.Error(1)
}

func (m *MockStore) GetLatestSnapshot(ctx context.Context, label string) (*models.MetricSnapshot, error) {
	args := m.Called(ctx, label)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MetricSnapshot), args.Error(1)
}

func (m *MockStore) Migrate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func setupTestHandler() (*Handler, *MockMetricsService, *MockStore) {
	mockMetrics := new(MockMetricsService)
	mockStore := new(MockStore)
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil)) // Discard logs during tests

	handler := NewHandler(mockMetrics, mockStore, logger)

	return handler, mockMetrics, mockStore
}

func setupTestRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", handler.GetMetrics)
	router.GET("/metrics/:name", handler.GetMetric)
	router.POST("/snapshots", handler.CreateSnapshot)
	router.GET("/snapshots", handler.ListSnapshots)
	router.GET("/snapshots/latest", handler.GetLatestSnapshot)
	router.GET("/healthz", handler.Health)
	return router
}

func TestGetMetrics(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		mockResult     models.MetricResult
		mockError      error
		expectedStatus int
	}{
		{
			name:           "successful report",
			url:            "/metrics?repo=https://github.com/owner/repo&date=2024-06-30",
			mockResult:     models.MetricResult{"commit_count": 3},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing repo parameter",
			url:            "/metrics?date=2024-06-30",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid repo URL",
			url:            "/metrics?repo=not-a-repo",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid date",
			url:            "/metrics?repo=https://github.com/owner/repo&date=30-06-2024",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid level",
			url:            "/metrics?repo=https://github.com/owner/repo&level=galaxy",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "input error maps to 400",
			url:            "/metrics?repo=https://github.com/owner/repo",
			mockError:      apperrors.NewValidationError("bad input", nil),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "pagination protocol error maps to 502",
			url:            "/metrics?repo=https://github.com/owner/repo",
			mockError:      search.NewProtocolError("gitlog", 3, "non-empty page without sort cursor"),
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "backend failure maps to 500",
			url:            "/metrics?repo=https://github.com/owner/repo",
			mockError:      errors.New("backend unreachable"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockMetrics, _ := setupTestHandler()
			router := setupTestRouter(handler)

			if tt.mockResult != nil || tt.mockError != nil {
				mockMetrics.On("Report", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(tt.mockResult, tt.mockError)
			}

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", tt.url, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var response map[string]any
				err := json.Unmarshal(w.Body.Bytes(), &response)
				assert.NoError(t, err)
				assert.Contains(t, response, "commit_count")
			}
			mockMetrics.AssertExpectations(t)
		})
	}
}

func TestGetMetric(t *testing.T) {
	handler, mockMetrics, _ := setupTestHandler()
	router := setupTestRouter(handler)

	mockMetrics.On("Metric", mock.Anything, "commit_frequency", mock.Anything, []string{"https://github.com/owner/repo"}, models.LevelProject).
		Return(models.MetricResult{"commit_frequency": 1.5}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics/commit_frequency?repo=https://github.com/owner/repo&level=project", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 1.5, response["commit_frequency"])
	mockMetrics.AssertExpectations(t)
}

func TestCreateSnapshot(t *testing.T) {
	t.Run("successful snapshot", func(t *testing.T) {
		handler, mockMetrics, mockStore := setupTestHandler()
		router := setupTestRouter(handler)

		mockMetrics.On("Report", mock.Anything, mock.Anything, []string{"https://github.com/owner/repo"}, models.LevelRepo).
			Return(models.MetricResult{"commit_count": 3}, nil)
		mockStore.On("SaveSnapshot", mock.Anything, mock.Anything).Return(nil)

		body, _ := json.Marshal(SnapshotRequest{
			Label:    "weekly",
			RepoList: []string{"https://github.com/owner/repo"},
			Date:     "2024-06-30",
		})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/snapshots", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var snapshot models.MetricSnapshot
		err := json.Unmarshal(w.Body.Bytes(), &snapshot)
		assert.NoError(t, err)
		assert.Equal(t, "weekly", snapshot.Label)
		mockMetrics.AssertExpectations(t)
		mockStore.AssertExpectations(t)
	})

	t.Run("missing label fails validation", func(t *testing.T) {
		handler, _, _ := setupTestHandler()
		router := setupTestRouter(handler)

		body, _ := json.Marshal(SnapshotRequest{
			RepoList: []string{"https://github.com/owner/repo"},
		})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/snapshots", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no store configured", func(t *testing.T) {
		mockMetrics := new(MockMetricsService)
		logger := logrus.New()
		logger.SetOutput(bytes.NewBuffer(nil))
		handler := NewHandler(mockMetrics, nil, logger)
		router := setupTestRouter(handler)

		body, _ := json.Marshal(SnapshotRequest{
			Label:    "weekly",
			RepoList: []string{"https://github.com/owner/repo"},
		})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/snapshots", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestListSnapshots(t *testing.T) {
	t.Run("successful listing", func(t *testing.T) {
		handler, _, mockStore := setupTestHandler()
		router := setupTestRouter(handler)

		snapshots := []*models.MetricSnapshot{
			{ID: 2, Label: "weekly"},
			{ID: 1, Label: "weekly"},
		}
		mockStore.On("ListSnapshots", mock.Anything, "weekly", 20).Return(snapshots, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/snapshots?label=weekly", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response []*models.MetricSnapshot
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Len(t, response, 2)
		mockStore.AssertExpectations(t)
	})

	t.Run("missing label", func(t *testing.T) {
		handler, _, _ := setupTestHandler()
		router := setupTestRouter(handler)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/snapshots", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid limit", func(t *testing.T) {
		handler, _, _ := setupTestHandler()
		router := setupTestRouter(handler)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/snapshots?label=weekly&limit=zero", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetLatestSnapshot(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		handler, _, mockStore := setupTestHandler()
		router := setupTestRouter(handler)

		mockStore.On("GetLatestSnapshot", mock.Anything, "weekly").
			Return(&models.MetricSnapshot{ID: 7, Label: "weekly"}, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/snapshots/latest?label=weekly", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var snapshot models.MetricSnapshot
		err := json.Unmarshal(w.Body.Bytes(), &snapshot)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), snapshot.ID)
		mockStore.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		handler, _, mockStore := setupTestHandler()
		router := setupTestRouter(handler)

		mockStore.On("GetLatestSnapshot", mock.Anything, "nightly").
			Return(nil, apperrors.NewNotFoundError("no snapshot for label: nightly", nil))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/snapshots/latest?label=nightly", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockStore.AssertExpectations(t)
	})
}

func TestHealth(t *testing.T) {
	handler, _, _ := setupTestHandler()
	router := setupTestRouter(handler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
