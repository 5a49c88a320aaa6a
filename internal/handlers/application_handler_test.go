package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/glavarch/gpzu/internal/errors"
	"github.com/glavarch/gpzu/internal/logger"
	"github.com/glavarch/gpzu/internal/middleware"
	"github.com/glavarch/gpzu/internal/models"
	"github.com/glavarch/gpzu/internal/repository"
	"github.com/glavarch/gpzu/internal/services"
)

// MockApplicationService is a mock implementation of services.ApplicationService.
type MockApplicationService struct {
	mock.Mock
}

func (m *MockApplicationService) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	args := m.Called(ctx, app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationService) Get(ctx context.Context, id int64) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationService) List(ctx context.Context, filter repository.ApplicationFilter) ([]models.Application, int, error) {
	args := m.Called(ctx, filter)
	var items []models.Application
	if args.Get(0) != nil {
		items = args.Get(0).([]models.Application)
	}
	return items, args.Int(1), args.Error(2)
}

func (m *MockApplicationService) Update(ctx context.Context, id int64, patch repository.ApplicationPatch) (*models.Application, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockApplicationService) ExportCSV(ctx context.Context, filter repository.ApplicationFilter) ([]byte, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// setupApplicationRouter creates a test router with the journal routes.
func setupApplicationRouter(service services.ApplicationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.New("test")))

	handler := NewApplicationHandler(service)
	v1 := router.Group("/api/v1")
	{
		apps := v1.Group("/applications")
		{
			apps.POST("", handler.Create)
			apps.GET("", handler.List)
			apps.GET("/export", handler.Export)
			apps.GET("/:id", handler.Get)
			apps.PATCH("/:id", handler.Update)
			apps.DELETE("/:id", handler.Delete)
		}
	}
	return router
}

func TestCreateApplication_MissingFields(t *testing.T) {
	service := new(MockApplicationService)
	router := setupApplicationRouter(service)

	body := bytes.NewBufferString(`{"number": "123-45"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apierrors.ErrValidation, resp.Error.Code)
	service.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateApplication_DuplicateNumber(t *testing.T) {
	service := new(MockApplicationService)
	router := setupApplicationRouter(service)

	service.On("Create", mock.Anything, mock.Anything).Return(nil, services.ErrDuplicate)

	body := bytes.NewBufferString(`{
		"number": "123-45", "date": "2026-01-10",
		"applicant": "Ivanov I. I.", "cadnum": "54:35:000000:7"
	}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apierrors.ErrConflict, resp.Error.Code)
}

func TestGetApplication_NotFound(t *testing.T) {
	service := new(MockApplicationService)
	router := setupApplicationRouter(service)

	service.On("Get", mock.Anything, int64(404)).Return(nil, services.ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/404", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetApplication_InvalidID(t *testing.T) {
	service := new(MockApplicationService)
	router := setupApplicationRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestListApplications_DefaultsAndFilters(t *testing.T) {
	service := new(MockApplicationService)
	router := setupApplicationRouter(service)

	service.On("List", mock.Anything, repository.ApplicationFilter{
		Status: models.StatusInProgress,
		Search: "Ivanov",
		Limit:  DefaultPageSize,
	}).Return([]models.Application{{ID: 1, Number: "123-45"}}, 1, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications?status=in_progress&search=Ivanov", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	service.AssertExpectations(t)
}

func TestListApplications_InvalidStatus(t *testing.T) {
	service := new(MockApplicationService)
	router := setupApplicationRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications?status=archived", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestDeleteApplication(t *testing.T) {
	service := new(MockApplicationService)
	router := setupApplicationRouter(service)

	service.On("Delete", mock.Anything, int64(5)).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/applications/5", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	service.AssertExpectations(t)
}

func TestExportApplications_Headers(t *testing.T) {
	service := new(MockApplicationService)
	router := setupApplicationRouter(service)

	service.On("ExportCSV", mock.Anything, mock.Anything).Return([]byte("id,number\n1,123-45\n"), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/export", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "applications.csv")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "123-45")
}
