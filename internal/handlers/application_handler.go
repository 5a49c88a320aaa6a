package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/glavarch/gpzu/internal/errors"
	"github.com/glavarch/gpzu/internal/models"
	"github.com/glavarch/gpzu/internal/repository"
	"github.com/glavarch/gpzu/internal/services"
)

// DefaultPageSize bounds journal listings when the client does not ask
// for an explicit limit.
const DefaultPageSize = 50

// ApplicationHandler handles the application journal endpoints.
type ApplicationHandler struct {
	service services.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler instance.
func NewApplicationHandler(service services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// CreateApplicationRequest is the body for creating an application by hand.
type CreateApplicationRequest struct {
	Number       string   `json:"number" binding:"required"`
	Date         string   `json:"date" binding:"required"`
	Applicant    string   `json:"applicant" binding:"required"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email" binding:"omitempty,email"`
	Cadnum       string   `json:"cadnum" binding:"required"`
	Address      string   `json:"address"`
	Area         *float64 `json:"area" binding:"omitempty,gte=0"`
	PermittedUse *string  `json:"permitted_use"`
	Status       string   `json:"status" binding:"omitempty,oneof=new in_progress gp_issued refused"`
}

// UpdateApplicationRequest is the body for a partial update.
type UpdateApplicationRequest struct {
	Date         *string  `json:"date"`
	Applicant    *string  `json:"applicant"`
	Phone        *string  `json:"phone"`
	Email        *string  `json:"email" binding:"omitempty,email"`
	Address      *string  `json:"address"`
	Area         *float64 `json:"area" binding:"omitempty,gte=0"`
	PermittedUse *string  `json:"permitted_use"`
	Status       *string  `json:"status" binding:"omitempty,oneof=new in_progress gp_issued refused"`
}

// ListApplicationsRequest holds the listing query parameters.
type ListApplicationsRequest struct {
	Cadnum string `form:"cadnum"`
	Status string `form:"status" binding:"omitempty,oneof=new in_progress gp_issued refused"`
	Search string `form:"search"`
	Skip   int    `form:"skip" binding:"omitempty,gte=0"`
	Limit  int    `form:"limit" binding:"omitempty,gte=1,lte=500"`
}

// ListResponse is the paged journal envelope.
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
}

// Create handles POST /api/v1/applications endpoint.
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	app, err := h.service.Create(c.Request.Context(), &models.Application{
		Number:       req.Number,
		Date:         req.Date,
		Applicant:    req.Applicant,
		Phone:        req.Phone,
		Email:        req.Email,
		Cadnum:       req.Cadnum,
		Address:      req.Address,
		Area:         req.Area,
		PermittedUse: req.PermittedUse,
		Status:       models.ApplicationStatus(req.Status),
	})
	if err != nil {
		respondJournalError(c, err, "application")
		return
	}

	c.JSON(http.StatusCreated, app)
}

// List handles GET /api/v1/applications endpoint.
func (h *ApplicationHandler) List(c *gin.Context) {
	req, ok := bindListApplications(c)
	if !ok {
		return
	}

	items, total, err := h.service.List(c.Request.Context(), applicationFilter(req))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to list applications", err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Items: items,
		Total: total,
		Skip:  req.Skip,
		Limit: req.Limit,
	})
}

// Get handles GET /api/v1/applications/:id endpoint.
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	app, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondJournalError(c, err, "application")
		return
	}

	c.JSON(http.StatusOK, app)
}

// Update handles PATCH /api/v1/applications/:id endpoint.
func (h *ApplicationHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	patch := repository.ApplicationPatch{
		Date:         req.Date,
		Applicant:    req.Applicant,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		Area:         req.Area,
		PermittedUse: req.PermittedUse,
	}
	if req.Status != nil {
		status := models.ApplicationStatus(*req.Status)
		patch.Status = &status
	}

	app, err := h.service.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondJournalError(c, err, "application")
		return
	}

	c.JSON(http.StatusOK, app)
}

// Delete handles DELETE /api/v1/applications/:id endpoint. Outcome rows
// referencing the application are removed by the cascade.
func (h *ApplicationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondJournalError(c, err, "application")
		return
	}

	c.Status(http.StatusNoContent)
}

// Export handles GET /api/v1/applications/export endpoint.
func (h *ApplicationHandler) Export(c *gin.Context) {
	req, ok := bindListApplications(c)
	if !ok {
		return
	}

	data, err := h.service.ExportCSV(c.Request.Context(), applicationFilter(req))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to export applications", err)
		return
	}

	serveCSV(c, "applications.csv", data)
}

func bindListApplications(c *gin.Context) (ListApplicationsRequest, bool) {
	req := ListApplicationsRequest{Limit: DefaultPageSize}
	if err := c.ShouldBindQuery(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return req, false
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return req, false
	}
	return req, true
}

func applicationFilter(req ListApplicationsRequest) repository.ApplicationFilter {
	return repository.ApplicationFilter{
		Cadnum: req.Cadnum,
		Status: models.ApplicationStatus(req.Status),
		Search: req.Search,
		Skip:   req.Skip,
		Limit:  req.Limit,
	}
}

// pathID parses the numeric :id path parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		apierrors.BadRequest(c, "Invalid id", nil)
		return 0, false
	}
	return id, true
}

// serveCSV streams a CSV attachment. Content-Disposition is exposed via
// CORS configuration so browser clients can read the filename.
func serveCSV(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// respondJournalError maps service-level journal errors onto the API
// error envelope.
func respondJournalError(c *gin.Context, err error, entity string) {
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &conflict):
		apierrors.Conflict(c, conflict.Warning.Message, map[string]interface{}{
			"code":        conflict.Warning.Code,
			"overridable": true,
		})
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, "No "+entity+" with this id")
	case errors.Is(err, services.ErrDuplicate):
		apierrors.Conflict(c, err.Error(), nil)
	case errors.Is(err, services.ErrInvalid):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, "Failed to process "+entity, err)
	}
}
