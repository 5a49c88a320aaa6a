package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/glavarch/gpzu/internal/errors"
	"github.com/glavarch/gpzu/internal/models"
	"github.com/glavarch/gpzu/internal/repository"
	"github.com/glavarch/gpzu/internal/services"
)

// ListOutcomesRequest holds the shared query parameters of the outcome
// journals. Registration numbers restart every year, so listings are
// always scoped to one year.
type ListOutcomesRequest struct {
	Year   int    `form:"year" binding:"required,gte=2000,lte=2100"`
	Search string `form:"search"`
	Skip   int    `form:"skip" binding:"omitempty,gte=0"`
	Limit  int    `form:"limit" binding:"omitempty,gte=1,lte=500"`
}

// UpdateOutcomeRequest is the shared part of outcome patch bodies. The
// override flag acknowledges a relink conflict warning.
type UpdateOutcomeRequest struct {
	ApplicationID *int64  `json:"application_id"`
	OutNumber     *int    `json:"out_number" binding:"omitempty,gte=1"`
	OutDate       *string `json:"out_date"`
	OutYear       *int    `json:"out_year" binding:"omitempty,gte=2000,lte=2100"`
	Attachment    *string `json:"attachment"`
	Override      bool    `json:"override"`
}

func bindListOutcomes(c *gin.Context) (ListOutcomesRequest, bool) {
	req := ListOutcomesRequest{Limit: DefaultPageSize}
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

func outcomeFilter(req ListOutcomesRequest) repository.OutcomeFilter {
	year := req.Year
	return repository.OutcomeFilter{
		Year:   &year,
		Search: req.Search,
		Skip:   req.Skip,
		Limit:  req.Limit,
	}
}

// PlanHandler handles the issued plan journal endpoints.
type PlanHandler struct {
	service services.PlanService
}

// NewPlanHandler creates a new PlanHandler instance.
func NewPlanHandler(service services.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

// List handles GET /api/v1/plans endpoint.
func (h *PlanHandler) List(c *gin.Context) {
	req, ok := bindListOutcomes(c)
	if !ok {
		return
	}

	items, total, err := h.service.List(c.Request.Context(), outcomeFilter(req))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to list plans", err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: items, Total: total, Skip: req.Skip, Limit: req.Limit})
}

// Get handles GET /api/v1/plans/:id endpoint.
func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	plan, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondJournalError(c, err, "plan")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdatePlanRequest is the patch body for a plan.
type UpdatePlanRequest struct {
	UpdateOutcomeRequest
	XMLData *string `json:"xml_data"`
}

// Update handles PATCH /api/v1/plans/:id endpoint.
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	plan, err := h.service.Update(c.Request.Context(), id, repository.PlanPatch{
		ApplicationID: req.ApplicationID,
		OutNumber:     req.OutNumber,
		OutDate:       req.OutDate,
		OutYear:       req.OutYear,
		XMLData:       req.XMLData,
		Attachment:    req.Attachment,
	}, req.Override)
	if err != nil {
		respondJournalError(c, err, "plan")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Delete handles DELETE /api/v1/plans/:id endpoint.
func (h *PlanHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondJournalError(c, err, "plan")
		return
	}
	c.Status(http.StatusNoContent)
}

// Export handles GET /api/v1/plans/export endpoint.
func (h *PlanHandler) Export(c *gin.Context) {
	req, ok := bindListOutcomes(c)
	if !ok {
		return
	}

	data, err := h.service.ExportCSV(c.Request.Context(), outcomeFilter(req))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to export plans", err)
		return
	}
	serveCSV(c, "plans.csv", data)
}

// RefusalHandler handles the refusal journal endpoints.
type RefusalHandler struct {
	service services.RefusalService
}

// NewRefusalHandler creates a new RefusalHandler instance.
func NewRefusalHandler(service services.RefusalService) *RefusalHandler {
	return &RefusalHandler{service: service}
}

// List handles GET /api/v1/refusals endpoint.
func (h *RefusalHandler) List(c *gin.Context) {
	req, ok := bindListOutcomes(c)
	if !ok {
		return
	}

	items, total, err := h.service.List(c.Request.Context(), outcomeFilter(req))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to list refusals", err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: items, Total: total, Skip: req.Skip, Limit: req.Limit})
}

// Get handles GET /api/v1/refusals/:id endpoint.
func (h *RefusalHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ref, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondJournalError(c, err, "refusal")
		return
	}
	c.JSON(http.StatusOK, ref)
}

// UpdateRefusalRequest is the patch body for a refusal.
type UpdateRefusalRequest struct {
	UpdateOutcomeRequest
	ReasonCode *string `json:"reason_code" binding:"omitempty,oneof=NO_RIGHTS NO_BORDERS NOT_IN_CITY OBJECT_NOT_EXISTS HAS_ACTIVE_GP"`
	ReasonText *string `json:"reason_text"`
}

// Update handles PATCH /api/v1/refusals/:id endpoint.
func (h *RefusalHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateRefusalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	patch := repository.RefusalPatch{
		ApplicationID: req.ApplicationID,
		OutNumber:     req.OutNumber,
		OutDate:       req.OutDate,
		OutYear:       req.OutYear,
		ReasonText:    req.ReasonText,
		Attachment:    req.Attachment,
	}
	if req.ReasonCode != nil {
		code := models.RefusalReason(*req.ReasonCode)
		patch.ReasonCode = &code
	}

	ref, err := h.service.Update(c.Request.Context(), id, patch, req.Override)
	if err != nil {
		respondJournalError(c, err, "refusal")
		return
	}
	c.JSON(http.StatusOK, ref)
}

// Delete handles DELETE /api/v1/refusals/:id endpoint.
func (h *RefusalHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondJournalError(c, err, "refusal")
		return
	}
	c.Status(http.StatusNoContent)
}

// Export handles GET /api/v1/refusals/export endpoint.
func (h *RefusalHandler) Export(c *gin.Context) {
	req, ok := bindListOutcomes(c)
	if !ok {
		return
	}

	data, err := h.service.ExportCSV(c.Request.Context(), outcomeFilter(req))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to export refusals", err)
		return
	}
	serveCSV(c, "refusals.csv", data)
}

// TuRequestHandler handles the TU request journal endpoints.
type TuRequestHandler struct {
	service services.TuRequestService
}

// NewTuRequestHandler creates a new TuRequestHandler instance.
func NewTuRequestHandler(service services.TuRequestService) *TuRequestHandler {
	return &TuRequestHandler{service: service}
}

// List handles GET /api/v1/tu-requests endpoint.
func (h *TuRequestHandler) List(c *gin.Context) {
	req, ok := bindListOutcomes(c)
	if !ok {
		return
	}

	items, total, err := h.service.List(c.Request.Context(), outcomeFilter(req))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to list TU requests", err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: items, Total: total, Skip: req.Skip, Limit: req.Limit})
}

// Get handles GET /api/v1/tu-requests/:id endpoint.
func (h *TuRequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tu, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondJournalError(c, err, "TU request")
		return
	}
	c.JSON(http.StatusOK, tu)
}

// UpdateTuRequest is the patch body for a TU request.
type UpdateTuRequest struct {
	UpdateOutcomeRequest
	RSOType *string `json:"rso_type" binding:"omitempty,oneof=vodokanal gaz teplo"`
	RSOName *string `json:"rso_name"`
}

// Update handles PATCH /api/v1/tu-requests/:id endpoint.
func (h *TuRequestHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateTuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	patch := repository.TuRequestPatch{
		ApplicationID: req.ApplicationID,
		OutNumber:     req.OutNumber,
		OutDate:       req.OutDate,
		OutYear:       req.OutYear,
		RSOName:       req.RSOName,
		Attachment:    req.Attachment,
	}
	if req.RSOType != nil {
		rso := models.RSOType(*req.RSOType)
		patch.RSOType = &rso
	}

	tu, err := h.service.Update(c.Request.Context(), id, patch, req.Override)
	if err != nil {
		respondJournalError(c, err, "TU request")
		return
	}
	c.JSON(http.StatusOK, tu)
}

// Delete handles DELETE /api/v1/tu-requests/:id endpoint.
func (h *TuRequestHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondJournalError(c, err, "TU request")
		return
	}
	c.Status(http.StatusNoContent)
}

// Export handles GET /api/v1/tu-requests/export endpoint.
func (h *TuRequestHandler) Export(c *gin.Context) {
	req, ok := bindListOutcomes(c)
	if !ok {
		return
	}

	data, err := h.service.ExportCSV(c.Request.Context(), outcomeFilter(req))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to export TU requests", err)
		return
	}
	serveCSV(c, "tu-requests.csv", data)
}
