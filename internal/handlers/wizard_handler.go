package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/glavarch/gpzu/internal/errors"
	"github.com/glavarch/gpzu/internal/remote"
	"github.com/glavarch/gpzu/internal/services"
	"github.com/glavarch/gpzu/internal/wizard"
)

// MaxUploadBytes bounds a single uploaded document.
const MaxUploadBytes = 20 << 20

// WizardHandler handles the wizard session endpoints.
type WizardHandler struct {
	service services.WizardService
}

// NewWizardHandler creates a new WizardHandler instance.
func NewWizardHandler(service services.WizardService) *WizardHandler {
	return &WizardHandler{service: service}
}

// SessionResponse is the wizard session envelope.
type SessionResponse struct {
	ID    string      `json:"id"`
	State wizard.View `json:"state"`
}

// CreateSessionRequest selects which wizard to start.
type CreateSessionRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// Create handles POST /api/v1/wizards endpoint.
func (h *WizardHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, `Request body must carry a wizard "kind"`, nil)
		return
	}

	session, err := h.service.CreateSession(req.Kind)
	if err != nil {
		if errors.Is(err, services.ErrUnknownWizard) {
			apierrors.NotFound(c, err.Error())
			return
		}
		apierrors.InternalServerError(c, "Failed to create wizard session", err)
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{
		ID:    session.ID.String(),
		State: session.Machine.View(),
	})
}

// Get handles GET /api/v1/wizards/:id endpoint.
func (h *WizardHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		ID:    session.ID.String(),
		State: session.Machine.View(),
	})
}

// SubmitStep handles POST /api/v1/wizards/:id/steps/:step endpoint.
// File steps take multipart form data with a "file" part; selection steps
// take a JSON body of fields.
func (h *WizardHandler) SubmitStep(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	_, err := h.service.Submit(c.Request.Context(), id, c.Param("step"), input)
	if err != nil {
		respondWizardError(c, err)
		return
	}

	h.respondState(c, id)
}

// Confirm handles POST /api/v1/wizards/:id/confirm endpoint.
func (h *WizardHandler) Confirm(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.service.Confirm(id); err != nil {
		respondWizardError(c, err)
		return
	}
	h.respondState(c, id)
}

// Back handles POST /api/v1/wizards/:id/back endpoint.
func (h *WizardHandler) Back(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.service.Back(id); err != nil {
		respondWizardError(c, err)
		return
	}
	h.respondState(c, id)
}

// Reset handles POST /api/v1/wizards/:id/reset endpoint.
func (h *WizardHandler) Reset(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.service.Reset(id); err != nil {
		respondWizardError(c, err)
		return
	}
	h.respondState(c, id)
}

// CommitRequest is the body of the commit endpoint.
type CommitRequest struct {
	// Override acknowledges a previously returned conflict warning.
	Override bool `json:"override"`
}

// Commit handles POST /api/v1/wizards/:id/commit endpoint. On success the
// generated document is streamed back; the registration identity travels
// in headers so the body stays a plain attachment.
func (h *WizardHandler) Commit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req CommitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body", nil)
			return
		}
	}

	result, err := h.service.Commit(c.Request.Context(), id, req.Override)
	if err != nil {
		respondWizardError(c, err)
		return
	}

	if result.OutNumber > 0 {
		c.Header("X-Out-Number", strconv.Itoa(result.OutNumber))
		c.Header("X-Out-Year", strconv.Itoa(result.OutYear))
	}

	if result.Artifact == nil {
		h.respondState(c, id)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Artifact.Filename+`"`)
	c.Data(http.StatusOK, "application/octet-stream", result.Artifact.Bytes)
}

func (h *WizardHandler) session(c *gin.Context) (*wizard.Session, bool) {
	id, ok := sessionID(c)
	if !ok {
		return nil, false
	}

	session, err := h.service.GetSession(id)
	if err != nil {
		apierrors.NotFound(c, "No wizard session with this id")
		return nil, false
	}
	return session, true
}

func (h *WizardHandler) respondState(c *gin.Context, id uuid.UUID) {
	session, err := h.service.GetSession(id)
	if err != nil {
		apierrors.NotFound(c, "No wizard session with this id")
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		ID:    session.ID.String(),
		State: session.Machine.View(),
	})
}

// bindInput reads a step submission: an uploaded file from a multipart
// form, or a JSON object of selection fields.
func (h *WizardHandler) bindInput(c *gin.Context) (wizard.Input, bool) {
	var input wizard.Input

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			apierrors.BadRequest(c, `Multipart form must carry a "file" part`, nil)
			return input, false
		}
		if fileHeader.Size > MaxUploadBytes {
			apierrors.BadRequest(c, "Uploaded file is too large", nil)
			return input, false
		}

		f, err := fileHeader.Open()
		if err != nil {
			apierrors.InternalServerError(c, "Failed to read uploaded file", err)
			return input, false
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			apierrors.InternalServerError(c, "Failed to read uploaded file", err)
			return input, false
		}

		input.Filename = fileHeader.Filename
		input.File = data
		input.Fields = make(map[string]interface{})
		if form, err := c.MultipartForm(); err == nil {
			for key, values := range form.Value {
				if len(values) > 0 {
					input.Fields[key] = values[0]
				}
			}
		}
		return input, true
	}

	fields := make(map[string]interface{})
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&fields); err != nil {
			apierrors.BadRequest(c, "Invalid request body", nil)
			return input, false
		}
	}
	input.Fields = fields
	return input, true
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid session id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// respondWizardError maps wizard and remote-step errors onto the API
// error envelope.
func respondWizardError(c *gin.Context, err error) {
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &conflict):
		apierrors.Conflict(c, conflict.Warning.Message, map[string]interface{}{
			"code":        conflict.Warning.Code,
			"overridable": true,
		})
	case errors.Is(err, services.ErrSessionNotFound):
		apierrors.NotFound(c, "No wizard session with this id")
	case errors.Is(err, wizard.ErrUnknownStep):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, wizard.ErrNotCurrentStep),
		errors.Is(err, wizard.ErrStepRunning),
		errors.Is(err, wizard.ErrStepCompleted),
		errors.Is(err, wizard.ErrCommitted),
		errors.Is(err, wizard.ErrAtFirstStep),
		errors.Is(err, wizard.ErrNoConfirmation),
		errors.Is(err, wizard.ErrStaleRun):
		apierrors.Conflict(c, err.Error(), nil)
	case errors.Is(err, remote.ErrValidation):
		apierrors.BadRequest(c, remote.Message(err), nil)
	case errors.Is(err, remote.ErrRejected):
		apierrors.RemoteRejected(c, remote.Message(err))
	case errors.Is(err, remote.ErrUnavailable):
		apierrors.RemoteUnavailable(c, err)
	default:
		apierrors.InternalServerError(c, "Wizard step failed", err)
	}
}
