// internal/api/submissions.go
package api

import (
	"context"
	"net/http"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/common/validation"
	"opsdesk-engine/internal/engine/bus"
	"opsdesk-engine/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubmissionStore interface {
	Create(ctx context.Context, sub *models.FormSubmission) error
	List(ctx context.Context, workspaceID string) ([]models.FormSubmission, error)
	UpdateStatus(ctx context.Context, workspaceID, id string, status models.SubmissionStatus) error
}

type ContactStore interface {
	Create(ctx context.Context, contact *models.Contact) error
	FindByEmail(ctx context.Context, workspaceID, email string) (*models.Contact, error)
	List(ctx context.Context, workspaceID string) ([]models.Contact, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, evt bus.Event) error
}

type SubmissionHandler struct {
	templates   TemplateGetter
	contacts    ContactStore
	submissions SubmissionStore
	publisher   EventPublisher
	errs        *errors.ErrorHandler
	logger      logger.Logger
}

func NewSubmissionHandler(templates TemplateGetter, contacts ContactStore, submissions SubmissionStore, publisher EventPublisher, errs *errors.ErrorHandler, log logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		templates:   templates,
		contacts:    contacts,
		submissions: submissions,
		publisher:   publisher,
		errs:        errs,
		logger:      log,
	}
}

type submitContactRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type createSubmissionRequest struct {
	TemplateID string                 `json:"template_id" binding:"required"`
	Contact    submitContactRequest   `json:"contact" binding:"required"`
	Data       map[string]interface{} `json:"data"`
}

// CreateSubmission accepts a form submission: validate against the template
// schema, resolve or create the contact, persist, then publish. The rule
// matching and action execution happen asynchronously off the bus, so the
// response is a 202.
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	workspaceID := c.Param("workspaceId")
	ctx := c.Request.Context()

	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	tpl, err := h.templates.Get(ctx, workspaceID, req.TemplateID)
	if err != nil {
		respondError(c, h.errs, "create submission", err)
		return
	}

	if result := validation.ValidateAgainstSchema(tpl.Schema, req.Data); !result.Valid {
		respondError(c, h.errs, "create submission", errors.NewSubmissionInvalidError(result.Summary()))
		return
	}

	contact, err := h.resolveContact(ctx, workspaceID, req.Contact)
	if err != nil {
		respondError(c, h.errs, "create submission", err)
		return
	}

	sub := &models.FormSubmission{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		TemplateID:  tpl.ID,
		ContactID:   contact.ID,
		Data:        req.Data,
		Status:      models.SubmissionPending,
		SubmittedAt: time.Now().UTC(),
	}

	if err := h.submissions.Create(ctx, sub); err != nil {
		respondError(c, h.errs, "create submission", err)
		return
	}

	evt := bus.FormSubmitted{
		WorkspaceID:  workspaceID,
		SubmissionID: sub.ID,
		TemplateID:   tpl.ID,
		ContactID:    contact.ID,
		Data:         sub.Data,
		SubmittedAt:  sub.SubmittedAt,
	}
	if err := h.publisher.Publish(ctx, evt); err != nil {
		// The submission is stored; automation just will not fire for it.
		h.logger.Error("submission accepted but event publish failed", map[string]interface{}{
			"submissionId": sub.ID,
			"error":        err.Error(),
		})
	}

	c.JSON(http.StatusAccepted, sub)
}

// resolveContact reuses an existing contact matched by email so repeat
// submitters keep a single conversation thread.
func (h *SubmissionHandler) resolveContact(ctx context.Context, workspaceID string, req submitContactRequest) (*models.Contact, error) {
	if req.Email != "" {
		contact, err := h.contacts.FindByEmail(ctx, workspaceID, req.Email)
		if err == nil {
			return contact, nil
		}
		if !errors.IsNotFound(err) {
			return nil, err
		}
	}

	contact := &models.Contact{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	subs, err := h.submissions.List(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondError(c, h.errs, "list submissions", err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

type updateSubmissionStatusRequest struct {
	Status models.SubmissionStatus `json:"status" binding:"required"`
}

func (h *SubmissionHandler) UpdateSubmissionStatus(c *gin.Context) {
	var req updateSubmissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	switch req.Status {
	case models.SubmissionPending, models.SubmissionCompleted, models.SubmissionArchived:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: "unknown submission status"})
		return
	}

	if err := h.submissions.UpdateStatus(c.Request.Context(), c.Param("workspaceId"), c.Param("id"), req.Status); err != nil {
		respondError(c, h.errs, "update submission status", err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *SubmissionHandler) ListContacts(c *gin.Context) {
	contacts, err := h.contacts.List(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondError(c, h.errs, "list contacts", err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func RegisterSubmissionRoutes(r *gin.RouterGroup, handler *SubmissionHandler) {
	submissions := r.Group("/submissions")
	{
		submissions.GET("", handler.ListSubmissions)
		submissions.POST("", handler.CreateSubmission)
		submissions.PUT(":id/status", handler.UpdateSubmissionStatus)
	}
	r.GET("/contacts", handler.ListContacts)
}
