// internal/api/templates.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TemplateStore interface {
	Create(ctx context.Context, tpl *models.FormTemplate) error
	Get(ctx context.Context, workspaceID, id string) (*models.FormTemplate, error)
	List(ctx context.Context, workspaceID string) ([]models.FormTemplate, error)
}

type TemplateHandler struct {
	templates TemplateStore
	errs      *errors.ErrorHandler
	logger    logger.Logger
}

func NewTemplateHandler(templates TemplateStore, errs *errors.ErrorHandler, log logger.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, errs: errs, logger: log}
}

type createTemplateRequest struct {
	Name   string          `json:"name" binding:"required"`
	Schema json.RawMessage `json:"schema"`
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	tpl := &models.FormTemplate{
		ID:          uuid.New().String(),
		WorkspaceID: c.Param("workspaceId"),
		Name:        req.Name,
		Schema:      req.Schema,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.templates.Create(c.Request.Context(), tpl); err != nil {
		respondError(c, h.errs, "create template", err)
		return
	}

	c.JSON(http.StatusCreated, tpl)
}

func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.templates.Get(c.Request.Context(), c.Param("workspaceId"), c.Param("id"))
	if err != nil {
		respondError(c, h.errs, "get template", err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondError(c, h.errs, "list templates", err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func RegisterTemplateRoutes(r *gin.RouterGroup, handler *TemplateHandler) {
	templates := r.Group("/templates")
	{
		templates.GET("", handler.ListTemplates)
		templates.POST("", handler.CreateTemplate)
		templates.GET(":id", handler.GetTemplate)
	}
}
