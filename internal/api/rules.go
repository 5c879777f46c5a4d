// internal/api/rules.go
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

type RuleStore interface {
	Create(ctx context.Context, rule *models.AutomationRule) error
	List(ctx context.Context, workspaceID string) ([]models.AutomationRule, error)
	SetActive(ctx context.Context, workspaceID, id string, active bool) error
	Delete(ctx context.Context, workspaceID, id string) error
}

type TemplateGetter interface {
	Get(ctx context.Context, workspaceID, id string) (*models.FormTemplate, error)
}

type RuleHandler struct {
	rules     RuleStore
	templates TemplateGetter
	errs      *errors.ErrorHandler
	logger    logger.Logger
}

func NewRuleHandler(rules RuleStore, templates TemplateGetter, errs *errors.ErrorHandler, log logger.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, templates: templates, errs: errs, logger: log}
}

type createRuleRequest struct {
	Name                  string          `json:"name" binding:"required"`
	TriggerFormTemplateID string          `json:"trigger_form_template_id" binding:"required"`
	Action                json.RawMessage `json:"action" binding:"required"`
}

// CreateRule validates the action document and the trigger template before
// anything is stored, so a rule can never exist with an unknown action type
// or a dangling template reference.
func (h *RuleHandler) CreateRule(c *gin.Context) {
	workspaceID := c.Param("workspaceId")

	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	action, err := models.DecodeAction(req.Action)
	if err != nil {
		respondError(c, h.errs, "create rule", err)
		return
	}

	if _, err := h.templates.Get(c.Request.Context(), workspaceID, req.TriggerFormTemplateID); err != nil {
		if errors.IsNotFound(err) {
			err = errors.NewRuleTemplateMissingError(req.TriggerFormTemplateID)
		}
		respondError(c, h.errs, "create rule", err)
		return
	}

	rule := &models.AutomationRule{
		ID:                    uuid.New().String(),
		WorkspaceID:           workspaceID,
		Name:                  req.Name,
		TriggerFormTemplateID: req.TriggerFormTemplateID,
		Action:                action,
		Active:                true,
		CreatedAt:             time.Now().UTC(),
	}

	if err := h.rules.Create(c.Request.Context(), rule); err != nil {
		respondError(c, h.errs, "create rule", err)
		return
	}

	h.logger.Info("automation rule created", map[string]interface{}{
		"ruleId":      rule.ID,
		"workspaceId": workspaceID,
		"templateId":  rule.TriggerFormTemplateID,
		"actionType":  string(action.ActionType()),
	})

	c.JSON(http.StatusCreated, rule)
}

func (h *RuleHandler) ListRules(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondError(c, h.errs, "list rules", err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

type setRuleActiveRequest struct {
	Active *bool `json:"is_active" binding:"required"`
}

func (h *RuleHandler) SetRuleActive(c *gin.Context) {
	var req setRuleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	if err := h.rules.SetActive(c.Request.Context(), c.Param("workspaceId"), c.Param("id"), *req.Active); err != nil {
		respondError(c, h.errs, "set rule active", err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *RuleHandler) DeleteRule(c *gin.Context) {
	if err := h.rules.Delete(c.Request.Context(), c.Param("workspaceId"), c.Param("id")); err != nil {
		respondError(c, h.errs, "delete rule", err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func RegisterRuleRoutes(r *gin.RouterGroup, handler *RuleHandler) {
	rules := r.Group("/rules")
	{
		rules.GET("", handler.ListRules)
		rules.POST("", handler.CreateRule)
		rules.PUT(":id/active", handler.SetRuleActive)
		rules.DELETE(":id", handler.DeleteRule)
	}
}
