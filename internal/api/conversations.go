// internal/api/conversations.go
package api

import (
	"context"
	"net/http"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/engine/bus"
	"opsdesk-engine/internal/models"

	"github.com/gin-gonic/gin"
)

type ConversationReader interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
	List(ctx context.Context, workspaceID string) ([]models.Conversation, error)
}

type MessageReader interface {
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
}

type ConversationTracker interface {
	AppendMessage(ctx context.Context, msg *models.Message) error
	Resume(ctx context.Context, convID string) error
}

type ConversationHandler struct {
	conversations ConversationReader
	messages      MessageReader
	tracker       ConversationTracker
	publisher     EventPublisher
	errs          *errors.ErrorHandler
	logger        logger.Logger
}

func NewConversationHandler(conversations ConversationReader, messages MessageReader, tracker ConversationTracker, publisher EventPublisher, errs *errors.ErrorHandler, log logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		tracker:       tracker,
		publisher:     publisher,
		errs:          errs,
		logger:        log,
	}
}

func (h *ConversationHandler) ListConversations(c *gin.Context) {
	convs, err := h.conversations.List(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondError(c, h.errs, "list conversations", err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()

	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.errs, "list messages", err)
		return
	}

	messages, err := h.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		respondError(c, h.errs, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type appendMessageRequest struct {
	Channel models.MessageChannel `json:"channel" binding:"required"`
	Content string                `json:"content" binding:"required"`
}

// SendStaffReply appends a staff-authored outbound message. This pauses the
// conversation for automation until someone explicitly resumes it.
func (h *ConversationHandler) SendStaffReply(c *gin.Context) {
	ctx := c.Request.Context()

	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.errs, "staff reply", err)
		return
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionOutbound,
		Channel:        req.Channel,
		Origin:         models.OriginStaff,
		Content:        req.Content,
	}
	if err := h.tracker.AppendMessage(ctx, msg); err != nil {
		respondError(c, h.errs, "staff reply", err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ReceiveInbound records a contact-authored inbound message. Inbound traffic
// never changes the conversation status; a paused conversation stays paused.
func (h *ConversationHandler) ReceiveInbound(c *gin.Context) {
	ctx := c.Request.Context()

	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.errs, "inbound message", err)
		return
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionInbound,
		Channel:        req.Channel,
		Origin:         models.OriginContact,
		Content:        req.Content,
	}
	if err := h.tracker.AppendMessage(ctx, msg); err != nil {
		respondError(c, h.errs, "inbound message", err)
		return
	}

	evt := bus.MessageReceived{
		WorkspaceID:    conv.WorkspaceID,
		ConversationID: conv.ID,
		ContactID:      conv.ContactID,
		MessageID:      msg.ID,
		ReceivedAt:     time.Now().UTC(),
	}
	if err := h.publisher.Publish(ctx, evt); err != nil {
		h.logger.Error("inbound message stored but event publish failed", map[string]interface{}{
			"conversationId": conv.ID,
			"error":          err.Error(),
		})
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *ConversationHandler) ResumeConversation(c *gin.Context) {
	if err := h.tracker.Resume(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.errs, "resume conversation", err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "resumed"})
}

func RegisterConversationRoutes(r *gin.RouterGroup, handler *ConversationHandler) {
	conversations := r.Group("/conversations")
	{
		conversations.GET("", handler.ListConversations)
		conversations.GET(":id/messages", handler.ListMessages)
		conversations.POST(":id/messages", handler.SendStaffReply)
		conversations.POST(":id/inbound", handler.ReceiveInbound)
		conversations.POST(":id/resume", handler.ResumeConversation)
	}
}
