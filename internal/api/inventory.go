// internal/api/inventory.go
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
	"github.com/google/uuid"
)

type InventoryStore interface {
	Create(ctx context.Context, item *models.InventoryItem) error
	List(ctx context.Context, workspaceID string) ([]models.InventoryItem, error)
	Adjust(ctx context.Context, workspaceID, id string, delta int) (*models.InventoryItem, error)
}

type InventoryHandler struct {
	inventory InventoryStore
	publisher EventPublisher
	errs      *errors.ErrorHandler
	logger    logger.Logger
}

func NewInventoryHandler(inventory InventoryStore, publisher EventPublisher, errs *errors.ErrorHandler, log logger.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, publisher: publisher, errs: errs, logger: log}
}

type createItemRequest struct {
	Name              string `json:"name" binding:"required"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	item := &models.InventoryItem{
		ID:                uuid.New().String(),
		WorkspaceID:       c.Param("workspaceId"),
		Name:              req.Name,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		CreatedAt:         time.Now().UTC(),
	}

	if err := h.inventory.Create(c.Request.Context(), item); err != nil {
		respondError(c, h.errs, "create inventory item", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *InventoryHandler) ListItems(c *gin.Context) {
	items, err := h.inventory.List(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondError(c, h.errs, "list inventory", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type adjustItemRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

// AdjustItem applies a signed quantity change. An adjustment that would go
// negative is rejected with 422 and leaves the quantity unchanged.
func (h *InventoryHandler) AdjustItem(c *gin.Context) {
	ctx := c.Request.Context()
	workspaceID := c.Param("workspaceId")

	var req adjustItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	item, err := h.inventory.Adjust(ctx, workspaceID, c.Param("id"), *req.Delta)
	if err != nil {
		respondError(c, h.errs, "adjust inventory", err)
		return
	}

	evt := bus.InventoryChanged{
		WorkspaceID: workspaceID,
		ItemID:      item.ID,
		Quantity:    item.Quantity,
		ChangedAt:   time.Now().UTC(),
	}
	if err := h.publisher.Publish(ctx, evt); err != nil {
		h.logger.Error("inventory adjusted but event publish failed", map[string]interface{}{
			"itemId": item.ID,
			"error":  err.Error(),
		})
	}

	c.JSON(http.StatusOK, item)
}

func RegisterInventoryRoutes(r *gin.RouterGroup, handler *InventoryHandler) {
	inventory := r.Group("/inventory")
	{
		inventory.GET("", handler.ListItems)
		inventory.POST("", handler.CreateItem)
		inventory.POST(":id/adjust", handler.AdjustItem)
	}
}
