// internal/api/dashboard.go
package api

import (
	"context"
	"net/http"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/models"

	"github.com/gin-gonic/gin"
)

type SnapshotSource interface {
	Snapshot(ctx context.Context, workspaceID string) (*models.DashboardSnapshot, error)
}

type AlertReader interface {
	MarkRead(ctx context.Context, workspaceID, id string) error
}

type DashboardHandler struct {
	snapshots SnapshotSource
	alerts    AlertReader
	errs      *errors.ErrorHandler
	logger    logger.Logger
}

func NewDashboardHandler(snapshots SnapshotSource, alerts AlertReader, errs *errors.ErrorHandler, log logger.Logger) *DashboardHandler {
	return &DashboardHandler{snapshots: snapshots, alerts: alerts, errs: errs, logger: log}
}

// GetDashboard runs an on-demand aggregator scan for the workspace.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	snapshot, err := h.snapshots.Snapshot(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondError(c, h.errs, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// MarkAlertRead dismisses a durable alert. Derived alerts disappear on their
// own once the underlying condition clears.
func (h *DashboardHandler) MarkAlertRead(c *gin.Context) {
	if err := h.alerts.MarkRead(c.Request.Context(), c.Param("workspaceId"), c.Param("id")); err != nil {
		respondError(c, h.errs, "mark alert read", err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "dismissed"})
}

func RegisterDashboardRoutes(r *gin.RouterGroup, handler *DashboardHandler) {
	r.GET("/dashboard", handler.GetDashboard)
	r.PUT("/alerts/:id/read", handler.MarkAlertRead)
}
