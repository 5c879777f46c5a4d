// internal/api/router.go
package api

import (
	"context"
	"net/http"

	"opsdesk-engine/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles every route handler the engine exposes.
type Handlers struct {
	Rules         *RuleHandler
	Templates     *TemplateHandler
	Submissions   *SubmissionHandler
	Bookings      *BookingHandler
	Conversations *ConversationHandler
	Inventory     *InventoryHandler
	Dashboard     *DashboardHandler
}

// ReadyCheck reports whether a backing dependency is reachable.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter mounts the workspace-scoped API plus the operational endpoints.
func NewRouter(h Handlers, checks []ReadyCheck, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		for _, check := range checks {
			if err := check.Check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unavailable",
					"failed": check.Name,
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ws := router.Group("/api/v1/workspaces/:workspaceId")
	{
		RegisterRuleRoutes(ws, h.Rules)
		RegisterTemplateRoutes(ws, h.Templates)
		RegisterSubmissionRoutes(ws, h.Submissions)
		RegisterBookingRoutes(ws, h.Bookings)
		RegisterConversationRoutes(ws, h.Conversations)
		RegisterInventoryRoutes(ws, h.Inventory)
		RegisterDashboardRoutes(ws, h.Dashboard)
	}

	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/health" {
			return
		}

		log.Info("http request", map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})
	}
}
