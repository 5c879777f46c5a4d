// internal/api/responses.go
package api

import (
	"github.com/gin-gonic/gin"

	"opsdesk-engine/internal/common/errors"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// respondError maps any error onto its HTTP status via the shared handler.
func respondError(c *gin.Context, handler *errors.ErrorHandler, operation string, err error) {
	status, stdErr := handler.HandleRequestError(operation, err)
	c.JSON(status, ErrorResponse{
		Error:   string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
	})
}
