// internal/common/errors/handler.go
package errors

import (
	"net/http"
	"strings"
	"time"
)

// ErrorHandler normalizes errors and maps them onto HTTP responses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Normalize ensures we always have a StandardError.
func (h *ErrorHandler) Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HandleRequestError logs the error and returns the HTTP status and the
// normalized error to serialize in the response body.
func (h *ErrorHandler) HandleRequestError(operation string, err error) (int, *StandardError) {
	stdErr := h.Normalize(err)

	h.logger.Error("request failed", map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})

	return HTTPStatus(stdErr.Code), stdErr
}

// HTTPStatus maps an error code to its HTTP response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeRuleNotFound,
		ErrCodeTemplateNotFound,
		ErrCodeContactNotFound,
		ErrCodeConversationNotFound,
		ErrCodeSubmissionNotFound,
		ErrCodeItemNotFound:
		return http.StatusNotFound

	case ErrCodeRuleTemplateMissing,
		ErrCodeUnknownActionType,
		ErrCodeRecipientMissing:
		return http.StatusBadRequest

	case ErrCodeSubmissionInvalid,
		ErrCodeInventoryNegative:
		return http.StatusUnprocessableEntity

	default:
		if strings.HasSuffix(string(code), "_NOT_FOUND") {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	}
}
