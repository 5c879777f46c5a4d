// Package errors provides standardized error handling for the automation engine.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Configuration errors: the rule or its action is unusable as configured.
	ErrCodeRuleTemplateMissing ErrorCode = "RULE_TEMPLATE_MISSING"
	ErrCodeUnknownActionType   ErrorCode = "UNKNOWN_ACTION_TYPE"
	ErrCodeRecipientMissing    ErrorCode = "RECIPIENT_MISSING"

	// Delivery errors: the messaging gateway could not deliver.
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	// Validation / invariant errors.
	ErrCodeSubmissionInvalid ErrorCode = "SUBMISSION_INVALID"
	ErrCodeInventoryNegative ErrorCode = "INVENTORY_NEGATIVE"

	// Not-found errors.
	ErrCodeRuleNotFound         ErrorCode = "RULE_NOT_FOUND"
	ErrCodeTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeContactNotFound      ErrorCode = "CONTACT_NOT_FOUND"
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeSubmissionNotFound   ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCodeItemNotFound         ErrorCode = "ITEM_NOT_FOUND"
	ErrCodeBookingNotFound      ErrorCode = "BOOKING_NOT_FOUND"

	// Business rule errors: the request conflicts with engine policy.
	ErrCodeBusinessRuleViolation ErrorCode = "BUSINESS_RULE_VIOLATION"

	// Infrastructure errors.
	ErrCodeExternalServiceError     ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDedupCheckFailed         ErrorCode = "DEDUP_CHECK_FAILED"
	ErrCodeAuditWriteFailed         ErrorCode = "AUDIT_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRuleTemplateMissingError creates a non-retryable configuration error.
func NewRuleTemplateMissingError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRuleTemplateMissing,
		Message:   "Trigger form template does not exist in workspace",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownActionTypeError creates a non-retryable configuration error.
func NewUnknownActionTypeError(actionType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownActionType,
		Message:   "Unsupported automation action type",
		Details:   fmt.Sprintf("actionType: %s", actionType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientMissingError creates a non-retryable configuration error.
func NewRecipientMissingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientMissing,
		Message:   "No deliverable recipient address for action",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError creates a retryable gateway delivery error.
func NewDeliveryFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Message delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionInvalidError creates a non-retryable validation error.
func NewSubmissionInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInvalid,
		Message:   "Submission data does not match template schema",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInventoryNegativeError creates a non-retryable invariant error.
func NewInventoryNegativeError(itemID string, quantity, delta int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInventoryNegative,
		Message:   "Adjustment would drive inventory quantity below zero",
		Details:   fmt.Sprintf("itemId: %s, quantity: %d, delta: %d", itemID, quantity, delta),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable not-found error for the given code.
func NewNotFoundError(code ErrorCode, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   "Requested resource not found",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDedupCheckFailedError creates a retryable dedup store error.
func NewDedupCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDedupCheckFailed,
		Message:   "Execution dedup check failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailedError creates a retryable audit store error.
func NewAuditWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Message:   "Action outcome audit write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBusinessRuleError creates a non-retryable policy error.
func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBusinessRuleViolation,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError creates a retryable provider error.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalServiceError,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDeliveryFailed,
		ErrCodeExternalServiceError,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeDedupCheckFailed,
		ErrCodeAuditWriteFailed:
		return 3 // Retryable technical errors

	default:
		return 0 // Configuration, validation and not-found errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// AsStandardError extracts a StandardError if err wraps or is one.
func AsStandardError(err error) (*StandardError, bool) {
	stdErr, ok := err.(*StandardError)
	return stdErr, ok
}

// IsNotFound reports whether an error carries a not-found code.
func IsNotFound(err error) bool {
	stdErr, ok := AsStandardError(err)
	if !ok {
		return false
	}
	return strings.HasSuffix(string(stdErr.Code), "_NOT_FOUND")
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "MISSING"):
		return "NOT_FOUND/CONFIGURATION"
	case strings.Contains(codeStr, "ACTION") || strings.Contains(codeStr, "RECIPIENT"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "DELIVERY"):
		return "DELIVERY"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "DEDUP"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "NEGATIVE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "AUDIT"):
		return "AUDIT"
	default:
		return "OTHER"
	}
}
