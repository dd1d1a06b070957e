// Package errors provides the standardized error taxonomy shared by the HTTP
// surface and the workflow job handlers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Intake validation errors
const (
	ErrCodeMissingFilename      ErrorCode = "MISSING_FILENAME"
	ErrCodeUnsupportedExtension ErrorCode = "UNSUPPORTED_EXTENSION"
	ErrCodeFileTooLarge         ErrorCode = "FILE_TOO_LARGE"
	ErrCodeEmptyFile            ErrorCode = "EMPTY_FILE"
	ErrCodeMimeMismatch         ErrorCode = "MIME_MISMATCH"
	ErrCodeExtractionFailed     ErrorCode = "EXTRACTION_FAILED"
	ErrCodeQualityRejected      ErrorCode = "QUALITY_REJECTED"
	ErrCodeIrrelevantContent    ErrorCode = "IRRELEVANT_CONTENT"
	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"
)

// Lifecycle errors
const (
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeDuplicateEmployee       ErrorCode = "DUPLICATE_EMPLOYEE"
)

// Auth errors
const (
	ErrCodeInvalidAPIKey   ErrorCode = "INVALID_API_KEY"
	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodePositionClosed  ErrorCode = "POSITION_CLOSED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeProjectNotFound ErrorCode = "PROJECT_NOT_FOUND"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
)

// Throttling, external and persistence errors
const (
	ErrCodeRateLimitExceeded      ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeLLMScoringFailed       ErrorCode = "LLM_SCORING_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeExternalService        ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                ErrorCode = "TIMEOUT_ERROR"
	ErrCodeDatabaseQueryFailed    ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseInsertFailed   ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Hint      string                 `json:"hint,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithHint sets the user-facing hint and returns the error for chaining.
func (e *StandardError) WithHint(hint string) *StandardError {
	e.Hint = hint
	return e
}

// WithMetadata attaches a metadata value and returns the error for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable intake validation error.
func NewValidationError(code ErrorCode, message, details, hint string) *StandardError {
	return newError(code, message, details, false).WithHint(hint)
}

// NewInvalidInputError reports malformed request fields.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false)
}

// NewInvalidStatusTransitionError reports a lifecycle move the state machine forbids.
func NewInvalidStatusTransitionError(from, to string) *StandardError {
	return newError(
		ErrCodeInvalidStatusTransition,
		"Invalid status transition",
		fmt.Sprintf("cannot move applicant from '%s' to '%s'", from, to),
		false,
	).WithMetadata("from", from).WithMetadata("to", to)
}

// NewDuplicateEmployeeError reports an active employee with the same email.
func NewDuplicateEmployeeError(email string) *StandardError {
	return newError(ErrCodeDuplicateEmployee, "Employee with this email already exists", email, false)
}

// NewInvalidAPIKeyError creates a non-retryable API key error.
func NewInvalidAPIKeyError() *StandardError {
	return newError(ErrCodeInvalidAPIKey, "Invalid API Key", "", false)
}

// NewPositionClosedError reports an inactive project.
func NewPositionClosedError(projectID string) *StandardError {
	return newError(ErrCodePositionClosed, "Position closed", fmt.Sprintf("projectId: %s", projectID), false)
}

// NewForbiddenError reports an authenticated caller acting on a foreign resource.
func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Forbidden", details, false)
}

// NewProjectNotFoundError reports an unknown or deleted project.
func NewProjectNotFoundError(projectID string) *StandardError {
	return newError(ErrCodeProjectNotFound, "Project not found", fmt.Sprintf("projectId: %s", projectID), false)
}

// NewRateLimitExceededError creates a throttling error carrying the retry window.
func NewRateLimitExceededError(details string, retryAfter time.Duration) *StandardError {
	return newError(ErrCodeRateLimitExceeded, "Rate limit exceeded", details, true).
		WithMetadata("retry_after", int(retryAfter.Seconds()))
}

// NewLLMScoringFailedError creates a retryable model error.
func NewLLMScoringFailedError(err error) *StandardError {
	return newError(ErrCodeLLMScoringFailed, "AI scoring failed", err.Error(), true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(
		ErrCodeNotificationSendFailed,
		"Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		true,
	)
}

// NewDatabaseQueryFailedError creates a retryable database error.
func NewDatabaseQueryFailedError(operation string, err error) *StandardError {
	return newError(
		ErrCodeDatabaseQueryFailed,
		"Database query failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		true,
	)
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(resource, details string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a job failing with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService,
		ErrCodeLLMScoringFailed:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// As extracts a StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// HTTPStatus maps an error code to the HTTP status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeMissingFilename,
		ErrCodeUnsupportedExtension,
		ErrCodeFileTooLarge,
		ErrCodeEmptyFile,
		ErrCodeMimeMismatch,
		ErrCodeExtractionFailed,
		ErrCodeQualityRejected,
		ErrCodeIrrelevantContent,
		ErrCodeInvalidInput,
		ErrCodeInvalidStatusTransition,
		ErrCodeDuplicateEmployee:
		return http.StatusBadRequest
	case ErrCodeInvalidAPIKey, ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodePositionClosed, ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeProjectNotFound, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeExternalService, ErrCodeLLMScoringFailed, ErrCodeNotificationSendFailed:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "RATE_LIMIT"):
		return "THROTTLING"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "API_KEY") || strings.Contains(codeStr, "AUTH") ||
		code == ErrCodeForbidden || code == ErrCodePositionClosed:
		return "AUTH"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case HTTPStatus(code) == http.StatusBadRequest:
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
