// Package errors provides standardized error handling for live search pipelines and BPMN workflow integration.
package errors

import (
	"errors"
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
	// Provider protocol errors
	ErrCodeSessionCreationFailed ErrorCode = "SESSION_CREATION_FAILED"
	ErrCodePollExhausted         ErrorCode = "POLL_EXHAUSTED"
	ErrCodeMalformedResponse     ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeProviderRequestFailed ErrorCode = "PROVIDER_REQUEST_FAILED"

	// Input errors
	ErrCodeInvalidQuery           ErrorCode = "INVALID_QUERY"
	ErrCodeSearchValidationFailed ErrorCode = "SEARCH_VALIDATION_FAILED"

	// Storage errors
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchNotFound       ErrorCode = "SEARCH_NOT_FOUND"
	ErrCodeCacheUnavailable     ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeIndexingFailed       ErrorCode = "INDEXING_FAILED"

	// Workflow engine errors
	ErrCodeWorkflowEngineFailed ErrorCode = "WORKFLOW_ENGINE_FAILED"
	ErrCodeWorkflowTimeout      ErrorCode = "WORKFLOW_TIMEOUT"
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

// Is matches another StandardError by code so errors.Is works against the sentinels below.
func (e *StandardError) Is(target error) bool {
	var t *StandardError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrSessionCreationFailed = &StandardError{Code: ErrCodeSessionCreationFailed}
	ErrMalformedResponse     = &StandardError{Code: ErrCodeMalformedResponse}
	ErrProviderRequestFailed = &StandardError{Code: ErrCodeProviderRequestFailed}
	ErrInvalidQuery          = &StandardError{Code: ErrCodeInvalidQuery}
	ErrSearchNotFound        = &StandardError{Code: ErrCodeSearchNotFound}
)

// CodeOf extracts the ErrorCode of err, or "INTERNAL_ERROR" when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
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

// NewSessionCreationFailedError reports that no search session could be opened within the attempt ceiling.
func NewSessionCreationFailedError(lastStatus, attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionCreationFailed,
		Message:   "Could not open provider search session",
		Details:   fmt.Sprintf("lastStatus: %d, attempts: %d", lastStatus, attempts),
		Retryable: true,
		Metadata: map[string]interface{}{
			"lastStatus": lastStatus,
			"attempts":   attempts,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewPollExhaustedError describes a poll loop that never observed completion.
// It is informational: the pipeline still returns the last snapshot.
func NewPollExhaustedError(handle string, attempts int, lastStatus string) *StandardError {
	return &StandardError{
		Code:      ErrCodePollExhausted,
		Message:   "Provider did not report completion before the poll ceiling",
		Details:   fmt.Sprintf("session: %s, attempts: %d, lastStatus: %s", handle, attempts, lastStatus),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedResponseError creates a non-retryable response shape error.
func NewMalformedResponseError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedResponse,
		Message:   "Provider response failed shape check",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderRequestFailedError wraps a transport or status failure talking to the provider.
func NewProviderRequestFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderRequestFailed,
		Message:   fmt.Sprintf("Provider %s request failed", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidQueryError creates a non-retryable error for a query missing required fields.
func NewInvalidQueryError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidQuery,
		Message:   "Search query is missing required fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchValidationFailedError creates a non-retryable input validation error.
func NewSearchValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchValidationFailed,
		Message:   "Search request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(table string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   fmt.Sprintf("table: %s, error: %s", table, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", queryName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchNotFoundError creates a non-retryable lookup error.
func NewSearchNotFoundError(searchID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchNotFound,
		Message:   "Search not found",
		Details:   fmt.Sprintf("searchId: %d", searchID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexingFailedError creates a retryable indexing error.
func NewIndexingFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexingFailed,
		Message:   "Itinerary indexing failed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkflowEngineError wraps a failed call to the Zeebe gateway.
func NewWorkflowEngineError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowEngineFailed,
		Message:   "Workflow engine call failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkflowTimeoutError wraps a Zeebe call that hit its deadline.
func NewWorkflowTimeoutError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowTimeout,
		Message:   "Workflow engine call timed out",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Retry & BPMN mapping
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSessionCreationFailed:  "SESSION_CREATION_FAILED",
	ErrCodePollExhausted:          "POLL_EXHAUSTED",
	ErrCodeMalformedResponse:      "MALFORMED_RESPONSE",
	ErrCodeProviderRequestFailed:  "PROVIDER_REQUEST_FAILED",
	ErrCodeInvalidQuery:           "INVALID_QUERY",
	ErrCodeSearchValidationFailed: "SEARCH_VALIDATION_FAILED",
	ErrCodeDatabaseInsertFailed:   "DATABASE_INSERT_FAILED",
	ErrCodeQueryExecutionFailed:   "QUERY_EXECUTION_FAILED",
	ErrCodeSearchNotFound:         "SEARCH_NOT_FOUND",
	ErrCodeCacheUnavailable:       "CACHE_UNAVAILABLE",
	ErrCodeIndexingFailed:         "INDEXING_FAILED",
	ErrCodeWorkflowEngineFailed:   "WORKFLOW_ENGINE_FAILED",
	ErrCodeWorkflowTimeout:        "WORKFLOW_TIMEOUT",
}

// GetRetryCount returns how many job retries an error code deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseInsertFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeProviderRequestFailed:
		return 3

	case ErrCodeSessionCreationFailed,
		ErrCodeCacheUnavailable,
		ErrCodeIndexingFailed,
		ErrCodeWorkflowEngineFailed,
		ErrCodeWorkflowTimeout:
		return 1

	default:
		return 0 // validation and shape errors: no retry
	}
}

// ConvertToBPMNError maps a StandardError to the error thrown to the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
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

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for log aggregation.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "POLL") ||
		strings.Contains(codeStr, "PROVIDER") || strings.Contains(codeStr, "MALFORMED"):
		return "PROVIDER"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_EXECUTION") ||
		strings.Contains(codeStr, "NOT_FOUND"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "INDEXING"):
		return "SEARCH_INDEX"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	default:
		return "OTHER"
	}
}
