// Package errors provides standardized error handling for BPMN workflow integration.
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
	ErrCodeUnknownLoanCategory  ErrorCode = "UNKNOWN_LOAN_CATEGORY"
	ErrCodeFormValidationFailed ErrorCode = "FORM_VALIDATION_FAILED"

	ErrCodePredictionTransportFailed ErrorCode = "PREDICTION_TRANSPORT_FAILED"
	ErrCodePredictionTimeout         ErrorCode = "PREDICTION_TIMEOUT"
	ErrCodePredictionResponseInvalid ErrorCode = "PREDICTION_RESPONSE_INVALID"
	ErrCodePredictionStaleResponse   ErrorCode = "PREDICTION_STALE_RESPONSE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeRecordStoreWriteFailed   ErrorCode = "RECORD_STORE_WRITE_FAILED"
	ErrCodeDuplicateApplication     ErrorCode = "DUPLICATE_APPLICATION"

	ErrCodeIdentityLookupFailed ErrorCode = "IDENTITY_LOOKUP_FAILED"
	ErrCodeUserNotSignedIn      ErrorCode = "USER_NOT_SIGNED_IN"

	ErrCodeDecisionIndexFailed ErrorCode = "DECISION_INDEX_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeWorkflowBrokerUnavailable ErrorCode = "WORKFLOW_BROKER_UNAVAILABLE"
	ErrCodeWorkflowCommandRejected   ErrorCode = "WORKFLOW_COMMAND_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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

// WithMetadata attaches a key to the error and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
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

func newStandardError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownLoanCategoryError(category string) *StandardError {
	return newStandardError(ErrCodeUnknownLoanCategory,
		"Unknown loan category",
		fmt.Sprintf("loanType: %s", category), false)
}

// NewFormValidationFailedError lists the offending fields in Details and
// under the "fields" metadata key.
func NewFormValidationFailedError(fields []string) *StandardError {
	e := newStandardError(ErrCodeFormValidationFailed,
		"Application form validation failed",
		fmt.Sprintf("fields: %s", strings.Join(fields, ", ")), false)
	return e.WithMetadata("fields", fields)
}

func NewPredictionTransportFailedError(endpoint string, err error) *StandardError {
	return newStandardError(ErrCodePredictionTransportFailed,
		"Prediction service request failed",
		fmt.Sprintf("endpoint: %s, error: %s", endpoint, err.Error()), true)
}

func NewPredictionTimeoutError(endpoint string) *StandardError {
	return newStandardError(ErrCodePredictionTimeout,
		"Prediction service timeout",
		fmt.Sprintf("endpoint: %s", endpoint), true)
}

func NewPredictionResponseInvalidError(err error) *StandardError {
	return newStandardError(ErrCodePredictionResponseInvalid,
		"Prediction service returned an unexpected response",
		err.Error(), false)
}

func NewPredictionStaleResponseError(requestID string) *StandardError {
	return newStandardError(ErrCodePredictionStaleResponse,
		"Prediction response superseded by a newer request",
		fmt.Sprintf("requestId: %s", requestID), false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newStandardError(ErrCodeDatabaseConnectionFailed,
		"Database connection error", err.Error(), true)
}

func NewRecordStoreWriteFailedError(err error) *StandardError {
	return newStandardError(ErrCodeRecordStoreWriteFailed,
		"Loan application record could not be stored", err.Error(), true)
}

func NewDuplicateApplicationError(applicationID string) *StandardError {
	return newStandardError(ErrCodeDuplicateApplication,
		"Application already exists",
		fmt.Sprintf("applicationId: %s", applicationID), false)
}

func NewIdentityLookupFailedError(err error) *StandardError {
	return newStandardError(ErrCodeIdentityLookupFailed,
		"Identity provider lookup failed", err.Error(), true)
}

func NewUserNotSignedInError() *StandardError {
	return newStandardError(ErrCodeUserNotSignedIn,
		"A signed-in user is required", "", false)
}

func NewDecisionIndexFailedError(index string, err error) *StandardError {
	return newStandardError(ErrCodeDecisionIndexFailed,
		"Decision could not be indexed",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newStandardError(ErrCodeNotificationSendFailed,
		"Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

// NewWorkflowBrokerUnavailableError reports a zeebe gateway that could not
// be reached or timed out.
func NewWorkflowBrokerUnavailableError(operation string, err error) *StandardError {
	return newStandardError(ErrCodeWorkflowBrokerUnavailable,
		"Workflow broker unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true).
		WithMetadata("operation", operation)
}

func NewWorkflowCommandRejectedError(operation string, err error) *StandardError {
	return newStandardError(ErrCodeWorkflowCommandRejected,
		"Workflow command rejected",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), false).
		WithMetadata("operation", operation)
}

func NewInternalError(err error) *StandardError {
	return newStandardError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to the error codes caught by boundary
// events in the loan decision process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUnknownLoanCategory:       "FORM_VALIDATION_FAILED",
	ErrCodeFormValidationFailed:      "FORM_VALIDATION_FAILED",
	ErrCodePredictionTransportFailed: "PREDICTION_FAILED",
	ErrCodePredictionTimeout:         "PREDICTION_FAILED",
	ErrCodePredictionResponseInvalid: "PREDICTION_RESPONSE_INVALID",
	ErrCodePredictionStaleResponse:   "PREDICTION_STALE_RESPONSE",
	ErrCodeDatabaseConnectionFailed:  "DATABASE_CONNECTION_FAILED",
	ErrCodeRecordStoreWriteFailed:    "RECORD_STORE_WRITE_FAILED",
	ErrCodeDuplicateApplication:      "DUPLICATE_APPLICATION",
	ErrCodeIdentityLookupFailed:      "IDENTITY_LOOKUP_FAILED",
	ErrCodeUserNotSignedIn:           "USER_NOT_SIGNED_IN",
	ErrCodeDecisionIndexFailed:       "DECISION_INDEX_FAILED",
	ErrCodeNotificationSendFailed:    "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeRecordStoreWriteFailed,
		ErrCodeIdentityLookupFailed,
		ErrCodeDecisionIndexFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeWorkflowBrokerUnavailable:
		return 3
	default:
		// Prediction failures surface to the user, who decides whether to
		// submit again.
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PREDICTION"):
		return "PREDICTION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "RECORD") || strings.Contains(codeStr, "DUPLICATE"):
		return "DATABASE"
	case strings.Contains(codeStr, "IDENTITY") || strings.Contains(codeStr, "SIGNED_IN"):
		return "AUTH"
	case strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.HasPrefix(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "CATEGORY"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
