package loan

import (
	"errors"
	"fmt"
	"strings"

	"ethoscore/internal/common/validation"
)

var (
	ErrUnknownCategory    = errors.New("UNKNOWN_LOAN_CATEGORY")
	ErrValidation         = errors.New("FORM_VALIDATION_FAILED")
	ErrTransport          = errors.New("PREDICTION_TRANSPORT_FAILED")
	ErrResponseShape      = errors.New("PREDICTION_RESPONSE_INVALID")
	ErrStaleResponse      = errors.New("PREDICTION_STALE_RESPONSE")
	ErrSubmissionInFlight = errors.New("PREDICTION_IN_FLIGHT")
	ErrSessionClosed      = errors.New("FORM_SESSION_CLOSED")
	ErrNotSignedIn        = errors.New("USER_NOT_SIGNED_IN")
	ErrUnknownField       = errors.New("UNKNOWN_FORM_FIELD")
)

// FieldError marks one offending form field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError blocks a submission; the form is left untouched.
type ValidationError struct {
	Category LoanCategory
	Fields   []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("%s: %s form has invalid fields: %s", ErrValidation, e.Category, strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// HasField reports whether the named field was marked.
func (e *ValidationError) HasField(name string) bool {
	for _, f := range e.Fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

func newValidationError(category LoanCategory, result *validation.ValidationResult) *ValidationError {
	fields := make([]FieldError, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, FieldError{Field: e.Field, Code: e.Code, Message: e.Message})
	}
	return &ValidationError{Category: category, Fields: fields}
}

// TransportError is a network failure or a non-2xx answer from the
// prediction service. StatusCode is zero when no response was received.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: %s: timed out", ErrTransport, e.Endpoint)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: status %d", ErrTransport, e.Endpoint, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Endpoint, e.Err)
	}
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

// ResponseShapeError means a 2xx answer violated the response contract.
type ResponseShapeError struct {
	Reason string
	Err    error
}

func (e *ResponseShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrResponseShape, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrResponseShape, e.Reason)
}

func (e *ResponseShapeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrResponseShape}
	}
	return []error{ErrResponseShape, e.Err}
}
