package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds surfaced by the classification pipeline
var (
	// ErrCompletionService marks a failed completion call. It is recovered per note.
	ErrCompletionService = errors.New("completion service failure")
	// ErrDataLoad marks an unreadable or malformed input dataset. It aborts a run.
	ErrDataLoad = errors.New("data load failure")
	// ErrReportWrite marks a failure writing the combined table or a JSON view.
	ErrReportWrite = errors.New("report write failure")
	// ErrCircuitOpen is returned while the completion circuit breaker is open.
	ErrCircuitOpen = errors.New("completion circuit breaker open")
	ErrNotFound    = errors.New("not found")
)

// ClassifierError represents a standardized error response
type ClassifierError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *ClassifierError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeCompletionService = "COMPLETION_SERVICE_ERROR"
	ErrCodeDataLoad          = "DATA_LOAD_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalServer    = "INTERNAL_SERVER_ERROR"
	ErrCodeValidation        = "VALIDATION_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewClassifierError creates a new ClassifierError with timestamp
func NewClassifierError(code, message, details, requestID string) *ClassifierError {
	return &ClassifierError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// DataLoadError reports a problem with one row of the input dataset.
// It matches ErrDataLoad with errors.Is.
type DataLoadError struct {
	Path string
	Row  int
	Err  error
}

// Error implements the error interface
func (e *DataLoadError) Error() string {
	var where string
	switch {
	case e.Path != "" && e.Row > 0:
		where = fmt.Sprintf("%s row %d", e.Path, e.Row)
	case e.Row > 0:
		where = fmt.Sprintf("row %d", e.Row)
	default:
		where = e.Path
	}
	if where == "" {
		return fmt.Sprintf("%s: %v", ErrDataLoad, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDataLoad, where, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *DataLoadError) Unwrap() []error {
	return []error{ErrDataLoad, e.Err}
}

// CodeFor maps an error to the response code used by the API and MCP surfaces.
func CodeFor(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ErrCodeValidation
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrDataLoad):
		return ErrCodeDataLoad
	case errors.Is(err, ErrCompletionService), errors.Is(err, ErrCircuitOpen):
		return ErrCodeCompletionService
	default:
		return ErrCodeInternalServer
	}
}
