package errors

import (
	"errors"
	"fmt"
)

// RiptideError is the structured error type for Riptide.
// It provides rich context for error handling, logging, and user presentation.
type RiptideError struct {
	// Code is the unique error code (e.g., "ERR_402_QUERY_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Validation, Retrieval).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Stage names the pipeline stage that failed (e.g., "sparse_search").
	Stage string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *RiptideError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RiptideError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with RiptideError.
func (e *RiptideError) Is(target error) bool {
	if t, ok := target.(*RiptideError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithStage records the pipeline stage that failed.
// Returns the error for method chaining.
func (e *RiptideError) WithStage(stage string) *RiptideError {
	e.Stage = stage
	return e
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RiptideError) WithDetail(key, value string) *RiptideError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new RiptideError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *RiptideError {
	return &RiptideError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Validation creates a validation error: the caller supplied invalid
// input. Validation errors are surfaced immediately and never retried.
func Validation(code string, message string) *RiptideError {
	if categoryFromCode(code) != CategoryValidation {
		code = ErrCodeInvalidInput
	}
	return New(code, message, nil)
}

// Retrieval wraps a backend or internal failure with retrieval context.
func Retrieval(code string, message string, cause error) *RiptideError {
	if categoryFromCode(code) != CategoryRetrieval {
		code = ErrCodeSearchFailed
	}
	return New(code, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RiptideError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IsValidation reports whether err (or any error in its chain) is a
// validation error.
func IsValidation(err error) bool {
	var re *RiptideError
	if errors.As(err, &re) {
		return re.Category == CategoryValidation
	}
	return false
}

// IsRetrieval reports whether err (or any error in its chain) is a
// retrieval error.
func IsRetrieval(err error) bool {
	var re *RiptideError
	if errors.As(err, &re) {
		return re.Category == CategoryRetrieval
	}
	return false
}

// GetCode extracts the error code from a RiptideError.
// Returns empty string if not a RiptideError.
func GetCode(err error) string {
	var re *RiptideError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from a RiptideError.
// Returns empty string if not a RiptideError.
func GetCategory(err error) Category {
	var re *RiptideError
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}
