// Package errors provides structured error handling for Riptide.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 4XX: Validation errors (bad caller input, never retried)
//   - 5XX: Retrieval errors (backend or internal failures)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryRetrieval indicates retrieval pipeline failures.
	CategoryRetrieval Category = "RETRIEVAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Validation errors (400-499)
	ErrCodeInvalidInput        = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty          = "ERR_402_QUERY_EMPTY"
	ErrCodeInvalidFusionMethod = "ERR_403_INVALID_FUSION_METHOD"
	ErrCodeInvalidConfigValue  = "ERR_404_INVALID_CONFIG_VALUE"

	// Retrieval errors (500-599)
	ErrCodeSearchFailed     = "ERR_501_SEARCH_FAILED"
	ErrCodeEmbeddingFailed  = "ERR_502_EMBEDDING_FAILED"
	ErrCodeIndexFailed      = "ERR_503_INDEX_FAILED"
	ErrCodeNotInitialized   = "ERR_504_NOT_INITIALIZED"
	ErrCodeGenerationFailed = "ERR_505_GENERATION_FAILED"
	ErrCodeStoreFailed      = "ERR_506_STORE_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryRetrieval
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '4':
		return CategoryValidation
	default:
		return CategoryRetrieval
	}
}

// severityFromCode determines severity based on error code.
// Validation errors are warnings from the engine's perspective: the
// caller supplied bad input and the engine state is untouched.
func severityFromCode(code string) Severity {
	if categoryFromCode(code) == CategoryValidation {
		return SeverityWarning
	}
	return SeverityError
}
