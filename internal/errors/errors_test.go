package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	cases := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigNotFound, CategoryConfig, SeverityError},
		{ErrCodeQueryEmpty, CategoryValidation, SeverityWarning},
		{ErrCodeSearchFailed, CategoryRetrieval, SeverityError},
	}

	for _, tc := range cases {
		err := New(tc.code, "boom", nil)
		assert.Equal(t, tc.category, err.Category, tc.code)
		assert.Equal(t, tc.severity, err.Severity, tc.code)
	}
}

func TestError_Formatting(t *testing.T) {
	err := New(ErrCodeQueryEmpty, "query must not be empty", nil)
	assert.Equal(t, "[ERR_402_QUERY_EMPTY] query must not be empty", err.Error())

	err.WithStage("sparse_search")
	assert.Equal(t, "[ERR_402_QUERY_EMPTY] sparse_search: query must not be empty", err.Error())
}

func TestIs_MatchesByCode(t *testing.T) {
	err := Retrieval(ErrCodeSearchFailed, "backend down", nil)

	assert.True(t, errors.Is(err, New(ErrCodeSearchFailed, "other message", nil)))
	assert.False(t, errors.Is(err, New(ErrCodeIndexFailed, "other code", nil)))
}

func TestUnwrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Retrieval(ErrCodeIndexFailed, "index write", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestValidation_RejectsForeignCodes(t *testing.T) {
	// A non-validation code is coerced to the generic validation code
	// so categories stay consistent with codes.
	err := Validation(ErrCodeSearchFailed, "bad input")
	assert.Equal(t, ErrCodeInvalidInput, err.Code)
	assert.Equal(t, CategoryValidation, err.Category)
}

func TestRetrieval_RejectsForeignCodes(t *testing.T) {
	err := Retrieval(ErrCodeQueryEmpty, "backend", nil)
	assert.Equal(t, ErrCodeSearchFailed, err.Code)
	assert.Equal(t, CategoryRetrieval, err.Category)
}

func TestConfigError(t *testing.T) {
	err := ConfigError("bad yaml", fmt.Errorf("line 3"))
	assert.Equal(t, ErrCodeConfigInvalid, err.Code)
	assert.Equal(t, CategoryConfig, err.Category)
}

func TestHelpers_OnWrappedErrors(t *testing.T) {
	inner := Validation(ErrCodeQueryEmpty, "empty")
	wrapped := fmt.Errorf("handler: %w", inner)

	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsRetrieval(wrapped))
	assert.Equal(t, ErrCodeQueryEmpty, GetCode(wrapped))
	assert.Equal(t, CategoryValidation, GetCategory(wrapped))
}

func TestHelpers_OnPlainErrors(t *testing.T) {
	plain := fmt.Errorf("plain")

	assert.False(t, IsValidation(plain))
	assert.False(t, IsRetrieval(plain))
	assert.Equal(t, "", GetCode(plain))
	assert.Equal(t, Category(""), GetCategory(plain))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeStoreFailed, "write failed", nil).
		WithDetail("path", "/tmp/x").
		WithDetail("attempt", "2")

	require.NotNil(t, err.Details)
	assert.Equal(t, "/tmp/x", err.Details["path"])
	assert.Equal(t, "2", err.Details["attempt"])
}
