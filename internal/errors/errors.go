// Package errors provides a lightweight structured error type (LibManagerError)
// for category-based classification of compile pipeline failures in the CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a LibManager error for classification
type ErrorCategory string

const (
	// User input errors
	CategoryInvalidArguments ErrorCategory = "invalid_arguments"

	// Source scan errors
	CategoryDirectoryUnreadable ErrorCategory = "directory_unreadable"

	// External toolchain errors
	CategoryToolchainSpawn     ErrorCategory = "toolchain_spawn"
	CategoryToolchainExecution ErrorCategory = "toolchain_execution"

	// Output layout errors
	CategoryArtifactPlacement ErrorCategory = "artifact_placement"
	CategoryHeaderCopy        ErrorCategory = "header_copy"

	// Anything else (context cancellation, programming errors)
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
)

// LibManagerError is a structured error with category, severity and context
type LibManagerError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for LibManagerError
type ContextFields map[string]any

// Error implements the error interface
func (e *LibManagerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *LibManagerError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *LibManagerError) WithContext(key string, value any) *LibManagerError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new LibManagerError
func New(category ErrorCategory, severity ErrorSeverity, message string) *LibManagerError {
	return &LibManagerError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new LibManagerError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *LibManagerError {
	return &LibManagerError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As returns the outermost LibManagerError in err's chain.
func As(err error) (*LibManagerError, bool) {
	var lme *LibManagerError
	if stdErrors.As(err, &lme) {
		return lme, true
	}
	return nil, false
}

// IsCategory checks if an error (or anything it wraps) belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if lme, ok := As(err); ok {
		return lme.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a LibManagerError
func GetCategory(err error) ErrorCategory {
	if lme, ok := As(err); ok {
		return lme.Category
	}
	return CategoryInternal
}

// IsFatal reports whether err must abort the pipeline. Unclassified errors are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if lme, ok := As(err); ok {
		return lme.Severity == SeverityFatal
	}
	return true
}
