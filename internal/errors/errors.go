package errors

import (
	"errors"
	"fmt"
)

// StoreError is the structured error type for refdex.
// It provides context for error handling, logging, and user presentation.
type StoreError struct {
	// Code is the unique error code (e.g., "ERR_301_CONNECTION").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Store, Query, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with StoreError.
func (e *StoreError) Is(target error) bool {
	if t, ok := target.(*StoreError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *StoreError) WithDetail(key, value string) *StoreError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new StoreError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *StoreError {
	return &StoreError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a StoreError from an existing error.
// Returns nil if err is nil.
func Wrap(code string, err error) *StoreError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigNotFoundError creates an error for a missing config file.
func ConfigNotFoundError(path string, cause error) *StoreError {
	e := New(ErrCodeConfigNotFound, fmt.Sprintf("config file not found: %s", path), cause)
	return e.WithDetail("path", path)
}

// ConfigInvalidError creates an error for an unparseable or invalid
// config file.
func ConfigInvalidError(message string, cause error) *StoreError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ConnectionError creates a fatal store-open error.
func ConnectionError(message string, cause error) *StoreError {
	return New(ErrCodeConnection, message, cause)
}

// SchemaError creates a fatal schema-creation error.
func SchemaError(message string, cause error) *StoreError {
	return New(ErrCodeSchema, message, cause)
}

// PreparationError creates a recoverable query-compilation error.
// In search contexts it triggers the substring fallback; in insert
// contexts it aborts only the single insert.
func PreparationError(message string, cause error) *StoreError {
	return New(ErrCodePreparation, message, cause)
}

// ReadError creates a recoverable source-file read error.
func ReadError(path string, cause error) *StoreError {
	e := New(ErrCodeRead, fmt.Sprintf("cannot read %s", path), cause)
	return e.WithDetail("path", path)
}

// UniqueConstraintError creates a recoverable duplicate-key error.
// Callers must resolve it explicitly (update, skip, or report).
func UniqueConstraintError(name string, cause error) *StoreError {
	e := New(ErrCodeUniqueConstraint, fmt.Sprintf("duplicate name %q", name), cause)
	return e.WithDetail("name", name)
}

// code extracts the StoreError code from an error chain, if any.
func code(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsFatal reports whether err carries a fatal severity.
// Fatal errors unwind to the top level and terminate with non-zero status.
func IsFatal(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}

// IsPreparation reports whether err is a query preparation failure.
func IsPreparation(err error) bool {
	return code(err) == ErrCodePreparation
}

// IsConflict reports whether err is a unique constraint violation.
func IsConflict(err error) bool {
	return code(err) == ErrCodeUniqueConstraint
}

// IsRead reports whether err is a source file read failure.
func IsRead(err error) bool {
	return code(err) == ErrCodeRead
}
