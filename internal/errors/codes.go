// Package errors provides structured error handling for refdex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Source file I/O errors
//   - 3XX: Store errors (connection, schema)
//   - 4XX: Query errors (preparation, constraints)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates source file I/O errors.
	CategoryIO Category = "IO"
	// CategoryStore indicates database connection and schema errors.
	CategoryStore Category = "STORE"
	// CategoryQuery indicates query preparation and constraint errors.
	CategoryQuery Category = "QUERY"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort the run.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the batch can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Source I/O errors (200-299)
	ErrCodeRead = "ERR_201_READ"

	// Store errors (300-399)
	ErrCodeConnection = "ERR_301_CONNECTION"
	ErrCodeSchema     = "ERR_302_SCHEMA"

	// Query errors (400-499)
	ErrCodePreparation      = "ERR_401_PREPARATION"
	ErrCodeUniqueConstraint = "ERR_402_UNIQUE_CONSTRAINT"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryStore
	case '4':
		return CategoryQuery
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Store errors abort the run; everything else is recoverable at some level.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConnection, ErrCodeSchema:
		return SeverityFatal
	case ErrCodeRead, ErrCodePreparation, ErrCodeUniqueConstraint:
		return SeverityError
	default:
		return SeverityError
	}
}
