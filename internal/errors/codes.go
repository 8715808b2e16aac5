// Package errors provides structured error handling for docindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Filesystem errors
//   - 3XX: Remote service errors (embedding service, record store)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates directory and file I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates failures talking to a remote service.
	CategoryNetwork Category = "NETWORK"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, the run must stop.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the current file failed.
	SeverityError Severity = "ERROR"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigMissing = "ERR_101_CONFIG_MISSING"
	ErrCodeConfigInvalid = "ERR_102_CONFIG_INVALID"

	// Filesystem errors (200-299)
	ErrCodeDirUnreadable  = "ERR_201_DIR_UNREADABLE"
	ErrCodeFileUnreadable = "ERR_202_FILE_UNREADABLE"
	ErrCodeLockHeld       = "ERR_203_LOCK_HELD"

	// Remote service errors (300-399)
	ErrCodeEmbeddingService = "ERR_301_EMBEDDING_SERVICE"
	ErrCodeStoreUpload      = "ERR_302_STORE_UPLOAD"
	ErrCodeStoreQuery       = "ERR_303_STORE_QUERY"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "101" from "ERR_101_CONFIG_MISSING"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Configuration problems and a held run lock stop the whole run; everything
// else is scoped to the file being processed.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigMissing, ErrCodeConfigInvalid, ErrCodeDirUnreadable, ErrCodeLockHeld:
		return SeverityFatal
	default:
		return SeverityError
	}
}
