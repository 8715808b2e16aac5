package errors

import (
	"errors"
	"fmt"
)

// IndexError is the structured error type for docindex.
// It provides rich context for error handling, logging, and user presentation.
type IndexError struct {
	// Code is the unique error code (e.g., "ERR_301_EMBEDDING_SERVICE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with IndexError.
func (e *IndexError) Is(target error) bool {
	if t, ok := target.(*IndexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *IndexError) WithDetail(key, value string) *IndexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *IndexError) WithSuggestion(suggestion string) *IndexError {
	e.Suggestion = suggestion
	return e
}

// New creates a new IndexError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *IndexError {
	return &IndexError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an IndexError from an existing error.
// The error's message becomes the IndexError message.
func Wrap(code string, err error) *IndexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigurationError reports a missing required configuration value.
func ConfigurationError(key string) *IndexError {
	return New(ErrCodeConfigMissing, fmt.Sprintf("required configuration %s is not set", key), nil).
		WithDetail("key", key).
		WithSuggestion(fmt.Sprintf("Export %s or add it to the .env file in the working directory", key))
}

// InvalidConfigError reports a configuration value that is present but unusable.
func InvalidConfigError(message string, cause error) *IndexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// FilesystemError reports an unreadable file.
func FilesystemError(path string, cause error) *IndexError {
	return New(ErrCodeFileUnreadable, fmt.Sprintf("cannot read %s", path), cause).
		WithDetail("path", path)
}

// DirectoryError reports an unreadable documents directory.
func DirectoryError(dir string, cause error) *IndexError {
	return New(ErrCodeDirUnreadable, fmt.Sprintf("cannot read documents directory %s", dir), cause).
		WithDetail("path", dir)
}

// LockHeldError reports a documents directory another run is indexing.
func LockHeldError(lockPath string) *IndexError {
	return New(ErrCodeLockHeld, "another docindex run holds the lock for this directory", nil).
		WithDetail("lock", lockPath).
		WithSuggestion("Wait for the other run to finish, or remove " + lockPath + " if no run is active")
}

// EmbeddingServiceError reports a failed embedding request. body is the raw
// response text when the service answered, empty for transport failures.
func EmbeddingServiceError(message, body string, cause error) *IndexError {
	e := New(ErrCodeEmbeddingService, message, cause)
	if body != "" {
		e.WithDetail("body", body)
	}
	return e
}

// StoreUploadError reports a record the store did not accept.
func StoreUploadError(message, body string, cause error) *IndexError {
	e := New(ErrCodeStoreUpload, message, cause)
	if body != "" {
		e.WithDetail("body", body)
	}
	return e
}

// StoreQueryError reports a similarity search the store could not answer.
func StoreQueryError(message, body string, cause error) *IndexError {
	e := New(ErrCodeStoreQuery, message, cause)
	if body != "" {
		e.WithDetail("body", body)
	}
	return e
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *IndexError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity anywhere in its chain.
func IsFatal(err error) bool {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first IndexError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// GetCategory extracts the category from the first IndexError in the chain.
func GetCategory(err error) Category {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Category
	}
	return ""
}

// HasCode reports whether err carries an IndexError with the given code.
func HasCode(err error, code string) bool {
	return errors.Is(err, &IndexError{Code: code})
}
