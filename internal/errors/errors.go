package errors

import (
	stderrors "errors"
	"fmt"
)

// HeminError is the structured error type for hemin.
// It carries a stable code plus enough context for logging and user presentation.
type HeminError struct {
	// Code is the unique error code (e.g., "ERR_407_FEED_PARSE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *HeminError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *HeminError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a HeminError with the same code.
func (e *HeminError) Is(target error) bool {
	if t, ok := target.(*HeminError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *HeminError) WithDetail(key, value string) *HeminError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *HeminError) WithSuggestion(suggestion string) *HeminError {
	e.Suggestion = suggestion
	return e
}

// New creates a HeminError. Category, severity and the retryable flag derive from the code.
func New(code string, message string, cause error) *HeminError {
	return &HeminError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a HeminError from an existing error, reusing its message.
func Wrap(code string, err error) *HeminError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is comparisons. Only the code matters.
var (
	ErrFeedParse      = &HeminError{Code: ErrCodeFeedParse}
	ErrInvalidPage    = &HeminError{Code: ErrCodeInvalidPage}
	ErrInvalidSize    = &HeminError{Code: ErrCodeInvalidSize}
	ErrQueryEmpty     = &HeminError{Code: ErrCodeQueryEmpty}
	ErrWindowExceeded = &HeminError{Code: ErrCodeWindowExceeded}
	ErrDuplicateExo   = &HeminError{Code: ErrCodeDuplicateExternalID}
	ErrMissingDocType = &HeminError{Code: ErrCodeMissingDocType}
	ErrIndexClosed    = &HeminError{Code: ErrCodeIndexClosed}
	ErrHTTPForbidden  = &HeminError{Code: ErrCodeHTTPForbidden}
)

// ParseError reports feed text that is not a well-formed syndication document.
func ParseError(message string, cause error) *HeminError {
	return New(ErrCodeFeedParse, message, cause)
}

// SearchError reports rejected search parameters under the given validation code.
func SearchError(code, message string) *HeminError {
	return New(code, message, nil)
}

// ConsistencyError reports a broken uniqueness invariant on the index.
func ConsistencyError(message string) *HeminError {
	return New(ErrCodeDuplicateExternalID, message, nil)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *HeminError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(code, message string, cause error) *HeminError {
	return New(code, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *HeminError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// ValidationError creates a generic validation error.
func ValidationError(message string, cause error) *HeminError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *HeminError {
	return New(ErrCodeInternal, message, cause)
}

// As finds the first HeminError in err's chain.
func As(err error) (*HeminError, bool) {
	var he *HeminError
	if stderrors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if he, ok := As(err); ok {
		return he.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if he, ok := As(err); ok {
		return he.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" if err is not a HeminError.
func GetCode(err error) string {
	if he, ok := As(err); ok {
		return he.Code
	}
	return ""
}

// GetCategory extracts the category, or "" if err is not a HeminError.
func GetCategory(err error) Category {
	if he, ok := As(err); ok {
		return he.Category
	}
	return ""
}
