package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "CHDB1001"
	ErrCodeConnectionTimeout    ErrorCode = "CHDB1002"
	ErrCodeAuthenticationFailed ErrorCode = "CHDB1003"
	ErrCodeDatabaseMissing      ErrorCode = "CHDB1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound   ErrorCode = "CHDB2001"
	ErrCodeConfigInvalid    ErrorCode = "CHDB2002"
	ErrCodeConfigMissing    ErrorCode = "CHDB2003"
	ErrCodeCredentialLookup ErrorCode = "CHDB2004"

	// SQL execution errors (4xxx)
	ErrCodeSQLSyntax         ErrorCode = "CHDB4001"
	ErrCodeSQLPermission     ErrorCode = "CHDB4002"
	ErrCodeSQLTimeout        ErrorCode = "CHDB4003"
	ErrCodeSQLTransaction    ErrorCode = "CHDB4004"
	ErrCodeSQLObjectNotFound ErrorCode = "CHDB4005"
	ErrCodeSQLExecution      ErrorCode = "CHDB4006"
	ErrCodeNoResults         ErrorCode = "CHDB4008"

	// File system errors (5xxx)
	ErrCodeFileNotFound   ErrorCode = "CHDB5001"
	ErrCodeFilePermission ErrorCode = "CHDB5002"
	ErrCodeFileOperation  ErrorCode = "CHDB5005"

	// Data and validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "CHDB6001"
	ErrCodeInvalidInput     ErrorCode = "CHDB6002"
	ErrCodeRequiredField    ErrorCode = "CHDB6003"
	ErrCodeMissingColumns   ErrorCode = "CHDB6004"

	// System errors (9xxx)
	ErrCodeInternal      ErrorCode = "CHDB9001"
	ErrCodeResultParsing ErrorCode = "CHDB9005"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Pipeline cannot continue
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, process continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	err := Wrap(cause, ErrCodeConnectionFailed, message)
	if err == nil {
		err = New(ErrCodeConnectionFailed, message)
	}
	return err.
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Check that the database server is running and reachable",
			"Verify host, port, user and password in the config file",
			"Run 'churndb ping' to test the connection",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'churndb setup' to regenerate the config file",
		)
}

// SQLError creates an SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message)
	if err == nil {
		err = New(ErrCodeSQLExecution, message)
	}
	err.WithContext("query", truncateString(query, 200))

	lower := strings.ToLower(message)
	if cause != nil {
		lower += " " + strings.ToLower(cause.Error())
	}

	switch {
	case strings.Contains(lower, "permission") || strings.Contains(lower, "access denied"):
		err.Code = ErrCodeSQLPermission
		_ = err.WithSuggestions(
			"Check the database user's privileges",
			"Grant CREATE, DROP, INSERT and SELECT on the target database",
		)
	case strings.Contains(lower, "syntax"):
		err.Code = ErrCodeSQLSyntax
		_ = err.WithSuggestions("Review the SQL syntax near the reported position")
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions("Increase database.query_timeout in the config file")
	}

	return err
}

// FileError creates a file-system error
func FileError(path string, cause error) *AppError {
	code := ErrCodeFileOperation
	message := fmt.Sprintf("Failed to access %s", path)
	if errors.Is(cause, fs.ErrNotExist) {
		code = ErrCodeFileNotFound
		message = fmt.Sprintf("File not found: %s", path)
	}
	err := Wrap(cause, code, message)
	if err == nil {
		err = New(code, message)
	}
	return err.WithContext("path", path)
}

// DataError creates an input-data error
func DataError(message string, cause error) *AppError {
	err := Wrap(cause, ErrCodeInvalidInput, message)
	if err == nil {
		err = New(ErrCodeInvalidInput, message)
	}
	return err
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code anywhere in its chain
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
