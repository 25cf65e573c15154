// Package errors provides unified error handling with structured error codes.
package errors

import "fmt"

// Code classifies failures across the capture/recognize/persist pipeline.
type Code int

const (
	CodeUnknown            Code = iota
	CodeCaptureUnavailable      // transient capture failure, retried next tick
	CodePermissionDenied        // capture blocked until the user grants permission
	CodeRecognitionFailed       // recognizer returned an error
	CodeRecognitionTimeout      // recognizer exceeded the per-tick budget
	CodeServiceUnavailable      // recognition service unreachable or circuit open
	CodeIOFailed                // state file write failure
	CodeStateNotFound           // no persisted state file
	CodeStateCorrupt            // persisted state unreadable or wrong schema
	CodeConfigInvalid
)

// String returns the code name for logging.
func (c Code) String() string {
	switch c {
	case CodeCaptureUnavailable:
		return "CAPTURE_UNAVAILABLE"
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodeRecognitionFailed:
		return "RECOGNITION_FAILED"
	case CodeRecognitionTimeout:
		return "RECOGNITION_TIMEOUT"
	case CodeServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case CodeIOFailed:
		return "IO_FAILED"
	case CodeStateNotFound:
		return "STATE_NOT_FOUND"
	case CodeStateCorrupt:
		return "STATE_CORRUPT"
	case CodeConfigInvalid:
		return "CONFIG_INVALID"
	default:
		return "UNKNOWN"
	}
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf extracts the error code, walking the cause chain.
func CodeOf(err error) Code {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeUnknown
}

// IsCode checks if an error (or its cause chain) carries a specific code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeCaptureUnavailable, CodeServiceUnavailable, CodeRecognitionTimeout:
		return true
	default:
		return false
	}
}
