package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidArgument indicates caller input was rejected before any work started
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// RootNotAllowed indicates a requested root lies outside the configured allow-list
	RootNotAllowed ErrorCode = "ROOT_NOT_ALLOWED"
	// Timeout indicates a task deadline elapsed before completion
	Timeout ErrorCode = "TIMEOUT"
	// Canceled indicates cooperative cancellation was observed
	Canceled ErrorCode = "CANCELED"
	// ProviderUnavailable indicates the remote completion endpoint failed
	ProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is a coded error carried across package boundaries.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Name returns the short error name used in task result envelopes.
func (e *Error) Name() string {
	return e.Code.Name()
}

// Name maps a code onto the error name reported to callers.
func (c ErrorCode) Name() string {
	switch c {
	case Timeout:
		return "TimeoutError"
	case Canceled:
		return "CanceledError"
	case InvalidArgument, RootNotAllowed:
		return "ToolInputError"
	case ProviderUnavailable:
		return "ProviderError"
	default:
		return "Error"
	}
}

// NewInvalidArgument reports rejected caller input.
func NewInvalidArgument(message string) *Error {
	return New(InvalidArgument, message, nil)
}

// NewRootNotAllowed reports a root outside every allowed root.
func NewRootNotAllowed(root string) *Error {
	return New(RootNotAllowed, "root not allowed: "+root, nil).WithDetails(map[string]string{"root": root})
}

// NewCanceled wraps the context error observed by a unit of work.
func NewCanceled(cause error) *Error {
	return New(Canceled, "aborted", cause)
}

// NewTimeout reports that role's deadline elapsed. A zero deadline is left
// out of the message.
func NewTimeout(role string, deadline time.Duration) *Error {
	msg := "timed out"
	if role != "" {
		msg = role + " " + msg
	}
	if deadline > 0 {
		msg = fmt.Sprintf("%s after %dms", msg, deadline.Milliseconds())
	}
	return New(Timeout, msg, nil).WithDetails(map[string]int64{"deadlineMs": deadline.Milliseconds()})
}

// NewInternal wraps an unexpected failure.
func NewInternal(message string, cause error) *Error {
	return New(InternalError, message, cause)
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// IsInputError reports whether err was raised by caller input validation.
func IsInputError(err error) bool {
	code := CodeOf(err)
	return code == InvalidArgument || code == RootNotAllowed
}

// MessageOf returns the message of the first *Error in err's chain without
// its code prefix or cause, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
