// Package apperr defines the error taxonomy returned across the service
// boundary. Storage and file-store failures never cross it raw.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindConflict        Kind = "CONFLICT"
	KindUpstream        Kind = "UPSTREAM_FAILURE"
)

const (
	CodeActiveTaskExists = "ACTIVE_TASK_EXISTS"
	CodeDuplicate        = "DUPLICATE"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(what string) *Error {
	return New(KindNotFound, what+" not found")
}

func Forbidden(reason string) *Error {
	return New(KindForbidden, reason)
}

func Unauthenticated(reason string) *Error {
	return New(KindUnauthenticated, reason)
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Upstream wraps a storage or file-store failure. The cause is kept for
// logging; callers only ever see the generic message.
func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, cause: cause}
}

// ActiveTaskExists reports a WORKING-exclusivity violation and carries the
// blocking task so the caller can present it.
func ActiveTaskExists(id fmt.Stringer, title string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeActiveTaskExists,
		Message: "another task is already in progress",
		Details: map[string]interface{}{
			"runningTask": map[string]interface{}{
				"id":    id.String(),
				"title": title,
			},
		},
	}
}

func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err; unclassified errors are upstream failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindUpstream
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
