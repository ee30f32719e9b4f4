package app

import (
	"errors"
	"fmt"
)

// Kind classifies an application error for the API boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthorized
	KindPermissionDenied
	KindNotFound
	KindConflict
	KindWriteFailed
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrWriteFailed      = errors.New("write failed")
)

// Machine-readable error codes.
const (
	CodeInvalidPostID = "invalid_post_id"
	CodeInvalidParam  = "rest_invalid_param"
	CodeUnauthorized  = "unauthorized"
	CodeForbidden     = "forbidden"
	CodePostNotFound  = "rest_post_invalid_id"
	CodeFieldNotFound = "rest_no_such_field"
	CodeConflict      = "conflict"
	CodeUpdateFailed  = "update_failed"
	CodeInternal      = "internal_error"
)

// Error is an operation failure with a kind, a wire code, and an optional cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string // offending attribute, if any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrPermissionDenied:
		return e.Kind == KindPermissionDenied
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrWriteFailed:
		return e.Kind == KindWriteFailed
	}
	return false
}

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindInvalidInput:
		return 400
	case KindUnauthorized:
		return 401
	case KindPermissionDenied:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	}
	return 500
}

func invalidPostID() *Error {
	return &Error{Kind: KindInvalidInput, Code: CodeInvalidPostID, Message: "Invalid post ID."}
}

func invalidParam(fieldName, reason string) *Error {
	return &Error{Kind: KindInvalidInput, Code: CodeInvalidParam, Message: reason, Field: fieldName}
}

func forbidden(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Code: CodeForbidden, Message: message}
}

func postNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodePostNotFound, Message: "Invalid post ID."}
}

func updateFailed(fieldName string, err error) *Error {
	return &Error{Kind: KindWriteFailed, Code: CodeUpdateFailed, Message: "Failed to update field.", Field: fieldName, Err: err}
}

func unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: message}
}

// AsError extracts an *Error, wrapping anything else as an internal error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "An internal error occurred.", Err: err}
}
