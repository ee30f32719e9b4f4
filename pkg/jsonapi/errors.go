package jsonapi

import (
	"net/http"
	"strconv"
)

// NewError builds an error object for status with the standard title.
func NewError(status int, code, detail string) Error {
	return Error{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  http.StatusText(status),
		Detail: detail,
	}
}

// WithPointer returns a copy of e pointing at an attribute of the request
// document.
func (e Error) WithPointer(attribute string) Error {
	e.Source = &ErrorSource{Pointer: "/data/attributes/" + attribute}
	return e
}

// WithParameter returns a copy of e naming the offending query or path
// parameter.
func (e Error) WithParameter(name string) Error {
	e.Source = &ErrorSource{Parameter: name}
	return e
}

// StatusCode returns the HTTP status code as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// ErrBadRequest creates a 400 error.
func ErrBadRequest(detail string) Error {
	return NewError(http.StatusBadRequest, "bad_request", detail)
}

// ErrUnauthorized creates a 401 error.
func ErrUnauthorized(detail string) Error {
	if detail == "" {
		detail = "Authentication required"
	}
	return NewError(http.StatusUnauthorized, "unauthorized", detail)
}

// ErrNotFound creates a 404 error.
func ErrNotFound(detail string) Error {
	return NewError(http.StatusNotFound, "not_found", detail)
}

// ErrMethodNotAllowed creates a 405 error.
func ErrMethodNotAllowed(method string) Error {
	return NewError(http.StatusMethodNotAllowed, "method_not_allowed",
		"The "+method+" method is not allowed for this resource")
}

// ErrUnsupportedMediaType creates a 415 error.
func ErrUnsupportedMediaType(got string) Error {
	return NewError(http.StatusUnsupportedMediaType, "unsupported_media_type",
		"Unsupported content type "+strconv.Quote(got))
}

// ErrInternal creates a 500 error.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An internal error occurred"
	}
	return NewError(http.StatusInternalServerError, "internal_error", detail)
}
