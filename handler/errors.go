package handler

import (
	"errors"
	"net/http"
)

// ErrNilResponse indicates a handler returned nil instead of a Response.
var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError carries an HTTP status code and a stable error key.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string {
	return e.Key
}

var (
	ErrBadRequest         = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrNotFound           = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrMethodNotAllowed   = HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed"}
	ErrTooManyRequests    = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}
	ErrInternalServer     = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrServiceUnavailable = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)
