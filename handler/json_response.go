package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/notifyhub/pkg/binder"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status  int
	body    APIResponse
	err     error
	headers http.Header
}

func (j *jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if j.err != nil && j.body.Error == "" {
		j.body.Error = errorText(j.err, j.status)
	}
	if j.body.Message == "" {
		j.body.Message = http.StatusText(j.status)
	}

	for key, values := range j.headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures JSON response
type JSONOption func(*jsonResponse)

// WithJSONStatus sets custom HTTP status code
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// WithJSONMessage sets the human-readable message.
func WithJSONMessage(msg string) JSONOption {
	return func(r *jsonResponse) {
		r.body.Message = msg
	}
}

// WithJSONDetails attaches per-field error messages.
func WithJSONDetails(details map[string][]string) JSONOption {
	return func(r *jsonResponse) {
		if len(details) > 0 {
			r.body.Details = details
		}
	}
}

// WithJSONHeader adds a response header.
func WithJSONHeader(key, value string) JSONOption {
	return func(r *jsonResponse) {
		if r.headers == nil {
			r.headers = make(http.Header)
		}
		r.headers.Add(key, value)
	}
}

// JSON creates a successful response carrying data with status 200 unless
// overridden.
func JSON(data any, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: http.StatusOK,
		body:   APIResponse{Success: true, Data: data},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError creates a failed response. The status is derived from err
// (HTTPError code, 400 for binding failures, 500 otherwise) unless an
// option overrides it.
func JSONError(err error, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: errorStatus(err),
		body:   APIResponse{Success: false},
		err:    err,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func errorStatus(err error) int {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, binder.ErrMissingContentType),
		errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParsePath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorText exposes client errors verbatim and reduces server errors to a
// status key so internal causes stay in the logs.
func errorText(err error, status int) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr.Code == status {
		return httpErr.Key
	}
	return statusKey(status)
}

func statusKey(status int) string {
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}
