package pocketbase

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a failure reported by the backend through its JSON error
// shape: {"status": 404, "message": "...", "data": {...}}.
type HTTPError struct {
	Status  int
	Message string
	// Data holds per-field validation details when the backend sends them.
	Data map[string]any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("pocketbase: HTTP error %d: %s", e.Status, e.Message)
}

// TransportError wraps a failure of the underlying HTTP client (DNS,
// connection refused, context cancellation, body read errors).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pocketbase: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is returned when a response body matches neither the expected
// success shape nor the backend error shape.
type DecodeError struct {
	Status int
	Body   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pocketbase: cannot decode response (status %d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// errNoMatch is the message of the synthetic 404 returned by GetFirstListItem.
const errNoMatch = "There is no record matching the filter."

// StatusCode returns the backend-reported status carried by err, or 0 when
// err is not an *HTTPError.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// IsNotFound reports whether err is an HTTP 404, either sent by the backend
// or produced by GetFirstListItem for an empty result.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
