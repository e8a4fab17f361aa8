package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// BackendUnavailableError is a 503 from the API, typically a lost database
// connection behind it. Reads may still work; writes should wait.
type BackendUnavailableError struct {
	Detail      string
	Remediation string
	Err         *HTTPError
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable: %s", e.Detail)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

const backendRemediation = "The API is up but cannot reach its database. " +
	"Restart the API server, check its database connection, then retry. " +
	"Run `household doctor` to check connectivity."

// RequestTimeoutError reports a request cancelled because its deadline passed.
// Timeout is the time the request was allowed.
type RequestTimeoutError struct {
	Method  string
	Path    string
	Timeout time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s: %s %s", e.Timeout, e.Method, e.Path)
}

func (e *RequestTimeoutError) Unwrap() error { return context.DeadlineExceeded }

// ResponseTooLargeError reports a response body over the client's size limit.
type ResponseTooLargeError struct {
	Method string
	Path   string
	Limit  int64
}

func (e *ResponseTooLargeError) Error() string {
	return fmt.Sprintf("response too large: %s %s exceeds %d bytes", e.Method, e.Path, e.Limit)
}

// UnreachableError reports that the API server could not be contacted at all.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("cannot reach API at %s: %v (is the server running? try `household doctor`)", e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsTimeout reports whether err is a RequestTimeoutError.
func IsTimeout(err error) bool {
	var te *RequestTimeoutError
	return errors.As(err, &te)
}

// IsBackendUnavailable reports whether err is a BackendUnavailableError.
func IsBackendUnavailable(err error) bool {
	var be *BackendUnavailableError
	return errors.As(err, &be)
}
