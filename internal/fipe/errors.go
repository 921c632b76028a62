package fipe

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoResult means a request produced nothing usable. The branch that
	// issued it is skipped.
	ErrNoResult = errors.New("no result")

	// ErrRateLimitExhausted is returned when the cumulative Retry-After wait of
	// one request would exceed the configured maximum.
	ErrRateLimitExhausted = errors.New("rate limit wait exhausted")

	// ErrInvalidJSON is returned for a 2xx answer whose body is not JSON.
	ErrInvalidJSON = errors.New("response body is not valid JSON")

	// ErrMalformedPayload is returned when valid JSON does not have the expected shape.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInvalidProxyAddress is returned when proxy_address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")
)

// TransportError reports a request that was given up on.
// It matches ErrNoResult with errors.Is, as well as its cause.
type TransportError struct {
	// Endpoint is the logical endpoint name, e.g. "marcas".
	Endpoint string

	// Attempts is the number of failed attempts counted against the retry budget.
	Attempts int

	// Err is the last failure.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("fipe %s: no result after %d failed attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

// Unwrap exposes both ErrNoResult and the last failure.
func (e *TransportError) Unwrap() []error {
	return []error{ErrNoResult, e.Err}
}

// StatusError is a non-2xx answer other than 429.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
