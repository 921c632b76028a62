package config

import (
	"errors"
	"fmt"
)

// Error is a configuration error. It is the only error class that aborts a
// crawl before it starts; every other failure is absorbed during the run.
type Error struct {
	// Key is the configuration key at fault, e.g. "api_endpoints.veiculo".
	Key string

	// Err describes what is wrong with the key.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying cause so errors.Is matches the sentinels below.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err as a configuration error for key.
func newError(key string, err error) *Error {
	return &Error{Key: key, Err: err}
}

// Configuration errors.
// They are wrapped in *Error, so callers can use errors.Is for the cause and
// errors.As to recover the offending key.
var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrMissingKey is returned when a required key is absent from the file.
	ErrMissingKey = errors.New("required key is missing")

	// ErrUnknownEndpoint is returned when a request names an endpoint that is
	// not present in api_endpoints.
	ErrUnknownEndpoint = errors.New("unknown api endpoint")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned when the bucket capacity or refill rate is not positive.
	ErrInvalidRateLimit = errors.New("invalid rate limit: capacity and refill must be positive")

	// ErrInvalidRetries is returned when max_retries is negative.
	ErrInvalidRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidBackoff is returned when a backoff or wait duration is negative.
	ErrInvalidBackoff = errors.New("invalid backoff: must be non-negative")

	// ErrInvalidCheckpointInterval is returned when checkpoint_interval is not positive.
	ErrInvalidCheckpointInterval = errors.New("invalid checkpoint interval: must be positive")

	// ErrInvalidCheckpointBackend is returned for a checkpoint_backend other than file or sqlite.
	ErrInvalidCheckpointBackend = errors.New("invalid checkpoint backend: must be \"file\" or \"sqlite\"")

	// ErrUnknownVehicleType is returned when crawl_vehicle_types names a type
	// that has no label in vehicle_types.
	ErrUnknownVehicleType = errors.New("vehicle type has no label in vehicle_types")

	// ErrInvalidReportFormat is returned for a report format other than text, markdown or json.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, markdown or json")
)
