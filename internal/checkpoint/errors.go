package checkpoint

import (
	"errors"
	"fmt"
)

// ErrUnavailable means no usable checkpoint exists; the run starts cold.
var ErrUnavailable = errors.New("checkpoint unavailable")

// ErrUnsupportedVersion means the checkpoint was written by an incompatible format.
var ErrUnsupportedVersion = errors.New("unsupported checkpoint format version")

// WriteError reports a failed save. It is logged and never aborts a run.
type WriteError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write checkpoint %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}
