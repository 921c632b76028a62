package report

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Output formats accepted by NewWriter.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// maxBrands is the number of brands listed before the rest are grouped.
const maxBrands = 10

// Writer renders a Summary.
type Writer interface {
	// Write outputs the summary and returns the number of bytes written.
	Write(s *Summary) (int, error)
}

// NewWriter returns the writer for format. An empty format means text.
func NewWriter(format string, output io.Writer, version string) (Writer, error) {
	switch format {
	case "", FormatText:
		return NewSimpleWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output, version), nil
	case FormatJSON:
		return NewJSONWriter(output, version, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// stateText returns a one-line description of how the run ended.
func stateText(s *Summary) string {
	switch s.State {
	case StateDone:
		return "Complete"
	case StateStopped:
		if s.StopReason != "" {
			return "Stopped (" + s.StopReason + ")"
		}
		return "Stopped"
	case StateFailed:
		if s.StopReason != "" {
			return "Failed - " + s.StopReason
		}
		return "Failed"
	default:
		return "Unknown"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}
