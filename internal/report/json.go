package report

import (
	"encoding/json"
	"io"
)

// JSONWriter outputs the summary as JSON.
type JSONWriter struct {
	baseWriter

	version string

	// indent enables pretty-printed output.
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a Summary with output metadata.
type JSONReport struct {
	Version        string   `json:"version,omitempty"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
	Summary        *Summary `json:"summary"`
}

// Write outputs the summary wrapped in a JSONReport.
func (w *JSONWriter) Write(s *Summary) (int, error) {
	v := JSONReport{
		Version:        w.version,
		ElapsedSeconds: s.Elapsed().Seconds(),
		Summary:        s,
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
