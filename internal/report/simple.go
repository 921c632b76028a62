package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// SimpleWriter outputs a human-readable text summary.
type SimpleWriter struct {
	baseWriter

	// showAllBrands lists every brand instead of the top ones.
	showAllBrands bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithAllBrands lists every brand in the output.
func WithAllBrands(all bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showAllBrands = all
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *SimpleWriter) Write(s *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeCounts(&sb, "RECORDS PER TABLE", s.ByTable)

	brands := s.ByBrand
	if !w.showAllBrands {
		brands = top(brands, maxBrands)
	}
	w.writeCounts(&sb, "RECORDS PER BRAND", brands)

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        FIPE CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if s.RunID != "" {
		fmt.Fprintf(sb, "Run:       %s\n", s.RunID)
	}
	fmt.Fprintf(sb, "Started:   %s\n", formatTime(s.StartedAt))
	fmt.Fprintf(sb, "Finished:  %s\n", formatTime(s.FinishedAt))
	fmt.Fprintf(sb, "Elapsed:   %s\n", s.Elapsed().Round(time.Second))
	fmt.Fprintf(sb, "Status:    %s\n", stateText(s))
	fmt.Fprintf(sb, "Tables:    %d\n", s.Tables)
	fmt.Fprintf(sb, "Records:   %d\n", s.Records)
	if s.Warnings > 0 || s.Errors > 0 {
		fmt.Fprintf(sb, "Warnings:  %d\n", s.Warnings)
		fmt.Fprintf(sb, "Errors:    %d\n", s.Errors)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, title string, counts []Count) {
	if len(counts) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, c := range counts {
		fmt.Fprintf(sb, "  %-40s %8d\n", c.Name, c.Count)
	}
	sb.WriteString("\n")
}
