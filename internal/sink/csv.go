package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/fipecrawler/internal/model"
)

// CSV appends records to a CSV file, one flushed row per record.
// The header is written only when the file is new or empty.
type CSV struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	w      *csv.Writer
	logger *slog.Logger
	rows   int
	err    error
}

var _ Sink = (*CSV)(nil)

// NewCSV opens path for appending, creating it and its directory if needed.
// A nil logger uses slog.Default().
func NewCSV(path string, logger *slog.Logger) (*CSV, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create csv directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // user supplied output path
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to stat csv file: %w", err)
	}

	c := &CSV{
		path:   path,
		file:   f,
		w:      csv.NewWriter(f),
		logger: logger,
	}
	if info.Size() == 0 {
		if err := c.writeRow(model.RecordColumns); err != nil {
			_ = f.Close() //nolint:errcheck // already failing
			return nil, err
		}
	}
	return c, nil
}

// Path returns the file being written.
func (c *CSV) Path() string {
	return c.path
}

// Rows returns the number of records written.
func (c *CSV) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Err returns the first write error, if any.
func (c *CSV) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *CSV) writeRow(row []string) error {
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// OnRecord implements Sink.
func (c *CSV) OnRecord(record model.VehicleRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeRow(record.Row()); err != nil {
		if c.err == nil {
			c.err = err
		}
		c.logger.Error("failed to save record", "path", c.path, "key", record.Key, "error", err)
		return
	}
	c.rows++
}

// OnProgress implements Sink.
func (c *CSV) OnProgress(model.Stage, int, int) {}

// OnCurrentVehicle implements Sink.
func (c *CSV) OnCurrentVehicle(string, string, string) {}

// OnLog implements Sink.
func (c *CSV) OnLog(string, model.LogLevel) {}

// Close flushes and closes the file.
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	flushErr := c.w.Error()
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("failed to close csv file: %w", err)
	}
	return flushErr
}

// WriteCSV writes a header and every record to w.
func WriteCSV(w io.Writer, records []model.VehicleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.RecordColumns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
