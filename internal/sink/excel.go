package sink

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/fipecrawler/internal/model"
)

// Excel defaults.
const (
	DefaultSheetName = "FIPE"
	DefaultSaveEvery = 50
)

// priceColumn is the 1-based column of "valor" in model.RecordColumns.
const priceColumn = 12

// Excel writes records to an XLSX workbook. The workbook is saved every
// saveEvery records and on Close.
type Excel struct {
	mu        sync.Mutex
	path      string
	sheet     string
	file      *excelize.File
	next      int
	saveEvery int
	unsaved   int
	logger    *slog.Logger
	err       error
}

var _ Sink = (*Excel)(nil)

// ExcelOption configures an Excel sink.
type ExcelOption func(*Excel)

// WithSaveEvery sets how many records are written between saves.
func WithSaveEvery(n int) ExcelOption {
	return func(e *Excel) {
		if n > 0 {
			e.saveEvery = n
		}
	}
}

// WithExcelLogger sets the logger used for save failures.
func WithExcelLogger(logger *slog.Logger) ExcelOption {
	return func(e *Excel) {
		e.logger = logger
	}
}

// NewExcel opens the workbook at path, or creates it with a header row.
// New rows are appended after the existing ones.
func NewExcel(path string, opts ...ExcelOption) (*Excel, error) {
	e := &Excel{
		path:      path,
		sheet:     DefaultSheetName,
		saveEvery: DefaultSaveEvery,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	f, err := excelize.OpenFile(path)
	switch {
	case err == nil:
		e.file = f
		e.sheet = f.GetSheetName(0)
		rows, err := f.GetRows(e.sheet)
		if err != nil {
			_ = f.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to read excel rows: %w", err)
		}
		e.next = len(rows) + 1
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create excel directory: %w", err)
		}
		e.file = excelize.NewFile()
		if err := e.file.SetSheetName("Sheet1", e.sheet); err != nil {
			return nil, fmt.Errorf("failed to name excel sheet: %w", err)
		}
		e.next = 1
		if err := e.writeHeader(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("error opening Excel file: %w", err)
	}
	return e, nil
}

func (e *Excel) writeHeader() error {
	cell, err := excelize.CoordinatesToCellName(1, e.next)
	if err != nil {
		return err
	}
	header := make([]any, len(model.RecordColumns))
	for i, h := range model.RecordColumns {
		header[i] = h
	}
	if err := e.file.SetSheetRow(e.sheet, cell, &header); err != nil {
		return fmt.Errorf("failed to write excel header: %w", err)
	}
	e.next++
	return nil
}

func (e *Excel) appendRecord(r model.VehicleRecord) error {
	cell, err := excelize.CoordinatesToCellName(1, e.next)
	if err != nil {
		return err
	}
	row := r.Row()
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	values[priceColumn-1] = r.Price.InexactFloat64()

	if err := e.file.SetSheetRow(e.sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write excel row: %w", err)
	}
	e.next++
	return nil
}

// Path returns the workbook path.
func (e *Excel) Path() string {
	return e.path
}

// OnRecord implements Sink.
func (e *Excel) OnRecord(record model.VehicleRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.appendRecord(record); err != nil {
		e.fail(err)
		return
	}
	e.unsaved++
	if e.unsaved >= e.saveEvery {
		if err := e.save(); err != nil {
			e.fail(err)
		}
	}
}

func (e *Excel) fail(err error) {
	if e.err == nil {
		e.err = err
	}
	e.logger.Error("failed to save excel data", "path", e.path, "error", err)
}

func (e *Excel) save() error {
	if err := e.file.SaveAs(e.path); err != nil {
		return fmt.Errorf("error saving Excel file: %w", err)
	}
	e.unsaved = 0
	return nil
}

// Err returns the first write error, if any.
func (e *Excel) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// OnProgress implements Sink.
func (e *Excel) OnProgress(model.Stage, int, int) {}

// OnCurrentVehicle implements Sink.
func (e *Excel) OnCurrentVehicle(string, string, string) {}

// OnLog implements Sink.
func (e *Excel) OnLog(string, model.LogLevel) {}

// Close saves and closes the workbook.
func (e *Excel) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	saveErr := e.save()
	if err := e.file.Close(); err != nil {
		return errors.Join(saveErr, err)
	}
	return saveErr
}

// WriteXLSX writes every record to a new workbook at path.
func WriteXLSX(path string, records []model.VehicleRecord) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	e, err := NewExcel(path, WithSaveEvery(len(records)+1))
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := e.appendRecord(r); err != nil {
			_ = e.file.Close() //nolint:errcheck // already failing
			return err
		}
	}
	return e.Close()
}
