package sink

import (
	"fmt"
	"sync"

	"github.com/nao1215/fipecrawler/internal/model"
	"github.com/nao1215/fipecrawler/internal/report"
)

// Summary tallies events for the run report.
type Summary struct {
	mu       sync.Mutex
	records  int
	tables   map[string]int
	brands   map[string]int
	warnings int
	errors   int
}

var _ Sink = (*Summary)(nil)

// NewSummary creates an empty collector.
func NewSummary() *Summary {
	return &Summary{
		tables: make(map[string]int),
		brands: make(map[string]int),
	}
}

// OnRecord implements Sink.
func (s *Summary) OnRecord(record model.VehicleRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records++
	s.tables[tableLabel(record)]++
	s.brands[record.Brand]++
}

func tableLabel(r model.VehicleRecord) string {
	return fmt.Sprintf("%s/%s (ID: %s)", r.RefMonth, r.RefYear, r.TableID)
}

// OnProgress implements Sink.
func (s *Summary) OnProgress(model.Stage, int, int) {}

// OnCurrentVehicle implements Sink.
func (s *Summary) OnCurrentVehicle(string, string, string) {}

// OnLog implements Sink.
func (s *Summary) OnLog(_ string, level model.LogLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch level {
	case model.LevelWarning:
		s.warnings++
	case model.LevelError:
		s.errors++
	default:
	}
}

// Report returns the tallies as a report.Summary. Run metadata such as
// state and timestamps is left for the caller.
func (s *Summary) Report() *report.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &report.Summary{
		Records:  s.records,
		Warnings: s.warnings,
		Errors:   s.errors,
		ByTable:  report.Counts(s.tables),
		ByBrand:  report.Counts(s.brands),
	}
}
