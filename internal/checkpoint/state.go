package checkpoint

import (
	"context"
	"time"

	"github.com/nao1215/fipecrawler/internal/model"
)

// DefaultBatchInterval persists the state every 50 processed leaves.
const DefaultBatchInterval = 50

// Store persists crawl state.
type Store interface {
	// Load returns the saved state, or an empty state when none is usable.
	Load(ctx context.Context) *State

	// Save persists state when force is set or the number of processed keys
	// is a multiple of the batch interval. A failed write is retried on the
	// next call regardless of the interval.
	Save(ctx context.Context, state *State, force bool) error
}

// Resetter is implemented by stores that can discard their saved state.
type Resetter interface {
	Reset(ctx context.Context) error
}

// State is the progress of a crawl. It is owned by a single engine and is
// not safe for concurrent use.
type State struct {
	// ProcessedKeys holds every leaf whose record was emitted.
	ProcessedKeys map[model.VehicleKey]struct{}

	// SkippedKeys holds leaves given up on after repeated empty answers.
	SkippedKeys map[model.VehicleKey]struct{}

	// Failures counts empty detail answers per leaf not yet skipped.
	Failures map[model.VehicleKey]int

	// CurrentTableID is the table being walked when the state was saved.
	CurrentTableID *int

	// SavedAt is the time of the last successful save.
	SavedAt time.Time
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		ProcessedKeys: make(map[model.VehicleKey]struct{}),
		SkippedKeys:   make(map[model.VehicleKey]struct{}),
		Failures:      make(map[model.VehicleKey]int),
	}
}

// IsProcessed reports whether key was already emitted.
func (s *State) IsProcessed(key model.VehicleKey) bool {
	_, ok := s.ProcessedKeys[key]
	return ok
}

// IsSkipped reports whether key was permanently skipped.
func (s *State) IsSkipped(key model.VehicleKey) bool {
	_, ok := s.SkippedKeys[key]
	return ok
}

// Settled reports whether key needs no further request.
func (s *State) Settled(key model.VehicleKey) bool {
	return s.IsProcessed(key) || s.IsSkipped(key)
}

// MarkProcessed records key as emitted and forgets its failures.
func (s *State) MarkProcessed(key model.VehicleKey) {
	s.ProcessedKeys[key] = struct{}{}
	delete(s.Failures, key)
}

// RecordFailure counts an empty detail answer for key. Once the count
// reaches limit the key moves to SkippedKeys and true is returned.
// A limit of zero or less never skips.
func (s *State) RecordFailure(key model.VehicleKey, limit int) bool {
	s.Failures[key]++
	if limit <= 0 || s.Failures[key] < limit {
		return false
	}
	delete(s.Failures, key)
	s.SkippedKeys[key] = struct{}{}
	return true
}

// SetCurrentTable records the table being walked.
func (s *State) SetCurrentTable(id int) {
	s.CurrentTableID = &id
}

// Processed returns the number of processed keys.
func (s *State) Processed() int {
	return len(s.ProcessedKeys)
}

// due reports whether a non-forced save should write.
func due(s *State, interval int) bool {
	if interval <= 0 {
		interval = DefaultBatchInterval
	}
	return s.Processed()%interval == 0
}
