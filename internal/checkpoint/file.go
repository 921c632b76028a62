package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/nao1215/fipecrawler/internal/model"
)

// formatVersion is bumped whenever fileFormat changes incompatibly.
const formatVersion = 1

// fileFormat is the on-disk CBOR document.
type fileFormat struct {
	Version        int            `cbor:"1,keyasint"`
	ProcessedKeys  []string       `cbor:"2,keyasint"`
	SkippedKeys    []string       `cbor:"3,keyasint,omitempty"`
	Failures       map[string]int `cbor:"4,keyasint,omitempty"`
	CurrentTableID *int           `cbor:"5,keyasint,omitempty"`
	SavedAt        time.Time      `cbor:"6,keyasint"`
}

var encMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// FileStore keeps the state in a single CBOR file. Saves write a temporary
// file in the same directory, sync it and rename it over the target, so a
// crash leaves either the old or the new checkpoint.
type FileStore struct {
	path     string
	interval int
	logger   *slog.Logger
	now      func() time.Time
	retry    bool
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithInterval sets the batch interval.
func WithInterval(n int) FileOption {
	return func(s *FileStore) {
		s.interval = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// WithClock sets the clock used for SavedAt.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) {
		s.now = now
	}
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{
		path:     path,
		interval: DefaultBatchInterval,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the checkpoint file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) *State {
	state, err := ReadFile(s.path)
	if err != nil {
		s.logger.Warn("checkpoint not found or corrupt, starting from scratch", "path", s.path, "error", err)
		return NewState()
	}
	s.logger.Info("checkpoint loaded",
		"path", s.path,
		"processed", state.Processed(),
		"skipped", len(state.SkippedKeys),
		"saved_at", state.SavedAt)
	return state
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, state *State, force bool) error {
	if !force && !s.retry && !due(state, s.interval) {
		return nil
	}

	savedAt := s.now()
	if err := WriteFile(s.path, state, savedAt); err != nil {
		s.retry = true
		return err
	}
	s.retry = false
	state.SavedAt = savedAt
	s.logger.Debug("checkpoint saved", "path", s.path, "processed", state.Processed())
	return nil
}

// Reset deletes the checkpoint file. A missing file is not an error.
func (s *FileStore) Reset(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ReadFile decodes a checkpoint file. Any problem is reported as ErrUnavailable.
func ReadFile(path string) (*State, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var doc fileFormat
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%w: %w: %d", ErrUnavailable, ErrUnsupportedVersion, doc.Version)
	}

	state := NewState()
	for _, k := range doc.ProcessedKeys {
		state.ProcessedKeys[model.VehicleKey(k)] = struct{}{}
	}
	for _, k := range doc.SkippedKeys {
		state.SkippedKeys[model.VehicleKey(k)] = struct{}{}
	}
	for k, n := range doc.Failures {
		state.Failures[model.VehicleKey(k)] = n
	}
	state.CurrentTableID = doc.CurrentTableID
	state.SavedAt = doc.SavedAt
	return state, nil
}

// WriteFile atomically replaces path with state stamped at savedAt.
func WriteFile(path string, state *State, savedAt time.Time) error {
	doc := fileFormat{
		Version:        formatVersion,
		ProcessedKeys:  sortedKeys(state.ProcessedKeys),
		SkippedKeys:    sortedKeys(state.SkippedKeys),
		CurrentTableID: state.CurrentTableID,
		SavedAt:        savedAt,
	}
	if len(state.Failures) > 0 {
		doc.Failures = make(map[string]int, len(state.Failures))
		for k, n := range state.Failures {
			doc.Failures[string(k)] = n
		}
	}

	data, err := encMode.Marshal(doc)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func sortedKeys(set map[model.VehicleKey]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
