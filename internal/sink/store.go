package sink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nao1215/fipecrawler/internal/model"
)

// DefaultStoreBatch is the number of records buffered before a write.
const DefaultStoreBatch = 50

// RecordWriter persists records, ignoring keys it already holds.
// database.CrawlDB and database.PostgresStore implement it.
type RecordWriter interface {
	InsertVehicles(ctx context.Context, runID string, records []model.VehicleRecord) (int, error)
}

// Store buffers records and writes them to a RecordWriter in batches.
type Store struct {
	mu       sync.Mutex
	ctx      context.Context //nolint:containedctx // sink methods carry no context
	name     string
	w        RecordWriter
	runID    string
	batch    int
	buf      []model.VehicleRecord
	inserted int
	logger   *slog.Logger
	err      error
}

var _ Sink = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBatch sets the number of records per write.
func WithBatch(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.batch = n
		}
	}
}

// WithRunID tags written records with a run id.
func WithRunID(id string) StoreOption {
	return func(s *Store) {
		s.runID = id
	}
}

// WithStoreLogger sets the logger used for write failures.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store writing to w. name identifies the destination
// in log messages. Writes use ctx.
func NewStore(ctx context.Context, name string, w RecordWriter, opts ...StoreOption) *Store {
	s := &Store{
		ctx:    ctx,
		name:   name,
		w:      w,
		batch:  DefaultStoreBatch,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnRecord implements Sink.
func (s *Store) OnRecord(record model.VehicleRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = append(s.buf, record)
	if len(s.buf) >= s.batch {
		s.flush()
	}
}

// flush writes the buffer. Failed batches are dropped and logged; the
// checkpoint already marks them processed, so the other sinks keep them.
func (s *Store) flush() {
	if len(s.buf) == 0 {
		return
	}
	n, err := s.w.InsertVehicles(s.ctx, s.runID, s.buf)
	s.inserted += n
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		s.logger.Error("failed to store records", "store", s.name, "records", len(s.buf), "error", err)
	} else if n < len(s.buf) {
		s.logger.Debug("duplicate records ignored", "store", s.name, "duplicates", len(s.buf)-n)
	}
	s.buf = s.buf[:0]
}

// Inserted returns the number of new rows written so far.
func (s *Store) Inserted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted
}

// Err returns the first write error, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// OnProgress implements Sink.
func (s *Store) OnProgress(model.Stage, int, int) {}

// OnCurrentVehicle implements Sink.
func (s *Store) OnCurrentVehicle(string, string, string) {}

// OnLog implements Sink.
func (s *Store) OnLog(string, model.LogLevel) {}

// Close writes any buffered records and returns the first write error.
// It does not close the underlying writer.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	return s.err
}
