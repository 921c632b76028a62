package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/fipecrawler/internal/checkpoint"
	"github.com/nao1215/fipecrawler/internal/model"
)

// Key states stored in checkpoint_keys.
const (
	keyProcessed = "processed"
	keySkipped   = "skipped"
	keyFailed    = "failed"
)

// keyState is the persisted form of one checkpoint key.
type keyState struct {
	state    string
	failures int
}

// CheckpointStore implements checkpoint.Store on top of CrawlDB.
// Each save writes only the keys that changed since the previous one, in a
// single transaction, so the table behaves as an append-only log of
// processed keys.
type CheckpointStore struct {
	cdb      *CrawlDB
	interval int
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	persisted map[model.VehicleKey]keyState
	retry     bool
}

var _ checkpoint.Store = (*CheckpointStore)(nil)

// NewCheckpointStore creates a checkpoint store. A non-positive interval
// uses checkpoint.DefaultBatchInterval; a nil logger uses slog.Default().
func NewCheckpointStore(cdb *CrawlDB, interval int, logger *slog.Logger) *CheckpointStore {
	if interval <= 0 {
		interval = checkpoint.DefaultBatchInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckpointStore{
		cdb:       cdb,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		persisted: make(map[model.VehicleKey]keyState),
	}
}

// Load implements checkpoint.Store.
func (s *CheckpointStore) Load(ctx context.Context) *checkpoint.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, persisted, err := s.read(ctx)
	if err != nil {
		s.logger.Warn("checkpoint not found or corrupt, starting from scratch", "path", s.cdb.Path(), "error", err)
		s.persisted = make(map[model.VehicleKey]keyState)
		return checkpoint.NewState()
	}
	s.persisted = persisted
	s.logger.Info("checkpoint loaded", "path", s.cdb.Path(), "processed", state.Processed(), "saved_at", state.SavedAt)
	return state
}

func (s *CheckpointStore) read(ctx context.Context) (*checkpoint.State, map[model.VehicleKey]keyState, error) {
	var (
		current sql.NullInt64
		savedAt string
	)
	err := s.cdb.db.QueryRowContext(ctx, `SELECT current_table, saved_at FROM checkpoint_meta WHERE id = 1`).Scan(&current, &savedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", checkpoint.ErrUnavailable, err)
	}

	state := checkpoint.NewState()
	state.SavedAt = parseTimestamp(savedAt)
	if current.Valid {
		state.SetCurrentTable(int(current.Int64))
	}

	rows, err := s.cdb.db.QueryContext(ctx, `SELECT vehicle_key, state, failures FROM checkpoint_keys`)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", checkpoint.ErrUnavailable, err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	persisted := make(map[model.VehicleKey]keyState)
	for rows.Next() {
		var (
			key string
			ks  keyState
		)
		if err := rows.Scan(&key, &ks.state, &ks.failures); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", checkpoint.ErrUnavailable, err)
		}
		k := model.VehicleKey(key)
		switch ks.state {
		case keyProcessed:
			state.ProcessedKeys[k] = struct{}{}
		case keySkipped:
			state.SkippedKeys[k] = struct{}{}
		case keyFailed:
			state.Failures[k] = ks.failures
		default:
			continue
		}
		persisted[k] = ks
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", checkpoint.ErrUnavailable, err)
	}
	return state, persisted, nil
}

// Save implements checkpoint.Store.
func (s *CheckpointStore) Save(ctx context.Context, state *checkpoint.State, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && !s.retry && state.Processed()%s.interval != 0 {
		return nil
	}

	desired := make(map[model.VehicleKey]keyState, len(state.ProcessedKeys)+len(state.SkippedKeys)+len(state.Failures))
	for k := range state.ProcessedKeys {
		desired[k] = keyState{state: keyProcessed}
	}
	for k := range state.SkippedKeys {
		desired[k] = keyState{state: keySkipped}
	}
	for k, n := range state.Failures {
		if _, done := desired[k]; !done {
			desired[k] = keyState{state: keyFailed, failures: n}
		}
	}

	savedAt := s.now()
	if err := s.write(ctx, desired, state.CurrentTableID, savedAt); err != nil {
		s.retry = true
		return &checkpoint.WriteError{Path: s.cdb.Path(), Err: err}
	}
	s.retry = false
	s.persisted = desired
	state.SavedAt = savedAt
	return nil
}

func (s *CheckpointStore) write(ctx context.Context, desired map[model.VehicleKey]keyState, current *int, savedAt time.Time) error {
	tx, err := s.cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	upsert, err := tx.PrepareContext(ctx, `
	INSERT INTO checkpoint_keys (vehicle_key, state, failures) VALUES (?, ?, ?)
	ON CONFLICT(vehicle_key) DO UPDATE SET state = excluded.state, failures = excluded.failures
	`)
	if err != nil {
		return err
	}
	defer upsert.Close() //nolint:errcheck // closed with the transaction

	for k, ks := range desired {
		if s.persisted[k] == ks {
			continue
		}
		if _, err := upsert.ExecContext(ctx, string(k), ks.state, ks.failures); err != nil {
			return err
		}
	}
	for k := range s.persisted {
		if _, ok := desired[k]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_keys WHERE vehicle_key = ?`, string(k)); err != nil {
			return err
		}
	}

	var table sql.NullInt64
	if current != nil {
		table = sql.NullInt64{Int64: int64(*current), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO checkpoint_meta (id, current_table, saved_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET current_table = excluded.current_table, saved_at = excluded.saved_at
	`, table, savedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}

	return tx.Commit()
}

// Reset deletes the stored checkpoint.
func (s *CheckpointStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_keys`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_meta`); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.persisted = make(map[model.VehicleKey]keyState)
	return nil
}
