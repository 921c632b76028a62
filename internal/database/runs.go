package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusStopped = "stopped"
	RunStatusFailed  = "failed"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the run history.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Records    int
	Tables     int
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun records a new run with a fresh id.
func (cdb *CrawlDB) StartRun(ctx context.Context, startedAt time.Time) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		Status:    RunStatusRunning,
	}
	_, err := cdb.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)`,
		run.ID, startedAt.UTC().Format(time.RFC3339Nano), run.Status)
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// FinishRun stores the outcome of a run.
func (cdb *CrawlDB) FinishRun(ctx context.Context, id string, finishedAt time.Time, status string, records, tables int) error {
	res, err := cdb.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, records = ?, tables = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano), status, records, tables, id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun returns one run.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (Run, error) {
	row := cdb.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, status, records, tables FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns the most recent runs first. A limit of zero or less returns all.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, status, records, tables FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&run.ID, &started, &finished, &run.Status, &run.Records, &run.Tables); err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTimestamp(started)
	if finished.Valid {
		run.FinishedAt = parseTimestamp(finished.String)
	}
	return run, nil
}
