package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/fipecrawler/internal/model"
)

// DBFileName is the database file name inside the data directory.
const DBFileName = "fipecrawler.db"

// CrawlDB provides SQLite-based storage for records, run history and
// checkpoints. All writes go through a single connection.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_key TEXT NOT NULL UNIQUE,
		run_id TEXT,
		tabela_id TEXT NOT NULL,
		anoref TEXT NOT NULL,
		mesref TEXT NOT NULL,
		tipo TEXT NOT NULL,
		fipe_cod TEXT NOT NULL,
		marca TEXT NOT NULL,
		modelo TEXT NOT NULL,
		anomod TEXT NOT NULL,
		comb_cod TEXT NOT NULL,
		comb_sigla TEXT NOT NULL,
		comb TEXT NOT NULL,
		valor TEXT NOT NULL,
		consulta TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vehicles_tabela ON vehicles(tabela_id);
	CREATE INDEX IF NOT EXISTS idx_vehicles_fipe ON vehicles(fipe_cod);
	CREATE INDEX IF NOT EXISTS idx_vehicles_run ON vehicles(run_id);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		tables INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS checkpoint_keys (
		vehicle_key TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		failures INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS checkpoint_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current_table INTEGER,
		saved_at TEXT NOT NULL
	);
	`
	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// InsertVehicles stores records in one transaction. Records whose key is
// already stored are ignored. It returns the number of rows inserted.
func (cdb *CrawlDB) InsertVehicles(ctx context.Context, runID string, records []model.VehicleRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO vehicles (vehicle_key, run_id, tabela_id, anoref, mesref, tipo, fipe_cod,
		marca, modelo, anomod, comb_cod, comb_sigla, comb, valor, consulta)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(vehicle_key) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			string(r.Key), nullString(runID), r.TableID, r.RefYear, r.RefMonth, r.Type, r.FipeCode,
			r.Brand, r.Model, r.ModelYear, r.FuelCode, r.FuelAbbrev, r.FuelName,
			r.Price.StringFixed(2), r.QueriedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert vehicle %s: %w", r.Key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit vehicles: %w", err)
	}
	return inserted, nil
}

// VehicleFilter narrows ListVehicles. Zero values match everything.
type VehicleFilter struct {
	TableID string
	RunID   string
	Brand   string
}

// ListVehicles returns stored records in insertion order.
func (cdb *CrawlDB) ListVehicles(ctx context.Context, filter VehicleFilter) ([]model.VehicleRecord, error) {
	query := `
	SELECT vehicle_key, tabela_id, anoref, mesref, tipo, fipe_cod, marca, modelo,
		anomod, comb_cod, comb_sigla, comb, valor, consulta
	FROM vehicles`

	var (
		where []string
		args  []any
	)
	if filter.TableID != "" {
		where = append(where, "tabela_id = ?")
		args = append(args, filter.TableID)
	}
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Brand != "" {
		where = append(where, "marca = ?")
		args = append(args, filter.Brand)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var records []model.VehicleRecord
	for rows.Next() {
		var r model.VehicleRecord
		var key, price, ts string
		if err := rows.Scan(&key, &r.TableID, &r.RefYear, &r.RefMonth, &r.Type, &r.FipeCode,
			&r.Brand, &r.Model, &r.ModelYear, &r.FuelCode, &r.FuelAbbrev, &r.FuelName, &price, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		r.Key = model.VehicleKey(key)
		r.Price, err = decimal.NewFromString(price)
		if err != nil {
			r.Price = decimal.Zero
		}
		r.QueriedAt = parseTimestamp(ts)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountVehicles returns the number of stored records.
func (cdb *CrawlDB) CountVehicles(ctx context.Context) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vehicles: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timestampFormats lists formats that may be returned by SQLite.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a stored timestamp. It returns the zero time when
// no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
