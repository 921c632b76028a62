package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nao1215/fipecrawler/internal/model"
)

// DefaultPostgresBatch is the number of inserts sent per round trip.
const DefaultPostgresBatch = 200

// postgresSchema creates the vehicles table. Prices are exact numerics.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS fipe_vehicles (
	vehicle_key TEXT PRIMARY KEY,
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
	valor NUMERIC(14,2) NOT NULL,
	consulta TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fipe_vehicles_tabela ON fipe_vehicles(tabela_id);
`

const postgresInsert = `
INSERT INTO fipe_vehicles (vehicle_key, run_id, tabela_id, anoref, mesref, tipo, fipe_cod,
	marca, modelo, anomod, comb_cod, comb_sigla, comb, valor, consulta)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14::text::numeric,$15)
ON CONFLICT (vehicle_key) DO NOTHING`

// PostgresStore writes records to PostgreSQL.
type PostgresStore struct {
	pool  *pgxpool.Pool
	batch int
}

// OpenPostgres connects to dsn and creates the table if needed.
// A non-positive batch uses DefaultPostgresBatch.
func OpenPostgres(ctx context.Context, dsn string, batch int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create postgres schema: %w", err)
	}

	if batch <= 0 {
		batch = DefaultPostgresBatch
	}
	return &PostgresStore{pool: pool, batch: batch}, nil
}

// InsertVehicles stores records, ignoring keys already present, and
// returns the number of rows inserted.
func (p *PostgresStore) InsertVehicles(ctx context.Context, runID string, records []model.VehicleRecord) (int, error) {
	total := 0
	for i := 0; i < len(records); i += p.batch {
		j := min(i+p.batch, len(records))

		b := &pgx.Batch{}
		for _, r := range records[i:j] {
			queueVehicle(b, runID, r)
		}

		br := p.pool.SendBatch(ctx, b)
		for range j - i {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close() //nolint:errcheck // already failing
				return total, fmt.Errorf("failed to insert vehicle: %w", err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func queueVehicle(b *pgx.Batch, runID string, r model.VehicleRecord) {
	var run *string
	if runID != "" {
		run = &runID
	}
	b.Queue(postgresInsert,
		string(r.Key), run, r.TableID, r.RefYear, r.RefMonth, r.Type, r.FipeCode,
		r.Brand, r.Model, r.ModelYear, r.FuelCode, r.FuelAbbrev, r.FuelName,
		r.Price.StringFixed(2), r.QueriedAt,
	)
}

// Close releases the pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
