package database

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/nao1215/fipecrawler/internal/model"
)

func TestQueueVehicle(t *testing.T) {
	t.Parallel()

	b := &pgx.Batch{}
	queueVehicle(b, "run-1", testRecord("k1", "308", "Fiat", "10.50"))
	queueVehicle(b, "", testRecord("k2", "308", "Fiat", "11.00"))

	if b.Len() != 2 {
		t.Fatalf("expected 2 queued statements, got %d", b.Len())
	}
	first := b.QueuedQueries[0]
	if first.SQL != postgresInsert {
		t.Errorf("unexpected SQL %q", first.SQL)
	}
	if len(first.Arguments) != 15 {
		t.Fatalf("expected 15 arguments, got %d", len(first.Arguments))
	}
	if first.Arguments[13] != "10.50" {
		t.Errorf("expected price argument 10.50, got %v", first.Arguments[13])
	}
	if run, ok := b.QueuedQueries[1].Arguments[1].(*string); !ok || run != nil {
		t.Errorf("expected nil run id, got %v", b.QueuedQueries[1].Arguments[1])
	}
}

// TestPostgresStore runs against a real server when FIPECRAWLER_TEST_POSTGRES_DSN is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("FIPECRAWLER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FIPECRAWLER_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn, 1)
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	defer store.Close() //nolint:errcheck // test cleanup

	if _, err := store.pool.Exec(ctx, "DELETE FROM fipe_vehicles WHERE vehicle_key LIKE 'test-%'"); err != nil {
		t.Fatal(err)
	}

	records := []model.VehicleRecord{
		testRecord("test-1", "308", "Fiat", "10.50"),
		testRecord("test-2", "308", "Ford", "20.00"),
	}
	inserted, err := store.InsertVehicles(ctx, "run-pg", records)
	if err != nil {
		t.Fatal(err)
	}
	if inserted != 2 {
		t.Errorf("expected 2 inserted, got %d", inserted)
	}
	inserted, err = store.InsertVehicles(ctx, "run-pg", records)
	if err != nil {
		t.Fatal(err)
	}
	if inserted != 0 {
		t.Errorf("expected duplicates ignored, got %d inserted", inserted)
	}
}
