package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nao1215/fipecrawler/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close() //nolint:errcheck // test cleanup
	})
	return db
}

func testRecord(key, tableID, brand, price string) model.VehicleRecord {
	return model.VehicleRecord{
		Key:        model.VehicleKey(key),
		TableID:    tableID,
		RefYear:    "2024",
		RefMonth:   "01",
		Type:       "carro",
		FipeCode:   "001004-9",
		Brand:      brand,
		Model:      "Uno",
		ModelYear:  "2020",
		FuelCode:   "1",
		FuelAbbrev: "G",
		FuelName:   "Gasolina",
		Price:      decimal.RequireFromString(price),
		QueriedAt:  time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("unexpected error %q", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db1.InsertVehicles(context.Background(), "", []model.VehicleRecord{testRecord("k1", "308", "Fiat", "10.00")}); err != nil {
			t.Fatal(err)
		}
		_ = db1.Close() //nolint:errcheck // reopened below

		db2, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer db2.Close() //nolint:errcheck // test cleanup

		n, err := db2.CountVehicles(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("expected 1 vehicle, got %d", n)
		}
	})
}

func TestInsertVehicles(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	records := []model.VehicleRecord{
		testRecord("308-1-21-4828-2020-1", "308", "Fiat", "45678.00"),
		testRecord("308-1-22-5000-2021-1", "308", "Ford", "1234.56"),
		testRecord("307-1-21-4828-2020-1", "307", "Fiat", "44000.10"),
	}

	inserted, err := db.InsertVehicles(ctx, "run-1", records)
	if err != nil {
		t.Fatalf("InsertVehicles() error = %v", err)
	}
	if inserted != 3 {
		t.Errorf("expected 3 inserted, got %d", inserted)
	}

	t.Run("duplicates are ignored", func(t *testing.T) {
		inserted, err := db.InsertVehicles(ctx, "run-2", records[:2])
		if err != nil {
			t.Fatal(err)
		}
		if inserted != 0 {
			t.Errorf("expected 0 inserted, got %d", inserted)
		}
	})

	t.Run("list all keeps insertion order and values", func(t *testing.T) {
		got, err := db.ListVehicles(ctx, VehicleFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 records, got %d", len(got))
		}
		for i := range records {
			if got[i].Key != records[i].Key {
				t.Errorf("record %d: key %q, want %q", i, got[i].Key, records[i].Key)
			}
			if !got[i].Price.Equal(records[i].Price) {
				t.Errorf("record %d: price %s, want %s", i, got[i].Price, records[i].Price)
			}
			if !got[i].QueriedAt.Equal(records[i].QueriedAt) {
				t.Errorf("record %d: queried at %v, want %v", i, got[i].QueriedAt, records[i].QueriedAt)
			}
		}
		if got[0].FipeCode != "001004-9" || got[0].FuelName != "Gasolina" {
			t.Errorf("unexpected fields %+v", got[0])
		}
	})

	t.Run("filters", func(t *testing.T) {
		byTable, err := db.ListVehicles(ctx, VehicleFilter{TableID: "308"})
		if err != nil {
			t.Fatal(err)
		}
		if len(byTable) != 2 {
			t.Errorf("expected 2 records for table 308, got %d", len(byTable))
		}

		byBrand, err := db.ListVehicles(ctx, VehicleFilter{TableID: "308", Brand: "Ford"})
		if err != nil {
			t.Fatal(err)
		}
		if len(byBrand) != 1 || byBrand[0].Brand != "Ford" {
			t.Errorf("unexpected brand filter result %+v", byBrand)
		}

		byRun, err := db.ListVehicles(ctx, VehicleFilter{RunID: "run-2"})
		if err != nil {
			t.Fatal(err)
		}
		if len(byRun) != 0 {
			t.Errorf("expected no records for run-2, got %d", len(byRun))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		n, err := db.InsertVehicles(ctx, "", nil)
		if err != nil || n != 0 {
			t.Errorf("expected (0, nil), got (%d, %v)", n, err)
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-01-15T10:00:00Z", "2024-01-15 10:00:00"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}
	if got := parseTimestamp("yesterday"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
