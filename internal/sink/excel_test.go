package sink

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/fipecrawler/internal/model"
)

func readXLSX(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestExcel(t *testing.T) {
	t.Parallel()

	t.Run("saves periodically and on close", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "fipe.xlsx")
		e, err := NewExcel(path, WithSaveEvery(2), WithExcelLogger(discardLogger))
		if err != nil {
			t.Fatalf("NewExcel() error = %v", err)
		}

		e.OnRecord(testRecord("k1", "Fiat"))
		e.OnRecord(testRecord("k2", "Ford"))
		if rows := readXLSX(t, path); len(rows) != 3 {
			t.Errorf("expected header and 2 rows after save, got %d", len(rows))
		}

		e.OnRecord(testRecord("k3", "VW"))
		if err := e.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if e.Err() != nil {
			t.Errorf("unexpected error %v", e.Err())
		}

		rows := readXLSX(t, path)
		if len(rows) != 4 {
			t.Fatalf("expected 4 rows, got %d", len(rows))
		}
		if rows[0][0] != "tabela_id" || rows[3][5] != "VW" {
			t.Errorf("unexpected rows %v", rows)
		}
	})

	t.Run("appends to an existing workbook", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "fipe.xlsx")
		e, err := NewExcel(path)
		if err != nil {
			t.Fatal(err)
		}
		e.OnRecord(testRecord("k1", "Fiat"))
		if err := e.Close(); err != nil {
			t.Fatal(err)
		}

		e2, err := NewExcel(path)
		if err != nil {
			t.Fatal(err)
		}
		e2.OnRecord(testRecord("k2", "Ford"))
		if err := e2.Close(); err != nil {
			t.Fatal(err)
		}

		rows := readXLSX(t, path)
		if len(rows) != 3 || rows[2][5] != "Ford" {
			t.Errorf("unexpected rows %v", rows)
		}
	})
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.xlsx")
	records := []model.VehicleRecord{testRecord("k1", "Fiat"), testRecord("k2", "Ford")}

	if err := WriteXLSX(path, records); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}
	// writing again replaces the file
	if err := WriteXLSX(path, records[:1]); err != nil {
		t.Fatal(err)
	}

	rows := readXLSX(t, path)
	if len(rows) != 2 {
		t.Fatalf("expected header and 1 row, got %d", len(rows))
	}
	if rows[1][11] != "45678.9" {
		t.Errorf("expected numeric price cell, got %q", rows[1][11])
	}
}
