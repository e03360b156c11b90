package store

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStoreAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "scores.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.Append(record("a.pdf", "creativity_score", "8")); err != nil {
		t.Fatalf("append a: %v", err)
	}
	if err := s.Append(record("b.pdf", "creativity_score", "6", "leadership_score", "4")); err != nil {
		t.Fatalf("append b: %v", err)
	}
	if !s.Contains("b.pdf") || s.Contains("B.pdf") {
		t.Fatalf("unexpected membership")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records := reopened.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Filename != "a.pdf" || records[1].Filename != "b.pdf" {
		t.Fatalf("unexpected order: %+v", records)
	}
	if v, _ := records[1].Get("leadership_score"); v != "4" {
		t.Fatalf("unexpected fields: %+v", records[1])
	}
	if _, ok := records[0].Get("leadership_score"); ok {
		t.Fatalf("first record must keep its own shape")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	csvStore, err := Open(BackendCSV, filepath.Join(dir, "a.csv"))
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if _, ok := csvStore.(*CSVStore); !ok {
		t.Fatalf("expected CSVStore, got %T", csvStore)
	}

	sqliteStore, err := Open(BackendSQLite, ":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer sqliteStore.Close()
	if _, ok := sqliteStore.(*SQLiteStore); !ok {
		t.Fatalf("expected SQLiteStore, got %T", sqliteStore)
	}

	if _, err := Open("parquet", ""); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}
}
