package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultSQLitePath is the database file used when no path is configured.
const DefaultSQLitePath = "output/cv_scores.db"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	filename   TEXT NOT NULL,
	fields     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_filename ON records(filename);`

// SQLiteStore is an append log of variant-shaped records. Each row keeps its own field list,
// so differing shapes never interfere; columns are reconciled only on export.
type SQLiteStore struct {
	db   *sql.DB
	path string
	index
}

// OpenSQLite opens (or creates) the database at path and loads existing records.
// Pass ":memory:" for an in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &PersistenceError{Op: "create directory", Path: filepath.Dir(path), Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode=WAL", "PRAGMA synchronous=FULL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, &PersistenceError{Op: "configure", Path: path, Err: err}
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "migrate", Path: path, Err: err}
	}

	s := &SQLiteStore{db: db, path: path, index: newIndex()}
	if _, err := s.Load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Location() string { return s.path }

func (s *SQLiteStore) Contains(filename string) bool { return s.contains(filename) }

func (s *SQLiteStore) Records() []Record { return s.list() }

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Load reads every row in append order.
func (s *SQLiteStore) Load() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT filename, fields FROM records ORDER BY seq`)
	if err != nil {
		return nil, &PersistenceError{Op: "query", Path: s.path, Err: err}
	}
	defer rows.Close()

	idx := newIndex()
	for rows.Next() {
		var (
			rec     Record
			payload string
		)
		if err := rows.Scan(&rec.Filename, &payload); err != nil {
			return nil, &PersistenceError{Op: "scan", Path: s.path, Err: err}
		}
		if err := json.Unmarshal([]byte(payload), &rec.Fields); err != nil {
			return nil, &PersistenceError{Op: "decode", Path: s.path, Err: fmt.Errorf("record %q: %w", rec.Filename, err)}
		}
		idx.add(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate", Path: s.path, Err: err}
	}

	s.index = idx
	return s.snapshot(), nil
}

// Append inserts the record in its own committed transaction.
func (s *SQLiteStore) Append(rec Record) error {
	if err := validateRecord(rec); err != nil {
		return &PersistenceError{Op: "append", Path: s.path, Err: err}
	}

	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return &PersistenceError{Op: "encode", Path: s.path, Err: err}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "begin", Path: s.path, Err: err}
	}
	if _, err := tx.Exec(
		`INSERT INTO records (filename, fields, created_at) VALUES (?, ?, ?)`,
		rec.Filename, string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		tx.Rollback()
		return &PersistenceError{Op: "insert", Path: s.path, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Path: s.path, Err: err}
	}

	s.add(rec)
	return nil
}
