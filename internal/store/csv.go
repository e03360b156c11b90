package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultCSVPath is where results land when no path is configured.
const DefaultCSVPath = "output/cv_scores.csv"

// CSVStore keeps records in a single CSV file whose header is the union of all fields seen.
type CSVStore struct {
	path    string
	columns []string
	index
}

// NewCSV returns a store for path. Call Load before use.
func NewCSV(path string) *CSVStore {
	if path == "" {
		path = DefaultCSVPath
	}
	return &CSVStore{path: path, index: newIndex()}
}

// OpenCSV creates the output directory and loads existing records.
func OpenCSV(path string) (*CSVStore, error) {
	s := NewCSV(path)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, &PersistenceError{Op: "create directory", Path: filepath.Dir(s.path), Err: err}
	}
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVStore) Location() string { return s.path }

func (s *CSVStore) Contains(filename string) bool { return s.contains(filename) }

func (s *CSVStore) Records() []Record { return s.list() }

func (s *CSVStore) Close() error { return nil }

// Columns returns the current header.
func (s *CSVStore) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Load reads the whole file into memory. A final row cut short by a crash (no trailing
// newline, fewer fields than the header, or an unterminated quote) is dropped and truncated
// away so the next append starts on a clean line.
func (s *CSVStore) Load() (map[string]struct{}, error) {
	s.index = newIndex()
	s.columns = nil

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.snapshot(), nil
		}
		return nil, &PersistenceError{Op: "open", Path: s.path, Err: err}
	}
	defer file.Close()

	size, terminated, err := tail(file)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return s.snapshot(), nil
		}
		return nil, &PersistenceError{Op: "read header", Path: s.path, Err: err}
	}
	if !terminated && reader.InputOffset() == size {
		return nil, &PersistenceError{Op: "read header", Path: s.path, Err: errors.New("header is not terminated")}
	}

	filenameIdx := -1
	for i, col := range header {
		if col == FilenameColumn {
			filenameIdx = i
			break
		}
	}
	if filenameIdx == -1 {
		return nil, &PersistenceError{Op: "read header", Path: s.path, Err: fmt.Errorf("no %q column", FilenameColumn)}
	}
	s.columns = header

	var (
		pending      []string
		pendingStart int64
	)
	for {
		start := reader.InputOffset()
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && !terminated && isLast(reader) {
				// Unterminated quoted field at the end of the file.
				if pending != nil {
					s.addRow(header, filenameIdx, pending)
				}
				pending, pendingStart = nil, start
				terminated = false
				break
			}
			return nil, &PersistenceError{Op: "read row", Path: s.path, Err: err}
		}

		if pending != nil {
			s.addRow(header, filenameIdx, pending)
		}
		pending, pendingStart = row, start
	}

	torn := !terminated || (pending != nil && len(pending) < len(header))
	if pending != nil && !torn {
		s.addRow(header, filenameIdx, pending)
	}
	if torn {
		if err := truncate(file.Name(), pendingStart); err != nil {
			return nil, &PersistenceError{Op: "truncate torn row", Path: s.path, Err: err}
		}
	}

	return s.snapshot(), nil
}

func (s *CSVStore) addRow(header []string, filenameIdx int, row []string) {
	rec := Record{}
	for i, col := range header {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		if i == filenameIdx {
			rec.Filename = value
			continue
		}
		if value == "" {
			continue
		}
		rec.Fields = append(rec.Fields, Field{Key: col, Value: value})
	}
	if rec.Filename == "" {
		return
	}
	s.add(rec)
}

// isLast reports whether the reader has nothing left after the record just read.
func isLast(reader *csv.Reader) bool {
	_, err := reader.Read()
	return errors.Is(err, io.EOF)
}

// tail returns the file size and whether the file ends with a newline.
func tail(file *os.File) (int64, bool, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, false, err
	}
	if info.Size() == 0 {
		return 0, true, nil
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil {
		return 0, false, err
	}
	return info.Size(), last[0] == '\n', nil
}

func truncate(path string, size int64) error {
	file, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := file.Truncate(size); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Append writes one record. Records that introduce new fields widen the header by rewriting
// the file atomically; otherwise the row is appended in place. Both paths fsync before returning.
func (s *CSVStore) Append(rec Record) error {
	if err := validateRecord(rec); err != nil {
		return &PersistenceError{Op: "append", Path: s.path, Err: err}
	}

	widened := mergeColumns(s.columns, rec.Keys())

	var err error
	if len(s.columns) > 0 && len(widened) == len(s.columns) {
		err = s.appendRow(rec)
	} else {
		err = s.rewrite(widened, append(s.list(), rec))
	}
	if err != nil {
		return err
	}

	s.columns = widened
	s.add(rec)
	return nil
}

func (s *CSVStore) appendRow(rec Record) error {
	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &PersistenceError{Op: "open for append", Path: s.path, Err: err}
	}

	w := csv.NewWriter(file)
	if err := w.Write(row(s.columns, rec)); err != nil {
		file.Close()
		return &PersistenceError{Op: "append row", Path: s.path, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return &PersistenceError{Op: "append row", Path: s.path, Err: err}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return &PersistenceError{Op: "sync", Path: s.path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &PersistenceError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}

func (s *CSVStore) rewrite(columns []string, records []Record) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "create temp file", Path: dir, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := writeCSV(tmp, columns, records); err != nil {
		cleanup()
		return &PersistenceError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return &PersistenceError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "rename", Path: s.path, Err: err}
	}
	if err := syncDir(dir); err != nil {
		return &PersistenceError{Op: "sync directory", Path: dir, Err: err}
	}
	return nil
}

// syncDir makes a rename inside dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

// WriteCSV renders records as CSV with the union of their columns in first-seen order.
func WriteCSV(w io.Writer, records []Record) error {
	var columns []string
	for _, rec := range records {
		columns = mergeColumns(columns, rec.Keys())
	}
	if len(columns) == 0 {
		columns = []string{FilenameColumn}
	}
	return writeCSV(w, columns, records)
}

func writeCSV(w io.Writer, columns []string, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(row(columns, rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(columns []string, rec Record) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i], _ = rec.Get(col)
	}
	return out
}

// mergeColumns appends keys missing from columns, keeping existing order.
func mergeColumns(columns, keys []string) []string {
	merged := append([]string(nil), columns...)
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		seen[c] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, k)
	}
	return merged
}
