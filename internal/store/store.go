package store

import (
	"errors"
	"fmt"
	"sort"
)

// FilenameColumn is the identity column present in every record.
const FilenameColumn = "filename"

// Field is one persisted key/value pair.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is a validated scoring result together with its document identity.
type Record struct {
	Filename string
	Fields   []Field
}

// Get returns the value of the named field.
func (r Record) Get(key string) (string, bool) {
	if key == FilenameColumn {
		return r.Filename, true
	}
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Keys returns the record's column names, filename first.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields)+1)
	keys = append(keys, FilenameColumn)
	for _, f := range r.Fields {
		if f.Key == FilenameColumn {
			continue
		}
		keys = append(keys, f.Key)
	}
	return keys
}

// Store is the durable record set and the source of truth for already processed documents.
type Store interface {
	// Load reads all durable records. A missing store yields an empty set.
	Load() (map[string]struct{}, error)
	// Contains reports whether the document identity was already recorded.
	Contains(filename string) bool
	// Append durably adds one record and makes it visible to Contains.
	Append(rec Record) error
	// Records returns every known record in append order.
	Records() []Record
	// Location describes where the records live.
	Location() string
	Close() error
}

// ErrPersistence is matched by every PersistenceError.
var ErrPersistence = errors.New("persistence failure")

// PersistenceError reports a failed durable read or write.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// index keeps the in-memory view shared by the store implementations.
type index struct {
	records []Record
	known   map[string]struct{}
}

func newIndex() index {
	return index{known: make(map[string]struct{})}
}

func (i *index) add(rec Record) {
	i.records = append(i.records, rec)
	i.known[rec.Filename] = struct{}{}
}

func (i *index) contains(filename string) bool {
	_, ok := i.known[filename]
	return ok
}

func (i *index) snapshot() map[string]struct{} {
	out := make(map[string]struct{}, len(i.known))
	for k := range i.known {
		out[k] = struct{}{}
	}
	return out
}

func (i *index) list() []Record {
	out := make([]Record, len(i.records))
	copy(out, i.records)
	return out
}

// Identities returns the set members sorted.
func Identities(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validateRecord(rec Record) error {
	if rec.Filename == "" {
		return errors.New("record filename is required")
	}
	seen := make(map[string]struct{}, len(rec.Fields))
	for _, f := range rec.Fields {
		if f.Key == "" {
			return errors.New("record field key is required")
		}
		if f.Key == FilenameColumn {
			return fmt.Errorf("record field %q is reserved", FilenameColumn)
		}
		if _, dup := seen[f.Key]; dup {
			return fmt.Errorf("duplicate record field %q", f.Key)
		}
		seen[f.Key] = struct{}{}
	}
	return nil
}

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Open returns a loaded store for the configured backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendCSV:
		s, err := OpenCSV(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}
