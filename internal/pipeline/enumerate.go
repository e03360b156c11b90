package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Document is a handle on one input file. Name is its identity in the store.
type Document struct {
	Name string
	Path string
}

// Pending is the ordered work list of a run.
type Pending struct {
	Documents []Document
	// Skipped counts supported documents already present in the store.
	Skipped int
}

// Empty reports that there is nothing to do.
func (p *Pending) Empty() bool {
	return p == nil || len(p.Documents) == 0
}

// EnumeratePending lists supported documents in dir sorted by name and drops
// the ones the store already knows.
func (r *Runner) EnumeratePending(dir string) (*Pending, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("submissions directory does not exist", zap.String("dir", dir))
			return &Pending{}, nil
		}
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	pending := &Pending{}
	// os.ReadDir returns entries sorted by filename.
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if !r.deps.Extractor.Supports(path) {
			continue
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		if r.deps.Store.Contains(entry.Name()) {
			pending.Skipped++
			continue
		}

		pending.Documents = append(pending.Documents, Document{Name: entry.Name(), Path: path})
	}

	return pending, nil
}
