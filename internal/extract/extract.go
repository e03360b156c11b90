package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Extractor turns a document file into plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
	Supports(path string) bool
}

// ReaderFunc reads the text of a single file format.
type ReaderFunc func(path string) (string, error)

// UnsupportedFormatError is returned for files without a registered reader.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %q", e.Ext)
}

// Registry dispatches extraction by lower-cased file extension.
type Registry struct {
	readers map[string]ReaderFunc
}

// New returns a registry that reads PDF and DOCX files.
func New() *Registry {
	r := &Registry{readers: make(map[string]ReaderFunc)}
	r.Register(".pdf", ReadPDF)
	r.Register(".docx", ReadDOCX)
	return r
}

// Register adds or replaces the reader for ext.
func (r *Registry) Register(ext string, fn ReaderFunc) {
	r.readers[normalizeExt(ext)] = fn
}

// Extensions returns the supported extensions sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) Supports(path string) bool {
	_, ok := r.readers[normalizeExt(filepath.Ext(path))]
	return ok
}

func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := filepath.Ext(path)
	fn, ok := r.readers[normalizeExt(ext)]
	if !ok {
		return "", &UnsupportedFormatError{Ext: ext}
	}

	text, err := fn(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return text, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
