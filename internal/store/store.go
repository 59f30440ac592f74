// Package store persists editor contents to a local file or an object store.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is suggested when no input file is loaded.
const DefaultFileName = "result.txt"

// Saver writes a named text document and returns where it ended up.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// DefaultName derives the suggested output name from the current input path:
// the base name with its extension replaced by ".txt".
func DefaultName(current string) string {
	if current == "" {
		return DefaultFileName
	}
	base := filepath.Base(current)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"
}

// FileStore writes documents to the local filesystem. Relative names are
// resolved against Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates a FileStore rooted at dir ("" means the working directory).
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Save writes r to name, creating parent directories as needed. The file is
// replaced only once everything was written.
func (s *FileStore) Save(_ context.Context, name string, r io.Reader, _ int64) (string, error) {
	if name == "" {
		return "", errors.New("save: empty file name")
	}
	path := name
	if !filepath.IsAbs(path) && s.Dir != "" {
		path = filepath.Join(s.Dir, path)
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("save: create directory: %w", err)
		}
	}

	// Write a sibling temp file and rename it over the target; a failed save
	// leaves the previous file in place.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("save: write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil { //nolint:gosec // G302: saved text is plain user output
		_ = tmp.Close()
		return "", fmt.Errorf("save: chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("save: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	return path, nil
}
