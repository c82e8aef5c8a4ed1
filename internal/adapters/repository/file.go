package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps the set as a JSON array of strings in a single file.
type FileBackend struct {
	path string
	mode os.FileMode
}

// NewFileBackend creates a file backend at path. The file is not touched
// until the first Load or Save.
func NewFileBackend(path string, opts ...FileOption) *FileBackend {
	b := &FileBackend{
		path: path,
		mode: 0o600,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the state file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the JSON array. An empty file counts as corrupt.
func (b *FileBackend) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, b.path, err)
	}
	return ids, nil
}

// Save rewrites the file atomically: temp file in the same directory,
// fsync, chmod, rename.
func (b *FileBackend) Save(_ context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".remindr-dedup-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	// No-op after a successful rename.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, b.mode); err != nil {
		return err
	}
	return os.Rename(tmpName, b.path)
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error {
	return nil
}
