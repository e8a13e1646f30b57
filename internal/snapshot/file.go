package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// FileRepository keeps the snapshot in a JSON file on the local device.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the backing file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the snapshot. A missing file yields the empty default snapshot.
func (r *FileRepository) Load(_ context.Context) (domain.Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.EmptySnapshot(), nil
		}
		return domain.Snapshot{}, fmt.Errorf("reading %s: %w", r.path, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decoding %s: %w", r.path, err)
	}
	return normalize(snap), nil
}

// Save replaces the file atomically: the snapshot is written to a temporary
// file in the same directory and renamed over the target.
func (r *FileRepository) Save(_ context.Context, snap domain.Snapshot) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Export(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replacing %s: %w", r.path, err)
	}
	return nil
}
