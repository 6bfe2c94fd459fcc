// Package storage implements the Storage component (C2): snapshot files
// under a process-wide home directory, each mutated by a read-modify-write
// cycle and replaced atomically, plus a sqlite-backed ticket index cache.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
)

// snapshotFile guards one JSON document with its own mutex and handles the
// atomic temp-file-then-rename write, the way the teacher's map+mutex
// repository guards one in-memory collection.
type snapshotFile struct {
	mu   sync.RWMutex
	path string
}

func newSnapshotFile(homeDir, name string) *snapshotFile {
	return &snapshotFile{path: filepath.Join(homeDir, name)}
}

// load unmarshals the file into out. A missing file leaves out untouched,
// so callers should pass a pointer to an already-initialized zero value
// (e.g. an empty slice or map) and readers tolerate absence that way.
func (f *snapshotFile) load(out interface{}) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.StorageError("failed to read snapshot file", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.StorageError("failed to parse snapshot file", err)
	}
	return nil
}

// save atomically replaces the file's contents with the JSON encoding of v.
func (f *snapshotFile) save(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return apperrors.StorageError("failed to create snapshot directory", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.StorageError("failed to encode snapshot", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*.tmp")
	if err != nil {
		return apperrors.StorageError("failed to create temp snapshot file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.StorageError("failed to write temp snapshot file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.StorageError("failed to close temp snapshot file", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return apperrors.StorageError("failed to replace snapshot file", err)
	}
	return nil
}

// withWrite loads the current value, lets mutate edit it, then saves it,
// all while holding the file's exclusive lock so concurrent mutations
// never interleave their read-modify-write cycles.
func (f *snapshotFile) withWrite(v interface{}, mutate func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil && !os.IsNotExist(err) {
		return apperrors.StorageError("failed to read snapshot file", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return apperrors.StorageError("failed to parse snapshot file", err)
		}
	}

	if err := mutate(); err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.StorageError("failed to encode snapshot", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return apperrors.StorageError("failed to create snapshot directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*.tmp")
	if err != nil {
		return apperrors.StorageError("failed to create temp snapshot file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.StorageError("failed to write temp snapshot file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.StorageError("failed to close temp snapshot file", err)
	}
	return os.Rename(tmpPath, f.path)
}
