// internal/infrastructure/persistence/store.go
package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the client-local snapshot store backing the cart. One key holds
// one serialized snapshot; writes must be atomic so a concurrent reader
// never observes a torn snapshot.
type Store interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
}

var (
	// ErrNotFound is returned when no snapshot exists for the key
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidKey rejects keys that do not map to a flat filename
	ErrInvalidKey = errors.New("invalid snapshot key")
)

// FileStore persists snapshots as files under a single directory.
// Writes go to a temp file first and are swapped in with a rename, so a
// crash mid-write can never leave a partial snapshot visible.
type FileStore struct {
	dir string
}

// NewFileStore creates the snapshot directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Read returns the snapshot stored under key
func (s *FileStore) Read(key string) ([]byte, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return data, nil
}

// Write stores data under key with a write-new-then-swap
func (s *FileStore) Write(key string, data []byte) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot %s: %w", key, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to swap snapshot %s: %w", key, err)
	}

	return nil
}

// Delete removes the snapshot under key. Deleting a missing key is not
// an error.
func (s *FileStore) Delete(key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// path maps a key to a file inside the snapshot directory. Keys look like
// "cart:<session>"; anything that would escape the directory is refused,
// keys are untrusted input.
func (s *FileStore) path(key string) (string, error) {
	name := strings.ReplaceAll(key, ":", "_")
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// MemoryStore is an in-process Store used in tests and as a fallback when
// no durable client storage is available.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Read returns the snapshot stored under key
func (s *MemoryStore) Read(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores data under key
func (s *MemoryStore) Write(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.data[key] = stored
	return nil
}

// Delete removes the snapshot under key
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}
