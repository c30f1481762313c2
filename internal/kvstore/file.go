package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all keys in one JSON document on disk. Writes replace the
// file atomically via rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore constructs a FileStore at path, creating parent directories.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir for %s: %w", path, err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		// An unreadable document is replaced rather than blocking writes.
		doc = make(map[string]string)
	}
	doc[key] = string(value)

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling store document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".kvstore-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", f.path, err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing temp file for %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file for %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}

// Ping checks that the store directory is reachable.
func (f *FileStore) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Dir(f.path))
	return err
}

func (f *FileStore) read() (map[string]string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}

	doc := make(map[string]string)
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", f.path, err)
	}
	return doc, nil
}
