package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

var _ domain.KeyValueStore = (*FileStore)(nil)

const fileStoreName = "storage.json"

// FileStore keeps every key in a single JSON document under dataDir. The
// whole document is rewritten on each change through a temp file and a
// rename, so a crash never leaves a half written file behind.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data map[string]string
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dataDir, err)
	}
	r := &FileStore{
		path: filepath.Join(dataDir, fileStoreName),
		data: map[string]string{},
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileStore) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("file store: read %s: %w", r.path, err)
	}
	var loaded map[string]string
	if err := json.Unmarshal(b, &loaded); err != nil {
		return fmt.Errorf("file store: decode %s: %w", r.path, err)
	}
	if loaded != nil {
		r.data = loaded
	}
	return nil
}

func (r *FileStore) saveLocked() error {
	b, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("file store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("file store: replace %s: %w", r.path, err)
	}
	return nil
}

func (r *FileStore) Get(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (r *FileStore) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.data[key]
	r.data[key] = value
	if err := r.saveLocked(); err != nil {
		if existed {
			r.data[key] = prev
		} else {
			delete(r.data, key)
		}
		return err
	}
	return nil
}

func (r *FileStore) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.data[key]
	if !ok {
		return nil
	}
	delete(r.data, key)
	if err := r.saveLocked(); err != nil {
		r.data[key] = prev
		return err
	}
	return nil
}
