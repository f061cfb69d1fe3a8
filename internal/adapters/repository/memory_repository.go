package repository

import (
	"context"
	"sync"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

var _ domain.KeyValueStore = (*MemoryStore)(nil)

type MemoryStore struct {
	store map[string]string

	mu sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store: make(map[string]string),
	}
}

func (r *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.store[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (r *MemoryStore) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[key] = value
	return nil
}

func (r *MemoryStore) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store, key)
	return nil
}
