package repository

import (
	"context"
	"sync"

	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

// MemoryCacheRepository keeps collections in process memory. Used in tests and
// when CACHE_DRIVER=memory.
type MemoryCacheRepository struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryCacheRepository returns an empty in-memory cache.
func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{items: make(map[string][]byte)}
}

// Get returns a copy of the payload stored for key.
func (r *MemoryCacheRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.items[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Set stores a copy of payload under key.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)
	r.mu.Lock()
	r.items[key] = stored
	r.mu.Unlock()
	return nil
}

// Close is a no-op.
func (r *MemoryCacheRepository) Close() error { return nil }
