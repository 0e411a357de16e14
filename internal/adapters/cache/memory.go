package cache

import (
	"context"
	"sync"
)

// MemoryCache is the in-process fallback for redis-less deployments and
// tests.
type MemoryCache struct {
	mu   sync.RWMutex
	sets map[string][]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{sets: make(map[string][]string)}
}

func (c *MemoryCache) Get(_ context.Context, userID, cabinetID string) ([]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names, ok := c.sets[key(userID, cabinetID)]
	if !ok {
		return nil, false, nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, userID, cabinetID string, names []string) error {
	stored := make([]string, len(names))
	copy(stored, names)
	c.mu.Lock()
	c.sets[key(userID, cabinetID)] = stored
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, userID, cabinetID string) error {
	c.mu.Lock()
	delete(c.sets, key(userID, cabinetID))
	c.mu.Unlock()
	return nil
}
