package geosource

import (
	"context"
	"sync"
)

// CachedSource remembers the first successful fetch of its inner source.
// Failures are not cached.
type CachedSource struct {
	inner Source

	mu         sync.Mutex
	collection *Collection
}

// NewCachedSource wraps inner
func NewCachedSource(inner Source) *CachedSource {
	return &CachedSource{inner: inner}
}

// Fetch returns the cached collection or fetches it
func (c *CachedSource) Fetch(ctx context.Context) (*Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collection != nil {
		return c.collection, nil
	}
	collection, err := c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.collection = collection
	return collection, nil
}

// URL returns the inner source URL
func (c *CachedSource) URL() string {
	return c.inner.URL()
}

// Invalidate drops the cached collection
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.collection = nil
	c.mu.Unlock()
}

var _ Source = (*CachedSource)(nil)
