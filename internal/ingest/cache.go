package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// Memo holds one value computed for a version token. A different token
// recomputes the value; the same token returns the stored one.
type Memo[T any] struct {
	mu      sync.Mutex
	version time.Time
	value   T
	loaded  bool
}

// Get returns the value for version, calling load on a miss. Concurrent
// callers wait for a single load. A failed load leaves the previous value in
// place.
func (m *Memo[T]) Get(version time.Time, load func() (T, error)) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded && m.version.Equal(version) {
		return m.value, true, nil
	}

	v, err := load()
	if err != nil {
		var zero T
		return zero, false, err
	}
	m.value, m.version, m.loaded = v, version, true
	return v, false, nil
}

// Invalidate forces the next Get to reload.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	m.loaded = false
	m.mu.Unlock()
}

// Cache serves the extraction snapshot, reloading it in full whenever any
// workbook below the root is newer than the cached version.
type Cache struct {
	loader  *Loader
	memo    Memo[*domain.Snapshot]
	metrics *infrastructure.ReconMetrics

	subMu       sync.RWMutex
	subscribers []func(*domain.Snapshot)
}

// NewCache wraps loader.
func NewCache(loader *Loader) *Cache {
	return &Cache{loader: loader, metrics: loader.metrics}
}

// Get returns the current snapshot. The returned value is shared and must not
// be modified.
func (c *Cache) Get(ctx context.Context) (*domain.Snapshot, error) {
	version, err := c.loader.Version()
	if err != nil {
		return nil, err
	}

	snap, hit, err := c.memo.Get(version, func() (*domain.Snapshot, error) {
		return c.loader.Load(ctx)
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordCache(ctx, "snapshot", hit)
	if !hit {
		c.notify(snap)
	}
	return snap, nil
}

// Refresh drops the cached snapshot and loads a new one.
func (c *Cache) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	c.memo.Invalidate()
	return c.Get(ctx)
}

// Subscribe registers fn to be called with every freshly loaded snapshot.
func (c *Cache) Subscribe(fn func(*domain.Snapshot)) {
	c.subMu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.subMu.Unlock()
}

func (c *Cache) notify(snap *domain.Snapshot) {
	c.subMu.RLock()
	subs := append([]func(*domain.Snapshot){}, c.subscribers...)
	c.subMu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}
