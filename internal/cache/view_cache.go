// Package cache keeps rendered dashboard pages until a mutation marks their
// view stale.
package cache

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Invalidator marks a view, identified by its route path, as stale.
type Invalidator interface {
	Invalidate(ctx context.Context, viewKey string) error
}

// Page is a cached response.
type Page struct {
	Status      int
	ContentType string
	Body        []byte
}

type entry struct {
	viewKey   string
	page      Page
	expiresAt time.Time
}

// ViewCache is an in-memory TTL cache of rendered pages. Entries are keyed
// by request URI plus variant and grouped under the view key (the path) so
// one invalidation drops every query-string variant of a page.
type ViewCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	gens    map[string]uint64
	epoch   uint64
	ttl     time.Duration
	now     func() time.Time
}

// Generation identifies the invalidation state of one view. It changes on
// every Invalidate of that view and on InvalidateAll.
type Generation struct {
	epoch uint64
	view  uint64
}

// NewViewCache creates a cache whose entries live for ttl. A non-positive
// ttl disables storing.
func NewViewCache(ttl time.Duration) *ViewCache {
	return &ViewCache{
		entries: make(map[string]*entry),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the page stored under key, if present and fresh.
func (c *ViewCache) Get(key string) (Page, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return Page{}, false
	}
	return e.page, true
}

// Set stores page under key, grouped under viewKey.
func (c *ViewCache) Set(viewKey, key string, page Page) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = &entry{viewKey: viewKey, page: page, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Generation returns the current generation of viewKey. Read it before
// computing a page and hand it to SetIfCurrent.
func (c *ViewCache) Generation(viewKey string) Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Generation{epoch: c.epoch, view: c.gens[viewKey]}
}

// SetIfCurrent stores page like Set unless viewKey was invalidated since gen
// was read. It reports whether the page was stored.
func (c *ViewCache) SetIfCurrent(viewKey, key string, gen Generation, page Page) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != (Generation{epoch: c.epoch, view: c.gens[viewKey]}) {
		return false
	}
	c.entries[key] = &entry{viewKey: viewKey, page: page, expiresAt: c.now().Add(c.ttl)}
	return true
}

// Invalidate drops every entry of viewKey. It never fails.
func (c *ViewCache) Invalidate(_ context.Context, viewKey string) error {
	c.mu.Lock()
	c.gens[viewKey]++
	for k, e := range c.entries {
		if e.viewKey == viewKey {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
	return nil
}

// InvalidateAll clears the cache.
func (c *ViewCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.epoch++
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not.
func (c *ViewCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RequestKey is the cache key of r: path and query plus the response variant.
func RequestKey(r *http.Request, variant string) string {
	return variant + " " + r.URL.RequestURI()
}

var _ Invalidator = (*ViewCache)(nil)
