package schema

import (
	"encoding/json"
	"sync"
	"time"

	"comfymobile/comfybase"
	"comfymobile/logger"
)

type cacheEntry struct {
	schema  NodeSchema
	ok      bool
	fetched time.Time
}

// Cache is a time-boxed Source wrapper. Lookups are served from the
// boxed copy until the entry is older than the TTL, then pulled from
// the wrapped source again. Negative lookups are boxed too, so an
// unknown type does not hit the source on every conversion.
//
// The clock is injected; passing a fixed clock makes expiry testable
// without sleeping.
type Cache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache wraps src with a TTL. A nil now defaults to time.Now.
func NewCache(src Source, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		src:     src,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Schema implements Source with get-or-refresh semantics.
func (c *Cache) Schema(nodeType string) (NodeSchema, bool) {
	t := c.now()

	c.mu.RLock()
	e, ok := c.entries[nodeType]
	c.mu.RUnlock()
	if ok && t.Sub(e.fetched) < c.ttl {
		return e.schema, e.ok
	}

	schema, found := c.src.Schema(nodeType)
	c.mu.Lock()
	c.entries[nodeType] = cacheEntry{schema: schema, ok: found, fetched: t}
	c.mu.Unlock()
	return schema, found
}

// Invalidate drops a boxed entry so the next lookup refreshes.
func (c *Cache) Invalidate(nodeType string) {
	c.mu.Lock()
	delete(c.entries, nodeType)
	c.mu.Unlock()
}

// StoreSource persists schemas through a comfybase store so later runs
// can validate without the snapshot that produced them. Misses fall
// through to the wrapped source and are written back with the TTL.
type StoreSource struct {
	store *comfybase.Store
	src   Source
	ttl   time.Duration
}

// NewStoreSource wraps src with persistent storage. src may be nil for
// a read-only view of previously stored schemas.
func NewStoreSource(store *comfybase.Store, src Source, ttl time.Duration) *StoreSource {
	return &StoreSource{store: store, src: src, ttl: ttl}
}

func storeKey(nodeType string) string {
	return "schema:" + nodeType
}

// Schema implements Source.
func (s *StoreSource) Schema(nodeType string) (NodeSchema, bool) {
	if data, err := s.store.Get(storeKey(nodeType)); err == nil {
		var schema NodeSchema
		if err := json.Unmarshal(data, &schema); err == nil {
			return schema, true
		}
		logger.Warn("Discarding undecodable stored schema", "type", nodeType, "error", err)
		_ = s.store.Delete(storeKey(nodeType))
	}

	if s.src == nil {
		return NodeSchema{}, false
	}
	schema, ok := s.src.Schema(nodeType)
	if !ok {
		return NodeSchema{}, false
	}
	if data, err := json.Marshal(schema); err == nil {
		if err := s.store.PutBytesExpire(storeKey(nodeType), data, s.ttl); err != nil {
			logger.Warn("Failed to persist schema", "type", nodeType, "error", err)
		}
	}
	return schema, true
}
