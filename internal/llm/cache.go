package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheTTL matches the upstream LLMService's in-memory cache window
// (_cache_ttl = timedelta(hours=1)).
const cacheTTL = time.Hour

type cacheEntry struct {
	value   any
	storedAt time.Time
}

// ttlCache wraps an LRU cache with the upstream's (operation, text, prompt)
// key shape and 1-hour expiry, so repeated classification of the same
// message under the same rule within an hour skips the network call.
type ttlCache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, cacheEntry]
}

func newTTLCache(size int) *ttlCache {
	inner, err := lru.New[string, cacheEntry](size)
	if err != nil {
		// size is always a positive constant supplied by this package; a
		// negative/zero value here is a programmer error, not a runtime one.
		panic(err)
	}
	return &ttlCache{inner: inner}
}

func (c *ttlCache) key(operation, text, prompt string) string {
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *ttlCache) get(operation, text, prompt string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.key(operation, text, prompt)
	entry, ok := c.inner.Get(key)
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) >= cacheTTL {
		c.inner.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (c *ttlCache) set(operation, text, prompt string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.key(operation, text, prompt)
	c.inner.Add(key, cacheEntry{value: value, storedAt: time.Now()})
}
