package reconcile

import (
	"sync"
	"time"
)

const idCacheTTL = 5 * time.Minute

// resolvedIDs is one cached (token, pool) resolution.
type resolvedIDs struct {
	TokenID  int64
	PoolID   int64
	Decimals int
	expires  time.Time
}

// idCache maps mint address to resolved store ids with a 5-minute TTL.
// Entries are only ever replaced wholesale, so a stale pool id lives at
// most one TTL after a graduation re-pools the token.
type idCache struct {
	mu      sync.Mutex
	entries map[string]resolvedIDs
}

func newIDCache() *idCache {
	return &idCache{entries: make(map[string]resolvedIDs)}
}

func (c *idCache) get(mint string) (resolvedIDs, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[mint]
	if !ok || time.Now().After(e.expires) {
		delete(c.entries, mint)
		return resolvedIDs{}, false
	}
	return e, true
}

func (c *idCache) put(mint string, ids resolvedIDs) {
	ids.expires = time.Now().Add(idCacheTTL)
	c.mu.Lock()
	c.entries[mint] = ids
	c.mu.Unlock()
}

// invalidate drops a mint's entry, forcing a re-read on next use.
func (c *idCache) invalidate(mint string) {
	c.mu.Lock()
	delete(c.entries, mint)
	c.mu.Unlock()
}

// purge removes expired entries; called from the reconciler's ticker.
func (c *idCache) purge() {
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
