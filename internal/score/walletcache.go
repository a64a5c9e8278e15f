package score

import (
	"sync"
	"time"

	"pumpscan/internal/models"
)

// Cache tiers, ordered hottest first. Known bots and smart money go
// permanent: their classification is stable, and they are exactly the
// wallets that show up across many tokens.
type cacheTier int

const (
	tierHot cacheTier = iota
	tierWarm
	tierCold
	tierPermanent
)

var tierTTL = map[cacheTier]time.Duration{
	tierHot:       5 * time.Minute,
	tierWarm:      30 * time.Minute,
	tierCold:      2 * time.Hour,
	tierPermanent: 24 * time.Hour,
}

type cacheEntry struct {
	analysis models.WalletAnalysis
	tier     cacheTier
	expires  time.Time
}

// WalletCache is the tiered in-memory layer in front of the wallet
// table and the external enrichment API. Hits are promoted one tier
// hotter; expired entries are swept by EvictExpired.
type WalletCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	hits   int64
	misses int64
}

func NewWalletCache() *WalletCache {
	return &WalletCache{entries: make(map[string]cacheEntry)}
}

// Get returns a cached analysis and promotes the entry.
func (c *WalletCache) Get(addr string) (models.WalletAnalysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[addr]
	if !ok || time.Now().After(e.expires) {
		delete(c.entries, addr)
		c.misses++
		return models.WalletAnalysis{}, false
	}
	c.hits++

	if e.tier > tierHot && e.tier != tierPermanent {
		e.tier--
	}
	e.expires = time.Now().Add(tierTTL[e.tier])
	c.entries[addr] = e
	return e.analysis, true
}

// Put stores an analysis. Bots and smart money pin permanent;
// everything else starts warm and earns heat through hits.
func (c *WalletCache) Put(w models.WalletAnalysis) {
	tier := tierWarm
	if w.IsBot || w.IsSmartMoney {
		tier = tierPermanent
	}
	c.mu.Lock()
	c.entries[w.WalletAddress] = cacheEntry{
		analysis: w,
		tier:     tier,
		expires:  time.Now().Add(tierTTL[tier]),
	}
	c.mu.Unlock()
}

// Demote pushes an entry one tier colder instead of evicting it, used
// by the periodic sweep for idle entries.
func (c *WalletCache) Demote(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[addr]
	if !ok || e.tier == tierPermanent {
		return
	}
	if e.tier < tierCold {
		e.tier++
		e.expires = time.Now().Add(tierTTL[e.tier])
		c.entries[addr] = e
	}
}

// EvictExpired drops entries past their TTL. Returns the eviction
// count for logging.
func (c *WalletCache) EvictExpired() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for addr, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, addr)
			n++
		}
	}
	return n
}

// HitRate feeds the credit cost estimator. Returns 0 before any
// lookups.
func (c *WalletCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Len reports the live entry count.
func (c *WalletCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
