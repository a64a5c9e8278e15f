package reconcile

import (
	"context"
	"log"
	"sync"
	"time"

	"pumpscan/internal/models"
)

const (
	solPriceTTL      = 5 * time.Second
	solPriceFallback = 165.0
)

// solPriceReader is the slice of the repository the cache needs.
type solPriceReader interface {
	GetSolUsdLatest(ctx context.Context) (*models.SolUsdPrice, error)
}

// solPriceCache serves the SOL/USD reference price with a 5 s TTL so
// trade enrichment never waits on the store in the hot path. A cold
// miss falls back to a fixed price and is counted; the poller usually
// repopulates the table within seconds.
type solPriceCache struct {
	repo     solPriceReader
	counters *Counters

	mu      sync.Mutex
	price   float64
	fetched time.Time
}

func newSolPriceCache(repo solPriceReader, counters *Counters) *solPriceCache {
	return &solPriceCache{repo: repo, counters: counters}
}

// Get returns the cached price, refreshing from the store when stale.
func (c *solPriceCache) Get(ctx context.Context) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetched.IsZero() && time.Since(c.fetched) < solPriceTTL {
		return c.price
	}

	p, err := c.repo.GetSolUsdLatest(ctx)
	if err == nil && p != nil {
		c.price = p.PriceUsd
		c.fetched = time.Now()
		return c.price
	}

	if c.price != 0 {
		// Stale but usable; keep serving it until the store recovers.
		return c.price
	}

	c.counters.SolPriceFallbacks.Add(1)
	log.Printf("[reconciler] no SOL/USD reference price available (err=%v), using fallback %.0f", err, solPriceFallback)
	c.price = solPriceFallback
	c.fetched = time.Now()
	return solPriceFallback
}
