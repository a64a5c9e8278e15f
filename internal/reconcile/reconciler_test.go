package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"pumpscan/internal/models"
)

func TestIDCache(t *testing.T) {
	t.Parallel()

	c := newIDCache()
	if _, ok := c.get("M1"); ok {
		t.Fatal("empty cache returned a hit")
	}

	c.put("M1", resolvedIDs{TokenID: 7, PoolID: 9, Decimals: 6})
	got, ok := c.get("M1")
	if !ok || got.TokenID != 7 || got.PoolID != 9 {
		t.Fatalf("get = %+v, %v", got, ok)
	}

	c.invalidate("M1")
	if _, ok := c.get("M1"); ok {
		t.Fatal("hit after invalidate")
	}
}

func TestIDCacheExpiry(t *testing.T) {
	t.Parallel()

	c := newIDCache()
	c.put("M1", resolvedIDs{TokenID: 1})

	// Backdate the entry past its TTL.
	c.mu.Lock()
	e := c.entries["M1"]
	e.expires = time.Now().Add(-time.Second)
	c.entries["M1"] = e
	c.mu.Unlock()

	if _, ok := c.get("M1"); ok {
		t.Fatal("hit on expired entry")
	}

	c.put("M2", resolvedIDs{TokenID: 2})
	c.mu.Lock()
	e = c.entries["M2"]
	e.expires = time.Now().Add(-time.Second)
	c.entries["M2"] = e
	c.mu.Unlock()

	c.purge()
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	if n != 0 {
		t.Fatalf("purge left %d entries", n)
	}
}

type stubPriceReader struct {
	price *models.SolUsdPrice
	err   error
	calls int
}

func (s *stubPriceReader) GetSolUsdLatest(ctx context.Context) (*models.SolUsdPrice, error) {
	s.calls++
	return s.price, s.err
}

func TestSolPriceCacheFallback(t *testing.T) {
	t.Parallel()

	var counters Counters
	reader := &stubPriceReader{err: errors.New("db down")}
	c := newSolPriceCache(reader, &counters)

	if got := c.Get(context.Background()); got != solPriceFallback {
		t.Errorf("cold miss = %v, want fallback %v", got, solPriceFallback)
	}
	if counters.SolPriceFallbacks.Load() != 1 {
		t.Errorf("fallback counter = %d, want 1", counters.SolPriceFallbacks.Load())
	}
}

func TestSolPriceCacheServesAndCaches(t *testing.T) {
	t.Parallel()

	var counters Counters
	reader := &stubPriceReader{price: &models.SolUsdPrice{PriceTime: time.Now(), PriceUsd: 182.5}}
	c := newSolPriceCache(reader, &counters)

	if got := c.Get(context.Background()); got != 182.5 {
		t.Fatalf("Get = %v, want 182.5", got)
	}
	// Within the TTL the reader must not be consulted again.
	c.Get(context.Background())
	c.Get(context.Background())
	if reader.calls != 1 {
		t.Errorf("reader called %d times within TTL, want 1", reader.calls)
	}

	// A store failure after a successful read keeps serving stale.
	reader.price = nil
	reader.err = errors.New("db down")
	c.mu.Lock()
	c.fetched = time.Now().Add(-time.Minute)
	c.mu.Unlock()
	if got := c.Get(context.Background()); got != 182.5 {
		t.Errorf("stale serve = %v, want 182.5", got)
	}
	if counters.SolPriceFallbacks.Load() != 0 {
		t.Errorf("stale serve must not count as fallback")
	}
}

func TestPoolStatePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		upd      models.PoolStateUpdate
		decimals int
		want     *float64
	}{
		{
			name: "virtual reserves preferred",
			// 30 SOL over 1M tokens.
			upd:      models.PoolStateUpdate{VirtualBase: 1_000_000_000_000, VirtualQuote: 30_000_000_000, RealBase: 1, RealQuote: 1},
			decimals: 6,
			want:     fptr(0.00003),
		},
		{
			name:     "falls back to real reserves",
			upd:      models.PoolStateUpdate{RealBase: 1_000_000_000_000, RealQuote: 30_000_000_000},
			decimals: 6,
			want:     fptr(0.00003),
		},
		{
			name: "nine decimal mint",
			// 30 SOL over 1000 whole tokens.
			upd:      models.PoolStateUpdate{VirtualBase: 1_000_000_000_000, VirtualQuote: 30_000_000_000},
			decimals: 9,
			want:     fptr(0.03),
		},
		{
			name:     "zero reserves undefined",
			upd:      models.PoolStateUpdate{VirtualBase: 5},
			decimals: 6,
			want:     nil,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := poolStatePrice(tc.upd, tc.decimals)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("price = %v, want %v", got, tc.want)
			}
			if got != nil && !approx(*got, *tc.want) {
				t.Errorf("price = %v, want %v", *got, *tc.want)
			}
		})
	}
}

func TestCountersBatchCommitted(t *testing.T) {
	t.Parallel()

	var c Counters
	c.batchCommitted(50, 47)
	if got := c.BatchesFlushed.Load(); got != 1 {
		t.Errorf("batches = %d, want 1", got)
	}
	if got := c.TradesWritten.Load(); got != 47 {
		t.Errorf("written = %d, want 47", got)
	}
	if got := c.DuplicatesSkipped.Load(); got != 3 {
		t.Errorf("duplicates = %d, want 3", got)
	}

	// A fully inserted batch must not touch the duplicate counter.
	c.batchCommitted(10, 10)
	if got := c.DuplicatesSkipped.Load(); got != 3 {
		t.Errorf("duplicates after clean batch = %d, want 3", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.applyDefaults()
	if cfg.BatchSize != 50 || cfg.BatchTimeout != 5*time.Second ||
		cfg.DebounceInterval != 5*time.Second || cfg.PoolMatchWindow != time.Hour {
		t.Errorf("defaults = %+v", cfg)
	}

	cfg = Config{BatchSize: 10, BatchTimeout: time.Second}
	cfg.applyDefaults()
	if cfg.BatchSize != 10 || cfg.BatchTimeout != time.Second {
		t.Errorf("explicit values overridden: %+v", cfg)
	}
}

func fptr(f float64) *float64 { return &f }

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-12
}
