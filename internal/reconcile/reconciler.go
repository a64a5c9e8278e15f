// Package reconcile is the single writer between the consumers and the
// store. It resolves mint/pool addresses to row ids, batches trade
// appends, debounces pool-state writes, enriches prices with the
// SOL/USD reference, and links graduated tokens to their AMM pools.
package reconcile

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"pumpscan/internal/models"
	"pumpscan/internal/repository"
)

// Config carries the reconciler's tunables, all environment-driven.
type Config struct {
	BatchSize        int           // trades per batch, default 50
	BatchTimeout     time.Duration // flush interval, default 5s
	DebounceInterval time.Duration // pool-state write cadence, default 5s
	PoolMatchWindow  time.Duration // graduation pool link window, default 1h

	Notify Notify
}

// Notify carries optional fan-out callbacks fired after successful
// store writes. Callbacks must not block; the reconciler calls them
// inline on its write paths.
type Notify struct {
	TradeCommitted func(models.Transaction)
	Graduated      func(mint, targetVenue string, at time.Time)
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 5 * time.Second
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = 5 * time.Second
	}
	if c.PoolMatchWindow <= 0 {
		c.PoolMatchWindow = time.Hour
	}
}

// pendingGraduation is a graduation waiting for its AMM pool to show
// up on the feed.
type pendingGraduation struct {
	tokenID     int64
	targetVenue string
	sig         string
	deadline    time.Time
}

// Reconciler is safe for concurrent use by all consumers. Each
// consumer gets its own batch queue so per-consumer ordering is
// preserved; everything else is shared.
type Reconciler struct {
	repo     *repository.Repository
	cfg      Config
	Counters Counters

	ids      *idCache
	solPrice *solPriceCache

	mu        sync.Mutex
	batchers  map[string]*batcher
	poolState map[string]models.PoolStateUpdate // keyed by pool address, latest-wins
	pending   map[string]pendingGraduation      // keyed by mint

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(repo *repository.Repository, cfg Config) *Reconciler {
	cfg.applyDefaults()
	r := &Reconciler{
		repo:      repo,
		cfg:       cfg,
		ids:       newIDCache(),
		batchers:  make(map[string]*batcher),
		poolState: make(map[string]models.PoolStateUpdate),
		pending:   make(map[string]pendingGraduation),
	}
	r.solPrice = newSolPriceCache(repo, &r.Counters)
	return r
}

// Start launches the debounce/housekeeping loop. Batchers start
// lazily, one per consumer, on first trade.
func (r *Reconciler) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.housekeeping()
	log.Printf("[reconciler] started (batch=%d timeout=%s debounce=%s)",
		r.cfg.BatchSize, r.cfg.BatchTimeout, r.cfg.DebounceInterval)
}

// Stop flushes pending work best-effort within a 5 s budget, then
// tears the reconciler down.
func (r *Reconciler) Stop() {
	r.cancel()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r.mu.Lock()
	batchers := make([]*batcher, 0, len(r.batchers))
	for _, b := range r.batchers {
		batchers = append(batchers, b)
	}
	r.mu.Unlock()

	for _, b := range batchers {
		b.stop(flushCtx)
	}
	r.flushPoolState(flushCtx)
	r.wg.Wait()
	log.Println("[reconciler] stopped")
}

// SolPrice exposes the cached SOL/USD reference for score computation.
func (r *Reconciler) SolPrice(ctx context.Context) float64 {
	return r.solPrice.Get(ctx)
}

// OnTokenCreated upserts the token (and primes the id cache).
// Duplicate creations are benign; a venue conflict is a data error
// that is counted and logged but never retried.
func (r *Reconciler) OnTokenCreated(ctx context.Context, rec models.TokenCreated) {
	id, err := r.repo.UpsertToken(ctx, rec.MintAddress, repository.TokenFields{
		Symbol:       rec.Symbol,
		Name:         rec.Name,
		Decimals:     rec.Decimals,
		Venue:        rec.Venue,
		Creator:      rec.Creator,
		CreationSig:  rec.CreationSig,
		CreationTime: rec.CreationTime,
		MetadataURI:  rec.MetadataURI,
	})
	if err != nil {
		if errors.Is(err, repository.ErrVenueConflict) {
			r.Counters.VenueConflicts.Add(1)
			log.Printf("[reconciler] FATAL DATA ERROR: token %s venue conflict: %v", rec.MintAddress, err)
			return
		}
		log.Printf("[reconciler] upsert token %s: %v", rec.MintAddress, err)
		return
	}
	r.Counters.TokensCreated.Add(1)
	decimals := rec.Decimals
	if decimals == 0 {
		decimals = 6
	}
	r.ids.put(rec.MintAddress, resolvedIDs{TokenID: id, Decimals: decimals})
}

// OnPoolCreated upserts the pool under its token. If the token is
// unknown the record is dropped with a warning: pools are never
// synthesised ahead of their token.
func (r *Reconciler) OnPoolCreated(ctx context.Context, rec models.PoolCreated) {
	token, err := r.repo.GetTokenByMint(ctx, rec.MintAddress)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.Counters.UnresolvedDropped.Add(1)
			log.Printf("[reconciler] WARN: pool %s for unknown token %s dropped", rec.PoolAddress, rec.MintAddress)
			return
		}
		log.Printf("[reconciler] lookup token %s: %v", rec.MintAddress, err)
		return
	}

	poolID, err := r.repo.UpsertPool(ctx, rec.PoolAddress, repository.PoolFields{
		TokenID:   token.ID,
		BaseMint:  rec.BaseMint,
		QuoteMint: rec.QuoteMint,
		Venue:     rec.Venue,
	})
	if err != nil {
		if errors.Is(err, repository.ErrVenueConflict) {
			r.Counters.VenueConflicts.Add(1)
			log.Printf("[reconciler] FATAL DATA ERROR: pool %s venue conflict: %v", rec.PoolAddress, err)
			return
		}
		log.Printf("[reconciler] upsert pool %s: %v", rec.PoolAddress, err)
		return
	}
	r.Counters.PoolsCreated.Add(1)
	r.ids.put(rec.MintAddress, resolvedIDs{TokenID: token.ID, PoolID: poolID, Decimals: token.Decimals})

	r.linkGraduatedPool(ctx, token, rec, poolID)
}

// OnTrade routes the record to the emitting consumer's batch queue.
// Blocks when the queue holds two full batches: back-pressure, never a
// drop.
func (r *Reconciler) OnTrade(consumer string, rec models.TradeRecord) {
	r.batcherFor(consumer).add(rec)
}

// OnPoolState registers a latest-wins pool snapshot; at most one store
// write per pool per debounce interval.
func (r *Reconciler) OnPoolState(upd models.PoolStateUpdate) {
	r.mu.Lock()
	r.poolState[upd.PoolAddress] = upd
	r.mu.Unlock()
}

// OnDecodeSkip accounts for a payload a consumer could not decode.
func (r *Reconciler) OnDecodeSkip(consumer string) {
	r.Counters.DecodeSkipped.Add(1)
}

// OnGraduated marks the token graduated and opens the pool-match
// window for the target AMM.
func (r *Reconciler) OnGraduated(ctx context.Context, g models.Graduated) {
	token, err := r.repo.GetTokenByMint(ctx, g.MintAddress)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.Counters.UnresolvedDropped.Add(1)
			log.Printf("[reconciler] WARN: graduation for unknown token %s dropped", g.MintAddress)
			return
		}
		log.Printf("[reconciler] lookup token %s: %v", g.MintAddress, err)
		return
	}

	at := g.GraduatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := r.repo.MarkGraduated(ctx, token.ID, g.GraduationSig, at); err != nil {
		log.Printf("[reconciler] mark graduated %s: %v", g.MintAddress, err)
		return
	}
	r.Counters.Graduations.Add(1)
	r.ids.invalidate(g.MintAddress)

	// Close out the launch pool; the AMM pool takes over when it shows
	// up within the match window.
	if pool, err := r.repo.GetOldestPoolForToken(ctx, token.ID); err == nil {
		if err := r.repo.MarkPoolGraduated(ctx, pool.ID); err != nil {
			log.Printf("[reconciler] mark pool %d graduated: %v", pool.ID, err)
		}
	}

	targetVenue := g.TargetAMM
	if targetVenue == "" || targetVenue == models.VenuePumpFun {
		targetVenue = models.VenuePumpSwap
	}
	r.mu.Lock()
	r.pending[g.MintAddress] = pendingGraduation{
		tokenID:     token.ID,
		targetVenue: targetVenue,
		sig:         g.GraduationSig,
		deadline:    time.Now().Add(r.cfg.PoolMatchWindow),
	}
	r.mu.Unlock()
	log.Printf("[reconciler] token %s graduated to %s (sig %s)", g.MintAddress, targetVenue, g.GraduationSig)

	if r.cfg.Notify.Graduated != nil {
		r.cfg.Notify.Graduated(g.MintAddress, targetVenue, at)
	}
}

// linkGraduatedPool attaches a freshly created AMM pool to a token
// whose graduation is still inside the match window.
func (r *Reconciler) linkGraduatedPool(ctx context.Context, token *models.Token, rec models.PoolCreated, poolID int64) {
	r.mu.Lock()
	p, ok := r.pending[rec.MintAddress]
	if ok && (time.Now().After(p.deadline) || p.targetVenue != rec.Venue) {
		if time.Now().After(p.deadline) {
			delete(r.pending, rec.MintAddress)
		}
		ok = false
	}
	if ok {
		delete(r.pending, rec.MintAddress)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	log.Printf("[reconciler] linked %s pool %s to graduated token %s", rec.Venue, rec.PoolAddress, token.MintAddress)
}

// resolve maps a trade's addresses to store ids via the cache. Some
// venues only name the pool in their events, so an empty mint resolves
// through the pool address instead.
func (r *Reconciler) resolve(ctx context.Context, mint, poolAddr string) (resolvedIDs, error) {
	key := mint
	if key == "" {
		key = "pool:" + poolAddr
	}
	if ids, ok := r.ids.get(key); ok && ids.PoolID != 0 {
		return ids, nil
	}

	var token *models.Token
	var pool *models.Pool
	var err error

	if mint != "" {
		token, err = r.repo.GetTokenByMint(ctx, mint)
		if err != nil {
			return resolvedIDs{}, err
		}
		if poolAddr != "" {
			pool, err = r.repo.GetPoolByAddress(ctx, poolAddr)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return resolvedIDs{}, err
			}
		}
		if pool == nil {
			pool, err = r.repo.GetOldestPoolForToken(ctx, token.ID)
			if err != nil {
				return resolvedIDs{}, err
			}
		}
	} else {
		pool, err = r.repo.GetPoolByAddress(ctx, poolAddr)
		if err != nil {
			return resolvedIDs{}, err
		}
		token, err = r.repo.GetTokenByID(ctx, pool.TokenID)
		if err != nil {
			return resolvedIDs{}, err
		}
	}

	ids := resolvedIDs{TokenID: token.ID, PoolID: pool.ID, Decimals: token.Decimals}
	r.ids.put(key, ids)
	return ids, nil
}

// housekeeping drives the pool-state debounce, the graduation window
// sweep, and the id-cache purge from one ticker.
func (r *Reconciler) housekeeping() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.flushPoolState(r.ctx)
			r.sweepPending()
			r.ids.purge()
		}
	}
}

// flushPoolState writes the debounced snapshots, one write per pool.
func (r *Reconciler) flushPoolState(ctx context.Context) {
	r.mu.Lock()
	if len(r.poolState) == 0 {
		r.mu.Unlock()
		return
	}
	snapshot := r.poolState
	r.poolState = make(map[string]models.PoolStateUpdate)
	r.mu.Unlock()

	for addr, upd := range snapshot {
		u := repository.PoolReserves{
			Progress: upd.Progress,
			Status:   upd.Status,
		}
		if upd.VirtualBase != 0 || upd.VirtualQuote != 0 {
			u.VirtualBase = &upd.VirtualBase
			u.VirtualQuote = &upd.VirtualQuote
		}
		if upd.RealBase != 0 || upd.RealQuote != 0 {
			u.RealBase = &upd.RealBase
			u.RealQuote = &upd.RealQuote
		}
		if upd.Complete {
			full := 100.0
			u.Progress = &full
		}
		decimals := 6
		if ids, err := r.resolve(ctx, upd.MintAddress, addr); err == nil && ids.Decimals > 0 {
			decimals = ids.Decimals
		}
		if price := poolStatePrice(upd, decimals); price != nil {
			u.Price = price
			usd := *price * r.solPrice.Get(ctx)
			u.PriceUsd = &usd
		}
		if err := r.repo.UpdatePoolReserves(ctx, addr, u); err != nil {
			// Put the snapshot back so the next tick retries it, unless
			// a fresher one arrived meanwhile.
			r.mu.Lock()
			if _, exists := r.poolState[addr]; !exists {
				r.poolState[addr] = upd
			}
			r.mu.Unlock()
			log.Printf("[reconciler] pool state write %s: %v", addr, err)
			continue
		}
		r.Counters.PoolWrites.Add(1)
	}
}

// poolStatePrice derives spot price from virtual reserves (bonding
// curves) or real reserves (AMMs). Token side is base, SOL side quote.
func poolStatePrice(upd models.PoolStateUpdate, tokenDecimals int) *float64 {
	base, quote := upd.VirtualBase, upd.VirtualQuote
	if base == 0 || quote == 0 {
		base, quote = upd.RealBase, upd.RealQuote
	}
	if base == 0 || quote == 0 {
		return nil
	}
	p := (float64(quote) / 1e9) / (float64(base) / math.Pow10(tokenDecimals))
	return &p
}

// sweepPending expires graduation pool-match windows.
func (r *Reconciler) sweepPending() {
	now := time.Now()
	r.mu.Lock()
	for mint, p := range r.pending {
		if now.After(p.deadline) {
			delete(r.pending, mint)
			log.Printf("[reconciler] WARN: no %s pool appeared for graduated token %s within window", p.targetVenue, mint)
		}
	}
	r.mu.Unlock()
}

// batcherFor returns the consumer's batch queue, creating it on first
// use.
func (r *Reconciler) batcherFor(consumer string) *batcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batchers[consumer]
	if !ok {
		b = newBatcher(r, consumer, r.cfg.BatchSize, r.cfg.BatchTimeout)
		r.batchers[consumer] = b
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			b.run(r.ctx)
		}()
	}
	return b
}
