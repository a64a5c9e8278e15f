package reconcile

import "sync/atomic"

// Counters tracks the reconciler's drop and write accounting. Feed
// records are never silently lost: every drop lands in exactly one
// counter here.
type Counters struct {
	TradesWritten     atomic.Int64
	BatchesFlushed    atomic.Int64
	DuplicatesSkipped atomic.Int64
	UnresolvedDropped atomic.Int64
	DecodeSkipped     atomic.Int64
	VenueConflicts    atomic.Int64
	PoolWrites        atomic.Int64
	TokensCreated     atomic.Int64
	PoolsCreated      atomic.Int64
	Graduations       atomic.Int64
	SolPriceFallbacks atomic.Int64
}

// batchCommitted accounts one successful batch write: rows attempted
// against rows the store actually inserted. The difference is
// duplicates the conflict clause skipped.
func (c *Counters) batchCommitted(total int, inserted int64) {
	c.BatchesFlushed.Add(1)
	c.TradesWritten.Add(inserted)
	if skipped := int64(total) - inserted; skipped > 0 {
		c.DuplicatesSkipped.Add(skipped)
	}
}

// Snapshot renders the counters for the status endpoint.
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"trades_written":      c.TradesWritten.Load(),
		"batches_flushed":     c.BatchesFlushed.Load(),
		"duplicates_skipped":  c.DuplicatesSkipped.Load(),
		"unresolved_dropped":  c.UnresolvedDropped.Load(),
		"decode_skipped":      c.DecodeSkipped.Load(),
		"venue_conflicts":     c.VenueConflicts.Load(),
		"pool_writes":         c.PoolWrites.Load(),
		"tokens_created":      c.TokensCreated.Load(),
		"pools_created":       c.PoolsCreated.Load(),
		"graduations":         c.Graduations.Load(),
		"sol_price_fallbacks": c.SolPriceFallbacks.Load(),
	}
}
