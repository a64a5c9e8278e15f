package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"pumpscan/internal/models"
	"pumpscan/internal/repository"
)

// batcher buffers one consumer's trade records and flushes them
// oldest-first, either when a batch fills or on the flush timeout.
// The queue holds at most two batches; a full queue blocks the
// consumer's decode loop rather than dropping records.
type batcher struct {
	r       *Reconciler
	name    string
	size    int
	timeout time.Duration

	in      chan models.TradeRecord
	stopped chan struct{}

	// carry holds rows whose store write failed; they retry on the
	// next flush.
	carry []models.Transaction
}

func newBatcher(r *Reconciler, name string, size int, timeout time.Duration) *batcher {
	return &batcher{
		r:       r,
		name:    name,
		size:    size,
		timeout: timeout,
		in:      make(chan models.TradeRecord, 2*size),
		stopped: make(chan struct{}),
	}
}

// add enqueues one record, blocking when the queue is full.
func (b *batcher) add(rec models.TradeRecord) {
	select {
	case b.in <- rec:
	case <-b.stopped:
		log.Printf("[reconciler] WARN: trade %s arrived after %s batcher stopped", rec.Signature, b.name)
	}
}

func (b *batcher) run(ctx context.Context) {
	pending := make([]models.TradeRecord, 0, b.size)
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			b.drainInto(&pending)
			b.flush(context.Background(), pending)
			return
		case rec := <-b.in:
			pending = append(pending, rec)
			if len(pending) >= b.size {
				b.flush(ctx, pending)
				pending = pending[:0]
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(b.timeout)
			}
		case <-timer.C:
			if len(pending) > 0 {
				b.flush(ctx, pending)
				pending = pending[:0]
			}
			timer.Reset(b.timeout)
		}
	}
}

// stop waits for the run loop to finish its final flush, bounded by
// the shutdown context.
func (b *batcher) stop(ctx context.Context) {
	close(b.stopped)
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
		// run exits via its own ctx; this just yields briefly so the
		// final flush can start before Stop returns.
	}
}

func (b *batcher) drainInto(pending *[]models.TradeRecord) {
	for {
		select {
		case rec := <-b.in:
			*pending = append(*pending, rec)
		default:
			return
		}
	}
}

// flush resolves ids and appends the batch. Unresolvable rows are
// dropped with a warning; the rest still write. Store failures keep
// the converted rows for the next flush.
func (b *batcher) flush(ctx context.Context, recs []models.TradeRecord) {
	rows := b.carry
	b.carry = nil

	for _, rec := range recs {
		ids, err := b.r.resolve(ctx, rec.MintAddress, rec.PoolAddress)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				b.r.Counters.UnresolvedDropped.Add(1)
				log.Printf("[reconciler] WARN: %s trade %s for unknown mint %s dropped", b.name, rec.Signature, rec.MintAddress)
				continue
			}
			b.r.Counters.UnresolvedDropped.Add(1)
			log.Printf("[reconciler] WARN: resolve %s failed (%v), row dropped", rec.Signature, err)
			continue
		}

		price := rec.PriceFromAmounts(ids.Decimals)
		var priceUsd *float64
		if price > 0 {
			usd := price * b.r.solPrice.Get(ctx)
			priceUsd = &usd
		}

		rawMeta, _ := json.Marshal(rec.Meta)
		rows = append(rows, models.Transaction{
			Signature:     rec.Signature,
			BlockTime:     rec.BlockTime,
			Slot:          rec.Slot,
			PoolID:        ids.PoolID,
			TokenID:       ids.TokenID,
			Type:          rec.Type,
			User:          rec.User,
			SolAmount:     rec.SolAmount,
			TokenAmount:   rec.TokenAmount,
			PricePerToken: price,
			PriceUsd:      priceUsd,
			PreBase:       rec.Meta.PreBase,
			PreQuote:      rec.Meta.PreQuote,
			PostBase:      rec.Meta.PostBase,
			PostQuote:     rec.Meta.PostQuote,
			FeeLamports:   rec.Meta.FeeLamports,
			RawMeta:       rawMeta,
		})
	}

	if len(rows) == 0 {
		return
	}

	inserted, err := b.r.repo.AppendTransactionBatch(ctx, rows)
	if err != nil {
		// Connection-level failure: keep the rows and retry on the next
		// flush. Appends are idempotent so a partial write is safe.
		b.carry = rows
		log.Printf("[reconciler] batch write for %s failed (%d rows kept): %v", b.name, len(rows), err)
		return
	}
	b.r.Counters.batchCommitted(len(rows), inserted)

	if notify := b.r.cfg.Notify.TradeCommitted; notify != nil {
		for _, row := range rows {
			notify(row)
		}
	}
}
