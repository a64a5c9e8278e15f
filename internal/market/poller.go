package market

import (
	"context"
	"log"
	"time"

	"pumpscan/internal/models"
	"pumpscan/internal/repository"
)

// Poller keeps the sol_usd_prices reference series fresh. On start it
// backfills recent daily closes, then writes a spot quote every
// interval. The reconciler's 5 s cache reads the newest row.
type Poller struct {
	repo     *repository.Repository
	interval time.Duration
}

func NewPoller(repo *repository.Repository, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{repo: repo, interval: interval}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.backfill(ctx)
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	log.Printf("[market] SOL/USD poller started (every %s)", p.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[market] SOL/USD poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	quote, err := FetchSolPrice(ctx)
	if err != nil {
		log.Printf("[market] fetch SOL price: %v", err)
		return
	}
	if err := p.repo.InsertSolUsdPrice(ctx, models.SolUsdPrice{
		PriceTime: quote.AsOf.UTC().Truncate(time.Second),
		PriceUsd:  quote.Price,
	}); err != nil {
		log.Printf("[market] store SOL price: %v", err)
	}
}

// backfill seeds 90 days of daily closes so USD enrichment of older
// candles has something to anchor on. CryptoCompare first, DeFi Llama
// as fallback. Duplicate days are no-ops at the store.
func (p *Poller) backfill(ctx context.Context) {
	quotes, err := FetchDailyPriceHistory(ctx, "SOL", 90)
	if err != nil {
		log.Printf("[market] cryptocompare backfill failed: %v, trying defillama", err)
		quotes, err = FetchDefiLlamaPriceHistory(ctx, "solana", time.Now().AddDate(0, -3, 0))
		if err != nil {
			log.Printf("[market] defillama backfill failed: %v", err)
			return
		}
	}

	inserted := 0
	for _, q := range quotes {
		if err := p.repo.InsertSolUsdPrice(ctx, models.SolUsdPrice{
			PriceTime: q.AsOf,
			PriceUsd:  q.Price,
		}); err == nil {
			inserted++
		}
	}
	log.Printf("[market] backfilled %d SOL/USD daily prices", inserted)
}
