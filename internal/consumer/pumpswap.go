package consumer

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"pumpscan/internal/decode"
	"pumpscan/internal/feed"
	"pumpscan/internal/models"
)

// newPumpSwapPools watches AMM pool accounts. A new pool for a
// graduated pumpfun token is how the graduation link closes.
func newPumpSwapPools(d *Deps) *Consumer {
	program := solana.MustPublicKeyFromBase58(d.Programs.PumpSwap)
	wsol := d.Programs.WSOLMint

	handle := func(ctx context.Context, u feed.Update) {
		acc := u.Account
		if acc == nil {
			return
		}
		pool, err := decode.DecodePumpSwapPool(acc.Data)
		if err != nil {
			d.Recon.OnDecodeSkip("pumpswap-pools")
			return
		}

		// The token side is whichever mint is not wrapped SOL.
		mint := pool.BaseMint.String()
		if mint == wsol {
			mint = pool.QuoteMint.String()
		}
		d.Recon.OnPoolCreated(ctx, models.PoolCreated{
			PoolAddress: acc.Pubkey.String(),
			MintAddress: mint,
			BaseMint:    pool.BaseMint.String(),
			QuoteMint:   pool.QuoteMint.String(),
			Venue:       models.VenuePumpSwap,
			LpMint:      pool.LpMint.String(),
			CreatedAt:   time.Now().UTC(),
		})
	}

	return &Consumer{
		Name:   "pumpswap-pools",
		Filter: feed.Filter{Program: program},
		Handle: handle,
	}
}

// newPumpSwapTrades turns AMM buy/sell events into trade records and
// price updates from post-swap reserves.
func newPumpSwapTrades(d *Deps) *Consumer {
	program := solana.MustPublicKeyFromBase58(d.Programs.PumpSwap)

	handle := func(ctx context.Context, u feed.Update) {
		tx := u.Transaction
		if tx == nil || tx.Failed {
			return
		}
		events := decode.ParsePumpSwapEvents(tx.Logs)
		if len(events) == 0 {
			return
		}

		for _, ev := range events {
			side := models.TxSell
			if ev.IsBuy {
				side = models.TxBuy
			}
			blockTime := tx.ObservedAt
			if ev.Timestamp > 0 {
				blockTime = time.Unix(ev.Timestamp, 0).UTC()
			}
			d.Recon.OnTrade("pumpswap-trades", models.TradeRecord{
				Venue:       models.VenuePumpSwap,
				Signature:   tx.Signature.String(),
				BlockTime:   blockTime,
				Slot:        tx.Slot,
				PoolAddress: ev.Pool.String(),
				Type:        side,
				User:        ev.User.String(),
				SolAmount:   ev.QuoteAmount,
				TokenAmount: ev.BaseAmount,
				Meta: models.TradeMetadata{
					Success:   true,
					PostBase:  ev.PoolBaseTokenReserves,
					PostQuote: ev.PoolQuoteTokenReserves,
				},
			})

			// Post-graduation pools have no curve; progress stays nil.
			d.Recon.OnPoolState(models.PoolStateUpdate{
				Venue:       models.VenuePumpSwap,
				PoolAddress: ev.Pool.String(),
				RealBase:    ev.PoolBaseTokenReserves,
				RealQuote:   ev.PoolQuoteTokenReserves,
				Status:      models.PoolActive,
				ObservedAt:  blockTime,
			})
		}
	}

	return &Consumer{
		Name:   "pumpswap-trades",
		Filter: feed.Filter{Mentions: program},
		Handle: handle,
	}
}
