package consumer

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"pumpscan/internal/config"
	"pumpscan/internal/decode"
	"pumpscan/internal/feed"
	"pumpscan/internal/models"
)

// bondingCurveSeed is the PDA seed binding a pumpfun mint to its
// bonding-curve account.
var bondingCurveSeed = []byte("bonding-curve")

// bondingCurveAddress derives the curve account for a mint. For
// pumpfun the pool address IS the bonding-curve address.
func bondingCurveAddress(program, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{bondingCurveSeed, mint.Bytes()}, program)
	return addr, err
}

// pumpFunProgress computes curve completion from virtual token
// reserves using the venue's fixed launch constants, clamped [0, 100].
func pumpFunProgress(virtualTokenReserves uint64) float64 {
	if virtualTokenReserves >= config.PumpFunInitialVirtualTokenReserves {
		return 0
	}
	sold := config.PumpFunInitialVirtualTokenReserves - virtualTokenReserves
	p := float64(sold) / float64(config.PumpFunTotalSellableTokens) * 100
	if p > 100 {
		return 100
	}
	return p
}

// newPumpFunTrade watches pumpfun transactions: create events open
// tokens and curves, trade events carry exact amounts plus post-trade
// reserves, so one update yields both a trade and a pool-state write.
func newPumpFunTrade(d *Deps) *Consumer {
	program := solana.MustPublicKeyFromBase58(d.Programs.PumpFun)

	handle := func(ctx context.Context, u feed.Update) {
		tx := u.Transaction
		if tx == nil || tx.Failed {
			return
		}
		trades, creates := decode.ParsePumpFunEvents(tx.Logs)
		if len(trades) == 0 && len(creates) == 0 {
			if len(decode.EventPayloads(tx.Logs)) > 0 {
				d.Recon.OnDecodeSkip("pumpfun-trade")
			}
			return
		}

		for _, ev := range creates {
			d.Recon.OnTokenCreated(ctx, models.TokenCreated{
				MintAddress:  ev.Mint.String(),
				Symbol:       ev.Symbol,
				Name:         ev.Name,
				Decimals:     config.DefaultTokenDecimals,
				Venue:        models.VenuePumpFun,
				Creator:      ev.User.String(),
				CreationSig:  tx.Signature.String(),
				CreationTime: tx.ObservedAt,
				MetadataURI:  ev.URI,
			})
			d.Recon.OnPoolCreated(ctx, models.PoolCreated{
				PoolAddress: ev.BondingCurve.String(),
				MintAddress: ev.Mint.String(),
				BaseMint:    ev.Mint.String(),
				QuoteMint:   d.Programs.WSOLMint,
				Venue:       models.VenuePumpFun,
				CreatedAt:   tx.ObservedAt,
			})
		}

		for _, ev := range trades {
			curve, err := bondingCurveAddress(program, ev.Mint)
			if err != nil {
				d.Recon.OnDecodeSkip("pumpfun-trade")
				continue
			}

			side := models.TxSell
			if ev.IsBuy {
				side = models.TxBuy
			}
			blockTime := tx.ObservedAt
			if ev.Timestamp > 0 {
				blockTime = time.Unix(ev.Timestamp, 0).UTC()
			}
			d.Recon.OnTrade("pumpfun-trade", models.TradeRecord{
				Venue:       models.VenuePumpFun,
				Signature:   tx.Signature.String(),
				BlockTime:   blockTime,
				Slot:        tx.Slot,
				MintAddress: ev.Mint.String(),
				PoolAddress: curve.String(),
				Type:        side,
				User:        ev.User.String(),
				SolAmount:   ev.SolAmount,
				TokenAmount: ev.TokenAmount,
				Meta: models.TradeMetadata{
					Success:   true,
					PostBase:  ev.VirtualTokenReserves,
					PostQuote: ev.VirtualSolReserves,
				},
			})

			progress := pumpFunProgress(ev.VirtualTokenReserves)
			d.Recon.OnPoolState(models.PoolStateUpdate{
				Venue:        models.VenuePumpFun,
				PoolAddress:  curve.String(),
				MintAddress:  ev.Mint.String(),
				VirtualBase:  ev.VirtualTokenReserves,
				VirtualQuote: ev.VirtualSolReserves,
				RealBase:     ev.RealTokenReserves,
				RealQuote:    ev.RealSolReserves,
				Progress:     &progress,
				Status:       models.PoolActive,
				ObservedAt:   blockTime,
			})
		}
	}

	return &Consumer{
		Name:   "pumpfun-trade",
		Filter: feed.Filter{Mentions: program},
		Handle: handle,
	}
}

// newPumpFunBondingCurve watches the curve accounts themselves. The
// account payload is authoritative for the complete flag, which trade
// events never carry.
func newPumpFunBondingCurve(d *Deps) *Consumer {
	program := solana.MustPublicKeyFromBase58(d.Programs.PumpFun)

	handle := func(ctx context.Context, u feed.Update) {
		acc := u.Account
		if acc == nil {
			return
		}
		curve, err := decode.DecodePumpFunBondingCurve(acc.Data)
		if err != nil {
			d.Recon.OnDecodeSkip("pumpfun-curve")
			return
		}

		progress := pumpFunProgress(curve.VirtualTokenReserves)
		if curve.Complete {
			progress = 100
		}
		d.Recon.OnPoolState(models.PoolStateUpdate{
			Venue:        models.VenuePumpFun,
			PoolAddress:  acc.Pubkey.String(),
			VirtualBase:  curve.VirtualTokenReserves,
			VirtualQuote: curve.VirtualSolReserves,
			RealBase:     curve.RealTokenReserves,
			RealQuote:    curve.RealSolReserves,
			Progress:     &progress,
			Status:       models.PoolActive,
			Complete:     curve.Complete,
			ObservedAt:   time.Now().UTC(),
		})
	}

	return &Consumer{
		Name:   "pumpfun-curve",
		Filter: feed.Filter{Program: program},
		Handle: handle,
	}
}
