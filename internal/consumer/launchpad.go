package consumer

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"pumpscan/internal/decode"
	"pumpscan/internal/feed"
	"pumpscan/internal/models"
)

// Launchpad initialize-instruction account ordering. The instruction
// data itself is opaque to us; the account list carries everything the
// pipeline needs.
const (
	initPayerIdx      = 0
	initPoolStateIdx  = 5
	initBaseMintIdx   = 6
	initQuoteMintIdx  = 7
	initBaseVaultIdx  = 8
	initQuoteVaultIdx = 9
)

// newMintDetector watches launchpad transactions for pool initialize
// instructions. The logs flag the instruction; the full transaction is
// fetched over RPC to recover the account list (mint, pool, vaults).
func newMintDetector(d *Deps) *Consumer {
	program := solana.MustPublicKeyFromBase58(d.Programs.Launchpad)

	handle := func(ctx context.Context, u feed.Update) {
		tx := u.Transaction
		if tx == nil || tx.Failed || !hasInitializeLog(tx.Logs) {
			return
		}

		res, err := d.Chain.GetTransaction(ctx, tx.Signature)
		if err != nil || res == nil || res.Transaction == nil {
			d.Recon.OnDecodeSkip("launchpad-mints")
			return
		}
		parsed, err := res.Transaction.GetTransaction()
		if err != nil {
			d.Recon.OnDecodeSkip("launchpad-mints")
			return
		}
		msg := &parsed.Message

		for _, ins := range msg.Instructions {
			if int(ins.ProgramIDIndex) >= len(msg.AccountKeys) ||
				msg.AccountKeys[ins.ProgramIDIndex] != program ||
				len(ins.Accounts) <= initQuoteVaultIdx {
				continue
			}
			key := func(i int) string {
				return msg.AccountKeys[ins.Accounts[i]].String()
			}

			mint := key(initBaseMintIdx)
			d.Recon.OnTokenCreated(ctx, models.TokenCreated{
				MintAddress:  mint,
				Venue:        models.VenueLaunchpad,
				Creator:      key(initPayerIdx),
				CreationSig:  tx.Signature.String(),
				CreationTime: tx.ObservedAt,
			})
			d.Recon.OnPoolCreated(ctx, models.PoolCreated{
				PoolAddress: key(initPoolStateIdx),
				MintAddress: mint,
				BaseMint:    mint,
				QuoteMint:   key(initQuoteMintIdx),
				Venue:       models.VenueLaunchpad,
				BaseVault:   key(initBaseVaultIdx),
				QuoteVault:  key(initQuoteVaultIdx),
				CreatedAt:   tx.ObservedAt,
			})
		}
	}

	return &Consumer{
		Name:   "launchpad-mints",
		Filter: feed.Filter{Mentions: program},
		Handle: handle,
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// hasInitializeLog matches the bare initialize instruction, not the
// token program's InitializeAccount/InitializeMint noise.
func hasInitializeLog(logs []string) bool {
	for _, line := range logs {
		if strings.HasSuffix(line, "Instruction: Initialize") {
			return true
		}
	}
	return false
}

// newLaunchpadAccount watches launchpad pool accounts. Each update is
// a full pool snapshot: reserves, fundraising progress, and the status
// transition that signals migration to the Raydium AMM.
func newLaunchpadAccount(d *Deps) *Consumer {
	program := solana.MustPublicKeyFromBase58(d.Programs.Launchpad)

	var mu sync.Mutex
	migrated := make(map[string]bool)

	handle := func(ctx context.Context, u feed.Update) {
		acc := u.Account
		if acc == nil {
			return
		}
		state, err := decode.DecodeLaunchpadPoolState(acc.Data)
		if err != nil {
			d.Recon.OnDecodeSkip("launchpad-accounts")
			return
		}

		progress := state.Progress()
		if byTokens := state.ProgressByTokens(); byTokens > 0 && abs(progress-byTokens) > 1 {
			log.Printf("[launchpad-accounts] progress drift on %s: quote=%.2f tokens=%.2f",
				acc.Pubkey, progress, byTokens)
		}
		status := models.PoolActive
		if state.Status == decode.LaunchpadStatusMigrated {
			status = models.PoolGraduated
		}
		d.Recon.OnPoolState(models.PoolStateUpdate{
			Venue:        models.VenueLaunchpad,
			PoolAddress:  acc.Pubkey.String(),
			MintAddress:  state.BaseMint.String(),
			VirtualBase:  state.VirtualBase,
			VirtualQuote: state.VirtualQuote,
			RealBase:     state.RealBase,
			RealQuote:    state.RealQuote,
			Progress:     &progress,
			Status:       status,
			ObservedAt:   time.Now().UTC(),
		})

		if state.Status == decode.LaunchpadStatusMigrated {
			addr := acc.Pubkey.String()
			mu.Lock()
			seen := migrated[addr]
			migrated[addr] = true
			mu.Unlock()
			if !seen {
				d.Recon.OnGraduated(ctx, models.Graduated{
					MintAddress: state.BaseMint.String(),
					TargetAMM:   models.VenueRaydium,
					GraduatedAt: time.Now().UTC(),
				})
			}
		}
	}

	return &Consumer{
		Name:   "launchpad-accounts",
		Filter: feed.Filter{Program: program},
		Handle: handle,
	}
}

// newLaunchpadTransactions turns launchpad trade events into trade
// records. The event names only the pool, so the reconciler resolves
// the token through the pool address.
func newLaunchpadTransactions(d *Deps) *Consumer {
	program := solana.MustPublicKeyFromBase58(d.Programs.Launchpad)

	handle := func(ctx context.Context, u feed.Update) {
		tx := u.Transaction
		if tx == nil || tx.Failed {
			return
		}
		events := decode.ParseLaunchpadEvents(tx.Logs)
		if len(events) == 0 {
			return
		}

		for _, ev := range events {
			side := models.TxSell
			if ev.IsBuy() {
				side = models.TxBuy
			}
			d.Recon.OnTrade("launchpad-trades", models.TradeRecord{
				Venue:       models.VenueLaunchpad,
				Signature:   tx.Signature.String(),
				BlockTime:   tx.ObservedAt,
				Slot:        tx.Slot,
				PoolAddress: ev.PoolState.String(),
				Type:        side,
				SolAmount:   ev.SolAmount(),
				TokenAmount: ev.TokenAmount(),
				Meta: models.TradeMetadata{
					Success:   true,
					PreBase:   ev.RealBaseBefore,
					PreQuote:  ev.RealQuoteBefore,
					PostBase:  ev.RealBaseAfter,
					PostQuote: ev.RealQuoteAfter,
				},
			})
		}
	}

	return &Consumer{
		Name:   "launchpad-trades",
		Filter: feed.Filter{Mentions: program},
		Handle: handle,
	}
}
