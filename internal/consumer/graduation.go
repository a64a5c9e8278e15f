package consumer

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"pumpscan/internal/decode"
	"pumpscan/internal/feed"
	"pumpscan/internal/models"
)

// graduationSeenCap bounds the signature dedupe set; migrations are
// rare enough that this is effectively unbounded in practice.
const graduationSeenCap = 4096

// newGraduationDetector watches the pumpfun migration program. A
// successful migration transaction graduates the token; the mint is
// recovered from the transaction's account list.
func newGraduationDetector(d *Deps) *Consumer {
	migration := solana.MustPublicKeyFromBase58(d.Programs.PumpFunMigration)
	knownPrograms := []solana.PublicKey{
		migration,
		solana.MustPublicKeyFromBase58(d.Programs.PumpFun),
		solana.MustPublicKeyFromBase58(d.Programs.PumpSwap),
		solana.MustPublicKeyFromBase58(d.Programs.Launchpad),
		solana.MustPublicKeyFromBase58(d.Programs.RaydiumAMM),
	}

	var mu sync.Mutex
	seen := make(map[solana.Signature]bool)

	handle := func(ctx context.Context, u feed.Update) {
		tx := u.Transaction
		if tx == nil || tx.Failed {
			return
		}

		mu.Lock()
		if seen[tx.Signature] {
			mu.Unlock()
			return
		}
		if len(seen) >= graduationSeenCap {
			seen = make(map[solana.Signature]bool)
		}
		seen[tx.Signature] = true
		mu.Unlock()

		res, err := d.Chain.GetTransaction(ctx, tx.Signature)
		if err != nil || res == nil || res.Transaction == nil {
			d.Recon.OnDecodeSkip("graduations")
			return
		}
		parsed, err := res.Transaction.GetTransaction()
		if err != nil {
			d.Recon.OnDecodeSkip("graduations")
			return
		}

		mint, err := decode.ExtractMint(&parsed.Message, knownPrograms)
		if err != nil {
			d.Recon.OnDecodeSkip("graduations")
			return
		}

		d.Recon.OnGraduated(ctx, models.Graduated{
			MintAddress:   mint.String(),
			TargetAMM:     models.VenuePumpSwap,
			GraduationSig: tx.Signature.String(),
			GraduatedAt:   tx.ObservedAt,
		})
	}

	return &Consumer{
		Name:   "graduations",
		Filter: feed.Filter{Mentions: migration},
		Handle: handle,
	}
}
