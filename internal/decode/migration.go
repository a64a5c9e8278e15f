package decode

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// token2022ProgramID is not exported by the pinned SDK version.
var token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// Accounts that can never be the migrated token's mint and must be
// skipped when scanning a migration transaction's account list.
var nonMintAccounts = map[solana.PublicKey]bool{
	solana.SystemProgramID:                    true,
	solana.TokenProgramID:                     true,
	token2022ProgramID:                        true,
	solana.SPLAssociatedTokenAccountProgramID: true,
	solana.SysVarRentPubkey:                   true,
	solana.SolMint:                            true,
	solana.WrappedSol:                         true,
}

// ExtractMint resolves the token mint from a migration transaction's
// message. The signer-funded accounts come first in a Solana message,
// so the mint is the first read-only non-program account that is not a
// well-known system address. knownPrograms carries the venue program
// ids from configuration so they are skipped too.
func ExtractMint(msg *solana.Message, knownPrograms []solana.PublicKey) (solana.PublicKey, error) {
	skip := make(map[solana.PublicKey]bool, len(knownPrograms))
	for _, p := range knownPrograms {
		skip[p] = true
	}

	programIdx := make(map[int]bool)
	for _, ins := range msg.Instructions {
		programIdx[int(ins.ProgramIDIndex)] = true
	}

	numSigners := int(msg.Header.NumRequiredSignatures)
	for i, key := range msg.AccountKeys {
		if i < numSigners {
			continue
		}
		if programIdx[i] || nonMintAccounts[key] || skip[key] {
			continue
		}
		if indexIsWritable(msg, i) {
			// Mints of already-launched tokens are read-only in the
			// migration; writable accounts here are pools and vaults
			// being created.
			continue
		}
		return key, nil
	}

	// Fall back to the first non-system account regardless of
	// writability; some migration variants mutate mint authority.
	for i, key := range msg.AccountKeys {
		if i < numSigners || programIdx[i] || nonMintAccounts[key] || skip[key] {
			continue
		}
		return key, nil
	}
	return solana.PublicKey{}, fmt.Errorf("migration tx has no candidate mint account: %w", ErrUnknown)
}

// indexIsWritable applies the message-header rule: writable accounts
// are the leading signed block minus its read-only tail, plus the
// unsigned block minus its read-only tail.
func indexIsWritable(msg *solana.Message, i int) bool {
	numSigners := int(msg.Header.NumRequiredSignatures)
	if i < numSigners {
		return i < numSigners-int(msg.Header.NumReadonlySignedAccounts)
	}
	return i < len(msg.AccountKeys)-int(msg.Header.NumReadonlyUnsignedAccounts)
}
