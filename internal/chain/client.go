package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client wraps the Solana JSON-RPC client with the few calls the
// pipeline needs: direct account reads for backfilling pool state the
// feed missed, and transaction lookups for mint extraction.
type Client struct {
	rpc *rpc.Client
}

// NewClient connects to the given RPC endpoint.
func NewClient(url string) *Client {
	return &Client{rpc: rpc.New(url)}
}

// Account is a point-in-time account read.
type Account struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// GetAccount fetches an account's owner, lamports and raw data.
func (c *Client) GetAccount(ctx context.Context, addr solana.PublicKey) (*Account, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", addr, err)
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("account %s not found", addr)
	}
	return &Account{
		Owner:    out.Value.Owner,
		Lamports: out.Value.Lamports,
		Data:     out.Value.Data.GetBinary(),
	}, nil
}

// GetBalance returns an address's lamport balance.
func (c *Client) GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", addr, err)
	}
	return out.Value, nil
}

// GetTransaction fetches a confirmed transaction with metadata. Used
// to recover the token mint from migration transactions where the feed
// notification only carries log lines.
func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", sig, err)
	}
	return out, nil
}

// GetSignaturesForAddress lists recent signatures touching an address,
// newest first, up to limit.
func (c *Client) GetSignaturesForAddress(ctx context.Context, addr solana.PublicKey, limit int) ([]*rpc.TransactionSignature, error) {
	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, addr, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get signatures for %s: %w", addr, err)
	}
	return out, nil
}
