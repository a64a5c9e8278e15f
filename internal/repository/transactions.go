package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pumpscan/internal/models"
)

// maxBatchRows bounds the rows per INSERT statement; 17 parameters per
// row keeps us well under the wire-protocol parameter limit.
const maxBatchRows = 1000

// AppendTransaction inserts a single trade row. A duplicate
// (signature, block_time) is a silent no-op.
func (r *Repository) AppendTransaction(ctx context.Context, tx models.Transaction) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO transactions (signature, block_time, slot, pool_id, token_id, tx_type, user_address,
			sol_amount, token_amount, price_per_token, price_usd,
			pre_base_reserves, pre_quote_reserves, post_base_reserves, post_quote_reserves,
			fee_lamports, raw_meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (signature, block_time) DO NOTHING`,
		tx.Signature, tx.BlockTime, tx.Slot, tx.PoolID, tx.TokenID, tx.Type, tx.User,
		tx.SolAmount, tx.TokenAmount, tx.PricePerToken, tx.PriceUsd,
		tx.PreBase, tx.PreQuote, tx.PostBase, tx.PostQuote,
		tx.FeeLamports, tx.RawMeta,
	)
	if err != nil {
		return fmt.Errorf("failed to append tx %s: %w", tx.Signature, err)
	}
	return nil
}

// AppendTransactionBatch appends trades in chunks of at most
// maxBatchRows, one multi-row statement per chunk with ON CONFLICT DO
// NOTHING. Each chunk is atomic; the call as a whole is not. Returns
// the number of rows actually inserted (duplicates excluded).
func (r *Repository) AppendTransactionBatch(ctx context.Context, txs []models.Transaction) (int64, error) {
	var inserted int64
	for _, chunk := range chunkTransactions(txs, maxBatchRows) {
		sql, args := buildTransactionInsert(chunk)
		tag, err := r.db.Exec(ctx, sql, args...)
		if err != nil {
			return inserted, fmt.Errorf("failed to append batch of %d txs: %w", len(chunk), err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func chunkTransactions(txs []models.Transaction, size int) [][]models.Transaction {
	if len(txs) == 0 {
		return nil
	}
	var chunks [][]models.Transaction
	for start := 0; start < len(txs); start += size {
		end := start + size
		if end > len(txs) {
			end = len(txs)
		}
		chunks = append(chunks, txs[start:end])
	}
	return chunks
}

func buildTransactionInsert(txs []models.Transaction) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO transactions (signature, block_time, slot, pool_id, token_id, tx_type, user_address,
		sol_amount, token_amount, price_per_token, price_usd,
		pre_base_reserves, pre_quote_reserves, post_base_reserves, post_quote_reserves,
		fee_lamports, raw_meta) VALUES `)

	args := make([]interface{}, 0, len(txs)*17)
	for i, tx := range txs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 17
		sb.WriteString("(")
		for j := 1; j <= 17; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			tx.Signature, tx.BlockTime, tx.Slot, tx.PoolID, tx.TokenID, tx.Type, tx.User,
			tx.SolAmount, tx.TokenAmount, tx.PricePerToken, tx.PriceUsd,
			tx.PreBase, tx.PreQuote, tx.PostBase, tx.PostQuote,
			tx.FeeLamports, tx.RawMeta)
	}
	sb.WriteString(" ON CONFLICT (signature, block_time) DO NOTHING")
	return sb.String(), args
}

// TransactionCount returns the number of trades for a token since the cutoff.
func (r *Repository) TransactionCount(ctx context.Context, tokenID int64, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE token_id = $1 AND block_time >= $2`,
		tokenID, since).Scan(&n)
	return n, err
}

// TradingActivity is the per-token hour window the technical score
// consumes: trade count, distinct buyers/sellers, buy/sell volumes.
type TradingActivity struct {
	TradeCount      int
	DistinctBuyers  int
	DistinctSellers int
	BuyCount        int
	SellCount       int
	VolumeSol       uint64
}

func (r *Repository) GetTradingActivity(ctx context.Context, tokenID int64, window time.Duration) (TradingActivity, error) {
	var a TradingActivity
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT user_address) FILTER (WHERE tx_type = 'buy'),
		       COUNT(DISTINCT user_address) FILTER (WHERE tx_type = 'sell'),
		       COUNT(*) FILTER (WHERE tx_type = 'buy'),
		       COUNT(*) FILTER (WHERE tx_type = 'sell'),
		       COALESCE(SUM(sol_amount), 0)
		FROM transactions
		WHERE token_id = $1 AND block_time >= $2`,
		tokenID, time.Now().Add(-window),
	).Scan(&a.TradeCount, &a.DistinctBuyers, &a.DistinctSellers, &a.BuyCount, &a.SellCount, &a.VolumeSol)
	if err != nil {
		return TradingActivity{}, fmt.Errorf("failed to load trading activity for token %d: %w", tokenID, err)
	}
	return a, nil
}

// LargeSell is a recent sell above the selloff threshold, with the
// trade that followed it (if any) for recovery detection.
type LargeSell struct {
	BlockTime time.Time
	SolAmount uint64
}

// RecentLargeSells lists sells above minLamports in the window,
// newest first.
func (r *Repository) RecentLargeSells(ctx context.Context, tokenID int64, minLamports uint64, window time.Duration) ([]LargeSell, error) {
	rows, err := r.db.Query(ctx, `
		SELECT block_time, sol_amount
		FROM transactions
		WHERE token_id = $1 AND tx_type = 'sell' AND sol_amount > $2 AND block_time >= $3
		ORDER BY block_time DESC`,
		tokenID, minLamports, time.Now().Add(-window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sells []LargeSell
	for rows.Next() {
		var s LargeSell
		if err := rows.Scan(&s.BlockTime, &s.SolAmount); err != nil {
			return nil, err
		}
		sells = append(sells, s)
	}
	return sells, rows.Err()
}

// BuyVolumeSince sums buy-side SOL volume after a cutoff, used to
// judge recovery after a large sell.
func (r *Repository) BuyVolumeSince(ctx context.Context, tokenID int64, since time.Time) (uint64, error) {
	var v uint64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(sol_amount), 0) FROM transactions
		WHERE token_id = $1 AND tx_type = 'buy' AND block_time >= $2`,
		tokenID, since).Scan(&v)
	return v, err
}
