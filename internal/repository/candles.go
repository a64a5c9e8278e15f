package repository

import (
	"context"
	"fmt"
	"time"

	"pumpscan/internal/models"
)

// RefreshCandles rebuilds the 1-minute candle materialization for
// [from, to) from the transactions source. Candles are recomputed
// materializations and may be rebuilt at any time; the refresher
// worker calls this with [now-2h, now-1m) every minute. open/close
// pick the first/last trade by block_time within the bucket.
func (r *Repository) RefreshCandles(ctx context.Context, from, to time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO candles_1m (token_id, minute, open, high, low, close,
			volume_sol, volume_token, trade_count, buyer_count, seller_count)
		SELECT token_id,
		       date_trunc('minute', block_time) AS minute,
		       (array_agg(price_per_token ORDER BY block_time ASC))[1],
		       MAX(price_per_token),
		       MIN(price_per_token),
		       (array_agg(price_per_token ORDER BY block_time DESC))[1],
		       SUM(sol_amount),
		       SUM(token_amount),
		       COUNT(*),
		       COUNT(DISTINCT user_address) FILTER (WHERE tx_type = 'buy'),
		       COUNT(DISTINCT user_address) FILTER (WHERE tx_type = 'sell')
		FROM transactions
		WHERE price_per_token > 0
		  AND tx_type IN ('buy', 'sell')
		  AND block_time >= $1 AND block_time < $2
		GROUP BY token_id, date_trunc('minute', block_time)
		ON CONFLICT (token_id, minute) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume_sol = EXCLUDED.volume_sol,
			volume_token = EXCLUDED.volume_token,
			trade_count = EXCLUDED.trade_count,
			buyer_count = EXCLUDED.buyer_count,
			seller_count = EXCLUDED.seller_count`,
		from, to,
	)
	if err != nil {
		return fmt.Errorf("failed to refresh candles [%s, %s): %w", from.Format(time.RFC3339), to.Format(time.RFC3339), err)
	}
	return nil
}

// QueryCandles streams candles for a token over [from, to), ascending
// by minute. Restartable: re-issue with the last seen minute as from.
func (r *Repository) QueryCandles(ctx context.Context, tokenID int64, from, to time.Time) ([]models.Candle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT token_id, minute, open, high, low, close,
		       volume_sol, volume_token, trade_count, buyer_count, seller_count
		FROM candles_1m
		WHERE token_id = $1 AND minute >= $2 AND minute < $3
		ORDER BY minute ASC`,
		tokenID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.TokenID, &c.Minute, &c.Open, &c.High, &c.Low, &c.Close,
			&c.VolumeSol, &c.VolumeToken, &c.TradeCount, &c.BuyerCount, &c.SellerCount); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LatestCandles returns the newest n candles for a token, newest first.
func (r *Repository) LatestCandles(ctx context.Context, tokenID int64, n int) ([]models.Candle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT token_id, minute, open, high, low, close,
		       volume_sol, volume_token, trade_count, buyer_count, seller_count
		FROM candles_1m
		WHERE token_id = $1
		ORDER BY minute DESC
		LIMIT $2`,
		tokenID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.TokenID, &c.Minute, &c.Open, &c.High, &c.Low, &c.Close,
			&c.VolumeSol, &c.VolumeToken, &c.TradeCount, &c.BuyerCount, &c.SellerCount); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// PriceChange returns the relative price change over the window, from
// the first candle open to the last candle close. Zero when there is
// no candle data.
func (r *Repository) PriceChange(ctx context.Context, tokenID int64, window time.Duration) (float64, error) {
	var open, close float64
	err := r.db.QueryRow(ctx, `
		WITH w AS (
			SELECT open, close, minute FROM candles_1m
			WHERE token_id = $1 AND minute >= $2
		)
		SELECT COALESCE((SELECT open FROM w ORDER BY minute ASC LIMIT 1), 0),
		       COALESCE((SELECT close FROM w ORDER BY minute DESC LIMIT 1), 0)`,
		tokenID, time.Now().Add(-window)).Scan(&open, &close)
	if err != nil {
		return 0, err
	}
	if open == 0 {
		return 0, nil
	}
	return (close - open) / open, nil
}
