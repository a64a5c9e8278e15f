package repository

import (
	"context"
	"fmt"
	"time"

	"pumpscan/internal/models"

	"github.com/jackc/pgx/v5"
)

// InsertSolUsdPrice appends one SOL/USD reference row. price_time is
// the primary key, so a replayed poll tick is a no-op.
func (r *Repository) InsertSolUsdPrice(ctx context.Context, p models.SolUsdPrice) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sol_usd_prices (price_time, price_usd)
		VALUES ($1, $2)
		ON CONFLICT (price_time) DO NOTHING`,
		p.PriceTime, p.PriceUsd,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sol/usd price: %w", err)
	}
	return nil
}

// GetSolUsdLatest returns the newest reference row, or nil when the
// series is empty.
func (r *Repository) GetSolUsdLatest(ctx context.Context) (*models.SolUsdPrice, error) {
	var p models.SolUsdPrice
	err := r.db.QueryRow(ctx, `
		SELECT price_time, price_usd FROM sol_usd_prices
		ORDER BY price_time DESC LIMIT 1`).Scan(&p.PriceTime, &p.PriceUsd)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetSolUsdAt returns the reference price closest to ts within 10
// minutes, or nil.
func (r *Repository) GetSolUsdAt(ctx context.Context, ts time.Time) (*models.SolUsdPrice, error) {
	var p models.SolUsdPrice
	err := r.db.QueryRow(ctx, `
		SELECT price_time, price_usd FROM sol_usd_prices
		WHERE price_time BETWEEN $1 AND $2
		ORDER BY ABS(EXTRACT(EPOCH FROM price_time - $3)) ASC
		LIMIT 1`,
		ts.Add(-10*time.Minute), ts.Add(10*time.Minute), ts).Scan(&p.PriceTime, &p.PriceUsd)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
