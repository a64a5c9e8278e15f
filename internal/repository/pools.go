package repository

import (
	"context"
	"fmt"
	"time"

	"pumpscan/internal/models"

	"github.com/jackc/pgx/v5"
)

// PoolFields carries the writable fields of UpsertPool.
type PoolFields struct {
	TokenID   int64
	BaseMint  string
	QuoteMint string // defaults to WSOL when empty
	Venue     string
	Status    string
}

const wsolMint = "So11111111111111111111111111111111111111112"

// UpsertPool inserts or refreshes a pool keyed by pool address.
//
// Venue invariant: a launch-venue pool must match its token's venue.
// A pool on a different venue (pumpswap, raydium) is accepted only for
// a graduated token: that is the graduated pool being linked. Any
// other mismatch is ErrVenueConflict.
func (r *Repository) UpsertPool(ctx context.Context, poolAddr string, f PoolFields) (int64, error) {
	if f.QuoteMint == "" {
		f.QuoteMint = wsolMint
	}
	if f.Status == "" {
		f.Status = models.PoolActive
	}

	var tokenVenue string
	var graduated bool
	err := r.db.QueryRow(ctx, `SELECT venue, is_graduated FROM tokens WHERE id = $1`, f.TokenID).
		Scan(&tokenVenue, &graduated)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("pool %s references unknown token %d: %w", poolAddr, f.TokenID, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	if f.Venue != tokenVenue && !graduated {
		return 0, fmt.Errorf("pool %s venue %q vs token venue %q (not graduated): %w",
			poolAddr, f.Venue, tokenVenue, ErrVenueConflict)
	}

	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO pools (pool_address, token_id, base_mint, quote_mint, venue, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (pool_address) DO UPDATE SET
			base_mint = COALESCE(NULLIF(EXCLUDED.base_mint, ''), pools.base_mint),
			updated_at = NOW()
		RETURNING id`,
		poolAddr, f.TokenID, f.BaseMint, f.QuoteMint, f.Venue, f.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert pool %s: %w", poolAddr, err)
	}
	return id, nil
}

func (r *Repository) GetPoolByAddress(ctx context.Context, poolAddr string) (*models.Pool, error) {
	return r.scanPool(r.db.QueryRow(ctx, `
		SELECT id, pool_address, token_id, base_mint, quote_mint, venue, status,
		       virtual_base_reserves, virtual_quote_reserves, real_base_reserves, real_quote_reserves,
		       bonding_curve_progress, latest_price, latest_price_usd, created_at, updated_at
		FROM pools WHERE pool_address = $1`, poolAddr))
}

// GetOldestPoolForToken is the reconciler's fallback when a trade
// carries no pool address: the first pool created for the token.
func (r *Repository) GetOldestPoolForToken(ctx context.Context, tokenID int64) (*models.Pool, error) {
	return r.scanPool(r.db.QueryRow(ctx, `
		SELECT id, pool_address, token_id, base_mint, quote_mint, venue, status,
		       virtual_base_reserves, virtual_quote_reserves, real_base_reserves, real_quote_reserves,
		       bonding_curve_progress, latest_price, latest_price_usd, created_at, updated_at
		FROM pools WHERE token_id = $1 ORDER BY created_at ASC LIMIT 1`, tokenID))
}

func (r *Repository) scanPool(row pgx.Row) (*models.Pool, error) {
	var p models.Pool
	err := row.Scan(&p.ID, &p.PoolAddress, &p.TokenID, &p.BaseMint, &p.QuoteMint, &p.Venue, &p.Status,
		&p.VirtualBaseReserves, &p.VirtualQuoteReserves, &p.RealBaseReserves, &p.RealQuoteReserves,
		&p.BondingCurveProgress, &p.LatestPrice, &p.LatestPriceUsd, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PoolReserves is the partial-update payload of UpdatePoolReserves.
// Nil pointers mean "leave as is".
type PoolReserves struct {
	VirtualBase  *uint64
	VirtualQuote *uint64
	RealBase     *uint64
	RealQuote    *uint64
	Progress     *float64
	Price        *float64
	PriceUsd     *float64
	Status       string
}

// UpdatePoolReserves applies the present fields only and bumps
// updated_at. Progress never regresses within a pool (monotone until a
// reset); a graduated status is terminal.
func (r *Repository) UpdatePoolReserves(ctx context.Context, poolAddr string, u PoolReserves) error {
	_, err := r.db.Exec(ctx, `
		UPDATE pools SET
			virtual_base_reserves = COALESCE($2, virtual_base_reserves),
			virtual_quote_reserves = COALESCE($3, virtual_quote_reserves),
			real_base_reserves = COALESCE($4, real_base_reserves),
			real_quote_reserves = COALESCE($5, real_quote_reserves),
			bonding_curve_progress = GREATEST(COALESCE($6, bonding_curve_progress), bonding_curve_progress),
			latest_price = COALESCE($7, latest_price),
			latest_price_usd = COALESCE($8, latest_price_usd),
			status = CASE
				WHEN pools.status = 'graduated' THEN pools.status
				WHEN $9 = '' THEN pools.status
				ELSE $9
			END,
			updated_at = NOW()
		WHERE pool_address = $1`,
		poolAddr, u.VirtualBase, u.VirtualQuote, u.RealBase, u.RealQuote,
		u.Progress, u.Price, u.PriceUsd, u.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update pool %s reserves: %w", poolAddr, err)
	}
	return nil
}

// MarkPoolGraduated transitions a pool to its terminal status.
func (r *Repository) MarkPoolGraduated(ctx context.Context, poolID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE pools SET status = 'graduated', updated_at = NOW() WHERE id = $1`, poolID)
	if err != nil {
		return fmt.Errorf("failed to mark pool %d graduated: %w", poolID, err)
	}
	return nil
}

// PoolsCreatedSince lists pools of a venue created after a cutoff,
// used by the graduation matcher's 1h pool-match window.
func (r *Repository) PoolsCreatedSince(ctx context.Context, venue string, since time.Time) ([]models.Pool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, pool_address, token_id, base_mint, quote_mint, venue, status,
		       virtual_base_reserves, virtual_quote_reserves, real_base_reserves, real_quote_reserves,
		       bonding_curve_progress, latest_price, latest_price_usd, created_at, updated_at
		FROM pools WHERE venue = $1 AND created_at >= $2
		ORDER BY created_at ASC`, venue, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []models.Pool
	for rows.Next() {
		var p models.Pool
		if err := rows.Scan(&p.ID, &p.PoolAddress, &p.TokenID, &p.BaseMint, &p.QuoteMint, &p.Venue, &p.Status,
			&p.VirtualBaseReserves, &p.VirtualQuoteReserves, &p.RealBaseReserves, &p.RealQuoteReserves,
			&p.BondingCurveProgress, &p.LatestPrice, &p.LatestPriceUsd, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}
