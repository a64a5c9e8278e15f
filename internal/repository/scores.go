package repository

import (
	"context"
	"fmt"
	"time"

	"pumpscan/internal/models"

	"github.com/jackc/pgx/v5"
)

// SaveTechScore stores the latest technical score for a token
// (latest-wins; never row-per-event).
func (r *Repository) SaveTechScore(ctx context.Context, s models.TechScore) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tech_scores (token_id, market_cap_score, curve_score, health_score, selloff_score, total_score, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token_id) DO UPDATE SET
			market_cap_score = EXCLUDED.market_cap_score,
			curve_score = EXCLUDED.curve_score,
			health_score = EXCLUDED.health_score,
			selloff_score = EXCLUDED.selloff_score,
			total_score = EXCLUDED.total_score,
			computed_at = EXCLUDED.computed_at`,
		s.TokenID, s.MarketCap, s.Curve, s.Health, s.Selloff, s.Total, s.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save tech score for token %d: %w", s.TokenID, err)
	}
	return nil
}

func (r *Repository) GetTechScore(ctx context.Context, tokenID int64) (*models.TechScore, error) {
	var s models.TechScore
	err := r.db.QueryRow(ctx, `
		SELECT token_id, market_cap_score, curve_score, health_score, selloff_score, total_score, computed_at
		FROM tech_scores WHERE token_id = $1`, tokenID).
		Scan(&s.TokenID, &s.MarketCap, &s.Curve, &s.Health, &s.Selloff, &s.Total, &s.ComputedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TokenRanking is one dashboard row: token, pool state, scores.
type TokenRanking struct {
	Token       models.Token
	Progress    *float64
	LatestPrice *float64
	PriceUsd    *float64
	TechTotal   int
	HolderTotal int
	Composite   int
	VolumeSol   uint64
}

// TokenRankings returns tokens ordered by composite score (tech +
// holder), ties broken by 1h volume.
func (r *Repository) TokenRankings(ctx context.Context, limit int) ([]TokenRanking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.mint_address, t.symbol, t.name, t.decimals, t.venue, t.is_graduated, t.creation_time,
		       p.bonding_curve_progress, p.latest_price, p.latest_price_usd,
		       COALESCE(ts.total_score, 0),
		       COALESCE((SELECT hs.total_score FROM holder_snapshots hs
		                 WHERE hs.token_id = t.id ORDER BY hs.score_time DESC LIMIT 1), 0),
		       COALESCE((SELECT SUM(tx.sol_amount) FROM transactions tx
		                 WHERE tx.token_id = t.id AND tx.block_time >= $2), 0)
		FROM tokens t
		JOIN pools p ON p.token_id = t.id
		LEFT JOIN tech_scores ts ON ts.token_id = t.id
		ORDER BY COALESCE(ts.total_score, 0) +
		         COALESCE((SELECT hs.total_score FROM holder_snapshots hs
		                   WHERE hs.token_id = t.id ORDER BY hs.score_time DESC LIMIT 1), 0) DESC,
		         p.updated_at DESC
		LIMIT $1`,
		limit, time.Now().Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TokenRanking
	for rows.Next() {
		var rk TokenRanking
		if err := rows.Scan(&rk.Token.ID, &rk.Token.MintAddress, &rk.Token.Symbol, &rk.Token.Name,
			&rk.Token.Decimals, &rk.Token.Venue, &rk.Token.IsGraduated, &rk.Token.CreationTime,
			&rk.Progress, &rk.LatestPrice, &rk.PriceUsd,
			&rk.TechTotal, &rk.HolderTotal, &rk.VolumeSol); err != nil {
			return nil, err
		}
		rk.Composite = rk.TechTotal + rk.HolderTotal
		out = append(out, rk)
	}
	return out, rows.Err()
}

// TopVolumeTokens lists tokens by SOL volume over the window.
func (r *Repository) TopVolumeTokens(ctx context.Context, window time.Duration, limit int) ([]TokenRanking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.mint_address, t.symbol, t.name, t.decimals, t.venue, t.is_graduated, t.creation_time,
		       p.bonding_curve_progress, p.latest_price, p.latest_price_usd,
		       COALESCE(ts.total_score, 0), 0,
		       COALESCE(SUM(tx.sol_amount), 0) AS vol
		FROM tokens t
		JOIN pools p ON p.token_id = t.id
		LEFT JOIN tech_scores ts ON ts.token_id = t.id
		JOIN transactions tx ON tx.token_id = t.id AND tx.block_time >= $1
		GROUP BY t.id, t.mint_address, t.symbol, t.name, t.decimals, t.venue, t.is_graduated, t.creation_time,
		         p.bonding_curve_progress, p.latest_price, p.latest_price_usd, ts.total_score
		ORDER BY vol DESC
		LIMIT $2`,
		time.Now().Add(-window), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TokenRanking
	for rows.Next() {
		var rk TokenRanking
		if err := rows.Scan(&rk.Token.ID, &rk.Token.MintAddress, &rk.Token.Symbol, &rk.Token.Name,
			&rk.Token.Decimals, &rk.Token.Venue, &rk.Token.IsGraduated, &rk.Token.CreationTime,
			&rk.Progress, &rk.LatestPrice, &rk.PriceUsd,
			&rk.TechTotal, &rk.HolderTotal, &rk.VolumeSol); err != nil {
			return nil, err
		}
		rk.Composite = rk.TechTotal + rk.HolderTotal
		out = append(out, rk)
	}
	return out, rows.Err()
}
