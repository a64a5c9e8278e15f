package repository

import (
	"context"
	"fmt"
	"time"

	"pumpscan/internal/models"

	"github.com/jackc/pgx/v5"
)

// InsertHolderSnapshot appends one holder-score row. Snapshots
// accumulate forever; only the latest per token is normally consumed.
func (r *Repository) InsertHolderSnapshot(ctx context.Context, s models.HolderSnapshot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO holder_snapshots (token_id, score_time, total_score, distribution_score,
			quality_score, activity_score, holder_count, gini_coefficient, top1_pct,
			bot_ratio, smart_money_ratio, avg_wallet_age_days, active_24h_ratio, credits_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (token_id, score_time) DO NOTHING`,
		s.TokenID, s.ScoreTime, s.TotalScore, s.DistributionScore,
		s.QualityScore, s.ActivityScore, s.HolderCount, s.Gini, s.Top1Pct,
		s.BotRatio, s.SmartMoneyRatio, s.AvgWalletAgeDays, s.Active24hRatio, s.CreditsUsed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert holder snapshot for token %d: %w", s.TokenID, err)
	}
	return nil
}

// LatestHolderScore returns the newest snapshot for a token, or nil.
func (r *Repository) LatestHolderScore(ctx context.Context, tokenID int64) (*models.HolderSnapshot, error) {
	var s models.HolderSnapshot
	err := r.db.QueryRow(ctx, `
		SELECT id, token_id, score_time, total_score, distribution_score, quality_score,
		       activity_score, holder_count, gini_coefficient, top1_pct, bot_ratio,
		       smart_money_ratio, avg_wallet_age_days, active_24h_ratio, credits_used
		FROM holder_snapshots
		WHERE token_id = $1
		ORDER BY score_time DESC LIMIT 1`, tokenID).
		Scan(&s.ID, &s.TokenID, &s.ScoreTime, &s.TotalScore, &s.DistributionScore, &s.QualityScore,
			&s.ActivityScore, &s.HolderCount, &s.Gini, &s.Top1Pct, &s.BotRatio,
			&s.SmartMoneyRatio, &s.AvgWalletAgeDays, &s.Active24hRatio, &s.CreditsUsed)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// HolderCandidate is one token eligible for holder analysis, with the
// inputs the priority queue sorts on.
type HolderCandidate struct {
	TokenID          int64
	MintAddress      string
	Progress         float64
	TechTotal        int
	LastScoreTime    *time.Time
	TransactionCount int
}

// EligibleForHolderAnalysis lists tokens that qualify for holder
// scoring: 10 <= progress < 100, active pool, age >= minAge, at least
// minTxCount trades.
func (r *Repository) EligibleForHolderAnalysis(ctx context.Context, minAge time.Duration, minTxCount int) ([]HolderCandidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.mint_address, p.bonding_curve_progress,
		       COALESCE(ts.total_score, 0),
		       (SELECT MAX(score_time) FROM holder_snapshots hs WHERE hs.token_id = t.id),
		       (SELECT COUNT(*) FROM transactions tx WHERE tx.token_id = t.id)
		FROM tokens t
		JOIN pools p ON p.token_id = t.id AND p.status = 'active'
		LEFT JOIN tech_scores ts ON ts.token_id = t.id
		WHERE p.bonding_curve_progress >= 10
		  AND p.bonding_curve_progress < 100
		  AND t.creation_time <= $1
		ORDER BY p.bonding_curve_progress DESC`,
		time.Now().Add(-minAge))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HolderCandidate
	for rows.Next() {
		var c HolderCandidate
		if err := rows.Scan(&c.TokenID, &c.MintAddress, &c.Progress, &c.TechTotal, &c.LastScoreTime, &c.TransactionCount); err != nil {
			return nil, err
		}
		if c.TransactionCount >= minTxCount {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

// AddCreditUsage records external-API credits burnt against the given
// month (YYYY-MM) and returns the running total.
func (r *Repository) AddCreditUsage(ctx context.Context, month string, credits int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO holder_credit_usage (month, credits_used, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (month) DO UPDATE SET
			credits_used = holder_credit_usage.credits_used + EXCLUDED.credits_used,
			updated_at = NOW()
		RETURNING credits_used`,
		month, credits).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to add credit usage: %w", err)
	}
	return total, nil
}

// GetCreditUsage returns the credits burnt in the given month.
func (r *Repository) GetCreditUsage(ctx context.Context, month string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT credits_used FROM holder_credit_usage WHERE month = $1`, month).Scan(&total)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return total, err
}
