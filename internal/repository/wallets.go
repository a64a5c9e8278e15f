package repository

import (
	"context"
	"fmt"

	"pumpscan/internal/models"
)

// UpsertWalletAnalysis inserts or refreshes an analyzed wallet.
// last_analyzed is monotone: an older analysis never overwrites a
// newer one.
func (r *Repository) UpsertWalletAnalysis(ctx context.Context, w models.WalletAnalysis) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallet_analyses (wallet_address, created_at, last_active, tx_count, sol_balance,
			wallet_age_days, is_bot, is_smart_money, risk_score, last_analyzed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (wallet_address) DO UPDATE SET
			last_active = EXCLUDED.last_active,
			tx_count = EXCLUDED.tx_count,
			sol_balance = EXCLUDED.sol_balance,
			wallet_age_days = EXCLUDED.wallet_age_days,
			is_bot = EXCLUDED.is_bot,
			is_smart_money = EXCLUDED.is_smart_money,
			risk_score = EXCLUDED.risk_score,
			last_analyzed = GREATEST(wallet_analyses.last_analyzed, EXCLUDED.last_analyzed)
		WHERE EXCLUDED.last_analyzed >= wallet_analyses.last_analyzed`,
		w.WalletAddress, w.CreatedAt, w.LastActive, w.TxCount, w.SolBalance,
		w.WalletAgeDays, w.IsBot, w.IsSmartMoney, w.RiskScore, w.LastAnalyzed,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet %s: %w", w.WalletAddress, err)
	}
	return nil
}

// GetWalletAnalyses bulk-loads analyzed wallets; missing addresses are
// simply absent from the result.
func (r *Repository) GetWalletAnalyses(ctx context.Context, addrs []string) (map[string]models.WalletAnalysis, error) {
	if len(addrs) == 0 {
		return map[string]models.WalletAnalysis{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT wallet_address, created_at, last_active, tx_count, sol_balance,
		       wallet_age_days, is_bot, is_smart_money, risk_score, last_analyzed
		FROM wallet_analyses
		WHERE wallet_address = ANY($1)`, addrs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.WalletAnalysis, len(addrs))
	for rows.Next() {
		var w models.WalletAnalysis
		if err := rows.Scan(&w.WalletAddress, &w.CreatedAt, &w.LastActive, &w.TxCount, &w.SolBalance,
			&w.WalletAgeDays, &w.IsBot, &w.IsSmartMoney, &w.RiskScore, &w.LastAnalyzed); err != nil {
			return nil, err
		}
		out[w.WalletAddress] = w
	}
	return out, rows.Err()
}
