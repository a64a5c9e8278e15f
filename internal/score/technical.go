// Package score hosts the two scoring tracks: the cheap technical
// score recomputed on demand, and the budgeted holder analyzer that
// pays for external enrichment.
package score

import (
	"context"
	"time"

	"pumpscan/internal/models"
	"pumpscan/internal/repository"
)

// Component bounds. The technical total is the sum of four bounded
// components, 0-333 overall.
const (
	MarketCapMax = 100
	CurveMax     = 83
	HealthMax    = 75
	SelloffMax   = 75
	TechTotalMax = MarketCapMax + CurveMax + HealthMax + SelloffMax
)

// Selloff scoring constants: the component starts neutral and moves
// with large-sell pressure and recovery buying.
const (
	selloffNeutral        = 40
	selloffLargeSellFloor = 1_000_000_000 // 1 SOL
	selloffWindow         = time.Hour
	selloffPenaltyPerSell = 10
	selloffRecoveryBonus  = 35
)

// TechInputs is everything the technical score reads. All fields are
// observable from the store; no external calls.
type TechInputs struct {
	MarketCapUsd   float64
	Progress       float64 // bonding curve, 0-100
	TradeCount1h   int
	DistinctBuyers int
	BuySellRatio   float64 // buys/sells over the hour; 0 when no sells
	LargeSells1h   int     // sells > 1 SOL
	RecoveredAfter bool    // buy volume since last large sell exceeds its size
}

// ComputeTechnical evaluates the scoring tables. Deterministic: same
// inputs, same score.
func ComputeTechnical(in TechInputs) models.TechScore {
	s := models.TechScore{
		MarketCap:  marketCapScore(in.MarketCapUsd),
		Curve:      curveScore(in.Progress),
		Health:     healthScore(in.TradeCount1h, in.DistinctBuyers, in.BuySellRatio),
		Selloff:    selloffScore(in.LargeSells1h, in.RecoveredAfter),
		ComputedAt: time.Now().UTC(),
	}
	s.Total = s.MarketCap + s.Curve + s.Health + s.Selloff
	return s
}

// marketCapScore is piecewise-linear in USD market cap, saturating at
// $1M.
func marketCapScore(mcap float64) int {
	switch {
	case mcap <= 0:
		return 0
	case mcap < 10_000:
		return int(mcap / 10_000 * 20)
	case mcap < 100_000:
		return int(20 + (mcap-10_000)/90_000*35)
	case mcap < 1_000_000:
		return int(55 + (mcap-100_000)/900_000*45)
	default:
		return MarketCapMax
	}
}

// curveScore is linear in progress: 0 at 0%, 83 at 100%.
func curveScore(progress float64) int {
	if progress <= 0 {
		return 0
	}
	if progress >= 100 {
		return CurveMax
	}
	return int(progress / 100 * CurveMax)
}

// healthScore sums three 0-25 sub-tables: hourly trade count, distinct
// buyers, and buy/sell balance near one.
func healthScore(trades, buyers int, ratio float64) int {
	return tradeCountScore(trades) + buyerScore(buyers) + ratioScore(trades, ratio)
}

func tradeCountScore(trades int) int {
	switch {
	case trades >= 100:
		return 25
	case trades >= 50:
		return 20
	case trades >= 20:
		return 15
	case trades >= 10:
		return 10
	case trades >= 3:
		return 5
	default:
		return 0
	}
}

func buyerScore(buyers int) int {
	switch {
	case buyers >= 50:
		return 25
	case buyers >= 25:
		return 20
	case buyers >= 10:
		return 15
	case buyers >= 5:
		return 10
	case buyers >= 2:
		return 5
	default:
		return 0
	}
}

func ratioScore(trades int, ratio float64) int {
	if trades == 0 {
		return 0
	}
	d := ratio - 1
	if d < 0 {
		d = -d
	}
	switch {
	case d <= 0.1:
		return 25
	case d <= 0.25:
		return 20
	case d <= 0.5:
		return 15
	case d <= 1.0:
		return 10
	default:
		return 5
	}
}

// selloffScore starts neutral, loses points per recent large sell, and
// earns a recovery bonus when buy volume has since absorbed the sell.
func selloffScore(largeSells int, recovered bool) int {
	s := selloffNeutral - largeSells*selloffPenaltyPerSell
	if s < 0 {
		s = 0
	}
	if largeSells > 0 && recovered {
		s += selloffRecoveryBonus
	} else if largeSells == 0 {
		// No pressure at all reads as neutral, not as a credit.
		s = selloffNeutral
	}
	if s > SelloffMax {
		s = SelloffMax
	}
	return s
}

// TechScorer computes the technical score from live store reads; the
// result is persisted latest-wins.
type TechScorer struct {
	repo *repository.Repository
}

func NewTechScorer(repo *repository.Repository) *TechScorer {
	return &TechScorer{repo: repo}
}

// Score recomputes and persists the technical score for a token.
// solUsd is the current reference price; supply in base units.
func (t *TechScorer) Score(ctx context.Context, tokenID int64, solUsd float64) (*models.TechScore, error) {
	token, err := t.repo.GetTokenByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	pool, err := t.repo.GetOldestPoolForToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	activity, err := t.repo.GetTradingActivity(ctx, tokenID, time.Hour)
	if err != nil {
		return nil, err
	}

	largeSells, err := t.repo.RecentLargeSells(ctx, tokenID, selloffLargeSellFloor, selloffWindow)
	if err != nil {
		return nil, err
	}
	recovered := false
	if len(largeSells) > 0 {
		// Newest first; recovery is judged against the latest one.
		latest := largeSells[0]
		buyVol, err := t.repo.BuyVolumeSince(ctx, tokenID, latest.BlockTime)
		if err != nil {
			return nil, err
		}
		recovered = buyVol >= latest.SolAmount
	}

	ratio := 0.0
	if activity.SellCount > 0 {
		ratio = float64(activity.BuyCount) / float64(activity.SellCount)
	} else if activity.BuyCount > 0 {
		ratio = float64(activity.BuyCount)
	}

	in := TechInputs{
		Progress:       derefOr(pool.BondingCurveProgress, 0),
		TradeCount1h:   activity.TradeCount,
		DistinctBuyers: activity.DistinctBuyers,
		BuySellRatio:   ratio,
		LargeSells1h:   len(largeSells),
		RecoveredAfter: recovered,
	}
	if pool.LatestPriceUsd != nil {
		in.MarketCapUsd = *pool.LatestPriceUsd * tokenSupplyTokens(token)
	} else if pool.LatestPrice != nil {
		in.MarketCapUsd = *pool.LatestPrice * solUsd * tokenSupplyTokens(token)
	}

	s := ComputeTechnical(in)
	s.TokenID = tokenID
	if err := t.repo.SaveTechScore(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// tokenSupplyTokens returns the circulating supply in whole tokens.
// Launch venues mint a fixed 1e9; a venue-specific override would come
// from the token record.
func tokenSupplyTokens(token *models.Token) float64 {
	return 1_000_000_000
}

func derefOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
