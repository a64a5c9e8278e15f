package score

import (
	"sort"
	"time"

	"pumpscan/internal/enrich"
	"pumpscan/internal/models"
)

// Holder sub-score bound: distribution, quality and activity each max
// at 111, total 333.
const HolderSubScoreMax = 111

// HolderInputs are the aggregates the three sub-scores read. They are
// computed once from the holder list and the enriched wallet sample.
type HolderInputs struct {
	HolderCount      int
	Gini             float64
	Top1Pct          float64
	BotRatio         float64
	SmartMoneyRatio  float64
	AvgWalletAgeDays float64
	Active24hRatio   float64
	GrowthRatio      float64 // holder count vs previous snapshot; 1 = flat
	Velocity         float64 // trades per holder over the last hour
}

// HolderScores is the scored result.
type HolderScores struct {
	Distribution int
	Quality      int
	Activity     int
	Total        int
}

// ComputeHolderScores evaluates the piecewise tables.
func ComputeHolderScores(in HolderInputs) HolderScores {
	s := HolderScores{
		Distribution: distributionScore(in),
		Quality:      qualityScore(in),
		Activity:     activityScore(in),
	}
	s.Total = s.Distribution + s.Quality + s.Activity
	return s
}

// distributionScore: gini (0-40) + top-1% concentration (0-40) +
// holder count (0-31).
func distributionScore(in HolderInputs) int {
	s := 0
	switch {
	case in.Gini <= 0.5:
		s += 40
	case in.Gini <= 0.7:
		s += 30
	case in.Gini <= 0.85:
		s += 20
	case in.Gini <= 0.9:
		s += 10
	}
	switch {
	case in.Top1Pct <= 5:
		s += 40
	case in.Top1Pct <= 10:
		s += 30
	case in.Top1Pct <= 20:
		s += 20
	case in.Top1Pct <= 35:
		s += 10
	}
	switch {
	case in.HolderCount >= 1000:
		s += 31
	case in.HolderCount >= 500:
		s += 25
	case in.HolderCount >= 250:
		s += 18
	case in.HolderCount >= 100:
		s += 12
	case in.HolderCount >= 50:
		s += 6
	}
	return s
}

// qualityScore: bot ratio (0-40) + smart money (0-40) + mean wallet
// age (0-31).
func qualityScore(in HolderInputs) int {
	s := 0
	switch {
	case in.BotRatio <= 0.1:
		s += 40
	case in.BotRatio <= 0.25:
		s += 30
	case in.BotRatio <= 0.5:
		s += 15
	}
	switch {
	case in.SmartMoneyRatio >= 0.1:
		s += 40
	case in.SmartMoneyRatio >= 0.05:
		s += 30
	case in.SmartMoneyRatio >= 0.02:
		s += 20
	case in.SmartMoneyRatio >= 0.01:
		s += 10
	}
	switch {
	case in.AvgWalletAgeDays >= 180:
		s += 31
	case in.AvgWalletAgeDays >= 90:
		s += 25
	case in.AvgWalletAgeDays >= 30:
		s += 18
	case in.AvgWalletAgeDays >= 7:
		s += 10
	case in.AvgWalletAgeDays >= 1:
		s += 5
	}
	return s
}

// activityScore: active-24h ratio (0-40) + organic growth (0-40) +
// velocity (0-31).
func activityScore(in HolderInputs) int {
	s := 0
	switch {
	case in.Active24hRatio >= 0.5:
		s += 40
	case in.Active24hRatio >= 0.3:
		s += 30
	case in.Active24hRatio >= 0.15:
		s += 20
	case in.Active24hRatio >= 0.05:
		s += 10
	}
	// Growth near or above flat is organic; a shrinking holder set or
	// an implausible spike both score low.
	switch {
	case in.GrowthRatio >= 1.05 && in.GrowthRatio <= 2.0:
		s += 40
	case in.GrowthRatio >= 1.0 && in.GrowthRatio < 1.05:
		s += 30
	case in.GrowthRatio > 2.0:
		s += 15
	case in.GrowthRatio >= 0.9:
		s += 10
	}
	switch {
	case in.Velocity >= 1.0:
		s += 31
	case in.Velocity >= 0.5:
		s += 22
	case in.Velocity >= 0.2:
		s += 14
	case in.Velocity >= 0.05:
		s += 7
	}
	return s
}

// Gini computes the Gini coefficient of the balance distribution.
// 0 is perfect equality, values toward 1 mean concentration. Empty or
// single-holder sets read as 0.
func Gini(balances []uint64) float64 {
	n := len(balances)
	if n < 2 {
		return 0
	}
	sorted := make([]uint64, n)
	copy(sorted, balances)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total, weighted float64
	for i, b := range sorted {
		total += float64(b)
		weighted += float64(i+1) * float64(b)
	}
	if total == 0 {
		return 0
	}
	return (2*weighted - float64(n+1)*total) / (float64(n) * total)
}

// Top1Pct returns the percentage of supply held by the top 1% of
// holders (at least one holder).
func Top1Pct(holders []enrich.Holder) float64 {
	if len(holders) == 0 {
		return 0
	}
	sorted := make([]enrich.Holder, len(holders))
	copy(sorted, holders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Balance > sorted[j].Balance })

	topN := len(sorted) / 100
	if topN == 0 {
		topN = 1
	}
	var top, total float64
	for i, h := range sorted {
		total += float64(h.Balance)
		if i < topN {
			top += float64(h.Balance)
		}
	}
	if total == 0 {
		return 0
	}
	return top / total * 100
}

// Bot-signal weights. Each signal contributes its weight; a wallet
// crossing botThreshold is classified a bot.
const (
	botSignalYoung      = 0.35 // wallet younger than a day
	botSignalHyperative = 0.25 // tx count implies automation
	botSignalDust       = 0.20 // no SOL to speak of
	botSignalTokenSpray = 0.20 // holds hundreds of mints
	botThreshold        = 0.5

	botHyperactiveTxCount = 10_000
	botDustLamports       = 10_000_000 // 0.01 SOL
	botTokenSprayCount    = 300
)

// Smart-money gates: aged, funded, active but not automated.
const (
	smartMinAgeDays  = 180.0
	smartMinLamports = 100_000_000_000 // 100 SOL
	smartMinTxCount  = 100
	smartMaxTxCount  = 20_000
)

// ClassifyWallet derives the bot and smart-money flags plus a risk
// score from an enriched profile.
func ClassifyWallet(p *enrich.WalletProfile, now time.Time) models.WalletAnalysis {
	ageDays := 0.0
	createdAt := now
	if p.FirstTxTime != nil {
		createdAt = *p.FirstTxTime
		ageDays = now.Sub(createdAt).Hours() / 24
	}

	risk := 0.0
	if ageDays < 1 {
		risk += botSignalYoung
	}
	if p.TxCount > botHyperactiveTxCount {
		risk += botSignalHyperative
	}
	if p.SolBalance < botDustLamports {
		risk += botSignalDust
	}
	if p.TokenCount > botTokenSprayCount {
		risk += botSignalTokenSpray
	}

	isBot := risk >= botThreshold && !p.IsExchange
	isSmart := !isBot && !p.IsExchange &&
		ageDays >= smartMinAgeDays &&
		p.SolBalance >= smartMinLamports &&
		p.TxCount >= smartMinTxCount && p.TxCount <= smartMaxTxCount

	return models.WalletAnalysis{
		WalletAddress: p.Address,
		CreatedAt:     createdAt,
		LastActive:    p.LastActive,
		TxCount:       p.TxCount,
		SolBalance:    p.SolBalance,
		WalletAgeDays: ageDays,
		IsBot:         isBot,
		IsSmartMoney:  isSmart,
		RiskScore:     risk,
		LastAnalyzed:  now,
	}
}
