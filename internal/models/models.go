package models

import (
	"encoding/json"
	"time"
)

// Venue identifies the launch program responsible for a pool.
const (
	VenuePumpFun   = "pumpfun"
	VenueLaunchpad = "raydiumLaunchpad"
	VenuePumpSwap  = "pumpswap"
	VenueRaydium   = "raydium"
)

// Pool status values. "graduated" is terminal.
const (
	PoolActive    = "active"
	PoolGraduated = "graduated"
	PoolClosed    = "closed"
	PoolFailed    = "failed"
)

// Transaction types. Derivation from balance deltas is forbidden; the
// venue event tags the side explicitly.
const (
	TxBuy  = "buy"
	TxSell = "sell"
)

// Token represents the 'tokens' table.
type Token struct {
	ID             int64      `json:"id"`
	MintAddress    string     `json:"mint_address"`
	Symbol         string     `json:"symbol"`
	Name           string     `json:"name"`
	Decimals       int        `json:"decimals"`
	Venue          string     `json:"venue"`
	Creator        string     `json:"creator"`
	CreationSig    string     `json:"creation_sig"`
	CreationTime   time.Time  `json:"creation_time"`
	MetadataURI    string     `json:"metadata_uri,omitempty"`
	IsGraduated    bool       `json:"is_graduated"`
	GraduationSig  *string    `json:"graduation_sig,omitempty"`
	GraduationTime *time.Time `json:"graduation_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Pool represents the 'pools' table. For a pumpfun pool the pool
// address IS the bonding curve address; that identity is set by the
// consumer at emit time, never assumed by the store.
type Pool struct {
	ID                   int64     `json:"id"`
	PoolAddress          string    `json:"pool_address"`
	TokenID              int64     `json:"token_id"`
	BaseMint             string    `json:"base_mint"`
	QuoteMint            string    `json:"quote_mint"`
	Venue                string    `json:"venue"`
	Status               string    `json:"status"`
	VirtualBaseReserves  uint64    `json:"virtual_base_reserves"`
	VirtualQuoteReserves uint64    `json:"virtual_quote_reserves"`
	RealBaseReserves     uint64    `json:"real_base_reserves"`
	RealQuoteReserves    uint64    `json:"real_quote_reserves"`
	BondingCurveProgress *float64  `json:"bonding_curve_progress,omitempty"`
	LatestPrice          *float64  `json:"latest_price,omitempty"`
	LatestPriceUsd       *float64  `json:"latest_price_usd,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Transaction represents the 'transactions' table. Append-only;
// (signature, block_time) duplicates are silent no-ops.
type Transaction struct {
	ID            int64           `json:"id"`
	Signature     string          `json:"signature"`
	BlockTime     time.Time       `json:"block_time"`
	Slot          uint64          `json:"slot"`
	PoolID        int64           `json:"pool_id"`
	TokenID       int64           `json:"token_id"`
	Type          string          `json:"tx_type"`
	User          string          `json:"user_address"`
	SolAmount     uint64          `json:"sol_amount"`
	TokenAmount   uint64          `json:"token_amount"`
	PricePerToken float64         `json:"price_per_token"`
	PriceUsd      *float64        `json:"price_usd,omitempty"`
	PreBase       uint64          `json:"pre_base_reserves"`
	PreQuote      uint64          `json:"pre_quote_reserves"`
	PostBase      uint64          `json:"post_base_reserves"`
	PostQuote     uint64          `json:"post_quote_reserves"`
	FeeLamports   uint64          `json:"fee_lamports"`
	RawMeta       json.RawMessage `json:"raw_meta,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Candle is a 1-minute OHLCV aggregation of transactions with
// price_per_token > 0, materialized into candles_1m.
type Candle struct {
	TokenID     int64     `json:"token_id"`
	Minute      time.Time `json:"minute"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	VolumeSol   uint64    `json:"volume_sol"`
	VolumeToken uint64    `json:"volume_token"`
	TradeCount  int       `json:"trade_count"`
	BuyerCount  int       `json:"buyer_count"`
	SellerCount int       `json:"seller_count"`
}

// SolUsdPrice is one row of the SOL/USD reference series.
type SolUsdPrice struct {
	PriceTime time.Time `json:"price_time"`
	PriceUsd  float64   `json:"price_usd"`
}

// HolderSnapshot is one holder-score computation for a token.
// Append-only; the latest row per token is the current score.
type HolderSnapshot struct {
	ID                int64     `json:"id"`
	TokenID           int64     `json:"token_id"`
	ScoreTime         time.Time `json:"score_time"`
	TotalScore        int       `json:"total_score"`
	DistributionScore int       `json:"distribution_score"`
	QualityScore      int       `json:"quality_score"`
	ActivityScore     int       `json:"activity_score"`
	HolderCount       int       `json:"holder_count"`
	Gini              float64   `json:"gini_coefficient"`
	Top1Pct           float64   `json:"top1_pct"`
	BotRatio          float64   `json:"bot_ratio"`
	SmartMoneyRatio   float64   `json:"smart_money_ratio"`
	AvgWalletAgeDays  float64   `json:"avg_wallet_age_days"`
	Active24hRatio    float64   `json:"active_24h_ratio"`
	CreditsUsed       int64     `json:"credits_used"`
}

// WalletAnalysis represents the 'wallet_analyses' table. Upserted;
// last_analyzed is monotone.
type WalletAnalysis struct {
	WalletAddress string     `json:"wallet_address"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActive    *time.Time `json:"last_active,omitempty"`
	TxCount       int64      `json:"tx_count"`
	SolBalance    uint64     `json:"sol_balance"`
	WalletAgeDays float64    `json:"wallet_age_days"`
	IsBot         bool       `json:"is_bot"`
	IsSmartMoney  bool       `json:"is_smart_money"`
	RiskScore     float64    `json:"risk_score"`
	LastAnalyzed  time.Time  `json:"last_analyzed"`
}

// TechScore is the latest technical score per token (latest-wins, not
// row-per-event).
type TechScore struct {
	TokenID    int64     `json:"token_id"`
	MarketCap  int       `json:"market_cap_score"`
	Curve      int       `json:"curve_score"`
	Health     int       `json:"health_score"`
	Selloff    int       `json:"selloff_score"`
	Total      int       `json:"total_score"`
	ComputedAt time.Time `json:"computed_at"`
}

// --- Normalized records emitted by consumers to the reconciler. ---

// TokenCreated is emitted by mint/pool-creation consumers.
type TokenCreated struct {
	MintAddress  string
	Symbol       string
	Name         string
	Decimals     int
	Venue        string
	Creator      string
	CreationSig  string
	CreationTime time.Time
	MetadataURI  string
}

// PoolCreated is emitted alongside TokenCreated, or on its own when a
// graduated token's AMM pool opens.
type PoolCreated struct {
	PoolAddress string
	MintAddress string
	BaseMint    string
	QuoteMint   string
	Venue       string
	BaseVault   string
	QuoteVault  string
	LpMint      string
	CreatedAt   time.Time
}

// TradeMetadata is the structured slice of the raw transaction meta
// kept queryable; everything else rides in Transaction.RawMeta.
type TradeMetadata struct {
	Success     bool   `json:"success"`
	FeeLamports uint64 `json:"fee_lamports"`
	PreBase     uint64 `json:"pre_base"`
	PreQuote    uint64 `json:"pre_quote"`
	PostBase    uint64 `json:"post_base"`
	PostQuote   uint64 `json:"post_quote"`
}

// TradeRecord is a normalized buy/sell observed on a venue. Amounts
// come from the event payload, never from instruction args.
type TradeRecord struct {
	Venue       string
	Signature   string
	BlockTime   time.Time
	Slot        uint64
	MintAddress string
	PoolAddress string
	Type        string // buy | sell
	User        string
	SolAmount   uint64
	TokenAmount uint64
	Meta        TradeMetadata
}

// PriceFromAmounts derives SOL-per-token from exact trade amounts.
// Returns 0 when either side is zero (price undefined, never stored).
func (t TradeRecord) PriceFromAmounts(tokenDecimals int) float64 {
	if t.SolAmount == 0 || t.TokenAmount == 0 {
		return 0
	}
	sol := float64(t.SolAmount) / 1e9
	tokens := float64(t.TokenAmount) / pow10(tokenDecimals)
	if tokens == 0 {
		return 0
	}
	return sol / tokens
}

// PoolStateUpdate is a latest-wins snapshot of a pool's reserves.
type PoolStateUpdate struct {
	Venue        string
	PoolAddress  string
	MintAddress  string
	VirtualBase  uint64
	VirtualQuote uint64
	RealBase     uint64
	RealQuote    uint64
	Progress     *float64 // nil when the venue has no curve (post-graduation)
	Status       string
	Complete     bool
	ObservedAt   time.Time
}

// Graduated is emitted by the graduation detector.
type Graduated struct {
	MintAddress   string
	TargetAMM     string // raydium | pumpswap | pumpfun
	GraduationSig string
	GraduatedAt   time.Time
}

func pow10(n int) float64 {
	p := 1.0
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
