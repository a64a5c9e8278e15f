package decode

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	launchpadPoolStateDisc = [8]byte{247, 237, 227, 245, 215, 195, 222, 70}
	// Anchor derives event discriminators from the event name alone, so
	// the launchpad's TradeEvent shares pumpfun's bytes. Venue is decided
	// by which subscription delivered the logs, not by the discriminator.
	launchpadTradeEventDisc = pumpFunTradeEventDisc
)

// Launchpad trade direction values.
const (
	LaunchpadTradeBuy  = 0
	LaunchpadTradeSell = 1
)

// LaunchpadVesting is the creator vesting block embedded in the pool
// state. Kept for layout fidelity; nothing downstream reads it yet.
type LaunchpadVesting struct {
	TotalLockedAmount    uint64
	CliffPeriod          uint64
	UnlockPeriod         uint64
	StartTime            uint64
	AllocatedShareAmount uint64
}

// LaunchpadPoolState is the launchpad program's pool account.
// realQuote against totalQuoteFundRaising drives the fundraising
// progress figure.
type LaunchpadPoolState struct {
	Epoch                 uint64
	AuthBump              uint8
	Status                uint8
	BaseDecimals          uint8
	QuoteDecimals         uint8
	MigrateType           uint8
	Supply                uint64
	TotalBaseSell         uint64
	VirtualBase           uint64
	VirtualQuote          uint64
	RealBase              uint64
	RealQuote             uint64
	TotalQuoteFundRaising uint64
	QuoteProtocolFee      uint64
	PlatformFee           uint64
	MigrateFee            uint64
	Vesting               LaunchpadVesting
	GlobalConfig          solana.PublicKey
	PlatformConfig        solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	BaseVault             solana.PublicKey
	QuoteVault            solana.PublicKey
	Creator               solana.PublicKey
}

// Launchpad pool status values.
const (
	LaunchpadStatusFunding  = 0
	LaunchpadStatusMigrated = 1
	LaunchpadStatusTrading  = 2
)

// DecodeLaunchpadPoolState decodes a launchpad pool account payload.
func DecodeLaunchpadPoolState(data []byte) (*LaunchpadPoolState, error) {
	disc, ok := discriminator(data)
	if !ok || disc != launchpadPoolStateDisc {
		return nil, fmt.Errorf("launchpad pool state: %w", ErrUnknown)
	}
	var s LaunchpadPoolState
	if err := bin.NewBorshDecoder(data[8:]).Decode(&s); err != nil {
		return nil, fmt.Errorf("launchpad pool state truncated: %w", err)
	}
	return &s, nil
}

// Progress returns the fundraising progress percentage, clamped to
// [0, 100]. Zero fund-raising target reads as zero progress.
func (s *LaunchpadPoolState) Progress() float64 {
	if s.TotalQuoteFundRaising == 0 {
		return 0
	}
	p := float64(s.RealQuote) / float64(s.TotalQuoteFundRaising) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ProgressByTokens is the alternative progress reading, from base
// tokens sold against the sell allocation. It should track Progress
// closely; consumers log when the two drift apart.
func (s *LaunchpadPoolState) ProgressByTokens() float64 {
	if s.TotalBaseSell == 0 {
		return 0
	}
	p := float64(s.RealBase) / float64(s.TotalBaseSell) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// LaunchpadTradeEvent is the launchpad's per-trade event. Before/after
// reserve pairs let the consumer emit both the trade and a pool-state
// update from one payload.
type LaunchpadTradeEvent struct {
	PoolState       solana.PublicKey
	TotalBaseSell   uint64
	VirtualBase     uint64
	VirtualQuote    uint64
	RealBaseBefore  uint64
	RealQuoteBefore uint64
	RealBaseAfter   uint64
	RealQuoteAfter  uint64
	AmountIn        uint64
	AmountOut       uint64
	ProtocolFee     uint64
	PlatformFee     uint64
	ShareFee        uint64
	TradeDirection  uint8
	PoolStatus      uint8
}

// IsBuy reports whether the trade bought the base token.
func (e *LaunchpadTradeEvent) IsBuy() bool {
	return e.TradeDirection == LaunchpadTradeBuy
}

// SolAmount returns the quote-side lamports moved by the trade.
func (e *LaunchpadTradeEvent) SolAmount() uint64 {
	if e.IsBuy() {
		return e.AmountIn
	}
	return e.AmountOut
}

// TokenAmount returns the base-side token amount moved by the trade.
func (e *LaunchpadTradeEvent) TokenAmount() uint64 {
	if e.IsBuy() {
		return e.AmountOut
	}
	return e.AmountIn
}

// ParseLaunchpadEvents scans log lines for launchpad trade events.
func ParseLaunchpadEvents(logs []string) []LaunchpadTradeEvent {
	var out []LaunchpadTradeEvent
	for _, payload := range EventPayloads(logs) {
		disc, ok := discriminator(payload)
		if !ok || disc != launchpadTradeEventDisc {
			continue
		}
		var ev LaunchpadTradeEvent
		if err := bin.NewBorshDecoder(payload[8:]).Decode(&ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}
