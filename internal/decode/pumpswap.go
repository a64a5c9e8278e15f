package decode

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	pumpSwapPoolDisc      = [8]byte{241, 154, 109, 4, 17, 177, 109, 188}
	pumpSwapBuyEventDisc  = [8]byte{103, 244, 82, 31, 44, 245, 119, 119}
	pumpSwapSellEventDisc = [8]byte{62, 47, 55, 10, 165, 3, 220, 42}
)

// PumpSwapPool is the AMM pool account graduated pumpfun tokens
// migrate into. Reserves live in the two token accounts, not here, so
// prices come from trade events instead.
type PumpSwapPool struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LpMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LpSupply              uint64
	CoinCreator           solana.PublicKey
}

// DecodePumpSwapPool decodes an AMM pool account payload.
func DecodePumpSwapPool(data []byte) (*PumpSwapPool, error) {
	disc, ok := discriminator(data)
	if !ok || disc != pumpSwapPoolDisc {
		return nil, fmt.Errorf("pumpswap pool: %w", ErrUnknown)
	}
	var p PumpSwapPool
	if err := bin.NewBorshDecoder(data[8:]).Decode(&p); err != nil {
		return nil, fmt.Errorf("pumpswap pool truncated: %w", err)
	}
	return &p, nil
}

// PumpSwapTradeEvent is the normalized form of the AMM's buy and sell
// events. Post-trade pool reserves give the spot price directly.
type PumpSwapTradeEvent struct {
	Timestamp              int64
	IsBuy                  bool
	BaseAmount             uint64
	QuoteAmount            uint64
	PoolBaseTokenReserves  uint64
	PoolQuoteTokenReserves uint64
	Pool                   solana.PublicKey
	User                   solana.PublicKey
}

// pumpSwapBuyEvent mirrors the program's BuyEvent wire layout up to the
// fields the pipeline reads.
type pumpSwapBuyEvent struct {
	Timestamp              int64
	BaseAmountOut          uint64
	MaxQuoteAmountIn       uint64
	UserBaseTokenReserves  uint64
	UserQuoteTokenReserves uint64
	PoolBaseTokenReserves  uint64
	PoolQuoteTokenReserves uint64
	QuoteAmountIn          uint64
	LpFeeBasisPoints       uint64
	LpFee                  uint64
	ProtocolFeeBasisPoints uint64
	ProtocolFee            uint64
	QuoteAmountInWithLpFee uint64
	UserQuoteAmountIn      uint64
	Pool                   solana.PublicKey
	User                   solana.PublicKey
}

type pumpSwapSellEvent struct {
	Timestamp                int64
	BaseAmountIn             uint64
	MinQuoteAmountOut        uint64
	UserBaseTokenReserves    uint64
	UserQuoteTokenReserves   uint64
	PoolBaseTokenReserves    uint64
	PoolQuoteTokenReserves   uint64
	QuoteAmountOut           uint64
	LpFeeBasisPoints         uint64
	LpFee                    uint64
	ProtocolFeeBasisPoints   uint64
	ProtocolFee              uint64
	QuoteAmountOutWithoutFee uint64
	UserQuoteAmountOut       uint64
	Pool                     solana.PublicKey
	User                     solana.PublicKey
}

// ParsePumpSwapEvents scans log lines for AMM buy/sell events and
// returns them normalized, in log order.
func ParsePumpSwapEvents(logs []string) []PumpSwapTradeEvent {
	var out []PumpSwapTradeEvent
	for _, payload := range EventPayloads(logs) {
		disc, ok := discriminator(payload)
		if !ok {
			continue
		}
		switch disc {
		case pumpSwapBuyEventDisc:
			var ev pumpSwapBuyEvent
			if err := bin.NewBorshDecoder(payload[8:]).Decode(&ev); err == nil {
				out = append(out, PumpSwapTradeEvent{
					Timestamp:              ev.Timestamp,
					IsBuy:                  true,
					BaseAmount:             ev.BaseAmountOut,
					QuoteAmount:            ev.QuoteAmountIn,
					PoolBaseTokenReserves:  ev.PoolBaseTokenReserves,
					PoolQuoteTokenReserves: ev.PoolQuoteTokenReserves,
					Pool:                   ev.Pool,
					User:                   ev.User,
				})
			}
		case pumpSwapSellEventDisc:
			var ev pumpSwapSellEvent
			if err := bin.NewBorshDecoder(payload[8:]).Decode(&ev); err == nil {
				out = append(out, PumpSwapTradeEvent{
					Timestamp:              ev.Timestamp,
					IsBuy:                  false,
					BaseAmount:             ev.BaseAmountIn,
					QuoteAmount:            ev.QuoteAmountOut,
					PoolBaseTokenReserves:  ev.PoolBaseTokenReserves,
					PoolQuoteTokenReserves: ev.PoolQuoteTokenReserves,
					Pool:                   ev.Pool,
					User:                   ev.User,
				})
			}
		}
	}
	return out
}

// SpotPrice returns the post-trade pool price in SOL per token, or nil
// when either reserve is zero.
func (e *PumpSwapTradeEvent) SpotPrice(baseDecimals, quoteDecimals int) *float64 {
	return PriceFromReserves(e.PoolBaseTokenReserves, e.PoolQuoteTokenReserves, baseDecimals, quoteDecimals)
}

// PriceFromReserves computes quote-per-base from raw reserves. A zero
// reserve on either side means the price is undefined, not zero.
func PriceFromReserves(baseReserves, quoteReserves uint64, baseDecimals, quoteDecimals int) *float64 {
	if baseReserves == 0 || quoteReserves == 0 {
		return nil
	}
	base := float64(baseReserves) / pow10(baseDecimals)
	quote := float64(quoteReserves) / pow10(quoteDecimals)
	p := quote / base
	return &p
}

func pow10(n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}
