package decode

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Anchor discriminators for the pumpfun program's account and event
// types. Account discriminators prefix account data; event
// discriminators prefix "Program data:" payloads.
var (
	pumpFunBondingCurveDisc = [8]byte{23, 183, 248, 55, 96, 216, 172, 96}
	pumpFunTradeEventDisc   = [8]byte{189, 219, 127, 211, 78, 230, 97, 238}
	pumpFunCreateEventDisc  = [8]byte{27, 114, 169, 77, 222, 235, 99, 118}
)

// PumpFunBondingCurve is the bonding-curve account state. Reserves are
// in base units (lamports / 10^-6 tokens).
type PumpFunBondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              solana.PublicKey
}

// DecodePumpFunBondingCurve decodes a bonding-curve account payload.
// The trailing creator field is absent on curves created before the
// layout grew; those decode with a zero creator.
func DecodePumpFunBondingCurve(data []byte) (*PumpFunBondingCurve, error) {
	disc, ok := discriminator(data)
	if !ok || disc != pumpFunBondingCurveDisc {
		return nil, fmt.Errorf("bonding curve: %w", ErrUnknown)
	}
	dec := bin.NewBorshDecoder(data[8:])
	var c PumpFunBondingCurve
	if err := dec.Decode(&c.VirtualTokenReserves); err != nil {
		return nil, fmt.Errorf("bonding curve truncated: %w", err)
	}
	if err := dec.Decode(&c.VirtualSolReserves); err != nil {
		return nil, fmt.Errorf("bonding curve truncated: %w", err)
	}
	if err := dec.Decode(&c.RealTokenReserves); err != nil {
		return nil, fmt.Errorf("bonding curve truncated: %w", err)
	}
	if err := dec.Decode(&c.RealSolReserves); err != nil {
		return nil, fmt.Errorf("bonding curve truncated: %w", err)
	}
	if err := dec.Decode(&c.TokenTotalSupply); err != nil {
		return nil, fmt.Errorf("bonding curve truncated: %w", err)
	}
	if err := dec.Decode(&c.Complete); err != nil {
		return nil, fmt.Errorf("bonding curve truncated: %w", err)
	}
	if dec.Remaining() >= 32 {
		if err := dec.Decode(&c.Creator); err != nil {
			return nil, fmt.Errorf("bonding curve creator: %w", err)
		}
	}
	return &c, nil
}

// PumpFunTradeEvent is the buy/sell event the pumpfun program logs on
// every curve trade. Amounts come from here, never from instruction
// arguments, which only carry the user's slippage bounds.
type PumpFunTradeEvent struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
}

// PumpFunCreateEvent is logged once when a new token and its bonding
// curve are created.
type PumpFunCreateEvent struct {
	Name         string
	Symbol       string
	URI          string
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	User         solana.PublicKey
}

// ParsePumpFunEvents scans a transaction's log lines and returns every
// pumpfun trade and create event found, in log order. Payloads with
// other discriminators are ignored.
func ParsePumpFunEvents(logs []string) (trades []PumpFunTradeEvent, creates []PumpFunCreateEvent) {
	for _, payload := range EventPayloads(logs) {
		disc, ok := discriminator(payload)
		if !ok {
			continue
		}
		switch disc {
		case pumpFunTradeEventDisc:
			var ev PumpFunTradeEvent
			if err := bin.NewBorshDecoder(payload[8:]).Decode(&ev); err == nil {
				trades = append(trades, ev)
			}
		case pumpFunCreateEventDisc:
			var ev PumpFunCreateEvent
			if err := bin.NewBorshDecoder(payload[8:]).Decode(&ev); err == nil {
				creates = append(creates, ev)
			}
		}
	}
	return trades, creates
}
