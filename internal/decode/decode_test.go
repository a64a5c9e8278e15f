package decode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

func encodeEvent(t *testing.T, disc [8]byte, ev interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(&buf).Encode(ev); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "Program data: " + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func encodeAccount(t *testing.T, disc [8]byte, acc interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(&buf).Encode(acc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodePumpFunBondingCurve(t *testing.T) {
	t.Parallel()

	want := PumpFunBondingCurve{
		VirtualTokenReserves: 1_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		RealTokenReserves:    790_000_000_000,
		RealSolReserves:      5_000_000_000,
		TokenTotalSupply:     1_000_000_000_000_000,
		Complete:             true,
		Creator:              solana.MustPublicKeyFromBase58("4Nd1mYvG8dX2vU6GJp7qQkQ6suMjCSCtCdRzJrWDvkZk"),
	}
	data := encodeAccount(t, pumpFunBondingCurveDisc, want)

	got, err := DecodePumpFunBondingCurve(data)
	if err != nil {
		t.Fatal(err)
	}
	if *got != want {
		t.Errorf("decoded = %+v, want %+v", *got, want)
	}
}

func TestDecodePumpFunBondingCurveLegacyLayout(t *testing.T) {
	t.Parallel()

	// Pre-creator layout ends at the complete flag.
	full := encodeAccount(t, pumpFunBondingCurveDisc, PumpFunBondingCurve{
		VirtualTokenReserves: 7,
		Complete:             true,
	})
	legacy := full[:len(full)-32]

	got, err := DecodePumpFunBondingCurve(legacy)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Complete || got.VirtualTokenReserves != 7 {
		t.Errorf("legacy decode = %+v", *got)
	}
	if !got.Creator.IsZero() {
		t.Errorf("legacy layout should leave creator zero, got %s", got.Creator)
	}
}

func TestDecodePumpFunBondingCurveRejectsForeignData(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short", data: []byte{1, 2, 3}},
		{name: "wrong discriminator", data: make([]byte, 64)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := DecodePumpFunBondingCurve(tc.data); !errors.Is(err, ErrUnknown) {
				t.Errorf("got %v, want ErrUnknown", err)
			}
		})
	}
}

func TestParsePumpFunEvents(t *testing.T) {
	t.Parallel()

	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	user := solana.MustPublicKeyFromBase58("4Nd1mYvG8dX2vU6GJp7qQkQ6suMjCSCtCdRzJrWDvkZk")

	trade := PumpFunTradeEvent{
		Mint:                 mint,
		SolAmount:            1_000_000_000,
		TokenAmount:          100_000_000,
		IsBuy:                true,
		User:                 user,
		Timestamp:            1700000000,
		VirtualSolReserves:   31_000_000_000,
		VirtualTokenReserves: 999_900_000_000,
	}
	create := PumpFunCreateEvent{
		Name:         "Test Token",
		Symbol:       "TT",
		URI:          "https://example.com/tt.json",
		Mint:         mint,
		BondingCurve: user,
		User:         user,
	}

	logs := []string{
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
		encodeEvent(t, pumpFunCreateEventDisc, create),
		"Program log: Instruction: Buy",
		encodeEvent(t, pumpFunTradeEventDisc, trade),
		"Program data: %%%not-base64%%%",
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P success",
	}

	trades, creates := ParsePumpFunEvents(logs)
	if len(trades) != 1 || len(creates) != 1 {
		t.Fatalf("got %d trades, %d creates, want 1 and 1", len(trades), len(creates))
	}
	if trades[0] != trade {
		t.Errorf("trade = %+v, want %+v", trades[0], trade)
	}
	if creates[0].Symbol != "TT" || creates[0].Mint != mint {
		t.Errorf("create = %+v", creates[0])
	}
}

func TestLaunchpadProgress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		s    LaunchpadPoolState
		want float64
	}{
		{name: "zero target", s: LaunchpadPoolState{RealQuote: 5}, want: 0},
		{name: "halfway", s: LaunchpadPoolState{RealQuote: 42_500_000_000, TotalQuoteFundRaising: 85_000_000_000}, want: 50},
		{name: "overshoot clamps", s: LaunchpadPoolState{RealQuote: 90_000_000_000, TotalQuoteFundRaising: 85_000_000_000}, want: 100},
		{name: "empty", s: LaunchpadPoolState{TotalQuoteFundRaising: 85_000_000_000}, want: 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.s.Progress(); got != tc.want {
				t.Errorf("Progress() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecodeLaunchpadPoolState(t *testing.T) {
	t.Parallel()

	want := LaunchpadPoolState{
		Status:                LaunchpadStatusFunding,
		BaseDecimals:          6,
		QuoteDecimals:         9,
		TotalBaseSell:         793_100_000_000_000,
		RealQuote:             12_000_000_000,
		TotalQuoteFundRaising: 85_000_000_000,
		BaseMint:              solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"),
	}
	data := encodeAccount(t, launchpadPoolStateDisc, want)

	got, err := DecodeLaunchpadPoolState(data)
	if err != nil {
		t.Fatal(err)
	}
	if *got != want {
		t.Errorf("decoded = %+v, want %+v", *got, want)
	}
}

func TestLaunchpadTradeEventSides(t *testing.T) {
	t.Parallel()

	buy := LaunchpadTradeEvent{AmountIn: 1_000_000_000, AmountOut: 100_000_000, TradeDirection: LaunchpadTradeBuy}
	if !buy.IsBuy() || buy.SolAmount() != 1_000_000_000 || buy.TokenAmount() != 100_000_000 {
		t.Errorf("buy sides wrong: sol=%d token=%d", buy.SolAmount(), buy.TokenAmount())
	}

	sell := LaunchpadTradeEvent{AmountIn: 100_000_000, AmountOut: 900_000_000, TradeDirection: LaunchpadTradeSell}
	if sell.IsBuy() || sell.SolAmount() != 900_000_000 || sell.TokenAmount() != 100_000_000 {
		t.Errorf("sell sides wrong: sol=%d token=%d", sell.SolAmount(), sell.TokenAmount())
	}
}

func TestParsePumpSwapEvents(t *testing.T) {
	t.Parallel()

	pool := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	buy := pumpSwapBuyEvent{
		Timestamp:              1700000000,
		BaseAmountOut:          50_000_000,
		QuoteAmountIn:          2_000_000_000,
		PoolBaseTokenReserves:  800_000_000_000,
		PoolQuoteTokenReserves: 40_000_000_000,
		Pool:                   pool,
	}
	sell := pumpSwapSellEvent{
		Timestamp:              1700000005,
		BaseAmountIn:           10_000_000,
		QuoteAmountOut:         390_000_000,
		PoolBaseTokenReserves:  800_010_000_000,
		PoolQuoteTokenReserves: 39_610_000_000,
		Pool:                   pool,
	}
	logs := []string{
		encodeEvent(t, pumpSwapBuyEventDisc, buy),
		encodeEvent(t, pumpSwapSellEventDisc, sell),
	}

	got := ParsePumpSwapEvents(logs)
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if !got[0].IsBuy || got[0].BaseAmount != 50_000_000 || got[0].QuoteAmount != 2_000_000_000 {
		t.Errorf("buy = %+v", got[0])
	}
	if got[1].IsBuy || got[1].BaseAmount != 10_000_000 || got[1].QuoteAmount != 390_000_000 {
		t.Errorf("sell = %+v", got[1])
	}
}

func TestPriceFromReserves(t *testing.T) {
	t.Parallel()

	// 40 SOL over 800k tokens: 0.00005 SOL per token.
	p := PriceFromReserves(800_000_000_000, 40_000_000_000, 6, 9)
	if p == nil {
		t.Fatal("price is nil for non-zero reserves")
	}
	if want := 0.00005; *p < want*0.999999 || *p > want*1.000001 {
		t.Errorf("price = %v, want %v", *p, want)
	}

	if PriceFromReserves(0, 40_000_000_000, 6, 9) != nil {
		t.Error("zero base reserve must yield nil price")
	}
	if PriceFromReserves(800_000_000_000, 0, 6, 9) != nil {
		t.Error("zero quote reserve must yield nil price")
	}
}

func TestExtractMint(t *testing.T) {
	t.Parallel()

	signer := solana.MustPublicKeyFromBase58("4Nd1mYvG8dX2vU6GJp7qQkQ6suMjCSCtCdRzJrWDvkZk")
	migration := solana.MustPublicKeyFromBase58("39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg")
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	poolAcc := solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

	// Writable: signer + pool account. Read-only unsigned: token
	// programs, mint, system program, migration program. The token
	// programs sit before the mint and must be skipped.
	msg := &solana.Message{
		Header: solana.MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlySignedAccounts:   0,
			NumReadonlyUnsignedAccounts: 5,
		},
		AccountKeys: []solana.PublicKey{signer, poolAcc, solana.TokenProgramID, token2022ProgramID, mint, solana.SystemProgramID, migration},
		Instructions: []solana.CompiledInstruction{
			{ProgramIDIndex: 6, Accounts: []uint16{0, 1, 4}},
		},
	}

	got, err := ExtractMint(msg, []solana.PublicKey{migration})
	if err != nil {
		t.Fatal(err)
	}
	if got != mint {
		t.Errorf("ExtractMint = %s, want %s", got, mint)
	}
}

func TestExtractMintNoCandidate(t *testing.T) {
	t.Parallel()

	signer := solana.MustPublicKeyFromBase58("4Nd1mYvG8dX2vU6GJp7qQkQ6suMjCSCtCdRzJrWDvkZk")
	msg := &solana.Message{
		Header: solana.MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlyUnsignedAccounts: 1,
		},
		AccountKeys:  []solana.PublicKey{signer, solana.SystemProgramID},
		Instructions: []solana.CompiledInstruction{{ProgramIDIndex: 1}},
	}

	if _, err := ExtractMint(msg, nil); !errors.Is(err, ErrUnknown) {
		t.Errorf("got %v, want ErrUnknown", err)
	}
}
