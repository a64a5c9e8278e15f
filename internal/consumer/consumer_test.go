package consumer

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"pumpscan/internal/config"
)

func TestPumpFunProgress(t *testing.T) {
	t.Parallel()

	initial := config.PumpFunInitialVirtualTokenReserves
	sellable := config.PumpFunTotalSellableTokens

	cases := []struct {
		name     string
		reserves uint64
		want     float64
	}{
		{name: "fresh curve", reserves: initial, want: 0},
		{name: "over-initial clamps to zero", reserves: initial + 1, want: 0},
		{name: "halfway", reserves: initial - sellable/2, want: 50},
		{name: "sold out", reserves: initial - sellable, want: 100},
		{name: "past sellable clamps to 100", reserves: 1, want: 100},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := pumpFunProgress(tc.reserves)
			if diff := got - tc.want; diff < -0.01 || diff > 0.01 {
				t.Errorf("pumpFunProgress(%d) = %v, want %v", tc.reserves, got, tc.want)
			}
		})
	}
}

func TestBondingCurveAddressDeterministic(t *testing.T) {
	t.Parallel()

	program := solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	a, err := bondingCurveAddress(program, mint)
	if err != nil {
		t.Fatal(err)
	}
	b, err := bondingCurveAddress(program, mint)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("derivation not deterministic: %s vs %s", a, b)
	}
	if a.IsZero() {
		t.Error("derived zero address")
	}

	other := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	c, err := bondingCurveAddress(program, other)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("different mints derived the same curve address")
	}
}

func TestHasInitializeLog(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		logs []string
		want bool
	}{
		{
			name: "initialize present",
			logs: []string{
				"Program LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj invoke [1]",
				"Program log: Instruction: Initialize",
			},
			want: true,
		},
		{
			name: "token program noise only",
			logs: []string{
				"Program log: Instruction: InitializeAccount",
				"Program log: Instruction: InitializeMint2",
			},
			want: false,
		},
		{
			name: "buy only",
			logs: []string{"Program log: Instruction: BuyExactIn"},
			want: false,
		},
		{name: "empty", logs: nil, want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := hasInitializeLog(tc.logs); got != tc.want {
				t.Errorf("hasInitializeLog = %v, want %v", got, tc.want)
			}
		})
	}
}
