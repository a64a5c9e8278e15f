package score

import "testing"

func TestComputeTechnicalDeterministic(t *testing.T) {
	t.Parallel()

	// Hot token: 120 trades/h, 60 buyers, near-balanced flow, half-full
	// curve, $250K cap.
	in := TechInputs{
		MarketCapUsd:   250_000,
		Progress:       50,
		TradeCount1h:   120,
		DistinctBuyers: 60,
		BuySellRatio:   1.05,
	}

	a := ComputeTechnical(in)
	b := ComputeTechnical(in)
	if a.Total != b.Total || a.MarketCap != b.MarketCap || a.Curve != b.Curve ||
		a.Health != b.Health || a.Selloff != b.Selloff {
		t.Fatalf("not deterministic: %+v vs %+v", a, b)
	}

	if a.MarketCap != 62 {
		t.Errorf("marketCap = %d, want 62", a.MarketCap)
	}
	if a.Curve != 41 {
		t.Errorf("curve = %d, want 41", a.Curve)
	}
	if a.Health != 75 {
		t.Errorf("health = %d, want 75", a.Health)
	}
	if a.Selloff != selloffNeutral {
		t.Errorf("selloff = %d, want neutral %d", a.Selloff, selloffNeutral)
	}
	if a.Total != 218 {
		t.Errorf("total = %d, want 218", a.Total)
	}
	if a.Total < 160 || a.Total > 230 {
		t.Errorf("total %d outside the expected band for these inputs", a.Total)
	}
}

func TestTechnicalComponentBounds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   TechInputs
	}{
		{name: "zeros", in: TechInputs{}},
		{name: "everything saturated", in: TechInputs{
			MarketCapUsd: 50_000_000, Progress: 100, TradeCount1h: 10_000,
			DistinctBuyers: 5_000, BuySellRatio: 1.0, LargeSells1h: 2, RecoveredAfter: true,
		}},
		{name: "heavy selloff no recovery", in: TechInputs{
			MarketCapUsd: 500, Progress: 3, TradeCount1h: 200,
			DistinctBuyers: 3, BuySellRatio: 0.2, LargeSells1h: 50,
		}},
		{name: "negative progress", in: TechInputs{Progress: -5}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := ComputeTechnical(tc.in)
			if s.MarketCap < 0 || s.MarketCap > MarketCapMax {
				t.Errorf("marketCap %d out of [0,%d]", s.MarketCap, MarketCapMax)
			}
			if s.Curve < 0 || s.Curve > CurveMax {
				t.Errorf("curve %d out of [0,%d]", s.Curve, CurveMax)
			}
			if s.Health < 0 || s.Health > HealthMax {
				t.Errorf("health %d out of [0,%d]", s.Health, HealthMax)
			}
			if s.Selloff < 0 || s.Selloff > SelloffMax {
				t.Errorf("selloff %d out of [0,%d]", s.Selloff, SelloffMax)
			}
			if s.Total != s.MarketCap+s.Curve+s.Health+s.Selloff {
				t.Errorf("total %d is not the component sum", s.Total)
			}
			if s.Total < 0 || s.Total > TechTotalMax {
				t.Errorf("total %d out of [0,%d]", s.Total, TechTotalMax)
			}
		})
	}
}

func TestCurveScoreMonotone(t *testing.T) {
	t.Parallel()

	prev := -1
	for p := 0.0; p <= 100; p += 0.5 {
		got := curveScore(p)
		if got < prev {
			t.Fatalf("curveScore(%v) = %d regressed below %d", p, got, prev)
		}
		prev = got
	}
	if curveScore(0) != 0 || curveScore(100) != CurveMax {
		t.Errorf("endpoints: %d, %d", curveScore(0), curveScore(100))
	}
}

func TestSelloffScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		sells     int
		recovered bool
		want      int
	}{
		{name: "no pressure", sells: 0, recovered: false, want: selloffNeutral},
		{name: "one sell unrecovered", sells: 1, recovered: false, want: 30},
		{name: "one sell recovered", sells: 1, recovered: true, want: 65},
		{name: "two sells recovered", sells: 2, recovered: true, want: 55},
		{name: "many sells floor at zero", sells: 10, recovered: false, want: 0},
		{name: "many sells recovered caps at bonus", sells: 10, recovered: true, want: selloffRecoveryBonus},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := selloffScore(tc.sells, tc.recovered); got != tc.want {
				t.Errorf("selloffScore(%d, %v) = %d, want %d", tc.sells, tc.recovered, got, tc.want)
			}
		})
	}
}

func TestMarketCapScoreSaturates(t *testing.T) {
	t.Parallel()

	if got := marketCapScore(1_000_000); got != MarketCapMax {
		t.Errorf("at $1M = %d, want %d", got, MarketCapMax)
	}
	if got := marketCapScore(99_000_000); got != MarketCapMax {
		t.Errorf("above $1M = %d, want %d", got, MarketCapMax)
	}
	if got := marketCapScore(-5); got != 0 {
		t.Errorf("negative mcap = %d, want 0", got)
	}
}
