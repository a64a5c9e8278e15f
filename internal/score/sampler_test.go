package score

import (
	"fmt"
	"math/rand"
	"testing"

	"pumpscan/internal/enrich"
)

func makeHolders(n int) []enrich.Holder {
	out := make([]enrich.Holder, n)
	for i := range out {
		// Strictly decreasing balances so rank equals index.
		out[i] = enrich.Holder{Address: fmt.Sprintf("W%04d", i), Balance: uint64(n-i) * 1000}
	}
	return out
}

func TestSampleSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		holders int
		want    int
	}{
		{holders: 10, want: sampleSizeLow},
		{holders: 999, want: sampleSizeLow},
		{holders: 1000, want: sampleSizeMid},
		{holders: 4999, want: sampleSizeMid},
		{holders: 5000, want: sampleSizeHigh},
		{holders: 100_000, want: sampleSizeHigh},
	}
	for _, tc := range cases {
		if got := SampleSize(tc.holders); got != tc.want {
			t.Errorf("SampleSize(%d) = %d, want %d", tc.holders, got, tc.want)
		}
	}
}

func TestSampleHoldersSmallSetUntouched(t *testing.T) {
	t.Parallel()

	holders := makeHolders(50)
	got := SampleHolders(holders, 100, rand.New(rand.NewSource(1)))
	if len(got) != 50 {
		t.Fatalf("got %d, want all 50", len(got))
	}
}

func TestSampleHoldersComposition(t *testing.T) {
	t.Parallel()

	holders := makeHolders(2000)
	size := 100
	got := SampleHolders(holders, size, rand.New(rand.NewSource(42)))

	if len(got) != size {
		t.Fatalf("sample size = %d, want %d", len(got), size)
	}

	// Indices by rank: top 40 must be ranks 0-39, bottom 10 must be
	// ranks 1990-1999, the rest from the middle.
	rank := make(map[string]int, len(holders))
	for i, h := range holders {
		rank[h.Address] = i
	}

	top, bottom, middle := 0, 0, 0
	seen := make(map[string]bool)
	for _, h := range got {
		if seen[h.Address] {
			t.Fatalf("duplicate %s in sample", h.Address)
		}
		seen[h.Address] = true
		switch r := rank[h.Address]; {
		case r < 40:
			top++
		case r >= 1990:
			bottom++
		default:
			middle++
		}
	}
	if top != 40 || bottom != 10 || middle != 50 {
		t.Errorf("composition top=%d bottom=%d middle=%d, want 40/10/50", top, bottom, middle)
	}
}

func TestSampleHoldersDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	holders := makeHolders(1000)
	a := SampleHolders(holders, 100, rand.New(rand.NewSource(7)))
	b := SampleHolders(holders, 100, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
