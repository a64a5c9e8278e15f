package score

import (
	"math/rand"
	"sort"

	"pumpscan/internal/enrich"
)

// Sample size tiers by holder-count bracket.
const (
	sampleSizeHigh = 500
	sampleSizeMid  = 250
	sampleSizeLow  = 100
)

// SampleSize picks the wallet sample budget for a holder count.
func SampleSize(holderCount int) int {
	switch {
	case holderCount >= 5000:
		return sampleSizeHigh
	case holderCount >= 1000:
		return sampleSizeMid
	default:
		return sampleSizeLow
	}
}

// SampleHolders selects the wallets to enrich: the whole set when it
// fits the budget, otherwise the top 40% by balance, the bottom 10%,
// and a uniform random draw from the middle for the remaining 50%.
// Whales drive concentration metrics, dust wallets drive bot metrics,
// and the middle keeps the ratios honest.
func SampleHolders(holders []enrich.Holder, size int, rng *rand.Rand) []enrich.Holder {
	if len(holders) <= size {
		out := make([]enrich.Holder, len(holders))
		copy(out, holders)
		return out
	}

	sorted := make([]enrich.Holder, len(holders))
	copy(sorted, holders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Balance > sorted[j].Balance })

	topN := size * 40 / 100
	bottomN := size * 10 / 100
	middleN := size - topN - bottomN

	out := make([]enrich.Holder, 0, size)
	out = append(out, sorted[:topN]...)
	out = append(out, sorted[len(sorted)-bottomN:]...)

	middle := sorted[topN : len(sorted)-bottomN]
	if middleN >= len(middle) {
		out = append(out, middle...)
		return out
	}
	for _, idx := range rng.Perm(len(middle))[:middleN] {
		out = append(out, middle[idx])
	}
	return out
}
