package score

import (
	"context"
	"log"
	"sync"
	"time"
)

// creditStore is the slice of the repository the budget needs.
type creditStore interface {
	AddCreditUsage(ctx context.Context, month string, credits int64) (int64, error)
	GetCreditUsage(ctx context.Context, month string) (int64, error)
}

// warnThresholds are the usage percentages that emit a creditWarning,
// each at most once per month.
var warnThresholds = []float64{50, 75, 85}

// CreditBudget meters external enrichment against a monthly cap.
// Target band is 50-75% of the cap; at the hard stop the analyzer
// refuses all external calls until the month rolls over.
type CreditBudget struct {
	store       creditStore
	cap         int64
	targetPct   float64
	hardStopPct float64

	mu     sync.Mutex
	month  string
	used   int64
	warned map[float64]bool
}

func NewCreditBudget(store creditStore, cap int64, targetPct, hardStopPct float64) *CreditBudget {
	if cap <= 0 {
		cap = 10_000_000
	}
	if targetPct <= 0 {
		targetPct = 62.5
	}
	if hardStopPct <= 0 {
		hardStopPct = 85
	}
	return &CreditBudget{
		store:       store,
		cap:         cap,
		targetPct:   targetPct,
		hardStopPct: hardStopPct,
		warned:      make(map[float64]bool),
	}
}

func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

// CanSpend reports whether an operation with the given credit estimate
// may start: the projected total after the spend must stay within the
// hard stop.
func (b *CreditBudget) CanSpend(ctx context.Context, estimate int64) bool {
	if estimate < 0 {
		estimate = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollMonthLocked(ctx)
	return float64(b.used+estimate) <= b.hardStopFloor()
}

// Record accounts credits actually burnt and persists the running
// total. Threshold crossings warn exactly once each.
func (b *CreditBudget) Record(ctx context.Context, credits int64) {
	if credits <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollMonthLocked(ctx)

	before := b.used
	total, err := b.store.AddCreditUsage(ctx, b.month, credits)
	if err != nil {
		// Keep metering locally; the store catches up on the next write.
		log.Printf("[holder] persist credit usage: %v", err)
		total = before + credits
	}
	b.used = total

	for _, pct := range warnThresholds {
		floor := float64(b.cap) * pct / 100
		if float64(before) < floor && float64(total) >= floor && !b.warned[pct] {
			b.warned[pct] = true
			log.Printf("[holder] creditWarning: usage %d of %d crossed %.0f%%", total, b.cap, pct)
		}
	}
}

// Usage returns this month's running total and the cap.
func (b *CreditBudget) Usage(ctx context.Context) (int64, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollMonthLocked(ctx)
	return b.used, b.cap
}

// BelowTarget reports whether usage is under the target band's
// midpoint; the analyzer uses it to decide how aggressively to drain
// the queue.
func (b *CreditBudget) BelowTarget(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollMonthLocked(ctx)
	return float64(b.used) < float64(b.cap)*b.targetPct/100
}

func (b *CreditBudget) hardStopFloor() float64 {
	return float64(b.cap) * b.hardStopPct / 100
}

// rollMonthLocked reloads the persisted total on first use and resets
// the warning set when the month changes.
func (b *CreditBudget) rollMonthLocked(ctx context.Context) {
	m := currentMonth()
	if m == b.month {
		return
	}
	b.month = m
	b.warned = make(map[float64]bool)
	used, err := b.store.GetCreditUsage(ctx, m)
	if err != nil {
		log.Printf("[holder] load credit usage for %s: %v", m, err)
		return
	}
	b.used = used
}
