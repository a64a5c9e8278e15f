package score

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterBackoffInitial = time.Second
	limiterBackoffMax     = time.Minute
)

// Limiter gates the enrichment API with both per-minute and per-second
// caps, plus an exponential penalty window after a 429.
type Limiter struct {
	perMin *rate.Limiter
	perSec *rate.Limiter

	mu      sync.Mutex
	until   time.Time
	penalty time.Duration
}

// NewLimiter builds a limiter allowing n requests per minute and m per
// second.
func NewLimiter(n, m int) *Limiter {
	if n <= 0 {
		n = 600
	}
	if m <= 0 {
		m = 10
	}
	return &Limiter{
		perMin: rate.NewLimiter(rate.Limit(float64(n)/60.0), n),
		perSec: rate.NewLimiter(rate.Limit(m), m),
	}
}

// Wait blocks until both caps admit one request and any 429 penalty
// window has passed.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	until := l.until
	l.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if err := l.perMin.Wait(ctx); err != nil {
		return err
	}
	return l.perSec.Wait(ctx)
}

// OnRateLimited opens (or doubles) the penalty window after a 429.
func (l *Limiter) OnRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.penalty == 0 {
		l.penalty = limiterBackoffInitial
	} else {
		l.penalty *= 2
		if l.penalty > limiterBackoffMax {
			l.penalty = limiterBackoffMax
		}
	}
	l.until = time.Now().Add(l.penalty)
}

// OnSuccess closes the penalty window.
func (l *Limiter) OnSuccess() {
	l.mu.Lock()
	l.penalty = 0
	l.until = time.Time{}
	l.mu.Unlock()
}

// penaltyWindow reports the current backoff duration, for tests.
func (l *Limiter) penaltyWindow() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.penalty
}
