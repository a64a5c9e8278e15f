package score

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllowsBurst(t *testing.T) {
	t.Parallel()

	l := NewLimiter(600, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// A burst within both caps must not block noticeably.
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("burst of 10 took %s", elapsed)
	}
}

func TestLimiterBackoffDoubles(t *testing.T) {
	t.Parallel()

	l := NewLimiter(600, 10)

	l.OnRateLimited()
	if got := l.penaltyWindow(); got != limiterBackoffInitial {
		t.Errorf("first penalty = %s, want %s", got, limiterBackoffInitial)
	}
	l.OnRateLimited()
	if got := l.penaltyWindow(); got != 2*limiterBackoffInitial {
		t.Errorf("second penalty = %s, want %s", got, 2*limiterBackoffInitial)
	}

	for i := 0; i < 20; i++ {
		l.OnRateLimited()
	}
	if got := l.penaltyWindow(); got != limiterBackoffMax {
		t.Errorf("penalty = %s, want capped at %s", got, limiterBackoffMax)
	}

	l.OnSuccess()
	if got := l.penaltyWindow(); got != 0 {
		t.Errorf("penalty after success = %s, want 0", got)
	}
}

func TestLimiterHonorsPenaltyWindow(t *testing.T) {
	t.Parallel()

	l := NewLimiter(600, 10)
	l.OnRateLimited() // 1s window

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("Wait inside the penalty window must respect context deadline")
	}
}
