package score

import (
	"container/heap"
	"testing"
	"time"
)

func TestCrossedMilestone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		prev, cur float64
		want      bool
	}{
		{prev: 8, cur: 12, want: true},   // crossed 10
		{prev: 10, cur: 12, want: false}, // already past 10, 15 not reached
		{prev: 12, cur: 14, want: false},
		{prev: 14, cur: 30, want: true}, // crossed 15 and 25
		{prev: 94, cur: 100, want: true},
		{prev: 100, cur: 100, want: false},
		{prev: 50, cur: 50, want: false},
	}
	for _, tc := range cases {
		if got := crossedMilestone(tc.prev, tc.cur); got != tc.want {
			t.Errorf("crossedMilestone(%v, %v) = %v, want %v", tc.prev, tc.cur, got, tc.want)
		}
	}
}

func TestClassifyTier(t *testing.T) {
	t.Parallel()

	now := time.Now()
	fresh := now.Add(-5 * time.Minute)
	stale := now.Add(-45 * time.Minute)

	cases := []struct {
		name      string
		prev, cur float64
		tech      int
		last      *time.Time
		want      int
	}{
		{name: "milestone beats everything", prev: 20, cur: 26, tech: 200, last: &stale, want: tierMilestone},
		{name: "hot tech never scored", prev: 30, cur: 31, tech: 200, last: nil, want: tierHotTech},
		{name: "hot tech already scored is not tier 2", prev: 30, cur: 31, tech: 200, last: &fresh, want: tierRoutine},
		{name: "stale snapshot", prev: 30, cur: 31, tech: 100, last: &stale, want: tierStale},
		{name: "routine", prev: 30, cur: 31, tech: 100, last: &fresh, want: tierRoutine},
		{name: "unscored low tech is routine", prev: 30, cur: 31, tech: 50, last: nil, want: tierRoutine},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyTier(tc.prev, tc.cur, tc.tech, tc.last, now); got != tc.want {
				t.Errorf("classifyTier = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAnalysisQueueOrdering(t *testing.T) {
	t.Parallel()

	q := newAnalysisQueue()
	heap.Push(q, &queueItem{tokenID: 1, progress: 40, tier: tierRoutine})
	heap.Push(q, &queueItem{tokenID: 2, progress: 90, tier: tierStale})
	heap.Push(q, &queueItem{tokenID: 3, progress: 20, tier: tierMilestone})
	heap.Push(q, &queueItem{tokenID: 4, progress: 95, tier: tierRoutine})
	heap.Push(q, &queueItem{tokenID: 5, progress: 60, tier: tierMilestone})

	// Tier ascending, progress descending within a tier.
	wantOrder := []int64{5, 3, 2, 4, 1}
	for i, want := range wantOrder {
		item := heap.Pop(q).(*queueItem)
		if item.tokenID != want {
			t.Fatalf("pop %d: got token %d, want %d", i, item.tokenID, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue not drained: %d left", q.Len())
	}
}
