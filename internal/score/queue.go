package score

import (
	"container/heap"
	"time"
)

// Analysis priority tiers, lower is more urgent.
const (
	tierMilestone = 1 // progress crossed a milestone since the last look
	tierHotTech   = 2 // strong technical score but never holder-scored
	tierStale     = 3 // last snapshot older than the staleness window
	tierRoutine   = 4
)

const (
	staleAfter       = 30 * time.Minute
	hotTechThreshold = 180
)

// progressMilestones are the bonding-curve checkpoints that trigger a
// re-score when crossed.
var progressMilestones = []float64{10, 15, 25, 50, 75, 90, 95, 100}

// queueItem is one token waiting for holder analysis.
type queueItem struct {
	tokenID   int64
	mint      string
	progress  float64
	techTotal int
	tier      int
	index     int
}

// analysisQueue is a priority heap: tier ascending, then progress
// descending within a tier.
type analysisQueue []*queueItem

func (q analysisQueue) Len() int { return len(q) }

func (q analysisQueue) Less(i, j int) bool {
	if q[i].tier != q[j].tier {
		return q[i].tier < q[j].tier
	}
	return q[i].progress > q[j].progress
}

func (q analysisQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *analysisQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *analysisQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// crossedMilestone reports whether progress passed a checkpoint
// between the two readings.
func crossedMilestone(prev, cur float64) bool {
	for _, m := range progressMilestones {
		if prev < m && cur >= m {
			return true
		}
	}
	return false
}

// classifyTier assigns the queue tier for a candidate. prevProgress is
// the progress at the previous enqueue (NaN-free; pass cur when
// unknown), lastScore the newest snapshot time or nil.
func classifyTier(prevProgress, curProgress float64, techTotal int, lastScore *time.Time, now time.Time) int {
	switch {
	case crossedMilestone(prevProgress, curProgress):
		return tierMilestone
	case techTotal >= hotTechThreshold && lastScore == nil:
		return tierHotTech
	case lastScore != nil && now.Sub(*lastScore) > staleAfter:
		return tierStale
	default:
		return tierRoutine
	}
}

// newAnalysisQueue builds an initialized heap.
func newAnalysisQueue() *analysisQueue {
	q := &analysisQueue{}
	heap.Init(q)
	return q
}
