package score

import (
	"container/heap"
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"pumpscan/internal/enrich"
	"pumpscan/internal/models"
	"pumpscan/internal/repository"
)

// Eligibility gates: a pool must be at least this old with this many
// trades before holder analysis is worth credits.
const (
	eligibilityMinAge     = 30 * time.Minute
	eligibilityMinTrades  = 3
	defaultPollInterval   = time.Minute
	defaultBatchPerCycle  = 5
	walletProfileStaleAge = 6 * time.Hour
)

// holderStore is the repository surface the analyzer needs.
type holderStore interface {
	EligibleForHolderAnalysis(ctx context.Context, minAge time.Duration, minTxCount int) ([]repository.HolderCandidate, error)
	LatestHolderScore(ctx context.Context, tokenID int64) (*models.HolderSnapshot, error)
	GetWalletAnalyses(ctx context.Context, addrs []string) (map[string]models.WalletAnalysis, error)
	UpsertWalletAnalysis(ctx context.Context, w models.WalletAnalysis) error
	InsertHolderSnapshot(ctx context.Context, s models.HolderSnapshot) error
	GetTradingActivity(ctx context.Context, tokenID int64, window time.Duration) (repository.TradingActivity, error)
}

// enrichClient is the external enrichment surface.
type enrichClient interface {
	GetHolders(ctx context.Context, mint string) ([]enrich.Holder, int64, error)
	GetWalletProfile(ctx context.Context, addr string) (*enrich.WalletProfile, int64, error)
}

// HolderAnalyzer runs the credit-budgeted holder scoring loop: poll
// eligible tokens, queue them by priority, and analyze the head of the
// queue each cycle.
type HolderAnalyzer struct {
	repo    holderStore
	client  enrichClient
	budget  *CreditBudget
	limiter *Limiter
	cache   *WalletCache

	pollInterval time.Duration
	perCycle     int
	rng          *rand.Rand

	mu           sync.Mutex
	lastProgress map[int64]float64
	alerts       []Alert
	fatal        chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHolderAnalyzer wires the analyzer. Pass nil cache to get a fresh
// one.
func NewHolderAnalyzer(repo holderStore, client enrichClient, budget *CreditBudget, limiter *Limiter, cache *WalletCache) *HolderAnalyzer {
	if cache == nil {
		cache = NewWalletCache()
	}
	return &HolderAnalyzer{
		repo:         repo,
		client:       client,
		budget:       budget,
		limiter:      limiter,
		cache:        cache,
		pollInterval: defaultPollInterval,
		perCycle:     defaultBatchPerCycle,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		lastProgress: make(map[int64]float64),
		fatal:        make(chan error, 1),
	}
}

// Start launches the analysis loop.
func (a *HolderAnalyzer) Start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go a.run()
	log.Printf("[holder-analyzer] started (poll %s, %d tokens/cycle)", a.pollInterval, a.perCycle)
}

// Stop halts the loop and waits for the current cycle to finish.
func (a *HolderAnalyzer) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	log.Printf("[holder-analyzer] stopped")
}

// Fatal reports unrecoverable analyzer failures, such as rejected API
// credentials. At most one error is ever delivered.
func (a *HolderAnalyzer) Fatal() <-chan error {
	return a.fatal
}

// RecentAlerts drains the alerts accumulated since the last call.
func (a *HolderAnalyzer) RecentAlerts() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.alerts
	a.alerts = nil
	return out
}

func (a *HolderAnalyzer) run() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.cycle()
			a.cache.EvictExpired()
		}
	}
}

// cycle polls eligibility, builds the priority queue, and analyzes up
// to perCycle tokens from its head.
func (a *HolderAnalyzer) cycle() {
	ctx, cancel := context.WithTimeout(a.ctx, a.pollInterval)
	defer cancel()

	candidates, err := a.repo.EligibleForHolderAnalysis(ctx, eligibilityMinAge, eligibilityMinTrades)
	if err != nil {
		log.Printf("[holder-analyzer] eligibility poll failed: %v", err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	now := time.Now()
	q := newAnalysisQueue()
	a.mu.Lock()
	for _, c := range candidates {
		prev, seen := a.lastProgress[c.TokenID]
		if !seen {
			prev = c.Progress
		}
		heap.Push(q, &queueItem{
			tokenID:   c.TokenID,
			mint:      c.MintAddress,
			progress:  c.Progress,
			techTotal: c.TechTotal,
			tier:      classifyTier(prev, c.Progress, c.TechTotal, c.LastScoreTime, now),
		})
		a.lastProgress[c.TokenID] = c.Progress
	}
	a.mu.Unlock()

	analyzed := 0
	for q.Len() > 0 && analyzed < a.perCycle {
		item := heap.Pop(q).(*queueItem)

		// Routine work only runs while spend is under target; urgent
		// tiers run up to the hard stop.
		if item.tier == tierRoutine && !a.budget.BelowTarget(ctx) {
			continue
		}
		if err := a.analyzeToken(ctx, item); err != nil {
			if errors.Is(err, errBudgetExhausted) {
				log.Printf("[holder-analyzer] budget exhausted, pausing cycle")
				return
			}
			if errors.Is(err, enrich.ErrUnauthorized) {
				select {
				case a.fatal <- err:
				default:
				}
				return
			}
			log.Printf("[holder-analyzer] token %s: %v", item.mint, err)
		}
		analyzed++
	}
}

var errBudgetExhausted = errors.New("credit budget exhausted")

// estimateCredits predicts the spend for one token before committing:
// holder pages plus profile lookups discounted by the cache hit rate.
func (a *HolderAnalyzer) estimateCredits(holderCount int) int64 {
	pages := int64(math.Ceil(float64(holderCount) / 1000))
	if pages == 0 {
		pages = 1
	}
	sample := float64(SampleSize(holderCount))
	misses := sample * (1 - a.cache.HitRate())
	return pages*enrich.CreditsPerHolderPage + int64(misses)*enrich.CreditsPerWallet
}

// analyzeToken fetches holders, enriches a sample of wallets, computes
// the three holder sub-scores, and appends a snapshot.
func (a *HolderAnalyzer) analyzeToken(ctx context.Context, item *queueItem) error {
	// Cheap pre-check with an assumed mid-size token; the real gate
	// happens again once the holder count is known.
	if !a.budget.CanSpend(ctx, a.estimateCredits(1000)) {
		return errBudgetExhausted
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	holders, credits, err := a.client.GetHolders(ctx, item.mint)
	spent := credits
	if err != nil {
		a.budget.Record(ctx, spent)
		if errors.Is(err, enrich.ErrRateLimited) {
			a.limiter.OnRateLimited()
		}
		return err
	}
	a.limiter.OnSuccess()

	if !a.budget.CanSpend(ctx, a.estimateCredits(len(holders))) {
		a.budget.Record(ctx, spent)
		return errBudgetExhausted
	}

	sample := SampleHolders(holders, SampleSize(len(holders)), a.rng)
	analyses, walletCredits, err := a.enrichSample(ctx, sample)
	spent += walletCredits
	a.budget.Record(ctx, spent)
	if err != nil {
		return err
	}

	in, err := a.buildInputs(ctx, item, holders, analyses)
	if err != nil {
		return err
	}
	scores := ComputeHolderScores(in)

	snap := models.HolderSnapshot{
		TokenID:           item.tokenID,
		ScoreTime:         time.Now().UTC().Truncate(time.Second),
		TotalScore:        scores.Total,
		DistributionScore: scores.Distribution,
		QualityScore:      scores.Quality,
		ActivityScore:     scores.Activity,
		HolderCount:       in.HolderCount,
		Gini:              in.Gini,
		Top1Pct:           in.Top1Pct,
		BotRatio:          in.BotRatio,
		SmartMoneyRatio:   in.SmartMoneyRatio,
		AvgWalletAgeDays:  in.AvgWalletAgeDays,
		Active24hRatio:    in.Active24hRatio,
		CreditsUsed:       spent,
	}
	if err := a.repo.InsertHolderSnapshot(ctx, snap); err != nil {
		return err
	}

	alerts := EvaluateAlerts(item.mint, in, scores.Total)
	if len(alerts) > 0 {
		a.mu.Lock()
		a.alerts = append(a.alerts, alerts...)
		a.mu.Unlock()
		for _, al := range alerts {
			log.Printf("[holder-analyzer] %s alert for %s: %s", al.Severity, al.Mint, al.Message)
		}
	}

	log.Printf("[holder-analyzer] scored %s: total=%d holders=%d credits=%d",
		item.mint, scores.Total, in.HolderCount, spent)
	return nil
}

// enrichSample resolves wallet analyses for the sample: memory cache,
// then database, then the enrichment API for the remainder.
func (a *HolderAnalyzer) enrichSample(ctx context.Context, sample []enrich.Holder) ([]models.WalletAnalysis, int64, error) {
	out := make([]models.WalletAnalysis, 0, len(sample))
	var missing []string

	for _, h := range sample {
		if w, ok := a.cache.Get(h.Address); ok {
			out = append(out, w)
			continue
		}
		missing = append(missing, h.Address)
	}

	if len(missing) > 0 {
		stored, err := a.repo.GetWalletAnalyses(ctx, missing)
		if err != nil {
			return nil, 0, err
		}
		still := missing[:0]
		now := time.Now()
		for _, addr := range missing {
			w, ok := stored[addr]
			if ok && now.Sub(w.LastAnalyzed) < walletProfileStaleAge {
				a.cache.Put(w)
				out = append(out, w)
				continue
			}
			still = append(still, addr)
		}
		missing = still
	}

	var credits int64
	now := time.Now()
	for _, addr := range missing {
		if err := a.limiter.Wait(ctx); err != nil {
			return out, credits, err
		}
		profile, c, err := a.client.GetWalletProfile(ctx, addr)
		credits += c
		if err != nil {
			if errors.Is(err, enrich.ErrRateLimited) {
				a.limiter.OnRateLimited()
				continue
			}
			return out, credits, err
		}
		a.limiter.OnSuccess()

		w := ClassifyWallet(profile, now)
		a.cache.Put(w)
		if err := a.repo.UpsertWalletAnalysis(ctx, w); err != nil {
			log.Printf("[holder-analyzer] persist wallet %s: %v", addr, err)
		}
		out = append(out, w)
	}
	return out, credits, nil
}

// buildInputs aggregates the raw holder list and the enriched sample
// into score inputs.
func (a *HolderAnalyzer) buildInputs(ctx context.Context, item *queueItem, holders []enrich.Holder, analyses []models.WalletAnalysis) (HolderInputs, error) {
	balances := make([]uint64, len(holders))
	for i, h := range holders {
		balances[i] = h.Balance
	}

	in := HolderInputs{
		HolderCount: len(holders),
		Gini:        Gini(balances),
		Top1Pct:     Top1Pct(holders),
		GrowthRatio: 1,
	}

	if n := len(analyses); n > 0 {
		now := time.Now()
		var bots, smart, active int
		var ageSum float64
		for _, w := range analyses {
			if w.IsBot {
				bots++
			}
			if w.IsSmartMoney {
				smart++
			}
			if w.LastActive != nil && now.Sub(*w.LastActive) <= 24*time.Hour {
				active++
			}
			ageSum += w.WalletAgeDays
		}
		in.BotRatio = float64(bots) / float64(n)
		in.SmartMoneyRatio = float64(smart) / float64(n)
		in.Active24hRatio = float64(active) / float64(n)
		in.AvgWalletAgeDays = ageSum / float64(n)
	}

	if prev, err := a.repo.LatestHolderScore(ctx, item.tokenID); err != nil {
		return in, err
	} else if prev != nil && prev.HolderCount > 0 {
		in.GrowthRatio = float64(len(holders)) / float64(prev.HolderCount)
	}

	if activity, err := a.repo.GetTradingActivity(ctx, item.tokenID, time.Hour); err == nil && len(holders) > 0 {
		in.Velocity = float64(activity.TradeCount) / float64(len(holders))
	}

	return in, nil
}
