package score

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"pumpscan/internal/enrich"
	"pumpscan/internal/models"
	"pumpscan/internal/repository"
)

type fakeHolderStore struct {
	snapshots []models.HolderSnapshot
	wallets   map[string]models.WalletAnalysis
	activity  repository.TradingActivity
	prev      *models.HolderSnapshot
}

func newFakeHolderStore() *fakeHolderStore {
	return &fakeHolderStore{wallets: make(map[string]models.WalletAnalysis)}
}

func (s *fakeHolderStore) EligibleForHolderAnalysis(ctx context.Context, minAge time.Duration, minTx int) ([]repository.HolderCandidate, error) {
	return nil, nil
}

func (s *fakeHolderStore) LatestHolderScore(ctx context.Context, tokenID int64) (*models.HolderSnapshot, error) {
	return s.prev, nil
}

func (s *fakeHolderStore) GetWalletAnalyses(ctx context.Context, addrs []string) (map[string]models.WalletAnalysis, error) {
	out := make(map[string]models.WalletAnalysis)
	for _, a := range addrs {
		if w, ok := s.wallets[a]; ok {
			out[a] = w
		}
	}
	return out, nil
}

func (s *fakeHolderStore) UpsertWalletAnalysis(ctx context.Context, w models.WalletAnalysis) error {
	s.wallets[w.WalletAddress] = w
	return nil
}

func (s *fakeHolderStore) InsertHolderSnapshot(ctx context.Context, snap models.HolderSnapshot) error {
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *fakeHolderStore) GetTradingActivity(ctx context.Context, tokenID int64, window time.Duration) (repository.TradingActivity, error) {
	return s.activity, nil
}

type fakeEnrichClient struct {
	holders      []enrich.Holder
	profiles     map[string]enrich.WalletProfile
	profileCalls int
	holdersErr   error
}

func (c *fakeEnrichClient) GetHolders(ctx context.Context, mint string) ([]enrich.Holder, int64, error) {
	if c.holdersErr != nil {
		return nil, 0, c.holdersErr
	}
	pages := int64(len(c.holders)/1000 + 1)
	return c.holders, pages * enrich.CreditsPerHolderPage, nil
}

func (c *fakeEnrichClient) GetWalletProfile(ctx context.Context, addr string) (*enrich.WalletProfile, int64, error) {
	c.profileCalls++
	p, ok := c.profiles[addr]
	if !ok {
		p = enrich.WalletProfile{Address: addr}
	}
	p.Address = addr
	return &p, enrich.CreditsPerWallet, nil
}

func newTestAnalyzer(store *fakeHolderStore, client *fakeEnrichClient, used int64) *HolderAnalyzer {
	creditStore := newMemCreditStore()
	if used > 0 {
		creditStore.usage[currentMonth()] = used
	}
	budget := NewCreditBudget(creditStore, 10_000_000, 62.5, 85)
	a := NewHolderAnalyzer(store, client, budget, NewLimiter(6000, 1000), nil)
	a.rng = rand.New(rand.NewSource(1))
	return a
}

func testHolders(n int) []enrich.Holder {
	holders := make([]enrich.Holder, n)
	for i := range holders {
		holders[i] = enrich.Holder{Address: addrLabel(i), Balance: uint64(1000 + i)}
	}
	return holders
}

func addrLabel(i int) string {
	return "wallet-" + string(rune('A'+i%26)) + string(rune('0'+(i/26)%10)) + string(rune('0'+i%10))
}

func TestAnalyzeTokenWritesSnapshot(t *testing.T) {
	t.Parallel()

	store := newFakeHolderStore()
	store.activity = repository.TradingActivity{TradeCount: 80}

	old := time.Now().Add(-300 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	client := &fakeEnrichClient{
		holders:  testHolders(60),
		profiles: map[string]enrich.WalletProfile{},
	}
	for _, h := range client.holders {
		client.profiles[h.Address] = enrich.WalletProfile{
			FirstTxTime: &old,
			LastActive:  &recent,
			TxCount:     500,
			SolBalance:  5_000_000_000,
			TokenCount:  10,
		}
	}

	a := newTestAnalyzer(store, client, 0)
	ctx := context.Background()

	err := a.analyzeToken(ctx, &queueItem{tokenID: 7, mint: "MintA", progress: 42})
	if err != nil {
		t.Fatalf("analyzeToken: %v", err)
	}

	if len(store.snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(store.snapshots))
	}
	snap := store.snapshots[0]
	if snap.TokenID != 7 {
		t.Errorf("token id = %d", snap.TokenID)
	}
	if snap.HolderCount != 60 {
		t.Errorf("holder count = %d, want 60", snap.HolderCount)
	}
	if snap.CreditsUsed <= 0 {
		t.Errorf("credits used = %d, want > 0", snap.CreditsUsed)
	}
	// 60 aged, funded, recently active wallets: no bots, all active.
	if snap.BotRatio != 0 {
		t.Errorf("bot ratio = %f, want 0", snap.BotRatio)
	}
	if snap.Active24hRatio != 1 {
		t.Errorf("active ratio = %f, want 1", snap.Active24hRatio)
	}
	if snap.TotalScore <= 0 {
		t.Errorf("total score = %d, want > 0", snap.TotalScore)
	}

	// All wallets were persisted for reuse.
	if len(store.wallets) != 60 {
		t.Errorf("persisted wallets = %d, want 60", len(store.wallets))
	}
	if used, _ := a.budget.Usage(ctx); used != snap.CreditsUsed {
		t.Errorf("budget usage = %d, want %d", used, snap.CreditsUsed)
	}
}

func TestAnalyzeTokenReusesStoredWallets(t *testing.T) {
	t.Parallel()

	store := newFakeHolderStore()
	client := &fakeEnrichClient{holders: testHolders(20), profiles: map[string]enrich.WalletProfile{}}

	// Pre-seed the database with fresh analyses for every holder.
	now := time.Now()
	for _, h := range client.holders {
		store.wallets[h.Address] = models.WalletAnalysis{
			WalletAddress: h.Address,
			LastAnalyzed:  now,
			WalletAgeDays: 120,
		}
	}

	a := newTestAnalyzer(store, client, 0)
	if err := a.analyzeToken(context.Background(), &queueItem{tokenID: 1, mint: "MintB"}); err != nil {
		t.Fatalf("analyzeToken: %v", err)
	}
	if client.profileCalls != 0 {
		t.Errorf("profile calls = %d, want 0 (all served from store)", client.profileCalls)
	}
}

func TestAnalyzeTokenStopsAtHardStop(t *testing.T) {
	t.Parallel()

	store := newFakeHolderStore()
	client := &fakeEnrichClient{holders: testHolders(10)}

	// Already past the 85% hard stop.
	a := newTestAnalyzer(store, client, 8_600_000)
	err := a.analyzeToken(context.Background(), &queueItem{tokenID: 1, mint: "MintC"})
	if !errors.Is(err, errBudgetExhausted) {
		t.Fatalf("err = %v, want errBudgetExhausted", err)
	}
	if len(store.snapshots) != 0 {
		t.Error("snapshot written despite exhausted budget")
	}
}

func TestAnalyzeTokenRateLimitedOpensPenalty(t *testing.T) {
	t.Parallel()

	store := newFakeHolderStore()
	client := &fakeEnrichClient{holdersErr: enrich.ErrRateLimited}

	a := newTestAnalyzer(store, client, 0)
	err := a.analyzeToken(context.Background(), &queueItem{tokenID: 1, mint: "MintD"})
	if !errors.Is(err, enrich.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if a.limiter.penaltyWindow() == 0 {
		t.Error("penalty window not opened after 429")
	}
}

func TestEstimateCreditsScalesWithCacheHitRate(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(newFakeHolderStore(), &fakeEnrichClient{}, 0)

	// Cold cache: 1 page + 100 sampled wallets at 2 credits each.
	if got := a.estimateCredits(500); got != 1+100*2 {
		t.Errorf("cold estimate = %d, want 201", got)
	}

	// Warm the cache to a 100% hit rate: wallet cost drops out.
	a.cache.Put(models.WalletAnalysis{WalletAddress: "w", LastAnalyzed: time.Now()})
	a.cache.Get("w")
	if got := a.estimateCredits(500); got != 1 {
		t.Errorf("warm estimate = %d, want 1", got)
	}
}

func TestEvaluateAlerts(t *testing.T) {
	t.Parallel()

	in := HolderInputs{Gini: 0.95, Top1Pct: 45, BotRatio: 0.7, SmartMoneyRatio: 0.15}
	alerts := EvaluateAlerts("MintE", in, 260)

	bySeverity := map[string]int{}
	for _, al := range alerts {
		bySeverity[al.Severity]++
		if al.Mint != "MintE" {
			t.Errorf("alert mint = %s", al.Mint)
		}
	}
	if bySeverity[SeverityCritical] != 2 {
		t.Errorf("critical alerts = %d, want 2", bySeverity[SeverityCritical])
	}
	if bySeverity[SeverityWarning] != 1 {
		t.Errorf("warning alerts = %d, want 1", bySeverity[SeverityWarning])
	}
	if bySeverity[SeverityPositive] != 2 {
		t.Errorf("positive alerts = %d, want 2", bySeverity[SeverityPositive])
	}

	if got := EvaluateAlerts("MintF", HolderInputs{Gini: 0.4, Top1Pct: 3}, 100); len(got) != 0 {
		t.Errorf("healthy token produced %d alerts", len(got))
	}
}
