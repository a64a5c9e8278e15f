package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"pumpscan/internal/models"
	"pumpscan/internal/repository"

	"github.com/gorilla/mux"
)

// BuildCommit is set by main to the git commit hash baked in at build time.
var BuildCommit = "dev"

// Store is the read surface the API serves from.
type Store interface {
	TokenRankings(ctx context.Context, limit int) ([]repository.TokenRanking, error)
	TopVolumeTokens(ctx context.Context, window time.Duration, limit int) ([]repository.TokenRanking, error)
	GetTokenByMint(ctx context.Context, mintAddr string) (*models.Token, error)
	GetOldestPoolForToken(ctx context.Context, tokenID int64) (*models.Pool, error)
	GetTechScore(ctx context.Context, tokenID int64) (*models.TechScore, error)
	LatestHolderScore(ctx context.Context, tokenID int64) (*models.HolderSnapshot, error)
	QueryCandles(ctx context.Context, tokenID int64, from, to time.Time) ([]models.Candle, error)
	LatestCandles(ctx context.Context, tokenID int64, n int) ([]models.Candle, error)
	PriceChange(ctx context.Context, tokenID int64, window time.Duration) (float64, error)
	GetSolUsdLatest(ctx context.Context) (*models.SolUsdPrice, error)
	Ping(ctx context.Context) error
}

// StatusSource exposes pipeline counters for the status endpoint.
type StatusSource interface {
	Snapshot() map[string]int64
}

// BudgetSource exposes credit spend for the status endpoint.
type BudgetSource interface {
	Usage(ctx context.Context) (used, cap int64)
}

type Server struct {
	repo       Store
	counters   StatusSource
	budget     BudgetSource
	httpServer *http.Server
	startedAt  time.Time

	statusCache struct {
		mu        sync.Mutex
		payload   []byte
		expiresAt time.Time
	}
}

// Option customizes the server at construction.
type Option func(*Server)

// WithCounters wires reconciler counters into /v1/status.
func WithCounters(c StatusSource) Option {
	return func(s *Server) { s.counters = c }
}

// WithBudget wires credit-budget usage into /v1/status.
func WithBudget(b BudgetSource) Option {
	return func(s *Server) { s.budget = b }
}

func NewServer(repo Store, port string, opts ...Option) *Server {
	s := &Server{
		repo:      repo,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(commonMiddleware)
	r.Use(rateLimitMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/tokens", s.handleTokens).Methods("GET")
	v1.HandleFunc("/tokens/{mint}", s.handleToken).Methods("GET")
	v1.HandleFunc("/tokens/{mint}/candles", s.handleCandles).Methods("GET")
	v1.HandleFunc("/sol-price", s.handleSolPrice).Methods("GET")
	v1.HandleFunc("/status", s.handleStatus).Methods("GET")

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	return s
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
