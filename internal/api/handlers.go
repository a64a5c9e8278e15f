package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pumpscan/internal/models"
	"pumpscan/internal/repository"

	"github.com/gorilla/mux"
)

const (
	defaultRankingLimit = 50
	maxRankingLimit     = 200
	defaultCandleCount  = 60
	maxCandleCount      = 1440
	statusCacheTTL      = 10 * time.Second
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTokens serves the ranked token dashboard. ?sort=volume switches
// from composite score to 1h SOL volume.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	limit := defaultRankingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxRankingLimit {
		limit = maxRankingLimit
	}

	var (
		rankings []repository.TokenRanking
		err      error
	)
	if r.URL.Query().Get("sort") == "volume" {
		rankings, err = s.repo.TopVolumeTokens(r.Context(), time.Hour, limit)
	} else {
		rankings, err = s.repo.TokenRankings(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]interface{}, 0, len(rankings))
	for _, rk := range rankings {
		out = append(out, map[string]interface{}{
			"mint":            rk.Token.MintAddress,
			"symbol":          rk.Token.Symbol,
			"name":            rk.Token.Name,
			"venue":           rk.Token.Venue,
			"is_graduated":    rk.Token.IsGraduated,
			"creation_time":   rk.Token.CreationTime,
			"progress":        rk.Progress,
			"price_sol":       rk.LatestPrice,
			"price_usd":       rk.PriceUsd,
			"tech_score":      rk.TechTotal,
			"holder_score":    rk.HolderTotal,
			"composite_score": rk.Composite,
			"volume_sol_1h":   rk.VolumeSol,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": out, "count": len(out)})
}

// handleToken serves the detail view: token row, oldest pool, both
// scores and the 1h price change.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]

	token, err := s.repo.GetTokenByMint(r.Context(), mint)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{"token": token}

	if pool, err := s.repo.GetOldestPoolForToken(r.Context(), token.ID); err == nil {
		resp["pool"] = pool
	}
	if tech, err := s.repo.GetTechScore(r.Context(), token.ID); err == nil && tech != nil {
		resp["tech_score"] = tech
	}
	if holder, err := s.repo.LatestHolderScore(r.Context(), token.ID); err == nil && holder != nil {
		resp["holder_score"] = holder
	}
	if change, err := s.repo.PriceChange(r.Context(), token.ID, time.Hour); err == nil {
		resp["price_change_1h"] = change
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCandles serves 1-minute OHLCV. With from/to (RFC3339 or unix
// seconds) it queries the range; otherwise the latest n candles.
func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]

	token, err := s.repo.GetTokenByMint(r.Context(), mint)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q := r.URL.Query()
	var candles []models.Candle
	if q.Get("from") != "" {
		from, err := parseTimeParam(q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from")
			return
		}
		to := time.Now()
		if q.Get("to") != "" {
			if to, err = parseTimeParam(q.Get("to")); err != nil {
				writeError(w, http.StatusBadRequest, "invalid to")
				return
			}
		}
		candles, err = s.repo.QueryCandles(r.Context(), token.ID, from, to)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		n := defaultCandleCount
		if v := q.Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				n = parsed
			}
		}
		if n > maxCandleCount {
			n = maxCandleCount
		}
		candles, err = s.repo.LatestCandles(r.Context(), token.ID, n)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if candles == nil {
		candles = []models.Candle{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mint":    mint,
		"candles": candles,
		"count":   len(candles),
	})
}

func (s *Server) handleSolPrice(w http.ResponseWriter, r *http.Request) {
	p, err := s.repo.GetSolUsdLatest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "no price data")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleStatus reports pipeline counters and credit spend, cached for
// a few seconds since dashboards poll it.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	s.statusCache.mu.Lock()
	if now.Before(s.statusCache.expiresAt) && len(s.statusCache.payload) > 0 {
		cached := append([]byte(nil), s.statusCache.payload...)
		s.statusCache.mu.Unlock()
		w.Write(cached)
		return
	}
	s.statusCache.mu.Unlock()

	resp := map[string]interface{}{
		"status":         "ok",
		"build":          BuildCommit,
		"uptime_seconds": int(now.Sub(s.startedAt).Seconds()),
		"generated_at":   now.UTC().Format(time.RFC3339),
		"ws_clients":     hub.clientCount(),
	}
	if s.counters != nil {
		resp["counters"] = s.counters.Snapshot()
	}
	if s.budget != nil {
		used, cap := s.budget.Usage(r.Context())
		pct := 0.0
		if cap > 0 {
			pct = float64(used) / float64(cap) * 100
		}
		resp["credits"] = map[string]interface{}{
			"used":     used,
			"cap":      cap,
			"used_pct": pct,
		}
	}
	if p, err := s.repo.GetSolUsdLatest(r.Context()); err == nil && p != nil {
		resp["sol_usd"] = p.PriceUsd
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.statusCache.mu.Lock()
	s.statusCache.payload = payload
	s.statusCache.expiresAt = time.Now().Add(statusCacheTTL)
	s.statusCache.mu.Unlock()

	w.Write(payload)
}

func parseTimeParam(v string) (time.Time, error) {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, v)
}
