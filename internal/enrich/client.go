// Package enrich talks to the external holder-enrichment provider.
// Every request burns credits against the monthly budget, so callers
// go through the score engine's budget tracker and rate limiter, never
// straight to this client.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrRateLimited is returned on HTTP 429 so the limiter can back off
// and re-queue the work.
var ErrRateLimited = errors.New("enrichment rate limited")

// ErrUnauthorized means the API key was rejected; unrecoverable.
var ErrUnauthorized = errors.New("enrichment credentials rejected")

const (
	defaultBaseURL = "https://api.helius.xyz"
	holdersPerPage = 1000

	// Credit prices, mirrored by the analyzer's cost estimator.
	CreditsPerHolderPage = 1
	CreditsPerWallet     = 2
)

// Holder is one token-account balance row.
type Holder struct {
	Address string `json:"owner"`
	Balance uint64 `json:"amount"`
}

// WalletProfile is the per-wallet history summary used for quality
// scoring.
type WalletProfile struct {
	Address     string     `json:"address"`
	FirstTxTime *time.Time `json:"first_tx_time"`
	LastActive  *time.Time `json:"last_active"`
	TxCount     int64      `json:"tx_count"`
	SolBalance  uint64     `json:"sol_balance"`
	TokenCount  int        `json:"token_count"`
	IsExchange  bool       `json:"is_exchange"`
}

// Client is the REST client. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// GetHolders pages through a mint's holders. Returns the holders and
// the credits burnt (one per page fetched).
func (c *Client) GetHolders(ctx context.Context, mint string) ([]Holder, int64, error) {
	var all []Holder
	credits := int64(0)

	for page := 1; ; page++ {
		var resp struct {
			Holders []Holder `json:"holders"`
			HasMore bool     `json:"has_more"`
		}
		path := fmt.Sprintf("/v0/token/%s/holders?page=%d&limit=%d", url.PathEscape(mint), page, holdersPerPage)
		if err := c.get(ctx, path, &resp); err != nil {
			return all, credits, err
		}
		credits += CreditsPerHolderPage
		all = append(all, resp.Holders...)
		if !resp.HasMore || len(resp.Holders) == 0 {
			return all, credits, nil
		}
	}
}

// GetWalletProfile fetches one wallet's history summary. Costs
// CreditsPerWallet.
func (c *Client) GetWalletProfile(ctx context.Context, addr string) (*WalletProfile, int64, error) {
	var p WalletProfile
	path := fmt.Sprintf("/v0/wallet/%s/summary", url.PathEscape(addr))
	if err := c.get(ctx, path, &p); err != nil {
		return nil, 0, err
	}
	if p.Address == "" {
		p.Address = addr
	}
	return &p, CreditsPerWallet, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+sep+"api-key="+url.QueryEscape(c.apiKey), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "pumpscan/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("enrichment status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode enrichment response: %w", err)
	}
	return nil
}
