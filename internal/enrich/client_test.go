package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetHoldersPaginates(t *testing.T) {
	t.Parallel()

	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api-key") != "k1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		pages++
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			fmt.Fprint(w, `{"holders":[{"owner":"W1","amount":100},{"owner":"W2","amount":50}],"has_more":true}`)
		case "2":
			fmt.Fprint(w, `{"holders":[{"owner":"W3","amount":25}],"has_more":false}`)
		default:
			t.Errorf("unexpected page %q", page)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewClient("k1", srv.URL)
	holders, credits, err := c.GetHolders(context.Background(), "MINT1")
	if err != nil {
		t.Fatal(err)
	}
	if len(holders) != 3 {
		t.Errorf("got %d holders, want 3", len(holders))
	}
	if credits != 2 || pages != 2 {
		t.Errorf("credits=%d pages=%d, want 2 and 2", credits, pages)
	}
	if holders[0].Address != "W1" || holders[0].Balance != 100 {
		t.Errorf("first holder = %+v", holders[0])
	}
}

func TestGetHoldersRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k1", srv.URL)
	_, _, err := c.GetHolders(context.Background(), "MINT1")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
}

func TestGetWalletProfile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/wallet/W1/summary" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"tx_count":420,"sol_balance":5000000000}`)
	}))
	defer srv.Close()

	c := NewClient("k1", srv.URL)
	p, credits, err := c.GetWalletProfile(context.Background(), "W1")
	if err != nil {
		t.Fatal(err)
	}
	if credits != CreditsPerWallet {
		t.Errorf("credits = %d, want %d", credits, CreditsPerWallet)
	}
	if p.Address != "W1" || p.TxCount != 420 || p.SolBalance != 5_000_000_000 {
		t.Errorf("profile = %+v", p)
	}
}

func TestUnauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("bad", srv.URL)
	_, _, err := c.GetWalletProfile(context.Background(), "W1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}
