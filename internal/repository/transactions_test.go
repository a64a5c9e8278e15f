package repository

import (
	"strings"
	"testing"
	"time"

	"pumpscan/internal/models"
)

func TestChunkTransactions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		total     int
		size      int
		wantSizes []int
	}{
		{name: "empty", total: 0, size: 1000, wantSizes: nil},
		{name: "under one chunk", total: 50, size: 1000, wantSizes: []int{50}},
		{name: "exact chunk", total: 1000, size: 1000, wantSizes: []int{1000}},
		{name: "one over", total: 1001, size: 1000, wantSizes: []int{1000, 1}},
		{name: "several", total: 2500, size: 1000, wantSizes: []int{1000, 1000, 500}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			txs := make([]models.Transaction, tc.total)
			chunks := chunkTransactions(txs, tc.size)
			if len(chunks) != len(tc.wantSizes) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tc.wantSizes))
			}
			for i, want := range tc.wantSizes {
				if len(chunks[i]) != want {
					t.Errorf("chunk %d has %d rows, want %d", i, len(chunks[i]), want)
				}
			}
		})
	}
}

func TestBuildTransactionInsert(t *testing.T) {
	t.Parallel()

	txs := []models.Transaction{
		{Signature: "SIG1", BlockTime: time.Unix(1700000000, 0), Type: models.TxBuy, SolAmount: 1_000_000_000, TokenAmount: 100_000_000},
		{Signature: "SIG2", BlockTime: time.Unix(1700000001, 0), Type: models.TxSell, SolAmount: 5, TokenAmount: 7},
	}

	sql, args := buildTransactionInsert(txs)

	if want := len(txs) * 17; len(args) != want {
		t.Fatalf("got %d args, want %d", len(args), want)
	}
	if !strings.Contains(sql, "ON CONFLICT (signature, block_time) DO NOTHING") {
		t.Errorf("statement missing conflict clause: %s", sql)
	}
	if !strings.Contains(sql, "$18") || strings.Contains(sql, "$35") {
		t.Errorf("placeholder numbering wrong for 2 rows: %s", sql)
	}
	if args[0] != "SIG1" || args[17] != "SIG2" {
		t.Errorf("row args out of order: %v, %v", args[0], args[17])
	}
}
