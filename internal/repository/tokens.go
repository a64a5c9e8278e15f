package repository

import (
	"context"
	"fmt"
	"time"

	"pumpscan/internal/models"

	"github.com/jackc/pgx/v5"
)

// TokenFields carries the writable fields of UpsertToken. Venue and
// decimals are set at creation and never change; mutable fields
// (symbol, name, metadata, graduation) update on conflict.
type TokenFields struct {
	Symbol       string
	Name         string
	Decimals     int
	Venue        string
	Creator      string
	CreationSig  string
	CreationTime time.Time
	MetadataURI  string
}

// UpsertToken inserts a new token row or updates the mutable fields of
// an existing one keyed by mint address. A pre-existing row with a
// different venue is a hard data error (ErrVenueConflict); a
// pre-existing row with the same venue is a benign no-op for the
// immutable fields.
func (r *Repository) UpsertToken(ctx context.Context, mintAddr string, f TokenFields) (int64, error) {
	if f.Decimals == 0 {
		f.Decimals = 6
	}
	if f.CreationTime.IsZero() {
		f.CreationTime = time.Now().UTC()
	}

	var id int64
	var venue string
	err := r.db.QueryRow(ctx, `
		INSERT INTO tokens (mint_address, symbol, name, decimals, venue, creator, creation_sig, creation_time, metadata_uri, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (mint_address) DO UPDATE SET
			symbol = COALESCE(NULLIF(EXCLUDED.symbol, ''), tokens.symbol),
			name = COALESCE(NULLIF(EXCLUDED.name, ''), tokens.name),
			metadata_uri = COALESCE(NULLIF(EXCLUDED.metadata_uri, ''), tokens.metadata_uri),
			updated_at = NOW()
		RETURNING id, venue`,
		mintAddr, f.Symbol, f.Name, f.Decimals, f.Venue, f.Creator, f.CreationSig, f.CreationTime, f.MetadataURI,
	).Scan(&id, &venue)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert token %s: %w", mintAddr, err)
	}

	// Venue never changes once set. The upsert above only touches
	// mutable fields, so a mismatch here means the caller tried to
	// re-create the token under another venue.
	if f.Venue != "" && venue != f.Venue {
		return id, fmt.Errorf("token %s is venue %q, write claimed %q: %w", mintAddr, venue, f.Venue, ErrVenueConflict)
	}
	return id, nil
}

func (r *Repository) GetTokenByMint(ctx context.Context, mintAddr string) (*models.Token, error) {
	return r.scanToken(r.db.QueryRow(ctx, `
		SELECT id, mint_address, symbol, name, decimals, venue, creator, creation_sig, creation_time,
		       metadata_uri, is_graduated, graduation_sig, graduation_time, created_at, updated_at
		FROM tokens WHERE mint_address = $1`, mintAddr))
}

func (r *Repository) GetTokenByID(ctx context.Context, id int64) (*models.Token, error) {
	return r.scanToken(r.db.QueryRow(ctx, `
		SELECT id, mint_address, symbol, name, decimals, venue, creator, creation_sig, creation_time,
		       metadata_uri, is_graduated, graduation_sig, graduation_time, created_at, updated_at
		FROM tokens WHERE id = $1`, id))
}

func (r *Repository) scanToken(row pgx.Row) (*models.Token, error) {
	var t models.Token
	err := row.Scan(&t.ID, &t.MintAddress, &t.Symbol, &t.Name, &t.Decimals, &t.Venue, &t.Creator,
		&t.CreationSig, &t.CreationTime, &t.MetadataURI, &t.IsGraduated, &t.GraduationSig, &t.GraduationTime,
		&t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkGraduated sets is_graduated and the graduation signature/time on
// a token. Monotone: a second call never lowers the flag or clears an
// already-set signature.
func (r *Repository) MarkGraduated(ctx context.Context, tokenID int64, sig string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE tokens SET
			is_graduated = TRUE,
			graduation_sig = COALESCE(graduation_sig, NULLIF($2, '')),
			graduation_time = COALESCE(graduation_time, $3),
			updated_at = NOW()
		WHERE id = $1`,
		tokenID, sig, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark token %d graduated: %w", tokenID, err)
	}
	return nil
}
