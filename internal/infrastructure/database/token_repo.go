package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/domain/repositories"
)

// Ensure TokenRepo implements TokenRepository
var _ repositories.TokenRepository = (*TokenRepo)(nil)

// TokenRepo implements TokenRepository using PostgreSQL
type TokenRepo struct {
	db *sqlx.DB
}

// NewTokenRepo creates a new token repository
func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// GetByAddress retrieves a token by chain and address
func (r *TokenRepo) GetByAddress(ctx context.Context, chainID int64, address string) (*entities.Token, error) {
	var token entities.Token
	query := `SELECT * FROM token_metadata WHERE chain_id = $1 AND address = $2`

	if err := r.db.GetContext(ctx, &token, query, chainID, strings.ToLower(address)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &token, nil
}

// CountByChain returns the number of tokens stored for a chain
func (r *TokenRepo) CountByChain(ctx context.Context, chainID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM token_metadata WHERE chain_id = $1`

	if err := r.db.GetContext(ctx, &count, query, chainID); err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}

	return count, nil
}

// Upsert inserts a token, or fills in fields of an existing row. Null
// columns in token never replace stored values.
func (r *TokenRepo) Upsert(ctx context.Context, token *entities.Token) error {
	query := `
		INSERT INTO token_metadata (chain_id, address, name, ticker, icon, decimals)
		VALUES (:chain_id, :address, :name, :ticker, :icon, :decimals)
		ON CONFLICT (chain_id, address) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, token_metadata.name),
			ticker = COALESCE(EXCLUDED.ticker, token_metadata.ticker),
			icon = COALESCE(EXCLUDED.icon, token_metadata.icon),
			decimals = COALESCE(EXCLUDED.decimals, token_metadata.decimals),
			updated_at = NOW()
	`

	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("failed to upsert token: %w", err)
	}

	return nil
}
