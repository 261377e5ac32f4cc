package repositories

import (
	"context"
	"errors"

	"github.com/bimakw/tokendata/internal/domain/entities"
)

// TokenRepository defines the interface for persisting token metadata rows
type TokenRepository interface {
	// GetByAddress retrieves a token by chain and address
	GetByAddress(ctx context.Context, chainID int64, address string) (*entities.Token, error)

	// CountByChain returns the number of tokens stored for a chain
	CountByChain(ctx context.Context, chainID int64) (int64, error)

	// Upsert creates a token or fills in its missing fields
	Upsert(ctx context.Context, token *entities.Token) error
}

// ErrCacheMiss indicates the key was not found in cache
var ErrCacheMiss = errors.New("cache miss")

// MetadataCache caches on-chain name/ticker lookups between runs
type MetadataCache interface {
	// Get returns the cached value or ErrCacheMiss
	Get(ctx context.Context, chainID int64, address string) (entities.NameTicker, error)

	// Set stores a resolved value
	Set(ctx context.Context, chainID int64, address string, value entities.NameTicker) error
}
