package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/domain/repositories"
	"github.com/bimakw/tokendata/internal/infrastructure/ethereum"
	"github.com/bimakw/tokendata/internal/infrastructure/filestore"
	"github.com/bimakw/tokendata/internal/orderedmap"
)

var (
	ErrChainNotFound  = errors.New("chain not found")
	ErrTokenNotFound  = errors.New("token not found")
	ErrInvalidAddress = errors.New("invalid address")
)

// ChainTables holds one chain's tables as loaded from disk
type ChainTables struct {
	Metadata *orderedmap.Map[entities.TokenMetadata]
	Names    *orderedmap.Map[string]
	Tickers  *orderedmap.Map[string]
}

// TokenService answers lookups against the per-chain tables
type TokenService struct {
	chains map[int64]*ChainTables

	tokenRepo repositories.TokenRepository
	logger    *zap.Logger
}

// NewTokenService creates a token service over already loaded tables.
// tokenRepo is optional; when set, addresses missing from a table are
// looked up there.
func NewTokenService(
	chains map[int64]*ChainTables,
	tokenRepo repositories.TokenRepository,
	logger *zap.Logger,
) *TokenService {
	if chains == nil {
		chains = make(map[int64]*ChainTables)
	}
	return &TokenService{
		chains:    chains,
		tokenRepo: tokenRepo,
		logger:    logger,
	}
}

// LoadTokenService reads the tables of every chain under root concurrently
func LoadTokenService(
	ctx context.Context,
	root string,
	chainIDs []int64,
	tokenRepo repositories.TokenRepository,
	logger *zap.Logger,
) (*TokenService, error) {
	loaded := make([]*ChainTables, len(chainIDs))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, chainID := range chainIDs {
		i, chainID := i, chainID
		g.Go(func() error {
			tables, err := LoadChainTables(root, chainID, logger)
			if err != nil {
				return fmt.Errorf("chain %d: %w", chainID, err)
			}
			loaded[i] = tables
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	chains := make(map[int64]*ChainTables, len(chainIDs))
	for i, chainID := range chainIDs {
		chains[chainID] = loaded[i]
		logger.Info("Loaded chain tables",
			zap.Int64("chain_id", chainID),
			zap.Int("tokens", loaded[i].Metadata.Len()),
			zap.Int("names", loaded[i].Names.Len()),
			zap.Int("tickers", loaded[i].Tickers.Len()),
		)
	}

	return NewTokenService(chains, tokenRepo, logger), nil
}

// LoadChainTables reads the three tables of a chain. Missing files load as
// empty tables; entries of the wrong shape are skipped.
func LoadChainTables(root string, chainID int64, logger *zap.Logger) (*ChainTables, error) {
	tables := &ChainTables{
		Metadata: orderedmap.New[entities.TokenMetadata](),
		Names:    orderedmap.New[string](),
		Tickers:  orderedmap.New[string](),
	}

	meta, err := readRawTable(filestore.TablePath(root, chainID, filestore.AddressToMetadataFile))
	if err != nil {
		return nil, err
	}
	meta.Each(func(addr string, raw json.RawMessage) bool {
		var m entities.TokenMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			logger.Warn("Skipping malformed entry", zap.Int64("chain_id", chainID), zap.String("address", addr))
			return true
		}
		tables.Metadata.Set(strings.ToLower(addr), m)
		return true
	})

	indexes := []struct {
		file string
		dst  *orderedmap.Map[string]
	}{
		{filestore.NamesToAddressFile, tables.Names},
		{filestore.TickersToAddressFile, tables.Tickers},
	}
	for _, idx := range indexes {
		raw, err := readRawTable(filestore.TablePath(root, chainID, idx.file))
		if err != nil {
			return nil, err
		}
		raw.Each(func(key string, v json.RawMessage) bool {
			var addr string
			if json.Unmarshal(v, &addr) == nil {
				idx.dst.Set(key, strings.ToLower(addr))
			}
			return true
		})
	}

	return tables, nil
}

func readRawTable(path string) (*orderedmap.Map[json.RawMessage], error) {
	table, err := filestore.ReadTable[json.RawMessage](path)
	if errors.Is(err, fs.ErrNotExist) {
		return orderedmap.New[json.RawMessage](), nil
	}
	return table, err
}

// TokenDTO is the API representation of a token
type TokenDTO struct {
	ChainID  int64   `json:"chain_id"`
	Address  string  `json:"address"`
	Name     *string `json:"name"`
	Ticker   *string `json:"ticker"`
	Icon     *string `json:"icon"`
	Decimals *int    `json:"decimals,omitempty"`
}

// TokenResponse is the API response for single token queries
type TokenResponse struct {
	Data TokenDTO `json:"data"`
}

// ChainDTO summarizes one loaded chain
type ChainDTO struct {
	ChainID int64 `json:"chain_id"`
	Tokens  int   `json:"tokens"`
	Names   int   `json:"names"`
	Tickers int   `json:"tickers"`
}

// ChainListResponse is the API response for the chain list
type ChainListResponse struct {
	Data []ChainDTO `json:"data"`
}

// Chains lists the loaded chains in ascending order
func (s *TokenService) Chains() *ChainListResponse {
	resp := &ChainListResponse{Data: make([]ChainDTO, 0, len(s.chains))}
	for chainID, t := range s.chains {
		resp.Data = append(resp.Data, ChainDTO{
			ChainID: chainID,
			Tokens:  t.Metadata.Len(),
			Names:   t.Names.Len(),
			Tickers: t.Tickers.Len(),
		})
	}
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].ChainID < resp.Data[j].ChainID })

	return resp
}

// GetByAddress retrieves a single token by chain and address
func (s *TokenService) GetByAddress(ctx context.Context, chainID int64, address string) (*TokenResponse, error) {
	if !ethereum.IsHexAddress(address) {
		return nil, ErrInvalidAddress
	}
	address = strings.ToLower(address)

	tables, err := s.chain(chainID)
	if err != nil {
		return nil, err
	}

	if m, ok := tables.Metadata.Get(address); ok {
		return &TokenResponse{Data: metadataToDTO(chainID, address, m)}, nil
	}

	if s.tokenRepo == nil {
		return nil, ErrTokenNotFound
	}

	// Fall back to the database
	token, err := s.tokenRepo.GetByAddress(ctx, chainID, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}

	s.logger.Debug("Token served from database", zap.Int64("chain_id", chainID), zap.String("address", address))

	return &TokenResponse{Data: tokenToDTO(token)}, nil
}

// GetByName resolves a names_to_address key, e.g. "USD Coin" or "USD Coin2"
func (s *TokenService) GetByName(ctx context.Context, chainID int64, name string) (*TokenResponse, error) {
	return s.byIndex(ctx, chainID, name, func(t *ChainTables) *orderedmap.Map[string] { return t.Names })
}

// GetByTicker resolves a tickers_to_address key
func (s *TokenService) GetByTicker(ctx context.Context, chainID int64, ticker string) (*TokenResponse, error) {
	return s.byIndex(ctx, chainID, ticker, func(t *ChainTables) *orderedmap.Map[string] { return t.Tickers })
}

func (s *TokenService) byIndex(ctx context.Context, chainID int64, key string, index func(*ChainTables) *orderedmap.Map[string]) (*TokenResponse, error) {
	tables, err := s.chain(chainID)
	if err != nil {
		return nil, err
	}

	addr, ok := index(tables).Get(key)
	if !ok || !ethereum.IsHexAddress(addr) {
		return nil, ErrTokenNotFound
	}

	if m, ok := tables.Metadata.Get(addr); ok {
		return &TokenResponse{Data: metadataToDTO(chainID, addr, m)}, nil
	}
	return s.GetByAddress(ctx, chainID, addr)
}

func (s *TokenService) chain(chainID int64) (*ChainTables, error) {
	tables, ok := s.chains[chainID]
	if !ok {
		return nil, ErrChainNotFound
	}
	return tables, nil
}

func metadataToDTO(chainID int64, address string, m entities.TokenMetadata) TokenDTO {
	return TokenDTO{
		ChainID:  chainID,
		Address:  address,
		Name:     m.Name,
		Ticker:   m.Ticker,
		Icon:     m.Icon,
		Decimals: m.Decimals,
	}
}

// tokenToDTO converts a stored token row to a DTO
func tokenToDTO(t *entities.Token) TokenDTO {
	return TokenDTO{
		ChainID:  t.ChainID,
		Address:  t.Address,
		Name:     t.Name,
		Ticker:   t.Ticker,
		Icon:     t.Icon,
		Decimals: t.Decimals,
	}
}
