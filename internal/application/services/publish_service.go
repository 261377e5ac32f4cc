package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/domain/repositories"
	"github.com/bimakw/tokendata/internal/infrastructure/ethereum"
	"github.com/bimakw/tokendata/internal/infrastructure/filestore"
)

// PublishService mirrors a chain's address_to_metadata.json into the
// token repository
type PublishService struct {
	tokenRepo repositories.TokenRepository
	output    config.OutputConfig
	logger    *zap.Logger
}

// NewPublishService creates a new publish service
func NewPublishService(tokenRepo repositories.TokenRepository, output config.OutputConfig, logger *zap.Logger) *PublishService {
	return &PublishService{
		tokenRepo: tokenRepo,
		output:    output,
		logger:    logger,
	}
}

// PublishResult reports a publish run
type PublishResult struct {
	ChainID  int64
	Path     string
	Upserted int
	Skipped  int
	// Stored is the chain's row count after the run
	Stored int64
}

// Run upserts every entry of the chain's metadata table. Entries that are
// not JSON objects or whose key is not an address are skipped.
func (s *PublishService) Run(ctx context.Context, chainID int64) (*PublishResult, error) {
	path := filestore.TablePath(s.output.Root, chainID, filestore.AddressToMetadataFile)

	table, err := filestore.ReadTable[json.RawMessage](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata table: %w", err)
	}

	result := &PublishResult{ChainID: chainID, Path: path}

	for _, addr := range table.Keys() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !ethereum.IsValidAddress(addr) {
			s.logger.Warn("Skipping invalid address", zap.String("address", addr))
			result.Skipped++
			continue
		}

		raw, _ := table.Get(addr)
		var meta entities.TokenMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			s.logger.Warn("Skipping malformed entry", zap.String("address", addr), zap.Error(err))
			result.Skipped++
			continue
		}

		if err := s.tokenRepo.Upsert(ctx, entities.TokenFromMetadata(chainID, addr, meta)); err != nil {
			return result, fmt.Errorf("failed to upsert %s: %w", addr, err)
		}
		result.Upserted++
	}

	stored, err := s.tokenRepo.CountByChain(ctx, chainID)
	if err != nil {
		return result, fmt.Errorf("failed to count tokens: %w", err)
	}
	result.Stored = stored

	s.logger.Info("Published token metadata",
		zap.Int64("chain_id", chainID),
		zap.String("path", path),
		zap.Int("upserted", result.Upserted),
		zap.Int("skipped", result.Skipped),
		zap.Int64("stored", stored),
	)

	return result, nil
}
