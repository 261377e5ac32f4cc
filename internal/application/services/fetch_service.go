package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/infrastructure/filestore"
	"github.com/bimakw/tokendata/internal/orderedmap"
)

// MetadataResolver resolves on-chain name/ticker pairs for addresses
type MetadataResolver interface {
	FetchAll(ctx context.Context, chainID int64, addresses []string) (*orderedmap.Map[entities.NameTicker], error)
}

// FetchService builds a chain's lookup tables from an address list
type FetchService struct {
	resolver MetadataResolver
	output   config.OutputConfig
	logger   *zap.Logger
}

// NewFetchService creates a new fetch service
func NewFetchService(resolver MetadataResolver, output config.OutputConfig, logger *zap.Logger) *FetchService {
	return &FetchService{
		resolver: resolver,
		output:   output,
		logger:   logger,
	}
}

// FetchResult describes the files written by a fetch run
type FetchResult struct {
	ChainID  int64
	Dir      string
	Files    []string
	Tokens   int
	Names    int
	Tickers  int
	Resolved int
}

// Run loads addressFile, resolves every address and overwrites the three
// tables under <root>/<chainID>. An empty address list fails with
// filestore.ErrNoAddresses before any network call.
func (s *FetchService) Run(ctx context.Context, chainID int64, addressFile string) (*FetchResult, error) {
	addresses, err := filestore.LoadAddresses(addressFile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fetching token metadata",
		zap.Int64("chain_id", chainID),
		zap.Int("addresses", len(addresses)),
	)

	meta, err := s.resolver.FetchAll(ctx, chainID, addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}

	tables := BuildTables(chainID, s.output.IconURLTemplate, meta)

	result := &FetchResult{
		ChainID: chainID,
		Dir:     filestore.ChainDir(s.output.Root, chainID),
		Tokens:  tables.AddressToMetadata.Len(),
		Names:   tables.NamesToAddress.Len(),
		Tickers: tables.TickersToAddress.Len(),
	}
	meta.Each(func(_ string, nt entities.NameTicker) bool {
		if !nt.Empty() {
			result.Resolved++
		}
		return true
	})

	opts := filestore.WriteOptions{Pretty: s.output.Pretty}
	outputs := []struct {
		file string
		data any
	}{
		{filestore.AddressToMetadataFile, tables.AddressToMetadata},
		{filestore.NamesToAddressFile, tables.NamesToAddress},
		{filestore.TickersToAddressFile, tables.TickersToAddress},
	}
	for _, out := range outputs {
		path := filestore.TablePath(s.output.Root, chainID, out.file)
		if err := filestore.WriteJSON(path, out.data, opts); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, path)
	}

	s.logger.Info("Wrote token tables",
		zap.String("dir", result.Dir),
		zap.Strings("files", result.Files),
		zap.Int("tokens", result.Tokens),
		zap.Int("resolved", result.Resolved),
		zap.Int("names", result.Names),
		zap.Int("tickers", result.Tickers),
	)

	return result, nil
}
