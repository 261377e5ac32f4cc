package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/infrastructure/coingecko"
	"github.com/bimakw/tokendata/internal/infrastructure/filestore"
	"github.com/bimakw/tokendata/internal/metrics"
	"github.com/bimakw/tokendata/internal/orderedmap"
)

const unknownTicker = "UNKNOWN"

// PoolsAPI lists the top pools of a network, one page at a time
type PoolsAPI interface {
	TopPools(ctx context.Context, network string, page int) (*coingecko.PoolsPage, error)
}

// HarvestService collects token metadata referenced by top pools and merges
// it into each chain's address_to_metadata.json
type HarvestService struct {
	api     PoolsAPI
	pools   config.PoolsConfig
	output  config.OutputConfig
	metrics *metrics.Pipeline
	logger  *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewHarvestService creates a new harvest service
func NewHarvestService(
	api PoolsAPI,
	pools config.PoolsConfig,
	output config.OutputConfig,
	m *metrics.Pipeline,
	logger *zap.Logger,
) *HarvestService {
	return &HarvestService{
		api:     api,
		pools:   pools,
		output:  output,
		metrics: m,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// MergeResult counts what a merge did
type MergeResult struct {
	Seen       int
	Added      int
	Backfilled int
	Unchanged  int
}

// NetworkSummary reports one network's harvest
type NetworkSummary struct {
	Network string
	ChainID int64
	Path    string
	MergeResult
}

// HarvestReport is the outcome of a run over several networks
type HarvestReport struct {
	Networks []NetworkSummary
	// Tickers lists every base/quote ticker seen, sorted and unique
	Tickers []string
}

// Run harvests each network in order and merges into its chain's table.
// A pools API error aborts the run; tables already merged stay written.
func (s *HarvestService) Run(ctx context.Context, networks []config.Network) (*HarvestReport, error) {
	report := &HarvestReport{}
	allTickers := make(map[string]struct{})

	for _, network := range networks {
		s.logger.Info("Fetching top pools tokens", zap.String("network", network.Slug))

		tokens, tickers, err := s.Harvest(ctx, network.Slug)
		if err != nil {
			return report, fmt.Errorf("network %s: %w", network.Slug, err)
		}
		for _, t := range tickers {
			allTickers[t] = struct{}{}
		}

		path := filestore.TablePath(s.output.Root, network.ChainID, filestore.AddressToMetadataFile)
		table := s.loadExisting(path)

		result, err := MergeAdditive(table, tokens)
		if err != nil {
			return report, fmt.Errorf("network %s: %w", network.Slug, err)
		}

		if err := filestore.WriteJSON(path, table, filestore.WriteOptions{Pretty: true, SortKeys: true}); err != nil {
			return report, err
		}

		s.metrics.ObserveMerge(metrics.MergeAdded, result.Added)
		s.metrics.ObserveMerge(metrics.MergeBackfilled, result.Backfilled)
		s.metrics.ObserveMerge(metrics.MergeUnchanged, result.Unchanged)

		s.logger.Info("Merged network tokens",
			zap.String("network", network.Slug),
			zap.Int64("chain_id", network.ChainID),
			zap.Int("seen", result.Seen),
			zap.Int("added", result.Added),
			zap.Int("backfilled", result.Backfilled),
			zap.String("path", path),
		)

		report.Networks = append(report.Networks, NetworkSummary{
			Network:     network.Slug,
			ChainID:     network.ChainID,
			Path:        path,
			MergeResult: result,
		})
	}

	report.Tickers = make([]string, 0, len(allTickers))
	for t := range allTickers {
		report.Tickers = append(report.Tickers, t)
	}
	sort.Strings(report.Tickers)

	s.logger.Info("Processed tickers", zap.Strings("tickers", report.Tickers))

	return report, nil
}

// Harvest pages through the top pools of network. Tokens are keyed by
// lowercase address; a token seen again later in the run replaces the
// earlier record. It also returns the sorted tickers of every pool's base
// and quote token.
func (s *HarvestService) Harvest(ctx context.Context, network string) (*orderedmap.Map[entities.TokenMetadata], []string, error) {
	tokens := orderedmap.New[entities.TokenMetadata]()
	tickers := make(map[string]struct{})

	totalPages := 0
	if s.pools.PerPage > 0 {
		totalPages = (s.pools.MaxPools + s.pools.PerPage - 1) / s.pools.PerPage
	}

	for page := 1; page <= totalPages; page++ {
		resp, err := s.api.TopPools(ctx, network, page)
		if err != nil {
			return nil, nil, err
		}
		s.metrics.ObservePage(network)

		index := make(map[string]coingecko.TokenAttributes, len(resp.Included))
		for _, inc := range resp.Included {
			attr := inc.Attributes
			addr := strings.ToLower(attr.Address)
			if addr == "" {
				continue
			}

			tokens.Set(addr, entities.TokenMetadata{
				Name:     attr.Name,
				Ticker:   attr.Symbol,
				Icon:     attr.ImageURL,
				Decimals: attr.Decimals,
			})

			if inc.ID != "" {
				index[inc.ID] = attr
			}
		}

		for _, pool := range resp.Data {
			base := symbolOf(index, pool.Relationships.BaseToken.RefID())
			quote := symbolOf(index, pool.Relationships.QuoteToken.RefID())

			s.logger.Debug("Pool",
				zap.String("network", network),
				zap.String("pair", displaySymbol(base)+" / "+displaySymbol(quote)),
			)

			if base != "" {
				tickers[base] = struct{}{}
			}
			if quote != "" {
				tickers[quote] = struct{}{}
			}
		}

		if s.pools.DelayEvery > 0 && page%s.pools.DelayEvery == 0 {
			if err := s.sleep(ctx, s.pools.Delay); err != nil {
				return nil, nil, err
			}
		}
	}

	sorted := make([]string, 0, len(tickers))
	for t := range tickers {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	return tokens, sorted, nil
}

func symbolOf(index map[string]coingecko.TokenAttributes, id string) string {
	attr, ok := index[id]
	if !ok || attr.Symbol == nil {
		return ""
	}
	return *attr.Symbol
}

func displaySymbol(s string) string {
	if s == "" {
		return unknownTicker
	}
	return s
}

// loadExisting reads the on-disk table; a missing or unreadable file
// counts as empty
func (s *HarvestService) loadExisting(path string) *orderedmap.Map[json.RawMessage] {
	table, err := filestore.ReadTable[json.RawMessage](path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Ignoring unreadable table", zap.String("path", path), zap.Error(err))
		}
		return orderedmap.New[json.RawMessage]()
	}
	return table
}

// MergeAdditive merges harvested tokens into existing without overwriting.
// An address already present only gains decimals, and only when its entry
// is an object whose decimals is missing or null. New addresses are inserted
// with every harvested field.
func MergeAdditive(existing *orderedmap.Map[json.RawMessage], harvested *orderedmap.Map[entities.TokenMetadata]) (MergeResult, error) {
	result := MergeResult{Seen: harvested.Len()}
	var mergeErr error

	harvested.Each(func(addr string, meta entities.TokenMetadata) bool {
		raw, ok := existing.Get(addr)
		if !ok {
			data, err := json.Marshal(meta)
			if err != nil {
				mergeErr = fmt.Errorf("failed to encode %s: %w", addr, err)
				return false
			}
			existing.Set(addr, data)
			result.Added++
			return true
		}

		entry := orderedmap.New[json.RawMessage]()
		if meta.Decimals == nil || json.Unmarshal(raw, entry) != nil {
			result.Unchanged++
			return true
		}
		if dec, has := entry.Get("decimals"); has && !bytes.Equal(bytes.TrimSpace(dec), []byte("null")) {
			result.Unchanged++
			return true
		}

		entry.Set("decimals", json.RawMessage(fmt.Sprintf("%d", *meta.Decimals)))
		data, err := json.Marshal(entry)
		if err != nil {
			mergeErr = fmt.Errorf("failed to encode %s: %w", addr, err)
			return false
		}
		existing.Set(addr, data)
		result.Backfilled++
		return true
	})

	return result, mergeErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
