/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package ethereum

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/domain/repositories"
	"github.com/bimakw/tokendata/internal/metrics"
	"github.com/bimakw/tokendata/internal/orderedmap"
)

// ERC-20 function selectors (first 4 bytes of keccak256 hash)
const (
	SelectorName   = "0x06fdde03"
	SelectorSymbol = "0x95d89b41"
)

// DefaultBatchSize is used when no positive batch size is configured
const DefaultBatchSize = 50

// Field identifies which string a call resolves
type Field int

const (
	FieldName Field = iota
	FieldTicker
)

func (f Field) String() string {
	if f == FieldName {
		return "name"
	}
	return "ticker"
}

// CallRef maps a request id back to its token and field
type CallRef struct {
	Address string
	Field   Field
}

// BatchCaller executes one JSON-RPC batch
type BatchCaller interface {
	CallBatch(ctx context.Context, calls []Call) ([]Reply, error)
}

// MetadataFetcher resolves ERC-20 name() and symbol() for many tokens using
// batched eth_call requests.
type MetadataFetcher struct {
	caller  BatchCaller
	cache   repositories.MetadataCache
	config  config.RPCConfig
	metrics *metrics.Pipeline
	logger  *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewMetadataFetcher creates a new metadata fetcher. cache may be nil.
func NewMetadataFetcher(
	caller BatchCaller,
	cache repositories.MetadataCache,
	cfg config.RPCConfig,
	m *metrics.Pipeline,
	logger *zap.Logger,
) *MetadataFetcher {
	return &MetadataFetcher{
		caller:  caller,
		cache:   cache,
		config:  cfg,
		metrics: m,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// FetchAll resolves every address. The result holds one entry per distinct
// input address: malformed addresses first, then well-formed ones in input
// order. Fields that could not be resolved are nil.
//
// A batch whose request fails after retries leaves its tokens absent and the
// run continues. Only context cancellation aborts.
func (f *MetadataFetcher) FetchAll(ctx context.Context, chainID int64, addresses []string) (*orderedmap.Map[entities.NameTicker], error) {
	out := orderedmap.New[entities.NameTicker]()

	var valid []string
	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		addr = NormalizeAddress(addr)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		if !IsValidAddress(addr) {
			f.logger.Debug("Skipping malformed address", zap.String("address", addr))
			out.Set(addr, entities.NameTicker{})
			continue
		}
		valid = append(valid, addr)
	}

	// Reserve positions so cache hits keep input order
	for _, addr := range valid {
		out.Set(addr, entities.NameTicker{})
	}

	pending := f.lookupCache(ctx, chainID, valid, out)

	batches := SplitAddresses(pending, f.config.BatchSize)
	nextID := int64(1)

	for i, group := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var calls []Call
		var refs map[int64]CallRef
		calls, refs, nextID = BuildBatch(group, nextID)

		replies, err := f.caller.CallBatch(ctx, calls)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("Batch failed, recording tokens as absent",
				zap.Int("batch", i+1),
				zap.Int("batches", len(batches)),
				zap.Int("tokens", len(group)),
				zap.Error(err),
			)
			f.metrics.ObserveBatchFailure()
		} else {
			f.applyReplies(replies, refs, out)
		}

		for _, addr := range group {
			v, _ := out.Get(addr)
			f.metrics.ObserveField(FieldName.String(), v.Name != nil)
			f.metrics.ObserveField(FieldTicker.String(), v.Ticker != nil)
			f.storeCache(ctx, chainID, addr, v)
		}

		f.logger.Debug("Batch completed",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
		)

		if i < len(batches)-1 && f.config.BatchSleep > 0 {
			if err := f.sleep(ctx, f.config.BatchSleep); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

func (f *MetadataFetcher) applyReplies(replies []Reply, refs map[int64]CallRef, out *orderedmap.Map[entities.NameTicker]) {
	for _, reply := range replies {
		ref, ok := refs[reply.ID]
		if !ok {
			f.logger.Debug("Ignoring reply with unknown id", zap.Int64("id", reply.ID))
			continue
		}
		if reply.HasError() {
			f.logger.Debug("Call returned an error",
				zap.String("address", ref.Address),
				zap.Stringer("field", ref.Field),
				zap.ByteString("error", reply.Error),
			)
			continue
		}

		decoded := DecodeStringResult(reply.ResultHex())
		v, _ := out.Get(ref.Address)
		switch ref.Field {
		case FieldName:
			v.Name = decoded
		case FieldTicker:
			v.Ticker = decoded
		}
		out.Set(ref.Address, v)
	}
}

// lookupCache fills cache hits into out and returns the addresses still to fetch
func (f *MetadataFetcher) lookupCache(ctx context.Context, chainID int64, addrs []string, out *orderedmap.Map[entities.NameTicker]) []string {
	if f.cache == nil {
		return addrs
	}

	pending := make([]string, 0, len(addrs))
	hits := 0
	for _, addr := range addrs {
		v, err := f.cache.Get(ctx, chainID, addr)
		if err != nil {
			if !errors.Is(err, repositories.ErrCacheMiss) {
				f.logger.Warn("Cache lookup failed", zap.String("address", addr), zap.Error(err))
			}
			pending = append(pending, addr)
			continue
		}
		out.Set(addr, v)
		hits++
	}

	if hits > 0 {
		f.logger.Info("Resolved tokens from cache", zap.Int("hits", hits), zap.Int("pending", len(pending)))
	}
	return pending
}

// storeCache keeps only fully resolved tokens so a missing field is retried
// on the next run
func (f *MetadataFetcher) storeCache(ctx context.Context, chainID int64, addr string, v entities.NameTicker) {
	if f.cache == nil || !v.Complete() {
		return
	}
	if err := f.cache.Set(ctx, chainID, addr, v); err != nil {
		f.logger.Warn("Failed to cache token", zap.String("address", addr), zap.Error(err))
	}
}

// SplitAddresses splits addrs into consecutive groups of at most size
func SplitAddresses(addrs []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var groups [][]string
	for start := 0; start < len(addrs); start += size {
		end := start + size
		if end > len(addrs) {
			end = len(addrs)
		}
		groups = append(groups, addrs[start:end])
	}

	return groups
}

// BuildBatch creates a name() and a symbol() call per address, numbering
// requests from nextID. It returns the calls, the id lookup, and the next
// unused id so ids stay unique across a whole run.
func BuildBatch(group []string, nextID int64) ([]Call, map[int64]CallRef, int64) {
	calls := make([]Call, 0, 2*len(group))
	refs := make(map[int64]CallRef, 2*len(group))

	for _, addr := range group {
		for _, sel := range []struct {
			field Field
			data  string
		}{
			{FieldName, SelectorName},
			{FieldTicker, SelectorSymbol},
		} {
			calls = append(calls, Call{ID: nextID, To: addr, Data: sel.data})
			refs[nextID] = CallRef{Address: addr, Field: sel.field}
			nextID++
		}
	}

	return calls, refs, nextID
}
