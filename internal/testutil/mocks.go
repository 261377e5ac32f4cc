package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/domain/repositories"
	"github.com/bimakw/tokendata/internal/infrastructure/coingecko"
)

type MockCall struct {
	Method string
	Args   []interface{}
}

func tokenKey(chainID int64, address string) string {
	return fmt.Sprintf("%d:%s", chainID, address)
}

// MockTokenRepository is a mock implementation of TokenRepository
type MockTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*entities.Token

	// Function hooks
	GetByAddressFunc func(ctx context.Context, chainID int64, address string) (*entities.Token, error)
	CountByChainFunc func(ctx context.Context, chainID int64) (int64, error)
	UpsertFunc       func(ctx context.Context, token *entities.Token) error

	Calls []MockCall
}

func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{
		tokens: make(map[string]*entities.Token),
		Calls:  make([]MockCall, 0),
	}
}

func (m *MockTokenRepository) GetByAddress(ctx context.Context, chainID int64, address string) (*entities.Token, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GetByAddress", Args: []interface{}{chainID, address}})
	m.mu.Unlock()

	if m.GetByAddressFunc != nil {
		return m.GetByAddressFunc(ctx, chainID, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if token, ok := m.tokens[tokenKey(chainID, address)]; ok {
		return token, nil
	}
	return nil, nil
}

func (m *MockTokenRepository) CountByChain(ctx context.Context, chainID int64) (int64, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "CountByChain", Args: []interface{}{chainID}})
	m.mu.Unlock()

	if m.CountByChainFunc != nil {
		return m.CountByChainFunc(ctx, chainID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, t := range m.tokens {
		if t.ChainID == chainID {
			count++
		}
	}
	return count, nil
}

// Upsert stores token, keeping stored fields where token has nil ones
func (m *MockTokenRepository) Upsert(ctx context.Context, token *entities.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Method: "Upsert", Args: []interface{}{token}})

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, token)
	}

	key := tokenKey(token.ChainID, token.Address)
	stored := *token
	if prev, ok := m.tokens[key]; ok {
		if stored.Name == nil {
			stored.Name = prev.Name
		}
		if stored.Ticker == nil {
			stored.Ticker = prev.Ticker
		}
		if stored.Icon == nil {
			stored.Icon = prev.Icon
		}
		if stored.Decimals == nil {
			stored.Decimals = prev.Decimals
		}
	}
	m.tokens[key] = &stored
	return nil
}

// AddToken adds a token to the mock store
func (m *MockTokenRepository) AddToken(token *entities.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenKey(token.ChainID, token.Address)] = token
}

// Reset clears all stored data and calls
func (m *MockTokenRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = make(map[string]*entities.Token)
	m.Calls = make([]MockCall, 0)
}

// MockMetadataCache is a mock implementation of MetadataCache
type MockMetadataCache struct {
	mu      sync.RWMutex
	entries map[string]entities.NameTicker

	GetFunc func(ctx context.Context, chainID int64, address string) (entities.NameTicker, error)
	SetFunc func(ctx context.Context, chainID int64, address string, value entities.NameTicker) error

	Calls []MockCall
}

func NewMockMetadataCache() *MockMetadataCache {
	return &MockMetadataCache{
		entries: make(map[string]entities.NameTicker),
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockMetadataCache) Get(ctx context.Context, chainID int64, address string) (entities.NameTicker, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Get", Args: []interface{}{chainID, address}})
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, chainID, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[tokenKey(chainID, address)]
	if !ok {
		return entities.NameTicker{}, repositories.ErrCacheMiss
	}
	return v, nil
}

func (m *MockMetadataCache) Set(ctx context.Context, chainID int64, address string, value entities.NameTicker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Method: "Set", Args: []interface{}{chainID, address, value}})

	if m.SetFunc != nil {
		return m.SetFunc(ctx, chainID, address, value)
	}

	m.entries[tokenKey(chainID, address)] = value
	return nil
}

// Put seeds the cache without recording a call
func (m *MockMetadataCache) Put(chainID int64, address string, value entities.NameTicker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[tokenKey(chainID, address)] = value
}

// Len returns the number of cached entries
func (m *MockMetadataCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// MockPoolsAPI serves scripted pages of the top-pools listing
type MockPoolsAPI struct {
	mu    sync.Mutex
	pages map[string][]*coingecko.PoolsPage

	TopPoolsFunc func(ctx context.Context, network string, page int) (*coingecko.PoolsPage, error)

	Calls []MockCall
}

func NewMockPoolsAPI() *MockPoolsAPI {
	return &MockPoolsAPI{
		pages: make(map[string][]*coingecko.PoolsPage),
		Calls: make([]MockCall, 0),
	}
}

// AddPage appends the next page for network
func (m *MockPoolsAPI) AddPage(network string, page *coingecko.PoolsPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[network] = append(m.pages[network], page)
}

// TopPools returns the scripted page, or an empty page past the end
func (m *MockPoolsAPI) TopPools(ctx context.Context, network string, page int) (*coingecko.PoolsPage, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "TopPools", Args: []interface{}{network, page}})
	m.mu.Unlock()

	if m.TopPoolsFunc != nil {
		return m.TopPoolsFunc(ctx, network, page)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pages := m.pages[network]
	if page < 1 || page > len(pages) {
		return &coingecko.PoolsPage{}, nil
	}
	return pages[page-1], nil
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}
