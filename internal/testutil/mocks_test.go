package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/domain/repositories"
	"github.com/bimakw/tokendata/internal/infrastructure/ethereum"
)

func TestMockTokenRepository_Upsert(t *testing.T) {
	repo := NewMockTokenRepository()
	ctx := context.Background()

	repo.AddToken(CreateTestToken())

	// Nil fields keep stored values
	update := CreateTestToken(TokenWithName(nil), TokenWithDecimals(PointerTo(18)))
	if err := repo.Upsert(ctx, update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := repo.GetByAddress(ctx, 1, USDTAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == nil || token.Name == nil || *token.Name != "Tether USD" {
		t.Errorf("expected name to be kept, got %+v", token)
	}
	if token.Decimals == nil || *token.Decimals != 18 {
		t.Errorf("expected decimals 18, got %v", token.Decimals)
	}

	// Same address on another chain is a different row
	if err := repo.Upsert(ctx, CreateTestToken(TokenWithChainID(8453))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count, _ := repo.CountByChain(ctx, 1)
	if count != 1 {
		t.Errorf("expected 1 token on chain 1, got %d", count)
	}

	if len(repo.Calls) != 4 {
		t.Errorf("expected 4 calls, got %d", len(repo.Calls))
	}
}

func TestMockTokenRepository_Hooks(t *testing.T) {
	repo := NewMockTokenRepository()
	repo.UpsertFunc = func(ctx context.Context, token *entities.Token) error {
		return errors.New("boom")
	}

	if err := repo.Upsert(context.Background(), CreateTestToken()); err == nil {
		t.Error("expected hook error")
	}
}

func TestMockMetadataCache(t *testing.T) {
	c := NewMockMetadataCache()
	ctx := context.Background()

	if _, err := c.Get(ctx, 1, USDCAddress); !errors.Is(err, repositories.ErrCacheMiss) {
		t.Errorf("expected miss, got %v", err)
	}

	if err := c.Set(ctx, 1, USDCAddress, NameTicker("USD Coin", "USDC")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := c.Get(ctx, 1, USDCAddress)
	if err != nil || v.Ticker == nil || *v.Ticker != "USDC" {
		t.Errorf("unexpected cached value %+v, %v", v, err)
	}
	if _, err := c.Get(ctx, 8453, USDCAddress); !errors.Is(err, repositories.ErrCacheMiss) {
		t.Error("cache must be scoped by chain")
	}
}

func TestMockPoolsAPI(t *testing.T) {
	api := NewMockPoolsAPI()
	ctx := context.Background()

	api.AddPage("eth", nil)
	page, err := api.TopPools(ctx, "eth", 5)
	if err != nil || page == nil || len(page.Data) != 0 {
		t.Errorf("expected empty page past the end, got %+v, %v", page, err)
	}
	if len(api.Calls) != 1 {
		t.Errorf("expected 1 call, got %d", len(api.Calls))
	}
}

func TestMockHealthChecker(t *testing.T) {
	checker := NewMockHealthChecker(true)
	ctx := context.Background()

	if err := checker.HealthCheck(ctx); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}

	checker.SetHealthy(false)
	if err := checker.HealthCheck(ctx); err == nil {
		t.Error("expected unhealthy")
	}
}

func TestABIEncoders(t *testing.T) {
	tests := []string{"USD Coin", "Wrapped Ether", "Maker"}

	for _, s := range tests {
		if got := ethereum.DecodeStringResult(ABIString(s)); got == nil || *got != s {
			t.Errorf("ABIString(%q) decoded to %v", s, got)
		}
		if got := ethereum.DecodeStringResult(Bytes32String(s)); got == nil || *got != s {
			t.Errorf("Bytes32String(%q) decoded to %v", s, got)
		}
	}
}
