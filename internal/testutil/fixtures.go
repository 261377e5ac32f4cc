package testutil

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/infrastructure/coingecko"
)

// Common test addresses
const (
	USDTAddress = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	USDCAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	DAIAddress  = "0x6b175474e89094c44da98b954eedeac495271d0f"
	WETHAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	MKRAddress  = "0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2"
)

// CreateTestToken creates a test token row with default values
func CreateTestToken(opts ...TokenOption) *entities.Token {
	t := &entities.Token{
		ChainID:   1,
		Address:   USDTAddress,
		Name:      PointerTo("Tether USD"),
		Ticker:    PointerTo("USDT"),
		Icon:      PointerTo(fmt.Sprintf("https://assets.smold.app/api/token/1/%s/logo-128.png", USDTAddress)),
		Decimals:  PointerTo(6),
		CreatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

type TokenOption func(*entities.Token)

func TokenWithChainID(chainID int64) TokenOption {
	return func(t *entities.Token) {
		t.ChainID = chainID
	}
}

func TokenWithAddress(addr string) TokenOption {
	return func(t *entities.Token) {
		t.Address = addr
	}
}

func TokenWithName(name *string) TokenOption {
	return func(t *entities.Token) {
		t.Name = name
	}
}

func TokenWithTicker(ticker *string) TokenOption {
	return func(t *entities.Token) {
		t.Ticker = ticker
	}
}

func TokenWithDecimals(dec *int) TokenOption {
	return func(t *entities.Token) {
		t.Decimals = dec
	}
}

// NameTicker builds a resolved pair; empty strings become absent fields
func NameTicker(name, ticker string) entities.NameTicker {
	var nt entities.NameTicker
	if name != "" {
		nt.Name = PointerTo(name)
	}
	if ticker != "" {
		nt.Ticker = PointerTo(ticker)
	}
	return nt
}

// CreateTestMetadata creates a table entry with default values
func CreateTestMetadata(opts ...MetadataOption) entities.TokenMetadata {
	m := entities.TokenMetadata{
		Name:   PointerTo("USD Coin"),
		Ticker: PointerTo("USDC"),
		Icon:   PointerTo("https://assets.smold.app/api/token/1/" + USDCAddress + "/logo-128.png"),
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

type MetadataOption func(*entities.TokenMetadata)

func MetadataWithName(name *string) MetadataOption {
	return func(m *entities.TokenMetadata) {
		m.Name = name
	}
}

func MetadataWithTicker(ticker *string) MetadataOption {
	return func(m *entities.TokenMetadata) {
		m.Ticker = ticker
	}
}

func MetadataWithIcon(icon *string) MetadataOption {
	return func(m *entities.TokenMetadata) {
		m.Icon = icon
	}
}

func MetadataWithDecimals(dec *int) MetadataOption {
	return func(m *entities.TokenMetadata) {
		m.Decimals = dec
	}
}

// CreateIncludedToken creates a pools API token resource
func CreateIncludedToken(id, address, name, symbol string, decimals *int) coingecko.IncludedToken {
	return coingecko.IncludedToken{
		ID:   id,
		Type: "token",
		Attributes: coingecko.TokenAttributes{
			Address:  address,
			Name:     PointerTo(name),
			Symbol:   PointerTo(symbol),
			ImageURL: PointerTo("https://img.example/" + symbol + ".png"),
			Decimals: decimals,
		},
	}
}

// CreatePool creates a pool referencing two included token ids
func CreatePool(id, baseID, quoteID string) coingecko.Pool {
	return coingecko.Pool{
		ID: id,
		Relationships: coingecko.PoolRelationships{
			BaseToken:  coingecko.Relationship{Data: &coingecko.ResourceID{ID: baseID, Type: "token"}},
			QuoteToken: coingecko.Relationship{Data: &coingecko.ResourceID{ID: quoteID, Type: "token"}},
		},
	}
}

// ABIString encodes s the way a standard name()/symbol() returns it
func ABIString(s string) string {
	padded := (len(s) + 31) / 32 * 32
	return "0x" + word(32) + word(uint64(len(s))) + hex.EncodeToString(common.RightPadBytes([]byte(s), padded))
}

// Bytes32String encodes s as a right-padded bytes32 return
func Bytes32String(s string) string {
	return "0x" + hex.EncodeToString(common.RightPadBytes([]byte(s), 32))
}

func word(v uint64) string {
	return hex.EncodeToString(common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32))
}

// PointerTo returns a pointer to v
func PointerTo[T any](v T) *T {
	return &v
}
