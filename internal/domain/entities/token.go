package entities

import (
	"strings"
	"time"
)

// TokenMetadata is one entry of a chain's address_to_metadata.json table.
// Name, Ticker and Icon are written as null when absent; Decimals is only
// present for tokens harvested from the pools API.
type TokenMetadata struct {
	Name     *string `json:"name"`
	Ticker   *string `json:"ticker"`
	Icon     *string `json:"icon"`
	Decimals *int    `json:"decimals,omitempty"`
}

// NameTicker holds the two strings resolved on-chain for a token
type NameTicker struct {
	Name   *string `json:"name"`
	Ticker *string `json:"ticker"`
}

// Empty reports whether neither field was resolved
func (nt NameTicker) Empty() bool {
	return nt.Name == nil && nt.Ticker == nil
}

// Complete reports whether both fields were resolved
func (nt NameTicker) Complete() bool {
	return nt.Name != nil && nt.Ticker != nil
}

// Token is a token metadata row as stored in PostgreSQL
type Token struct {
	ChainID   int64     `db:"chain_id"`
	Address   string    `db:"address"`
	Name      *string   `db:"name"`
	Ticker    *string   `db:"ticker"`
	Icon      *string   `db:"icon"`
	Decimals  *int      `db:"decimals"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TokenFromMetadata builds a database row from a table entry
func TokenFromMetadata(chainID int64, address string, m TokenMetadata) *Token {
	return &Token{
		ChainID:  chainID,
		Address:  strings.ToLower(address),
		Name:     m.Name,
		Ticker:   m.Ticker,
		Icon:     m.Icon,
		Decimals: m.Decimals,
	}
}
