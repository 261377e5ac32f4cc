package services

import (
	"fmt"
	"strings"

	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/orderedmap"
)

// DefaultIconURLTemplate takes the chain ID and the lowercase address
const DefaultIconURLTemplate = "https://assets.smold.app/api/token/%d/%s/logo-128.png"

// Tables holds the three lookup tables written for a chain
type Tables struct {
	AddressToMetadata *orderedmap.Map[entities.TokenMetadata]
	NamesToAddress    *orderedmap.Map[string]
	TickersToAddress  *orderedmap.Map[string]
}

// IconURL derives a token's icon from the template
func IconURL(template string, chainID int64, address string) string {
	if template == "" {
		template = DefaultIconURLTemplate
	}
	return fmt.Sprintf(template, chainID, strings.ToLower(address))
}

// BuildTables turns resolved metadata into the three tables, visiting
// addresses in order. The Nth name (or ticker) equal to an earlier one
// ignoring case is keyed with N appended, e.g. "USDC", "USDC2".
func BuildTables(chainID int64, iconTemplate string, meta *orderedmap.Map[entities.NameTicker]) *Tables {
	t := &Tables{
		AddressToMetadata: orderedmap.New[entities.TokenMetadata](),
		NamesToAddress:    orderedmap.New[string](),
		TickersToAddress:  orderedmap.New[string](),
	}
	names := newCollisionIndex()
	tickers := newCollisionIndex()

	meta.Each(func(addr string, nt entities.NameTicker) bool {
		addr = strings.ToLower(addr)
		icon := IconURL(iconTemplate, chainID, addr)

		t.AddressToMetadata.Set(addr, entities.TokenMetadata{
			Name:   nt.Name,
			Ticker: nt.Ticker,
			Icon:   &icon,
		})

		if key, ok := names.key(nt.Name); ok {
			t.NamesToAddress.Set(key, addr)
		}
		if key, ok := tickers.key(nt.Ticker); ok {
			t.TickersToAddress.Set(key, addr)
		}
		return true
	})

	return t
}

// collisionIndex counts case-insensitive occurrences of index keys
type collisionIndex map[string]int

func newCollisionIndex() collisionIndex {
	return make(collisionIndex)
}

// key returns the index key for s, or false when s is absent or blank
func (c collisionIndex) key(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	base := strings.TrimSpace(*s)
	if base == "" {
		return "", false
	}

	folded := strings.ToLower(base)
	c[folded]++
	if n := c[folded]; n > 1 {
		return fmt.Sprintf("%s%d", base, n), true
	}
	return base, true
}
