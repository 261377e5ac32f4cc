package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
)

// APIKeyHeader carries the pro API key on every request
const APIKeyHeader = "x-cg-pro-api-key"

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pools api http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// PoolsPage is one page of the top-pools listing
type PoolsPage struct {
	Data     []Pool          `json:"data"`
	Included []IncludedToken `json:"included"`
}

// Pool is a trading pool with references to its tokens
type Pool struct {
	ID            string            `json:"id"`
	Relationships PoolRelationships `json:"relationships"`
}

// PoolRelationships links a pool to entries of the included list
type PoolRelationships struct {
	BaseToken  Relationship `json:"base_token"`
	QuoteToken Relationship `json:"quote_token"`
}

// Relationship is a JSON:API to-one relationship
type Relationship struct {
	Data *ResourceID `json:"data"`
}

// ResourceID identifies an included resource
type ResourceID struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// RefID returns the referenced id, or "" when the relationship is empty
func (r Relationship) RefID() string {
	if r.Data == nil {
		return ""
	}
	return r.Data.ID
}

// IncludedToken is a token resource from the included list
type IncludedToken struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes TokenAttributes `json:"attributes"`
}

// TokenAttributes holds the token fields the harvester keeps
type TokenAttributes struct {
	Address  string  `json:"address"`
	Name     *string `json:"name"`
	Symbol   *string `json:"symbol"`
	ImageURL *string `json:"image_url"`
	Decimals *int    `json:"decimals"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads the onchain top-pools listing
type Client struct {
	hc     httpDoer
	config config.PoolsConfig
	logger *zap.Logger
}

// NewClient creates a new pools API client
func NewClient(cfg config.PoolsConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pools api key is required")
	}

	return &Client{
		hc:     &http.Client{Timeout: cfg.RequestTimeout},
		config: cfg,
		logger: logger,
	}, nil
}

// TopPools fetches one page of pools on network sorted by 24h volume, with
// base and quote tokens included. Pages start at 1. Non-2xx responses are
// returned as *APIError without retrying.
func (c *Client) TopPools(ctx context.Context, network string, page int) (*PoolsPage, error) {
	u, err := url.Parse(strings.TrimRight(c.config.APIBase, "/") + "/networks/" + url.PathEscape(network) + "/pools")
	if err != nil {
		return nil, fmt.Errorf("invalid pools api base: %w", err)
	}
	q := u.Query()
	q.Set("include", "base_token,quote_token")
	q.Set("page", strconv.Itoa(page))
	q.Set("sort", "h24_volume_usd_desc")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(APIKeyHeader, c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching pools page",
		zap.String("network", network),
		zap.Int("page", page),
	)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools page %d: %w", page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pools page %d: %w", page, err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out PoolsPage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode pools page %d: %w", page, err)
	}

	return &out, nil
}
