package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/metrics"
)

// Call is a single eth_call against the latest block
type Call struct {
	ID   int64
	To   string
	Data string
}

// Reply is one entry of a JSON-RPC batch response
type Reply struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// HasError reports whether the entry carried an "error" member
func (r Reply) HasError() bool {
	return len(r.Error) > 0
}

// ResultHex returns the result as a hex string, or "" if it is not a string
func (r Reply) ResultHex() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return ""
	}
	return s
}

// HTTPError is returned for non-2xx responses
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string

	retryAfter string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("rpc http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Retryable reports whether the status is worth retrying (429 or 5xx)
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode < 600)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type callArgs struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BatchClient posts JSON-RPC batches and retries transient failures with
// capped exponential backoff and full jitter.
type BatchClient struct {
	hc      httpDoer
	config  config.RPCConfig
	metrics *metrics.Pipeline
	logger  *zap.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(d time.Duration) time.Duration
}

// NewBatchClient creates a new batch client for cfg.URL
func NewBatchClient(cfg config.RPCConfig, m *metrics.Pipeline, logger *zap.Logger) (*BatchClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	return &BatchClient{
		hc:      &http.Client{Timeout: cfg.RequestTimeout},
		config:  cfg,
		metrics: m,
		logger:  logger,
		sleep:   sleepContext,
		jitter:  fullJitter,
	}, nil
}

// CallBatch executes calls as one JSON-RPC batch. Replies are returned sorted
// by ID because servers need not preserve batch order.
//
// Connection failures, timeouts, 429 and 5xx are retried up to MaxRetries
// times; the last error is returned once retries are exhausted. Any other
// non-2xx status is returned immediately.
func (c *BatchClient) CallBatch(ctx context.Context, calls []Call) ([]Reply, error) {
	body, err := json.Marshal(buildRequests(calls))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	attempt := 0
	backoff := c.config.BackoffInitial

	for {
		replies, err := c.post(ctx, body)
		if err == nil {
			c.metrics.ObserveRequest(metrics.OutcomeOK)
			return replies, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		wait := backoff
		httpErr, isHTTP := err.(*HTTPError)
		switch {
		case isHTTP && !httpErr.Retryable():
			c.metrics.ObserveRequest(metrics.OutcomeFatalStatus)
			return nil, err
		case isHTTP:
			c.metrics.ObserveRequest(metrics.OutcomeRetryableStatus)
			if httpErr.StatusCode == http.StatusTooManyRequests {
				wait = parseRetryAfter(httpErr.retryAfter, backoff, c.config.BackoffMax)
			}
		default:
			c.metrics.ObserveRequest(metrics.OutcomeTransportError)
		}

		if attempt >= c.config.MaxRetries {
			return nil, err
		}
		attempt++

		if wait > c.config.BackoffMax {
			wait = c.config.BackoffMax
		}
		wait = c.jitter(wait)

		c.logger.Warn("RPC batch failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.config.MaxRetries),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		c.metrics.ObserveRetry()

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}

		backoff *= 2
		if backoff > c.config.BackoffMax {
			backoff = c.config.BackoffMax
		}
	}
}

// post performs one HTTP attempt
func (c *BatchClient) post(ctx context.Context, body []byte) ([]Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(data),
			retryAfter: resp.Header.Get("Retry-After"),
		}
	}

	return decodeReplies(data)
}

// decodeReplies accepts either a batch array or a single response object
func decodeReplies(data []byte) ([]Reply, error) {
	data = bytes.TrimSpace(data)

	var replies []Reply
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &replies); err != nil {
			return nil, fmt.Errorf("failed to decode batch response: %w", err)
		}
	} else {
		var single Reply
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		replies = []Reply{single}
	}

	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].ID < replies[j].ID
	})
	return replies, nil
}

func buildRequests(calls []Call) []rpcRequest {
	reqs := make([]rpcRequest, len(calls))
	for i, call := range calls {
		reqs[i] = rpcRequest{
			JSONRPC: "2.0",
			ID:      call.ID,
			Method:  "eth_call",
			Params:  []interface{}{callArgs{To: call.To, Data: call.Data}, "latest"},
		}
	}
	return reqs
}

// parseRetryAfter reads a Retry-After header given in seconds, capped at limit
func parseRetryAfter(header string, fallback, limit time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(header), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return fallback
	}
	if secs < 0 {
		secs = 0
	}
	if secs >= limit.Seconds() {
		return limit
	}
	return time.Duration(secs * float64(time.Second))
}

// fullJitter picks a uniform duration in [0, d)
func fullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
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
