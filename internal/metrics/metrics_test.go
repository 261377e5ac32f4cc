package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipeline_Counters(t *testing.T) {
	p := NewPipeline(prometheus.NewRegistry())

	p.ObserveRequest(OutcomeOK)
	p.ObserveRequest(OutcomeRetryableStatus)
	p.ObserveRequest(OutcomeRetryableStatus)
	p.ObserveRetry()
	p.ObserveBatchFailure()
	p.ObserveField("name", true)
	p.ObserveField("ticker", false)
	p.ObservePage("eth")
	p.ObserveMerge(MergeAdded, 3)
	p.ObserveMerge(MergeBackfilled, 0)

	if got := testutil.ToFloat64(p.RPCRequests.WithLabelValues(OutcomeRetryableStatus)); got != 2 {
		t.Errorf("expected 2 retryable requests, got %v", got)
	}
	if got := testutil.ToFloat64(p.RPCRetries); got != 1 {
		t.Errorf("expected 1 retry, got %v", got)
	}
	if got := testutil.ToFloat64(p.RPCBatchesFailed); got != 1 {
		t.Errorf("expected 1 failed batch, got %v", got)
	}
	if got := testutil.ToFloat64(p.TokensResolved.WithLabelValues("ticker", "absent")); got != 1 {
		t.Errorf("expected 1 absent ticker, got %v", got)
	}
	if got := testutil.ToFloat64(p.PoolPagesFetched.WithLabelValues("eth")); got != 1 {
		t.Errorf("expected 1 page, got %v", got)
	}
	if got := testutil.ToFloat64(p.MergeTokens.WithLabelValues(MergeAdded)); got != 3 {
		t.Errorf("expected 3 added, got %v", got)
	}
	if got := testutil.CollectAndCount(p.MergeTokens); got != 1 {
		t.Errorf("expected only the added series, got %d", got)
	}
}

func TestPipeline_NilIsNoop(t *testing.T) {
	var p *Pipeline

	p.ObserveRequest(OutcomeOK)
	p.ObserveRetry()
	p.ObserveBatchFailure()
	p.ObserveField("name", true)
	p.ObservePage("eth")
	p.ObserveMerge(MergeAdded, 1)
}

func TestPush(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	NewPipeline(reg).ObserveRetry()

	if err := Push(server.URL, "tokendata", reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotPath, "/job/tokendata") {
		t.Errorf("unexpected push path %q", gotPath)
	}
}
