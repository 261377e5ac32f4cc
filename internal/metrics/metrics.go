package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// RPC request outcomes
const (
	OutcomeOK              = "ok"
	OutcomeRetryableStatus = "retryable_status"
	OutcomeTransportError  = "transport_error"
	OutcomeFatalStatus     = "fatal_status"
)

// Merge outcomes
const (
	MergeAdded      = "added"
	MergeBackfilled = "backfilled"
	MergeUnchanged  = "unchanged"
)

// Pipeline holds Prometheus metrics for fetch and harvest runs.
// A nil *Pipeline is valid and records nothing.
type Pipeline struct {
	RPCRequests      *prometheus.CounterVec
	RPCRetries       prometheus.Counter
	RPCBatchesFailed prometheus.Counter
	TokensResolved   *prometheus.CounterVec
	PoolPagesFetched *prometheus.CounterVec
	MergeTokens      *prometheus.CounterVec
}

// NewPipeline creates pipeline metrics registered on reg
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)

	return &Pipeline{
		RPCRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tokendata_rpc_requests_total",
			Help: "JSON-RPC batch HTTP requests by outcome",
		}, []string{"outcome"}),
		RPCRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "tokendata_rpc_retries_total",
			Help: "JSON-RPC batch requests retried after a transient failure",
		}),
		RPCBatchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tokendata_rpc_batches_failed_total",
			Help: "Batches recorded as absent metadata after the request failed",
		}),
		TokensResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tokendata_tokens_resolved_total",
			Help: "Token fields resolved on-chain by field and result",
		}, []string{"field", "result"}),
		PoolPagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tokendata_pool_pages_fetched_total",
			Help: "Pools API pages fetched per network",
		}, []string{"network"}),
		MergeTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tokendata_merge_tokens_total",
			Help: "Harvested tokens merged into the canonical table by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveRequest counts one HTTP attempt
func (p *Pipeline) ObserveRequest(outcome string) {
	if p == nil {
		return
	}
	p.RPCRequests.WithLabelValues(outcome).Inc()
}

// ObserveRetry counts one retry
func (p *Pipeline) ObserveRetry() {
	if p == nil {
		return
	}
	p.RPCRetries.Inc()
}

// ObserveBatchFailure counts one degraded batch
func (p *Pipeline) ObserveBatchFailure() {
	if p == nil {
		return
	}
	p.RPCBatchesFailed.Inc()
}

// ObserveField counts a resolved or absent name/ticker
func (p *Pipeline) ObserveField(field string, found bool) {
	if p == nil {
		return
	}
	result := "absent"
	if found {
		result = "found"
	}
	p.TokensResolved.WithLabelValues(field, result).Inc()
}

// ObservePage counts one pools API page
func (p *Pipeline) ObservePage(network string) {
	if p == nil {
		return
	}
	p.PoolPagesFetched.WithLabelValues(network).Inc()
}

// ObserveMerge counts n tokens with the given merge outcome
func (p *Pipeline) ObserveMerge(outcome string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.MergeTokens.WithLabelValues(outcome).Add(float64(n))
}

// Push sends everything gathered by g to a Prometheus Pushgateway
func Push(url, job string, g prometheus.Gatherer) error {
	return push.New(url, job).Gatherer(g).Push()
}
