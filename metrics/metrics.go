// Package metrics exposes the engine's Prometheus collectors, grounded on
// forbearing-gst/metrics/metrics.go's Init/Register pattern. Every gauge the
// teacher tracked was HTTP/process-level (request latency, connection
// counts); this engine has no HTTP surface, so the collectors below are
// those SPEC_FULL.md §1.5 names instead: operator batches, access-path
// choice, auth outcomes, broadcast cache hit/miss, DDL cache bumps.
package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

const (
	NAMESPACE = "surrealkv_"
	SUBSYSTEM = "core_"
)

var (
	// BatchesEmitted counts exec.RowPipeline batches produced, labelled by
	// the operator kind that emitted them (scan/create/delete), per §4.6.
	BatchesEmitted *prometheus.CounterVec

	// AccessPathChosen counts planner decisions, labelled by plan.AccessKind
	// name, per §4.5.
	AccessPathChosen *prometheus.CounterVec

	// AuthFailuresTotal counts failed Signin/token-verification attempts,
	// labelled by failure class, per §4.7/§7.
	AuthFailuresTotal *prometheus.CounterVec

	// BroadcastCacheHit/Miss count lookups in the batch cache of
	// exec/operators' BroadcastSource (the shared subquery broadcast).
	BroadcastCacheHit  prometheus.Counter
	BroadcastCacheMiss prometheus.Counter

	// DDLCacheBumps counts cache_{fields,indexes,events}_ts increments,
	// labelled by which cache was bumped, per §4.8 step 5.
	DDLCacheBumps *prometheus.CounterVec

	// LiveQueriesActive tracks the current count of registered live
	// queries, per §4.9.
	LiveQueriesActive prometheus.Gauge

	// TxRetries counts kvs.Transaction commits that failed with
	// ErrTxRetryable, per §6.2.
	TxRetries prometheus.Counter
)

func Init() error {
	BatchesEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: SUBSYSTEM,
		Name:      "batches_emitted_total",
		Help:      "Total number of row batches emitted by exec operators",
	}, []string{"operator"})

	AccessPathChosen = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: SUBSYSTEM,
		Name:      "access_path_chosen_total",
		Help:      "Total number of times each access-path kind was chosen by the planner",
	}, []string{"kind"})

	AuthFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: SUBSYSTEM,
		Name:      "auth_failures_total",
		Help:      "Total number of failed authentication attempts",
	}, []string{"class"})

	BroadcastCacheHit = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: SUBSYSTEM,
		Name:      "broadcast_cache_hits_total",
		Help:      "Total number of broadcast-source batch cache hits",
	})
	BroadcastCacheMiss = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: SUBSYSTEM,
		Name:      "broadcast_cache_misses_total",
		Help:      "Total number of broadcast-source batch cache misses",
	})

	DDLCacheBumps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: SUBSYSTEM,
		Name:      "ddl_cache_bumps_total",
		Help:      "Total number of table cache-timestamp bumps performed by DDL",
	}, []string{"cache"})

	LiveQueriesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: NAMESPACE,
		Subsystem: SUBSYSTEM,
		Name:      "live_queries_active",
		Help:      "Current number of registered live queries",
	})

	TxRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: SUBSYSTEM,
		Name:      "tx_retries_total",
		Help:      "Total number of transaction commits that failed with a retryable conflict",
	})

	errs := make([]error, 0, 9)
	errs = append(errs, prometheus.Register(BatchesEmitted))
	errs = append(errs, prometheus.Register(AccessPathChosen))
	errs = append(errs, prometheus.Register(AuthFailuresTotal))
	errs = append(errs, prometheus.Register(BroadcastCacheHit))
	errs = append(errs, prometheus.Register(BroadcastCacheMiss))
	errs = append(errs, prometheus.Register(DDLCacheBumps))
	errs = append(errs, prometheus.Register(LiveQueriesActive))
	errs = append(errs, prometheus.Register(TxRetries))
	errs = append(errs, prometheus.Register(collectors.NewBuildInfoCollector()))
	errs = append(errs, prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: NAMESPACE})))

	return errors.WithStack(multierr.Combine(errs...))
}
