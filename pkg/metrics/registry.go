// Package metrics provides an opt-in Prometheus collector for the
// switcher client, grounded on the ipiton-alert-history-service
// pkg/metrics registry shape:
// a namespaced, lazily-initialized registry callers attach explicitly
// rather than one wired in globally, since a client library must never
// force metrics on its host application.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry exposes the switcher client's Prometheus collectors, grouped
// by concern. Use New to build one and Collectors to register it with
// a prometheus.Registerer of the host application's choosing.
type Registry struct {
	namespace string

	decisionsOnce sync.Once
	decisions     *DecisionMetrics

	resourceOnce sync.Once
	resource     *ResourceMetrics
}

// New builds a Registry under the given namespace (defaults to
// "switcher_client" when empty).
func New(namespace string) *Registry {
	if namespace == "" {
		namespace = "switcher_client"
	}
	return &Registry{namespace: namespace}
}

// DecisionMetrics groups counters for resolved-flag outcomes.
type DecisionMetrics struct {
	ChecksTotal     *prometheus.CounterVec
	RemoteCalls     *prometheus.CounterVec
	CacheHitRatio   prometheus.Gauge
	RegexTimeouts   prometheus.Counter
	AuthFailures    prometheus.Counter
	AutoUpdateTotal *prometheus.CounterVec
}

// Decisions returns the decision-path metrics, lazily constructed.
func (r *Registry) Decisions() *DecisionMetrics {
	r.decisionsOnce.Do(func() {
		r.decisions = &DecisionMetrics{
			ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: r.namespace,
				Subsystem: "decision",
				Name:      "checks_total",
				Help:      "Total isOn checks, labeled by result (true/false) and source (local/remote).",
			}, []string{"result", "source"}),
			RemoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: r.namespace,
				Subsystem: "remote",
				Name:      "calls_total",
				Help:      "Total remote API calls, labeled by operation and outcome.",
			}, []string{"operation", "outcome"}),
			CacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: r.namespace,
				Subsystem: "execlog",
				Name:      "cache_hit_ratio",
				Help:      "Rolling ratio of execution-log cache hits to total lookups.",
			}),
			RegexTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: r.namespace,
				Subsystem: "regexmatch",
				Name:      "timeouts_total",
				Help:      "Total regex evaluations aborted by the timed matcher's watchdog.",
			}),
			AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: r.namespace,
				Subsystem: "auth",
				Name:      "failures_total",
				Help:      "Total failed authentication attempts against the remote API.",
			}),
			AutoUpdateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: r.namespace,
				Subsystem: "autoupdate",
				Name:      "runs_total",
				Help:      "Total scheduled snapshot auto-update runs, labeled by outcome.",
			}, []string{"outcome"}),
		}
	})
	return r.decisions
}

// ResourceMetrics groups gauges describing the size of in-memory state.
type ResourceMetrics struct {
	SnapshotVersion  prometheus.Gauge
	ExecutionLogSize prometheus.Gauge
	RegexBlacklist   prometheus.Gauge
}

// Resources returns the resource-gauge metrics, lazily constructed.
func (r *Registry) Resources() *ResourceMetrics {
	r.resourceOnce.Do(func() {
		r.resource = &ResourceMetrics{
			SnapshotVersion: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: r.namespace,
				Subsystem: "snapshot",
				Name:      "version",
				Help:      "Version of the currently loaded snapshot.",
			}),
			ExecutionLogSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: r.namespace,
				Subsystem: "execlog",
				Name:      "entries",
				Help:      "Number of distinct keys currently cached in the execution log.",
			}),
			RegexBlacklist: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: r.namespace,
				Subsystem: "regexmatch",
				Name:      "blacklist_size",
				Help:      "Number of (pattern, input) pairs currently blacklisted by the timed matcher.",
			}),
		}
	})
	return r.resource
}

// Collectors returns every collector currently initialized, for
// registering with a prometheus.Registerer:
//
//	for _, c := range registry.Collectors() {
//	    prometheus.MustRegister(c)
//	}
func (r *Registry) Collectors() []prometheus.Collector {
	var collectors []prometheus.Collector

	if r.decisions != nil {
		collectors = append(collectors,
			r.decisions.ChecksTotal,
			r.decisions.RemoteCalls,
			r.decisions.CacheHitRatio,
			r.decisions.RegexTimeouts,
			r.decisions.AuthFailures,
			r.decisions.AutoUpdateTotal,
		)
	}
	if r.resource != nil {
		collectors = append(collectors,
			r.resource.SnapshotVersion,
			r.resource.ExecutionLogSize,
			r.resource.RegexBlacklist,
		)
	}
	return collectors
}
