// Package metrics exposes Prometheus instruments for the analysis engine.
//
// Instruments are grouped in a Metrics value bound to a registerer, so that
// tests can use a private registry while the CLI uses the default one.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkage"

// Metrics holds all instruments.
type Metrics struct {
	GraphCacheHits    prometheus.Counter
	GraphCacheMisses  prometheus.Counter
	GraphCollisions   prometheus.Counter
	SummariesComputed prometheus.Counter
	MemoHits          prometheus.Counter
	UnresolvedMethods prometheus.Counter
	Diagnostics       *prometheus.CounterVec
	SCCIterations     prometheus.Histogram
	WaveDuration      prometheus.Histogram
}

// New registers a fresh set of instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GraphCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "cache_hits_total",
			Help:      "Shortest-path computations served from the shared cache",
		}),
		GraphCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "cache_misses_total",
			Help:      "Shortest-path computations performed",
		}),
		GraphCollisions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "cache_collisions_total",
			Help:      "Graph hash collisions detected by canonical key comparison",
		}),
		SummariesComputed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "summaries_computed_total",
			Help:      "Method summaries computed, counting every fixpoint iteration",
		}),
		MemoHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "memo_hits_total",
			Help:      "Method summaries reused from the incremental memo",
		}),
		UnresolvedMethods: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "unresolved_methods_total",
			Help:      "Methods whose summaries did not stabilize within the iteration budget",
		}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported by kind",
		}, []string{"kind"}),
		SCCIterations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "scc_iterations",
			Help:      "Fixpoint iterations per strongly connected component",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		WaveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "wave_duration_seconds",
			Help:      "Time spent analyzing one wave of independent components",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the instruments registered with the default registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
