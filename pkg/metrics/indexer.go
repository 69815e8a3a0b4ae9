package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treeseed",
		Subsystem: "index",
		Name:      "runs_total",
		Help:      "Total number of nested-set index runs broken down by result.",
	}, []string{"result"})

	indexNodes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "treeseed",
		Subsystem: "index",
		Name:      "nodes_total",
		Help:      "Total number of nodes that received an interval.",
	})

	indexOrphans = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "treeseed",
		Subsystem: "index",
		Name:      "orphans_total",
		Help:      "Total number of nodes moved to the root level because their parent did not resolve.",
	})

	indexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "treeseed",
		Subsystem: "index",
		Name:      "duration_seconds",
		Help:      "Wall time of one index run.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treeseed",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of API requests broken down by endpoint and status class.",
	}, []string{"endpoint", "result"})
)

// RecordIndexRun records one call of the indexer. result is "ok" or an error kind.
func RecordIndexRun(result string, nodes, orphans int, elapsed time.Duration) {
	if result == "" {
		result = "ok"
	}
	indexRuns.WithLabelValues(result).Inc()
	indexNodes.Add(float64(nodes))
	indexOrphans.Add(float64(orphans))
	indexDuration.Observe(elapsed.Seconds())
}

func RecordAPIRequest(endpoint string, status int) {
	result := "2xx"
	switch {
	case status >= 500:
		result = "5xx"
	case status >= 400:
		result = "4xx"
	}
	apiRequests.WithLabelValues(endpoint, result).Inc()
}
