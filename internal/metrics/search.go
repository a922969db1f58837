package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search coordinator and request cache metrics.
var (
	FilterSettledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blogsearch",
			Name:      "filter_settled_total",
			Help:      "Debounced filter values that settled",
		},
	)

	FilterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blogsearch",
			Name:      "filter_requests_total",
			Help:      "Filtered collection requests by outcome",
		},
		[]string{"status"}, // "ok" / "error" / "superseded"
	)

	FilterRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "blogsearch",
			Name:      "filter_request_duration_seconds",
			Help:      "Filtered collection request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blogsearch",
			Name:      "request_cache_total",
			Help:      "Request cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "shared" / "error"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the coordinator and cache metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(FilterSettledTotal)
	prometheus.MustRegister(FilterRequestsTotal)
	prometheus.MustRegister(FilterRequestDuration)
	prometheus.MustRegister(CacheTotal)
	searchMetricsRegistered = true
}
