package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arxivsearch",
			Name:      "search_duration_seconds",
			Help:      "Search pipeline duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "status"},
	)

	SearchResultsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arxivsearch",
			Name:      "search_results_returned",
			Help:      "Number of papers returned per search",
			Buckets:   []float64{0, 1, 5, 10, 15, 20, 50, 100},
		},
		[]string{"operation"},
	)

	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arxivsearch",
			Name:      "index_operations_total",
			Help:      "Index operations by backend and outcome",
		},
		[]string{"backend", "op", "status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search pipeline metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResultsReturned)
	prometheus.MustRegister(IndexOperationsTotal)
	searchMetricsRegistered = true
}

// ObserveIndexOp counts one index operation.
func ObserveIndexOp(backend, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	IndexOperationsTotal.WithLabelValues(backend, op, status).Inc()
}
