package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index outcomes for IndexItemsTotal.
const (
	OutcomeIndexed  = "indexed"
	OutcomeExisting = "existing"
	OutcomeFailed   = "failed"
)

// Indexing and search Prometheus metrics.
var (
	IndexItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picdex",
			Name:      "index_items_total",
			Help:      "Images processed by the indexer, by outcome",
		},
		[]string{"outcome"},
	)

	IndexBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "picdex",
			Name:      "index_batch_duration_seconds",
			Help:      "Time to prepare and insert one scan batch",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picdex",
			Name:      "search_requests_total",
			Help:      "Search requests by kind and basis",
		},
		[]string{"kind", "basis", "status"},
	)
)

var indexMetricsRegistered bool

// RegisterIndexMetrics registers indexing and search metrics. Must be called once from main.
func RegisterIndexMetrics() {
	if indexMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexItemsTotal)
	prometheus.MustRegister(IndexBatchDuration)
	prometheus.MustRegister(SearchRequestsTotal)
	indexMetricsRegistered = true
}
